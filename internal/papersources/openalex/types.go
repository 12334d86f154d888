// Package openalex provides a citation source backed by the OpenAlex API.
//
// OpenAlex is a free, open catalog of scholarly works. It is the first
// fallback after Semantic Scholar.
//
// API Documentation: https://docs.openalex.org/
package openalex

// SearchResponse represents the top-level response from the works search endpoint.
type SearchResponse struct {
	Meta    Meta   `json:"meta"`
	Results []Work `json:"results"`
}

// Meta contains metadata about the search results.
type Meta struct {
	Count   int `json:"count"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// Work represents an academic work in OpenAlex.
type Work struct {
	ID              string   `json:"id"`
	DOI             string   `json:"doi"`
	DisplayName     string   `json:"display_name"`
	PublicationYear int      `json:"publication_year"`
	CitedByCount    int      `json:"cited_by_count"`
	IDs             IDs      `json:"ids"`
	ReferencedWorks []string `json:"referenced_works"`
}

// IDs contains various identifiers for a work.
type IDs struct {
	OpenAlex string `json:"openalex"`
	DOI      string `json:"doi"`
	PMID     string `json:"pmid"`
	PMCID    string `json:"pmcid"`
}
