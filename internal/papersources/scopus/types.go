// Package scopus provides a citation source backed by the Elsevier Scopus
// Search API. It requires an API key and is disabled without one.
//
// API Documentation: https://dev.elsevier.com/documentation/ScopusSearchAPI.wadl
package scopus

// SearchResponse represents the top-level Scopus search API response.
type SearchResponse struct {
	SearchResults SearchResults `json:"search-results"`
}

// SearchResults contains the search result metadata and entries.
type SearchResults struct {
	TotalResults string  `json:"opensearch:totalResults"`
	Entries      []Entry `json:"entry"`
}

// Entry represents a single document in the Scopus search results.
type Entry struct {
	Identifier   string `json:"dc:identifier"` // "SCOPUS_ID:85012345678"
	DOI          string `json:"prism:doi"`
	Title        string `json:"dc:title"`
	CoverDate    string `json:"prism:coverDate"` // "2024-01-15"
	CitedByCount string `json:"citedby-count"`
	PubMedID     string `json:"pubmed-id"`

	// Error is set on the placeholder entry Scopus returns for an empty result set.
	Error string `json:"error"`
}
