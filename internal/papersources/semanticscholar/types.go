// Package semanticscholar provides the primary citation source, backed by
// the Semantic Scholar Graph API.
//
// API Documentation: https://api.semanticscholar.org/api-docs/
package semanticscholar

// PaperResult represents a paper in the Semantic Scholar API response.
type PaperResult struct {
	// PaperID is the Semantic Scholar unique identifier for the paper.
	PaperID string `json:"paperId"`

	// Title is the title of the paper.
	Title string `json:"title"`

	// Year is the publication year.
	Year int `json:"year"`

	// CitationCount is the number of citations this paper has received.
	CitationCount int `json:"citationCount"`

	// InfluentialCitationCount counts citations Semantic Scholar judges
	// to be highly influential.
	InfluentialCitationCount int `json:"influentialCitationCount"`

	// ExternalIDs contains external identifiers for the paper (DOI, ArXiv, etc.).
	ExternalIDs *ExternalIDs `json:"externalIds,omitempty"`

	// References lists the papers this paper cites.
	References []Reference `json:"references,omitempty"`
}

// Reference is one entry of a paper's reference list.
type Reference struct {
	PaperID     string       `json:"paperId"`
	ExternalIDs *ExternalIDs `json:"externalIds,omitempty"`
}

// ExternalIDs contains external identifiers for a paper.
type ExternalIDs struct {
	// DOI is the Digital Object Identifier.
	DOI string `json:"DOI,omitempty"`

	// ArXiv is the ArXiv identifier.
	ArXiv string `json:"ArXiv,omitempty"`

	// PubMed is the PubMed identifier.
	PubMed string `json:"PubMed,omitempty"`

	// PubMedCentral is the PubMed Central identifier.
	PubMedCentral string `json:"PubMedCentral,omitempty"`
}

// MatchResponse is returned by the title match endpoint.
type MatchResponse struct {
	Data []PaperResult `json:"data"`
}
