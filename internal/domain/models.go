// Package domain provides the domain model for the citation graph service:
// paper references, resolved citation metrics, the error taxonomy shared by
// providers, and event payloads.
package domain

// SourceType identifies the provider that produced a Metrics value.
type SourceType string

const (
	SourceTypeSemanticScholar SourceType = "semantic_scholar"
	SourceTypeOpenAlex        SourceType = "openalex"
	SourceTypeScopus          SourceType = "scopus"
	SourceTypeGoogleScholar   SourceType = "google_scholar"
)

// String returns the string form of the source type.
func (s SourceType) String() string {
	return string(s)
}

// IsValid reports whether s names a known provider.
func (s SourceType) IsValid() bool {
	switch s {
	case SourceTypeSemanticScholar, SourceTypeOpenAlex, SourceTypeScopus, SourceTypeGoogleScholar:
		return true
	default:
		return false
	}
}
