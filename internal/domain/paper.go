package domain

import (
	"regexp"
	"slices"
	"strings"
)

// ArXivDOIPrefix is the DataCite DOI prefix arXiv registers preprints under.
const ArXivDOIPrefix = "10.48550/arxiv."

// PaperIdentifiers holds all possible identifiers for an academic paper.
type PaperIdentifiers struct {
	DOI               string `json:"doi,omitempty"`
	ArXivID           string `json:"arxiv_id,omitempty"`
	PubMedID          string `json:"pubmed_id,omitempty"`
	PMCID             string `json:"pmcid,omitempty"`
	SemanticScholarID string `json:"semantic_scholar_id,omitempty"`
	OpenAlexID        string `json:"openalex_id,omitempty"`
	ScopusID          string `json:"scopus_id,omitempty"`
}

// GenerateCanonicalID generates a canonical identifier from paper identifiers.
// Priority order: DOI > ArXiv > PubMed > SemanticScholar > OpenAlex > Scopus
// Returns empty string if no identifiers are available.
func GenerateCanonicalID(ids PaperIdentifiers) string {
	if doi := bareDOI(ids.DOI); doi != "" {
		return "doi:" + doi
	}
	if arxiv := strings.TrimSpace(ids.ArXivID); arxiv != "" {
		return "arxiv:" + stripArXivVersion(arxiv)
	}
	if pubmed := strings.TrimSpace(ids.PubMedID); pubmed != "" {
		return "pubmed:" + pubmed
	}
	if s2 := strings.TrimSpace(ids.SemanticScholarID); s2 != "" {
		return "s2:" + s2
	}
	if openalex := strings.TrimSpace(ids.OpenAlexID); openalex != "" {
		return "openalex:" + openalex
	}
	if scopus := strings.TrimSpace(ids.ScopusID); scopus != "" {
		return "scopus:" + scopus
	}
	return ""
}

// Aliases returns every identifier in ids in normalized form, the canonical
// id first. An arXiv id and its 10.48550 DOI stand for each other, so each
// implies the other.
func (ids PaperIdentifiers) Aliases() []string {
	var out []string
	add := func(id string) {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}

	add(NormalizePaperID(GenerateCanonicalID(ids)))
	if doi := bareDOI(ids.DOI); doi != "" {
		add("doi:" + doi)
		if arxiv, ok := strings.CutPrefix(doi, ArXivDOIPrefix); ok {
			add("arxiv:" + stripArXivVersion(arxiv))
		}
	}
	if arxiv := stripArXivVersion(ids.ArXivID); arxiv != "" {
		add("arxiv:" + arxiv)
		add("doi:" + ArXivDOIPrefix + strings.ToLower(arxiv))
	}
	for _, id := range []struct{ scheme, value string }{
		{"pubmed", ids.PubMedID},
		{"pmcid", ids.PMCID},
		{"s2", ids.SemanticScholarID},
		{"openalex", ids.OpenAlexID},
		{"scopus", ids.ScopusID},
	} {
		if value := strings.TrimSpace(id.value); value != "" {
			add(id.scheme + ":" + value)
		}
	}
	return out
}

// OtherIDs returns ids without id, keeping order.
func OtherIDs(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, alias := range ids {
		if alias != id {
			out = append(out, alias)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

var (
	arxivNewStyle = regexp.MustCompile(`^\d{4}\.\d{4,5}(v\d+)?$`)
	arxivOldStyle = regexp.MustCompile(`^[a-z\-]+(\.[A-Z]{2})?/\d{7}(v\d+)?$`)
	arxivVersion  = regexp.MustCompile(`v\d+$`)
)

// prefixAliases maps accepted id prefixes (lower-case) to their canonical form.
var prefixAliases = map[string]string{
	"doi":      "doi",
	"arxiv":    "arxiv",
	"pubmed":   "pubmed",
	"pmid":     "pubmed",
	"pmcid":    "pmcid",
	"s2":       "s2",
	"corpusid": "corpusid",
	"openalex": "openalex",
	"scopus":   "scopus",
}

// NormalizePaperID converts the many ways a caller may name a paper into the
// stable key used by the cache and the graph. It returns an empty string for
// blank input. Unknown forms are returned trimmed.
func NormalizePaperID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" {
		return ""
	}

	lower := strings.ToLower(id)
	switch {
	case strings.HasPrefix(lower, "https://doi.org/"), strings.HasPrefix(lower, "http://doi.org/"):
		return "doi:" + strings.ToLower(id[strings.Index(lower, "doi.org/")+len("doi.org/"):])
	case strings.HasPrefix(lower, "https://arxiv.org/abs/"), strings.HasPrefix(lower, "http://arxiv.org/abs/"):
		return "arxiv:" + stripArXivVersion(id[strings.Index(lower, "/abs/")+len("/abs/"):])
	case strings.HasPrefix(lower, "10.") && strings.Contains(lower, "/"):
		return "doi:" + lower
	case arxivNewStyle.MatchString(id) || arxivOldStyle.MatchString(id):
		return "arxiv:" + stripArXivVersion(id)
	}

	if prefix, rest, ok := strings.Cut(id, ":"); ok {
		canonical, known := prefixAliases[strings.ToLower(strings.TrimSpace(prefix))]
		rest = strings.TrimSpace(rest)
		if known && rest != "" {
			switch canonical {
			case "doi":
				return "doi:" + bareDOI(rest)
			case "arxiv":
				return "arxiv:" + stripArXivVersion(rest)
			default:
				return canonical + ":" + rest
			}
		}
	}

	return id
}

// bareDOI lower-cases a DOI and strips a doi.org resolver prefix.
func bareDOI(doi string) string {
	doi = strings.ToLower(strings.TrimSpace(doi))
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/"} {
		if rest, ok := strings.CutPrefix(doi, prefix); ok {
			return rest
		}
	}
	return doi
}

// stripArXivVersion removes a trailing version suffix such as "v2".
func stripArXivVersion(id string) string {
	return arxivVersion.ReplaceAllString(strings.TrimSpace(id), "")
}

// PaperRef names a paper to resolve. It is a value type and is never
// modified after construction.
type PaperRef struct {
	ID          string           `json:"id"`
	Title       string           `json:"title,omitempty"`
	ExternalIDs PaperIdentifiers `json:"external_ids,omitempty"`
}

// NewPaperRef builds a PaperRef with a normalized id.
// An id that is blank after trimming is rejected.
func NewPaperRef(id, title string) (PaperRef, error) {
	normalized := NormalizePaperID(id)
	if normalized == "" {
		return PaperRef{}, NewValidationError("id", "paper id is required")
	}
	return PaperRef{
		ID:    normalized,
		Title: strings.TrimSpace(title),
	}, nil
}

// Validate reports whether the ref can be resolved.
func (p PaperRef) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return NewValidationError("id", "paper id is required")
	}
	return nil
}

// Scheme returns the id prefix ("doi", "arxiv", ...) or an empty string
// when the id carries none.
func (p PaperRef) Scheme() string {
	prefix, _, ok := strings.Cut(p.ID, ":")
	if !ok {
		return ""
	}
	return prefix
}

// Value returns the id with its scheme prefix removed.
func (p PaperRef) Value() string {
	_, rest, ok := strings.Cut(p.ID, ":")
	if !ok {
		return p.ID
	}
	return rest
}
