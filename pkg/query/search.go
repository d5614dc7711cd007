package query

import "fmt"

// SearchParams configures an ESearch request.
type SearchParams struct {
	// Term is the Entrez text query.
	Term string

	// Database to search; defaults to pubmed.
	Database string

	// MaxResults is the retmax value, limited to MaxResultsLimit.
	MaxResults int

	// IgnoreMaxResultsLimit allows MaxResults above MaxResultsLimit. Some
	// databases accept higher values but this is undocumented.
	IgnoreMaxResultsLimit bool

	// ResumeFrom is the retstart offset; zero omits the parameter.
	ResumeFrom int
}

// Search lists UIDs matching a text query (esearch).
type Search struct {
	base
	term        string
	maxResults  int
	ignoreLimit bool
	resumeFrom  int
	paged       bool
}

// NewSearch validates p and returns a search descriptor.
func NewSearch(p SearchParams) (Search, error) {
	db := p.Database
	if db == "" {
		db = DefaultDatabase
	}
	s := Search{
		base:        base{kind: KindSearch, database: db, method: MethodGet, endpoint: "esearch"},
		term:        p.Term,
		maxResults:  p.MaxResults,
		ignoreLimit: p.IgnoreMaxResultsLimit,
		resumeFrom:  p.ResumeFrom,
	}
	if err := s.Validate(); err != nil {
		return Search{}, err
	}
	s.warnUnknown()
	return s, nil
}

// Term returns the text query.
func (s Search) Term() string { return s.term }

// MaxResults returns retmax.
func (s Search) MaxResults() int { return s.maxResults }

// ResumeFrom returns retstart.
func (s Search) ResumeFrom() int { return s.resumeFrom }

// Page returns a copy addressing the page starting at offset with size
// results. The copy always carries retstart, including for offset zero.
func (s Search) Page(offset, size int) (Search, error) {
	page := s
	page.resumeFrom = offset
	page.maxResults = size
	page.paged = true
	if err := page.Validate(); err != nil {
		return Search{}, err
	}
	return page, nil
}

// Validate implements Descriptor.
func (s Search) Validate() error {
	if s.term == "" {
		return invalid(s.kind, "term", "search term is required")
	}
	if s.resumeFrom < 0 {
		return invalid(s.kind, "resume_from", "must not be negative (got %d)", s.resumeFrom)
	}
	return validateMaxResults(s.kind, s.maxResults, s.ignoreLimit)
}

// Params implements Descriptor.
func (s Search) Params() Params {
	p := s.base.params()
	p.Set("retmax", itoa(s.maxResults))
	p.Set("term", s.term)
	if s.paged || s.resumeFrom > 0 {
		p.Set("retstart", itoa(s.resumeFrom))
	}
	return p
}

// String implements Descriptor.
func (s Search) String() string {
	return fmt.Sprintf("%s %q%s", s.kind.QueryName(), s.term, s.inDatabase())
}
