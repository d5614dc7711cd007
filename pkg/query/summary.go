package query

// SummaryParams configures an ESummary request.
type SummaryParams struct {
	// IDs is a list-like collection of UIDs ([]string, []int, []int64, []any...).
	IDs any

	// Database the UIDs belong to; defaults to pubmed.
	Database string

	MaxResults            int
	IgnoreMaxResultsLimit bool
}

// Summary retrieves document summaries for a list of UIDs (esummary). It is
// posted since identifier lists can be long.
type Summary struct {
	base
	ids         []string
	maxResults  int
	ignoreLimit bool
}

// NewSummary validates p and returns a summary descriptor.
func NewSummary(p SummaryParams) (Summary, error) {
	ids, err := normalizeIdentifiers(KindSummary, p.IDs)
	if err != nil {
		return Summary{}, err
	}
	s := Summary{
		base:        base{kind: KindSummary, database: defaultDatabase(p.Database), method: MethodPost, endpoint: "esummary"},
		ids:         ids,
		maxResults:  p.MaxResults,
		ignoreLimit: p.IgnoreMaxResultsLimit,
	}
	if err := s.Validate(); err != nil {
		return Summary{}, err
	}
	s.warnUnknown()
	return s, nil
}

// IDs returns a copy of the normalised identifiers.
func (s Summary) IDs() []string { return copyIDs(s.ids) }

// MaxResults returns retmax.
func (s Summary) MaxResults() int { return s.maxResults }

// WithIDs returns a copy for another identifier set, e.g. one batch chunk.
func (s Summary) WithIDs(ids any) (Summary, error) {
	normalized, err := normalizeIdentifiers(s.kind, ids)
	if err != nil {
		return Summary{}, err
	}
	s.ids = normalized
	if err := s.Validate(); err != nil {
		return Summary{}, err
	}
	return s, nil
}

// Validate implements Descriptor.
func (s Summary) Validate() error {
	if len(s.ids) == 0 {
		return invalid(s.kind, "ids", "at least one identifier is required")
	}
	return validateMaxResults(s.kind, s.maxResults, s.ignoreLimit)
}

// Params implements Descriptor.
func (s Summary) Params() Params {
	p := s.base.params()
	p.Set("retmax", itoa(s.maxResults))
	p.Set("id", joinIdentifiers(s.ids))
	return p
}

// String implements Descriptor.
func (s Summary) String() string {
	return s.kind.QueryName() + " " + summarizeIdentifiers(s.ids) + s.inDatabase()
}

// FetchParams configures an EFetch request.
type FetchParams struct {
	IDs                   any
	Database              string
	MaxResults            int
	IgnoreMaxResultsLimit bool

	// ReturnType defaults to xml: the server's JSON support for efetch is incomplete.
	ReturnType ReturnType
}

// Fetch retrieves formatted records for a list of UIDs (efetch).
type Fetch struct {
	Summary
	returnType ReturnType
}

// NewFetch validates p and returns a fetch descriptor.
func NewFetch(p FetchParams) (Fetch, error) {
	ids, err := normalizeIdentifiers(KindFetch, p.IDs)
	if err != nil {
		return Fetch{}, err
	}
	rt := p.ReturnType
	if rt == "" {
		rt = ReturnXML
	}
	f := Fetch{
		Summary: Summary{
			base:        base{kind: KindFetch, database: defaultDatabase(p.Database), method: MethodPost, endpoint: "efetch"},
			ids:         ids,
			maxResults:  p.MaxResults,
			ignoreLimit: p.IgnoreMaxResultsLimit,
		},
		returnType: rt,
	}
	if err := f.Validate(); err != nil {
		return Fetch{}, err
	}
	f.warnUnknown()
	return f, nil
}

// ReturnType returns the requested retmode.
func (f Fetch) ReturnType() ReturnType { return f.returnType }

// WithIDs returns a copy for another identifier set.
func (f Fetch) WithIDs(ids any) (Fetch, error) {
	s, err := f.Summary.WithIDs(ids)
	if err != nil {
		return Fetch{}, err
	}
	f.Summary = s
	return f, nil
}

// Validate implements Descriptor.
func (f Fetch) Validate() error {
	if err := f.Summary.Validate(); err != nil {
		return err
	}
	if !f.returnType.Valid() {
		return invalid(f.kind, "return_type", "must be json or xml (got %q)", f.returnType)
	}
	return nil
}

// Params implements Descriptor.
func (f Fetch) Params() Params {
	p := f.Summary.Params()
	p.Set("retmode", string(f.returnType))
	return p
}

func defaultDatabase(db string) string {
	if db == "" {
		return DefaultDatabase
	}
	return db
}

func copyIDs(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}
