package query

import (
	"fmt"
	"strconv"
	"strings"
)

// CitationRecord is one input citation for ECitMatch.
type CitationRecord struct {
	// Journal title, e.g. "science" or "proc natl acad sci u s a".
	Journal   string `json:"journal" yaml:"journal"`
	Year      int    `json:"year" yaml:"year"`
	Volume    int    `json:"volume" yaml:"volume"`
	FirstPage int    `json:"first_page" yaml:"first_page"`
	// Author name, e.g. "mann bj".
	Author string `json:"author" yaml:"author"`
	// Key is echoed back by the server to identify the citation, e.g. "Art1".
	Key string `json:"key" yaml:"key"`
}

// CitationParams configures an ECitMatch request.
type CitationParams struct {
	// Database must be pubmed (the default).
	Database  string
	Citations []CitationRecord
}

// Citation retrieves PMIDs matching a set of citations (ecitmatch). The
// endpoint only supports xml.
type Citation struct {
	base
	citations []CitationRecord
}

// NewCitation validates p and returns a citation descriptor.
func NewCitation(p CitationParams) (Citation, error) {
	c := Citation{
		base:      base{kind: KindCitation, database: defaultDatabase(p.Database), method: MethodGet, endpoint: "ecitmatch"},
		citations: append([]CitationRecord(nil), p.Citations...),
	}
	if err := c.Validate(); err != nil {
		return Citation{}, err
	}
	return c, nil
}

// Citations returns a copy of the input citations.
func (c Citation) Citations() []CitationRecord {
	return append([]CitationRecord(nil), c.citations...)
}

// Validate implements Descriptor.
func (c Citation) Validate() error {
	if c.database != DefaultDatabase {
		return invalid(c.kind, "database", "only pubmed is supported (got %q)", c.database)
	}
	if len(c.citations) == 0 {
		return invalid(c.kind, "citations", "at least one citation is required")
	}
	for i, rec := range c.citations {
		if strings.ContainsAny(rec.Journal+rec.Author+rec.Key, "|\r") {
			return invalid(c.kind, "citations", "citation %d contains a reserved separator", i)
		}
	}
	return nil
}

// Params implements Descriptor.
func (c Citation) Params() Params {
	p := c.base.params()
	p.Set("retmode", string(ReturnXML))
	p.Set("bdata", encodeCitations(c.citations))
	return p
}

// String implements Descriptor.
func (c Citation) String() string {
	return fmt.Sprintf("%s %d citations%s", c.kind.QueryName(), len(c.citations), c.inDatabase())
}

// encodeCitations renders journal|year|volume|first_page|author|key| per
// record, records joined by an encoded carriage return.
func encodeCitations(records []CitationRecord) string {
	encoded := make([]string, len(records))
	for i, rec := range records {
		fields := []string{
			plus(rec.Journal),
			strconv.Itoa(rec.Year),
			strconv.Itoa(rec.Volume),
			strconv.Itoa(rec.FirstPage),
			plus(rec.Author),
			plus(rec.Key),
		}
		encoded[i] = strings.Join(fields, "|") + "|"
	}
	return strings.Join(encoded, "%0D")
}

func plus(s string) string {
	return strings.ReplaceAll(s, " ", "+")
}
