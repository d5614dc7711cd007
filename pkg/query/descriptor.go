// Package query models E-utilities requests as typed, validated descriptors.
//
// Each operation kind (search, summary, fetch, link, info, citation match) is
// a variant of the sealed Descriptor interface. Descriptors are validated at
// construction, immutable afterwards, and serialise to an ordered parameter
// mapping plus the endpoint and HTTP method the request must use.
//
//	q, err := query.NewSearch(query.SearchParams{
//		Term:       "cancer AND human[organism]",
//		Database:   "pubmed",
//		MaxResults: 10000,
//	})
//	query.URI(q) // esearch.fcgi?db=pubmed&retmax=10000&term=cancer AND human[organism]
package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/eutils-client/pkg/databases"
)

// MaxResultsLimit is the documented ceiling for retmax.
const MaxResultsLimit = 10000

// EndpointSuffix is appended to every endpoint name.
const EndpointSuffix = ".fcgi"

// DefaultDatabase is used by variants that fall back to PubMed.
const DefaultDatabase = "pubmed"

// Kind identifies a descriptor variant.
type Kind string

const (
	KindInfo     Kind = "info"
	KindSearch   Kind = "search"
	KindSummary  Kind = "summary"
	KindFetch    Kind = "fetch"
	KindLink     Kind = "link"
	KindCitation Kind = "citation"
)

// QueryName returns the diagnostic name of the variant, e.g. "SearchQuery".
func (k Kind) QueryName() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:]) + "Query"
}

// Method is the HTTP method a descriptor is dispatched with.
type Method string

const (
	MethodGet  Method = "GET"
	MethodPost Method = "POST"
)

// ReturnType is the retmode requested from the server.
type ReturnType string

const (
	ReturnJSON ReturnType = "json"
	ReturnXML  ReturnType = "xml"
)

// Valid reports whether r is json or xml.
func (r ReturnType) Valid() bool {
	return r == ReturnJSON || r == ReturnXML
}

// Descriptor is a validated, serialisable representation of one request.
// The set of implementations is closed: Info, Search, Summary, Fetch, Link
// and Citation.
type Descriptor interface {
	Kind() Kind
	// Database is the target db code; empty when not set (info, some links).
	Database() string
	Method() Method
	// Endpoint is the bare endpoint name, e.g. "esearch".
	Endpoint() string
	// EndpointURI is the endpoint with its suffix, e.g. "esearch.fcgi".
	EndpointURI() string
	Params() Params
	Validate() error
	String() string

	descriptor()
}

// URI returns the canonical request URI: endpoint, '?', unescaped params.
func URI(d Descriptor) string {
	return d.EndpointURI() + "?" + d.Params().Encode()
}

// MatchAll builds a search term requiring every field to match its value,
// e.g. {"organism": "human", "gene": "BRCA1"} -> "BRCA1[gene] AND human[organism]".
// Fields are sorted for a deterministic term.
func MatchAll(fields map[string]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s[%s]", fields[name], name)
	}
	return strings.Join(parts, " AND ")
}

// base carries the fields every variant shares.
type base struct {
	kind     Kind
	database string
	method   Method
	endpoint string
}

func (b base) Kind() Kind          { return b.kind }
func (b base) Database() string    { return b.database }
func (b base) Method() Method      { return b.method }
func (b base) Endpoint() string    { return b.endpoint }
func (b base) EndpointURI() string { return b.endpoint + EndpointSuffix }
func (base) descriptor()           {}

func (b base) params() Params {
	var p Params
	if b.database != "" {
		p.Set("db", b.database)
	}
	return p
}

// warnUnknown logs unknown database codes; the service may still accept
// them. Constructors call it once, copies such as Search.Page do not.
func (b base) warnUnknown() {
	if b.database != "" && !databases.Known(b.database) {
		log.Warn().
			Str("component", "query").
			Str("warning", "UnknownDatabaseWarning").
			Str("query", b.kind.QueryName()).
			Str("database", b.database).
			Msg("Unknown database")
	}
}

func (b base) inDatabase() string {
	if b.database == "" {
		return ""
	}
	return " in " + b.database
}

func validateMaxResults(kind Kind, maxResults int, ignoreLimit bool) error {
	if maxResults < 0 {
		return invalid(kind, "max_results", "must not be negative (got %d)", maxResults)
	}
	if maxResults > MaxResultsLimit && !ignoreLimit {
		return invalid(kind, "max_results", "fetching more than %d results is not supported (got %d); set IgnoreMaxResultsLimit to override", MaxResultsLimit, maxResults)
	}
	return nil
}

func itoa(n int) string { return strconv.Itoa(n) }
