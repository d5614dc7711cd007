package client

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/beevik/etree"
	jsoniter "github.com/json-iterator/go"

	"github.com/Sternrassler/eutils-client/pkg/pagination"
	"github.com/Sternrassler/eutils-client/pkg/query"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Response pairs a descriptor with the raw result it produced. Decoded data
// is computed on first access and cached.
type Response struct {
	query query.Descriptor
	raw   *RawResponse

	once    sync.Once
	data    any
	dataErr error
}

// NewResponse wraps raw as the response to d.
func NewResponse(d query.Descriptor, raw *RawResponse) *Response {
	if raw.Header == nil {
		raw.Header = http.Header{}
	}
	return &Response{query: d, raw: raw}
}

// Query returns the descriptor that produced the response.
func (r *Response) Query() query.Descriptor { return r.query }

// StatusCode returns the HTTP status code.
func (r *Response) StatusCode() int { return r.raw.StatusCode }

// Header returns the response headers.
func (r *Response) Header() http.Header { return r.raw.Header }

// Body returns the raw response body.
func (r *Response) Body() []byte { return r.raw.Body }

// ContentType maps the declared Content-Type to a return type.
func (r *Response) ContentType() (query.ReturnType, error) {
	declared := r.raw.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(declared, "application/json"):
		return query.ReturnJSON, nil
	case strings.HasPrefix(declared, "text/xml"):
		return query.ReturnXML, nil
	default:
		return "", &UnknownContentTypeError{ContentType: declared}
	}
}

// Data decodes the body according to its content type: map[string]any for
// JSON, *etree.Document for XML.
func (r *Response) Data() (any, error) {
	r.once.Do(func() {
		r.data, r.dataErr = r.decode()
	})
	return r.data, r.dataErr
}

func (r *Response) decode() (any, error) {
	ct, err := r.ContentType()
	if err != nil {
		return nil, err
	}
	switch ct {
	case query.ReturnJSON:
		var data map[string]any
		if err := json.Unmarshal(r.raw.Body, &data); err != nil {
			return nil, fmt.Errorf("decode json response: %w", err)
		}
		return data, nil
	default:
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(r.raw.Body); err != nil {
			return nil, fmt.Errorf("decode xml response: %w", err)
		}
		return doc, nil
	}
}

// JSON unmarshals a JSON body into v.
func (r *Response) JSON(v any) error {
	ct, err := r.ContentType()
	if err != nil {
		return err
	}
	if ct != query.ReturnJSON {
		return fmt.Errorf("response is %s, not json", ct)
	}
	if err := json.Unmarshal(r.raw.Body, v); err != nil {
		return fmt.Errorf("decode json response: %w", err)
	}
	return nil
}

// XML returns the decoded XML document.
func (r *Response) XML() (*etree.Document, error) {
	data, err := r.Data()
	if err != nil {
		return nil, err
	}
	doc, ok := data.(*etree.Document)
	if !ok {
		return nil, fmt.Errorf("response is not xml")
	}
	return doc, nil
}

// SearchMeta extracts the paging metadata (total count, echoed offset and
// page size) from either encoding.
func (r *Response) SearchMeta() (pagination.Meta, error) {
	data, err := r.Data()
	if err != nil {
		return pagination.Meta{}, err
	}
	switch v := data.(type) {
	case map[string]any:
		return pagination.MetaFromJSON(v)
	case *etree.Document:
		return pagination.MetaFromXML(v)
	default:
		return pagination.Meta{}, fmt.Errorf("unexpected decoded type %T", data)
	}
}

// String implements fmt.Stringer.
func (r *Response) String() string {
	return fmt.Sprintf("<Response status=%d for %s>", r.raw.StatusCode, r.query)
}
