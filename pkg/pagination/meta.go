package pagination

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Meta is the paging metadata a search response reports.
type Meta struct {
	// Type is the result kind named in the response header (e.g. "esearch").
	Type string

	// Count is the total number of matching records.
	Count int

	// HasCount is false when the response carried no usable count.
	HasCount bool

	// RetStart and RetMax echo the requested offset and page size.
	RetStart int
	RetMax   int
}

// MetaFromJSON reads the header.type entry and the matching "<type>result"
// block of a decoded JSON response.
func MetaFromJSON(data map[string]any) (Meta, error) {
	header, ok := data["header"].(map[string]any)
	if !ok {
		return Meta{}, nil
	}
	kind, _ := header["type"].(string)
	if kind == "" {
		return Meta{}, nil
	}

	meta := Meta{Type: kind}
	block, ok := data[kind+"result"].(map[string]any)
	if !ok {
		return meta, nil
	}

	count, ok, err := jsonInt(block, "count")
	if err != nil || !ok {
		return meta, err
	}
	meta.Count, meta.HasCount = count, true

	if meta.RetStart, err = requiredJSONInt(block, "retstart"); err != nil {
		return meta, err
	}
	if meta.RetMax, err = requiredJSONInt(block, "retmax"); err != nil {
		return meta, err
	}
	return meta, nil
}

func requiredJSONInt(block map[string]any, key string) (int, error) {
	v, ok, err := jsonInt(block, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("result block has count but no %s", key)
	}
	return v, nil
}

// jsonInt accepts both the string encoding the service uses and plain numbers.
func jsonInt(block map[string]any, key string) (int, bool, error) {
	raw, ok := block[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false, fmt.Errorf("parse %s %q: %w", key, v, err)
		}
		return n, true, nil
	case float64:
		return int(v), true, nil
	case int:
		return v, true, nil
	default:
		return 0, false, fmt.Errorf("unexpected %s type %T", key, raw)
	}
}

// MetaFromXML reads the Count, RetStart and RetMax children of the root
// element (e.g. <eSearchResult>).
func MetaFromXML(doc *etree.Document) (Meta, error) {
	root := doc.Root()
	if root == nil {
		return Meta{}, nil
	}

	meta := Meta{Type: strings.TrimSuffix(strings.ToLower(root.Tag), "result")}
	count, ok, err := xmlInt(root, "Count")
	if err != nil || !ok {
		return meta, err
	}
	meta.Count, meta.HasCount = count, true

	for _, field := range []struct {
		tag string
		dst *int
	}{{"RetStart", &meta.RetStart}, {"RetMax", &meta.RetMax}} {
		v, ok, err := xmlInt(root, field.tag)
		if err != nil {
			return meta, err
		}
		if !ok {
			return meta, fmt.Errorf("result has Count but no %s", field.tag)
		}
		*field.dst = v
	}
	return meta, nil
}

func xmlInt(root *etree.Element, tag string) (int, bool, error) {
	el := root.SelectElement(tag)
	if el == nil {
		return 0, false, nil
	}
	text := strings.TrimSpace(el.Text())
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s %q: %w", tag, text, err)
	}
	return n, true, nil
}
