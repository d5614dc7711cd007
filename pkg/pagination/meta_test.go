package pagination

import (
	"testing"

	"github.com/beevik/etree"
	jsoniter "github.com/json-iterator/go"
)

func TestMetaFromJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    Meta
		wantErr bool
	}{
		{
			name: "esearch",
			body: `{"header":{"type":"esearch","version":"0.3"},"esearchresult":{"count":"250","retmax":"100","retstart":"0","idlist":["1"]}}`,
			want: Meta{Type: "esearch", Count: 250, HasCount: true, RetStart: 0, RetMax: 100},
		},
		{
			name: "numeric fields",
			body: `{"header":{"type":"esearch"},"esearchresult":{"count":5,"retmax":5,"retstart":0}}`,
			want: Meta{Type: "esearch", Count: 5, HasCount: true, RetMax: 5},
		},
		{
			name: "no header",
			body: `{"result":{}}`,
			want: Meta{},
		},
		{
			name: "no count",
			body: `{"header":{"type":"esummary"},"result":{"uids":["1"]}}`,
			want: Meta{Type: "esummary"},
		},
		{
			name:    "bad count",
			body:    `{"header":{"type":"esearch"},"esearchresult":{"count":"many"}}`,
			wantErr: true,
		},
		{
			name:    "count without retstart",
			body:    `{"header":{"type":"esearch"},"esearchresult":{"count":"3","retmax":"3"}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var data map[string]any
			if err := jsoniter.UnmarshalFromString(tt.body, &data); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			got, err := MetaFromJSON(data)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("MetaFromJSON() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("MetaFromJSON() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMetaFromXML(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8" ?>
<eSearchResult><Count>42</Count><RetMax>20</RetMax><RetStart>20</RetStart>
<IdList><Id>1</Id></IdList>
<TranslationStack><TermSet><Count>7</Count></TermSet></TranslationStack>
</eSearchResult>`

	doc := etree.NewDocument()
	if err := doc.ReadFromString(body); err != nil {
		t.Fatalf("parse: %v", err)
	}

	got, err := MetaFromXML(doc)
	if err != nil {
		t.Fatalf("MetaFromXML() error = %v", err)
	}
	want := Meta{Type: "esearch", Count: 42, HasCount: true, RetStart: 20, RetMax: 20}
	if got != want {
		t.Errorf("MetaFromXML() = %+v, want %+v", got, want)
	}
}

func TestMetaFromXML_NoCount(t *testing.T) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(`<eSummaryResult><DocSum/></eSummaryResult>`); err != nil {
		t.Fatalf("parse: %v", err)
	}

	got, err := MetaFromXML(doc)
	if err != nil {
		t.Fatalf("MetaFromXML() error = %v", err)
	}
	if got.HasCount {
		t.Errorf("HasCount = true for %+v", got)
	}
	if got.Type != "esummary" {
		t.Errorf("Type = %q, want esummary", got.Type)
	}
}
