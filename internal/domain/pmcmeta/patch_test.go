package pmcmeta

import (
	"testing"
)

func strptr(s string) *string { return &s }
func boolptr(b bool) *bool    { return &b }

func TestPatchScalarReplace(t *testing.T) {
	pmc := PMC{Title: "Old title", DOI: "10.1000/old"}

	Patch{Title: strptr("New title"), Previewed: boolptr(true)}.Apply(&pmc)

	if pmc.Title != "New title" {
		t.Fatalf("title: got %q", pmc.Title)
	}
	if pmc.DOI != "10.1000/old" {
		t.Fatalf("doi should be untouched, got %q", pmc.DOI)
	}
	if !pmc.Previewed {
		t.Fatalf("previewed should be set")
	}
}

func TestPatchArrayFullReplace(t *testing.T) {
	pmc := PMC{Authors: []Author{
		{GivenNames: "Ada", Surname: "Lovelace"},
		{GivenNames: "Grace", Surname: "Hopper"},
	}}

	Patch{Authors: &[]Author{{GivenNames: "Alan", Surname: "Turing"}}}.Apply(&pmc)

	if len(pmc.Authors) != 1 || pmc.Authors[0].Surname != "Turing" {
		t.Fatalf("authors should be replaced wholesale, got %+v", pmc.Authors)
	}
}

func TestPatchExtraObjectMerge(t *testing.T) {
	pmc := PMC{Extra: map[string]any{
		"email_state": map[string]any{"last_seen": "m-1", "count": float64(2)},
		"flags":       []any{"a"},
	}}

	Patch{Extra: map[string]any{
		"email_state": map[string]any{"count": float64(3), "cursor": "m-2"},
		"flags":       []any{"b"},
		"new_key":     "v",
	}}.Apply(&pmc)

	merged, ok := pmc.Extra["email_state"].(map[string]any)
	if !ok {
		t.Fatalf("email_state should stay an object")
	}
	// Both objects: one-level merge, incoming keys win, untouched keys survive.
	if merged["last_seen"] != "m-1" || merged["count"] != float64(3) || merged["cursor"] != "m-2" {
		t.Fatalf("one-level merge wrong: %+v", merged)
	}
	// Arrays are not objects: full replacement.
	flags, _ := pmc.Extra["flags"].([]any)
	if len(flags) != 1 || flags[0] != "b" {
		t.Fatalf("array values must replace, got %+v", pmc.Extra["flags"])
	}
	if pmc.Extra["new_key"] != "v" {
		t.Fatalf("new keys must be added")
	}
}

func TestDocumentRoundTripPreservesForeignSections(t *testing.T) {
	raw := []byte(`{
		"files": [{"id":"f1","slot":"manuscript","name":"paper.pdf","storage_key":"k1"}],
		"pmc": {"title":"T","custom_flag":true},
		"airtable": {"record_id":"rec123"}
	}`)

	doc, err := ParseDocument(raw)
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if len(doc.Files) != 1 || doc.Files[0].Slot != SlotManuscript {
		t.Fatalf("files not parsed: %+v", doc.Files)
	}
	if doc.PMC.Title != "T" {
		t.Fatalf("pmc not parsed: %+v", doc.PMC)
	}
	if doc.PMC.Extra["custom_flag"] != true {
		t.Fatalf("unknown pmc key lost: %+v", doc.PMC.Extra)
	}

	out, err := doc.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	round, err := ParseDocument(out)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	foreign, ok := round.Extra["airtable"].(map[string]any)
	if !ok || foreign["record_id"] != "rec123" {
		t.Fatalf("foreign top-level section lost: %+v", round.Extra)
	}
}
