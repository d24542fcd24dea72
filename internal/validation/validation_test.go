package validation

import (
	"strings"
	"testing"

	"github.com/sciencecms/pmc-backend/internal/domain/pmcmeta"
)

func validDocument() pmcmeta.Document {
	return pmcmeta.Document{
		Files: []pmcmeta.FileRef{
			{ID: "f1", Slot: "manuscript", Name: "paper.pdf", StorageKey: "sk1"},
		},
		PMC: pmcmeta.PMC{
			Title:   "A Title",
			Authors: []pmcmeta.Author{{GivenNames: "Ada", Surname: "Lovelace"}},
			Grants: []pmcmeta.GrantEntry{
				{ID: "g1", Funder: "hhmi", GrantID: "R01-1", UniqueID: "u1"},
			},
		},
	}
}

func hasIssue(issues []Issue, path, code string) bool {
	for _, is := range issues {
		if is.Path == path && is.Code == code {
			return true
		}
	}
	return false
}

func countIssuesOnPath(issues []Issue, path string) int {
	n := 0
	for _, is := range issues {
		if is.Path == path {
			n++
		}
	}
	return n
}

func TestValidateAcceptsCompleteDocument(t *testing.T) {
	if issues := New().Validate(validDocument()); len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestValidateCollectsAllSections(t *testing.T) {
	doc := validDocument()
	doc.Files[0].Name = ""
	doc.PMC.Title = ""

	issues := New().Validate(doc)
	if !hasIssue(issues, "files[0].name", "required") {
		t.Fatalf("missing file name issue: %+v", issues)
	}
	if !hasIssue(issues, "pmc.title", "required") {
		t.Fatalf("missing title issue: %+v", issues)
	}
}

// Missing manuscript must produce exactly one files-path issue: the specific
// manuscript rule, never also the generic "files required" structural error.
func TestValidateManuscriptRuleSuppressesGenericFilesIssue(t *testing.T) {
	doc := validDocument()
	doc.Files = nil

	issues := New().Validate(doc)
	if got := countIssuesOnPath(issues, "files"); got != 1 {
		t.Fatalf("expected exactly one files issue, got %d: %+v", got, issues)
	}
	if !hasIssue(issues, "files", CodeManuscriptRequired) {
		t.Fatalf("expected manuscript rule issue, got %+v", issues)
	}
}

func TestValidateManuscriptRuleFiresWithOtherFilesPresent(t *testing.T) {
	doc := validDocument()
	doc.Files = []pmcmeta.FileRef{{ID: "f2", Slot: "figure", Name: "fig.png", StorageKey: "sk2"}}

	issues := New().Validate(doc)
	if !hasIssue(issues, "files", CodeManuscriptRequired) {
		t.Fatalf("expected manuscript rule issue, got %+v", issues)
	}
}

func TestValidateHHMIGrantIDRuleSuppressesStructuralDuplicate(t *testing.T) {
	doc := validDocument()
	doc.PMC.Grants[0].GrantID = ""

	issues := New().Validate(doc)
	if !hasIssue(issues, "pmc.grants", CodeHHMIGrantIDRequired) {
		t.Fatalf("expected hhmi grant id issue, got %+v", issues)
	}
	if hasIssue(issues, "pmc.grants[0].grant_id", "required") {
		t.Fatalf("structural duplicate not suppressed: %+v", issues)
	}
}

func TestValidateRewritesLaterGrantIDMessages(t *testing.T) {
	doc := validDocument()
	doc.PMC.Grants = append(doc.PMC.Grants, pmcmeta.GrantEntry{ID: "g2", Funder: "nih"})

	issues := New().Validate(doc)
	var msg string
	for _, is := range issues {
		if is.Path == "pmc.grants[1].grant_id" {
			msg = is.Message
		}
	}
	if msg == "" {
		t.Fatalf("expected issue for second grant, got %+v", issues)
	}
	if !strings.Contains(msg, "nih") || !strings.Contains(msg, "position 2") {
		t.Fatalf("message not disambiguated: %q", msg)
	}
}

func TestValidateIssueOrdering(t *testing.T) {
	doc := validDocument()
	doc.Files[0].StorageKey = ""
	doc.PMC.Title = ""
	doc.PMC.Grants[0].GrantID = ""

	issues := New().Validate(doc)
	var order []string
	for _, is := range issues {
		switch {
		case strings.HasPrefix(is.Path, "files"):
			order = append(order, "files")
		case is.Code == CodeHHMIGrantIDRequired:
			order = append(order, "custom")
		default:
			order = append(order, "pmc")
		}
	}
	last := ""
	rank := map[string]int{"files": 0, "pmc": 1, "custom": 2}
	for _, o := range order {
		if last != "" && rank[o] < rank[last] {
			t.Fatalf("issues out of order: %v (%+v)", order, issues)
		}
		last = o
	}
}
