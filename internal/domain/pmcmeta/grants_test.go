package pmcmeta

import (
	"errors"
	"testing"
)

func grantIDs(grants []GrantEntry) []string {
	out := make([]string, 0, len(grants))
	for _, g := range grants {
		out = append(out, g.Funder+":"+g.GrantID)
	}
	return out
}

func TestNormalizeGrantID(t *testing.T) {
	cases := map[string]string{
		"R01-123":       "R01123",
		" r01 123 ":     "R01123",
		"5-R01\t123":    "5R01123",
		"GT1234":        "GT1234",
		"":              "",
		"  -  ":         "",
		"5R01-NS-04567": "5R01NS04567",
	}
	for in, want := range cases {
		if got := NormalizeGrantID(in); got != want {
			t.Fatalf("NormalizeGrantID(%q): want=%q got=%q", in, want, got)
		}
	}
}

func TestAddGrantKeepsHHMIFirst(t *testing.T) {
	pmc := PMC{Grants: []GrantEntry{
		{ID: "a", Funder: FunderHHMI, GrantID: "R01-123"},
	}}

	if err := AddGrant(&pmc, GrantEntry{Funder: "nih", GrantID: "5R01-456"}); err != nil {
		t.Fatalf("AddGrant nih: %v", err)
	}
	if len(pmc.Grants) != 2 || !pmc.Grants[0].IsHHMI() {
		t.Fatalf("expected hhmi first, got %v", grantIDs(pmc.Grants))
	}
	if pmc.Grants[1].ID == "" {
		t.Fatalf("added grant should get a generated id")
	}

	// Adding a non-HHMI grant while list starts empty, then an HHMI one,
	// still puts HHMI at index 0.
	pmc2 := PMC{}
	if err := AddGrant(&pmc2, GrantEntry{Funder: "nsf", GrantID: "NSF-1"}); err != nil {
		t.Fatalf("AddGrant nsf: %v", err)
	}
	if err := AddGrant(&pmc2, GrantEntry{Funder: FunderHHMI, GrantID: "H-1"}); err != nil {
		t.Fatalf("AddGrant hhmi: %v", err)
	}
	if !pmc2.Grants[0].IsHHMI() {
		t.Fatalf("hhmi not first after add: %v", grantIDs(pmc2.Grants))
	}
}

func TestAddGrantRejectsDuplicateAndLeavesListUnchanged(t *testing.T) {
	pmc := PMC{Grants: []GrantEntry{
		{ID: "a", Funder: FunderHHMI, GrantID: "R01-123"},
		{ID: "b", Funder: "nih", GrantID: "5R01-456"},
	}}

	// Same pair modulo formatting.
	err := AddGrant(&pmc, GrantEntry{Funder: "NIH", GrantID: "5 r01 456"})
	if !errors.Is(err, ErrDuplicateGrant) {
		t.Fatalf("expected ErrDuplicateGrant, got %v", err)
	}
	if len(pmc.Grants) != 2 {
		t.Fatalf("list changed on rejected add: %v", grantIDs(pmc.Grants))
	}

	// Same grant id under a different funder is allowed.
	if err := AddGrant(&pmc, GrantEntry{Funder: "nsf", GrantID: "5R01-456"}); err != nil {
		t.Fatalf("AddGrant different funder: %v", err)
	}
}

func TestRemoveGrant(t *testing.T) {
	pmc := PMC{Grants: []GrantEntry{
		{ID: "a", Funder: FunderHHMI, GrantID: "R01-123"},
		{ID: "b", Funder: "nih", GrantID: "5R01-456"},
	}}

	if err := RemoveGrant(&pmc, "a"); !errors.Is(err, ErrLastHHMIGrant) {
		t.Fatalf("removing the sole hhmi grant should be refused, got %v", err)
	}

	if err := RemoveGrant(&pmc, "b"); err != nil {
		t.Fatalf("RemoveGrant non-hhmi: %v", err)
	}
	if len(pmc.Grants) != 1 || pmc.Grants[0].ID != "a" {
		t.Fatalf("unexpected grants after remove: %v", grantIDs(pmc.Grants))
	}

	if err := RemoveGrant(&pmc, "missing"); !errors.Is(err, ErrGrantNotFound) {
		t.Fatalf("expected ErrGrantNotFound, got %v", err)
	}

	// With a second hhmi entry the first becomes removable.
	if err := AddGrant(&pmc, GrantEntry{ID: "c", Funder: FunderHHMI, GrantID: "R01-999"}); err != nil {
		t.Fatalf("AddGrant second hhmi: %v", err)
	}
	if err := RemoveGrant(&pmc, "a"); err != nil {
		t.Fatalf("RemoveGrant non-sole hhmi: %v", err)
	}
	if !pmc.Grants[0].IsHHMI() {
		t.Fatalf("hhmi ordering lost after remove: %v", grantIDs(pmc.Grants))
	}
}

func TestUpdateGrantID(t *testing.T) {
	pmc := PMC{Grants: []GrantEntry{
		{ID: "a", Funder: FunderHHMI, GrantID: "R01-123"},
		{ID: "b", Funder: "nih", GrantID: "5R01-456"},
		{ID: "c", Funder: "nih", GrantID: "5R01-789"},
	}}

	// Collision with a different entry.
	if err := UpdateGrantID(&pmc, 2, "5r01456"); !errors.Is(err, ErrDuplicateGrant) {
		t.Fatalf("expected ErrDuplicateGrant, got %v", err)
	}
	if pmc.Grants[2].GrantID != "5R01-789" {
		t.Fatalf("grant id mutated on rejected update")
	}

	// Re-formatting an entry's own id is not a collision.
	if err := UpdateGrantID(&pmc, 1, "5 R01 456"); err != nil {
		t.Fatalf("UpdateGrantID same entry: %v", err)
	}
	if pmc.Grants[1].GrantID != "5 R01 456" {
		t.Fatalf("stored value should keep caller formatting, got %q", pmc.Grants[1].GrantID)
	}

	if err := UpdateGrantID(&pmc, 7, "x"); !errors.Is(err, ErrGrantNotFound) {
		t.Fatalf("expected ErrGrantNotFound for out-of-range position, got %v", err)
	}
}

func TestSetInitialGrant(t *testing.T) {
	pmc := PMC{Grants: []GrantEntry{
		{ID: "b", Funder: "nih", GrantID: "5R01-456"},
	}}

	SetInitialGrant(&pmc, "GT100", "A. Scientist", "uniq-1")
	if len(pmc.Grants) != 2 || !pmc.Grants[0].IsHHMI() {
		t.Fatalf("hhmi entry not inserted at position 0: %v", grantIDs(pmc.Grants))
	}
	insertedID := pmc.Grants[0].ID
	if insertedID == "" {
		t.Fatalf("inserted entry should get a generated id")
	}

	// Updating in place preserves the generated id.
	SetInitialGrant(&pmc, "GT200", "B. Scientist", "uniq-2")
	if pmc.Grants[0].ID != insertedID {
		t.Fatalf("set should keep the entry id, got %q want %q", pmc.Grants[0].ID, insertedID)
	}
	if pmc.Grants[0].GrantID != "GT200" || pmc.Grants[0].UniqueID != "uniq-2" {
		t.Fatalf("hhmi entry not updated: %+v", pmc.Grants[0])
	}
}

func TestClearInitialGrantIsIdempotent(t *testing.T) {
	pmc := PMC{Grants: []GrantEntry{
		{ID: "a", Funder: FunderHHMI, GrantID: "GT100", UniqueID: "uniq-1"},
		{ID: "b", Funder: "nih", GrantID: "5R01-456"},
	}}

	if !ClearInitialGrant(&pmc, "uniq-1") {
		t.Fatalf("first clear should remove the entry")
	}
	if _, ok := HHMIGrant(pmc.Grants); ok {
		t.Fatalf("hhmi entry still present after clear")
	}
	// Retrying with the same unique id is a no-op, not an error.
	if ClearInitialGrant(&pmc, "uniq-1") {
		t.Fatalf("second clear should be a no-op")
	}
	if len(pmc.Grants) != 1 {
		t.Fatalf("unexpected grants after retry: %v", grantIDs(pmc.Grants))
	}
}

func TestMigrateLegacyFunders(t *testing.T) {
	src := PMC{Funders: []string{"nih", "HHMI", "nsf", ""}}

	migrated := MigrateLegacyFunders(src)
	if len(migrated.Grants) != 3 {
		t.Fatalf("expected 3 grants, got %v", grantIDs(migrated.Grants))
	}
	if !migrated.Grants[0].IsHHMI() {
		t.Fatalf("hhmi not first after migration: %v", grantIDs(migrated.Grants))
	}
	for _, g := range migrated.Grants {
		if g.GrantID != "" {
			t.Fatalf("migrated entries must have empty grant ids: %+v", g)
		}
		if g.ID == "" {
			t.Fatalf("migrated entries must get generated ids")
		}
	}
	if migrated.Funders != nil {
		t.Fatalf("migrated document should drop the legacy funder list")
	}
	// Source untouched.
	if len(src.Grants) != 0 || len(src.Funders) != 4 {
		t.Fatalf("migration mutated its input: %+v", src)
	}

	// Idempotent: already-migrated documents come back unchanged.
	again := MigrateLegacyFunders(migrated)
	if len(again.Grants) != len(migrated.Grants) {
		t.Fatalf("double migration changed the grant list")
	}
	for i := range again.Grants {
		if again.Grants[i].ID != migrated.Grants[i].ID {
			t.Fatalf("double migration regenerated entry ids")
		}
	}
}

func TestAddGrantExampleFromDashboard(t *testing.T) {
	// grants = [{hhmi, R01-123}]; add {nih, 5R01-456} succeeds; adding the
	// same pair again is rejected.
	pmc := PMC{Grants: []GrantEntry{{ID: "a", Funder: FunderHHMI, GrantID: "R01-123"}}}

	if err := AddGrant(&pmc, GrantEntry{Funder: "nih", GrantID: "5R01-456"}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	want := []string{"hhmi:R01-123", "nih:5R01-456"}
	got := grantIDs(pmc.Grants)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("grants after add: want=%v got=%v", want, got)
		}
	}
	if err := AddGrant(&pmc, GrantEntry{Funder: "nih", GrantID: "5R01-456"}); !errors.Is(err, ErrDuplicateGrant) {
		t.Fatalf("second add should be rejected, got %v", err)
	}
}
