package aggregates

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	types "github.com/sciencecms/pmc-backend/internal/domain"
	domainagg "github.com/sciencecms/pmc-backend/internal/domain/aggregates"
	"github.com/sciencecms/pmc-backend/internal/domain/pmcmeta"
	"github.com/sciencecms/pmc-backend/internal/data/repos/testutil"
)

func TestMetadataStore_PatchMergesAndPreservesForeignSections(t *testing.T) {
	store, db := newMetadataStoreForTest(t)
	ctx := context.Background()

	seed := `{
		"files": [{"id": "f1", "slot": "manuscript", "name": "paper.pdf"}],
		"pmc": {"title": "Old Title", "journal": "Cell", "custom_tags": {"a": 1}},
		"biorxiv": {"doi": "10.1101/something"}
	}`
	sci, w, wv, _, _ := testutil.SeedPMCLineage(t, ctx, db, seed, "DRAFT")
	cleanupWorkLineage(t, db, w.ID, sci.ID)

	title := "New Title"
	doc, err := store.Patch(ctx, wv.ID, pmcmeta.Patch{
		Title: &title,
		Extra: map[string]any{"custom_tags": map[string]any{"b": 2}},
	})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if doc.PMC.Title != "New Title" {
		t.Fatalf("expected patched title, got %q", doc.PMC.Title)
	}
	if doc.PMC.Journal != "Cell" {
		t.Fatalf("untouched field lost: journal=%q", doc.PMC.Journal)
	}

	var stored types.WorkVersion
	if err := db.Where("id = ?", wv.ID).First(&stored).Error; err != nil {
		t.Fatalf("reload work version: %v", err)
	}
	if stored.LockVersion != wv.LockVersion+1 {
		t.Fatalf("expected lock_version %d, got %d", wv.LockVersion+1, stored.LockVersion)
	}
	if stored.Title != "New Title" {
		t.Fatalf("title not denormalized, got %q", stored.Title)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(stored.Metadata, &raw); err != nil {
		t.Fatalf("unmarshal stored metadata: %v", err)
	}
	if _, ok := raw["biorxiv"]; !ok {
		t.Fatal("foreign top-level section dropped on write")
	}
	var pmcRaw map[string]json.RawMessage
	if err := json.Unmarshal(raw["pmc"], &pmcRaw); err != nil {
		t.Fatalf("unmarshal pmc section: %v", err)
	}
	var tags map[string]any
	if err := json.Unmarshal(pmcRaw["custom_tags"], &tags); err != nil {
		t.Fatalf("unmarshal custom_tags: %v", err)
	}
	if _, ok := tags["a"]; !ok {
		t.Fatal("extra object merge dropped existing key")
	}
	if _, ok := tags["b"]; !ok {
		t.Fatal("extra object merge dropped incoming key")
	}
}

func TestMetadataStore_UpdateNotFound(t *testing.T) {
	store, _ := newMetadataStoreForTest(t)
	ctx := context.Background()

	_, err := store.Update(ctx, uuid.Must(uuid.NewV7()), func(pmc pmcmeta.PMC) (pmcmeta.PMC, error) {
		return pmc, nil
	})
	requireCode(t, err, domainagg.CodeNotFound)
}

func TestMetadataStore_TransformErrorIsReturnedUnwrapped(t *testing.T) {
	store, db := newMetadataStoreForTest(t)
	ctx := context.Background()

	sci, w, wv, _, _ := testutil.SeedPMCLineage(t, ctx, db, `{"pmc": {"grants": [{"id": "g1", "funder": "hhmi", "grant_id": "1"}]}}`, "DRAFT")
	cleanupWorkLineage(t, db, w.ID, sci.ID)

	_, err := store.Update(ctx, wv.ID, func(pmc pmcmeta.PMC) (pmcmeta.PMC, error) {
		return pmc, pmcmeta.RemoveGrant(&pmc, "g1")
	})
	if err == nil {
		t.Fatal("expected sole-hhmi removal to fail")
	}

	var stored types.WorkVersion
	if err := db.Where("id = ?", wv.ID).First(&stored).Error; err != nil {
		t.Fatalf("reload work version: %v", err)
	}
	if stored.LockVersion != wv.LockVersion {
		t.Fatal("failed transform must not bump lock_version")
	}
}

// Concurrent writers each add a distinct grant through the read-modify-write
// loop; optimistic retries must make every addition land.
func TestMetadataStore_ConcurrentUpdatesConverge(t *testing.T) {
	store, db := newMetadataStoreForTest(t)
	ctx := context.Background()

	seed := `{"pmc": {"grants": [{"id": "g0", "funder": "hhmi", "grant_id": "BASE1"}]}}`
	sci, w, wv, _, _ := testutil.SeedPMCLineage(t, ctx, db, seed, "DRAFT")
	cleanupWorkLineage(t, db, w.ID, sci.ID)

	const writers = 4
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < writers; i++ {
		i := i
		g.Go(func() error {
			_, err := store.Update(gctx, wv.ID, func(pmc pmcmeta.PMC) (pmcmeta.PMC, error) {
				return pmc, pmcmeta.AddGrant(&pmc, pmcmeta.GrantEntry{
					Funder:  "nih",
					GrantID: fmt.Sprintf("R01-%d", i),
				})
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent updates: %v", err)
	}

	var stored types.WorkVersion
	if err := db.Where("id = ?", wv.ID).First(&stored).Error; err != nil {
		t.Fatalf("reload work version: %v", err)
	}
	doc, err := pmcmeta.ParseDocument(stored.Metadata)
	if err != nil {
		t.Fatalf("parse stored metadata: %v", err)
	}
	if got := len(doc.PMC.Grants); got != writers+1 {
		t.Fatalf("expected %d grants after concurrent adds, got %d", writers+1, got)
	}
	if !doc.PMC.Grants[0].IsHHMI() {
		t.Fatalf("hhmi grant not first after concurrent adds: %+v", doc.PMC.Grants[0])
	}
	if stored.LockVersion != wv.LockVersion+writers {
		t.Fatalf("expected lock_version %d, got %d", wv.LockVersion+writers, stored.LockVersion)
	}
}
