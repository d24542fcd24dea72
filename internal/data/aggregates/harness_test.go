package aggregates

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/sciencecms/pmc-backend/internal/domain"
	domainagg "github.com/sciencecms/pmc-backend/internal/domain/aggregates"
	"github.com/sciencecms/pmc-backend/internal/data/repos"
	"github.com/sciencecms/pmc-backend/internal/data/repos/testutil"
)

// Aggregates own their transactions, so these tests write to the shared test
// database directly and clean their lineage up afterwards instead of running
// inside a rolled-back tx.

func newMetadataStoreForTest(tb testing.TB) (domainagg.MetadataStore, *gorm.DB) {
	tb.Helper()
	db := testutil.DB(tb)
	log := testutil.Logger(tb)
	store := NewMetadataStore(MetadataStoreDeps{
		Base:         BaseDeps{DB: db, Log: log},
		WorkVersions: repos.NewWorkVersionRepo(db, log),
	})
	return store, db
}

func newSubmissionAggregateForTest(tb testing.TB) (domainagg.SubmissionAggregate, *gorm.DB) {
	tb.Helper()
	db := testutil.DB(tb)
	log := testutil.Logger(tb)
	agg := NewSubmissionAggregate(SubmissionAggregateDeps{
		Base:               BaseDeps{DB: db, Log: log},
		WorkVersions:       repos.NewWorkVersionRepo(db, log),
		Submissions:        repos.NewSubmissionRepo(db, log),
		SubmissionVersions: repos.NewSubmissionVersionRepo(db, log),
		Activities:         repos.NewActivityRepo(db, log),
	})
	return agg, db
}

// cleanupWorkLineage removes everything hanging off a work plus its owner.
func cleanupWorkLineage(tb testing.TB, db *gorm.DB, workID, ownerID uuid.UUID) {
	tb.Helper()
	tb.Cleanup(func() {
		db.Unscoped().Where("work_id = ?", workID).Delete(&types.Activity{})
		db.Exec("DELETE FROM submission_version WHERE submission_id IN (SELECT id FROM submission WHERE work_id = ?)", workID)
		db.Unscoped().Where("work_id = ?", workID).Delete(&types.Submission{})
		db.Unscoped().Where("work_id = ?", workID).Delete(&types.WorkVersion{})
		db.Unscoped().Where("id = ?", workID).Delete(&types.Work{})
		db.Unscoped().Where("id = ?", ownerID).Delete(&types.Scientist{})
	})
}

func requireCode(tb testing.TB, err error, want domainagg.ErrorCode) {
	tb.Helper()
	if err == nil {
		tb.Fatalf("expected %s error, got nil", want)
	}
	if got := domainagg.CodeOf(err); got != want {
		tb.Fatalf("expected error code %s, got %s (%v)", want, got, err)
	}
}
