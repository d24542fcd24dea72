package aggregates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sciencecms/pmc-backend/internal/data/repos"
	"github.com/sciencecms/pmc-backend/internal/data/repos/testutil"
	types "github.com/sciencecms/pmc-backend/internal/domain"
	domainagg "github.com/sciencecms/pmc-backend/internal/domain/aggregates"
	"github.com/sciencecms/pmc-backend/internal/domain/pmcmeta"
	"github.com/sciencecms/pmc-backend/internal/domain/pmcstatus"
	"github.com/sciencecms/pmc-backend/internal/platform/dbctx"
)

const confirmableMetadata = `{
	"files": [{"id": "f1", "slot": "manuscript", "name": "paper.pdf", "storage_key": "sk1"}],
	"pmc": {
		"title": "Synaptic Plasticity in Layer V",
		"description": "A study.",
		"authors": [{"given_names": "Ada", "surname": "Lovelace"}],
		"doi": "10.1000/xyz",
		"date_published": "2026-03-01",
		"previewed": true,
		"confirmed": true
	}
}`

func TestSubmissionAggregate_Confirm(t *testing.T) {
	agg, db := newSubmissionAggregateForTest(t)
	ctx := context.Background()

	sci, w, wv, sub, sv := testutil.SeedPMCLineage(t, ctx, db, confirmableMetadata, pmcstatus.Draft)
	cleanupWorkLineage(t, db, w.ID, sci.ID)

	res, err := agg.Confirm(ctx, domainagg.ConfirmInput{WorkVersionID: wv.ID, ActorID: sci.ID})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.SubmissionVersionID != sv.ID {
		t.Fatalf("unexpected submission version id %s", res.SubmissionVersionID)
	}
	if !res.Status.Is(pmcstatus.Pending) {
		t.Fatalf("expected PENDING result, got %s", res.Status)
	}

	var storedSV types.SubmissionVersion
	if err := db.Where("id = ?", sv.ID).First(&storedSV).Error; err != nil {
		t.Fatalf("reload submission version: %v", err)
	}
	if !pmcstatus.Status(storedSV.Status).Is(pmcstatus.Pending) {
		t.Fatalf("expected stored status PENDING, got %s", storedSV.Status)
	}
	if storedSV.DatePublished == nil {
		t.Fatal("submission version date_published not stamped")
	}

	var storedSub types.Submission
	if err := db.Where("id = ?", sub.ID).First(&storedSub).Error; err != nil {
		t.Fatalf("reload submission: %v", err)
	}
	if storedSub.DatePublished == nil {
		t.Fatal("submission date_published not stamped")
	}

	var storedWV types.WorkVersion
	if err := db.Where("id = ?", wv.ID).First(&storedWV).Error; err != nil {
		t.Fatalf("reload work version: %v", err)
	}
	if storedWV.Draft {
		t.Fatal("work version still draft after confirm")
	}
	if storedWV.Title != "Synaptic Plasticity in Layer V" {
		t.Fatalf("title not finalized from metadata, got %q", storedWV.Title)
	}
	if storedWV.DOI != "10.1000/xyz" {
		t.Fatalf("doi not finalized, got %q", storedWV.DOI)
	}
	if storedWV.DatePublished == nil || !storedWV.DatePublished.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date_published not taken from metadata: %v", storedWV.DatePublished)
	}

	var acts []types.Activity
	if err := db.Where("submission_version_id = ?", sv.ID).Find(&acts).Error; err != nil {
		t.Fatalf("load activities: %v", err)
	}
	if len(acts) != 1 || acts[0].Type != types.ActivityStatusChange || !pmcstatus.Status(acts[0].Status).Is(pmcstatus.Pending) {
		t.Fatalf("expected one PENDING status_change activity, got %+v", acts)
	}

	// Confirming again must fail: the work version is finalized.
	_, err = agg.Confirm(ctx, domainagg.ConfirmInput{WorkVersionID: wv.ID, ActorID: sci.ID})
	requireCode(t, err, domainagg.CodeConflict)
}

func TestSubmissionAggregate_ConfirmWithoutSubmissionVersion(t *testing.T) {
	agg, db := newSubmissionAggregateForTest(t)
	ctx := context.Background()

	sci := testutil.SeedScientist(t, ctx, db, uuid.NewString()+"@example.org")
	w := testutil.SeedWork(t, ctx, db, sci.ID)
	wv := testutil.SeedWorkVersion(t, ctx, db, w.ID, confirmableMetadata)
	cleanupWorkLineage(t, db, w.ID, sci.ID)

	_, err := agg.Confirm(ctx, domainagg.ConfirmInput{WorkVersionID: wv.ID})
	requireCode(t, err, domainagg.CodeNotFound)
}

func TestSubmissionAggregate_ApplyStatusSignal(t *testing.T) {
	agg, db := newSubmissionAggregateForTest(t)
	ctx := context.Background()

	sci, w, wv, _, sv := testutil.SeedPMCLineage(t, ctx, db, confirmableMetadata, pmcstatus.Pending)
	cleanupWorkLineage(t, db, w.ID, sci.ID)

	signal := domainagg.StatusSignal{
		WorkVersionID: wv.ID,
		TargetStatus:  pmcstatus.Accepted,
		Severity:      pmcmeta.SeverityOK,
		Text:          "Deposit accepted.",
		MessageID:     "msg-1",
		Processor:     "email",
	}
	res, err := agg.ApplyStatusSignal(ctx, signal)
	if err != nil {
		t.Fatalf("apply status signal: %v", err)
	}
	if !res.Applied {
		t.Fatal("first delivery should apply")
	}
	if !res.FromStatus.Is(pmcstatus.Pending) || !res.ToStatus.Is(pmcstatus.Accepted) {
		t.Fatalf("unexpected transition %s -> %s", res.FromStatus, res.ToStatus)
	}
	if res.SubmissionVersionID != sv.ID {
		t.Fatalf("expected resolved submission version %s, got %s", sv.ID, res.SubmissionVersionID)
	}

	var storedSV types.SubmissionVersion
	if err := db.Where("id = ?", sv.ID).First(&storedSV).Error; err != nil {
		t.Fatalf("reload submission version: %v", err)
	}
	if !pmcstatus.Status(storedSV.Status).Is(pmcstatus.Accepted) {
		t.Fatalf("expected ACCEPTED, got %s", storedSV.Status)
	}
	doc, err := pmcmeta.ParseSubmissionDocument(storedSV.Metadata)
	if err != nil {
		t.Fatalf("parse submission metadata: %v", err)
	}
	if len(doc.Messages) != 1 || doc.Messages[0].MessageID != "msg-1" {
		t.Fatalf("expected one recorded message, got %+v", doc.Messages)
	}

	// Redelivery of the same signal is suppressed without new writes.
	res, err = agg.ApplyStatusSignal(ctx, signal)
	if err != nil {
		t.Fatalf("redelivered signal: %v", err)
	}
	if res.Applied {
		t.Fatal("duplicate delivery should be suppressed")
	}
	if err := db.Where("id = ?", sv.ID).First(&storedSV).Error; err != nil {
		t.Fatalf("reload submission version: %v", err)
	}
	doc, err = pmcmeta.ParseSubmissionDocument(storedSV.Metadata)
	if err != nil {
		t.Fatalf("parse submission metadata: %v", err)
	}
	if len(doc.Messages) != 1 {
		t.Fatalf("duplicate delivery appended a message: %+v", doc.Messages)
	}
}

// Casing from the destination varies; the previously recorded transition
// still suppresses the redelivery.
func TestSubmissionAggregate_ApplyStatusSignalCaseInsensitiveDuplicate(t *testing.T) {
	agg, db := newSubmissionAggregateForTest(t)
	ctx := context.Background()

	sci, w, wv, _, _ := testutil.SeedPMCLineage(t, ctx, db, confirmableMetadata, pmcstatus.Pending)
	cleanupWorkLineage(t, db, w.ID, sci.ID)

	if _, err := agg.ApplyStatusSignal(ctx, domainagg.StatusSignal{
		WorkVersionID: wv.ID,
		TargetStatus:  pmcstatus.NeedsChanges,
		Severity:      pmcmeta.SeverityWarning,
	}); err != nil {
		t.Fatalf("first signal: %v", err)
	}
	// The submission moved on, but a stale email for the earlier status
	// arrives late in different casing.
	if _, err := agg.ApplyStatusSignal(ctx, domainagg.StatusSignal{
		WorkVersionID: wv.ID,
		TargetStatus:  pmcstatus.Accepted,
		Severity:      pmcmeta.SeverityOK,
	}); err != nil {
		t.Fatalf("second signal: %v", err)
	}
	res, err := agg.ApplyStatusSignal(ctx, domainagg.StatusSignal{
		WorkVersionID: wv.ID,
		TargetStatus:  pmcstatus.Status("needs_changes"),
		Severity:      pmcmeta.SeverityWarning,
	})
	if err != nil {
		t.Fatalf("stale redelivery: %v", err)
	}
	if res.Applied {
		t.Fatal("case-variant redelivery should be suppressed")
	}
}

func TestSubmissionAggregate_Clone(t *testing.T) {
	agg, db := newSubmissionAggregateForTest(t)
	ctx := context.Background()

	sci, w, wv, sub, sv := testutil.SeedPMCLineage(t, ctx, db, confirmableMetadata, pmcstatus.NeedsChanges)
	cleanupWorkLineage(t, db, w.ID, sci.ID)

	res, err := agg.Clone(ctx, domainagg.CloneInput{SubmissionVersionID: sv.ID, ActorID: sci.ID})
	if err != nil {
		t.Fatalf("clone: %v", err)
	}
	if res.NewWorkVersionID == wv.ID || res.NewWorkVersionID == uuid.Nil {
		t.Fatalf("bad new work version id %s", res.NewWorkVersionID)
	}

	var newWV types.WorkVersion
	if err := db.Where("id = ?", res.NewWorkVersionID).First(&newWV).Error; err != nil {
		t.Fatalf("reload cloned work version: %v", err)
	}
	if !newWV.Draft {
		t.Fatal("cloned work version must be a draft")
	}
	if newWV.StorageKey == wv.StorageKey {
		t.Fatal("cloned work version must get a fresh storage key")
	}
	doc, err := pmcmeta.ParseDocument(newWV.Metadata)
	if err != nil {
		t.Fatalf("parse cloned metadata: %v", err)
	}
	if doc.PMC.Previewed || doc.PMC.Confirmed {
		t.Fatal("preview/confirm flags must reset on clone")
	}
	if doc.PMC.Title != "Synaptic Plasticity in Layer V" {
		t.Fatalf("cloned metadata lost content: title=%q", doc.PMC.Title)
	}

	var newSV types.SubmissionVersion
	if err := db.Where("id = ?", res.NewSubmissionVersionID).First(&newSV).Error; err != nil {
		t.Fatalf("reload cloned submission version: %v", err)
	}
	if !pmcstatus.Status(newSV.Status).Is(pmcstatus.Draft) {
		t.Fatalf("cloned submission version must be DRAFT, got %s", newSV.Status)
	}
	if newSV.SubmissionID != sub.ID {
		t.Fatal("clone must stay on the same submission")
	}
	if newSV.WorkVersionID != newWV.ID {
		t.Fatal("cloned submission version must point at the cloned work version")
	}

	var acts []types.Activity
	if err := db.Where("work_version_id = ?", newWV.ID).Find(&acts).Error; err != nil {
		t.Fatalf("load activities: %v", err)
	}
	if len(acts) != 2 {
		t.Fatalf("expected work_version_added + submission_version_added activities, got %+v", acts)
	}

	// A second clone on the same lineage is blocked by the open draft.
	_, err = agg.Clone(ctx, domainagg.CloneInput{SubmissionVersionID: sv.ID, ActorID: sci.ID})
	requireCode(t, err, domainagg.CodePreconditionFailed)
}

func TestSubmissionAggregate_CloneMissingReference(t *testing.T) {
	agg, _ := newSubmissionAggregateForTest(t)
	ctx := context.Background()

	_, err := agg.Clone(ctx, domainagg.CloneInput{SubmissionVersionID: uuid.Must(uuid.NewV7())})
	requireCode(t, err, domainagg.CodeNotFound)
}

func TestSubmissionAggregate_ConfirmMultipleSubmissionVersions(t *testing.T) {
	agg, db := newSubmissionAggregateForTest(t)
	ctx := context.Background()

	sci, w, wv, sub, sv := testutil.SeedPMCLineage(t, ctx, db, confirmableMetadata, pmcstatus.Draft)
	extra := testutil.SeedSubmissionVersion(t, ctx, db, sub.ID, wv.ID, pmcstatus.Draft)
	cleanupWorkLineage(t, db, w.ID, sci.ID)

	_, err := agg.Confirm(ctx, domainagg.ConfirmInput{WorkVersionID: wv.ID, ActorID: sci.ID})
	requireCode(t, err, domainagg.CodeInvariantViolation)

	// Refusal must leave the lineage untouched.
	var storedWV types.WorkVersion
	if err := db.Where("id = ?", wv.ID).First(&storedWV).Error; err != nil {
		t.Fatalf("reload work version: %v", err)
	}
	if !storedWV.Draft {
		t.Fatal("work version finalized despite refused confirm")
	}
	for _, id := range []uuid.UUID{sv.ID, extra.ID} {
		var storedSV types.SubmissionVersion
		if err := db.Where("id = ?", id).First(&storedSV).Error; err != nil {
			t.Fatalf("reload submission version: %v", err)
		}
		if !pmcstatus.Status(storedSV.Status).Is(pmcstatus.Draft) {
			t.Fatalf("submission version %s left DRAFT state: %s", id, storedSV.Status)
		}
		if storedSV.DatePublished != nil {
			t.Fatalf("submission version %s date_published stamped despite refused confirm", id)
		}
	}
}

// refusingActivityRepo fails every insert, standing in for a mid-transaction
// write error.
type refusingActivityRepo struct {
	repos.ActivityRepo
}

func (refusingActivityRepo) Create(dbctx.Context, []*types.Activity) ([]*types.Activity, error) {
	return nil, errors.New("activity insert refused")
}

func TestSubmissionAggregate_ConfirmRollsBackOnWriteFailure(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	agg := NewSubmissionAggregate(SubmissionAggregateDeps{
		Base:               BaseDeps{DB: db, Log: log},
		WorkVersions:       repos.NewWorkVersionRepo(db, log),
		Submissions:        repos.NewSubmissionRepo(db, log),
		SubmissionVersions: repos.NewSubmissionVersionRepo(db, log),
		Activities:         refusingActivityRepo{},
	})
	ctx := context.Background()

	sci, w, wv, sub, sv := testutil.SeedPMCLineage(t, ctx, db, confirmableMetadata, pmcstatus.Draft)
	cleanupWorkLineage(t, db, w.ID, sci.ID)

	_, err := agg.Confirm(ctx, domainagg.ConfirmInput{WorkVersionID: wv.ID, ActorID: sci.ID})
	if err == nil {
		t.Fatal("expected confirm to fail when the activity write fails")
	}

	// The failed activity write must roll the whole transaction back.
	var storedSV types.SubmissionVersion
	if err := db.Where("id = ?", sv.ID).First(&storedSV).Error; err != nil {
		t.Fatalf("reload submission version: %v", err)
	}
	if !pmcstatus.Status(storedSV.Status).Is(pmcstatus.Draft) {
		t.Fatalf("expected status DRAFT after rollback, got %s", storedSV.Status)
	}
	if storedSV.DatePublished != nil {
		t.Fatal("submission version date_published survived rollback")
	}

	var storedSub types.Submission
	if err := db.Where("id = ?", sub.ID).First(&storedSub).Error; err != nil {
		t.Fatalf("reload submission: %v", err)
	}
	if storedSub.DatePublished != nil {
		t.Fatal("submission date_published survived rollback")
	}

	var storedWV types.WorkVersion
	if err := db.Where("id = ?", wv.ID).First(&storedWV).Error; err != nil {
		t.Fatalf("reload work version: %v", err)
	}
	if !storedWV.Draft {
		t.Fatal("work version finalization survived rollback")
	}
}
