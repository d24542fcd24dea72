package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/sciencecms/pmc-backend/internal/domain"
	"github.com/sciencecms/pmc-backend/internal/domain/pmcstatus"
)

func SeedScientist(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.Scientist {
	tb.Helper()
	s := &types.Scientist{
		ID:        uuid.Must(uuid.NewV7()),
		Email:     email,
		FirstName: "A",
		LastName:  "B",
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed scientist: %v", err)
	}
	return s
}

func SeedWork(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) *types.Work {
	tb.Helper()
	w := &types.Work{
		ID:      uuid.Must(uuid.NewV7()),
		OwnerID: ownerID,
	}
	if err := tx.WithContext(ctx).Create(w).Error; err != nil {
		tb.Fatalf("seed work: %v", err)
	}
	return w
}

func SeedWorkVersion(tb testing.TB, ctx context.Context, tx *gorm.DB, workID uuid.UUID, metadata string) *types.WorkVersion {
	tb.Helper()
	if metadata == "" {
		metadata = "{}"
	}
	wv := &types.WorkVersion{
		ID:         uuid.Must(uuid.NewV7()),
		WorkID:     workID,
		Title:      "Untitled",
		StorageKey: uuid.NewString(),
		Draft:      true,
		Authors:    datatypes.JSON([]byte("[]")),
		Metadata:   datatypes.JSON([]byte(metadata)),
	}
	if err := tx.WithContext(ctx).Create(wv).Error; err != nil {
		tb.Fatalf("seed work version: %v", err)
	}
	return wv
}

func SeedSubmission(tb testing.TB, ctx context.Context, tx *gorm.DB, workID uuid.UUID) *types.Submission {
	tb.Helper()
	sub := &types.Submission{
		ID:     uuid.Must(uuid.NewV7()),
		WorkID: workID,
		Site:   types.SitePMC,
	}
	if err := tx.WithContext(ctx).Create(sub).Error; err != nil {
		tb.Fatalf("seed submission: %v", err)
	}
	return sub
}

func SeedSubmissionVersion(tb testing.TB, ctx context.Context, tx *gorm.DB, submissionID, workVersionID uuid.UUID, status pmcstatus.Status) *types.SubmissionVersion {
	tb.Helper()
	sv := &types.SubmissionVersion{
		ID:            uuid.Must(uuid.NewV7()),
		SubmissionID:  submissionID,
		WorkVersionID: workVersionID,
		Status:        status.String(),
		Metadata:      datatypes.JSON([]byte("{}")),
	}
	if err := tx.WithContext(ctx).Create(sv).Error; err != nil {
		tb.Fatalf("seed submission version: %v", err)
	}
	return sv
}

// SeedPMCLineage creates scientist -> work -> work version -> submission ->
// submission version in one call, the shape nearly every aggregate test
// starts from.
func SeedPMCLineage(tb testing.TB, ctx context.Context, tx *gorm.DB, metadata string, status pmcstatus.Status) (*types.Scientist, *types.Work, *types.WorkVersion, *types.Submission, *types.SubmissionVersion) {
	tb.Helper()
	sci := SeedScientist(tb, ctx, tx, uuid.NewString()+"@example.org")
	w := SeedWork(tb, ctx, tx, sci.ID)
	wv := SeedWorkVersion(tb, ctx, tx, w.ID, metadata)
	sub := SeedSubmission(tb, ctx, tx, w.ID)
	sv := SeedSubmissionVersion(tb, ctx, tx, sub.ID, wv.ID, status)
	return sci, w, wv, sub, sv
}

func PtrTime(t time.Time) *time.Time { return &t }

func PtrUUID(id uuid.UUID) *uuid.UUID { return &id }
