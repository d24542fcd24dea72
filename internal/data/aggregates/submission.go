package aggregates

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/sciencecms/pmc-backend/internal/domain"
	domainagg "github.com/sciencecms/pmc-backend/internal/domain/aggregates"
	"github.com/sciencecms/pmc-backend/internal/domain/pmcmeta"
	"github.com/sciencecms/pmc-backend/internal/domain/pmcstatus"
	"github.com/sciencecms/pmc-backend/internal/data/repos"
	"github.com/sciencecms/pmc-backend/internal/platform/dbctx"
)

type SubmissionAggregateDeps struct {
	Base BaseDeps

	WorkVersions       repos.WorkVersionRepo
	Submissions        repos.SubmissionRepo
	SubmissionVersions repos.SubmissionVersionRepo
	Activities         repos.ActivityRepo
}

type submissionAggregate struct {
	deps SubmissionAggregateDeps
}

func NewSubmissionAggregate(deps SubmissionAggregateDeps) domainagg.SubmissionAggregate {
	deps.Base = deps.Base.withDefaults()
	return &submissionAggregate{deps: deps}
}

func (a *submissionAggregate) Contract() domainagg.Contract {
	return domainagg.SubmissionAggregateContract
}

func (a *submissionAggregate) reposConfigured() bool {
	return a.deps.WorkVersions != nil &&
		a.deps.Submissions != nil &&
		a.deps.SubmissionVersions != nil &&
		a.deps.Activities != nil
}

// Confirm moves the single DRAFT submission version for a work version to
// PENDING and finalizes the work version in the same transaction: status,
// both date_published stamps, and the denormalized work version fields
// commit or roll back together.
func (a *submissionAggregate) Confirm(ctx context.Context, in domainagg.ConfirmInput) (domainagg.ConfirmResult, error) {
	const op = "PMC.Submission.Confirm"
	var out domainagg.ConfirmResult
	if in.WorkVersionID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing work_version_id", nil)
	}
	if !a.reposConfigured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "submission aggregate repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		wv, err := a.deps.WorkVersions.LockByID(dbc, in.WorkVersionID)
		if err != nil {
			return err
		}
		if wv == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op,
				fmt.Sprintf("work version not found: %s", in.WorkVersionID), nil)
		}
		if !wv.Draft {
			return ConflictError("work version is already finalized")
		}

		svs, err := a.deps.SubmissionVersions.LockByWorkVersionAndSite(dbc, wv.ID, types.SitePMC)
		if err != nil {
			return err
		}
		if len(svs) == 0 {
			return domainagg.NewError(domainagg.CodeNotFound, op, "no submission version found", nil)
		}
		if len(svs) > 1 {
			// Normal operation never produces this; log loudly and refuse.
			if a.deps.Base.Log != nil {
				a.deps.Base.Log.Error("multiple submission versions found for work version",
					"work_version_id", wv.ID, "count", len(svs))
			}
			return InvariantError("multiple submission versions found")
		}
		sv := svs[0]
		if !pmcstatus.Status(sv.Status).Is(pmcstatus.Draft) {
			return ConflictError(fmt.Sprintf("submission version is %s, expected %s", sv.Status, pmcstatus.Draft))
		}

		doc, err := pmcmeta.ParseDocument(wv.Metadata)
		if err != nil {
			return domainagg.Wrap(domainagg.CodeInternal, op, err)
		}

		now := time.Now().UTC()
		if err := a.deps.SubmissionVersions.UpdateFields(dbc, sv.ID, map[string]interface{}{
			"status":         pmcstatus.Pending.String(),
			"date_published": now,
			"updated_at":     now,
		}); err != nil {
			return err
		}
		if err := a.deps.Submissions.UpdateFields(dbc, sv.SubmissionID, map[string]interface{}{
			"date_published": now,
			"updated_at":     now,
		}); err != nil {
			return err
		}

		finalized := map[string]interface{}{
			"draft":      false,
			"updated_at": now,
		}
		if doc.PMC.Title != "" {
			finalized["title"] = doc.PMC.Title
		}
		if doc.PMC.Description != "" {
			finalized["description"] = doc.PMC.Description
		}
		if doc.PMC.DOI != "" {
			finalized["doi"] = doc.PMC.DOI
		}
		if len(doc.PMC.Authors) > 0 {
			rawAuthors, err := json.Marshal(doc.PMC.Authors)
			if err != nil {
				return domainagg.Wrap(domainagg.CodeInternal, op, err)
			}
			finalized["authors"] = datatypes.JSON(rawAuthors)
		}
		finalized["date_published"] = publicationDate(doc.PMC.DatePublished, now)
		if err := a.deps.WorkVersions.UpdateFields(dbc, wv.ID, finalized); err != nil {
			return err
		}

		if _, err := a.deps.Activities.Create(dbc, []*types.Activity{{
			ID:                  uuid.Must(uuid.NewV7()),
			Type:                types.ActivityStatusChange,
			Status:              pmcstatus.Pending.String(),
			ScientistID:         nilIfZero(in.ActorID),
			WorkID:              &wv.WorkID,
			WorkVersionID:       &wv.ID,
			SubmissionID:        &sv.SubmissionID,
			SubmissionVersionID: &sv.ID,
		}}); err != nil {
			return err
		}

		out = domainagg.ConfirmResult{
			SubmissionVersionID: sv.ID,
			Status:              pmcstatus.Pending,
			DatePublished:       now,
		}
		return nil
	})
	return out, err
}

// ApplyStatusSignal applies one destination-reported transition with
// duplicate suppression. The skip check and the write share one transaction
// holding a row lock on the submission version, so two deliveries of the
// same status serialize and the second is suppressed.
func (a *submissionAggregate) ApplyStatusSignal(ctx context.Context, in domainagg.StatusSignal) (domainagg.ApplyStatusResult, error) {
	const op = "PMC.Submission.ApplyStatusSignal"
	var out domainagg.ApplyStatusResult
	if in.WorkVersionID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing work_version_id", nil)
	}
	target := pmcstatus.Normalize(in.TargetStatus.String())
	if target == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing target status", nil)
	}
	if !a.reposConfigured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "submission aggregate repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		svs, err := a.deps.SubmissionVersions.LockByWorkVersionAndSite(dbc, in.WorkVersionID, types.SitePMC)
		if err != nil {
			return err
		}
		if len(svs) == 0 {
			return domainagg.NewError(domainagg.CodeNotFound, op, "no submission version found", nil)
		}
		// Destination signals always concern the most recent attempt.
		sv := svs[len(svs)-1]

		from := pmcstatus.Status(sv.Status)
		out = domainagg.ApplyStatusResult{
			Applied:             false,
			SubmissionVersionID: sv.ID,
			FromStatus:          from,
			ToStatus:            target,
		}
		if from.Is(target) {
			return nil
		}
		doc, err := pmcmeta.ParseSubmissionDocument(sv.Metadata)
		if err != nil {
			return domainagg.Wrap(domainagg.CodeInternal, op, err)
		}
		if doc.HasTransitionTo(target.String()) {
			return nil
		}

		ts := in.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		doc.AppendMessage(pmcmeta.StatusMessage{
			MessageID:  strings.TrimSpace(in.MessageID),
			Severity:   in.Severity,
			Text:       in.Text,
			Timestamp:  ts.UTC(),
			FromStatus: from.String(),
			ToStatus:   target.String(),
			Processor:  strings.TrimSpace(in.Processor),
		})
		raw, err := doc.Marshal()
		if err != nil {
			return domainagg.Wrap(domainagg.CodeInternal, op, err)
		}

		ok, err := a.deps.Base.CASGuard.UpdateByStatus(dbc, types.SubmissionVersion{}.TableName(), sv.ID,
			[]string{from.String()}, map[string]any{
				"status":     target.String(),
				"metadata":   datatypes.JSON(raw),
				"updated_at": time.Now().UTC(),
			})
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "submission version status changed during signal processing"); err != nil {
			return err
		}
		if _, err := a.deps.Activities.Create(dbc, []*types.Activity{{
			ID:                  uuid.Must(uuid.NewV7()),
			Type:                types.ActivityStatusChange,
			Status:              target.String(),
			WorkVersionID:       &sv.WorkVersionID,
			SubmissionID:        &sv.SubmissionID,
			SubmissionVersionID: &sv.ID,
		}}); err != nil {
			return err
		}

		out.Applied = true
		return nil
	})
	return out, err
}

// Clone creates a fresh DRAFT work version + submission version pair from a
// reference submission version, for revising a rejected or needs-changes
// deposit without losing history. Attached files are copied by an external
// job; the caller gets the new identifiers immediately.
func (a *submissionAggregate) Clone(ctx context.Context, in domainagg.CloneInput) (domainagg.CloneResult, error) {
	const op = "PMC.Submission.Clone"
	var out domainagg.CloneResult
	if in.SubmissionVersionID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing submission_version_id", nil)
	}
	if !a.reposConfigured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "submission aggregate repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		ref, err := a.deps.SubmissionVersions.GetByID(dbc, in.SubmissionVersionID)
		if err != nil {
			return err
		}
		if ref == nil {
			return domainagg.NewError(domainagg.CodeNotFound, op,
				fmt.Sprintf("submission version not found: %s", in.SubmissionVersionID), nil)
		}

		drafts, err := a.deps.SubmissionVersions.CountBySubmissionAndStatus(dbc, ref.SubmissionID, pmcstatus.Draft.String())
		if err != nil {
			return err
		}
		if drafts > 0 {
			return PreconditionError("a draft submission version already exists; wait for the in-flight revision to finish")
		}

		refWV, err := a.deps.WorkVersions.GetByID(dbc, ref.WorkVersionID)
		if err != nil {
			return err
		}
		if refWV == nil {
			return InvariantError(fmt.Sprintf("work version missing for submission version %s", ref.ID))
		}

		doc, err := pmcmeta.ParseDocument(refWV.Metadata)
		if err != nil {
			return domainagg.Wrap(domainagg.CodeInternal, op, err)
		}
		// A fresh draft starts its preview/confirm flow over.
		doc.PMC.Previewed = false
		doc.PMC.Confirmed = false
		rawMeta, err := doc.Marshal()
		if err != nil {
			return domainagg.Wrap(domainagg.CodeInternal, op, err)
		}

		newWV := &types.WorkVersion{
			ID:            uuid.Must(uuid.NewV7()),
			WorkID:        refWV.WorkID,
			Title:         refWV.Title,
			Description:   refWV.Description,
			Authors:       append(datatypes.JSON(nil), refWV.Authors...),
			DatePublished: refWV.DatePublished,
			DOI:           refWV.DOI,
			CDNRecordID:   refWV.CDNRecordID,
			StorageKey:    uuid.NewString(),
			Draft:         true,
			Metadata:      datatypes.JSON(rawMeta),
		}
		if _, err := a.deps.WorkVersions.Create(dbc, []*types.WorkVersion{newWV}); err != nil {
			return err
		}

		newSV := &types.SubmissionVersion{
			ID:            uuid.Must(uuid.NewV7()),
			SubmissionID:  ref.SubmissionID,
			WorkVersionID: newWV.ID,
			Status:        pmcstatus.Draft.String(),
			Metadata:      datatypes.JSON([]byte("{}")),
			SubmittedByID: nilIfZero(in.ActorID),
		}
		if _, err := a.deps.SubmissionVersions.Create(dbc, []*types.SubmissionVersion{newSV}); err != nil {
			return err
		}

		if _, err := a.deps.Activities.Create(dbc, []*types.Activity{
			{
				ID:            uuid.Must(uuid.NewV7()),
				Type:          types.ActivityWorkVersionAdded,
				ScientistID:   nilIfZero(in.ActorID),
				WorkID:        &newWV.WorkID,
				WorkVersionID: &newWV.ID,
			},
			{
				ID:                  uuid.Must(uuid.NewV7()),
				Type:                types.ActivitySubmissionVersionAdded,
				Status:              pmcstatus.Draft.String(),
				ScientistID:         nilIfZero(in.ActorID),
				WorkID:              &newWV.WorkID,
				WorkVersionID:       &newWV.ID,
				SubmissionID:        &newSV.SubmissionID,
				SubmissionVersionID: &newSV.ID,
			},
		}); err != nil {
			return err
		}

		out = domainagg.CloneResult{
			NewWorkVersionID:       newWV.ID,
			NewSubmissionVersionID: newSV.ID,
		}
		return nil
	})
	return out, err
}

// publicationDate parses the metadata date, falling back to the confirm
// timestamp when absent or malformed.
func publicationDate(raw string, fallback time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return fallback
}

func nilIfZero(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
