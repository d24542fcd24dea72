package aggregates

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	domainagg "github.com/sciencecms/pmc-backend/internal/domain/aggregates"
	"github.com/sciencecms/pmc-backend/internal/domain/pmcmeta"
	"github.com/sciencecms/pmc-backend/internal/data/repos"
	"github.com/sciencecms/pmc-backend/internal/platform/dbctx"
)

// metadataMaxAttempts bounds the optimistic-concurrency retry loop. Each
// attempt re-reads the row and re-runs the transform against the latest
// value, so losers of a race converge instead of clobbering each other.
const metadataMaxAttempts = 5

type MetadataStoreDeps struct {
	Base BaseDeps

	WorkVersions repos.WorkVersionRepo
}

type metadataStore struct {
	deps MetadataStoreDeps
}

func NewMetadataStore(deps MetadataStoreDeps) domainagg.MetadataStore {
	deps.Base = deps.Base.withDefaults()
	return &metadataStore{deps: deps}
}

func (s *metadataStore) Contract() domainagg.Contract {
	return domainagg.MetadataStoreContract
}

func (s *metadataStore) Patch(ctx context.Context, workVersionID uuid.UUID, patch pmcmeta.Patch) (pmcmeta.Document, error) {
	return s.update(ctx, "PMC.Metadata.Patch", workVersionID, func(pmc pmcmeta.PMC) (pmcmeta.PMC, error) {
		patch.Apply(&pmc)
		return pmc, nil
	})
}

func (s *metadataStore) Update(ctx context.Context, workVersionID uuid.UUID, transform func(pmcmeta.PMC) (pmcmeta.PMC, error)) (pmcmeta.Document, error) {
	return s.update(ctx, "PMC.Metadata.Update", workVersionID, transform)
}

func (s *metadataStore) update(ctx context.Context, op string, workVersionID uuid.UUID, transform func(pmcmeta.PMC) (pmcmeta.PMC, error)) (pmcmeta.Document, error) {
	var out pmcmeta.Document
	if workVersionID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing work_version_id", nil)
	}
	if transform == nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing transform", nil)
	}
	if s.deps.WorkVersions == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "metadata store repos not configured", nil)
	}

	var lastErr error
	for attempt := 0; attempt < metadataMaxAttempts; attempt++ {
		if attempt > 0 {
			s.deps.Base.Hooks.IncRetry(op)
		}
		err := executeWrite(ctx, s.deps.Base, op, func(dbc dbctx.Context) error {
			doc, err := s.applyOnce(dbc, op, workVersionID, transform)
			if err != nil {
				return err
			}
			out = doc
			return nil
		})
		if err == nil {
			return out, nil
		}
		lastErr = err
		// Only a lost compare-and-set is worth re-running the transform
		// for; everything else (validation, not found) is final.
		if !domainagg.IsCode(err, domainagg.CodeConflict) {
			return out, err
		}
	}
	return out, domainagg.NewError(domainagg.CodeConflict, op,
		fmt.Sprintf("metadata update contended for work version %s after %d attempts", workVersionID, metadataMaxAttempts), lastErr)
}

func (s *metadataStore) applyOnce(dbc dbctx.Context, op string, workVersionID uuid.UUID, transform func(pmcmeta.PMC) (pmcmeta.PMC, error)) (pmcmeta.Document, error) {
	var empty pmcmeta.Document

	wv, err := s.deps.WorkVersions.GetByID(dbc, workVersionID)
	if err != nil {
		return empty, err
	}
	if wv == nil {
		return empty, domainagg.NewError(domainagg.CodeNotFound, op,
			fmt.Sprintf("work version not found: %s", workVersionID), nil)
	}

	doc, err := pmcmeta.ParseDocument(wv.Metadata)
	if err != nil {
		return empty, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}

	newPMC, err := transform(doc.PMC)
	if err != nil {
		return empty, err
	}
	doc.PMC = newPMC

	raw, err := doc.Marshal()
	if err != nil {
		return empty, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}

	updates := map[string]any{
		"metadata":     datatypes.JSON(raw),
		"lock_version": wv.LockVersion + 1,
		"updated_at":   time.Now().UTC(),
	}
	// Title is denormalized onto the work version row for listings; keep it
	// in lockstep within the same compare-and-set write.
	if doc.PMC.Title != "" && doc.PMC.Title != wv.Title {
		updates["title"] = doc.PMC.Title
	}

	ok, err := s.deps.Base.CASGuard.UpdateByLockVersion(dbc, "work_version", wv.ID, wv.LockVersion, updates)
	if err != nil {
		return empty, err
	}
	if err := RequireCASSuccess(ok, "work version metadata changed concurrently"); err != nil {
		return empty, err
	}
	return doc, nil
}
