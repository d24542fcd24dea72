package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/sciencecms/pmc-backend/internal/data/repos"
	types "github.com/sciencecms/pmc-backend/internal/domain"
	domainagg "github.com/sciencecms/pmc-backend/internal/domain/aggregates"
	"github.com/sciencecms/pmc-backend/internal/domain/pmcmeta"
	"github.com/sciencecms/pmc-backend/internal/domain/pmcstatus"
	"github.com/sciencecms/pmc-backend/internal/observability"
	"github.com/sciencecms/pmc-backend/internal/platform/ctxutil"
	"github.com/sciencecms/pmc-backend/internal/platform/dbctx"
	"github.com/sciencecms/pmc-backend/internal/platform/logger"
	"github.com/sciencecms/pmc-backend/internal/validation"
)

// ValidationResult is the tagged outcome of the metadata check.
type ValidationResult struct {
	OK     bool               `json:"ok"`
	Issues []validation.Issue `json:"issues,omitempty"`
}

// PMCService is the operation surface the route layer calls. Grant
// operations run inside the metadata store's optimistic read-modify-write
// loop, so their invariant checks hold even under concurrent writers.
type PMCService interface {
	AddGrant(ctx context.Context, workVersionID uuid.UUID, form AddGrantForm) (pmcmeta.Document, error)
	RemoveGrant(ctx context.Context, workVersionID uuid.UUID, form RemoveGrantForm) (pmcmeta.Document, error)
	UpdateGrantID(ctx context.Context, workVersionID uuid.UUID, form UpdateGrantIDForm) (pmcmeta.Document, error)
	SetInitialHHMIGrant(ctx context.Context, workVersionID uuid.UUID, form SetInitialHHMIGrantForm) (pmcmeta.Document, error)
	ClearInitialHHMIGrant(ctx context.Context, workVersionID uuid.UUID, form ClearInitialHHMIGrantForm) (pmcmeta.Document, error)

	ValidateMetadata(ctx context.Context, workVersionID uuid.UUID) (ValidationResult, error)
	Confirm(ctx context.Context, workVersionID uuid.UUID) (domainagg.ConfirmResult, error)
	ApplyStatusSignal(ctx context.Context, workVersionID uuid.UUID, form StatusSignalForm) (bool, error)
	Clone(ctx context.Context, submissionVersionID uuid.UUID) (domainagg.CloneResult, error)
}

type pmcService struct {
	log          *logger.Logger
	metadata     domainagg.MetadataStore
	submissions  domainagg.SubmissionAggregate
	workVersions repos.WorkVersionRepo
	messages     repos.MessageRepo
	validator    *validation.Validator
	notifier     PMCNotifier
	metrics      *observability.Metrics
}

func NewPMCService(
	baseLog *logger.Logger,
	metadata domainagg.MetadataStore,
	submissions domainagg.SubmissionAggregate,
	workVersions repos.WorkVersionRepo,
	messages repos.MessageRepo,
	notifier PMCNotifier,
	metrics *observability.Metrics,
) PMCService {
	return &pmcService{
		log:          baseLog.With("service", "PMCService"),
		metadata:     metadata,
		submissions:  submissions,
		workVersions: workVersions,
		messages:     messages,
		validator:    validation.New(),
		notifier:     notifier,
		metrics:      metrics,
	}
}

func actingScientist(ctx context.Context, op string) (uuid.UUID, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.ScientistID == uuid.Nil {
		return uuid.Nil, domainagg.NewError(domainagg.CodeValidation, op, "not authenticated", nil)
	}
	return rd.ScientistID, nil
}

// grantUpdate runs one grant mutation inside the store's retry loop. Legacy
// flat funder lists are migrated into grant entries before the mutation, so
// every operation sees the current shape.
func (s *pmcService) grantUpdate(ctx context.Context, op string, workVersionID uuid.UUID, mutate func(pmc *pmcmeta.PMC) error) (pmcmeta.Document, error) {
	if _, err := actingScientist(ctx, op); err != nil {
		return pmcmeta.Document{}, err
	}
	doc, err := s.metadata.Update(ctx, workVersionID, func(pmc pmcmeta.PMC) (pmcmeta.PMC, error) {
		pmc = pmcmeta.MigrateLegacyFunders(pmc)
		if err := mutate(&pmc); err != nil {
			return pmc, domainagg.NewError(domainagg.CodeValidation, op, err.Error(), err)
		}
		return pmc, nil
	})
	if err != nil {
		s.log.Warn("grant update failed", "op", op, "error", err, "work_version_id", workVersionID)
		return doc, err
	}
	return doc, nil
}

func (s *pmcService) AddGrant(ctx context.Context, workVersionID uuid.UUID, form AddGrantForm) (pmcmeta.Document, error) {
	if err := validateForm(OpAddGrant, form); err != nil {
		return pmcmeta.Document{}, err
	}
	return s.grantUpdate(ctx, OpAddGrant, workVersionID, func(pmc *pmcmeta.PMC) error {
		return pmcmeta.AddGrant(pmc, pmcmeta.GrantEntry{
			Funder:           form.Funder,
			GrantID:          form.GrantID,
			InvestigatorName: form.InvestigatorName,
			UniqueID:         form.UniqueID,
		})
	})
}

func (s *pmcService) RemoveGrant(ctx context.Context, workVersionID uuid.UUID, form RemoveGrantForm) (pmcmeta.Document, error) {
	if err := validateForm(OpRemoveGrant, form); err != nil {
		return pmcmeta.Document{}, err
	}
	return s.grantUpdate(ctx, OpRemoveGrant, workVersionID, func(pmc *pmcmeta.PMC) error {
		return pmcmeta.RemoveGrant(pmc, form.EntryID)
	})
}

func (s *pmcService) UpdateGrantID(ctx context.Context, workVersionID uuid.UUID, form UpdateGrantIDForm) (pmcmeta.Document, error) {
	if err := validateForm(OpUpdateGrantID, form); err != nil {
		return pmcmeta.Document{}, err
	}
	return s.grantUpdate(ctx, OpUpdateGrantID, workVersionID, func(pmc *pmcmeta.PMC) error {
		return pmcmeta.UpdateGrantID(pmc, form.Position, form.GrantID)
	})
}

func (s *pmcService) SetInitialHHMIGrant(ctx context.Context, workVersionID uuid.UUID, form SetInitialHHMIGrantForm) (pmcmeta.Document, error) {
	if err := validateForm(OpSetInitialHHMIGrant, form); err != nil {
		return pmcmeta.Document{}, err
	}
	return s.grantUpdate(ctx, OpSetInitialHHMIGrant, workVersionID, func(pmc *pmcmeta.PMC) error {
		pmcmeta.SetInitialGrant(pmc, form.GrantID, form.InvestigatorName, form.UniqueID)
		return nil
	})
}

func (s *pmcService) ClearInitialHHMIGrant(ctx context.Context, workVersionID uuid.UUID, form ClearInitialHHMIGrantForm) (pmcmeta.Document, error) {
	if err := validateForm(OpClearInitialHHMIGrant, form); err != nil {
		return pmcmeta.Document{}, err
	}
	return s.grantUpdate(ctx, OpClearInitialHHMIGrant, workVersionID, func(pmc *pmcmeta.PMC) error {
		pmcmeta.ClearInitialGrant(pmc, form.UniqueID)
		return nil
	})
}

func (s *pmcService) ValidateMetadata(ctx context.Context, workVersionID uuid.UUID) (ValidationResult, error) {
	const op = "validatePMCMetadata"
	if workVersionID == uuid.Nil {
		return ValidationResult{}, domainagg.NewError(domainagg.CodeValidation, op, "missing work_version_id", nil)
	}
	wv, err := s.workVersions.GetByID(dbctx.Context{Ctx: ctx}, workVersionID)
	if err != nil {
		return ValidationResult{}, err
	}
	if wv == nil {
		return ValidationResult{}, domainagg.NewError(domainagg.CodeNotFound, op, "work version not found", nil)
	}
	doc, err := pmcmeta.ParseDocument(wv.Metadata)
	if err != nil {
		return ValidationResult{}, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	doc.PMC = pmcmeta.MigrateLegacyFunders(doc.PMC)
	issues := s.validator.Validate(doc)
	for _, is := range issues {
		s.metrics.IncValidationIssue(is.Code)
	}
	return ValidationResult{OK: len(issues) == 0, Issues: issues}, nil
}

// Confirm validates the metadata, then drives the DRAFT -> PENDING
// transition. The aggregate owns the atomic write; the service owns the
// validation gate and the outbound notification.
func (s *pmcService) Confirm(ctx context.Context, workVersionID uuid.UUID) (domainagg.ConfirmResult, error) {
	const op = "confirmPMC"
	actor, err := actingScientist(ctx, op)
	if err != nil {
		return domainagg.ConfirmResult{}, err
	}

	check, err := s.ValidateMetadata(ctx, workVersionID)
	if err != nil {
		return domainagg.ConfirmResult{}, err
	}
	if !check.OK {
		return domainagg.ConfirmResult{}, domainagg.NewError(domainagg.CodeValidation, op, "metadata validation failed", nil)
	}

	res, err := s.submissions.Confirm(ctx, domainagg.ConfirmInput{WorkVersionID: workVersionID, ActorID: actor})
	if err != nil {
		s.log.Warn("confirm failed", "error", err, "work_version_id", workVersionID)
		return res, err
	}
	s.notifier.SubmissionConfirmed(actor, workVersionID, res.SubmissionVersionID)
	return res, nil
}

// ApplyStatusSignal records one destination-reported transition. Returns
// true when the transition was applied, false when suppressed as a
// duplicate.
func (s *pmcService) ApplyStatusSignal(ctx context.Context, workVersionID uuid.UUID, form StatusSignalForm) (bool, error) {
	if err := validateForm(OpApplyStatusSignal, form); err != nil {
		return false, err
	}
	res, err := s.submissions.ApplyStatusSignal(ctx, domainagg.StatusSignal{
		WorkVersionID: workVersionID,
		TargetStatus:  pmcstatus.Normalize(form.TargetStatus),
		Severity:      form.Severity,
		Text:          form.Text,
		MessageID:     form.MessageID,
		Processor:     form.Processor,
	})
	if err != nil {
		s.log.Warn("status signal failed", "error", err, "work_version_id", workVersionID, "target", form.TargetStatus)
		s.recordSignal(ctx, workVersionID, form, types.MessageStatusError, err.Error())
		return false, err
	}
	s.metrics.IncStatusSignal(res.ToStatus.String(), res.Applied)
	if res.Applied {
		s.recordSignal(ctx, workVersionID, form, types.MessageStatusSuccess, res.ToStatus.String())
		s.notifier.StatusChanged(uuid.Nil, workVersionID, res.SubmissionVersionID, res.FromStatus.String(), res.ToStatus.String(), form.Text)
	} else {
		s.recordSignal(ctx, workVersionID, form, types.MessageStatusIgnored, "duplicate transition")
	}
	return res.Applied, nil
}

// recordSignal writes the inbound-event provenance row. Best effort: a
// failed write is logged but never fails the signal itself.
func (s *pmcService) recordSignal(ctx context.Context, workVersionID uuid.UUID, form StatusSignalForm, status, detail string) {
	if s.messages == nil {
		return
	}
	result, err := json.Marshal(map[string]any{
		"work_version_id": workVersionID,
		"target_status":   form.TargetStatus,
		"message_id":      form.MessageID,
		"detail":          detail,
	})
	if err != nil {
		return
	}
	now := time.Now().UTC()
	source := form.Processor
	if source == "" {
		source = "webhook"
	}
	_, err = s.messages.Create(dbctx.Context{Ctx: ctx}, []*types.Message{{
		ID:         uuid.Must(uuid.NewV7()),
		Source:     source,
		Subject:    form.Text,
		Status:     status,
		Result:     datatypes.JSON(result),
		ReceivedAt: now,
	}})
	if err != nil {
		s.log.Warn("signal provenance write failed", "error", err, "work_version_id", workVersionID)
	}
}

func (s *pmcService) Clone(ctx context.Context, submissionVersionID uuid.UUID) (domainagg.CloneResult, error) {
	const op = "clonePMCVersion"
	actor, err := actingScientist(ctx, op)
	if err != nil {
		return domainagg.CloneResult{}, err
	}
	res, err := s.submissions.Clone(ctx, domainagg.CloneInput{SubmissionVersionID: submissionVersionID, ActorID: actor})
	if err != nil {
		s.log.Warn("clone failed", "error", err, "submission_version_id", submissionVersionID)
		return res, err
	}
	s.notifier.VersionCloned(actor, res.NewWorkVersionID, res.NewSubmissionVersionID)
	return res, nil
}
