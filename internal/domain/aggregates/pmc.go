package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sciencecms/pmc-backend/internal/domain/pmcmeta"
	"github.com/sciencecms/pmc-backend/internal/domain/pmcstatus"
)

var MetadataStoreContract = Contract{
	Name:             "PMC.MetadataStore",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes:            "Owns optimistic-concurrency read-modify-write of work version metadata and title denormalization.",
}

// MetadataStore is the versioned metadata document adapter. Both operations
// run their read-modify-write cycle under optimistic concurrency: the
// transform observes a value that was current at some point during the call,
// and conflicting concurrent writers are re-executed against the latest
// value instead of clobbering each other. Callers that need invariants
// preserved across retries must check them inside the transform.
type MetadataStore interface {
	Aggregate

	// Patch shallow-merges the supplied fields into the pmc sub-document.
	Patch(ctx context.Context, workVersionID uuid.UUID, patch pmcmeta.Patch) (pmcmeta.Document, error)

	// Update passes the current pmc sub-document to the transform and
	// persists its return value.
	Update(ctx context.Context, workVersionID uuid.UUID, transform func(pmcmeta.PMC) (pmcmeta.PMC, error)) (pmcmeta.Document, error)
}

var SubmissionAggregateContract = Contract{
	Name:             "PMC.SubmissionAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes:            "Owns the submission status lifecycle, its audit trail, and version cloning.",
}

type ConfirmInput struct {
	WorkVersionID uuid.UUID
	ActorID       uuid.UUID
}

type ConfirmResult struct {
	SubmissionVersionID uuid.UUID
	Status              pmcstatus.Status
	DatePublished       time.Time
}

// StatusSignal is one inbound asynchronous notification: a parsed
// destination email or a deposit-job callback.
type StatusSignal struct {
	WorkVersionID uuid.UUID
	TargetStatus  pmcstatus.Status
	Severity      string
	Text          string
	Timestamp     time.Time
	MessageID     string
	Processor     string
}

type ApplyStatusResult struct {
	// Applied is false when the transition was suppressed as a duplicate.
	Applied             bool
	SubmissionVersionID uuid.UUID
	FromStatus          pmcstatus.Status
	ToStatus            pmcstatus.Status
}

type CloneInput struct {
	SubmissionVersionID uuid.UUID
	ActorID             uuid.UUID
}

type CloneResult struct {
	NewWorkVersionID       uuid.UUID
	NewSubmissionVersionID uuid.UUID
}

// SubmissionAggregate owns the submission version lifecycle.
//
// Write method failures return *aggregates.Error with codes: CodeValidation,
// CodeNotFound, CodeConflict, CodeInvariantViolation, CodePreconditionFailed,
// CodeRetryable, CodeInternal.
type SubmissionAggregate interface {
	Aggregate

	// Confirm moves the single DRAFT submission version for the work
	// version to PENDING and finalizes the work version, atomically.
	Confirm(ctx context.Context, in ConfirmInput) (ConfirmResult, error)

	// ApplyStatusSignal applies a destination-reported status transition
	// with duplicate suppression; Applied=false means skipped.
	ApplyStatusSignal(ctx context.Context, in StatusSignal) (ApplyStatusResult, error)

	// Clone creates a fresh DRAFT work version + submission version pair
	// copying the reference version's metadata.
	Clone(ctx context.Context, in CloneInput) (CloneResult, error)
}
