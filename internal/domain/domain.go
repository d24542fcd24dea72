package domain

import (
	"github.com/sciencecms/pmc-backend/internal/domain/audit"
	"github.com/sciencecms/pmc-backend/internal/domain/identity"
	"github.com/sciencecms/pmc-backend/internal/domain/submissions"
	"github.com/sciencecms/pmc-backend/internal/domain/works"
)

type Scientist = identity.Scientist

type Work = works.Work
type WorkVersion = works.WorkVersion

type Submission = submissions.Submission
type SubmissionVersion = submissions.SubmissionVersion

type Activity = audit.Activity
type Message = audit.Message

const (
	SitePMC = submissions.SitePMC

	ActivityStatusChange           = audit.ActivityStatusChange
	ActivityNewSubmission          = audit.ActivityNewSubmission
	ActivityWorkVersionAdded       = audit.ActivityWorkVersionAdded
	ActivitySubmissionVersionAdded = audit.ActivitySubmissionVersionAdded

	MessageStatusPending = audit.MessageStatusPending
	MessageStatusSuccess = audit.MessageStatusSuccess
	MessageStatusError   = audit.MessageStatusError
	MessageStatusPartial = audit.MessageStatusPartial
	MessageStatusIgnored = audit.MessageStatusIgnored
	MessageStatusBounced = audit.MessageStatusBounced
)
