package services

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	domainagg "github.com/sciencecms/pmc-backend/internal/domain/aggregates"
)

// Operation names keying the form schema table. Handlers bind the request
// body to the schema registered for the operation they serve; the service
// validates that same schema before touching the store, so every operation
// produces the same tagged success/error shape.
const (
	OpAddGrant              = "addGrant"
	OpRemoveGrant           = "removeGrant"
	OpUpdateGrantID         = "updateGrantId"
	OpSetInitialHHMIGrant   = "setInitialHHMIGrant"
	OpClearInitialHHMIGrant = "clearInitialHHMIGrant"
	OpApplyStatusSignal     = "applyStatusSignal"
)

type AddGrantForm struct {
	Funder           string `json:"funder" validate:"required"`
	GrantID          string `json:"grant_id" validate:"required"`
	InvestigatorName string `json:"investigator_name"`
	UniqueID         string `json:"unique_id"`
}

type RemoveGrantForm struct {
	EntryID string `json:"entry_id" validate:"required"`
}

type UpdateGrantIDForm struct {
	Position int    `json:"position" validate:"min=0"`
	GrantID  string `json:"grant_id" validate:"required"`
}

type SetInitialHHMIGrantForm struct {
	GrantID          string `json:"grant_id" validate:"required"`
	InvestigatorName string `json:"investigator_name" validate:"required"`
	UniqueID         string `json:"unique_id" validate:"required"`
}

type ClearInitialHHMIGrantForm struct {
	UniqueID string `json:"unique_id" validate:"required"`
}

type StatusSignalForm struct {
	TargetStatus string `json:"target_status" validate:"required"`
	Severity     string `json:"severity" validate:"omitempty,oneof=ok warning error"`
	Text         string `json:"text"`
	MessageID    string `json:"message_id"`
	Processor    string `json:"processor"`
}

var formSchemas = map[string]func() any{
	OpAddGrant:              func() any { return &AddGrantForm{} },
	OpRemoveGrant:           func() any { return &RemoveGrantForm{} },
	OpUpdateGrantID:         func() any { return &UpdateGrantIDForm{} },
	OpSetInitialHHMIGrant:   func() any { return &SetInitialHHMIGrantForm{} },
	OpClearInitialHHMIGrant: func() any { return &ClearInitialHHMIGrantForm{} },
	OpApplyStatusSignal:     func() any { return &StatusSignalForm{} },
}

// NewForm returns an empty form for the operation, for handlers to bind into.
func NewForm(operation string) (any, bool) {
	mk, ok := formSchemas[operation]
	if !ok {
		return nil, false
	}
	return mk(), true
}

var formValidator = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateForm checks the form against its schema tags, returning a
// CodeValidation error naming the first offending field.
func validateForm(operation string, form any) error {
	err := formValidator.Struct(form)
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		return domainagg.NewError(domainagg.CodeValidation, operation,
			fmt.Sprintf("invalid %s: %s", fe.Field(), fe.Tag()), err)
	}
	return domainagg.NewError(domainagg.CodeValidation, operation, "invalid form input", err)
}
