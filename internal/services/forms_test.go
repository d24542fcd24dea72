package services

import (
	"strings"
	"testing"

	domainagg "github.com/sciencecms/pmc-backend/internal/domain/aggregates"
)

func TestNewFormKnowsEveryOperation(t *testing.T) {
	ops := []string{
		OpAddGrant,
		OpRemoveGrant,
		OpUpdateGrantID,
		OpSetInitialHHMIGrant,
		OpClearInitialHHMIGrant,
		OpApplyStatusSignal,
	}
	for _, op := range ops {
		form, ok := NewForm(op)
		if !ok {
			t.Fatalf("no form registered for operation %q", op)
		}
		if form == nil {
			t.Fatalf("nil form for operation %q", op)
		}
	}
	if _, ok := NewForm("noSuchOperation"); ok {
		t.Fatalf("expected unknown operation to be rejected")
	}
}

func TestValidateFormReportsJSONFieldName(t *testing.T) {
	err := validateForm(OpAddGrant, AddGrantForm{Funder: "nih"})
	if err == nil {
		t.Fatalf("expected validation error for missing grant id")
	}
	if got := domainagg.CodeOf(err); got != domainagg.CodeValidation {
		t.Fatalf("expected validation code, got %q", got)
	}
	if !strings.Contains(err.Error(), "grant_id") {
		t.Fatalf("expected error to name the json field, got %q", err.Error())
	}
}

func TestValidateFormAcceptsCompleteInput(t *testing.T) {
	if err := validateForm(OpAddGrant, AddGrantForm{Funder: "nih", GrantID: "R01-123"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := validateForm(OpApplyStatusSignal, StatusSignalForm{TargetStatus: "ACCEPTED", Severity: "ok"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateFormRejectsUnknownSeverity(t *testing.T) {
	err := validateForm(OpApplyStatusSignal, StatusSignalForm{TargetStatus: "ACCEPTED", Severity: "fatal"})
	if err == nil {
		t.Fatalf("expected severity outside ok/warning/error to be rejected")
	}
}
