// Package validation runs the pre-confirm check of a work version's
// metadata document: structural validation of the files and pmc sections,
// followed by the conditional deposit rules. All issues are collected, never
// short-circuited, so the user sees the full list in one pass.
package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sciencecms/pmc-backend/internal/domain/pmcmeta"
)

const (
	CodeManuscriptRequired  = "manuscript_required"
	CodeHHMIGrantIDRequired = "hhmi_grant_id_required"
)

// Issue is one path-tagged validation failure. Path uses the document's JSON
// shape ("files[0].name", "pmc.grants").
type Issue struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return &Validator{v: v}
}

type filesSection struct {
	Files []pmcmeta.FileRef `json:"files" validate:"required,min=1,dive"`
}

type pmcSection struct {
	PMC pmcmeta.PMC `json:"pmc"`
}

// Validate checks the full document. A nil return means the document is
// depositable. Issue order: files structural issues, pmc structural issues,
// then the conditional rules.
func (val *Validator) Validate(doc pmcmeta.Document) []Issue {
	var issues []Issue
	issues = append(issues, val.structural(filesSection{Files: doc.Files})...)
	issues = append(issues, val.structural(pmcSection{PMC: doc.PMC})...)
	issues = append(issues, conditionalRules(doc)...)
	issues = dedupe(issues)
	issues = rewriteGrantIDMessages(issues, doc.PMC.Grants)
	return issues
}

func (val *Validator) structural(section any) []Issue {
	err := val.v.Struct(section)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []Issue{{Path: "", Code: "invalid", Message: err.Error()}}
	}
	issues := make([]Issue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, Issue{
			Path:    trimNamespace(fe.Namespace()),
			Code:    fe.Tag(),
			Message: structuralMessage(fe),
		})
	}
	return issues
}

// trimNamespace drops the wrapper struct segment, leaving the document path.
func trimNamespace(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func structuralMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fieldLabel(fe.Field()))
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", fieldLabel(fe.Field()), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fieldLabel(fe.Field()), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", fieldLabel(fe.Field()), fe.Tag())
	}
}

func fieldLabel(field string) string {
	field = strings.ReplaceAll(field, "_", " ")
	if field == "" {
		return "field"
	}
	return strings.ToUpper(field[:1]) + field[1:]
}

func conditionalRules(doc pmcmeta.Document) []Issue {
	var issues []Issue

	hasManuscript := false
	for _, f := range doc.Files {
		if strings.EqualFold(strings.TrimSpace(f.Slot), pmcmeta.SlotManuscript) {
			hasManuscript = true
			break
		}
	}
	if !hasManuscript {
		issues = append(issues, Issue{
			Path:    "files",
			Code:    CodeManuscriptRequired,
			Message: "At least one file must be uploaded to the manuscript slot",
		})
	}

	if len(doc.PMC.Grants) > 0 {
		if hhmi, ok := pmcmeta.HHMIGrant(doc.PMC.Grants); ok && strings.TrimSpace(hhmi.GrantID) == "" {
			issues = append(issues, Issue{
				Path:    "pmc.grants",
				Code:    CodeHHMIGrantIDRequired,
				Message: "The HHMI grant must have a grant ID",
			})
		}
	}
	return issues
}

// dedupe suppresses structural issues that a conditional rule has already
// covered with a more specific message.
func dedupe(issues []Issue) []Issue {
	hasManuscriptIssue := false
	hasHHMIIssue := false
	for _, is := range issues {
		switch is.Code {
		case CodeManuscriptRequired:
			hasManuscriptIssue = true
		case CodeHHMIGrantIDRequired:
			hasHHMIIssue = true
		}
	}

	out := issues[:0]
	for _, is := range issues {
		if hasManuscriptIssue && is.Path == "files" && (is.Code == "required" || is.Code == "min") {
			continue
		}
		if hasHHMIIssue && is.Path == "pmc.grants[0].grant_id" && is.Code == "required" {
			continue
		}
		out = append(out, is)
	}
	return out
}

var grantIDPathRe = regexp.MustCompile(`^pmc\.grants\[(\d+)\]\.grant_id$`)

// rewriteGrantIDMessages disambiguates "Grant id is required" beyond the
// first entry by naming the funder and 1-based position.
func rewriteGrantIDMessages(issues []Issue, grants []pmcmeta.GrantEntry) []Issue {
	for i, is := range issues {
		if is.Code != "required" {
			continue
		}
		m := grantIDPathRe.FindStringSubmatch(is.Path)
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx == 0 || idx >= len(grants) {
			continue
		}
		funder := strings.TrimSpace(grants[idx].Funder)
		if funder == "" {
			funder = "unknown funder"
		}
		issues[i].Message = fmt.Sprintf("Grant ID is required for the %s grant (position %d)", funder, idx+1)
	}
	return issues
}
