package fhir

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/fhirpath/pkg/fhirpath"
	"github.com/ehr/fhirpath/pkg/fhirpath/ast"
	"github.com/ehr/fhirpath/pkg/fhirpath/parser"
)

func TestNewOperationOutcome(t *testing.T) {
	oo := NewOperationOutcome(IssueSeverityError, IssueTypeInvalid, "bad input")
	if oo.ResourceType != "OperationOutcome" || len(oo.Issue) != 1 {
		t.Fatalf("unexpected outcome: %+v", oo)
	}
	if !oo.HasErrors() {
		t.Error("expected HasErrors() to be true")
	}
	if NewOperationOutcome(IssueSeverityWarning, IssueTypeProcessing, "careful").HasErrors() {
		t.Error("a warning is not an error")
	}
}

func TestOutcomeBuilder(t *testing.T) {
	oo := NewOutcomeBuilder().
		AddIssue(IssueSeverityWarning, IssueTypeProcessing, "first").
		AddIssueWithExpression(IssueSeverityError, IssueTypeInvalid, "second", "name.where(").
		Build()
	if len(oo.Issue) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(oo.Issue))
	}
	if got := oo.Issue[1].Expression; len(got) != 1 || got[0] != "name.where(" {
		t.Errorf("unexpected expression: %v", got)
	}
}

func TestExpressionOutcome(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("wrapped: %w", parser.ErrSyntax), http.StatusBadRequest, IssueTypeInvalid},
		{ast.ErrEmptyExpression, http.StatusBadRequest, IssueTypeInvalid},
		{fmt.Errorf("compile: %w", fhirpath.ErrCompile), http.StatusBadRequest, IssueTypeInvalid},
		{fhirpath.ErrCardinality, http.StatusUnprocessableEntity, IssueTypeProcessing},
		{fhirpath.ErrUnsupported, http.StatusNotImplemented, IssueTypeNotSupported},
		{errors.New("boom"), http.StatusInternalServerError, IssueTypeException},
	}
	for _, tt := range tests {
		status, oo := ExpressionOutcome(tt.err, "expr")
		if status != tt.status || oo.Issue[0].Code != tt.code {
			t.Errorf("%v: got %d/%s, want %d/%s", tt.err, status, oo.Issue[0].Code, tt.status, tt.code)
		}
		if oo.Issue[0].Expression[0] != "expr" {
			t.Errorf("%v: expression not recorded", tt.err)
		}
	}
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{echo.ErrNotFound, http.StatusNotFound, IssueTypeNotFound},
		{echo.ErrMethodNotAllowed, http.StatusMethodNotAllowed, IssueTypeNotSupported},
		{echo.NewHTTPError(http.StatusRequestEntityTooLarge, "too big"), http.StatusRequestEntityTooLarge, IssueTypeTooCostly},
		{echo.NewHTTPError(http.StatusBadRequest, "nope"), http.StatusBadRequest, IssueTypeProcessing},
		{errors.New("boom"), http.StatusInternalServerError, IssueTypeException},
	}
	handler := ErrorHandler(zerolog.Nop())
	for _, tt := range tests {
		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/x", nil), rec)

		handler(tt.err, c)

		if rec.Code != tt.status {
			t.Errorf("%v: status %d, want %d", tt.err, rec.Code, tt.status)
			continue
		}
		if got := issueCode(t, decodeResponse(t, rec)); got != tt.code {
			t.Errorf("%v: code %q, want %q", tt.err, got, tt.code)
		}
	}
}
