package fhir

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/fhirpath/pkg/fhirpath"
	"github.com/ehr/fhirpath/pkg/fhirpath/ast"
	"github.com/ehr/fhirpath/pkg/fhirpath/parser"
)

// RequiredFieldOutcome creates an OperationOutcome for a missing required field.
func RequiredFieldOutcome(field string) *OperationOutcome {
	return NewOutcomeBuilder().
		AddIssueWithExpression(IssueSeverityError, IssueTypeRequired, fmt.Sprintf("%s is required", field), field).
		Build()
}

// NotSupportedOutcome creates an OperationOutcome for unsupported operations.
func NotSupportedOutcome(diagnostics string) *OperationOutcome {
	return NewOperationOutcome(IssueSeverityError, IssueTypeNotSupported, diagnostics)
}

// InternalErrorOutcome creates an OperationOutcome for internal server errors.
func InternalErrorOutcome(diagnostics string) *OperationOutcome {
	return NewOperationOutcome(IssueSeverityFatal, IssueTypeException, diagnostics)
}

// ExpressionOutcome maps an error from compiling or evaluating expression to
// an HTTP status and an OperationOutcome naming the expression.
func ExpressionOutcome(err error, expression string) (int, *OperationOutcome) {
	status, severity, code := http.StatusInternalServerError, IssueSeverityFatal, IssueTypeException
	switch {
	case errors.Is(err, parser.ErrSyntax), errors.Is(err, ast.ErrEmptyExpression), errors.Is(err, fhirpath.ErrCompile):
		status, severity, code = http.StatusBadRequest, IssueSeverityError, IssueTypeInvalid
	case errors.Is(err, fhirpath.ErrCardinality):
		status, severity, code = http.StatusUnprocessableEntity, IssueSeverityError, IssueTypeProcessing
	case errors.Is(err, fhirpath.ErrUnsupported):
		status, severity, code = http.StatusNotImplemented, IssueSeverityError, IssueTypeNotSupported
	}
	outcome := NewOutcomeBuilder().
		AddIssueWithExpression(severity, code, err.Error(), expression).
		Build()
	return status, outcome
}

// ErrorHandler renders errors that reach echo as OperationOutcome bodies.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		outcome := InternalErrorOutcome("internal server error")

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			msg := fmt.Sprint(he.Message)
			switch status {
			case http.StatusNotFound:
				outcome = NewOperationOutcome(IssueSeverityError, IssueTypeNotFound, msg)
			case http.StatusMethodNotAllowed:
				outcome = NotSupportedOutcome(msg)
			case http.StatusRequestEntityTooLarge:
				outcome = NewOperationOutcome(IssueSeverityError, IssueTypeTooCostly, msg)
			default:
				if status < http.StatusInternalServerError {
					outcome = NewOperationOutcome(IssueSeverityError, IssueTypeProcessing, msg)
				}
			}
		} else {
			logger.Error().Err(err).Str("path", c.Request().URL.Path).Msg("unhandled error")
		}

		if writeErr := c.JSON(status, outcome); writeErr != nil {
			logger.Error().Err(writeErr).Msg("failed to write error response")
		}
	}
}
