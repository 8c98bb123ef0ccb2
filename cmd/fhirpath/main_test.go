package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/fhirpath/internal/config"
	"github.com/ehr/fhirpath/pkg/fhirpath"
)

const patientJSON = `{
  "resourceType": "Patient",
  "id": "pt-1",
  "name": [
    {"use": "official", "given": ["Al"]},
    {"use": "usual", "given": ["Bo"]}
  ]
}`

const patientYAML = `
resourceType: Patient
id: pt-2
name:
  - use: official
    given: [Cy]
`

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ENV", "test")
	t.Setenv("LOG_LEVEL", "error")

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEval_Stdin(t *testing.T) {
	out, err := run(t, patientJSON, "eval", "-e", "name.where(use = 'official').given")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	var got []interface{}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %q", out)
	}
	if diff := cmp.Diff([]interface{}{"Al"}, got); diff != "" {
		t.Errorf("eval output mismatch (-want +got):\n%s", diff)
	}
}

func TestEval_YAMLFileTyped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patient.yaml")
	if err := os.WriteFile(path, []byte(patientYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "", "eval", "-e", "Patient.name.given", "-f", path, "--typed")
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	var got []interface{}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %q", out)
	}
	if diff := cmp.Diff([]interface{}{"Cy"}, got); diff != "" {
		t.Errorf("eval output mismatch (-want +got):\n%s", diff)
	}
}

func TestEval_RequiresExpression(t *testing.T) {
	if _, err := run(t, patientJSON, "eval"); err == nil {
		t.Error("expected an error without --expression")
	}
}

func TestTest_PrintsVerdict(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"name.exists()", "true\n"},
		{"name.where(use = 'temp').exists()", "false\n"},
		{"id = 'pt-1'", "true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			out, err := run(t, patientJSON, "test", "-e", tt.expr)
			if err != nil {
				t.Fatalf("test: %v", err)
			}
			if out != tt.want {
				t.Errorf("got %q, want %q", out, tt.want)
			}
		})
	}
}

func TestCheck_AggregatesFailures(t *testing.T) {
	out, err := run(t, "", "check", "name.given", "name.(", "name.aggregate()")
	if err == nil {
		t.Fatal("expected check to fail")
	}
	if !strings.Contains(err.Error(), "2 of 3 expressions failed") {
		t.Errorf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "ok   name.given") || strings.Count(out, "FAIL ") != 2 {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestCheck_DumpsAST(t *testing.T) {
	out, err := run(t, "", "check", "--ast", "name.given")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(out, "InvocationExpression") {
		t.Errorf("expected the AST in the output:\n%s", out)
	}
}

func testServer(t *testing.T) *echo.Echo {
	t.Helper()
	cfg := &config.Config{
		Env:                 "test",
		LogLevel:            "error",
		ExpressionCacheSize: 8,
		CORSOrigins:         []string{"http://localhost:3000"},
		BodyLimit:           "1K",
		MaxResults:          10,
		RequestTimeout:      5 * time.Second,
	}
	return newServer(cfg, zerolog.Nop(), fhirpath.NewEngine())
}

func TestServer_Health(t *testing.T) {
	e := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id on the response")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers on the response")
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestServer_FHIRPath(t *testing.T) {
	e := testServer(t)
	payload := `{"expression": "name.given", "resource": ` + patientJSON + `}`
	req := httptest.NewRequest(http.MethodPost, "/fhir/$fhirpath", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Result  []interface{} `json:"result"`
		Verdict bool          `json:"verdict"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]interface{}{"Al", "Bo"}, body.Result); diff != "" || !body.Verdict {
		t.Errorf("unexpected result (-want +got):\n%s", diff)
	}
}

func TestServer_BodyLimit(t *testing.T) {
	e := testServer(t)
	payload := `{"expression": "id", "resource": {"id": "` + strings.Repeat("x", 2048) + `"}}`
	req := httptest.NewRequest(http.MethodPost, "/fhir/$fhirpath", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}
