package fhir

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/fhirpath/pkg/fhirmodels"
	"github.com/ehr/fhirpath/pkg/fhirpath"
	"github.com/ehr/fhirpath/pkg/pagination"
)

// FHIRPathRequest is the body of POST /fhir/$fhirpath.
type FHIRPathRequest struct {
	Expression string          `json:"expression"`
	Resource   json.RawMessage `json:"resource"`
}

// FHIRPathResponse carries one page of an expression's result. Verdict is
// the boolean reading of the whole result, not just the page.
type FHIRPathResponse struct {
	Expression string        `json:"expression"`
	Verdict    bool          `json:"verdict"`
	Result     []interface{} `json:"result"`
	pagination.Page
}

// FHIRPathHandler evaluates FHIRPath expressions posted by clients.
type FHIRPathHandler struct {
	engine     *fhirpath.Engine
	maxResults int
	logger     zerolog.Logger
}

// NewFHIRPathHandler creates a handler that pages results at no more than
// maxResults items.
func NewFHIRPathHandler(engine *fhirpath.Engine, maxResults int, logger zerolog.Logger) *FHIRPathHandler {
	return &FHIRPathHandler{engine: engine, maxResults: maxResults, logger: logger}
}

// RegisterRoutes adds the $fhirpath route to the given FHIR route group.
func (h *FHIRPathHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/$fhirpath", h.Handle)
}

// Handle evaluates the posted expression against the posted resource.
// _typed=true decodes the resource into its typed model first; _count and
// _offset page the result items.
func (h *FHIRPathHandler) Handle(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		if he, ok := err.(*echo.HTTPError); ok {
			return he
		}
		return c.JSON(http.StatusBadRequest, NewOperationOutcome(IssueSeverityError, IssueTypeStructure, "failed to read request body"))
	}

	var req FHIRPathRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, NewOperationOutcome(IssueSeverityError, IssueTypeStructure, "invalid JSON: "+err.Error()))
	}
	if strings.TrimSpace(req.Expression) == "" {
		return c.JSON(http.StatusBadRequest, RequiredFieldOutcome("expression"))
	}
	if len(req.Resource) == 0 || string(req.Resource) == "null" {
		return c.JSON(http.StatusBadRequest, RequiredFieldOutcome("resource"))
	}
	c.Set("fhirpath_expression", req.Expression)

	resource, err := h.decodeResource(c, req.Resource)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewOperationOutcome(IssueSeverityError, IssueTypeStructure, err.Error()))
	}

	result, err := h.engine.Evaluate(resource, req.Expression)
	if err != nil {
		status, outcome := ExpressionOutcome(err, req.Expression)
		h.logger.Debug().Err(err).Str("expression", req.Expression).Int("status", status).Msg("fhirpath evaluation failed")
		return c.JSON(status, outcome)
	}

	items := result.Value(true)
	params := pagination.FromContext(c, h.maxResults)
	return c.JSON(http.StatusOK, FHIRPathResponse{
		Expression: req.Expression,
		Verdict:    result.Verdict(),
		Result:     params.Slice(items),
		Page:       pagination.NewPage(params, len(items), c.Request().URL.Path),
	})
}

func (h *FHIRPathHandler) decodeResource(c echo.Context, raw json.RawMessage) (interface{}, error) {
	if typed, _ := strconv.ParseBool(c.QueryParam("_typed")); typed {
		return fhirmodels.DecodeTyped(raw, fhirmodels.FormatJSON)
	}
	return fhirmodels.Decode(raw, fhirmodels.FormatJSON)
}
