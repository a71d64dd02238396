package restapi

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/leoprotocol/leoscore/internal/bypass"
	"github.com/leoprotocol/leoscore/internal/catalog"
	"github.com/leoprotocol/leoscore/internal/engine"
	"github.com/leoprotocol/leoscore/internal/model"
	"github.com/leoprotocol/leoscore/internal/store"
)

type handlers struct {
	engine *engine.Engine
	logger *zap.Logger
}

// AssessmentRequest is the body of POST /api/v1/assessments.
type AssessmentRequest struct {
	SubjectID string         `json:"subject_id"`
	Context   *model.Context `json:"context,omitempty"`
}

// PatternStatusRequest is the body of PATCH /api/v1/patterns/:id.
type PatternStatusRequest struct {
	Status model.Status `json:"status"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(ErrorResponse{Error: msg})
}

// engineError maps engine errors onto HTTP statuses.
func (h *handlers) engineError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, bypass.ErrInvalidIssue), errors.Is(err, catalog.ErrInvalidPattern):
		return fail(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		return fail(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrNoPatterns):
		return fail(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrNoStore):
		return fail(c, fiber.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		return fail(c, fiber.StatusInternalServerError, err.Error())
	}
}

func (h *handlers) postAssessment(c *fiber.Ctx) error {
	var req AssessmentRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if req.SubjectID == "" {
		return fail(c, fiber.StatusBadRequest, "subject_id is required")
	}

	a, err := h.engine.Score(c.UserContext(), req.SubjectID, req.Context)
	if err != nil {
		return h.engineError(c, err)
	}
	return c.JSON(a)
}

func (h *handlers) listAssessments(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "0"))
	if err != nil || limit < 0 {
		return fail(c, fiber.StatusBadRequest, "limit must be a non-negative integer")
	}

	list, err := h.engine.Assessments(c.UserContext(), c.Params("subject"), limit)
	if err != nil {
		return h.engineError(c, err)
	}
	if list == nil {
		list = []model.Assessment{}
	}
	return c.JSON(fiber.Map{"assessments": list})
}

func (h *handlers) postSuggestion(c *fiber.Ctx) error {
	var pm model.PostMortem
	if err := c.BodyParser(&pm); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}

	suggestions, err := h.engine.Suggest(c.UserContext(), pm)
	if err != nil {
		return h.engineError(c, err)
	}
	return c.JSON(fiber.Map{
		"postmortem_id": pm.ID,
		"suggestions":   suggestions,
	})
}

func (h *handlers) postBypass(c *fiber.Ctx) error {
	var issue model.Issue
	if err := c.BodyParser(&issue); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}

	r, err := h.engine.EvaluateBypass(c.UserContext(), issue)
	if err != nil {
		return h.engineError(c, err)
	}
	return c.JSON(r)
}

func (h *handlers) postOutcome(c *fiber.Ctx) error {
	var o store.Outcome
	if err := c.BodyParser(&o); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	switch o.Pathway {
	case model.PathwayMicroFix, model.PathwayQuickFix, model.PathwayFullSD:
	default:
		return fail(c, fiber.StatusBadRequest, "pathway must be MICRO_FIX, QUICK_FIX or FULL_SD")
	}

	id, err := h.engine.RecordOutcome(c.UserContext(), o)
	if err != nil {
		return h.engineError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

func (h *handlers) listPatterns(c *fiber.Ctx) error {
	category := model.Category(c.Query("category"))
	severity := model.Severity(c.Query("severity"))

	patterns := []model.Pattern{}
	for _, p := range h.engine.Patterns() {
		if category != "" && p.Category != category {
			continue
		}
		if severity != "" && p.Severity != severity {
			continue
		}
		patterns = append(patterns, p)
	}
	return c.JSON(fiber.Map{
		"patterns":     patterns,
		"catalog_hash": h.engine.CatalogHash(),
	})
}

func (h *handlers) getPattern(c *fiber.Ctx) error {
	p, ok := h.engine.Pattern(c.Params("id"))
	if !ok {
		return fail(c, fiber.StatusNotFound, "pattern not found")
	}
	return c.JSON(p)
}

func (h *handlers) putPatterns(c *fiber.Ctx) error {
	var f catalog.File
	if err := c.BodyParser(&f); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if len(f.Patterns) == 0 {
		return fail(c, fiber.StatusBadRequest, "patterns is required")
	}

	if err := h.engine.ImportPatterns(c.UserContext(), f.Patterns); err != nil {
		return h.engineError(c, err)
	}
	return c.JSON(fiber.Map{
		"imported":     len(f.Patterns),
		"active":       len(h.engine.Patterns()),
		"catalog_hash": h.engine.CatalogHash(),
	})
}

func (h *handlers) patchPatternStatus(c *fiber.Ctx) error {
	var req PatternStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	switch req.Status {
	case model.StatusDraft, model.StatusActive, model.StatusDeprecated, model.StatusArchived:
	default:
		return fail(c, fiber.StatusBadRequest, "status must be draft, active, deprecated or archived")
	}

	if err := h.engine.SetPatternStatus(c.UserContext(), c.Params("id"), req.Status); err != nil {
		return h.engineError(c, err)
	}
	return c.JSON(fiber.Map{
		"id":           c.Params("id"),
		"status":       req.Status,
		"catalog_hash": h.engine.CatalogHash(),
	})
}
