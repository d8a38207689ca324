package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/investinkids/feedback-service/internal/api/dto"
	"github.com/investinkids/feedback-service/internal/domain"
	"github.com/investinkids/feedback-service/internal/service"
	apperrors "github.com/investinkids/feedback-service/pkg/util"
)

// ReportsHandler exposes the report lifecycle intents over HTTP. The chat
// adapter is the caller; actor identity arrives in the payloads.
type ReportsHandler struct {
	service *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reportService *service.ReportService) *ReportsHandler {
	return &ReportsHandler{service: reportService}
}

// Submit POST /reports.
func (h *ReportsHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitReportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	report, err := h.service.Submit(c.UserContext(), service.SubmitInput{
		ReporterID:    req.ReporterID,
		ReporterName:  req.ReporterName,
		Category:      req.Category,
		Text:          req.Text,
		AttachmentRef: req.AttachmentRef,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromReport(report)})
}

// Claim POST /reports/:id/claim.
func (h *ReportsHandler) Claim(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.ClaimReportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	report, err := h.service.Claim(c.UserContext(), id, req.ActorID, req.ActorName)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromReport(report)})
}

// Complete POST /reports/:id/complete.
func (h *ReportsHandler) Complete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.CompleteReportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	report, err := h.service.Complete(c.UserContext(), id, req.ActorID, req.ResolutionText)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromReport(report)})
}

// Get GET /reports/:id.
func (h *ReportsHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	report, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromReport(report)})
}

// List GET /reports. Exactly one filter applies; with none given the
// pending queue is returned, which is what administrators ask for most.
func (h *ReportsHandler) List(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var (
		reports []domain.Report
		err     error
	)
	switch {
	case c.Query("q") != "":
		reports, err = h.service.Search(ctx, c.Query("q"))
	case c.Query("reporter_id") != "":
		reporterID, parseErr := strconv.ParseInt(c.Query("reporter_id"), 10, 64)
		if parseErr != nil {
			return apperrors.NewValidationError("invalid reporter_id", nil)
		}
		reports, err = h.service.ListByReporter(ctx, reporterID)
	case c.Query("assignee_id") != "":
		assigneeID, parseErr := strconv.ParseInt(c.Query("assignee_id"), 10, 64)
		if parseErr != nil {
			return apperrors.NewValidationError("invalid assignee_id", nil)
		}
		reports, err = h.service.ListByAssignee(ctx, assigneeID)
	default:
		status := domain.ReportStatusPending
		if raw := c.Query("status"); raw != "" {
			status, err = domain.ParseStatus(raw)
			if err != nil {
				return apperrors.NewValidationError("invalid status", map[string]any{"status": raw})
			}
		}
		reports, err = h.service.ListByStatus(ctx, status)
	}
	if err != nil {
		return err
	}

	items := make([]dto.ReportResponse, 0, len(reports))
	for i := range reports {
		items = append(items, dto.FromReport(&reports[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Stats GET /reports/stats.
func (h *ReportsHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// Purge DELETE /reports/:id. Admin-only; not a lifecycle transition.
func (h *ReportsHandler) Purge(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.service.Purge(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid report id", nil)
	}
	return id, nil
}
