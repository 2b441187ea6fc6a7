package applicants

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"intake-backend/internal/shared/server/middleware"
	"intake-backend/internal/shared/server/respond"
	"intake-backend/internal/shared/telemetry"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches applicant routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/applicants", h.create)
	rg.GET("/applicants", h.list)
	rg.GET("/applicants/:applicantId", h.get)
	rg.PATCH("/applicants/:applicantId", h.update)
	rg.POST("/applicants/:applicantId/submit", h.submit)
	rg.POST("/applicants/:applicantId/approve", h.approve)
	rg.POST("/applicants/:applicantId/reject", h.reject)
}

func (h *Handler) create(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.writeError(c, err, "failed to create applicant")
		return
	}

	p, err := h.Svc.Create(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err, "failed to create applicant")
		return
	}
	respond.JSON(c, http.StatusCreated, h.respondProfile(c, p))
}

func (h *Handler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	profiles, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.writeError(c, err, "failed to list applicants")
		return
	}

	resp := make([]ProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		resp = append(resp, h.respondProfile(c, p))
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) get(c *gin.Context) {
	p, err := h.Svc.Get(c.Request.Context(), c.Param("applicantId"))
	if err != nil {
		h.writeError(c, err, "failed to fetch applicant")
		return
	}
	respond.JSON(c, http.StatusOK, h.respondProfile(c, p))
}

func (h *Handler) update(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.writeError(c, err, "failed to update applicant")
		return
	}

	p, err := h.Svc.Update(c.Request.Context(), c.Param("applicantId"), in)
	if err != nil {
		h.writeError(c, err, "failed to update applicant")
		return
	}
	respond.JSON(c, http.StatusOK, h.respondProfile(c, p))
}

func (h *Handler) submit(c *gin.Context) {
	p, err := h.Svc.Submit(c.Request.Context(), c.Param("applicantId"))
	if err != nil {
		h.writeError(c, err, "failed to submit applicant")
		return
	}
	respond.JSON(c, http.StatusOK, h.respondProfile(c, p))
}

type verifyRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) approve(c *gin.Context) {
	var req verifyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
	}

	verifierID := middleware.UserIDFromContext(c)
	p, err := h.Svc.Approve(c.Request.Context(), c.Param("applicantId"), verifierID, req.Notes)
	if err != nil {
		h.writeError(c, err, "failed to approve applicant")
		return
	}
	respond.JSON(c, http.StatusOK, h.respondProfile(c, p))
}

func (h *Handler) reject(c *gin.Context) {
	var req verifyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
	}

	verifierID := middleware.UserIDFromContext(c)
	p, err := h.Svc.Reject(c.Request.Context(), c.Param("applicantId"), verifierID, req.Notes)
	if err != nil {
		h.writeError(c, err, "failed to reject applicant")
		return
	}
	respond.JSON(c, http.StatusOK, h.respondProfile(c, p))
}

// respondProfile resolves the derived figures for one profile. Lookup
// failures degrade to zero values since the listing must not break when the
// document store hiccups.
func (h *Handler) respondProfile(c *gin.Context, p Profile) ProfileResponse {
	ctx := c.Request.Context()
	rate, err := h.Svc.DocumentApprovalRate(ctx, p.ID)
	if err != nil {
		telemetry.Error("applicants.approval_rate", map[string]any{
			"applicant_id": p.ID,
			"error":        err.Error(),
		})
		rate = 0
	}
	complete, err := h.Svc.HasCompleteDocuments(ctx, p.ID)
	if err != nil {
		telemetry.Error("applicants.complete_documents", map[string]any{
			"applicant_id": p.ID,
			"error":        err.Error(),
		})
		complete = false
	}
	return toResponse(p, rate, complete)
}

func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	var valErr *ValidationError
	var preErr *PreconditionError
	switch {
	case errors.As(err, &valErr):
		respond.Error(c, http.StatusBadRequest, "validation_error", valErr.Error(), valErr.Fields)
	case errors.As(err, &preErr):
		respond.Error(c, http.StatusConflict, "precondition_failed", preErr.Message, nil)
	case errors.Is(err, ErrInvalidTransition):
		respond.Error(c, http.StatusConflict, "invalid_transition", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "applicant not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
