package documents

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"intake-backend/internal/docspec"
	"intake-backend/internal/shared/cache"
	"intake-backend/internal/shared/server/middleware"
	"intake-backend/internal/shared/server/respond"
)

const maxUploadSize = 4 << 20 // covers the 2 MiB PDF cap plus multipart overhead

const (
	typeListingCacheKey = "document-types:listing"
	typeListingTTL      = 15 * time.Minute
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc   *Service
	Cache cache.Cache
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, c cache.Cache) *Handler {
	if c == nil {
		c = cache.Noop{}
	}
	return &Handler{Svc: svc, Cache: c}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/document-types", h.listTypes)
	rg.POST("/applicants/:applicantId/documents", h.upload)
	rg.GET("/applicants/:applicantId/documents", h.list)
	rg.GET("/applicants/:applicantId/documents/ktp-prefill", h.ktpPrefill)
	rg.GET("/documents/:id", h.get)
	rg.PATCH("/documents/:id/review", h.review)
}

func (h *Handler) listTypes(c *gin.Context) {
	if cached, err := h.Cache.Get(c.Request.Context(), typeListingCacheKey); err == nil {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(cached))
		return
	}

	specs := docspec.All()
	resp := make([]DocumentTypeResponse, 0, len(specs))
	for _, s := range specs {
		resp = append(resp, DocumentTypeResponse{
			Code:       s.Code,
			Name:       s.Name,
			Format:     string(s.Format),
			Extensions: s.Extensions,
			MaxBytes:   s.MaxBytes,
			Required:   s.Required,
		})
	}

	if payload, err := json.Marshal(resp); err == nil {
		_ = h.Cache.Set(c.Request.Context(), typeListingCacheKey, string(payload), typeListingTTL)
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) upload(c *gin.Context) {
	applicantID := c.Param("applicantId")
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	typeCode := c.PostForm("typeCode")
	if typeCode == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "typeCode is required", nil)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	doc, err := h.Svc.Upload(c.Request.Context(), applicantID, typeCode, fileHeader.Filename, fileHeader.Size, file)
	if err != nil {
		var valErr *ValidationError
		switch {
		case errors.As(err, &valErr):
			respond.Error(c, http.StatusBadRequest, "validation_error", valErr.Error(), valErr.Fields)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to upload document", nil)
		}
		return
	}

	respond.JSON(c, http.StatusCreated, toResponse(doc))
}

func (h *Handler) list(c *gin.Context) {
	applicantID := c.Param("applicantId")

	docs, err := h.Svc.ListByApplicant(c.Request.Context(), applicantID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list documents", nil)
		}
		return
	}

	resp := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, toResponse(doc))
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) ktpPrefill(c *gin.Context) {
	applicantID := c.Param("applicantId")

	prefill, err := h.Svc.BiodataPrefill(c.Request.Context(), applicantID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "no ktp biodata available", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load ktp biodata", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, prefill)
}

func (h *Handler) get(c *gin.Context) {
	doc, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch document", nil)
		}
		return
	}
	respond.JSON(c, http.StatusOK, toResponse(doc))
}

type reviewRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (h *Handler) review(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	reviewerID := middleware.UserIDFromContext(c)
	doc, err := h.Svc.SetReviewStatus(c.Request.Context(), c.Param("id"), ReviewStatus(req.Status), reviewerID, req.Notes)
	if err != nil {
		var valErr *ValidationError
		switch {
		case errors.As(err, &valErr):
			respond.Error(c, http.StatusBadRequest, "validation_error", valErr.Error(), valErr.Fields)
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update review status", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, toResponse(doc))
}
