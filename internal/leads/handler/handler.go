// Package handler exposes the lead intake API over gin.
package handler

import (
	"net/http"

	"crmleads_backend/internal/leads/service"
	"crmleads_backend/internal/leads/transport"
	"crmleads_backend/internal/refdata"
	"crmleads_backend/platform/httpkit"
	"crmleads_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.PUT("/:id", h.Update)
	rg.POST("/batch", h.Batch)
}

// snapshot builds the request-scoped reference lookup. Responds and returns
// nil when the load fails.
func (h *Handler) snapshot(c *gin.Context) *refdata.Lookup {
	lookup, err := h.svc.Snapshot(c.Request.Context())
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, err.Error(), nil)
		return nil
	}
	return lookup
}

func (h *Handler) Create(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, []string{err.Error()})
		return
	}

	lookup := h.snapshot(c)
	if lookup == nil {
		return
	}

	lead, err := h.svc.Create(c.Request.Context(), payload, lookup)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, lead)
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, []string{err.Error()})
		return
	}
	if err := validator.Validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, []string{err.Error()})
		return
	}

	lookup := h.snapshot(c)
	if lookup == nil {
		return
	}

	leads, err := h.svc.List(c.Request.Context(), req, lookup)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, leads)
}

func (h *Handler) Update(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, []string{err.Error()})
		return
	}

	lookup := h.snapshot(c)
	if lookup == nil {
		return
	}

	lead, err := h.svc.Update(c.Request.Context(), c.Param("id"), payload, lookup)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) Batch(c *gin.Context) {
	var payloads []map[string]any
	if err := c.ShouldBindJSON(&payloads); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, []string{err.Error()})
		return
	}

	lookup := h.snapshot(c)
	if lookup == nil {
		return
	}

	result := h.svc.Batch(c.Request.Context(), payloads, lookup)
	httpkit.OK(c, result)
}

// ManualAutomation handles the action=manual-automation dispatch mounted on
// the API root. Dispatch failures surface as 502 responses.
func (h *Handler) ManualAutomation(c *gin.Context) {
	var req transport.ManualAutomationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, []string{err.Error()})
		return
	}
	if err := validator.Validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, []string{err.Error()})
		return
	}

	if err := h.svc.ManualSend(c.Request.Context(), req); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"dispatched": len(req.Messages)})
}
