package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/propertymesh/listing-governance/internal/audit"
	"github.com/propertymesh/listing-governance/internal/governance"
	"github.com/propertymesh/listing-governance/internal/trust"
)

// Handler carries the service dependencies for the HTTP API.
type Handler struct {
	service  *governance.Service
	recorder *audit.Recorder
	trust    *trust.Scorer
	logger   *zap.Logger
}

// NewHandler creates the HTTP handler set.
func NewHandler(service *governance.Service, recorder *audit.Recorder, scorer *trust.Scorer, logger *zap.Logger) *Handler {
	return &Handler{
		service:  service,
		recorder: recorder,
		trust:    scorer,
		logger:   logger,
	}
}

// RegisterRoutes wires the API onto the router. actorAuth resolves the
// acting user for every governed endpoint.
func (h *Handler) RegisterRoutes(router *gin.Engine, actorAuth gin.HandlerFunc) {
	router.GET("/health", h.health)

	api := router.Group("/api/v1")
	api.Use(actorAuth)
	{
		api.POST("/events", h.processEvent)
		api.GET("/rules", h.listRules)
		api.PUT("/rules/:id/status", h.updateRuleStatus)
		api.PUT("/trust/:source_id", h.setTrustOverride)
		api.GET("/trust", h.listTrustOverrides)
		api.GET("/audit", h.listAudit)
		api.GET("/audit/:event_id", h.getAuditEntry)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "listing-governance",
		"timestamp": time.Now().UTC(),
	})
}

// processEvent runs an event through governance. A BLOCK outcome is
// reported as 422 so callers can gate on the status code alone; the full
// decision is returned either way.
func (h *Handler) processEvent(c *gin.Context) {
	var event governance.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event payload: " + err.Error()})
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	actor := actorFrom(c)
	if event.ActorID == "" && actor != nil {
		event.ActorID = actor.ID
	}

	decision, err := h.service.ProcessEvent(c.Request.Context(), &event, actor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusOK
	if decision.Outcome() == governance.OutcomeBlock {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{
		"event_id":         event.ID,
		"outcome":          decision.Outcome(),
		"results":          decision.Results,
		"actions_executed": decision.ActionsExecuted,
	})
}

func (h *Handler) listRules(c *gin.Context) {
	configs := h.service.RuleConfig(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"rules": configs, "count": len(configs)})
}

type ruleStatusRequest struct {
	Status governance.RuleStatus `json:"status" binding:"required"`
}

func (h *Handler) updateRuleStatus(c *gin.Context) {
	actor := actorFrom(c)
	if !actor.Privileged() {
		c.JSON(http.StatusForbidden, gin.H{"error": "rule management requires ADMIN role"})
		return
	}

	var req ruleStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	ruleID := c.Param("id")
	if !h.service.UpdateRuleStatus(c.Request.Context(), ruleID, req.Status) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown rule or invalid status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rule_id": ruleID, "status": req.Status})
}

type trustOverrideRequest struct {
	Score *int `json:"score" binding:"required"`
}

func (h *Handler) setTrustOverride(c *gin.Context) {
	actor := actorFrom(c)
	if !actor.Privileged() {
		c.JSON(http.StatusForbidden, gin.H{"error": "trust management requires ADMIN role"})
		return
	}

	var req trustOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	sourceID := c.Param("source_id")
	h.trust.SetOverride(sourceID, *req.Score)
	h.logger.Info("Trust override set",
		zap.String("source_id", sourceID),
		zap.Int("score", *req.Score),
		zap.String("actor_id", actor.ID),
	)
	c.JSON(http.StatusOK, gin.H{"source_id": sourceID, "score": *req.Score})
}

func (h *Handler) listTrustOverrides(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"overrides": h.trust.Overrides()})
}

func (h *Handler) listAudit(c *gin.Context) {
	entries, err := h.recorder.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list audit entries", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list audit entries"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

func (h *Handler) getAuditEntry(c *gin.Context) {
	eventID := c.Param("event_id")
	entry, err := h.recorder.Trace(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("Failed to load audit entry",
			zap.String("event_id", eventID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load audit entry"})
		return
	}
	if entry == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no audit entry for event " + eventID})
		return
	}
	c.JSON(http.StatusOK, entry)
}
