// Package orgtrials implements the team workspace endpoints: the list of
// subscribed trials with team-private annotations, the debounced inline-edit
// PATCH, and unsubscribe.
//
// Edits are not written synchronously. PATCH records the value in the
// flusher's overlay and answers 202; the coalesced UPDATE fires when the
// debounce window closes. Every list and detail response merges the overlay
// on top of the stored rows so the caller always reads its own writes.
package orgtrials

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lexxi/lexxi/internal/db/models"
	"github.com/lexxi/lexxi/internal/db/repositories"
	"github.com/lexxi/lexxi/internal/services"
)

// Handlers serves the /api/v1/org-trials endpoints
type Handlers struct {
	subRepo *repositories.SubscriptionRepository
	dirRepo *repositories.DirectoryRepository
	flusher *services.EditFlusher
}

// NewHandlers creates a new orgtrials Handlers instance
func NewHandlers(
	subRepo *repositories.SubscriptionRepository,
	dirRepo *repositories.DirectoryRepository,
	flusher *services.EditFlusher,
) *Handlers {
	return &Handlers{subRepo: subRepo, dirRepo: dirRepo, flusher: flusher}
}

// teamContext resolves the caller's team or writes the error response and
// returns nil.
func (h *Handlers) teamContext(c *gin.Context) *models.TeamContext {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Not authenticated",
		})
		return nil
	}

	tc, err := h.dirRepo.ResolveTeamContext(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotProvisioned) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "User is not provisioned with a team",
				"code":  "not_provisioned",
			})
			return nil
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to resolve team context",
		})
		return nil
	}
	return tc
}

// orgTrialPayload shapes one workspace row, with any pending overlay values
// applied on top of the stored columns.
func (h *Handlers) orgTrialPayload(teamID string, ot *models.OrgTrial) gin.H {
	payload := gin.H{
		"id":                 ot.ID,
		"shared_trial_id":    ot.SharedTrialID,
		"case_number":        ot.CaseNumber,
		"courthouse_id":      ot.CourthouseID,
		"courthouse_name":    ot.CourthouseName,
		"registry_status":    ot.RegistryStatus,
		"org_corporation":    ot.OrgCorporation,
		"risk_factor":        ot.RiskFactor,
		"priority":           ot.Priority,
		"outcome":            ot.Outcome,
		"contingency_cost":   ot.ContingencyCost,
		"start_date":         ot.StartDate,
		"end_date":           ot.EndDate,
		"notes":              ot.Notes,
		"trial_status":       ot.TrialStatus,
		"trial_type_stage":   ot.TrialTypeStage,
		"custom_description": ot.CustomDescription,
		"created_at":         ot.CreatedAt,
		"updated_at":         ot.UpdatedAt,
	}

	// Read-your-writes: values still inside their debounce window (or whose
	// flush failed) shadow whatever the last SELECT returned.
	for field, value := range h.flusher.Overlay(teamID, ot.ID) {
		payload[field] = value
	}
	return payload
}

// @Summary      List the team workspace
// @Description  All trials the caller's team follows, joined with the registry fields and narrowed by the same courthouse and case-number facets as the registry search. Pending inline edits are merged into the response.
// @Tags         OrgTrials
// @Produce      json
// @Param        courthouse_id  query  int     false  "Courthouse filter"
// @Param        q              query  string  false  "Case number substring filter"
// @Success      200  {object}  map[string]interface{}  "org_trials: []"
// @Failure      403  {object}  map[string]interface{}  "User not provisioned with a team"
// @Router       /api/v1/org-trials [get]
// ListHandler returns the caller's team workspace.
// GET /api/v1/org-trials?courthouse_id=&q=
func (h *Handlers) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tc := h.teamContext(c)
		if tc == nil {
			return
		}

		courthouseID, _ := strconv.Atoi(c.Query("courthouse_id"))
		q := c.Query("q")

		rows, err := h.subRepo.ListByTeam(c.Request.Context(), tc.TeamID, courthouseID, q)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list team trials",
			})
			return
		}

		out := make([]gin.H, len(rows))
		for i, ot := range rows {
			out[i] = h.orgTrialPayload(tc.TeamID, ot)
		}
		c.JSON(http.StatusOK, gin.H{"org_trials": out})
	}
}

// @Summary      Workspace row detail
// @Description  One subscribed trial with the team's annotations, pending edits merged.
// @Tags         OrgTrials
// @Produce      json
// @Param        id  path  string  true  "Org trial ID"
// @Success      200  {object}  map[string]interface{}  "org_trial"
// @Failure      404  {object}  map[string]interface{}  "Not found in the caller's team"
// @Router       /api/v1/org-trials/{id} [get]
// GetHandler returns one workspace row.
// GET /api/v1/org-trials/:id
func (h *Handlers) GetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tc := h.teamContext(c)
		if tc == nil {
			return
		}

		ot, err := h.subRepo.GetByID(c.Request.Context(), tc.TeamID, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load trial",
			})
			return
		}
		if ot == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Trial not found",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"org_trial": h.orgTrialPayload(tc.TeamID, ot)})
	}
}

// editRequest is the PATCH /org-trials/:id body
type editRequest struct {
	Field string      `json:"field" binding:"required"`
	Value interface{} `json:"value"`
}

// @Summary      Inline edit
// @Description  Record one field edit. The write is debounced: rapid successive edits to the same field coalesce into a single UPDATE carrying the final value. The response acknowledges the pending write; the overlay makes it visible to subsequent reads immediately.
// @Tags         OrgTrials
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "Org trial ID"
// @Param        body  body  object  true  "field, value"
// @Success      202  {object}  map[string]interface{}  "pending: true, field"
// @Failure      404  {object}  map[string]interface{}  "Not found in the caller's team"
// @Failure      422  {object}  map[string]interface{}  "Field not editable"
// @Router       /api/v1/org-trials/{id} [patch]
// EditHandler schedules a debounced field write.
// PATCH /api/v1/org-trials/:id
func (h *Handlers) EditHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tc := h.teamContext(c)
		if tc == nil {
			return
		}

		var req editRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "field is required",
			})
			return
		}

		if !models.IsEditableOrgTrialField(req.Field) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":           "Field is not editable",
				"field":           req.Field,
				"editable_fields": models.EditableOrgTrialFields(),
			})
			return
		}

		orgTrialID := c.Param("id")
		ot, err := h.subRepo.GetByID(c.Request.Context(), tc.TeamID, orgTrialID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load trial",
			})
			return
		}
		if ot == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Trial not found",
			})
			return
		}

		if !h.flusher.Schedule(tc.TeamID, orgTrialID, req.Field, req.Value) {
			// The flusher only refuses work during shutdown.
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Server is shutting down",
			})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"pending": true,
			"field":   req.Field,
		})
	}
}

// @Summary      Unsubscribe
// @Description  Remove a trial from the caller's team workspace. The registry row is untouched.
// @Tags         OrgTrials
// @Produce      json
// @Param        id  path  string  true  "Org trial ID"
// @Success      200  {object}  map[string]interface{}  "message"
// @Failure      404  {object}  map[string]interface{}  "Not found in the caller's team"
// @Router       /api/v1/org-trials/{id} [delete]
// UnsubscribeHandler removes a workspace row.
// DELETE /api/v1/org-trials/:id
func (h *Handlers) UnsubscribeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tc := h.teamContext(c)
		if tc == nil {
			return
		}

		err := h.subRepo.Unsubscribe(c.Request.Context(), tc.TeamID, c.Param("id"))
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Trial not found",
			})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to unsubscribe",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Unsubscribed"})
	}
}
