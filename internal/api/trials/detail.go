// detail.go implements the trial detail, publication pager, and subscription
// endpoints for a single registry trial.
package trials

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lexxi/lexxi/internal/db/models"
	"github.com/lexxi/lexxi/internal/db/repositories"
	"github.com/lexxi/lexxi/internal/telemetry"
)

// teamContext resolves the caller's team or writes the error response and
// returns nil. A user without a complete directory link gets 403; team-scoped
// actions never fall back to a default team.
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

// @Summary      Trial detail
// @Description  Return a registry trial with its plaintiff and defendant display names. Party names come from trial_entities partitioned by role; a side with no entities falls back to the denormalized column.
// @Tags         Trials
// @Produce      json
// @Param        id  path  string  true  "Trial ID"
// @Success      200  {object}  map[string]interface{}  "trial"
// @Failure      404  {object}  map[string]interface{}  "Trial not found"
// @Router       /api/v1/trials/{id} [get]
// DetailHandler returns one registry trial with party names.
// GET /api/v1/trials/:id
func (h *Handlers) DetailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		trialID := c.Param("id")

		trial, err := h.trialRepo.GetTrialByID(c.Request.Context(), trialID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load trial",
			})
			return
		}
		if trial == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Trial not found",
			})
			return
		}

		entities, err := h.trialRepo.GetTrialEntities(c.Request.Context(), trialID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load trial parties",
			})
			return
		}

		plaintiff, defendant := models.PartyNames(entities, trial.Plaintiff, trial.Defendant)

		payload := trialPayload(trial)
		payload["plaintiff"] = plaintiff
		payload["defendant"] = defendant
		c.JSON(http.StatusOK, gin.H{"trial": payload})
	}
}

// @Summary      Trial publications
// @Description  Newest publications of a trial, capped at the most recent window (default 5) and paged 3 at a time with an independent page counter.
// @Tags         Trials
// @Produce      json
// @Param        id    path   string  true   "Trial ID"
// @Param        page  query  int     false  "Publication page (default 1)"
// @Success      200  {object}  map[string]interface{}  "publications: [], meta: {page, page_size, total, pages}"
// @Failure      404  {object}  map[string]interface{}  "Trial not found"
// @Router       /api/v1/trials/{id}/publications [get]
// PublicationsHandler pages through a trial's newest publications.
// GET /api/v1/trials/:id/publications?page=
func (h *Handlers) PublicationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		trialID := c.Param("id")

		trial, err := h.trialRepo.GetTrialByID(c.Request.Context(), trialID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load trial",
			})
			return
		}
		if trial == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Trial not found",
			})
			return
		}

		page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
		if err != nil || page < 1 {
			page = 1
		}

		window := h.cfg.Listing.PublicationWindow
		pageSize := h.cfg.Listing.PublicationPageSize
		offset := (page - 1) * pageSize

		pubs, total, err := h.pubRepo.ListRecentByTrial(c.Request.Context(), trialID, window, pageSize, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load publications",
			})
			return
		}

		out := make([]gin.H, len(pubs))
		for i, p := range pubs {
			out[i] = gin.H{
				"id":               p.ID,
				"publication_date": p.PublicationDate,
				"agreement_date":   p.AgreementDate,
				"summary":          p.Summary,
				"status":           p.Status,
				"has_document":     p.DocumentPath != nil,
				"created_at":       p.CreatedAt,
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"publications": out,
			"meta": gin.H{
				"page":      page,
				"page_size": pageSize,
				"total":     total,
				"pages":     pageCount(total, pageSize),
			},
		})
	}
}

// @Summary      Subscription status
// @Description  Whether the caller's team already follows this trial.
// @Tags         Trials
// @Produce      json
// @Param        id  path  string  true  "Trial ID"
// @Success      200  {object}  map[string]interface{}  "subscribed"
// @Failure      403  {object}  map[string]interface{}  "User not provisioned with a team"
// @Router       /api/v1/trials/{id}/subscription [get]
// SubscriptionStatusHandler reports whether the caller's team follows the trial.
// GET /api/v1/trials/:id/subscription
func (h *Handlers) SubscriptionStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tc := h.teamContext(c)
		if tc == nil {
			return
		}

		subscribed, err := h.subRepo.Exists(c.Request.Context(), tc.TeamID, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to check subscription",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"subscribed": subscribed})
	}
}

// @Summary      Subscribe team to a trial
// @Description  Add the trial to the caller's team workspace. Idempotent: subscribing to an already-followed trial succeeds without inserting a second row, backed by a unique constraint on (team_id, shared_trial_id).
// @Tags         Trials
// @Produce      json
// @Param        id  path  string  true  "Trial ID"
// @Success      200  {object}  map[string]interface{}  "subscribed: true, created: false (already followed)"
// @Success      201  {object}  map[string]interface{}  "subscribed: true, created: true"
// @Failure      403  {object}  map[string]interface{}  "User not provisioned with a team"
// @Failure      404  {object}  map[string]interface{}  "Trial not found"
// @Router       /api/v1/trials/{id}/subscribe [post]
// SubscribeHandler adds the trial to the caller's team workspace.
// POST /api/v1/trials/:id/subscribe
func (h *Handlers) SubscribeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		trialID := c.Param("id")

		tc := h.teamContext(c)
		if tc == nil {
			return
		}

		trial, err := h.trialRepo.GetTrialByID(c.Request.Context(), trialID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load trial",
			})
			return
		}
		if trial == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Trial not found",
			})
			return
		}

		// Fast path for the common re-click: already subscribed, nothing to
		// insert. A concurrent subscribe between this check and the insert is
		// absorbed by ON CONFLICT DO NOTHING below.
		exists, err := h.subRepo.Exists(c.Request.Context(), tc.TeamID, trialID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to check subscription",
			})
			return
		}
		if exists {
			telemetry.TrialSubscriptionsTotal.WithLabelValues("duplicate").Inc()
			c.JSON(http.StatusOK, gin.H{"subscribed": true, "created": false})
			return
		}

		userID := c.GetString("user_id")
		created, err := h.subRepo.Subscribe(c.Request.Context(), tc.TeamID, trialID, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to subscribe to trial",
			})
			return
		}

		if created {
			telemetry.TrialSubscriptionsTotal.WithLabelValues("created").Inc()
			c.JSON(http.StatusCreated, gin.H{"subscribed": true, "created": true})
			return
		}
		telemetry.TrialSubscriptionsTotal.WithLabelValues("duplicate").Inc()
		c.JSON(http.StatusOK, gin.H{"subscribed": true, "created": false})
	}
}
