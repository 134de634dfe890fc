// Package trials implements the shared trial registry endpoints: faceted
// search, reference lookups for the search facets, trial detail with party
// names, the publication pager, and team subscriptions.
package trials

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lexxi/lexxi/internal/config"
	"github.com/lexxi/lexxi/internal/db/models"
	"github.com/lexxi/lexxi/internal/db/repositories"
	"github.com/lexxi/lexxi/internal/telemetry"
)

// Handlers serves the /api/v1/trials and facet lookup endpoints
type Handlers struct {
	cfg       *config.Config
	trialRepo *repositories.TrialRepository
	pubRepo   *repositories.PublicationRepository
	subRepo   *repositories.SubscriptionRepository
	dirRepo   *repositories.DirectoryRepository
}

// NewHandlers creates a new trials Handlers instance
func NewHandlers(
	cfg *config.Config,
	trialRepo *repositories.TrialRepository,
	pubRepo *repositories.PublicationRepository,
	subRepo *repositories.SubscriptionRepository,
	dirRepo *repositories.DirectoryRepository,
) *Handlers {
	return &Handlers{
		cfg:       cfg,
		trialRepo: trialRepo,
		pubRepo:   pubRepo,
		subRepo:   subRepo,
		dirRepo:   dirRepo,
	}
}

// trialPayload shapes a registry trial row for JSON responses
func trialPayload(t *models.SharedTrial) gin.H {
	return gin.H{
		"id":              t.ID,
		"case_number":     t.CaseNumber,
		"courthouse_id":   t.CourthouseID,
		"courthouse_name": t.CourthouseName,
		"status":          t.Status,
		"created_at":      t.CreatedAt,
	}
}

// pageCount returns ceil(total/pageSize) for response meta
func pageCount(total, pageSize int) int {
	if total == 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// @Summary      Search the trial registry
// @Description  Facet-gated search: results are computed only when courthouse_id is set and q is non-empty; otherwise an empty page with total 0 is returned without querying. q matches case numbers as a case-insensitive substring.
// @Tags         Trials
// @Produce      json
// @Param        courthouse_id  query  int     false  "Courthouse facet (required for results)"
// @Param        q              query  string  false  "Case number substring (required for results)"
// @Param        page           query  int     false  "Page number (default 1)"
// @Param        page_size      query  int     false  "Results per page (default 10, max 10)"
// @Success      200  {object}  map[string]interface{}  "trials: [], meta: {page, page_size, total, pages}"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/trials [get]
// SearchHandler handles registry search requests.
// GET /api/v1/trials?courthouse_id=&q=&page=&page_size=
func (h *Handlers) SearchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		q := c.Query("q")
		courthouseID, _ := strconv.Atoi(c.Query("courthouse_id"))

		page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
		if err != nil || page < 1 {
			page = 1
		}

		maxPageSize := h.cfg.Listing.PageSize
		pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(maxPageSize)))
		if err != nil || pageSize < 1 || pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		// Facet gate: no courthouse or an empty query returns the empty page
		// without touching the registry. The dataset is large and unindexed
		// substring scans across all courthouses are not allowed.
		if courthouseID == 0 || q == "" {
			telemetry.TrialSearchesTotal.WithLabelValues("gated").Inc()
			c.JSON(http.StatusOK, gin.H{
				"trials": []gin.H{},
				"meta": gin.H{
					"page":      page,
					"page_size": pageSize,
					"total":     0,
					"pages":     0,
				},
			})
			return
		}

		offset := (page - 1) * pageSize
		results, total, err := h.trialRepo.SearchTrials(c.Request.Context(), courthouseID, q, pageSize, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to search trials",
			})
			return
		}
		telemetry.TrialSearchesTotal.WithLabelValues("matched").Inc()

		trials := make([]gin.H, len(results))
		for i, t := range results {
			trials[i] = trialPayload(t)
		}

		c.JSON(http.StatusOK, gin.H{
			"trials": trials,
			"meta": gin.H{
				"page":      page,
				"page_size": pageSize,
				"total":     total,
				"pages":     pageCount(total, pageSize),
			},
		})
	}
}

// @Summary      List states
// @Description  Reference lookup for the state facet.
// @Tags         Trials
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "states: []"
// @Router       /api/v1/states [get]
// ListStatesHandler returns the state facet options.
// GET /api/v1/states
func (h *Handlers) ListStatesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		states, err := h.trialRepo.ListStates(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list states",
			})
			return
		}

		out := make([]gin.H, len(states))
		for i, s := range states {
			out[i] = gin.H{"id": s.ID, "name": s.Name}
		}
		c.JSON(http.StatusOK, gin.H{"states": out})
	}
}

// @Summary      List courthouses for a state
// @Description  Reference lookup for the courthouse facet, joined through cities. Changing the state facet invalidates the courthouse selection client-side.
// @Tags         Trials
// @Produce      json
// @Param        id  path  int  true  "State ID"
// @Success      200  {object}  map[string]interface{}  "courthouses: []"
// @Failure      400  {object}  map[string]interface{}  "Invalid state id"
// @Router       /api/v1/states/{id}/courthouses [get]
// ListCourthousesHandler returns the courthouses of a state.
// GET /api/v1/states/:id/courthouses
func (h *Handlers) ListCourthousesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		stateID, err := strconv.Atoi(c.Param("id"))
		if err != nil || stateID < 1 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid state id",
			})
			return
		}

		courthouses, err := h.trialRepo.ListCourthousesByState(c.Request.Context(), stateID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list courthouses",
			})
			return
		}

		out := make([]gin.H, len(courthouses))
		for i, ch := range courthouses {
			out[i] = gin.H{"id": ch.ID, "name": ch.Name, "city_id": ch.CityID}
		}
		c.JSON(http.StatusOK, gin.H{"courthouses": out})
	}
}
