// stats.go implements handlers for aggregating and serving dashboard statistics.
package admin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// StatsHandler handles stats-related API requests
type StatsHandler struct {
	db *sqlx.DB
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(database *sqlx.DB) *StatsHandler {
	return &StatsHandler{
		db: database,
	}
}

// DashboardStats represents the response for dashboard statistics
type DashboardStats struct {
	Users               int64                     `json:"users"`
	Organizations       int64                     `json:"organizations"`
	Teams               int64                     `json:"teams"`
	SharedTrials        int64                     `json:"shared_trials"`
	Publications        int64                     `json:"publications"`
	Subscriptions       int64                     `json:"subscriptions"`
	TrialsByStatus      []TrialStatusCount        `json:"trials_by_status"`
	RecentSubscriptions []RecentSubscriptionEntry `json:"recent_subscriptions"`
}

// TrialStatusCount is a count of shared trials for a single registry status.
type TrialStatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// RecentSubscriptionEntry is one recently created team subscription.
type RecentSubscriptionEntry struct {
	TeamName   string    `json:"team_name"`
	CaseNumber string    `json:"case_number"`
	CreatedAt  time.Time `json:"created_at"`
}

// @Summary      Get dashboard statistics
// @Description  Returns aggregated statistics for the admin dashboard including user, organization, team, trial, publication, and subscription counts.
// @Tags         Admin
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  DashboardStats
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/stats/dashboard [get]
// GetDashboardStats returns dashboard statistics using a single database round-trip
// for the core counts.
func (h *StatsHandler) GetDashboardStats(c *gin.Context) {
	ctx := c.Request.Context()

	query := `
		SELECT
			(SELECT COUNT(*) FROM users) AS user_count,
			(SELECT COUNT(*) FROM organizations) AS org_count,
			(SELECT COUNT(*) FROM teams) AS team_count,
			(SELECT COUNT(*) FROM shared_trials) AS trial_count,
			(SELECT COUNT(*) FROM publications) AS publication_count,
			(SELECT COUNT(*) FROM org_trials) AS subscription_count
	`

	var stats DashboardStats

	err := h.db.QueryRowContext(ctx, query).Scan(
		&stats.Users,
		&stats.Organizations,
		&stats.Teams,
		&stats.SharedTrials,
		&stats.Publications,
		&stats.Subscriptions,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load dashboard statistics"})
		return
	}

	// Trial breakdown by registry status, top 8.
	stats.TrialsByStatus = []TrialStatusCount{}
	if statusRows, statusErr := h.db.QueryContext(ctx, `
		SELECT status, COUNT(*) AS count
		FROM shared_trials
		GROUP BY status
		ORDER BY count DESC
		LIMIT 8
	`); statusErr == nil {
		defer statusRows.Close()
		for statusRows.Next() {
			var entry TrialStatusCount
			if scanErr := statusRows.Scan(&entry.Status, &entry.Count); scanErr == nil {
				stats.TrialsByStatus = append(stats.TrialsByStatus, entry)
			}
		}
	}

	// Recent subscription activity, last 8 entries.
	stats.RecentSubscriptions = []RecentSubscriptionEntry{}
	if recentRows, recentErr := h.db.QueryContext(ctx, `
		SELECT t.name, st.case_number, ot.created_at
		FROM org_trials ot
		JOIN teams t ON t.id = ot.team_id
		JOIN shared_trials st ON st.id = ot.shared_trial_id
		ORDER BY ot.created_at DESC
		LIMIT 8
	`); recentErr == nil {
		defer recentRows.Close()
		for recentRows.Next() {
			var entry RecentSubscriptionEntry
			if scanErr := recentRows.Scan(&entry.TeamName, &entry.CaseNumber, &entry.CreatedAt); scanErr == nil {
				stats.RecentSubscriptions = append(stats.RecentSubscriptions, entry)
			}
		}
	}

	c.JSON(http.StatusOK, stats)
}
