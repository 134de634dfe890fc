package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lexxi/lexxi/internal/db/models"
)

// SubscriptionRepository handles org_trials: a team's subscriptions to
// registry trials and the annotation fields the inline editor writes.
type SubscriptionRepository struct {
	db *sqlx.DB
}

// NewSubscriptionRepository creates a new SubscriptionRepository
func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Exists reports whether the team already follows the trial.
func (r *SubscriptionRepository) Exists(ctx context.Context, teamID, sharedTrialID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM org_trials
			WHERE team_id = $1 AND shared_trial_id = $2
		)
	`

	var exists bool
	if err := r.db.QueryRowxContext(ctx, query, teamID, sharedTrialID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Subscribe inserts the subscription row for (team, trial). The insert rides
// the org_trials_team_trial_unique constraint with ON CONFLICT DO NOTHING, so
// two concurrent subscribes cannot produce duplicates; the loser simply
// inserts zero rows. Returns created=false when the team already followed
// the trial.
func (r *SubscriptionRepository) Subscribe(ctx context.Context, teamID, sharedTrialID, createdBy string) (created bool, err error) {
	query := `
		INSERT INTO org_trials (id, team_id, shared_trial_id, created_by, trial_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'activo', $5, $5)
		ON CONFLICT (team_id, shared_trial_id) DO NOTHING
	`

	res, err := r.db.ExecContext(ctx, query, uuid.New().String(), teamID, sharedTrialID, createdBy, time.Now())
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// GetByID retrieves one subscription row scoped to the team. The team filter
// is part of the query, not a post-check, so a caller can never load another
// team's row. Returns (nil, nil) when not found.
func (r *SubscriptionRepository) GetByID(ctx context.Context, teamID, orgTrialID string) (*models.OrgTrial, error) {
	query := `
		SELECT ot.id, ot.team_id, ot.shared_trial_id, ot.created_by,
		       ot.org_corporation, ot.risk_factor, ot.priority, ot.outcome,
		       ot.contingency_cost, ot.start_date, ot.end_date, ot.notes,
		       ot.trial_status, ot.trial_type_stage, ot.custom_description,
		       ot.created_at, ot.updated_at,
		       st.case_number, st.courthouse_id, c.name AS courthouse_name,
		       st.status AS registry_status
		FROM org_trials ot
		JOIN shared_trials st ON st.id = ot.shared_trial_id
		JOIN courthouses c ON c.id = st.courthouse_id
		WHERE ot.id = $1 AND ot.team_id = $2
	`

	orgTrial := &models.OrgTrial{}
	err := r.db.GetContext(ctx, orgTrial, query, orgTrialID, teamID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return orgTrial, nil
}

// ListByTeam retrieves all of a team's subscriptions joined with the shared
// trial and courthouse fields. courthouseID and q, when set, narrow the list
// the same way the registry search facets do. Ordering is case_number
// ascending.
func (r *SubscriptionRepository) ListByTeam(ctx context.Context, teamID string, courthouseID int, q string) ([]*models.OrgTrial, error) {
	query := `
		SELECT ot.id, ot.team_id, ot.shared_trial_id, ot.created_by,
		       ot.org_corporation, ot.risk_factor, ot.priority, ot.outcome,
		       ot.contingency_cost, ot.start_date, ot.end_date, ot.notes,
		       ot.trial_status, ot.trial_type_stage, ot.custom_description,
		       ot.created_at, ot.updated_at,
		       st.case_number, st.courthouse_id, c.name AS courthouse_name,
		       st.status AS registry_status
		FROM org_trials ot
		JOIN shared_trials st ON st.id = ot.shared_trial_id
		JOIN courthouses c ON c.id = st.courthouse_id
		WHERE ot.team_id = $1
		  AND ($2 = 0 OR st.courthouse_id = $2)
		  AND ($3 = '' OR st.case_number ILIKE $4)
		ORDER BY st.case_number ASC
	`

	orgTrials := make([]*models.OrgTrial, 0)
	err := r.db.SelectContext(ctx, &orgTrials, query, teamID, courthouseID, q, "%"+q+"%")
	if err != nil {
		return nil, err
	}

	return orgTrials, nil
}

// UpdateField writes one editable column of a subscription row. The column
// name is interpolated, so it MUST come from the editable whitelist; callers
// are expected to have validated it, and this method re-checks as the last
// line of defense. The team filter keeps the write inside the caller's team.
func (r *SubscriptionRepository) UpdateField(ctx context.Context, teamID, orgTrialID, field string, value interface{}) error {
	if !models.IsEditableOrgTrialField(field) {
		return fmt.Errorf("field %q is not editable", field)
	}

	query := fmt.Sprintf(`
		UPDATE org_trials
		SET %s = $1, updated_at = $2
		WHERE id = $3 AND team_id = $4
	`, field)

	res, err := r.db.ExecContext(ctx, query, value, time.Now(), orgTrialID, teamID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Unsubscribe removes a team's subscription row. Returns sql.ErrNoRows when
// the row does not exist in the caller's team.
func (r *SubscriptionRepository) Unsubscribe(ctx context.Context, teamID, orgTrialID string) error {
	query := `DELETE FROM org_trials WHERE id = $1 AND team_id = $2`
	res, err := r.db.ExecContext(ctx, query, orgTrialID, teamID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
