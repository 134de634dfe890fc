package repositories

import (
	"context"
	"database/sql"

	"github.com/lexxi/lexxi/internal/db/models"
)

// TrialRepository handles shared trial registry queries: facet search,
// detail, party entities, and the geographic reference lookups that feed
// the search facets.
type TrialRepository struct {
	db *sql.DB
}

// NewTrialRepository creates a new TrialRepository
func NewTrialRepository(db *sql.DB) *TrialRepository {
	return &TrialRepository{db: db}
}

// SearchTrials returns one page of registry trials filed in the given
// courthouse whose case number contains q (case-insensitive), plus the total
// match count. Ordering is case_number ascending so pagination is stable.
// The facet gate (no courthouse or empty q means no query at all) is the
// handler's responsibility; this method always queries.
func (r *TrialRepository) SearchTrials(ctx context.Context, courthouseID int, q string, limit, offset int) ([]*models.SharedTrial, int, error) {
	pattern := "%" + q + "%"

	var total int
	countQuery := `
		SELECT COUNT(*)
		FROM shared_trials
		WHERE courthouse_id = $1 AND case_number ILIKE $2
	`
	if err := r.db.QueryRowContext(ctx, countQuery, courthouseID, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT st.id, st.case_number, st.courthouse_id, st.status,
		       st.plaintiff, st.defendant, st.created_at, c.name AS courthouse_name
		FROM shared_trials st
		JOIN courthouses c ON c.id = st.courthouse_id
		WHERE st.courthouse_id = $1 AND st.case_number ILIKE $2
		ORDER BY st.case_number ASC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.QueryContext(ctx, query, courthouseID, pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	trials := make([]*models.SharedTrial, 0)
	for rows.Next() {
		trial := &models.SharedTrial{}
		err := rows.Scan(
			&trial.ID,
			&trial.CaseNumber,
			&trial.CourthouseID,
			&trial.Status,
			&trial.Plaintiff,
			&trial.Defendant,
			&trial.CreatedAt,
			&trial.CourthouseName,
		)
		if err != nil {
			return nil, 0, err
		}
		trials = append(trials, trial)
	}

	return trials, total, rows.Err()
}

// GetTrialByID retrieves a registry trial with its courthouse name.
// Returns (nil, nil) when not found.
func (r *TrialRepository) GetTrialByID(ctx context.Context, trialID string) (*models.SharedTrial, error) {
	query := `
		SELECT st.id, st.case_number, st.courthouse_id, st.status,
		       st.plaintiff, st.defendant, st.created_at, c.name AS courthouse_name
		FROM shared_trials st
		JOIN courthouses c ON c.id = st.courthouse_id
		WHERE st.id = $1
	`

	trial := &models.SharedTrial{}
	err := r.db.QueryRowContext(ctx, query, trialID).Scan(
		&trial.ID,
		&trial.CaseNumber,
		&trial.CourthouseID,
		&trial.Status,
		&trial.Plaintiff,
		&trial.Defendant,
		&trial.CreatedAt,
		&trial.CourthouseName,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return trial, nil
}

// GetTrialEntities retrieves all named parties for a trial, in insertion
// order so display strings are deterministic.
func (r *TrialRepository) GetTrialEntities(ctx context.Context, trialID string) ([]models.TrialEntity, error) {
	query := `
		SELECT id, shared_trial_id, name, role
		FROM trial_entities
		WHERE shared_trial_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, trialID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entities := make([]models.TrialEntity, 0)
	for rows.Next() {
		var e models.TrialEntity
		if err := rows.Scan(&e.ID, &e.SharedTrialID, &e.Name, &e.Role); err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}

	return entities, rows.Err()
}

// ListStates retrieves all states ordered by name
func (r *TrialRepository) ListStates(ctx context.Context) ([]models.State, error) {
	query := `SELECT id, name FROM states ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := make([]models.State, 0)
	for rows.Next() {
		var s models.State
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		states = append(states, s)
	}

	return states, rows.Err()
}

// ListCourthousesByState retrieves the courthouses of a state, joined
// through cities, ordered by name.
func (r *TrialRepository) ListCourthousesByState(ctx context.Context, stateID int) ([]models.Courthouse, error) {
	query := `
		SELECT ch.id, ch.name, ch.city_id
		FROM courthouses ch
		JOIN cities ci ON ci.id = ch.city_id
		WHERE ci.state_id = $1
		ORDER BY ch.name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, stateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	courthouses := make([]models.Courthouse, 0)
	for rows.Next() {
		var ch models.Courthouse
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.CityID); err != nil {
			return nil, err
		}
		courthouses = append(courthouses, ch)
	}

	return courthouses, rows.Err()
}
