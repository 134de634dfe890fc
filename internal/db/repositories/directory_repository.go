package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/lexxi/lexxi/internal/db/models"
)

// ErrNotProvisioned is returned when a user exists but has no complete link
// to a team: a missing profile, team_members row, or teams.user_id link,
// depending on the configured schema. Callers abort the team-scoped action
// and surface 403; there is no retry and no partial fallback.
var ErrNotProvisioned = errors.New("user is not provisioned with a team")

// DirectoryRepository resolves a user identity to its team and organization.
// Two deployed schema generations exist; exactly one strategy is active per
// process, chosen by directory.schema at construction time.
type DirectoryRepository struct {
	db     *sqlx.DB
	schema string // "three_hop" or "direct"
}

// NewDirectoryRepository creates a DirectoryRepository for the given schema
// generation. schema must be "three_hop" or "direct"; config validation
// guarantees this before the repository is built.
func NewDirectoryRepository(db *sqlx.DB, schema string) *DirectoryRepository {
	return &DirectoryRepository{db: db, schema: schema}
}

// ResolveTeamContext returns the team and organization the user acts under.
// Returns ErrNotProvisioned when any link in the active chain is missing.
func (r *DirectoryRepository) ResolveTeamContext(ctx context.Context, userID string) (*models.TeamContext, error) {
	switch r.schema {
	case "direct":
		return r.resolveDirect(ctx, userID)
	case "three_hop":
		return r.resolveThreeHop(ctx, userID)
	default:
		return nil, fmt.Errorf("unknown directory schema: %s", r.schema)
	}
}

// resolveThreeHop walks users -> profiles -> team_members -> teams as a
// single joined query. Each hop is an INNER JOIN, so any missing link
// collapses to zero rows.
func (r *DirectoryRepository) resolveThreeHop(ctx context.Context, userID string) (*models.TeamContext, error) {
	query := `
		SELECT t.id AS team_id, t.organization_id
		FROM profiles p
		JOIN team_members tm ON tm.profile_id = p.id
		JOIN teams t ON t.id = tm.team_id
		WHERE p.user_id = $1
	`

	var tc models.TeamContext
	err := r.db.QueryRowxContext(ctx, query, userID).Scan(&tc.TeamID, &tc.OrganizationID)
	if err == sql.ErrNoRows {
		return nil, ErrNotProvisioned
	}
	if err != nil {
		return nil, fmt.Errorf("resolve team context (three_hop): %w", err)
	}

	return &tc, nil
}

// resolveDirect reads the owner link recorded on teams.user_id.
func (r *DirectoryRepository) resolveDirect(ctx context.Context, userID string) (*models.TeamContext, error) {
	query := `
		SELECT id AS team_id, organization_id
		FROM teams
		WHERE user_id = $1
	`

	var tc models.TeamContext
	err := r.db.QueryRowxContext(ctx, query, userID).Scan(&tc.TeamID, &tc.OrganizationID)
	if err == sql.ErrNoRows {
		return nil, ErrNotProvisioned
	}
	if err != nil {
		return nil, fmt.Errorf("resolve team context (direct): %w", err)
	}

	return &tc, nil
}

// GetProfileByUserID retrieves the directory profile for a user.
// Returns (nil, nil) when the user has no profile row.
func (r *DirectoryRepository) GetProfileByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	query := `
		SELECT id, user_id, full_name, created_at, updated_at
		FROM profiles
		WHERE user_id = $1
	`

	profile := &models.Profile{}
	err := r.db.QueryRowxContext(ctx, query, userID).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.FullName,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return profile, nil
}

// GetTeamByID retrieves a team by ID. Returns (nil, nil) when not found.
func (r *DirectoryRepository) GetTeamByID(ctx context.Context, teamID string) (*models.Team, error) {
	query := `
		SELECT id, name, organization_id, user_id, created_at, updated_at
		FROM teams
		WHERE id = $1
	`

	team := &models.Team{}
	err := r.db.QueryRowxContext(ctx, query, teamID).Scan(
		&team.ID,
		&team.Name,
		&team.OrganizationID,
		&team.UserID,
		&team.CreatedAt,
		&team.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return team, nil
}
