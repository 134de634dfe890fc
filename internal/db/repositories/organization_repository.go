// organization_repository.go provides queries for organization and team CRUD
// plus directory membership. Assigning a user to a team is how an account
// becomes provisioned: the resolver walks users -> profiles -> team_members
// -> teams, and this repository creates the intermediate rows that make the
// walk succeed.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lexxi/lexxi/internal/db/models"
)

const (
	orgColumns  = "id, name, display_name, created_at, updated_at"
	teamColumns = "id, name, organization_id, user_id, created_at, updated_at"
)

// OrganizationRepository handles database operations for organizations,
// teams, and team membership
type OrganizationRepository struct {
	db *sql.DB
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *sql.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

func scanOrg(row rowScanner) (*models.Organization, error) {
	org := &models.Organization{}
	err := row.Scan(&org.ID, &org.Name, &org.DisplayName, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return org, nil
}

func scanTeam(row rowScanner) (*models.Team, error) {
	team := &models.Team{}
	err := row.Scan(&team.ID, &team.Name, &team.OrganizationID, &team.UserID, &team.CreatedAt, &team.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return team, nil
}

// getOrg runs a single-row organization query, mapping no-rows to (nil, nil).
func (r *OrganizationRepository) getOrg(ctx context.Context, query string, arg any) (*models.Organization, error) {
	org, err := scanOrg(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// GetByName retrieves an organization by its name
func (r *OrganizationRepository) GetByName(ctx context.Context, name string) (*models.Organization, error) {
	return r.getOrg(ctx, "SELECT "+orgColumns+" FROM organizations WHERE name = $1", name)
}

// GetByID retrieves an organization by ID
func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	return r.getOrg(ctx, "SELECT "+orgColumns+" FROM organizations WHERE id = $1", id)
}

// Create creates a new organization
func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	query := `
		INSERT INTO organizations (name, display_name)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, org.Name, org.DisplayName).Scan(
		&org.ID, &org.CreatedAt, &org.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

// Update updates an organization
func (r *OrganizationRepository) Update(ctx context.Context, org *models.Organization) error {
	query := `UPDATE organizations SET display_name = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, org.ID, org.DisplayName); err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	return nil
}

// Delete deletes an organization. Teams, memberships, and org trials under it
// are removed by ON DELETE CASCADE.
func (r *OrganizationRepository) Delete(ctx context.Context, orgID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM organizations WHERE id = $1", orgID); err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	return nil
}

// queryOrgs runs a multi-row organization query and scans all results.
func (r *OrganizationRepository) queryOrgs(ctx context.Context, query string, args ...any) ([]*models.Organization, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orgs := make([]*models.Organization, 0)
	for rows.Next() {
		org, err := scanOrg(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

// List retrieves a paginated list of organizations
func (r *OrganizationRepository) List(ctx context.Context, limit, offset int) ([]*models.Organization, error) {
	orgs, err := r.queryOrgs(ctx,
		"SELECT "+orgColumns+" FROM organizations ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return orgs, nil
}

// Count returns the total number of organizations
func (r *OrganizationRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM organizations").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count organizations: %w", err)
	}
	return count, nil
}

// Search searches for organizations by name or display name
func (r *OrganizationRepository) Search(ctx context.Context, query string, limit, offset int) ([]*models.Organization, error) {
	orgs, err := r.queryOrgs(ctx, `
		SELECT `+orgColumns+`
		FROM organizations
		WHERE name ILIKE $1 OR display_name ILIKE $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, "%"+query+"%", limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to search organizations: %w", err)
	}
	return orgs, nil
}

// === Team Operations ===

// CreateTeam creates a new team inside an organization
func (r *OrganizationRepository) CreateTeam(ctx context.Context, team *models.Team) error {
	query := `
		INSERT INTO teams (name, organization_id, user_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, team.Name, team.OrganizationID, team.UserID).Scan(
		&team.ID, &team.CreatedAt, &team.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

// GetTeam retrieves a team by ID
func (r *OrganizationRepository) GetTeam(ctx context.Context, teamID string) (*models.Team, error) {
	team, err := scanTeam(r.db.QueryRowContext(ctx,
		"SELECT "+teamColumns+" FROM teams WHERE id = $1", teamID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

// UpdateTeam renames a team
func (r *OrganizationRepository) UpdateTeam(ctx context.Context, team *models.Team) error {
	query := `UPDATE teams SET name = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, team.ID, team.Name); err != nil {
		return fmt.Errorf("failed to update team: %w", err)
	}
	return nil
}

// DeleteTeam deletes a team. Memberships and org trials under it are removed
// by ON DELETE CASCADE.
func (r *OrganizationRepository) DeleteTeam(ctx context.Context, teamID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM teams WHERE id = $1", teamID); err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}
	return nil
}

// ListTeamsByOrganization retrieves all teams of an organization
func (r *OrganizationRepository) ListTeamsByOrganization(ctx context.Context, orgID string) ([]*models.Team, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+teamColumns+" FROM teams WHERE organization_id = $1 ORDER BY created_at DESC", orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

// === Membership Operations ===

// AssignUserToTeam provisions a user into a team. The profile row is created
// on first assignment; team_members has a UNIQUE(profile_id) constraint so a
// user belongs to at most one team, and re-assigning moves them.
func (r *OrganizationRepository) AssignUserToTeam(ctx context.Context, teamID, userID string) error {
	profileID, err := r.ensureProfile(ctx, userID)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO team_members (profile_id, team_id)
		VALUES ($1, $2)
		ON CONFLICT (profile_id) DO UPDATE SET team_id = EXCLUDED.team_id
	`
	if _, err := r.db.ExecContext(ctx, query, profileID, teamID); err != nil {
		return fmt.Errorf("failed to assign user to team: %w", err)
	}
	return nil
}

// RemoveUserFromTeam removes a user's team membership. The profile row stays
// so the account keeps its directory record; the user is simply no longer
// provisioned. Returns sql.ErrNoRows when no membership existed.
func (r *OrganizationRepository) RemoveUserFromTeam(ctx context.Context, teamID, userID string) error {
	query := `
		DELETE FROM team_members
		WHERE team_id = $1
		  AND profile_id = (SELECT id FROM profiles WHERE user_id = $2)
	`
	result, err := r.db.ExecContext(ctx, query, teamID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove user from team: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check removal: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListTeamMembers retrieves all members of a team with user details
func (r *OrganizationRepository) ListTeamMembers(ctx context.Context, teamID string) ([]*models.TeamMemberInfo, error) {
	query := `
		SELECT tm.profile_id, p.user_id,
		       COALESCE(u.name, '') as user_name, COALESCE(u.email, '') as user_email,
		       tm.team_id, tm.created_at
		FROM team_members tm
		JOIN profiles p ON p.id = tm.profile_id
		LEFT JOIN users u ON u.id = p.user_id
		WHERE tm.team_id = $1
		ORDER BY tm.created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	defer rows.Close()

	members := make([]*models.TeamMemberInfo, 0)
	for rows.Next() {
		member := &models.TeamMemberInfo{}
		err := rows.Scan(
			&member.ProfileID,
			&member.UserID,
			&member.UserName,
			&member.UserEmail,
			&member.TeamID,
			&member.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

// GetUserOrganizations retrieves the organizations a user belongs to through
// their team membership
func (r *OrganizationRepository) GetUserOrganizations(ctx context.Context, userID string) ([]*models.Organization, error) {
	orgs, err := r.queryOrgs(ctx, `
		SELECT o.id, o.name, o.display_name, o.created_at, o.updated_at
		FROM organizations o
		JOIN teams t ON t.organization_id = o.id
		JOIN team_members tm ON tm.team_id = t.id
		JOIN profiles p ON p.id = tm.profile_id
		WHERE p.user_id = $1
		ORDER BY o.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user organizations: %w", err)
	}
	return orgs, nil
}

// ensureProfile returns the profile ID for a user, creating the profile row
// if the account has never been provisioned before.
func (r *OrganizationRepository) ensureProfile(ctx context.Context, userID string) (string, error) {
	var profileID string

	err := r.db.QueryRowContext(ctx, "SELECT id FROM profiles WHERE user_id = $1", userID).Scan(&profileID)
	if err == nil {
		return profileID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to look up profile: %w", err)
	}

	insert := `
		INSERT INTO profiles (user_id, full_name)
		VALUES ($1, (SELECT name FROM users WHERE id = $1))
		RETURNING id
	`
	if err := r.db.QueryRowContext(ctx, insert, userID).Scan(&profileID); err != nil {
		return "", fmt.Errorf("failed to create profile: %w", err)
	}
	return profileID, nil
}
