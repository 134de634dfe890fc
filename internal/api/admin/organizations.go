// organizations.go covers organization and team CRUD plus directory
// provisioning: putting users into teams so the resolver can walk
// users -> profiles -> team_members -> teams.
package admin

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lexxi/lexxi/internal/db/models"
	"github.com/lexxi/lexxi/internal/db/repositories"
)

// OrganizationHandlers serves organization, team, and membership
// endpoints.
type OrganizationHandlers struct {
	orgRepo  *repositories.OrganizationRepository
	userRepo *repositories.UserRepository
}

func NewOrganizationHandlers(orgRepo *repositories.OrganizationRepository, userRepo *repositories.UserRepository) *OrganizationHandlers {
	return &OrganizationHandlers{orgRepo: orgRepo, userRepo: userRepo}
}

// loadOrg fetches the organization from the :id route param, writing
// the error response itself when it cannot. Callers bail out on nil.
func (h *OrganizationHandlers) loadOrg(c *gin.Context) *models.Organization {
	org, err := h.orgRepo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWith(c, http.StatusInternalServerError, "Failed to retrieve organization")
		return nil
	}
	if org == nil {
		abortWith(c, http.StatusNotFound, "Organization not found")
		return nil
	}
	return org
}

// loadTeam is loadOrg's counterpart for the teams routes.
func (h *OrganizationHandlers) loadTeam(c *gin.Context) *models.Team {
	team, err := h.orgRepo.GetTeam(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWith(c, http.StatusInternalServerError, "Failed to retrieve team")
		return nil
	}
	if team == nil {
		abortWith(c, http.StatusNotFound, "Team not found")
		return nil
	}
	return team
}

// @Summary      List organizations
// @Description  Paginated list of organizations, optionally narrowed by a search query. Admin only.
// @Tags         Admin
// @Security     Bearer
// @Produce      json
// @Param        q         query  string  false  "Search by name or display name"
// @Param        page      query  int     false  "Page number (default 1)"
// @Param        per_page  query  int     false  "Items per page, max 100 (default 20)"
// @Success      200  {object}  map[string]interface{}  "organizations: []models.Organization, pagination: map"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/organizations [get]
func (h *OrganizationHandlers) ListOrganizationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, perPage, offset := pageParams(c)

		var (
			orgs []*models.Organization
			err  error
		)
		if q := c.Query("q"); q != "" {
			orgs, err = h.orgRepo.Search(c.Request.Context(), q, perPage, offset)
		} else {
			orgs, err = h.orgRepo.List(c.Request.Context(), perPage, offset)
		}
		if err != nil {
			abortWith(c, http.StatusInternalServerError, "Failed to list organizations")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"organizations": orgs,
			"pagination":    gin.H{"page": page, "per_page": perPage},
		})
	}
}

// CreateOrganizationRequest is the body for POST /admin/organizations.
type CreateOrganizationRequest struct {
	Name        string `json:"name" binding:"required"`
	DisplayName string `json:"display_name"`
}

// @Summary      Create organization
// @Description  Create an organization tenant. Admin only.
// @Tags         Admin
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  CreateOrganizationRequest  true  "Organization creation request"
// @Success      201  {object}  map[string]interface{}  "organization: models.Organization"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      409  {object}  map[string]interface{}  "Organization with this name already exists"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/organizations [post]
func (h *OrganizationHandlers) CreateOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateOrganizationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWith(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}

		existing, err := h.orgRepo.GetByName(c.Request.Context(), req.Name)
		if err != nil {
			abortWith(c, http.StatusInternalServerError, "Failed to check existing organization")
			return
		}
		if existing != nil {
			abortWith(c, http.StatusConflict, "Organization with this name already exists")
			return
		}

		org := &models.Organization{Name: req.Name, DisplayName: req.DisplayName}
		if err := h.orgRepo.Create(c.Request.Context(), org); err != nil {
			abortWith(c, http.StatusInternalServerError, "Failed to create organization")
			return
		}

		c.JSON(http.StatusCreated, gin.H{"organization": org})
	}
}

// @Summary      Get organization
// @Description  Fetch an organization together with its teams. Admin only.
// @Tags         Admin
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Organization ID"
// @Success      200  {object}  map[string]interface{}  "organization: models.Organization, teams: []models.Team"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Organization not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/organizations/{id} [get]
func (h *OrganizationHandlers) GetOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		org := h.loadOrg(c)
		if org == nil {
			return
		}

		teams, err := h.orgRepo.ListTeamsByOrganization(c.Request.Context(), org.ID)
		if err != nil {
			abortWith(c, http.StatusInternalServerError, "Failed to retrieve teams")
			return
		}

		c.JSON(http.StatusOK, gin.H{"organization": org, "teams": teams})
	}
}

// UpdateOrganizationRequest is the body for PUT /admin/organizations/:id.
type UpdateOrganizationRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
}

// @Summary      Update organization
// @Description  Change an organization's display name. Admin only.
// @Tags         Admin
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "Organization ID"
// @Param        body  body  UpdateOrganizationRequest  true  "Organization update request"
// @Success      200  {object}  map[string]interface{}  "organization: models.Organization"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Organization not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/organizations/{id} [put]
func (h *OrganizationHandlers) UpdateOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateOrganizationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWith(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}

		org := h.loadOrg(c)
		if org == nil {
			return
		}

		org.DisplayName = req.DisplayName
		if err := h.orgRepo.Update(c.Request.Context(), org); err != nil {
			abortWith(c, http.StatusInternalServerError, "Failed to update organization")
			return
		}

		c.JSON(http.StatusOK, gin.H{"organization": org})
	}
}

// @Summary      Delete organization
// @Description  Delete an organization. Teams, memberships, and team workspaces under it cascade away. Admin only.
// @Tags         Admin
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Organization ID"
// @Success      200  {object}  map[string]interface{}  "message: Organization deleted successfully"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Organization not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/organizations/{id} [delete]
func (h *OrganizationHandlers) DeleteOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		org := h.loadOrg(c)
		if org == nil {
			return
		}

		if err := h.orgRepo.Delete(c.Request.Context(), org.ID); err != nil {
			abortWith(c, http.StatusInternalServerError, "Failed to delete organization")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Organization deleted successfully"})
	}
}

// CreateTeamRequest is the body for POST /admin/organizations/:id/teams.
type CreateTeamRequest struct {
	Name string `json:"name" binding:"required"`
}

// @Summary      Create team
// @Description  Create a team inside an organization. Admin only.
// @Tags         Admin
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string             true  "Organization ID"
// @Param        body  body  CreateTeamRequest  true  "Team creation request"
// @Success      201  {object}  map[string]interface{}  "team: models.Team"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Organization not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/organizations/{id}/teams [post]
func (h *OrganizationHandlers) CreateTeamHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateTeamRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWith(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}

		org := h.loadOrg(c)
		if org == nil {
			return
		}

		team := &models.Team{Name: req.Name, OrganizationID: org.ID}
		if err := h.orgRepo.CreateTeam(c.Request.Context(), team); err != nil {
			abortWith(c, http.StatusInternalServerError, "Failed to create team")
			return
		}

		c.JSON(http.StatusCreated, gin.H{"team": team})
	}
}

// UpdateTeamRequest is the body for PUT /admin/teams/:id.
type UpdateTeamRequest struct {
	Name string `json:"name" binding:"required"`
}

// @Summary      Rename team
// @Description  Change a team's name. Admin only.
// @Tags         Admin
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string             true  "Team ID"
// @Param        body  body  UpdateTeamRequest  true  "Team update request"
// @Success      200  {object}  map[string]interface{}  "team: models.Team"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Team not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/teams/{id} [put]
func (h *OrganizationHandlers) UpdateTeamHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateTeamRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWith(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}

		team := h.loadTeam(c)
		if team == nil {
			return
		}

		team.Name = req.Name
		if err := h.orgRepo.UpdateTeam(c.Request.Context(), team); err != nil {
			abortWith(c, http.StatusInternalServerError, "Failed to update team")
			return
		}

		c.JSON(http.StatusOK, gin.H{"team": team})
	}
}

// @Summary      Delete team
// @Description  Delete a team. Memberships and the team's workspace rows cascade away. Admin only.
// @Tags         Admin
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Team ID"
// @Success      200  {object}  map[string]interface{}  "message: Team deleted successfully"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Team not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/teams/{id} [delete]
func (h *OrganizationHandlers) DeleteTeamHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		team := h.loadTeam(c)
		if team == nil {
			return
		}

		if err := h.orgRepo.DeleteTeam(c.Request.Context(), team.ID); err != nil {
			abortWith(c, http.StatusInternalServerError, "Failed to delete team")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Team deleted successfully"})
	}
}

// @Summary      List team members
// @Description  All members of a team with their user details. Admin only.
// @Tags         Admin
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Team ID"
// @Success      200  {object}  map[string]interface{}  "members: []models.TeamMemberInfo"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Team not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/teams/{id}/members [get]
func (h *OrganizationHandlers) ListTeamMembersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		team := h.loadTeam(c)
		if team == nil {
			return
		}

		members, err := h.orgRepo.ListTeamMembers(c.Request.Context(), team.ID)
		if err != nil {
			abortWith(c, http.StatusInternalServerError, "Failed to list team members")
			return
		}

		c.JSON(http.StatusOK, gin.H{"members": members})
	}
}

// AddTeamMemberRequest is the body for POST /admin/teams/:id/members.
type AddTeamMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// @Summary      Add team member
// @Description  Provision a user into a team. Their profile row is created on first assignment; re-assigning moves them to the new team. Admin only.
// @Tags         Admin
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                true  "Team ID"
// @Param        body  body  AddTeamMemberRequest  true  "Member assignment request"
// @Success      201  {object}  map[string]interface{}  "message: User assigned to team"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Team or user not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/teams/{id}/members [post]
func (h *OrganizationHandlers) AddTeamMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AddTeamMemberRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWith(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}

		team := h.loadTeam(c)
		if team == nil {
			return
		}

		user, err := h.userRepo.GetUserByID(c.Request.Context(), req.UserID)
		if err != nil {
			abortWith(c, http.StatusInternalServerError, "Failed to retrieve user")
			return
		}
		if user == nil {
			abortWith(c, http.StatusNotFound, "User not found")
			return
		}

		if err := h.orgRepo.AssignUserToTeam(c.Request.Context(), team.ID, req.UserID); err != nil {
			abortWith(c, http.StatusInternalServerError, "Failed to assign user to team")
			return
		}

		c.JSON(http.StatusCreated, gin.H{"message": "User assigned to team"})
	}
}

// @Summary      Remove team member
// @Description  Drop a user's team membership. The account remains but is no longer provisioned. Admin only.
// @Tags         Admin
// @Security     Bearer
// @Produce      json
// @Param        id       path  string  true  "Team ID"
// @Param        user_id  path  string  true  "User ID"
// @Success      200  {object}  map[string]interface{}  "message: User removed from team"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Membership not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/teams/{id}/members/{user_id} [delete]
func (h *OrganizationHandlers) RemoveTeamMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		teamID := c.Param("id")
		userID := c.Param("user_id")

		err := h.orgRepo.RemoveUserFromTeam(c.Request.Context(), teamID, userID)
		if errors.Is(err, sql.ErrNoRows) {
			abortWith(c, http.StatusNotFound, "Membership not found")
			return
		}
		if err != nil {
			abortWith(c, http.StatusInternalServerError, "Failed to remove user from team")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "User removed from team"})
	}
}
