// Package admin is the administrative API surface: user accounts,
// organizations, teams, and directory provisioning. Every route here is
// mounted behind RequireRole("admin"), so handlers do not re-check the
// caller's role. Assigning a user to a team is what provisions their
// account; until then team-scoped requests answer 403.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lexxi/lexxi/internal/auth"
	"github.com/lexxi/lexxi/internal/config"
	"github.com/lexxi/lexxi/internal/db/models"
	"github.com/lexxi/lexxi/internal/db/repositories"
)

// UserHandlers serves the account management endpoints.
type UserHandlers struct {
	cfg      *config.Config
	userRepo *repositories.UserRepository
	orgRepo  *repositories.OrganizationRepository
}

func NewUserHandlers(cfg *config.Config, userRepo *repositories.UserRepository, orgRepo *repositories.OrganizationRepository) *UserHandlers {
	return &UserHandlers{cfg: cfg, userRepo: userRepo, orgRepo: orgRepo}
}

// @Summary      List users
// @Description  Paginated list of all user accounts. Admin only.
// @Tags         Admin
// @Security     Bearer
// @Produce      json
// @Param        page      query  int  false  "Page number (default 1)"
// @Param        per_page  query  int  false  "Items per page, max 100 (default 20)"
// @Success      200  {object}  map[string]interface{}  "users: []models.User, pagination: map"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/users [get]
func (h *UserHandlers) ListUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, perPage, offset := pageParams(c)

		users, total, err := h.userRepo.ListUsers(c.Request.Context(), perPage, offset)
		if err != nil {
			abortWith(c, http.StatusInternalServerError, "Failed to list users")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"users": users,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
				"total":    total,
			},
		})
	}
}

// @Summary      Get user
// @Description  Fetch a user together with the organizations their team memberships reach. Admin only.
// @Tags         Admin
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "User ID"
// @Success      200  {object}  map[string]interface{}  "user: models.User, organizations: []models.Organization"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/users/{id} [get]
func (h *UserHandlers) GetUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("id")

		user, err := h.userRepo.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			abortWith(c, http.StatusInternalServerError, "Failed to retrieve user")
			return
		}
		if user == nil {
			abortWith(c, http.StatusNotFound, "User not found")
			return
		}

		orgs, err := h.orgRepo.GetUserOrganizations(c.Request.Context(), userID)
		if err != nil {
			abortWith(c, http.StatusInternalServerError, "Failed to retrieve user organizations")
			return
		}

		c.JSON(http.StatusOK, gin.H{"user": user, "organizations": orgs})
	}
}

// CreateUserRequest is the body for POST /admin/users.
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role"`
}

// @Summary      Create user
// @Description  Create a user account. The password is bcrypt-hashed before storage. Admin only.
// @Tags         Admin
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  CreateUserRequest  true  "User creation request"
// @Success      201  {object}  map[string]interface{}  "user: models.User"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      409  {object}  map[string]interface{}  "User with this email already exists"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/users [post]
func (h *UserHandlers) CreateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWith(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}

		existing, err := h.userRepo.GetUserByEmail(c.Request.Context(), req.Email)
		if err != nil {
			abortWith(c, http.StatusInternalServerError, "Failed to check existing user")
			return
		}
		if existing != nil {
			abortWith(c, http.StatusConflict, "User with this email already exists")
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			abortWith(c, http.StatusInternalServerError, "Failed to hash password")
			return
		}

		user := &models.User{
			Email:        req.Email,
			Name:         req.Name,
			PasswordHash: hash,
			Role:         req.Role,
		}
		if err := h.userRepo.CreateUser(c.Request.Context(), user); err != nil {
			abortWith(c, http.StatusInternalServerError, "Failed to create user")
			return
		}

		c.JSON(http.StatusCreated, gin.H{"user": user})
	}
}

// UpdateUserRequest is the body for PUT /admin/users/:id. Nil fields
// are left unchanged.
type UpdateUserRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email,omitempty"`
	Role  *string `json:"role,omitempty"`
}

// @Summary      Update user
// @Description  Change a user's name, email, or role. Admin only.
// @Tags         Admin
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string             true  "User ID"
// @Param        body  body  UpdateUserRequest  true  "User update request"
// @Success      200  {object}  map[string]interface{}  "user: models.User"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Failure      409  {object}  map[string]interface{}  "Email already in use by another user"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/users/{id} [put]
func (h *UserHandlers) UpdateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("id")

		var req UpdateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWith(c, http.StatusBadRequest, "Invalid request: "+err.Error())
			return
		}

		user, err := h.userRepo.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			abortWith(c, http.StatusInternalServerError, "Failed to retrieve user")
			return
		}
		if user == nil {
			abortWith(c, http.StatusNotFound, "User not found")
			return
		}

		if req.Name != nil {
			user.Name = *req.Name
		}
		if req.Role != nil {
			user.Role = *req.Role
		}
		if req.Email != nil {
			// Changing the email must not collide with another account.
			holder, err := h.userRepo.GetUserByEmail(c.Request.Context(), *req.Email)
			if err != nil {
				abortWith(c, http.StatusInternalServerError, "Failed to check email availability")
				return
			}
			if holder != nil && holder.ID != userID {
				abortWith(c, http.StatusConflict, "Email already in use by another user")
				return
			}
			user.Email = *req.Email
		}

		if err := h.userRepo.UpdateUser(c.Request.Context(), user); err != nil {
			abortWith(c, http.StatusInternalServerError, "Failed to update user")
			return
		}

		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

// @Summary      Delete user
// @Description  Delete a user. Their directory profile and team membership rows go with them by cascade. Admin only.
// @Tags         Admin
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "User ID"
// @Success      200  {object}  map[string]interface{}  "message: User deleted successfully"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/users/{id} [delete]
func (h *UserHandlers) DeleteUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("id")

		user, err := h.userRepo.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			abortWith(c, http.StatusInternalServerError, "Failed to retrieve user")
			return
		}
		if user == nil {
			abortWith(c, http.StatusNotFound, "User not found")
			return
		}

		if err := h.userRepo.DeleteUser(c.Request.Context(), userID); err != nil {
			abortWith(c, http.StatusInternalServerError, "Failed to delete user")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
	}
}

// @Summary      Search users
// @Description  Case-insensitive substring search over email and name. Admin only.
// @Tags         Admin
// @Security     Bearer
// @Produce      json
// @Param        q         query  string  true   "Search query"
// @Param        page      query  int     false  "Page number (default 1)"
// @Param        per_page  query  int     false  "Items per page, max 100 (default 20)"
// @Success      200  {object}  map[string]interface{}  "users: []models.User, pagination: map"
// @Failure      400  {object}  map[string]interface{}  "Search query is required"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/admin/users/search [get]
func (h *UserHandlers) SearchUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Query("q")
		if query == "" {
			abortWith(c, http.StatusBadRequest, "Search query is required")
			return
		}

		page, perPage, offset := pageParams(c)

		users, err := h.userRepo.SearchUsers(c.Request.Context(), query, perPage, offset)
		if err != nil {
			abortWith(c, http.StatusInternalServerError, "Failed to search users")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"users": users,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
			},
		})
	}
}
