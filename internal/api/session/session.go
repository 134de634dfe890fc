// Package session implements HTTP handlers for password login, session
// introspection, token refresh, and logout.
package session

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lexxi/lexxi/internal/auth"
	"github.com/lexxi/lexxi/internal/config"
	"github.com/lexxi/lexxi/internal/db/models"
	"github.com/lexxi/lexxi/internal/db/repositories"
)

// SessionCookie is the cookie the login handler sets so that browser page
// navigations (which cannot attach an Authorization header) stay signed in.
const SessionCookie = "lexxi_session"

// Handlers serves the /api/v1/auth endpoints
type Handlers struct {
	cfg      *config.Config
	userRepo *repositories.UserRepository
}

// NewHandlers creates a new session Handlers instance
func NewHandlers(cfg *config.Config, userRepo *repositories.UserRepository) *Handlers {
	return &Handlers{cfg: cfg, userRepo: userRepo}
}

// loginRequest is the POST /auth/login body
type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// userPayload shapes the identity object returned to the frontend
func userPayload(u *models.User) gin.H {
	return gin.H{
		"id":    u.ID,
		"email": u.Email,
		"name":  u.Name,
		"role":  u.Role,
	}
}

// @Summary      Password login
// @Description  Validate email and password, issue a session JWT, and set the session cookie.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        body  body  object  true  "email, password"
// @Success      200  {object}  map[string]interface{}  "token, expires_in, user"
// @Failure      400  {object}  map[string]interface{}  "Malformed request body"
// @Failure      401  {object}  map[string]interface{}  "Invalid credentials"
// @Router       /api/v1/auth/login [post]
// LoginHandler validates credentials and issues a session token.
// POST /api/v1/auth/login
func (h *Handlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "email and password are required",
			})
			return
		}

		user, err := h.userRepo.GetUserByEmail(c.Request.Context(), req.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load user",
			})
			return
		}

		// Unknown account and wrong password return the same error so the
		// endpoint does not leak which emails exist.
		if user == nil || !auth.CheckPassword(req.Password, user.PasswordHash) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid credentials",
			})
			return
		}

		token, err := auth.GenerateJWT(user.ID, user.Email, h.cfg.Auth.TokenTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to issue session token",
			})
			return
		}

		c.SetCookie(SessionCookie, token, int(h.cfg.Auth.TokenTTL.Seconds()), "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{
			"token":      token,
			"expires_in": int(h.cfg.Auth.TokenTTL.Seconds()),
			"user":       userPayload(user),
		})
	}
}

// @Summary      Current session
// @Description  Return the identity of the authenticated user.
// @Tags         Authentication
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "user"
// @Failure      401  {object}  map[string]interface{}  "Not authenticated"
// @Router       /api/v1/auth/me [get]
// MeHandler returns the caller's identity.
// GET /api/v1/auth/me
func (h *Handlers) MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Not authenticated",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": userPayload(user)})
	}
}

// @Summary      Refresh session token
// @Description  Issue a fresh JWT for the authenticated user, extending the session.
// @Tags         Authentication
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "token, expires_in"
// @Failure      401  {object}  map[string]interface{}  "Not authenticated"
// @Router       /api/v1/auth/refresh [post]
// RefreshHandler re-issues the session token with a fresh expiry.
// POST /api/v1/auth/refresh
func (h *Handlers) RefreshHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Not authenticated",
			})
			return
		}

		token, err := auth.GenerateJWT(user.ID, user.Email, h.cfg.Auth.TokenTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to issue session token",
			})
			return
		}

		c.SetCookie(SessionCookie, token, int(h.cfg.Auth.TokenTTL.Seconds()), "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{
			"token":      token,
			"expires_in": int(h.cfg.Auth.TokenTTL.Seconds()),
		})
	}
}

// @Summary      Logout
// @Description  Clear the session cookie. Tokens are stateless, so logout always succeeds; the client drops its copy.
// @Tags         Authentication
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "message"
// @Router       /api/v1/auth/logout [post]
// LogoutHandler clears the session cookie.
// POST /api/v1/auth/logout
func (h *Handlers) LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}

// currentUser reads the user the auth middleware stored on the context.
func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get("user")
	if !ok {
		return nil
	}
	user, ok := v.(*models.User)
	if !ok {
		return nil
	}
	return user
}
