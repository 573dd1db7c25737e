package api

import (
	"alcyxob/bmi-tracker/internal/domain"
	"alcyxob/bmi-tracker/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CookieOptions controls how the session cookie is written.
type CookieOptions struct {
	Name   string
	MaxAge int // seconds
	Secure bool
}

// AuthHandler holds the authentication service dependency.
type AuthHandler struct {
	authService service.AuthService
	cookie      CookieOptions
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthService, cookie CookieOptions) *AuthHandler {
	return &AuthHandler{authService: authService, cookie: cookie}
}

// --- Request/Response Structs ---

type SignupRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type InstructorLoginRequest struct {
	LoginID  string `json:"loginId"`
	Password string `json:"password"`
}

// UserResponse excludes sensitive info like password hash. Token repeats the
// session cookie for clients using the Authorization header.
type UserResponse struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
	Token string      `json:"token,omitempty"`
}

type InstructorResponse struct {
	domain.InstructorProfile
	Token string `json:"token,omitempty"`
}

// --- Handler Methods ---

// Signup godoc
// @Summary Register a new user
// @Description Creates a user account and starts a session.
// @Tags Auth
// @Accept json
// @Produce json
// @Param user body SignupRequest true "Signup details"
// @Success 200 {object} UserResponse
// @Failure 400 {object} errorResponse "Missing fields or email already used"
// @Failure 500 {object} errorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	user, token, err := h.authService.Signup(c.Request.Context(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.setSessionCookie(c, token)
	c.JSON(http.StatusOK, mapUserToResponse(user, token))
}

// Login godoc
// @Summary Log in a user
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Login credentials"
// @Success 200 {object} UserResponse
// @Failure 400 {object} errorResponse "Missing fields or invalid credentials"
// @Failure 429 {object} errorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	user, token, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setSessionCookie(c, token)
	c.JSON(http.StatusOK, mapUserToResponse(user, token))
}

// Logout godoc
// @Summary End the session
// @Tags Auth
// @Produce json
// @Success 200 {object} errorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	c.JSON(http.StatusOK, gin.H{"msg": "Logged out"})
}

// Me godoc
// @Summary Current user
// @Description Returns {user: null} without a user session.
// @Tags Auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authService.Me(c.Request.Context(), principalFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if user == nil {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// InstructorLogin godoc
// @Summary Log in as the instructor
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body InstructorLoginRequest true "Instructor credentials"
// @Success 200 {object} InstructorResponse
// @Failure 400 {object} errorResponse "Login ID and password required"
// @Failure 401 {object} errorResponse "Invalid instructor credentials"
// @Failure 429 {object} errorResponse
// @Router /auth/instructor-login [post]
func (h *AuthHandler) InstructorLogin(c *gin.Context) {
	var req InstructorLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	profile, token, err := h.authService.InstructorLogin(c.Request.Context(), req.LoginID, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setSessionCookie(c, token)
	c.JSON(http.StatusOK, InstructorResponse{InstructorProfile: *profile, Token: token})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, h.cookie.MaxAge, "/", "", h.cookie.Secure, true)
}

// mapUserToResponse converts a domain User to a UserResponse DTO.
func mapUserToResponse(user *domain.User, token string) UserResponse {
	if user == nil {
		return UserResponse{}
	}
	return UserResponse{
		ID:    user.ID.Hex(),
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
		Token: token,
	}
}
