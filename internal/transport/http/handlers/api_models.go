package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyhuholl/test-backend/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for
// debugging. RetryAfter is set only on throttled responses, in seconds.
type ErrorResponse struct {
	Error      string `json:"error"`
	TraceID    string `json:"trace_id,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

// NewErrorResponse creates an error response with the trace ID from context.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserProfile is the API view of an account. The password hash never
// leaves the service.
type UserProfile struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	MiddleName  *string    `json:"middle_name,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// NewUserProfile maps a domain user onto the API view.
func NewUserProfile(user *domain.User) UserProfile {
	return UserProfile{
		ID:          user.ID,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		MiddleName:  user.MiddleName,
		IsActive:    user.IsActive,
		CreatedAt:   user.CreatedAt,
		LastLoginAt: user.LastLoginAt,
	}
}

// UserListResponse is the paginated admin view of accounts. Total counts
// every match, not just the returned page.
type UserListResponse struct {
	Total int           `json:"total"`
	Users []UserProfile `json:"users"`
}

// RegisterRequest defines the account registration payload.
type RegisterRequest struct {
	Email      string  `json:"email" binding:"required"`
	Password   string  `json:"password" binding:"required"`
	FirstName  string  `json:"first_name" binding:"required"`
	LastName   string  `json:"last_name" binding:"required"`
	MiddleName *string `json:"middle_name"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse describes a successful login.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int         `json:"expires_in"`
	User        UserProfile `json:"user"`
}

// UpdateProfileRequest carries the mutable profile fields. Absent fields
// stay unchanged.
type UpdateProfileRequest struct {
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	MiddleName *string `json:"middle_name"`
}

// ChangePasswordRequest carries a self-service password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// RoleRequest defines the payload for creating or updating a role.
type RoleRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// RoleResponse is the API view of a role.
type RoleResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewRoleResponse maps a domain role onto the API view.
func NewRoleResponse(role domain.Role) RoleResponse {
	return RoleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		CreatedAt:   role.CreatedAt,
	}
}

// ElementRequest defines the payload for registering a business element.
type ElementRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

// ElementResponse is the API view of a business element.
type ElementResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewElementResponse maps a domain element onto the API view.
func NewElementResponse(element domain.BusinessElement) ElementResponse {
	return ElementResponse{
		ID:          element.ID,
		Name:        element.Name,
		Description: element.Description,
		CreatedAt:   element.CreatedAt,
	}
}

// RuleRequest defines the payload for creating or updating an access rule.
type RuleRequest struct {
	RoleID    string `json:"role_id"`
	ElementID string `json:"element_id"`
	ReadOwn   bool   `json:"read_own"`
	ReadAny   bool   `json:"read_any"`
	Create    bool   `json:"create"`
	UpdateOwn bool   `json:"update_own"`
	UpdateAny bool   `json:"update_any"`
	DeleteOwn bool   `json:"delete_own"`
	DeleteAny bool   `json:"delete_any"`
}

// RuleResponse is the API view of an access rule.
type RuleResponse struct {
	ID        string    `json:"id"`
	RoleID    string    `json:"role_id"`
	ElementID string    `json:"element_id"`
	ReadOwn   bool      `json:"read_own"`
	ReadAny   bool      `json:"read_any"`
	Create    bool      `json:"create"`
	UpdateOwn bool      `json:"update_own"`
	UpdateAny bool      `json:"update_any"`
	DeleteOwn bool      `json:"delete_own"`
	DeleteAny bool      `json:"delete_any"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRuleResponse maps a domain rule onto the API view.
func NewRuleResponse(rule domain.AccessRule) RuleResponse {
	return RuleResponse{
		ID:        rule.ID,
		RoleID:    rule.RoleID,
		ElementID: rule.ElementID,
		ReadOwn:   rule.ReadOwn,
		ReadAny:   rule.ReadAny,
		Create:    rule.Create,
		UpdateOwn: rule.UpdateOwn,
		UpdateAny: rule.UpdateAny,
		DeleteOwn: rule.DeleteOwn,
		DeleteAny: rule.DeleteAny,
		CreatedAt: rule.CreatedAt,
	}
}

// AssignRoleRequest defines the payload for granting a role to a user.
type AssignRoleRequest struct {
	RoleID string `json:"role_id" binding:"required"`
}

// HealthResponse describes the liveness payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse describes the readiness payload with per-dependency
// results.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
