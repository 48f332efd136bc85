package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vyhuholl/test-backend/internal/core/port"
	"github.com/vyhuholl/test-backend/internal/transport/http/middleware"
	"github.com/vyhuholl/test-backend/internal/usecase"
)

// AdminHandler exposes the RBAC management endpoints: roles, business
// elements, access rules, and role assignments.
type AdminHandler struct {
	admin *usecase.RoleAdminService
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(admin *usecase.RoleAdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// RegisterRoutes binds the admin routes. The group is expected to carry
// the auth and admin-role middleware already.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/roles", h.listRoles)
	r.POST("/roles", h.createRole)
	r.PATCH("/roles/:id", h.updateRole)
	r.DELETE("/roles/:id", h.deleteRole)

	r.GET("/elements", h.listElements)
	r.POST("/elements", h.createElement)

	r.GET("/access-rules", h.listRules)
	r.POST("/access-rules", h.createRule)
	r.PUT("/access-rules/:id", h.updateRule)
	r.DELETE("/access-rules/:id", h.deleteRule)

	r.GET("/users", h.listUsers)
	r.GET("/users/:id/roles", h.listUserRoles)
	r.POST("/users/:id/roles", h.assignRole)
	r.DELETE("/users/:id/roles/:roleID", h.removeRole)
}

func (h *AdminHandler) listRoles(c *gin.Context) {
	roles, err := h.admin.ListRoles(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "list roles failed"))
		return
	}

	out := make([]RoleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, NewRoleResponse(role))
	}
	c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) createRole(c *gin.Context) {
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	role, err := h.admin.CreateRole(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrRoleExists, Status: http.StatusConflict, Message: "role already exists"},
		}, http.StatusInternalServerError, "create role failed")
		return
	}

	c.JSON(http.StatusCreated, NewRoleResponse(*role))
}

func (h *AdminHandler) updateRole(c *gin.Context) {
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	role, err := h.admin.UpdateRole(c.Request.Context(), c.Param("id"), req.Description)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role not found"},
		}, http.StatusInternalServerError, "update role failed")
		return
	}

	c.JSON(http.StatusOK, NewRoleResponse(*role))
}

func (h *AdminHandler) deleteRole(c *gin.Context) {
	if err := h.admin.DeleteRole(c.Request.Context(), c.Param("id")); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role not found"},
			{Err: usecase.ErrRoleInUse, Status: http.StatusConflict, Message: "role has active assignments"},
		}, http.StatusInternalServerError, "delete role failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "role deleted"})
}

func (h *AdminHandler) listElements(c *gin.Context) {
	elements, err := h.admin.ListElements(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "list elements failed"))
		return
	}

	out := make([]ElementResponse, 0, len(elements))
	for _, element := range elements {
		out = append(out, NewElementResponse(element))
	}
	c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) createElement(c *gin.Context) {
	var req ElementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	element, err := h.admin.CreateElement(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrElementExists, Status: http.StatusConflict, Message: "business element already exists"},
		}, http.StatusInternalServerError, "create element failed")
		return
	}

	c.JSON(http.StatusCreated, NewElementResponse(*element))
}

func (h *AdminHandler) listRules(c *gin.Context) {
	filter := port.RuleFilter{
		RoleID:    c.Query("role_id"),
		ElementID: c.Query("element_id"),
	}

	// Rules can also be filtered by the role's name instead of its id.
	if name := c.Query("role"); name != "" {
		role, err := h.admin.GetRoleByName(c.Request.Context(), name)
		if err != nil {
			RespondWithMappedError(c, err, []ErrorCase{
				{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role not found"},
			}, http.StatusInternalServerError, "list rules failed")
			return
		}
		filter.RoleID = role.ID
	}

	rules, err := h.admin.ListRules(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "list rules failed"))
		return
	}

	out := make([]RuleResponse, 0, len(rules))
	for _, rule := range rules {
		out = append(out, NewRuleResponse(rule))
	}
	c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) createRule(c *gin.Context) {
	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RoleID == "" || req.ElementID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	rule, err := h.admin.CreateRule(c.Request.Context(), req.RoleID, req.ElementID, ruleFlags(req))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role not found"},
			{Err: usecase.ErrElementNotFound, Status: http.StatusNotFound, Message: "business element not found"},
			{Err: usecase.ErrRuleExists, Status: http.StatusConflict, Message: "access rule already exists"},
		}, http.StatusInternalServerError, "create rule failed")
		return
	}

	c.JSON(http.StatusCreated, NewRuleResponse(*rule))
}

func (h *AdminHandler) updateRule(c *gin.Context) {
	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	rule, err := h.admin.UpdateRule(c.Request.Context(), c.Param("id"), ruleFlags(req))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrRuleNotFound, Status: http.StatusNotFound, Message: "access rule not found"},
		}, http.StatusInternalServerError, "update rule failed")
		return
	}

	c.JSON(http.StatusOK, NewRuleResponse(*rule))
}

func (h *AdminHandler) deleteRule(c *gin.Context) {
	if err := h.admin.DeleteRule(c.Request.Context(), c.Param("id")); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrRuleNotFound, Status: http.StatusNotFound, Message: "access rule not found"},
		}, http.StatusInternalServerError, "delete rule failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "rule deleted"})
}

func (h *AdminHandler) listUsers(c *gin.Context) {
	var filter port.UserFilter

	if raw := c.Query("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid is_active value"))
			return
		}
		filter.IsActive = &active
	}

	var err error
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid limit value"))
		return
	}
	if filter.Offset, err = queryInt(c, "offset"); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid offset value"))
		return
	}

	users, total, err := h.admin.ListUsers(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "list users failed"))
		return
	}

	out := make([]UserProfile, 0, len(users))
	for i := range users {
		out = append(out, NewUserProfile(&users[i]))
	}
	c.JSON(http.StatusOK, UserListResponse{Total: total, Users: out})
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid %s value", name)
	}
	return value, nil
}

func (h *AdminHandler) listUserRoles(c *gin.Context) {
	roles, err := h.admin.ListUserRoles(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "list user roles failed"))
		return
	}

	out := make([]RoleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, NewRoleResponse(role))
	}
	c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) assignRole(c *gin.Context) {
	var req AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	actorID, _ := middleware.GetAuthenticatedUserID(c)
	err := h.admin.AssignRole(c.Request.Context(), c.Param("id"), req.RoleID, actorID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
			{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role not found"},
		}, http.StatusInternalServerError, "assign role failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "role assigned"})
}

func (h *AdminHandler) removeRole(c *gin.Context) {
	actorID, _ := middleware.GetAuthenticatedUserID(c)
	err := h.admin.RemoveRole(c.Request.Context(), c.Param("id"), c.Param("roleID"), actorID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrRoleNotFound, Status: http.StatusNotFound, Message: "role assignment not found"},
		}, http.StatusInternalServerError, "remove role failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "role removed"})
}

func ruleFlags(req RuleRequest) usecase.RuleFlags {
	return usecase.RuleFlags{
		ReadOwn:   req.ReadOwn,
		ReadAny:   req.ReadAny,
		Create:    req.Create,
		UpdateOwn: req.UpdateOwn,
		UpdateAny: req.UpdateAny,
		DeleteOwn: req.DeleteOwn,
		DeleteAny: req.DeleteAny,
	}
}
