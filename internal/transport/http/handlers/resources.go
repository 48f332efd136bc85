package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vyhuholl/test-backend/internal/core/domain"
	"github.com/vyhuholl/test-backend/internal/transport/http/middleware"
	"github.com/vyhuholl/test-backend/internal/usecase"
)

// ResourceObject is a demo object served by the mock resource endpoints.
type ResourceObject struct {
	ID      string `json:"id"`
	Element string `json:"element"`
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`
}

// ResourceListResponse describes a mock list response annotated with the
// scope the caller was granted.
type ResourceListResponse struct {
	Scope   string           `json:"scope"`
	Objects []ResourceObject `json:"objects"`
}

// ResourceHandler serves mock objects gated by the permission engine. The
// objects are synthetic; the point of these endpoints is exercising the
// access rules end to end. Object "1" always belongs to the caller and the
// rest to other users, so own/any grants produce observably different
// results.
type ResourceHandler struct {
	permissions *usecase.PermissionEngine
}

// NewResourceHandler constructs a ResourceHandler.
func NewResourceHandler(permissions *usecase.PermissionEngine) *ResourceHandler {
	return &ResourceHandler{permissions: permissions}
}

// RegisterRoutes binds the mock resource routes. The group is expected to
// carry the auth middleware already.
func (h *ResourceHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/:element", h.list)
	r.GET("/:element/:id", h.get)
	r.POST("/:element", h.create)
	r.PUT("/:element/:id", h.update)
	r.DELETE("/:element/:id", h.remove)
}

const foreignOwnerID = "00000000-0000-0000-0000-000000000002"

func mockObjects(element, callerID string) []ResourceObject {
	return []ResourceObject{
		{ID: "1", Element: element, OwnerID: callerID, Name: fmt.Sprintf("%s #1", element)},
		{ID: "2", Element: element, OwnerID: foreignOwnerID, Name: fmt.Sprintf("%s #2", element)},
		{ID: "3", Element: element, OwnerID: foreignOwnerID, Name: fmt.Sprintf("%s #3", element)},
	}
}

func findMockObject(element, callerID, id string) (ResourceObject, bool) {
	for _, obj := range mockObjects(element, callerID) {
		if obj.ID == id {
			return obj, true
		}
	}
	return ResourceObject{}, false
}

func (h *ResourceHandler) list(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	element := c.Param("element")
	scope, err := h.permissions.ResolveReadScope(c.Request.Context(), userID, element)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "permission check failed"))
		return
	}

	switch scope {
	case usecase.ReadScopeAny:
		c.JSON(http.StatusOK, ResourceListResponse{
			Scope:   "any",
			Objects: mockObjects(element, userID),
		})
	case usecase.ReadScopeOwn:
		owned := make([]ResourceObject, 0, 1)
		for _, obj := range mockObjects(element, userID) {
			if obj.OwnerID == userID {
				owned = append(owned, obj)
			}
		}
		c.JSON(http.StatusOK, ResourceListResponse{
			Scope:   "own",
			Objects: owned,
		})
	default:
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "permission denied"))
	}
}

func (h *ResourceHandler) get(c *gin.Context) {
	h.objectAction(c, domain.ActionRead, func(c *gin.Context, obj ResourceObject) {
		c.JSON(http.StatusOK, obj)
	})
}

func (h *ResourceHandler) create(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	element := c.Param("element")
	// Create has a single flag; ownership does not apply to an object that
	// does not exist yet.
	allowed, err := h.permissions.Check(c.Request.Context(), userID, element, domain.ActionCreate, domain.OwnershipOwn)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "permission check failed"))
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "permission denied"))
		return
	}

	c.JSON(http.StatusCreated, ResourceObject{
		ID:      "4",
		Element: element,
		OwnerID: userID,
		Name:    fmt.Sprintf("%s #4", element),
	})
}

func (h *ResourceHandler) update(c *gin.Context) {
	h.objectAction(c, domain.ActionUpdate, func(c *gin.Context, obj ResourceObject) {
		c.JSON(http.StatusOK, obj)
	})
}

func (h *ResourceHandler) remove(c *gin.Context) {
	h.objectAction(c, domain.ActionDelete, func(c *gin.Context, obj ResourceObject) {
		c.JSON(http.StatusOK, MessageResponse{Message: "deleted"})
	})
}

func (h *ResourceHandler) objectAction(c *gin.Context, action domain.Action, respond func(*gin.Context, ResourceObject)) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	element := c.Param("element")
	obj, found := findMockObject(element, userID, c.Param("id"))
	if !found {
		c.JSON(http.StatusNotFound, NewErrorResponse(c, "object not found"))
		return
	}

	// An object the caller owns satisfies either the own or the any grant;
	// foreign objects need the any grant.
	allowed, err := h.permissions.CheckObject(c.Request.Context(), userID, element, action, obj.OwnerID == userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "permission check failed"))
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "permission denied"))
		return
	}

	respond(c, obj)
}
