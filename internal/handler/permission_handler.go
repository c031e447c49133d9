package handler

import (
	"net/http"

	"backoffice/internal/middleware"
	"backoffice/internal/service"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

type PermissionHandler struct {
	permissionService service.PermissionService
}

func NewPermissionHandler(permissionService service.PermissionService) *PermissionHandler {
	return &PermissionHandler{permissionService: permissionService}
}

func (h *PermissionHandler) RegisterRoutes(router *gin.RouterGroup, gate *middleware.Gate) {
	gate.Mount(router.Group("/system/permissions"),
		middleware.Get("", h.ListPermissions, "permission:list"),
		middleware.Get("/tree", h.GetPermissionTree, "permission:list"),
		middleware.Post("", h.CreatePermission, "permission:create"),
		middleware.Put("/:id", h.UpdatePermission, "permission:update"),
		middleware.Delete("/:id", h.DeletePermission, "permission:delete"),
	)
}

// ListPermissions handles GET /system/permissions
// @Summary      List the permission catalog
// @Tags         permissions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.PermissionResponse}
// @Failure      403  {object}  response.Response
// @Router       /system/permissions [get]
func (h *PermissionHandler) ListPermissions(c *gin.Context) {
	perms, err := h.permissionService.ListPermissions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, perms))
}

// GetPermissionTree handles GET /system/permissions/tree
// @Summary      Permission catalog as a tree
// @Tags         permissions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.PermissionTreeNode}
// @Router       /system/permissions/tree [get]
func (h *PermissionHandler) GetPermissionTree(c *gin.Context) {
	tree, err := h.permissionService.GetPermissionTree(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tree))
}

// CreatePermission handles POST /system/permissions
// @Summary      Create a permission
// @Tags         permissions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreatePermissionRequest  true  "Permission"
// @Success      201      {object}  response.Response{data=service.PermissionResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /system/permissions [post]
func (h *PermissionHandler) CreatePermission(c *gin.Context) {
	var req service.CreatePermissionRequest
	if !bindJSON(c, &req) {
		return
	}

	perm, err := h.permissionService.CreatePermission(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, perm))
}

// UpdatePermission handles PUT /system/permissions/:id
// @Summary      Update a permission
// @Description  An empty parent_id detaches the node; a parent inside its own subtree is refused
// @Tags         permissions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                           true  "Permission id"
// @Param        payload  body      service.UpdatePermissionRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=service.PermissionResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /system/permissions/{id} [put]
func (h *PermissionHandler) UpdatePermission(c *gin.Context) {
	var req service.UpdatePermissionRequest
	if !bindJSON(c, &req) {
		return
	}

	perm, err := h.permissionService.UpdatePermission(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, perm))
}

// DeletePermission handles DELETE /system/permissions/:id
// @Summary      Delete a permission
// @Tags         permissions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Permission id"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /system/permissions/{id} [delete]
func (h *PermissionHandler) DeletePermission(c *gin.Context) {
	if err := h.permissionService.DeletePermission(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Permission deleted successfully"}))
}
