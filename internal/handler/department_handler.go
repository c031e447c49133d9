package handler

import (
	"net/http"

	"backoffice/internal/middleware"
	"backoffice/internal/service"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

type DepartmentHandler struct {
	departmentService service.DepartmentService
}

func NewDepartmentHandler(departmentService service.DepartmentService) *DepartmentHandler {
	return &DepartmentHandler{departmentService: departmentService}
}

func (h *DepartmentHandler) RegisterRoutes(router *gin.RouterGroup, gate *middleware.Gate) {
	gate.Mount(router.Group("/system/departments"),
		middleware.Get("", h.ListDepartments, "department:list"),
		middleware.Get("/tree", h.GetDepartmentTree, "department:list"),
		middleware.Post("", h.CreateDepartment, "department:create"),
		middleware.Put("/:id", h.UpdateDepartment, "department:update"),
		middleware.Delete("/:id", h.DeleteDepartment, "department:delete"),
	)
}

// ListDepartments handles GET /system/departments
// @Summary      List departments
// @Tags         departments
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.DepartmentResponse}
// @Router       /system/departments [get]
func (h *DepartmentHandler) ListDepartments(c *gin.Context) {
	depts, err := h.departmentService.ListDepartments(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, depts))
}

// GetDepartmentTree handles GET /system/departments/tree
// @Summary      Department tree with leader and headcount
// @Description  user_count counts active members of the node; total_user_count includes every descendant
// @Tags         departments
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.DepartmentTreeNode}
// @Router       /system/departments/tree [get]
func (h *DepartmentHandler) GetDepartmentTree(c *gin.Context) {
	tree, err := h.departmentService.GetDepartmentTree(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tree))
}

// CreateDepartment handles POST /system/departments
// @Summary      Create a department
// @Tags         departments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateDepartmentRequest  true  "Department"
// @Success      201      {object}  response.Response{data=service.DepartmentResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /system/departments [post]
func (h *DepartmentHandler) CreateDepartment(c *gin.Context) {
	var req service.CreateDepartmentRequest
	if !bindJSON(c, &req) {
		return
	}

	dept, err := h.departmentService.CreateDepartment(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, dept))
}

// UpdateDepartment handles PUT /system/departments/:id
// @Summary      Update a department
// @Tags         departments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                           true  "Department id"
// @Param        payload  body      service.UpdateDepartmentRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=service.DepartmentResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /system/departments/{id} [put]
func (h *DepartmentHandler) UpdateDepartment(c *gin.Context) {
	var req service.UpdateDepartmentRequest
	if !bindJSON(c, &req) {
		return
	}

	dept, err := h.departmentService.UpdateDepartment(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, dept))
}

// DeleteDepartment handles DELETE /system/departments/:id
// @Summary      Delete a department
// @Description  Refused while the department has children, positions or members
// @Tags         departments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Department id"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /system/departments/{id} [delete]
func (h *DepartmentHandler) DeleteDepartment(c *gin.Context) {
	if err := h.departmentService.DeleteDepartment(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Department deleted successfully"}))
}
