package handler

import (
	"net/http"

	"backoffice/internal/middleware"
	"backoffice/internal/repository"
	"backoffice/internal/service"
	"backoffice/pkg/pagination"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

type PositionHandler struct {
	positionService service.PositionService
}

func NewPositionHandler(positionService service.PositionService) *PositionHandler {
	return &PositionHandler{positionService: positionService}
}

func (h *PositionHandler) RegisterRoutes(router *gin.RouterGroup, gate *middleware.Gate) {
	gate.Mount(router.Group("/system/positions"),
		middleware.Get("", h.ListPositions, "position:list"),
		middleware.Post("", h.CreatePosition, "position:create"),
		middleware.Put("/:id", h.UpdatePosition, "position:update"),
		middleware.Delete("/:id", h.DeletePosition, "position:delete"),
	)
}

// ListPositions handles GET /system/positions
// @Summary      List positions with holder counts
// @Tags         positions
// @Produce      json
// @Security     BearerAuth
// @Param        search         query     string  false  "Code or name substring"
// @Param        department_id  query     string  false  "Department id"
// @Param        page           query     int     false  "Page number (default 1)"
// @Param        limit          query     int     false  "Items per page (default 20)"
// @Success      200            {object}  response.Response{data=response.Page{items=[]service.PositionResponse}}
// @Router       /system/positions [get]
func (h *PositionHandler) ListPositions(c *gin.Context) {
	p := pagination.Parse(c)
	deptID, err := queryUUID(c, "department_id")
	if err != nil {
		respondError(c, err)
		return
	}

	positions, total, err := h.positionService.ListPositions(c.Request.Context(), repository.PositionFilter{Search: c.Query("search"), DepartmentID: deptID}, p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, positions, total, p.Page, p.Limit))
}

// CreatePosition handles POST /system/positions
// @Summary      Create a position
// @Tags         positions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreatePositionRequest  true  "Position"
// @Success      201      {object}  response.Response{data=service.PositionResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /system/positions [post]
func (h *PositionHandler) CreatePosition(c *gin.Context) {
	var req service.CreatePositionRequest
	if !bindJSON(c, &req) {
		return
	}

	pos, err := h.positionService.CreatePosition(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, pos))
}

// UpdatePosition handles PUT /system/positions/:id
// @Summary      Update a position
// @Tags         positions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                         true  "Position id"
// @Param        payload  body      service.UpdatePositionRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=service.PositionResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /system/positions/{id} [put]
func (h *PositionHandler) UpdatePosition(c *gin.Context) {
	var req service.UpdatePositionRequest
	if !bindJSON(c, &req) {
		return
	}

	pos, err := h.positionService.UpdatePosition(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pos))
}

// DeletePosition handles DELETE /system/positions/:id
// @Summary      Delete a position
// @Description  Refused while any user holds the position
// @Tags         positions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Position id"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /system/positions/{id} [delete]
func (h *PositionHandler) DeletePosition(c *gin.Context) {
	if err := h.positionService.DeletePosition(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Position deleted successfully"}))
}
