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

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup, gate *middleware.Gate) {
	gate.Mount(router.Group("/system/audit-logs"),
		middleware.Get("", h.GetAuditLogs, "audit:list"),
	)
}

// GetAuditLogs retrieves paginated audit records, newest first, with the acting user preloaded
// @Summary      Get audit logs
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        action       query     string  false  "Exact action, e.g. REPLACE_ROLE_PERMISSIONS"
// @Param        entity_id    query     string  false  "Entity id"
// @Param        entity_name  query     string  false  "Entity name, e.g. role"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Success      200          {object}  response.Response{data=response.Page{items=[]service.AuditLogResponse}}
// @Router       /system/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)
	filter := repository.AuditFilter{
		Action:     c.Query("action"),
		EntityID:   c.Query("entity_id"),
		EntityName: c.Query("entity_name"),
	}

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), filter, p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, logs, total, p.Page, p.Limit))
}
