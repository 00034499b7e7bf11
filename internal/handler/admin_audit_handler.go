package handler

import (
	"net/http"

	"storefront/internal/domain/model"
	"storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminAuditHandler struct {
	uc *usecase.AuditUsecase
}

func NewAdminAuditHandler(uc *usecase.AuditUsecase) *AdminAuditHandler {
	return &AdminAuditHandler{uc: uc}
}

func (h *AdminAuditHandler) RegisterRoutes(e *echo.Echo, g Guards) {
	e.GET("/admin/audit-logs", h.list, g.Auth, g.Admin)
}

// actor_user_id / action / resource_type / resource_id / from / to で絞り込む
func (h *AdminAuditHandler) list(c echo.Context) error {
	page, limit, err := pageParams(c)
	if err != nil {
		return writeError(c, err)
	}
	from, err := timeQuery(c, "from")
	if err != nil {
		return writeError(c, err)
	}
	to, err := timeQuery(c, "to")
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.List(c.Request().Context(), repository.AuditLogQuery{
		ActorUserID:  c.QueryParam("actor_user_id"),
		Action:       model.AuditAction(c.QueryParam("action")),
		ResourceType: model.AuditResourceType(c.QueryParam("resource_type")),
		ResourceID:   c.QueryParam("resource_id"),
		From:         from,
		To:           to,
		Page:         page,
		Limit:        limit,
	})
	if err != nil {
		return writeError(c, err)
	}
	return respond(c, http.StatusOK, out)
}
