package rbac

import (
	"net/http"
	"strings"

	"go-leave/internal/identity"
	"go-leave/internal/shared/apperror"
	"go-leave/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("rbac.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("rbac.handler")
	}
	return &Handler{service: service, logger: l}
}

// Enforce checks a permission for the caller's own role.
func (h *Handler) Enforce(c *gin.Context) {
	var req EnforceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.AbortWithError(c, apperror.MapValidationError(err))
		return
	}

	req.Role = c.GetString("role")
	req.Resource = strings.TrimSpace(req.Resource)
	req.Action = strings.TrimSpace(req.Action)

	allowed, err := h.service.Enforce(req)
	if err != nil {
		h.logger.Error("http enforce failed", zap.Error(err))
		response.AbortWithError(c, apperror.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, EnforceResponse{Allowed: allowed}, nil)
}

func (h *Handler) MyPermissions(c *gin.Context) {
	role, err := identity.ParseRole(c.GetString("role"))
	if err != nil {
		response.AbortWithError(c, apperror.ErrUnauthorized)
		return
	}

	perms, err := h.service.PermissionsFor(role)
	if err != nil {
		h.logger.Error("http list permissions failed", zap.Error(err))
		response.AbortWithError(c, apperror.ErrInternal)
		return
	}

	resp := RolePermissionsResponse{Role: role.String(), Permissions: make([]PermissionResponse, len(perms))}
	for i, p := range perms {
		resp.Permissions[i] = PermissionResponse{Resource: p.Resource, Action: p.Action}
	}
	response.Success(c, http.StatusOK, resp, nil)
}
