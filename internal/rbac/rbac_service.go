package rbac

import (
	"sort"
	"sync"

	"go-leave/internal/identity"
	"go-leave/internal/shared/apperror"

	"github.com/casbin/casbin/v2"
	"go.uber.org/zap"
)

//go:generate mockgen -source=rbac_service.go -destination=mock/rbac_service_mock.go -package=mock
type Service interface {
	Enforce(req EnforceRequest) (bool, error)
	Authorize(p identity.Principal, resource, action string) error
	PermissionsFor(role identity.Role) ([]Permission, error)
}

type service struct {
	enforcer *casbin.Enforcer
	mu       sync.RWMutex
	logger   *zap.Logger
}

func NewService(enforcer *casbin.Enforcer, logger ...*zap.Logger) (Service, error) {
	l := zap.L().Named("rbac.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("rbac.service")
	}
	s := &service{enforcer: enforcer, logger: l}
	if err := s.loadDefaultPolicy(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *service) loadDefaultPolicy() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enforcer.ClearPolicy()

	for role, perms := range DefaultPolicies() {
		for _, p := range perms {
			if _, err := s.enforcer.AddPolicy(role.String(), p.Resource, p.Action); err != nil {
				return err
			}
		}
	}

	// manager inherits employee
	if _, err := s.enforcer.AddGroupingPolicy(identity.RoleManager.String(), identity.RoleEmployee.String()); err != nil {
		return err
	}

	s.logger.Debug("rbac default policy loaded", zap.Int("roles", len(DefaultPolicies())))
	return nil
}

func (s *service) Enforce(req EnforceRequest) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allowed, err := s.enforcer.Enforce(req.Role, req.Resource, req.Action)
	if err != nil {
		s.logger.Error("rbac enforce failed",
			zap.String("role", req.Role),
			zap.String("resource", req.Resource),
			zap.String("action", req.Action),
			zap.Error(err),
		)
		return false, err
	}

	s.logger.Debug("rbac enforce result",
		zap.String("role", req.Role),
		zap.String("resource", req.Resource),
		zap.String("action", req.Action),
		zap.Bool("allowed", allowed),
	)
	return allowed, nil
}

// Authorize returns apperror.ErrForbidden when the principal's role lacks the permission.
func (s *service) Authorize(p identity.Principal, resource, action string) error {
	allowed, err := s.Enforce(EnforceRequest{Role: p.Role.String(), Resource: resource, Action: action})
	if err != nil {
		return apperror.Wrap(err, apperror.CodeInternalError, apperror.ErrInternal.Message, apperror.ErrInternal.HTTPStatus)
	}
	if !allowed {
		return apperror.ErrForbidden
	}
	return nil
}

func (s *service) PermissionsFor(role identity.Role) ([]Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.enforcer.GetImplicitPermissionsForUser(role.String())
	if err != nil {
		return nil, err
	}

	perms := make([]Permission, 0, len(rows))
	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		perms = append(perms, Permission{Resource: row[1], Action: row[2]})
	}
	sort.Slice(perms, func(i, j int) bool {
		if perms[i].Resource == perms[j].Resource {
			return perms[i].Action < perms[j].Action
		}
		return perms[i].Resource < perms[j].Resource
	})
	return perms, nil
}
