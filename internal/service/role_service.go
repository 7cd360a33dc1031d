package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/spmukhedkar/user-role-system-server/internal/cache"
	apperrors "github.com/spmukhedkar/user-role-system-server/internal/errors"
	"github.com/spmukhedkar/user-role-system-server/internal/model"
	"github.com/spmukhedkar/user-role-system-server/internal/repository"
)

const defaultRoleCacheTTL = 10 * time.Minute

// ErrRoleNameRequired is returned by CreateRole for a blank name.
var ErrRoleNameRequired = apperrors.Validation("ROLE_NAME_REQUIRED", "name is required")

// Cache is the fail-safe key/value store used for immutable lookups.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RoleService handles role operations.
type RoleService interface {
	CreateRole(ctx context.Context, name string) (*model.Role, error)
	ListRoles(ctx context.Context) ([]model.Role, error)
	FindRole(ctx context.Context, id uuid.UUID) (*model.Role, error)
	EnsureRole(ctx context.Context, name string) (*model.Role, error)
}

type roleService struct {
	repo  repository.RoleRepository
	cache Cache
	ttl   time.Duration
	group singleflight.Group
}

// NewRoleService creates a new role service. Roles never change after creation,
// so found roles are cached for ttl.
func NewRoleService(repo repository.RoleRepository, c Cache, ttl time.Duration) RoleService {
	if ttl <= 0 {
		ttl = defaultRoleCacheTTL
	}
	if c == nil {
		c = (*cache.Client)(nil)
	}
	return &roleService{repo: repo, cache: c, ttl: ttl}
}

func (s *roleService) cacheKey(id uuid.UUID) string {
	return fmt.Sprintf("role:%s", id.String())
}

// CreateRole stores a role with a unique name.
func (s *roleService) CreateRole(ctx context.Context, name string) (*model.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrRoleNameRequired
	}

	role := &model.Role{Name: name}
	if err := s.repo.Create(ctx, role); err != nil {
		return nil, err
	}
	s.remember(ctx, role)
	return role, nil
}

func (s *roleService) ListRoles(ctx context.Context) ([]model.Role, error) {
	return s.repo.List(ctx)
}

// FindRole looks a role up by id, trying the cache first.
// Concurrent misses for the same id share one storage read.
func (s *roleService) FindRole(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	key := s.cacheKey(id)
	if data, _ := s.cache.Get(ctx, key); data != nil {
		var cached model.Role
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		role, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		s.remember(ctx, role)
		return role, nil
	})
	if err != nil {
		return nil, err
	}
	role := *v.(*model.Role)
	return &role, nil
}

// EnsureRole returns the role named name, creating it if needed.
func (s *roleService) EnsureRole(ctx context.Context, name string) (*model.Role, error) {
	role, err := s.repo.FindByName(ctx, name)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, apperrors.ErrRoleNotFound) {
		return nil, err
	}

	role, err = s.CreateRole(ctx, name)
	if errors.Is(err, apperrors.ErrRoleNameTaken) {
		// lost a race with another creator
		return s.repo.FindByName(ctx, name)
	}
	return role, err
}

func (s *roleService) remember(ctx context.Context, role *model.Role) {
	if payload, err := json.Marshal(role); err == nil {
		_ = s.cache.Set(ctx, s.cacheKey(role.ID), payload, s.ttl)
	}
}
