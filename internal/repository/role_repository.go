package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "github.com/spmukhedkar/user-role-system-server/internal/errors"
	"github.com/spmukhedkar/user-role-system-server/internal/model"
)

// RoleRepository defines persistence operations for roles.
type RoleRepository interface {
	Create(ctx context.Context, role *model.Role) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error)
	FindByName(ctx context.Context, name string) (*model.Role, error)
	List(ctx context.Context) ([]model.Role, error)
}

type roleRepository struct {
	gormStore
}

// NewRoleRepository builds a GORM-backed repository.
func NewRoleRepository(db *gorm.DB, timeout time.Duration) RoleRepository {
	return &roleRepository{gormStore{db: db, timeout: timeout}}
}

func (r *roleRepository) Create(ctx context.Context, role *model.Role) error {
	tx, cancel := r.conn(ctx)
	defer cancel()

	err := tx.Create(role).Error
	if isDuplicate(err) {
		return apperrors.ErrRoleNameTaken.WithErr(err)
	}
	return persistence("create role", err)
}

func (r *roleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *roleRepository) FindByName(ctx context.Context, name string) (*model.Role, error) {
	return r.findOne(ctx, "name = ?", name)
}

func (r *roleRepository) findOne(ctx context.Context, query string, arg interface{}) (*model.Role, error) {
	tx, cancel := r.conn(ctx)
	defer cancel()

	var role model.Role
	if err := tx.Where(query, arg).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRoleNotFound
		}
		return nil, persistence("find role", err)
	}
	return &role, nil
}

func (r *roleRepository) List(ctx context.Context) ([]model.Role, error) {
	tx, cancel := r.conn(ctx)
	defer cancel()

	var roles []model.Role
	if err := tx.Order("created_at, id").Find(&roles).Error; err != nil {
		return nil, persistence("list roles", err)
	}
	return roles, nil
}
