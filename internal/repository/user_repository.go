package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/spmukhedkar/user-role-system-server/internal/errors"
	"github.com/spmukhedkar/user-role-system-server/internal/model"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByUserName(ctx context.Context, userName string) (*model.User, error)
	ListByAuthorize(ctx context.Context, filter model.AuthFilter) ([]model.User, error)
	UpdateAuthorize(ctx context.Context, id uuid.UUID, authorize bool) error
	AssignRole(ctx context.Context, id uuid.UUID, roleID uuid.UUID) error
}

type userRepository struct {
	gormStore
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB, timeout time.Duration) UserRepository {
	return &userRepository{gormStore{db: db, timeout: timeout}}
}

// Create inserts user. The unique index on user_name decides races between concurrent signups.
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	tx, cancel := r.conn(ctx)
	defer cancel()

	err := tx.Omit(clause.Associations).Create(user).Error
	switch {
	case err == nil:
		return nil
	case isDuplicate(err):
		return apperrors.ErrUserNameTaken.WithErr(err)
	case isForeignKeyViolation(err):
		return apperrors.ErrUnknownRole.WithErr(err)
	default:
		return persistence("create user", err)
	}
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *userRepository) FindByUserName(ctx context.Context, userName string) (*model.User, error) {
	return r.findOne(ctx, "user_name = ?", userName)
}

func (r *userRepository) findOne(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	tx, cancel := r.conn(ctx)
	defer cancel()

	var user model.User
	if err := tx.Preload("Role").Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, persistence("find user", err)
	}
	return &user, nil
}

// ListByAuthorize lists users matching filter, oldest first.
func (r *userRepository) ListByAuthorize(ctx context.Context, filter model.AuthFilter) ([]model.User, error) {
	tx, cancel := r.conn(ctx)
	defer cancel()

	q := tx.Preload("Role").Order("created_at, id")
	switch filter {
	case model.AuthFilterTrue:
		q = q.Where("authorize = ?", true)
	case model.AuthFilterFalse:
		q = q.Where("authorize = ?", false)
	}

	var users []model.User
	if err := q.Find(&users).Error; err != nil {
		return nil, persistence("list users", err)
	}
	return users, nil
}

// UpdateAuthorize writes only the authorize column.
func (r *userRepository) UpdateAuthorize(ctx context.Context, id uuid.UUID, authorize bool) error {
	tx, cancel := r.conn(ctx)
	defer cancel()

	err := tx.Model(&model.User{}).Where("id = ?", id).Update("authorize", authorize).Error
	return persistence("update authorize", err)
}

// AssignRole points the user at roleID.
func (r *userRepository) AssignRole(ctx context.Context, id uuid.UUID, roleID uuid.UUID) error {
	tx, cancel := r.conn(ctx)
	defer cancel()

	err := tx.Model(&model.User{}).Where("id = ?", id).Update("role_id", roleID).Error
	if isForeignKeyViolation(err) {
		return apperrors.ErrUnknownRole.WithErr(err)
	}
	return persistence("assign role", err)
}
