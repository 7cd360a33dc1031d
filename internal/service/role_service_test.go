package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spmukhedkar/user-role-system-server/internal/errors"
	"github.com/spmukhedkar/user-role-system-server/internal/model"
	"github.com/spmukhedkar/user-role-system-server/internal/repository"
)

func TestRoleService_CreateRole(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		setup   func(*MockRoleRepository)
		wantErr error
	}{
		{
			name:  "created",
			input: "  editor ",
			setup: func(m *MockRoleRepository) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(r *model.Role) bool { return r.Name == "editor" })).
					Return(nil)
			},
		},
		{
			name:    "blank name",
			input:   "   ",
			setup:   func(*MockRoleRepository) {},
			wantErr: ErrRoleNameRequired,
		},
		{
			name:  "duplicate name",
			input: "admin",
			setup: func(m *MockRoleRepository) {
				m.On("Create", mock.Anything, mock.Anything).Return(apperrors.ErrRoleNameTaken)
			},
			wantErr: apperrors.ErrRoleNameTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRoleRepository)
			tt.setup(repo)
			svc := NewRoleService(repo, newMapCache(), time.Minute)

			role, err := svc.CreateRole(context.Background(), tt.input)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
				assert.Nil(t, role)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "editor", role.Name)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestRoleService_DuplicateDoesNotCreateSecondRecord(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := NewRoleService(store.Roles(), nil, 0)

	_, err := svc.CreateRole(ctx, "admin")
	require.NoError(t, err)
	_, err = svc.CreateRole(ctx, "admin")
	assert.ErrorIs(t, err, apperrors.ErrRoleNameTaken)

	roles, err := svc.ListRoles(ctx)
	require.NoError(t, err)
	assert.Len(t, roles, 1)
}

func TestRoleService_FindRoleUsesCache(t *testing.T) {
	role := &model.Role{ID: uuid.New(), Name: "admin"}
	repo := new(MockRoleRepository)
	repo.On("FindByID", mock.Anything, role.ID).Return(role, nil).Once()
	svc := NewRoleService(repo, newMapCache(), time.Minute)

	for i := 0; i < 3; i++ {
		got, err := svc.FindRole(context.Background(), role.ID)
		require.NoError(t, err)
		assert.Equal(t, "admin", got.Name)
	}
	repo.AssertNumberOfCalls(t, "FindByID", 1)
}

func TestRoleService_FindRoleDoesNotCacheMisses(t *testing.T) {
	id := uuid.New()
	repo := new(MockRoleRepository)
	repo.On("FindByID", mock.Anything, id).Return(nil, apperrors.ErrRoleNotFound)
	svc := NewRoleService(repo, newMapCache(), time.Minute)

	for i := 0; i < 2; i++ {
		_, err := svc.FindRole(context.Background(), id)
		assert.ErrorIs(t, err, apperrors.ErrRoleNotFound)
	}
	repo.AssertNumberOfCalls(t, "FindByID", 2)
}

func TestRoleService_FindRoleConcurrentCallersGetCopies(t *testing.T) {
	role := &model.Role{ID: uuid.New(), Name: "admin"}
	repo := new(MockRoleRepository)
	repo.On("FindByID", mock.Anything, role.ID).Return(role, nil)
	svc := NewRoleService(repo, nil, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := svc.FindRole(context.Background(), role.ID)
			if assert.NoError(t, err) {
				assert.Equal(t, role.ID, got.ID)
				got.Name = "mutated"
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, "admin", role.Name)
}

func TestRoleService_EnsureRole(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := NewRoleService(store.Roles(), newMapCache(), time.Minute)

	first, err := svc.EnsureRole(ctx, "admin")
	require.NoError(t, err)
	second, err := svc.EnsureRole(ctx, "admin")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}
