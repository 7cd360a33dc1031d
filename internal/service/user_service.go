package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"

	"github.com/spmukhedkar/user-role-system-server/internal/auth"
	apperrors "github.com/spmukhedkar/user-role-system-server/internal/errors"
	"github.com/spmukhedkar/user-role-system-server/internal/model"
	"github.com/spmukhedkar/user-role-system-server/internal/repository"
)

const defaultPhoneRegion = "IN"

var (
	// ErrSignupFieldsRequired is returned when signup lacks userName or password.
	ErrSignupFieldsRequired = apperrors.Validation("MISSING_FIELDS", "userName and password are required")
	// ErrInvalidMobileNumber is returned for a mobileNumber that cannot be a phone number.
	ErrInvalidMobileNumber = apperrors.Validation("INVALID_MOBILE_NUMBER", "mobileNumber is not a valid phone number")
	// ErrInvalidAuthType is returned when authType is not true, false or all.
	ErrInvalidAuthType = apperrors.Validation("INVALID_AUTH_TYPE", "authType must be one of true, false, all")
	// ErrInvalidUserID is returned when userId is not a valid id.
	ErrInvalidUserID = apperrors.Validation("INVALID_USER_ID", "userId is not a valid id")
)

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(userID uuid.UUID) (string, auth.TokenInfo, error)
}

// SessionRegistry records and revokes issued tokens.
type SessionRegistry interface {
	AddSession(ctx context.Context, user *model.User, token string, info auth.TokenInfo) error
	RevokeSession(ctx context.Context, user *model.User, token string) error
}

// SignupInput carries the fields accepted by Signup.
type SignupInput struct {
	UserName     string
	Email        string
	Password     string
	MobileNumber string
	// UserRoles is the id of an existing role, or empty.
	UserRoles string
}

// AuthResult is returned by Signup and Signin.
type AuthResult struct {
	User  model.UserView
	Token string
}

// UserService handles signup, signin, signout and user administration.
type UserService interface {
	Signup(ctx context.Context, in SignupInput) (*AuthResult, error)
	Signin(ctx context.Context, userName, password string) (*AuthResult, error)
	Signout(ctx context.Context, user *model.User, token string) error
	ListUsersByAuthType(ctx context.Context, authType string) ([]model.UserView, error)
	ChangeAuthorizeStatus(ctx context.Context, userID string, authorize *bool) error
}

type userService struct {
	users    repository.UserRepository
	tx       repository.Transactor
	roles    RoleService
	hasher   PasswordHasher
	tokens   TokenIssuer
	sessions SessionRegistry
	region   string

	dummyOnce sync.Once
	dummyHash string
}

// NewUserService creates a new user service.
// Signup writes the user row and its first session through tx so both commit or neither does.
func NewUserService(
	users repository.UserRepository,
	tx repository.Transactor,
	roles RoleService,
	hasher PasswordHasher,
	tokens TokenIssuer,
	sessions SessionRegistry,
	phoneRegion string,
) UserService {
	if phoneRegion == "" {
		phoneRegion = defaultPhoneRegion
	}
	return &userService{
		users:    users,
		tx:       tx,
		roles:    roles,
		hasher:   hasher,
		tokens:   tokens,
		sessions: sessions,
		region:   strings.ToUpper(phoneRegion),
	}
}

// Signup creates an unauthorized user and signs them in.
func (s *userService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	userName := strings.TrimSpace(in.UserName)
	if userName == "" || in.Password == "" {
		return nil, ErrSignupFieldsRequired
	}

	mobile := strings.TrimSpace(in.MobileNumber)
	if mobile != "" {
		if err := s.checkMobile(mobile); err != nil {
			return nil, err
		}
	}

	user := &model.User{
		ID:           uuid.New(),
		UserName:     userName,
		Email:        strings.TrimSpace(in.Email),
		MobileNumber: mobile,
		Authorize:    false,
	}

	if ref := strings.TrimSpace(in.UserRoles); ref != "" {
		role, err := s.lookupRole(ctx, ref)
		if err != nil {
			return nil, err
		}
		user.RoleID = &role.ID
		user.Role = role
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	token, info, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.Users.Create(ctx, user); err != nil {
			return err
		}
		return auth.NewSessionRegistry(tx.Sessions).AddSession(ctx, user, token, info)
	})
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user.Display(), Token: token}, nil
}

// Signin checks credentials and adds a new session. Earlier sessions stay valid.
// Unknown names and wrong passwords fail the same way.
func (s *userService) Signin(ctx context.Context, userName, password string) (*AuthResult, error) {
	userName = strings.TrimSpace(userName)
	if userName == "" || password == "" {
		return nil, apperrors.ErrMissingCredentials
	}

	user, err := s.users.FindByUserName(ctx, userName)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			// same bcrypt work as a real mismatch
			s.hasher.Verify(password, s.dummy())
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.startSession(ctx, user)
}

// Signout revokes only token. Revoking a token that is already gone succeeds.
func (s *userService) Signout(ctx context.Context, user *model.User, token string) error {
	if user == nil || token == "" {
		return nil
	}
	return s.sessions.RevokeSession(ctx, user, token)
}

func (s *userService) ListUsersByAuthType(ctx context.Context, authType string) ([]model.UserView, error) {
	filter, ok := model.ParseAuthFilter(strings.ToLower(strings.TrimSpace(authType)))
	if !ok {
		return nil, ErrInvalidAuthType
	}

	users, err := s.users.ListByAuthorize(ctx, filter)
	if err != nil {
		return nil, err
	}
	return model.DisplayUsers(users), nil
}

// ChangeAuthorizeStatus sets the authorize flag of userID. A nil authorize means the field was absent.
// Callers are expected to have passed the admin gate.
func (s *userService) ChangeAuthorizeStatus(ctx context.Context, userID string, authorize *bool) error {
	userID = strings.TrimSpace(userID)
	if userID == "" || authorize == nil {
		return apperrors.ErrMissingParameters
	}

	id, err := uuid.Parse(userID)
	if err != nil {
		return ErrInvalidUserID.WithErr(err)
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if user.Authorize == *authorize {
		return nil
	}
	return s.users.UpdateAuthorize(ctx, user.ID, *authorize)
}

func (s *userService) startSession(ctx context.Context, user *model.User) (*AuthResult, error) {
	token, info, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.AddSession(ctx, user, token, info); err != nil {
		return nil, err
	}
	return &AuthResult{User: user.Display(), Token: token}, nil
}

func (s *userService) lookupRole(ctx context.Context, ref string) (*model.Role, error) {
	id, err := uuid.Parse(ref)
	if err != nil {
		return nil, apperrors.ErrUnknownRole.WithErr(err)
	}
	role, err := s.roles.FindRole(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrRoleNotFound) {
			return nil, apperrors.ErrUnknownRole
		}
		return nil, err
	}
	return role, nil
}

func (s *userService) checkMobile(mobile string) error {
	num, err := phonenumbers.Parse(mobile, s.region)
	if err != nil {
		return ErrInvalidMobileNumber.WithErr(err)
	}
	if !phonenumbers.IsPossibleNumber(num) {
		return ErrInvalidMobileNumber
	}
	return nil
}

func (s *userService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(uuid.NewString())
	})
	return s.dummyHash
}
