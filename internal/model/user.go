package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents an account that can sign in to the system.
type User struct {
	ID           uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	UserName     string     `json:"userName" gorm:"size:255;not null;uniqueIndex"`
	Email        string     `json:"email" gorm:"size:255"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	MobileNumber string     `json:"mobileNumber" gorm:"size:32"`
	RoleID       *uuid.UUID `json:"userRoles,omitempty" gorm:"type:char(36);index"`
	Authorize    bool       `json:"authorize" gorm:"not null;default:false;index"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`

	// Relations
	Role     *Role     `json:"-" gorm:"foreignKey:RoleID"`
	Sessions []Session `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// HasRole reports whether the user's role is named name.
// Role must have been loaded alongside the user.
func (u *User) HasRole(name string) bool {
	return u.Role != nil && u.Role.Name == name
}

// UserView is the projection of a User returned to callers.
// It never carries the password hash or session tokens.
type UserView struct {
	ID           uuid.UUID  `json:"id"`
	UserName     string     `json:"userName"`
	Email        string     `json:"email"`
	MobileNumber string     `json:"mobileNumber"`
	UserRoles    *uuid.UUID `json:"userRoles,omitempty"`
	RoleName     string     `json:"roleName,omitempty"`
	Authorize    bool       `json:"authorize"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Display strips the password hash and sessions from u.
func (u *User) Display() UserView {
	view := UserView{
		ID:           u.ID,
		UserName:     u.UserName,
		Email:        u.Email,
		MobileNumber: u.MobileNumber,
		UserRoles:    u.RoleID,
		Authorize:    u.Authorize,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if u.Role != nil {
		view.RoleName = u.Role.Name
	}
	return view
}

// DisplayUsers applies Display to every user, keeping order.
func DisplayUsers(users []User) []UserView {
	views := make([]UserView, 0, len(users))
	for i := range users {
		views = append(views, users[i].Display())
	}
	return views
}

// AuthFilter selects users by their authorize flag.
type AuthFilter string

const (
	AuthFilterAll   AuthFilter = "all"
	AuthFilterTrue  AuthFilter = "true"
	AuthFilterFalse AuthFilter = "false"
)

// ParseAuthFilter accepts "true", "false" or "all".
func ParseAuthFilter(s string) (AuthFilter, bool) {
	switch f := AuthFilter(s); f {
	case AuthFilterAll, AuthFilterTrue, AuthFilterFalse:
		return f, true
	default:
		return "", false
	}
}

// Matches reports whether a user with the given flag passes the filter.
func (f AuthFilter) Matches(authorize bool) bool {
	switch f {
	case AuthFilterTrue:
		return authorize
	case AuthFilterFalse:
		return !authorize
	default:
		return true
	}
}
