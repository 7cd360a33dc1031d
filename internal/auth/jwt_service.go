package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	apperrors "github.com/spmukhedkar/user-role-system-server/internal/errors"
)

// DefaultTokenTTL is used when no TTL is configured.
const DefaultTokenTTL = 24 * time.Hour

// Claims represents JWT claims.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenInfo is what a verified token says about its holder.
type TokenInfo struct {
	UserID    uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// JWTService handles JWT token generation and validation.
// It checks signature and expiry only; revocation is the session registry's concern.
type JWTService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewJWTService creates a new JWT service with the given secret and token lifetime.
func NewJWTService(secret string, ttl time.Duration) *JWTService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &JWTService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		// expiry is checked against s.now in Verify
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
}

// WithClock returns a copy of s that reads time from now.
func (s *JWTService) WithClock(now func() time.Time) *JWTService {
	c := *s
	c.now = now
	return &c
}

// Issue signs a new token for userID. The random jti keeps tokens issued within the same second distinct.
func (s *JWTService) Issue(userID uuid.UUID) (string, TokenInfo, error) {
	issuedAt := s.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(s.ttl)

	claims := &Claims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", TokenInfo{}, err
	}
	return signed, TokenInfo{UserID: userID, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}

// Verify checks the signature and expiry of tokenString.
func (s *JWTService) Verify(tokenString string) (*TokenInfo, error) {
	if tokenString == "" {
		return nil, apperrors.ErrMissingToken
	}

	claims := &Claims{}
	token, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.ErrInvalidToken.WithErr(err)
	}

	if claims.ExpiresAt == nil || !claims.VerifyExpiresAt(s.now(), true) {
		return nil, apperrors.ErrTokenExpired
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, apperrors.ErrInvalidToken.WithErr(err)
	}
	if claims.Subject != "" && claims.Subject != claims.UserID {
		return nil, apperrors.ErrInvalidToken.WithErr(errors.New("subject mismatch"))
	}

	info := &TokenInfo{UserID: userID, ExpiresAt: claims.ExpiresAt.Time}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	return info, nil
}
