package middleware

import (
	"errors"
	"strings"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/spmukhedkar/user-role-system-server/internal/auth"
	apperrors "github.com/spmukhedkar/user-role-system-server/internal/errors"
	"github.com/spmukhedkar/user-role-system-server/internal/observe"
)

const (
	// StageAuth names the authentication stage in metrics.
	StageAuth = "auth"
	// StageAdminAuth names the authentication + admin stage in metrics.
	StageAdminAuth = "adminAuth"

	principalKey = "principal"
	outcomeAllow = "allowed"
)

// Gate runs stage against the bearer token of each request.
// On success the principal is stored in the echo context; see PrincipalFrom.
func Gate(name string, stage auth.Stage, metrics *observe.Metrics) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ContextKey:  principalKey,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			ctx := c.Request().Context()
			p, err := stage(ctx, &auth.Principal{Token: strings.TrimSpace(token)})
			metrics.RecordGateDecision(ctx, name, outcome(err))
			if err != nil {
				return nil, err
			}
			return p, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			var extraction *echojwt.TokenExtractionError
			if errors.As(err, &extraction) {
				metrics.RecordGateDecision(c.Request().Context(), name, outcome(apperrors.ErrMissingToken))
				err = apperrors.ErrMissingToken
			}
			return HTTPError(err)
		},
	})
}

// PrincipalFrom returns the principal stored by Gate.
func PrincipalFrom(c echo.Context) (*auth.Principal, bool) {
	p, ok := c.Get(principalKey).(*auth.Principal)
	return p, ok && p != nil && p.User != nil
}

// HTTPError converts err into an echo error carrying the standard error body.
func HTTPError(err error) error {
	mapped := apperrors.MapErrorToHTTP(err)
	return echo.NewHTTPError(mapped.StatusCode, mapped.ToErrorResponse()).SetInternal(err)
}

func outcome(err error) string {
	if err == nil {
		return outcomeAllow
	}
	var e *apperrors.Error
	if errors.As(err, &e) {
		return strings.ToLower(e.Code)
	}
	return "error"
}
