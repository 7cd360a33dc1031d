package router

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/spmukhedkar/user-role-system-server/internal/auth"
	"github.com/spmukhedkar/user-role-system-server/internal/handler"
	"github.com/spmukhedkar/user-role-system-server/internal/logger"
	"github.com/spmukhedkar/user-role-system-server/internal/middleware"
	"github.com/spmukhedkar/user-role-system-server/internal/observe"
)

// APIPrefix is the base path of the account API.
const APIPrefix = "/api/v2"

// Deps are the collaborators the routes need.
type Deps struct {
	Log     *logger.Logger
	Gate    *auth.Gate
	Users   *handler.UserHandler
	Roles   *handler.RoleHandler
	Health  *handler.HealthHandler
	Metrics *observe.Metrics
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
}

// New builds an echo instance with every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	Register(e, d)
	return e
}

// Register wires routes and middleware.
func Register(e *echo.Echo, d Deps) {
	if d.Log == nil {
		d.Log = logger.Nop()
	}

	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit("1M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			"X-Requested-With",
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
		},
		AllowMethods: []string{http.MethodPut, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodGet},
	}))
	e.Use(middleware.Metrics(d.Metrics))

	if d.Health != nil {
		e.GET("/healthz", d.Health.Health)
	} else {
		e.GET("/healthz", func(c echo.Context) error {
			return c.JSON(http.StatusOK, handler.HealthResponse{Status: "ok"})
		})
	}
	e.GET("/api-docs/*", echoSwagger.WrapHandler)
	if d.MetricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(d.MetricsHandler))
	}

	api := e.Group(APIPrefix)
	authed := middleware.Gate(middleware.StageAuth, d.Gate.User(), d.Metrics)
	admin := middleware.Gate(middleware.StageAdminAuth, d.Gate.Admin(), d.Metrics)

	roles := api.Group("/roles", admin)
	roles.POST("/createRole", d.Roles.CreateRole)
	roles.GET("/getAllRoles", d.Roles.GetAllRoles)

	users := api.Group("/users")
	users.POST("/signup", d.Users.Signup)
	users.POST("/signin", d.Users.Signin)
	users.POST("/signout", d.Users.Signout, authed)
	users.GET("/me", d.Users.Me, authed)
	users.GET("/getUsersByAuthType", d.Users.GetUsersByAuthType, admin)
	users.POST("/changeAuthorizeStatus", d.Users.ChangeAuthorizeStatus, admin)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
