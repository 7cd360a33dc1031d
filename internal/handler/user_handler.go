package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/spmukhedkar/user-role-system-server/internal/errors"
	"github.com/spmukhedkar/user-role-system-server/internal/middleware"
	"github.com/spmukhedkar/user-role-system-server/internal/model"
	"github.com/spmukhedkar/user-role-system-server/internal/service"
)

// UserHandler handles account endpoints.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// SignupRequest represents a signup request.
type SignupRequest struct {
	UserName     string `json:"userName" validate:"max=255"`
	Email        string `json:"email" validate:"max=255"`
	Password     string `json:"password" validate:"max=72"`
	MobileNumber string `json:"mobileNumber" validate:"max=32"`
	UserRoles    string `json:"userRoles"`
}

// SigninRequest represents a signin request.
type SigninRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
}

// ChangeAuthorizeRequest represents a change of a user's authorize flag.
type ChangeAuthorizeRequest struct {
	UserID    string `json:"userId"`
	Authorize *bool  `json:"authorize"`
}

// AuthResponse is returned by signup and signin.
type AuthResponse struct {
	Message string         `json:"message"`
	User    model.UserView `json:"user"`
	Token   string         `json:"token"`
}

// UsersResponse lists users.
type UsersResponse struct {
	Count int              `json:"count"`
	Users []model.UserView `json:"users"`
}

// MessageResponse carries a confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// Signup godoc
// @Summary Create a user
// @Description Signs up a user. The authorize status starts as false.
// @Tags users
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Signup data"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /users/signup [post]
func (h *UserHandler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.svc.Signup(c.Request().Context(), service.SignupInput{
		UserName:     req.UserName,
		Email:        req.Email,
		Password:     req.Password,
		MobileNumber: req.MobileNumber,
		UserRoles:    req.UserRoles,
	})
	if err != nil {
		return middleware.HTTPError(err)
	}

	return c.JSON(http.StatusCreated, AuthResponse{
		Message: "User Saved Successfully",
		User:    res.User,
		Token:   res.Token,
	})
}

// Signin godoc
// @Summary Sign in
// @Description Issues a new token. Tokens from earlier signins stay valid.
// @Tags users
// @Accept json
// @Produce json
// @Param request body SigninRequest true "Credentials"
// @Success 200 {object} AuthResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /users/signin [post]
func (h *UserHandler) Signin(c echo.Context) error {
	var req SigninRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.svc.Signin(c.Request().Context(), req.UserName, req.Password)
	if err != nil {
		return middleware.HTTPError(err)
	}

	return c.JSON(http.StatusOK, AuthResponse{
		Message: "User sign in successfully",
		User:    res.User,
		Token:   res.Token,
	})
}

// Signout godoc
// @Summary Sign out
// @Description Revokes the presented token only.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MessageResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /users/signout [post]
func (h *UserHandler) Signout(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return middleware.HTTPError(apperrors.ErrMissingToken)
	}

	if err := h.svc.Signout(c.Request().Context(), p.User, p.Token); err != nil {
		return middleware.HTTPError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Signout Successful"})
}

// Me godoc
// @Summary Current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.UserView
// @Failure 401 {object} errors.ErrorResponse
// @Router /users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return middleware.HTTPError(apperrors.ErrMissingToken)
	}
	return c.JSON(http.StatusOK, p.User.Display())
}

// GetUsersByAuthType godoc
// @Summary List users by authorize status
// @Description Admin only. authType is one of true, false, all.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param authType query string true "true, false or all"
// @Success 200 {object} UsersResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /users/getUsersByAuthType [get]
func (h *UserHandler) GetUsersByAuthType(c echo.Context) error {
	users, err := h.svc.ListUsersByAuthType(c.Request().Context(), c.QueryParam("authType"))
	if err != nil {
		return middleware.HTTPError(err)
	}
	return c.JSON(http.StatusOK, UsersResponse{Count: len(users), Users: users})
}

// ChangeAuthorizeStatus godoc
// @Summary Change authorize status
// @Description Admin only. Both userId and authorize are required; authorize may be false.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangeAuthorizeRequest true "Target user and status"
// @Success 200 {object} MessageResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/changeAuthorizeStatus [post]
func (h *UserHandler) ChangeAuthorizeStatus(c echo.Context) error {
	var req ChangeAuthorizeRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.svc.ChangeAuthorizeStatus(c.Request().Context(), req.UserID, req.Authorize); err != nil {
		return middleware.HTTPError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "authorize status is changed successfully"})
}

// bind decodes and validates the request body into req.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, apperrors.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_BODY",
		})
	}
	if err := c.Validate(req); err != nil {
		return middleware.HTTPError(apperrors.Validation(apperrors.CodeValidation, err.Error()))
	}
	return nil
}
