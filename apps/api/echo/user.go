package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sigcolegio/backend/core"
	"github.com/sigcolegio/backend/core/user"
)

var errNoPermsToSetRole = "not enough rights to set this role"

type authApi struct {
	auth       *authenticator
	svc        *user.Service
	validate   *validator.Validate
	translator ut.Translator
	logger     core.Logger
}

func registerAuthAPI(
	g *echo.Group,
	auth *authenticator,
	svc *user.Service,
	validate *validator.Validate,
	translator ut.Translator,
	logger core.Logger,
) {
	api := authApi{
		auth:       auth,
		svc:        svc,
		validate:   validate,
		translator: translator,
		logger:     logger,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	// TODO: rate limit `/login`, `/password-reset` & `/password-reset-confirm`
	ag.POST("/login", api.login)
	ag.POST("/password-reset", api.resetPassword)
	ag.POST("/password-reset-confirm", api.confirmPasswordReset)
	ag.POST("/register", api.register, auth.records(), auth.rolesMiddleware(user.StaffRoles...))

	// authed endpoints
	jwt := auth.required()
	ag.GET("/profile", api.profile, jwt)
	ag.POST("/token-refresh", api.refreshToken, jwt)
}

// Handlers

func (api *authApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate); err != nil {
		return core.TranslateValidationErrors(err, api.translator, "")
	}

	// ctxUser cannot set a role > their own
	if principal(ctx) != "" {
		ctxUsr, err := api.auth.contextUser(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		if user.RolePriority(data.Role) > user.RolePriority(ctxUsr.Role) {
			return core.NewValidationError(nil, core.FieldError{Field: "role", Error: errNoPermsToSetRole})
		}
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	token, err := GenerateToken(api.auth.conf, NewUserClaims(api.auth.conf, usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusCreated, AuthResponse{Message: "User created", User: usr.Summary(), Token: token})
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return core.TranslateValidationErrors(err, api.translator, "")
	}

	usr, token, err := api.auth.authenticate(ctx, data.IdentificationNumber, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}

	return ctx.JSON(http.StatusOK, AuthResponse{Message: "Logged in", User: usr.Summary(), Token: token})
}

func (api *authApi) profile(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refreshToken(ctx)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *authApi) resetPassword(ctx echo.Context) error {
	var data PasswordResetRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PasswordResetRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return core.TranslateValidationErrors(err, api.translator, "")
	}

	err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email)
	if !(err == nil || err == user.ErrNotFound) {
		// do not return errors to attackers
		api.logger.Error("requesting password reset", errors.Wrap(err, "requesting password reset"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *authApi) confirmPasswordReset(ctx echo.Context) error {
	var data user.ResetUserPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetUserPassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return core.TranslateValidationErrors(err, api.translator, "")
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been reset with the new password."})
}

type (
	LoginRequest struct {
		IdentificationNumber string `json:"identification_number" validate:"required"`
		Password             string `json:"password" validate:"required"`
	}

	AuthResponse struct {
		Message string       `json:"message"`
		User    user.Summary `json:"user"`
		Token   string       `json:"token"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	PasswordResetRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.IdentificationNumber = core.CleanString(lr.IdentificationNumber)
	return validate.Struct(lr)
}

func (pr *PasswordResetRequest) Validate(validate *validator.Validate) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	return validate.Struct(pr)
}
