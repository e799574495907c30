package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sigcolegio/backend/core/validity"
)

type validityApi struct {
	svc *validity.Service
}

func registerValidityAPI(g *echo.Group, auth *authenticator, svc *validity.Service) {
	api := validityApi{svc: svc}

	vg := g.Group("/validities", auth.records())
	read := auth.rolesMiddleware(readRoles...)
	write := auth.rolesMiddleware(settingRoles...)

	vg.GET("", api.list, read)
	vg.GET("/active", api.retrieveActive, read)
	vg.GET("/:id", api.retrieve, read)
	vg.POST("", api.create, write)
	vg.PUT("/:id/activate", api.activate, write)
	vg.PUT("/:id/deactivate", api.deactivate, write)
}

// Handlers

func (api *validityApi) list(ctx echo.Context) error {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	validities, err := api.svc.List(ctx.Request().Context(), ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "listing validities")
	}
	if validities == nil {
		validities = []validity.Validity{}
	}
	return ctx.JSON(http.StatusOK, validities)
}

func (api *validityApi) retrieveActive(ctx echo.Context) error {
	v, err := api.svc.GetActive(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting active validity")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *validityApi) retrieve(ctx echo.Context) error {
	v, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting validity")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *validityApi) create(ctx echo.Context) error {
	var data validity.NewValidity
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewValidity")
	}
	v, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating validity")
	}
	return ctx.JSON(http.StatusCreated, v)
}

func (api *validityApi) activate(ctx echo.Context) error {
	v, err := api.svc.Activate(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "activating validity")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *validityApi) deactivate(ctx echo.Context) error {
	v, err := api.svc.Deactivate(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "deactivating validity")
	}
	return ctx.JSON(http.StatusOK, v)
}
