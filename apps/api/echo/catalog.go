package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sigcolegio/backend/core"
	"github.com/sigcolegio/backend/core/catalog"
)

type catalogApi struct {
	svc        *catalog.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerCatalogAPI(
	g *echo.Group,
	auth *authenticator,
	svc *catalog.Service,
	validate *validator.Validate,
	translator ut.Translator,
) {
	api := catalogApi{
		svc:        svc,
		validate:   validate,
		translator: translator,
	}

	cg := g.Group("/catalog", auth.records())
	read := auth.rolesMiddleware(readRoles...)
	write := auth.rolesMiddleware(recordRoles...)

	paths := map[string]string{
		catalog.KindSchool:  "/schools",
		catalog.KindSubject: "/subjects",
		catalog.KindGroup:   "/groups",
	}
	for kind, path := range paths {
		cg.GET(path, api.listRefs(kind), read)
		cg.POST(path, api.createRef(kind), write)
	}
	cg.GET("/periods", api.listPeriods, read)
	cg.POST("/periods", api.createPeriod, write)
}

// Handlers

func (api *catalogApi) listRefs(kind string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		refs, err := api.svc.ListRefs(ctx.Request().Context(), kind, ctx.QueryParam("school_id"))
		if err != nil {
			return errors.Wrapf(err, "listing %s refs", kind)
		}
		if refs == nil {
			refs = []catalog.Ref{}
		}
		return ctx.JSON(http.StatusOK, refs)
	}
}

func (api *catalogApi) createRef(kind string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var data catalog.NewRef
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to NewRef")
		}
		data.Kind = kind
		if err := data.Validate(api.validate); err != nil {
			return core.TranslateValidationErrors(err, api.translator, "")
		}

		ref, err := api.svc.CreateRef(ctx.Request().Context(), data)
		if err != nil {
			return errors.Wrapf(err, "creating %s ref", kind)
		}
		return ctx.JSON(http.StatusCreated, ref)
	}
}

func (api *catalogApi) listPeriods(ctx echo.Context) error {
	year, err := intParam(ctx, "year")
	if err != nil {
		return err
	}
	periods, err := api.svc.ListPeriods(ctx.Request().Context(), ctx.QueryParam("school_id"), year)
	if err != nil {
		return errors.Wrap(err, "listing periods")
	}
	if periods == nil {
		periods = []catalog.Period{}
	}
	return ctx.JSON(http.StatusOK, periods)
}

func (api *catalogApi) createPeriod(ctx echo.Context) error {
	var data catalog.NewPeriod
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPeriod")
	}
	if err := data.Validate(api.validate); err != nil {
		return core.TranslateValidationErrors(err, api.translator, "")
	}

	p, err := api.svc.CreatePeriod(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating period")
	}
	return ctx.JSON(http.StatusCreated, p)
}
