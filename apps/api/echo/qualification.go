package echoapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sigcolegio/backend/core/qualification"
	"github.com/sigcolegio/backend/services/report"
)

type qualificationApi struct {
	svc *qualification.Service
}

func registerQualificationAPI(g *echo.Group, auth *authenticator, svc *qualification.Service) {
	api := qualificationApi{svc: svc}

	qg := g.Group("/qualifications", auth.records())
	read := auth.rolesMiddleware(readRoles...)
	write := auth.rolesMiddleware(recordRoles...)

	qg.GET("/:id", api.retrieve, read)
	qg.GET("/students/:studentId", api.listByStudent, read)
	qg.GET("/students/:studentId/finals", api.listFinalsByStudent, read)
	qg.GET("/groups/:groupId", api.listByGroup, read)
	qg.GET("/groups/:groupId/finals", api.listFinalsByGroup, read)
	qg.GET("/groups/:groupId/subjects/:subjectId", api.listByGroupAndSubject, read)
	qg.GET("/finals/:year", api.listFinalsByYear, read)

	qg.POST("", api.create, write)
	qg.POST("/batch", api.createBatch, write)
	qg.POST("/generate-finals", api.generateFinals, write)
	qg.PUT("/:id", api.update, write)
	qg.PUT("/finals/:id", api.updateFinal, write)
}

func (api *qualificationApi) respond(ctx echo.Context, code int, quals ...qualification.Qualification) error {
	expanded, err := api.svc.Expand(ctx.Request().Context(), quals...)
	if err != nil {
		return errors.Wrap(err, "expanding qualifications")
	}
	return ctx.JSON(code, expanded)
}

// Handlers

func (api *qualificationApi) retrieve(ctx echo.Context) error {
	q, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting qualification")
	}
	expanded, err := api.svc.Expand(ctx.Request().Context(), q)
	if err != nil {
		return errors.Wrap(err, "expanding qualification")
	}
	return ctx.JSON(http.StatusOK, expanded[0])
}

func (api *qualificationApi) listByStudent(ctx echo.Context) error {
	year, err := intParam(ctx, "year")
	if err != nil {
		return err
	}
	quals, err := api.svc.ListByStudent(ctx.Request().Context(), ctx.Param("studentId"), year)
	if err != nil {
		return errors.Wrap(err, "listing qualifications by student")
	}
	return api.respond(ctx, http.StatusOK, quals...)
}

func (api *qualificationApi) listFinalsByStudent(ctx echo.Context) error {
	year, err := intParam(ctx, "year")
	if err != nil {
		return err
	}
	quals, err := api.svc.ListFinalsByStudent(ctx.Request().Context(), ctx.Param("studentId"), year)
	if err != nil {
		return errors.Wrap(err, "listing finals by student")
	}
	return api.respond(ctx, http.StatusOK, quals...)
}

func (api *qualificationApi) listByGroup(ctx echo.Context) error {
	year, err := intParam(ctx, "year")
	if err != nil {
		return err
	}
	quals, err := api.svc.ListByGroup(ctx.Request().Context(), ctx.Param("groupId"), year)
	if err != nil {
		return errors.Wrap(err, "listing qualifications by group")
	}
	return api.respond(ctx, http.StatusOK, quals...)
}

func (api *qualificationApi) listFinalsByGroup(ctx echo.Context) error {
	year, err := intParam(ctx, "year")
	if err != nil {
		return err
	}
	quals, err := api.svc.ListFinalsByGroup(ctx.Request().Context(), ctx.Param("groupId"), year)
	if err != nil {
		return errors.Wrap(err, "listing finals by group")
	}
	return api.respond(ctx, http.StatusOK, quals...)
}

func (api *qualificationApi) listByGroupAndSubject(ctx echo.Context) error {
	year, err := intParam(ctx, "year")
	if err != nil {
		return err
	}
	quals, err := api.svc.ListByGroupAndSubject(ctx.Request().Context(), ctx.Param("groupId"), ctx.Param("subjectId"), year)
	if err != nil {
		return errors.Wrap(err, "listing qualifications by group and subject")
	}
	return api.respond(ctx, http.StatusOK, quals...)
}

// listFinalsByYear answers JSON, or a spreadsheet with ?format=xlsx.
func (api *qualificationApi) listFinalsByYear(ctx echo.Context) error {
	year, err := intParam(ctx, "year")
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()
	quals, err := api.svc.ListFinalsByYear(reqCtx, year, ctx.QueryParam("school_id"))
	if err != nil {
		return errors.Wrap(err, "listing finals by year")
	}
	if ctx.QueryParam("format") != "xlsx" {
		return api.respond(ctx, http.StatusOK, quals...)
	}

	expanded, err := api.svc.Expand(reqCtx, quals...)
	if err != nil {
		return errors.Wrap(err, "expanding finals")
	}
	var buf bytes.Buffer
	if err = report.WriteFinals(&buf, expanded); err != nil {
		return errors.Wrap(err, "writing finals report")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", report.FinalsFilename(year)))
	return ctx.Blob(http.StatusOK, report.XLSXContentType, buf.Bytes())
}

func (api *qualificationApi) create(ctx echo.Context) error {
	var data qualification.NewQualification
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQualification")
	}
	q, err := api.svc.Create(ctx.Request().Context(), principal(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating qualification")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *qualificationApi) createBatch(ctx echo.Context) error {
	var batch []qualification.NewQualification
	if err := json.NewDecoder(ctx.Request().Body).Decode(&batch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "the body must be a list of qualifications").SetInternal(err)
	}
	created, err := api.svc.CreateBatch(ctx.Request().Context(), principal(ctx), batch)
	if err != nil {
		return errors.Wrap(err, "creating qualifications")
	}
	return ctx.JSON(http.StatusCreated, BatchResponse{
		Message: fmt.Sprintf("%d qualifications created", len(created)),
		Data:    created,
	})
}

func (api *qualificationApi) generateFinals(ctx echo.Context) error {
	var scope qualification.FinalsScope
	if err := ctx.Bind(&scope); err != nil {
		return errors.Wrap(err, "binding to FinalsScope")
	}
	res, err := api.svc.GenerateFinals(ctx.Request().Context(), principal(ctx), scope)
	if err != nil {
		return errors.Wrap(err, "generating finals")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *qualificationApi) update(ctx echo.Context) error {
	var data qualification.UpdateQualification
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateQualification")
	}
	q, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating qualification")
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *qualificationApi) updateFinal(ctx echo.Context) error {
	var data qualification.UpdateQualification
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateQualification")
	}
	// the param name is shared with GET /finals/:year
	q, err := api.svc.UpdateFinal(ctx.Request().Context(), ctx.ParamValues()[0], data)
	if err != nil {
		return errors.Wrap(err, "updating final qualification")
	}
	return ctx.JSON(http.StatusOK, q)
}

type BatchResponse struct {
	Message string                        `json:"message"`
	Data    []qualification.Qualification `json:"data"`
}
