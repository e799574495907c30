package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/sigcolegio/backend/apps/api/echo"
	"github.com/sigcolegio/backend/core"
	"github.com/sigcolegio/backend/core/catalog"
	"github.com/sigcolegio/backend/core/qualification"
	"github.com/sigcolegio/backend/core/user"
	"github.com/sigcolegio/backend/core/validity"
	emailsvc "github.com/sigcolegio/backend/services/email"
	logsvc "github.com/sigcolegio/backend/services/logger"
	"github.com/sigcolegio/backend/storage/database"
	sqlxrepos "github.com/sigcolegio/backend/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(logsvc.NewStdLogger("API"), conf)
	logger.Enable(!conf.Debug)
	defer logger.Flush()

	dbLogger := logsvc.NewRollbarLogger(logsvc.NewStdLogger("DB"), conf)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	validate, translator := newValidator()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc, conf)
	catSvc := catalog.NewService(sqlxrepos.NewCatalogRepository(db), usrSvc)
	qualSvc := qualification.NewService(sqlxrepos.NewQualificationRepository(db), catSvc, catSvc, validate, translator)
	validitySvc := validity.NewService(sqlxrepos.NewValidityRepository(db), validate, translator)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : %s", conf))
	defer logger.Info("Application stopped")

	core.ParseEmailTemplates(conf, logger)
	user.LoadCommonPasswords(logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:             conf,
		Logger:           logger,
		UserSvc:          usrSvc,
		QualificationSvc: qualSvc,
		ValiditySvc:      validitySvc,
		CatalogSvc:       catSvc,
		Validate:         validate,
		Translator:       translator,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(context.Background(), conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newValidator() (*validator.Validate, ut.Translator) {
	english := en.New()
	translator, _ := ut.New(english, english).GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	qualification.InitValidators(validate, translator)
	validity.InitValidators(validate, translator)
	return validate, translator
}
