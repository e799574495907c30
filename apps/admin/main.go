package main

import (
	"context"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

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
	conf := core.NewConfig()
	std := logsvc.NewStdLogger("ADMIN")
	logger := logsvc.NewRollbarLogger(std, conf)

	// set up DB
	if err := database.CreateIfNotExist(context.Background(), conf); err != nil {
		std.Fatal(err)
	}
	db, err := database.Open(conf)
	if err != nil {
		std.Fatal(err)
	}

	core.ParseEmailTemplates(conf, logger)

	// start CLI
	cli := newCommandLine(db, conf, logger)
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			std.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func newCommandLine(db *sqlx.DB, conf *core.Config, logger core.Logger) *commandLine {
	english := en.New()
	translator, _ := ut.New(english, english).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	qualification.InitValidators(validate, translator)
	validity.InitValidators(validate, translator)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc, conf)
	catSvc := catalog.NewService(sqlxrepos.NewCatalogRepository(db), usrSvc)
	return &commandLine{
		db:          db.DB,
		out:         os.Stdout,
		usrSvc:      usrSvc,
		qualSvc:     qualification.NewService(sqlxrepos.NewQualificationRepository(db), catSvc, catSvc, validate, translator),
		validitySvc: validity.NewService(sqlxrepos.NewValidityRepository(db), validate, translator),
		mailSvc:     mailSvc,
		validate:    validate,
		translator:  translator,
	}
}
