// Package testutil holds the fixtures shared by the package tests.
package testutil

import (
	"context"
	"io/ioutil"
	"log"
	"os"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/sigcolegio/backend/core"
	"github.com/sigcolegio/backend/core/catalog"
	"github.com/sigcolegio/backend/core/qualification"
	"github.com/sigcolegio/backend/core/user"
	"github.com/sigcolegio/backend/core/validity"
	logsvc "github.com/sigcolegio/backend/services/logger"
	"github.com/sigcolegio/backend/storage/database"
)

const DefaultPassword = "Gr4d3s&Sch00l"

// NewValidator returns a validator with every domain validator registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	english := en.New()
	translator, _ := ut.New(english, english).GetTranslator("en")
	validate := validator.New()

	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	qualification.InitValidators(validate, translator)
	validity.InitValidators(validate, translator)
	return validate, translator
}

// NewLogger returns a logger printing nowhere with Rollbar reporting off.
func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(ioutil.Discard, "", 0), conf)
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	firstName, lastName, idNumber, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		IdentificationType:   user.IDCitizenship,
		IdentificationNumber: idNumber,
		FirstName:            firstName,
		LastName:             lastName,
		Email:                email,
		Role:                 role,
		IsActive:             isActive,
		CreatedAt:            tstamp,
		UpdatedAt:            tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateRef(t *testing.T, repo catalog.Repository, kind, name, schoolID string) catalog.Ref {
	t.Helper()

	ref, err := repo.CreateRef(context.Background(), catalog.Ref{
		Kind:      kind,
		Name:      name,
		SchoolID:  null.NewString(schoolID, schoolID != ""),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateRef() failed: %v", err)
	}
	return ref
}

func CreatePeriod(t *testing.T, repo catalog.Repository, schoolID string, year int, name string, order int, pct float64) catalog.Period {
	t.Helper()

	p, err := repo.CreatePeriod(context.Background(), catalog.Period{
		SchoolID:   schoolID,
		Year:       year,
		Name:       name,
		Order:      order,
		Percentage: pct,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreatePeriod() failed: %v", err)
	}
	return p
}

// OpenTestDB opens the database named by TEST_DATABASE_URL, migrated and emptied.
// The test is skipped when the variable is not set.
func OpenTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.OpenURL(dbURL)
	if err != nil {
		t.Fatalf("OpenTestDB() failed: %v", err)
	}
	if err = database.Migrate(db.DB); err != nil {
		t.Fatalf("OpenTestDB() failed: %v", err)
	}
	ResetDB(t, db)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func ResetDB(t *testing.T, db *sqlx.DB) {
	t.Helper()

	if _, err := db.Exec("TRUNCATE qualifications, validities, periods, refs, users"); err != nil {
		t.Fatalf("ResetDB() failed: %v", err)
	}
}
