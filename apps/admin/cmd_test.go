package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/sigcolegio/backend/core"
	"github.com/sigcolegio/backend/core/catalog"
	"github.com/sigcolegio/backend/core/qualification"
	"github.com/sigcolegio/backend/core/user"
	"github.com/sigcolegio/backend/core/validity"
	emailsvc "github.com/sigcolegio/backend/services/email"
	"github.com/sigcolegio/backend/services/report"
	dummydb "github.com/sigcolegio/backend/storage/database/dummy"
	testutil "github.com/sigcolegio/backend/tests"
)

type fixture struct {
	cli     *commandLine
	out     *bytes.Buffer
	db      *dummydb.DB
	usrRepo user.Repository
	catRepo catalog.Repository
	mailSvc *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) *fixture {
	db, err := dummydb.Open()
	require.NoError(t, err)

	conf := core.NewTestConfig()
	logger := testutil.NewLogger(conf)
	validate, translator := testutil.NewValidator()
	core.ParseEmailTemplates(conf, logger)

	usrRepo := dummydb.NewUserRepository(db)
	catRepo := dummydb.NewCatalogRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	catSvc := catalog.NewService(catRepo, usrSvc)

	out := new(bytes.Buffer)
	return &fixture{
		cli: &commandLine{
			out:         out,
			usrSvc:      usrSvc,
			qualSvc:     qualification.NewService(dummydb.NewQualificationRepository(db), catSvc, catSvc, validate, translator),
			validitySvc: validity.NewService(dummydb.NewValidityRepository(db), validate, translator),
			mailSvc:     mailSvc,
			validate:    validate,
			translator:  translator,
		},
		out:     out,
		db:      db,
		usrRepo: usrRepo,
		catRepo: catRepo,
		mailSvc: mailSvc,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	switch {
	case tt.wantErr != nil:
		if err != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err == nil || err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
		}
	case err != nil:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func Test_commandLine_usage(t *testing.T) {
	f := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "migrate: no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "adduser: no id", args: []string{"adduser"}, wantErr: errHelp},
		{name: "activate: no id", args: []string{"activate"}, wantErr: errHelp},
		{name: "generatefinals: no year", args: []string{"generatefinals", "-school", "lol"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, f.cli.run(args))
		})
	}
	assert.Contains(t, f.out.String(), "Usage:")
}

func Test_commandLine_migrate(t *testing.T) {
	f := setup(t)

	gooseRunFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "attendance", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, f.cli.run(args))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	f := setup(t)
	existing := testutil.CreateUser(t, f.usrRepo, "Rosa", "Díaz", "70000001", "rosa@test.co", testutil.DefaultPassword, user.RoleTeacher, false)

	args := func(idNumber string, extra ...string) []string {
		return append([]string{"admin", "adduser", "-id", idNumber, "-first", "Ana", "-last", "Mora"}, extra...)
	}

	mockPassword("")
	assert.Equal(t, errHelp, f.cli.run(args("80000001")), "an empty password prints usage")

	mockPassword("12345678")
	err := f.cli.run(args("80000001"))
	assert.True(t, core.IsValidation(err), "weak passwords are refused: %v", err)

	mockPassword(testutil.DefaultPassword)
	require.NoError(t, f.cli.run(args("80000001", "-role", user.RoleSecretary, "-email", "ANA@test.co")))
	created, err := f.usrRepo.GetUser(context.Background(), user.GetFilter{IdentificationNumber: "80000001"})
	require.NoError(t, err)
	assert.Equal(t, user.RoleSecretary, created.Role)
	assert.Equal(t, "ana@test.co", created.Email)
	assert.True(t, created.IsActive)

	newPwd := "N3w&Str0ngPwd"
	mockPassword(newPwd)
	require.NoError(t, f.cli.run(args(existing.IdentificationNumber)))
	updated, err := f.usrRepo.GetUser(context.Background(), user.GetFilter{ID: existing.ID})
	require.NoError(t, err)
	assert.Equal(t, user.RoleRector, updated.Role)
	assert.True(t, updated.IsActive, "adding an existing user reactivates it")
	assert.NoError(t, updated.CheckPassword(newPwd))
}

func Test_commandLine_resetPassword(t *testing.T) {
	f := setup(t)
	usr := testutil.CreateUser(t, f.usrRepo, "Tomás", "Ruiz", "70000003", "tomas@test.co", testutil.DefaultPassword, user.RoleTeacher, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "id but no password", args: []string{"resetpassword", "-id", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-id", "123456"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with identification", args: []string{"resetpassword", "-id", usr.IdentificationNumber}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-id", "TOMAS@test.co"}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		pwd := ""
		if e, ok := tt.extra.(extra); ok {
			pwd = e.pwd
		}
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			err := f.cli.run(args)
			tt.check(t, err)
			if err == nil {
				refreshed, err := f.usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				require.NoError(t, err)
				assert.NoError(t, refreshed.CheckPassword(pwd), "failed to update new password")
			}
		})
	}
}

func Test_commandLine_validities(t *testing.T) {
	f := setup(t)
	school := testutil.CreateRef(t, f.catRepo, catalog.KindSchool, "Colegio Central", "")

	require.NoError(t, f.cli.run([]string{"admin", "validities"}))
	assert.Contains(t, f.out.String(), "no validities")

	ctx := context.Background()
	v2024, err := f.cli.validitySvc.Create(ctx, validity.NewValidity{Year: 2024, SchoolID: school.ID})
	require.NoError(t, err)
	v2025, err := f.cli.validitySvc.Create(ctx, validity.NewValidity{Year: 2025, SchoolID: school.ID})
	require.NoError(t, err)

	assert.Equal(t, validity.ErrNotFound, f.cli.run([]string{"admin", "activate", "-id", "0b6e2a4c-5b1f-4d7e-9a3c-6f8d2e1b4a70"}))
	require.NoError(t, f.cli.run([]string{"admin", "activate", "-id", v2024.ID}))
	require.NoError(t, f.cli.run([]string{"admin", "activate", "-id", v2025.ID}))

	active, err := f.cli.validitySvc.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, v2025.ID, active.ID)

	f.out.Reset()
	require.NoError(t, f.cli.run([]string{"admin", "validities"}))
	table := f.out.String()
	assert.Contains(t, table, v2024.ID)
	assert.Contains(t, table, "2025")
	assert.Contains(t, table, "AVERAGE 20%")
}

func Test_commandLine_generateFinals(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	school := testutil.CreateRef(t, f.catRepo, catalog.KindSchool, "Colegio Central", "")
	math := testutil.CreateRef(t, f.catRepo, catalog.KindSubject, "Math", school.ID)
	p1 := testutil.CreatePeriod(t, f.catRepo, school.ID, 2024, "P1", 1, 40)
	p2 := testutil.CreatePeriod(t, f.catRepo, school.ID, 2024, "P2", 2, 60)
	student := testutil.CreateUser(t, f.usrRepo, "Lucía", "Pérez", "10000001", "", testutil.DefaultPassword, user.RoleStudent, true)

	for _, g := range []struct {
		period catalog.Period
		grade  float64
	}{{p1, 3}, {p2, 4}} {
		grade := g.grade
		_, err := f.cli.qualSvc.Create(ctx, "", qualification.NewQualification{
			SchoolID:  school.ID,
			StudentID: student.ID,
			SubjectID: math.ID,
			PeriodID:  null.StringFrom(g.period.ID),
			Year:      2024,
			GradeType: qualification.TypePeriod,
			Grade:     &grade,
		})
		require.NoError(t, err)
	}

	err := f.cli.run([]string{"admin", "generatefinals", "-school", school.ID, "-year", "2024", "-email", "lol"})
	assert.True(t, core.IsValidation(err), "invalid emails are refused: %v", err)
	f.mailSvc.Reset()

	require.NoError(t, f.cli.run([]string{"admin", "generatefinals", "-school", school.ID, "-year", "2024", "-email", "rosa@test.co"}))
	assert.Contains(t, f.out.String(), "1 final grades generated")

	finals, err := f.cli.qualSvc.ListFinalsByYear(ctx, 2024, school.ID)
	require.NoError(t, err)
	require.Len(t, finals, 1)
	assert.Equal(t, 3.6, finals[0].Grade)

	sent := f.mailSvc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "rosa@test.co", sent[0].To[0].Address)
	require.Len(t, sent[0].Attachments, 1)
	assert.Equal(t, report.FinalsFilename(2024), sent[0].Attachments[0].Filename)
	assert.Equal(t, report.XLSXContentType, sent[0].Attachments[0].ContentType)
	assert.Contains(t, sent[0].TextContent, "Colegio Central: 1 records")
}
