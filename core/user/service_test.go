package user_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigcolegio/backend/core"
	. "github.com/sigcolegio/backend/core/user"
	emailsvc "github.com/sigcolegio/backend/services/email"
	dummydb "github.com/sigcolegio/backend/storage/database/dummy"
	testutil "github.com/sigcolegio/backend/tests"
)

type fixture struct {
	svc     *Service
	repo    Repository
	mailSvc *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) fixture {
	db, err := dummydb.Open()
	require.NoError(t, err)

	conf := core.NewTestConfig()
	logger := testutil.NewLogger(conf)
	core.ParseEmailTemplates(conf, logger)

	repo := dummydb.NewUserRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	return fixture{
		svc:     NewService(repo, mailSvc, conf),
		repo:    repo,
		mailSvc: mailSvc,
	}
}

func TestService_Register(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	nu := NewUser{
		IdentificationType:   IDCitizenship,
		IdentificationNumber: "1020304050",
		FirstName:            "Laura",
		LastName:             "Mejía",
		Email:                "laura@test.co",
		Password:             testutil.DefaultPassword,
		PasswordConfirm:      testutil.DefaultPassword,
		Role:                 RoleSecretary,
	}
	usr, err := f.svc.Register(ctx, nu)
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword(testutil.DefaultPassword))

	got, err := f.svc.GetByIdentification(ctx, " 1020304050 ")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	got, err = f.svc.GetByEmail(ctx, "LAURA@test.co")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	_, err = f.svc.Register(ctx, nu)
	assert.Equal(t, ErrIdentificationExists, err)

	nu.IdentificationNumber = "99999999"
	_, err = f.svc.Register(ctx, nu)
	assert.Equal(t, ErrEmailExists, err)
}

func TestService_Update(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	validate, _ := testutil.NewValidator()

	usr := testutil.CreateUser(t, f.repo, "Pedro", "Lara", "80808080", "pedro@test.co", testutil.DefaultPassword, RoleTeacher, true)
	other := testutil.CreateUser(t, f.repo, "Rosa", "Díaz", "70707070", "rosa@test.co", "", RoleTeacher, true)

	inactive := false
	uu := UpdateUser{Role: RoleCoordinator, IsActive: &inactive}
	require.NoError(t, uu.Validate(usr, validate))
	updated, err := f.svc.Update(ctx, usr.ID, uu)
	require.NoError(t, err)
	assert.Equal(t, "Pedro", updated.FirstName)
	assert.Equal(t, RoleCoordinator, updated.Role)
	assert.False(t, updated.IsActive)

	uu = UpdateUser{Email: other.Email}
	require.NoError(t, uu.Validate(updated, validate))
	_, err = f.svc.Update(ctx, usr.ID, uu)
	assert.Equal(t, ErrEmailExists, err)

	_, err = f.svc.Update(ctx, "lol", UpdateUser{})
	assert.Equal(t, ErrNotFound, err)
}

func TestService_passwordReset(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, f.repo, "Pedro", "Lara", "80808080", "pedro@test.co", testutil.DefaultPassword, RoleTeacher, true)
	testutil.CreateUser(t, f.repo, "Ina", "Activa", "60606060", "ina@test.co", "", RoleTeacher, false)

	assert.Equal(t, ErrNotFound, f.svc.RequestPasswordReset(ctx, "unknown@test.co"))
	assert.Equal(t, ErrNotFound, f.svc.RequestPasswordReset(ctx, "ina@test.co"))
	assert.Empty(t, f.mailSvc.Sent())

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "pedro@test.co"))
	sent := f.mailSvc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "pedro@test.co", sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "Pedro")

	data := sent[0].TemplateData.(map[string]string)
	newPwd := "N3w&Secure#Pwd"
	reset := ResetUserPassword{UID: data["UID"], Token: data["Token"], Password: newPwd, PasswordConfirm: newPwd}

	assert.Equal(t, ErrInvalidResetLink, f.svc.ResetPassword(ctx, ResetUserPassword{UID: data["UID"], Token: "lol", Password: newPwd}))
	assert.Equal(t, ErrInvalidResetLink, f.svc.ResetPassword(ctx, ResetUserPassword{UID: "lol", Token: data["Token"], Password: newPwd}))

	require.NoError(t, f.svc.ResetPassword(ctx, reset))
	got, err := f.svc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword(newPwd))

	// the token is single use: the password hash changed
	assert.Equal(t, ErrInvalidResetLink, f.svc.ResetPassword(ctx, reset))
}
