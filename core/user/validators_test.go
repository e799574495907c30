package user_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/sigcolegio/backend/core"
	. "github.com/sigcolegio/backend/core/user"
	testutil "github.com/sigcolegio/backend/tests"
)

func TestNewUser_Validate(t *testing.T) {
	validate, translator := testutil.NewValidator()
	LoadCommonPasswords(testutil.NewLogger(core.NewTestConfig()))

	valid := func() NewUser {
		return NewUser{
			IdentificationType:   "cc",
			IdentificationNumber: "1020304050",
			FirstName:            "Laura",
			LastName:             "Mejía",
			Email:                "laura@test.co",
			Password:             testutil.DefaultPassword,
			PasswordConfirm:      testutil.DefaultPassword,
			Role:                 "Secretary",
		}
	}
	withPwd := func(pwd string) func(nu *NewUser) {
		return func(nu *NewUser) {
			nu.Password = pwd
			nu.PasswordConfirm = pwd
		}
	}

	tests := []struct {
		name      string
		mutate    func(nu *NewUser)
		wantField string
		wantErr   string
	}{
		{name: "valid", mutate: func(nu *NewUser) {}},
		{name: "unknown id type", mutate: func(nu *NewUser) { nu.IdentificationType = "XX" }, wantField: "identification_type"},
		{name: "non numeric id", mutate: func(nu *NewUser) { nu.IdentificationNumber = "10A20B30" }, wantField: "identification_number"},
		{name: "short id", mutate: func(nu *NewUser) { nu.IdentificationNumber = "123" }, wantField: "identification_number"},
		{name: "bad email", mutate: func(nu *NewUser) { nu.Email = "lol" }, wantField: "email"},
		{name: "unknown role", mutate: func(nu *NewUser) { nu.Role = "janitor" }, wantField: "role"},
		{name: "bad school", mutate: func(nu *NewUser) { nu.SchoolID = null.StringFrom("lol") }, wantField: "school_id"},
		{name: "confirm mismatch", mutate: func(nu *NewUser) { nu.PasswordConfirm = "lol" }, wantField: "password_confirm"},
		{name: "short password", mutate: withPwd("Ab1$"), wantField: "password", wantErr: "password must contain at least 8 characters"},
		{name: "password with space", mutate: withPwd("Abc1$ defg"), wantField: "password"},
		{name: "numeric password", mutate: withPwd("1234567890"), wantField: "password"},
		{name: "simple password", mutate: withPwd("abcdefgh1"), wantField: "password"},
		{name: "password like name", mutate: withPwd("Laura1#La"), wantField: "password"},
		{name: "common password", mutate: withPwd("P@ssw0rd"), wantField: "password", wantErr: "password is too common"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := valid()
			tt.mutate(&nu)
			err := nu.Validate(validate)
			if tt.wantField == "" {
				require.NoError(t, err)
				assert.Equal(t, "CC", nu.IdentificationType)
				assert.Equal(t, RoleSecretary, nu.Role)
				return
			}

			var vErr *core.ValidationError
			require.ErrorAs(t, core.TranslateValidationErrors(err, translator, ""), &vErr)
			require.NotEmpty(t, vErr.Fields)
			assert.Equal(t, tt.wantField, vErr.Fields[0].Field)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, vErr.Fields[0].Error)
			}
		})
	}
}

func TestUpdateUser_Validate(t *testing.T) {
	validate, _ := testutil.NewValidator()
	orig := User{FirstName: "Pedro", LastName: "Lara", Email: "pedro@test.co", Role: RoleTeacher, IdentificationNumber: "80808080"}

	uu := UpdateUser{LastName: " Larrea "}
	require.NoError(t, uu.Validate(orig, validate))
	assert.Equal(t, "Pedro", uu.FirstName)
	assert.Equal(t, "Larrea", uu.LastName)
	assert.Equal(t, "pedro@test.co", uu.Email)
	assert.Equal(t, RoleTeacher, uu.Role)

	uu = UpdateUser{Password: "80808080xX$"}
	assert.Error(t, uu.Validate(orig, validate), "missing confirmation")

	uu = UpdateUser{Password: "80808080xX$", PasswordConfirm: "80808080xX$"}
	assert.Error(t, uu.Validate(orig, validate), "similar to the identification number")
}
