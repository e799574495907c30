package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/sigcolegio/backend/core"
)

var (
	// errors
	ErrNotFound             = core.NewNotFoundError("user")
	ErrIdentificationExists = core.NewConflictError("a user with this identification number already exists", "identification_number")
	ErrEmailExists          = core.NewConflictError("a user with this email already exists", "email")
	ErrInvalidResetLink     = core.NewValidationError(errors.New("the password reset link is invalid or has expired"))
)

type (
	Repository interface {
		// CheckUniqueness returns ErrIdentificationExists or ErrEmailExists when taken by a user not in excludedIDs.
		CheckUniqueness(ctx context.Context, identificationNumber, email string, excludedIDs ...string) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on names, email or identification number.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		GetUsersByIDs(ctx context.Context, ids []string) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
	}

	Service struct {
		repo     Repository
		mailSvc  core.EmailService
		tokenGen *tokenGenerator
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		mailSvc:  mailSvc,
		tokenGen: newTokenGenerator(conf.SecretKey, conf.Server.PasswordResetTimeoutDelta),
	}
}

func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	if err := svc.repo.CheckUniqueness(ctx, nu.IdentificationNumber, nu.Email); err != nil {
		return User{}, err
	}

	now := core.Timestamp(time.Now())
	usr := User{
		IdentificationType:   nu.IdentificationType,
		IdentificationNumber: nu.IdentificationNumber,
		FirstName:            nu.FirstName,
		LastName:             nu.LastName,
		Email:                nu.Email,
		Role:                 nu.Role,
		SchoolID:             nu.SchoolID,
		IsActive:             true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	if !core.IsRef(id) {
		return User{}, ErrNotFound
	}
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByIDs(ctx context.Context, ids []string) ([]User, error) {
	return svc.repo.GetUsersByIDs(ctx, ids)
}

func (svc *Service) GetByIdentification(ctx context.Context, number string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{IdentificationNumber: core.CleanString(number)})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = core.Timestamp(time.Now())
	return svc.repo.UpdateUser(ctx, usr)
}

// Update applies a validated UpdateUser to the user with the given id.
func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err := svc.repo.CheckUniqueness(ctx, usr.IdentificationNumber, uu.Email, usr.ID); err != nil {
		return User{}, err
	}

	usr.FirstName = uu.FirstName
	usr.LastName = uu.LastName
	usr.Email = uu.Email
	usr.Role = uu.Role
	usr.SchoolID = uu.SchoolID
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	usr.UpdatedAt = core.Timestamp(time.Now())
	return svc.repo.UpdateUser(ctx, usr)
}

// SetPassword sets a new password without applying the password policy. Used by operators.
func (svc *Service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = core.Timestamp(time.Now())
	return svc.repo.UpdateUser(ctx, usr)
}

// RequestPasswordReset emails a password reset link to the active user owning the email.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	svc.mailSvc.SendMessages(svc.passwordResetMail(usr))
	return nil
}

func (svc *Service) passwordResetMail(usr User) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName(), Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]string{
			"Name":  usr.FirstName,
			"UID":   EncodeUID(usr),
			"Token": svc.tokenGen.makeToken(usr),
		},
	}
}

func (svc *Service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	id, err := decodeUID(data.UID)
	if err != nil {
		return ErrInvalidResetLink
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if err == ErrNotFound {
			return ErrInvalidResetLink
		}
		return err
	}
	if err := svc.tokenGen.verifyToken(usr, data.Token); err != nil {
		return ErrInvalidResetLink
	}
	_, err = svc.SetPassword(ctx, usr, data.Password)
	return err
}
