package user

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/compass/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDeactivated = errors.New("this account has been deactivated")

	invalidValue = "invalid value"

	newID = uuid.NewString // mockable
)

type (
	Repository interface {
		// CheckEmailUniqueness returns ErrEmailExists when another operator than excludedUsers uses the email.
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
	}

	Service struct {
		repo     Repository
		mailSvc  core.EmailService
		validate *validator.Validate
		tokens   tokenGenerator
		conf     *core.Config
	}

	// PasswordResetData is passed to the "password_reset" email templates.
	PasswordResetData struct {
		Name string
		URL  string
	}
)

func NewService(repo Repository, mailSvc core.EmailService, validate *validator.Validate, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		mailSvc:  mailSvc,
		validate: validate,
		tokens:   newTokenGenerator(conf.SecretKey, conf.PasswordResetTimeoutDelta),
		conf:     conf,
	}
}

func (svc *Service) checkUniqueness(ctx context.Context, email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, exclUsers...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Authenticate checks the credentials of an operator and records the login.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "getting user")
	}
	if err := usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}

	usr.LastLogin = time.Now().UTC()
	usr, err = svc.repo.UpdateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "updating last login")
	}
	return usr, nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.Validate(svc.validate); err != nil {
		return User{}, err
	}
	if err := svc.checkUniqueness(ctx, nu.Email); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr := User{
		ID:        newID(),
		Name:      nu.Name,
		Email:     nu.Email,
		IsActive:  true,
		IsAdmin:   nu.IsAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

// SetPassword applies the password policy to pwd then stores its hash.
func (svc *Service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if tag := checkPassword(pwd, usr.Name, usr.Email); tag != "" {
		return User{}, passwordError(tag)
	}
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// RequestPasswordReset mails a reset link to the active operator owning email.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	return svc.sendPasswordResetMail(usr)
}

func (svc *Service) sendPasswordResetMail(usr User) error {
	query := url.Values{}
	query.Set("uid", EncodeUID(usr))
	query.Set("token", svc.tokens.makeToken(usr))

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      fmt.Sprintf("%s: password reset", svc.conf.AppName),
		TemplateName: "password_reset",
		TemplateData: PasswordResetData{
			Name: usr.Name,
			URL:  svc.conf.FrontendBaseURL + "/password-reset/confirm?" + query.Encode(),
		},
	}
	svc.mailSvc.SendMessages(msg)
	return nil
}

// ResetPassword sets a new password for the operator identified by the uid and token of a reset link.
func (svc *Service) ResetPassword(ctx context.Context, data ResetUserPassword) (User, error) {
	if err := data.Validate(svc.validate); err != nil {
		return User{}, err
	}

	id, err := decodeUID(data.UID)
	if err != nil {
		return User{}, core.NewValidationError(nil, core.FieldError{Field: "uid", Error: invalidValue})
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, core.NewValidationError(nil, core.FieldError{Field: "uid", Error: invalidValue})
		}
		return User{}, errors.Wrap(err, "getting user")
	}
	if err := svc.tokens.verifyToken(usr, data.Token); err != nil {
		return User{}, core.NewValidationError(err, core.FieldError{Field: "token", Error: invalidValue})
	}
	return svc.SetPassword(ctx, usr, data.Password)
}
