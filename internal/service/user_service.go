// Package service holds the account and post workflows behind the HTTP handlers.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"myblog/internal/auth"
	"myblog/internal/mail"
	"myblog/internal/media"
	"myblog/internal/models"
	"myblog/internal/observability"
	"myblog/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// ErrInvalidResetToken covers malformed, tampered and expired reset tokens alike.
var ErrInvalidResetToken = errors.New("reset token is invalid or expired")

// UserServiceDeps wires a UserService. Metrics and Logger may be nil.
type UserServiceDeps struct {
	Users    repository.UserRepository
	Hasher   *auth.PasswordHasher
	Tokens   *auth.TokenCodec
	Mailer   mail.Mailer
	Pictures *media.Store
	Sender   string
	Metrics  *observability.Metrics
	Logger   *slog.Logger
}

type UserService struct {
	users    repository.UserRepository
	hasher   *auth.PasswordHasher
	tokens   *auth.TokenCodec
	mailer   mail.Mailer
	pictures *media.Store
	sender   string
	metrics  *observability.Metrics
	log      *slog.Logger
}

func NewUserService(deps UserServiceDeps) *UserService {
	log := deps.Logger
	if log == nil {
		log = observability.NopLogger()
	}
	return &UserService{
		users:    deps.Users,
		hasher:   deps.Hasher,
		tokens:   deps.Tokens,
		mailer:   deps.Mailer,
		pictures: deps.Pictures,
		sender:   deps.Sender,
		metrics:  deps.Metrics,
		log:      log,
	}
}

// Users exposes the lookups the forms validate against.
func (s *UserService) Users() repository.UserRepository {
	return s.users
}

type SignupInput struct {
	Username string
	Email    string
	Password string
}

// Signup hashes the password and stores the new account. A username or email
// taken concurrently surfaces as a field validation error.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (user *models.User, err error) {
	ctx, span := observability.StartSpan(ctx, "UserService.Signup")
	defer func() { observability.EndSpan(span, err) }()

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	user = &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		ImageFile:    models.DefaultImageFile,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	s.metrics.Auth(observability.EventSignup)
	s.log.InfoContext(ctx, "User signed up", slog.Uint64("user_id", uint64(user.ID)))
	return user, nil
}

// Authenticate returns the user owning email when password matches. Unknown
// addresses and wrong passwords fail the same way.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !s.hasher.Verify(password, user.PasswordHash) {
		s.metrics.Auth(observability.EventLoginFailure)
		return nil, models.NewUnauthorizedError("invalid credentials")
	}
	s.metrics.Auth(observability.EventLoginSuccess)
	user.PasswordHash = ""
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdateAccountInput carries the profile form. Picture is nil when no file was uploaded.
type UpdateAccountInput struct {
	UserID      uint
	Username    string
	Email       string
	PictureName string
	Picture     io.Reader
}

// UpdateAccount stores a new picture if one was sent, then writes the profile.
// The previous picture is removed once the profile points at the new one.
func (s *UserService) UpdateAccount(ctx context.Context, in UpdateAccountInput) (user *models.User, err error) {
	ctx, span := observability.StartSpan(ctx, "UserService.UpdateAccount",
		attribute.Int64("user.id", int64(in.UserID)))
	defer func() { observability.EndSpan(span, err) }()

	user, err = s.users.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	previous := user.ImageFile
	if in.Picture != nil {
		name, err := s.pictures.SaveProfilePicture(user.Username, in.PictureName, in.Picture)
		if err != nil {
			return nil, err
		}
		user.ImageFile = name
	}
	user.Username = in.Username
	user.Email = in.Email

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		if user.ImageFile != previous {
			_ = s.pictures.Remove(user.ImageFile)
		}
		return nil, err
	}
	if user.ImageFile != previous {
		if err := s.pictures.Remove(previous); err != nil {
			s.log.WarnContext(ctx, "Failed to remove old profile picture",
				slog.String("file", previous), slog.String("error", err.Error()))
		}
	}
	return user, nil
}

// RequestReset mails a reset link to the account owning email. resetURL turns
// a token into the absolute link placed in the mail.
func (s *UserService) RequestReset(ctx context.Context, email string, resetURL func(token string) string) (err error) {
	ctx, span := observability.StartSpan(ctx, "UserService.RequestReset")
	defer func() { observability.EndSpan(span, err) }()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return models.NewFieldError("email", models.NoAccountMessage)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return models.NewInternalError(err)
	}
	err = s.mailer.Send(ctx, mail.ResetMessage(s.sender, user.Email, resetURL(token)))
	s.metrics.Mail(err)
	if err != nil {
		return models.NewInternalError(fmt.Errorf("send reset mail: %w", err))
	}
	s.metrics.Auth(observability.EventResetRequested)
	return nil
}

// CheckResetToken reports the user a reset token was issued for.
func (s *UserService) CheckResetToken(ctx context.Context, token string) (uint, error) {
	id, status := s.tokens.Inspect(token)
	if status != auth.TokenValid {
		s.metrics.Auth(observability.EventResetRejected)
		s.log.DebugContext(ctx, "Reset token rejected", slog.String("status", status.String()))
		return 0, ErrInvalidResetToken
	}
	return id, nil
}

// ResetPassword sets a new password for the user the token was issued for.
func (s *UserService) ResetPassword(ctx context.Context, token, password string) (err error) {
	ctx, span := observability.StartSpan(ctx, "UserService.ResetPassword")
	defer func() { observability.EndSpan(span, err) }()

	id, err := s.CheckResetToken(ctx, token)
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
		if models.IsNotFound(err) {
			return ErrInvalidResetToken
		}
		return err
	}
	s.metrics.Auth(observability.EventResetCompleted)
	return nil
}
