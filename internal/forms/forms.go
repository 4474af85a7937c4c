package forms

import (
	"context"

	"myblog/internal/models"
)

// UserLookup finds users by their unique columns; it returns nil, nil when absent.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

func usernameExists(users UserLookup) Lookup {
	return func(ctx context.Context, v string) (bool, error) {
		u, err := users.GetByUsername(ctx, v)
		return u != nil, err
	}
}

func emailExists(users UserLookup) Lookup {
	return func(ctx context.Context, v string) (bool, error) {
		u, err := users.GetByEmail(ctx, v)
		return u != nil, err
	}
}

func usernameChecks() []Check {
	return []Check{Required(), Length(models.UsernameMinLen, models.UsernameMaxLen)}
}

func emailChecks() []Check {
	return []Check{Required(), Email(), MaxLength(models.EmailMaxLen)}
}

func passwordChecks() []Check {
	return []Check{Required(), MinLength(models.PasswordMinLen), MaxBytes(72)}
}

// SignupForm creates an account.
type SignupForm struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Validate checks the form, including username and email availability.
func (f *SignupForm) Validate(ctx context.Context, users UserLookup) error {
	return Validate(ctx,
		Field{"username", f.Username, append(usernameChecks(),
			Unique(usernameExists(users), models.UsernameTakenMessage))},
		Field{"email", f.Email, append(emailChecks(),
			Unique(emailExists(users), models.EmailTakenMessage))},
		Field{"password", f.Password, passwordChecks()},
		Field{"confirm_password", f.ConfirmPassword, []Check{Required(), EqualTo(f.Password, "password")}},
	)
}

// LoginForm authenticates by email and password.
type LoginForm struct {
	Email    string
	Password string
	Remember bool
}

func (f *LoginForm) Validate(ctx context.Context) error {
	return Validate(ctx,
		Field{"email", f.Email, []Check{Required(), Email()}},
		Field{"password", f.Password, []Check{Required()}},
	)
}

// AccountForm updates the profile of the current user. PictureName is the
// uploaded file's name, empty when no picture was sent.
type AccountForm struct {
	Username    string
	Email       string
	PictureName string
}

// Validate checks the form; uniqueness is only checked for changed values.
func (f *AccountForm) Validate(ctx context.Context, users UserLookup, current *models.User) error {
	return Validate(ctx,
		Field{"username", f.Username, append(usernameChecks(),
			Unless(f.Username == current.Username, Unique(usernameExists(users), models.UsernameTakenMessage)))},
		Field{"email", f.Email, append(emailChecks(),
			Unless(models.NormalizeEmail(f.Email) == current.Email, Unique(emailExists(users), models.EmailTakenMessage)))},
		Field{"picture", f.PictureName, []Check{Optional(FileAllowed("jpg", "png"))}},
	)
}

// RequestResetForm asks for a password reset mail.
type RequestResetForm struct {
	Email string
}

func (f *RequestResetForm) Validate(ctx context.Context, users UserLookup) error {
	return Validate(ctx,
		Field{"email", f.Email, append(emailChecks(), Exists(emailExists(users), models.NoAccountMessage))},
	)
}

// ResetPasswordForm sets a new password.
type ResetPasswordForm struct {
	Password        string
	ConfirmPassword string
}

func (f *ResetPasswordForm) Validate(ctx context.Context) error {
	return Validate(ctx,
		Field{"password", f.Password, passwordChecks()},
		Field{"confirm_password", f.ConfirmPassword, []Check{Required(), EqualTo(f.Password, "password")}},
	)
}

// PostForm creates or edits a post.
type PostForm struct {
	Title   string
	Content string
}

func (f *PostForm) Validate(ctx context.Context) error {
	return Validate(ctx,
		Field{"title", f.Title, []Check{Required(), MaxLength(models.TitleMaxLen)}},
		Field{"content", f.Content, []Check{Required()}},
	)
}
