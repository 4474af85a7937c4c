package server

import (
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"myblog/internal/auth"
	"myblog/internal/forms"
	"myblog/internal/models"
	"myblog/internal/observability"
	"myblog/internal/service"

	"github.com/gofiber/fiber/v2"
)

func (s *Server) Home(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "home", fiber.Map{"Title": "Home"})
}

func (s *Server) Hello(c *fiber.Ctx) error {
	return c.SendString("Hello world")
}

func (s *Server) SignupPage(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "signup", fiber.Map{
		"Title": "Signup",
		"Form":  forms.SignupForm{},
	})
}

// Signup creates an account and sends the new user to the login page.
func (s *Server) Signup(c *fiber.Ctx) error {
	ctx := c.UserContext()
	form := forms.SignupForm{
		Username:        strings.TrimSpace(c.FormValue("username")),
		Email:           strings.TrimSpace(c.FormValue("email")),
		Password:        c.FormValue("password"),
		ConfirmPassword: c.FormValue("confirm_password"),
	}
	data := fiber.Map{"Title": "Signup", "Form": form}

	if err := form.Validate(ctx, s.users.Users()); err != nil {
		return s.invalid(c, "signup", data, err)
	}
	if _, err := s.users.Signup(ctx, service.SignupInput{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
	}); err != nil {
		return s.invalid(c, "signup", data, err)
	}

	s.sessions.Flash(c, auth.FlashSuccess, fmt.Sprintf("Account created for %s, please login.", form.Username))
	return c.Redirect("/login", fiber.StatusFound)
}

func (s *Server) LoginPage(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "login", fiber.Map{
		"Title": "Login",
		"Form":  forms.LoginForm{},
		"Next":  safeNext(c.Query("next")),
	})
}

// Login starts a session and continues to the page that required it, if any.
func (s *Server) Login(c *fiber.Ctx) error {
	ctx := c.UserContext()
	form := forms.LoginForm{
		Email:    strings.TrimSpace(c.FormValue("email")),
		Password: c.FormValue("password"),
		Remember: c.FormValue("remember_me") != "",
	}
	next := safeNext(c.Query("next"))
	data := fiber.Map{"Title": "Login", "Form": form, "Next": next}

	if err := form.Validate(ctx); err != nil {
		return s.invalid(c, "login", data, err)
	}

	user, err := s.users.Authenticate(ctx, form.Email, form.Password)
	if err != nil {
		if models.CodeOf(err) != models.CodeUnauthorized {
			return err
		}
		s.sessions.Flash(c, auth.FlashDanger, "Login failed: invalid credentials.")
		return s.render(c, fiber.StatusUnauthorized, "login", data)
	}

	if err := s.sessions.Login(c, user.ID, form.Remember); err != nil {
		return err
	}
	s.sessions.Flash(c, auth.FlashSuccess, fmt.Sprintf("Logged as %s!", form.Email))
	if next == "" {
		next = "/home"
	}
	return c.Redirect(next, fiber.StatusFound)
}

func (s *Server) Logout(c *fiber.Ctx) error {
	if currentUser(c) != nil {
		s.rt.Metrics.Auth(observability.EventLogout)
	}
	if err := s.sessions.Logout(c); err != nil {
		return err
	}
	return c.Redirect("/home", fiber.StatusFound)
}

func (s *Server) AccountPage(c *fiber.Ctx) error {
	user := currentUser(c)
	return s.render(c, fiber.StatusOK, "account", fiber.Map{
		"Title":     "Account",
		"Form":      forms.AccountForm{Username: user.Username, Email: user.Email},
		"ImagePath": s.pictures.URL(user.ImageFile),
	})
}

// UpdateAccount changes username and email and, when a file was sent, the profile picture.
func (s *Server) UpdateAccount(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user := currentUser(c)

	form := forms.AccountForm{
		Username: strings.TrimSpace(c.FormValue("username")),
		Email:    strings.TrimSpace(c.FormValue("email")),
	}
	picture := uploadedFile(c, "picture")
	if picture != nil {
		form.PictureName = picture.Filename
	}
	data := fiber.Map{
		"Title":     "Account",
		"Form":      form,
		"ImagePath": s.pictures.URL(user.ImageFile),
	}

	if err := form.Validate(ctx, s.users.Users(), user); err != nil {
		return s.invalid(c, "account", data, err)
	}

	in := service.UpdateAccountInput{
		UserID:   user.ID,
		Username: form.Username,
		Email:    form.Email,
	}
	if picture != nil {
		f, err := picture.Open()
		if err != nil {
			return models.NewInternalError(fmt.Errorf("open upload: %w", err))
		}
		defer f.Close()
		in.PictureName = picture.Filename
		in.Picture = f
	}

	if _, err := s.users.UpdateAccount(ctx, in); err != nil {
		return s.invalid(c, "account", data, err)
	}
	s.sessions.Flash(c, auth.FlashSuccess, "Your account has been updated")
	return c.Redirect("/account", fiber.StatusFound)
}

// uploadedFile returns the named multipart file, or nil when none was sent.
func uploadedFile(c *fiber.Ctx, field string) *multipart.FileHeader {
	fh, err := c.FormFile(field)
	if err != nil || fh == nil || fh.Filename == "" {
		return nil
	}
	return fh
}

func (s *Server) RequestResetPage(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "request_reset", fiber.Map{
		"Title": "Request Reset",
		"Form":  forms.RequestResetForm{},
	})
}

// RequestReset mails a password reset link to an existing account.
func (s *Server) RequestReset(c *fiber.Ctx) error {
	ctx := c.UserContext()
	form := forms.RequestResetForm{Email: strings.TrimSpace(c.FormValue("email"))}
	data := fiber.Map{"Title": "Request Reset", "Form": form}

	if err := form.Validate(ctx, s.users.Users()); err != nil {
		return s.invalid(c, "request_reset", data, err)
	}
	err := s.users.RequestReset(ctx, form.Email, func(token string) string {
		return s.externalURL(c, "/reset_password/"+token)
	})
	if err != nil {
		return s.invalid(c, "request_reset", data, err)
	}

	s.sessions.Flash(c, auth.FlashSuccess, "An email has been sent with instructions to reset your password.")
	return c.Redirect("/login", fiber.StatusFound)
}

func (s *Server) rejectResetToken(c *fiber.Ctx) error {
	s.sessions.Flash(c, auth.FlashWarning, "The provided token is invalid or expired.")
	return c.Redirect("/reset_password", fiber.StatusFound)
}

func (s *Server) ResetPasswordPage(c *fiber.Ctx) error {
	token := c.Params("token")
	if _, err := s.users.CheckResetToken(c.UserContext(), token); err != nil {
		return s.rejectResetToken(c)
	}
	return s.render(c, fiber.StatusOK, "reset_password", fiber.Map{
		"Title": "Reset Password",
		"Form":  forms.ResetPasswordForm{},
		"Token": token,
	})
}

// ResetPassword sets a new password for the account the token was issued for.
func (s *Server) ResetPassword(c *fiber.Ctx) error {
	ctx := c.UserContext()
	token := c.Params("token")
	if _, err := s.users.CheckResetToken(ctx, token); err != nil {
		return s.rejectResetToken(c)
	}

	form := forms.ResetPasswordForm{
		Password:        c.FormValue("password"),
		ConfirmPassword: c.FormValue("confirm_password"),
	}
	data := fiber.Map{"Title": "Reset Password", "Form": form, "Token": token}
	if err := form.Validate(ctx); err != nil {
		return s.invalid(c, "reset_password", data, err)
	}

	if err := s.users.ResetPassword(ctx, token, form.Password); err != nil {
		if errors.Is(err, service.ErrInvalidResetToken) {
			return s.rejectResetToken(c)
		}
		return s.invalid(c, "reset_password", data, err)
	}
	s.sessions.Flash(c, auth.FlashSuccess, "Your password has been updated, please login.")
	return c.Redirect("/login", fiber.StatusFound)
}
