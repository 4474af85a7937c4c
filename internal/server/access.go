package server

import (
	"log/slog"
	"net/url"
	"strings"

	"myblog/internal/auth"
	"myblog/internal/middleware"
	"myblog/internal/models"
	"myblog/internal/observability"

	"github.com/gofiber/fiber/v2"
)

const userLocal = "user"

// loadUser resolves the session's user id to the account. A session pointing
// at a missing account is logged out.
func (s *Server) loadUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := s.sessions.CurrentUserID(c)
		if !ok {
			return c.Next()
		}

		user, err := s.users.GetUser(c.UserContext(), id)
		if err != nil {
			if !models.IsNotFound(err) {
				return err
			}
			s.log.WarnContext(c.UserContext(), "Session user no longer exists", slog.Uint64("user_id", uint64(id)))
			if err := s.sessions.Logout(c); err != nil {
				return err
			}
			return c.Next()
		}

		c.Locals(userLocal, user)
		c.Locals(middleware.UserIDLocal, user.ID)
		c.SetUserContext(observability.WithUserID(c.UserContext(), user.ID))
		return c.Next()
	}
}

// currentUser returns the logged-in user, or nil.
func currentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userLocal).(*models.User)
	return user
}

// LoginRequired redirects anonymous visitors to the login page, remembering
// where they wanted to go.
func (s *Server) LoginRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if currentUser(c) != nil {
			return c.Next()
		}
		s.sessions.Flash(c, auth.FlashInfo, "Please log in to access this page.")
		return c.Redirect("/login?next="+url.QueryEscape(c.OriginalURL()), fiber.StatusFound)
	}
}

// AnonymousOnly sends logged-in users home.
func (s *Server) AnonymousOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if currentUser(c) != nil {
			return c.Redirect("/home", fiber.StatusFound)
		}
		return c.Next()
	}
}

// safeNext returns next when it is a path on this site, "" otherwise.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	return next
}

// externalURL turns a local path into an absolute link for mails.
func (s *Server) externalURL(c *fiber.Ctx, path string) string {
	if s.cfg.BaseURL != "" {
		return s.cfg.BaseURL + path
	}
	return c.BaseURL() + path
}
