package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"myblog/internal/auth"
	"myblog/internal/forms"
	"myblog/internal/models"

	"github.com/gofiber/fiber/v2"
)

// render executes a page inside the main layout. Every page sees the current
// user, pending flashes, the CSRF token, field errors and a title.
func (s *Server) render(c *fiber.Ctx, status int, name string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if _, ok := data["Title"]; !ok {
		data["Title"] = ""
	}
	if _, ok := data["Errors"]; !ok {
		data["Errors"] = forms.Errors(nil)
	}
	data["CurrentUser"] = currentUser(c)
	data["Flashes"] = s.sessions.PopFlashes(c)
	data["CSRF"] = csrfToken(c)
	return c.Status(status).Render(name, data)
}

// invalid re-renders a form page with the field errors carried by err.
// Errors that do not belong to a field are returned unchanged.
func (s *Server) invalid(c *fiber.Ctx, name string, data fiber.Map, err error) error {
	errs, ok := fieldErrors(err)
	if !ok {
		return err
	}
	data["Errors"] = errs
	return s.render(c, fiber.StatusUnprocessableEntity, name, data)
}

// fieldErrors extracts form errors from a validation failure, including
// field errors raised by the store after the form passed.
func fieldErrors(err error) (forms.Errors, bool) {
	if errs, ok := forms.AsErrors(err); ok {
		return errs, true
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code == models.CodeValidation && appErr.Field != "" {
		return forms.Errors{appErr.Field: appErr.Message}, true
	}
	return nil, false
}

func csrfToken(c *fiber.Ctx) string {
	token, _ := c.Locals(csrfContextKey).(string)
	return token
}

func statusOf(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	switch models.CodeOf(err) {
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeForbidden:
		return fiber.StatusForbidden
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	case models.CodeValidation:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// errorHandler turns handler errors into the error pages. It runs after the
// session middleware has finished, so pending flashes stay queued.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := statusOf(err)
	if code >= fiber.StatusInternalServerError {
		s.log.ErrorContext(c.UserContext(), "Request error",
			slog.String("path", c.Path()), slog.String("error", err.Error()))
	}

	var page string
	switch {
	case code == fiber.StatusNotFound, code == fiber.StatusForbidden, code == fiber.StatusTooManyRequests:
		page = fmt.Sprintf("errors/%d", code)
	case code >= fiber.StatusInternalServerError:
		page = "errors/500"
	default:
		return c.Status(code).SendString(http.StatusText(code))
	}

	data := fiber.Map{
		"Title":       http.StatusText(code),
		"CurrentUser": currentUser(c),
		"Flashes":     []auth.Flash(nil),
		"Errors":      forms.Errors(nil),
		"CSRF":        csrfToken(c),
	}
	if renderErr := c.Status(code).Render(page, data); renderErr != nil {
		s.log.ErrorContext(c.UserContext(), "Rendering error page failed", slog.String("error", renderErr.Error()))
		return c.Status(code).SendString(http.StatusText(code))
	}
	return nil
}

func (s *Server) templateFuncs() map[string]any {
	return map[string]any{
		"imageURL": s.pictures.URL,
		"date": func(t time.Time) string {
			return t.Format("2006-01-02")
		},
		"pageURL": func(author *models.User, page int) string {
			if author != nil {
				return fmt.Sprintf("/posts?user=%d&page=%d", author.ID, page)
			}
			return fmt.Sprintf("/posts?page=%d", page)
		},
	}
}
