package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

// SessionCookieName is the cookie carrying the session id.
const SessionCookieName = "myblog_session"

const (
	userIDKey   = "user_id"
	rememberKey = "remember"
	flashesKey  = "_flashes"
	localsKey   = "auth.session"
)

// Flash categories understood by the layout.
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashWarning = "warning"
	FlashDanger  = "danger"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// ErrNoSession means Sessions.Middleware did not run for the request.
var ErrNoSession = errors.New("session middleware not installed")

// SessionConfig configures NewSessionStore.
type SessionConfig struct {
	// Storage defaults to fiber's in-memory storage when nil.
	Storage fiber.Storage
	TTL     time.Duration
	Secure  bool
}

// NewSessionStore builds the fiber session store used for logins and flashes.
func NewSessionStore(cfg SessionConfig) *session.Store {
	return session.New(session.Config{
		Expiration:     cfg.TTL,
		Storage:        cfg.Storage,
		KeyLookup:      "cookie:" + SessionCookieName,
		CookieHTTPOnly: true,
		CookieSecure:   cfg.Secure,
		CookieSameSite: fiber.CookieSameSiteLaxMode,
	})
}

// Sessions tracks the logged-in user and flash messages in a server-side session.
//
// Middleware loads the session once per request; handlers mutate it through
// Login, Logout and Flash; the middleware saves it after the handler returns.
// A session is only written (and a cookie only set) once something changed.
type Sessions struct {
	store       *session.Store
	ttl         time.Duration
	rememberTTL time.Duration
}

// NewSessions returns a session manager. ttl applies to ordinary logins,
// rememberTTL to logins with "remember me".
func NewSessions(store *session.Store, ttl, rememberTTL time.Duration) *Sessions {
	return &Sessions{store: store, ttl: ttl, rememberTTL: rememberTTL}
}

type requestSession struct {
	sess      *session.Session
	dirty     bool
	destroyed bool
}

// Middleware loads the session for the request and persists changes afterwards.
func (s *Sessions) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := s.store.Get(c)
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}
		rs := &requestSession{sess: sess}
		c.Locals(localsKey, rs)

		err = c.Next()

		// The session object is released on Save and must not be reused.
		c.Locals(localsKey, nil)
		if rs.destroyed || !rs.dirty {
			return err
		}
		if rs.sess.Get(rememberKey) == true {
			rs.sess.SetExpiry(s.rememberTTL)
		} else {
			rs.sess.SetExpiry(s.ttl)
		}
		if saveErr := rs.sess.Save(); saveErr != nil && err == nil {
			return fmt.Errorf("save session: %w", saveErr)
		}
		return err
	}
}

func current(c *fiber.Ctx) (*requestSession, error) {
	rs, ok := c.Locals(localsKey).(*requestSession)
	if !ok || rs == nil {
		return nil, ErrNoSession
	}
	return rs, nil
}

// Login binds userID to a fresh session id. With remember the session outlives
// the default lifetime.
func (s *Sessions) Login(c *fiber.Ctx, userID uint, remember bool) error {
	rs, err := current(c)
	if err != nil {
		return err
	}
	if err := rs.sess.Regenerate(); err != nil {
		return fmt.Errorf("regenerate session: %w", err)
	}
	rs.sess.Set(userIDKey, userID)
	rs.sess.Set(rememberKey, remember)
	rs.dirty = true
	rs.destroyed = false
	return nil
}

// Logout destroys the session. Calling it without a logged-in user is a no-op.
func (s *Sessions) Logout(c *fiber.Ctx) error {
	rs, err := current(c)
	if err != nil {
		return err
	}
	if rs.destroyed {
		return nil
	}
	if err := rs.sess.Destroy(); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	rs.destroyed = true
	return nil
}

// CurrentUserID returns the logged-in user's id.
func (s *Sessions) CurrentUserID(c *fiber.Ctx) (uint, bool) {
	rs, err := current(c)
	if err != nil || rs.destroyed {
		return 0, false
	}
	id, ok := rs.sess.Get(userIDKey).(uint)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}

// Flash queues a message for the next rendered page.
func (s *Sessions) Flash(c *fiber.Ctx, category, message string) {
	rs, err := current(c)
	if err != nil || rs.destroyed {
		return
	}
	flashes := readFlashes(rs.sess)
	flashes = append(flashes, Flash{Category: category, Message: message})
	raw, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	rs.sess.Set(flashesKey, string(raw))
	rs.dirty = true
}

// PopFlashes returns and clears the queued messages.
func (s *Sessions) PopFlashes(c *fiber.Ctx) []Flash {
	rs, err := current(c)
	if err != nil || rs.destroyed {
		return nil
	}
	flashes := readFlashes(rs.sess)
	if len(flashes) == 0 {
		return nil
	}
	rs.sess.Delete(flashesKey)
	rs.dirty = true
	return flashes
}

func readFlashes(sess *session.Session) []Flash {
	raw, ok := sess.Get(flashesKey).(string)
	if !ok || raw == "" {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal([]byte(raw), &flashes); err != nil {
		return nil
	}
	return flashes
}
