// Package server contains the HTTP handlers, middleware chain and route table of the blog.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"myblog/internal/auth"
	"myblog/internal/bootstrap"
	"myblog/internal/cache"
	"myblog/internal/config"
	"myblog/internal/media"
	"myblog/internal/middleware"
	"myblog/internal/observability"
	"myblog/internal/repository"
	"myblog/internal/service"
	"myblog/web"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/template/html/v2"
)

const (
	// bodyLimit leaves room above the picture size limit so oversized uploads
	// get a form error instead of a bare 413.
	bodyLimit = (media.MaxUploadSizeMB + 4) << 20

	csrfCookieName = "myblog_csrf"
	csrfContextKey = "csrf"
	csrfFormField  = "_csrf"
)

// Server holds all dependencies and provides handlers
type Server struct {
	rt       *bootstrap.Runtime
	cfg      *config.Config
	log      *slog.Logger
	app      *fiber.App
	prom     *fiberprometheus.FiberPrometheus
	sessions *auth.Sessions
	pictures *media.Store
	// uploadMount is set when the upload directory lives outside the static directory.
	uploadMount string
	users       *service.UserService
	posts       *service.PostService
}

// NewServer wires repositories, services and the fiber app on top of rt.
func NewServer(rt *bootstrap.Runtime) (*Server, error) {
	cfg := rt.Config
	log := rt.Logger
	if log == nil {
		log = observability.NopLogger()
	}

	s := &Server{rt: rt, cfg: cfg, log: log}

	s.pictures, s.uploadMount = newPictureStore(cfg)
	if err := s.pictures.EnsurePlaceholder(); err != nil {
		return nil, fmt.Errorf("profile picture placeholder: %w", err)
	}

	userRepo := repository.NewUserRepository(rt.DB, rt.Cache)
	postRepo := repository.NewPostRepository(rt.DB)
	s.users = service.NewUserService(service.UserServiceDeps{
		Users:    userRepo,
		Hasher:   auth.NewPasswordHasher(cfg.BcryptCost),
		Tokens:   auth.NewTokenCodec(cfg.SecretKey),
		Mailer:   rt.Mailer,
		Pictures: s.pictures,
		Sender:   cfg.MailSender,
		Metrics:  rt.Metrics,
		Logger:   log,
	})
	s.posts = service.NewPostService(postRepo, userRepo, cfg.PostsPerPage, rt.Metrics)

	var sessionStorage fiber.Storage
	if rt.Redis != nil {
		sessionStorage = cache.NewStorage(rt.Redis, cache.SessionKeyPrefix)
	}
	store := auth.NewSessionStore(auth.SessionConfig{
		Storage: sessionStorage,
		TTL:     cfg.SessionTTL(),
		Secure:  cfg.IsProduction(),
	})
	s.sessions = auth.NewSessions(store, cfg.SessionTTL(), cfg.RememberTTL())

	if cfg.MetricsEnabled && rt.Metrics != nil {
		s.prom = fiberprometheus.NewWithRegistry(rt.Metrics.Registry, observability.ServiceName, "http", "", nil)
	}

	engine := html.NewFileSystem(http.FS(web.Templates()), ".html")
	for name, fn := range s.templateFuncs() {
		engine.AddFunc(name, fn)
	}

	s.app = fiber.New(fiber.Config{
		AppName:      observability.ServiceName,
		Views:        engine,
		ViewsLayout:  "layouts/main",
		ErrorHandler: s.errorHandler,
		BodyLimit:    bodyLimit,
		// Form values outlive the handler in sessions and the user cache.
		Immutable: true,
	})

	s.SetupMiddleware(s.app)
	s.SetupStatic(s.app)
	s.SetupSessions(s.app)
	s.SetupRoutes(s.app)

	return s, nil
}

// newPictureStore places profile pictures under cfg.UploadDir. Pictures are
// served below /static when the upload directory is inside the static
// directory, and from their own /uploads mount otherwise.
func newPictureStore(cfg *config.Config) (*media.Store, string) {
	rel, err := filepath.Rel(cfg.StaticDir, cfg.UploadDir)
	if err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
		return media.NewStore(cfg.UploadDir, "/static/"+filepath.ToSlash(rel)), ""
	}
	return media.NewStore(cfg.UploadDir, "/uploads"), "/uploads"
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New(requestid.Config{ContextKey: middleware.RequestIDLocal}))

	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.prom != nil {
		app.Use(s.prom.Middleware)
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger(s.log))

	// Global rate limiting (100 requests per minute per IP)
	limiterCfg := limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return middleware.Bypassed(s.cfg.Env)
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many requests, please try again later.")
		},
	}
	if s.rt.Redis != nil {
		limiterCfg.Storage = cache.NewStorage(s.rt.Redis, "limiter:")
	}
	app.Use(limiter.New(limiterCfg))
}

// SetupStatic mounts the stylesheets bundled in the binary and the static
// directory on disk. Static files skip the session and CSRF middleware.
func (s *Server) SetupStatic(app *fiber.App) {
	app.Use("/assets", filesystem.New(filesystem.Config{
		Root:   http.FS(web.Assets()),
		MaxAge: 3600,
	}))
	app.Static("/static", s.cfg.StaticDir)
	if s.uploadMount != "" {
		app.Static(s.uploadMount, s.pictures.Dir())
	}
}

// SetupSessions loads the session and the logged-in user, then checks CSRF tokens on form posts.
func (s *Server) SetupSessions(app *fiber.App) {
	app.Use(s.sessions.Middleware())
	app.Use(s.loadUser())

	if !s.cfg.CSRFEnabled {
		return
	}
	csrfCfg := csrf.Config{
		KeyLookup:      "form:" + csrfFormField,
		CookieName:     csrfCookieName,
		CookieSameSite: "Lax",
		CookieSecure:   s.cfg.IsProduction(),
		CookieHTTPOnly: true,
		Expiration:     s.cfg.SessionTTL(),
		ContextKey:     csrfContextKey,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			s.log.WarnContext(c.UserContext(), "CSRF check failed", slog.String("error", err.Error()))
			return fiber.NewError(fiber.StatusForbidden, "Invalid CSRF token")
		},
	}
	if s.rt.Redis != nil {
		csrfCfg.Storage = cache.NewStorage(s.rt.Redis, "csrf:")
	}
	app.Use(csrf.New(csrfCfg))
}

// SetupRoutes registers the route table.
func (s *Server) SetupRoutes(app *fiber.App) {
	for _, r := range s.routeTable() {
		app.Add(r.method, r.path, r.handlers...)
	}
}

// Start listens on the configured port until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("Server starting", slog.String("port", s.cfg.Port), slog.String("env", s.cfg.Env))
	return s.app.Listen(":" + s.cfg.Port)
}

// Shutdown stops accepting connections and waits for in-flight requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
