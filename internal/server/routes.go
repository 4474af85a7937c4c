package server

import (
	"time"

	"myblog/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type route struct {
	method   string
	path     string
	handlers []fiber.Handler
}

func get(path string, handlers ...fiber.Handler) route {
	return route{method: fiber.MethodGet, path: path, handlers: handlers}
}

func post(path string, handlers ...fiber.Handler) route {
	return route{method: fiber.MethodPost, path: path, handlers: handlers}
}

func (s *Server) limit(name string, limit int, window time.Duration) fiber.Handler {
	return middleware.RateLimit(middleware.RateLimitConfig{
		Redis:  s.rt.Redis,
		Env:    s.cfg.Env,
		Limit:  limit,
		Window: window,
		Name:   name,
		Policy: middleware.FailOpen,
		Logger: s.log,
	})
}

// routeTable lists every endpoint of the blog.
func (s *Server) routeTable() []route {
	loginRequired := s.LoginRequired()
	anonymousOnly := s.AnonymousOnly()

	routes := []route{
		// Health checks
		get("/health/live", s.LivenessCheck),
		get("/health/ready", s.ReadinessCheck),

		get("/", s.Home),
		get("/home", s.Home),
		get("/hello", s.Hello),

		// Accounts
		get("/signup", anonymousOnly, s.SignupPage),
		post("/signup", s.limit("signup", 5, 10*time.Minute), anonymousOnly, s.Signup),
		get("/login", anonymousOnly, s.LoginPage),
		post("/login", s.limit("login", 10, 5*time.Minute), anonymousOnly, s.Login),
		get("/logout", s.Logout),
		get("/account", loginRequired, s.AccountPage),
		post("/account", loginRequired, s.UpdateAccount),

		// Password reset
		get("/reset_password", s.RequestResetPage),
		post("/reset_password", s.limit("reset_password", 5, 15*time.Minute), s.RequestReset),
		get("/reset_password/:token", s.ResetPasswordPage),
		post("/reset_password/:token", s.limit("reset_token", 10, 15*time.Minute), s.ResetPassword),

		// Posts
		get("/posts", s.ListPosts),
		get("/posts/create", loginRequired, s.CreatePostPage),
		post("/posts/create", loginRequired, s.CreatePost),
		get("/posts/edit/:id", loginRequired, s.EditPostPage),
		post("/posts/edit/:id", loginRequired, s.EditPost),
		post("/posts/delete/:id", loginRequired, s.DeletePost),
	}

	// Metrics endpoint for Prometheus
	if s.prom != nil {
		routes = append(routes, get("/metrics",
			adaptor.HTTPHandler(promhttp.HandlerFor(s.rt.Metrics.Registry, promhttp.HandlerOpts{}))))
	}
	return routes
}
