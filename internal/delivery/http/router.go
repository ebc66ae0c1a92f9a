package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"freeday/internal/delivery/http/controllers"
	"freeday/internal/delivery/http/middleware"
	"freeday/internal/domain"
)

const (
	rateLimitWindow = time.Minute
	writeRateLimit  = 30
)

// Controllers groups the handlers mounted by NewRouter.
type Controllers struct {
	Auth     *controllers.AuthController
	User     *controllers.UserController
	Event    *controllers.EventController
	Attendee *controllers.AttendeeController
	Forum    *controllers.ForumController
	Admin    *controllers.AdminController
	Health   *controllers.HealthController
}

// RouterConfig holds the cross-cutting dependencies of the router.
type RouterConfig struct {
	Logger         *slog.Logger
	Authenticator  *middleware.Authenticator
	Limiter        domain.RateLimiter
	Metrics        *middleware.Metrics
	Gatherer       prometheus.Gatherer
	AuthRateLimit  int
	AllowedOrigins []string
}

// NewRouter initializes the HTTP router with all application routes.
func NewRouter(c Controllers, cfg RouterConfig) *http.ServeMux {
	mux := http.NewServeMux()
	a := cfg.Authenticator
	authLimit := middleware.RateLimit(cfg.Limiter, cfg.Metrics, "auth", cfg.AuthRateLimit, rateLimitWindow, nil)
	writeLimit := middleware.RateLimit(cfg.Limiter, cfg.Metrics, "forum_write", writeRateLimit, rateLimitWindow, middleware.RateLimitKeyUser)
	organizers := []domain.Role{domain.RoleOrganizer, domain.RoleAdmin}

	// Auth
	mux.HandleFunc("POST /auth/register", authLimit(c.Auth.Register))
	mux.HandleFunc("POST /auth/login", authLimit(c.Auth.Login))
	mux.HandleFunc("POST /auth/logout", a.RequireAuth(c.Auth.Logout))

	// Users
	mux.HandleFunc("GET /users/me", a.RequireAuth(c.User.GetMe))
	mux.HandleFunc("PUT /users/me", a.RequireAuth(c.User.UpdateMe))
	mux.HandleFunc("GET /users/me/events", a.RequireAuth(c.User.ListMyEvents))
	mux.HandleFunc("POST /users/me/upgrade-to-organizer", a.RequireAuth(c.User.UpgradeToOrganizer))

	// Events
	mux.HandleFunc("GET /events", a.OptionalAuth(c.Event.ListEvents))
	mux.HandleFunc("GET /events/types", c.Event.ListEventTypes)
	mux.HandleFunc("GET /events/manage", a.RequireRole(c.Event.ListManagedEvents, organizers...))
	mux.HandleFunc("GET /events/{eventID}", a.OptionalAuth(c.Event.GetEvent))
	mux.HandleFunc("POST /events", a.RequireRole(c.Event.CreateEvent, organizers...))
	mux.HandleFunc("PATCH /events/{eventID}", a.RequireRole(c.Event.UpdateEvent, organizers...))
	mux.HandleFunc("PATCH /events/{eventID}/status", a.RequireRole(c.Event.ChangeStatus, organizers...))
	mux.HandleFunc("DELETE /events/{eventID}", a.RequireRole(c.Event.DeleteEvent, organizers...))
	mux.HandleFunc("POST /events/{eventID}/registration", a.RequireAuth(c.Attendee.RegisterForEvent))
	mux.HandleFunc("DELETE /events/{eventID}/registration", a.RequireAuth(c.Attendee.CancelRegistration))
	mux.HandleFunc("POST /events/{eventID}/favorite", a.RequireAuth(c.Attendee.ToggleFavorite))

	// Forum, also served under /forum
	for _, base := range []string{"/posts", "/forum/posts"} {
		mux.HandleFunc("GET "+base, a.OptionalAuth(c.Forum.ListPosts))
		mux.HandleFunc("GET "+base+"/tags", c.Forum.ListTags)
		mux.HandleFunc("GET "+base+"/{postID}", a.OptionalAuth(c.Forum.GetPost))
		mux.HandleFunc("POST "+base, a.RequireAuth(writeLimit(c.Forum.CreatePost)))
		mux.HandleFunc("PATCH "+base+"/{postID}", a.RequireAuth(c.Forum.UpdatePost))
		mux.HandleFunc("DELETE "+base+"/{postID}", a.RequireAuth(c.Forum.DeletePost))
		mux.HandleFunc("GET "+base+"/{postID}/comments", a.OptionalAuth(c.Forum.ListComments))
		mux.HandleFunc("POST "+base+"/{postID}/comments", a.RequireAuth(writeLimit(c.Forum.CreateComment)))
		mux.HandleFunc("POST "+base+"/{postID}/like", a.RequireAuth(c.Forum.ToggleLike))
		mux.HandleFunc("GET "+base+"/{postID}/stream", a.OptionalAuth(c.Forum.StreamComments))
	}

	// Admin
	mux.HandleFunc("GET /admin/stats", a.RequireRole(c.Admin.Stats, domain.RoleAdmin))
	mux.HandleFunc("GET /admin/moderation/events", a.RequireRole(c.Admin.ListPendingEvents, domain.RoleAdmin))
	mux.HandleFunc("GET /admin/moderation/posts", a.RequireRole(c.Admin.ListPendingPosts, domain.RoleAdmin))
	mux.HandleFunc("POST /admin/moderation/events/{eventID}/{decision}", a.RequireRole(c.Admin.ModerateEvent, domain.RoleAdmin))
	mux.HandleFunc("POST /admin/moderation/posts/{postID}/{decision}", a.RequireRole(c.Admin.ModeratePost, domain.RoleAdmin))

	// Operations
	mux.HandleFunc("GET /health", c.Health.Health)
	if cfg.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

// NewHandler wraps the router with metrics, request logging and CORS, outermost first.
func NewHandler(mux *http.ServeMux, cfg RouterConfig) http.Handler {
	var handler http.Handler = middleware.CORS(cfg.AllowedOrigins, mux)
	handler = middleware.LoggingMiddleware(cfg.Logger, handler)
	if cfg.Metrics != nil {
		handler = cfg.Metrics.Instrument(handler)
	}
	return handler
}
