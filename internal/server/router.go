package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/quillchat/api/internal/auth"
	"github.com/quillchat/api/internal/handler"
	"github.com/quillchat/api/internal/ratelimit"
)

// RouterOptions bundles the middleware collaborators routing needs.
type RouterOptions struct {
	Sessions         auth.SessionResolver
	SendLimiter      *ratelimit.Limiter
	EditLimiter      *ratelimit.Limiter
	RateLimitEnabled bool
	AllowedOrigins   []string
}

// NewRouter registers all routes. Write endpoints sit behind per-user
// rate limiters; everything under /api requires authentication.
func NewRouter(h *handler.Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization", "Idempotency-Key"},
			ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
			MaxAge:         86400,
		}))
	}

	r.Use(auth.Middleware(opts.Sessions))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth())

		r.Get("/channels/{channelID}", h.GetChannel)
		r.With(ratelimit.Middleware(opts.EditLimiter, opts.RateLimitEnabled)).
			Patch("/channels/{channelID}", h.EditChannel)

		r.Get("/channels/{channelID}/messages", h.ListMessages)
		r.With(ratelimit.Middleware(opts.SendLimiter, opts.RateLimitEnabled)).
			Post("/channels/{channelID}/messages", h.SendMessage)

		r.Post("/invites/token", h.CreateInviteToken)
		r.Post("/files", h.UploadFile)
	})

	return r
}

// RequestLogger logs each request with its status and duration.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}
