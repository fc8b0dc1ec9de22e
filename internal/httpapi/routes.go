package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/boardgame-client/internal/hub"
	"github.com/DoyleJ11/boardgame-client/internal/ws"
)

type Options struct {
	Games     Games
	PublicURL string
	Log       *zap.Logger
}

func SetupRoutes(h *hub.Hub, opts Options) http.Handler {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	// Lobby API
	r.Route("/games/{name}", func(r chi.Router) {
		r.Get("/", ListMatches(h, opts.Games))
		r.Post("/create", CreateMatch(h, opts.Games, log))
		r.Get("/{matchID}", GetMatch(h))
		r.Post("/{matchID}/join", JoinMatch(h, log))
		r.Get("/{matchID}/qr", MatchQR(h, opts.PublicURL))
	})

	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, log.Named("ws")))
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
