package devserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/TMDOG666/knowledge-graph-MVP-DEMO/internal/config"
)

// NewRouter mounts the handlers of srv under /api, plus /health and
// /metrics.
func NewRouter(srv *Server, cfg config.DevServer, metrics *Metrics, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(RequestLogger(logger))
	if metrics != nil {
		router.Use(metrics.Middleware)
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	if metrics != nil {
		router.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
	}

	router.Route("/api", func(r chi.Router) {
		r.Route("/topics", func(r chi.Router) {
			r.Get("/", srv.ListTopics)
			r.Post("/", srv.CreateTopic)
			r.Put("/{topicID}", srv.UpdateTopic)
			r.Delete("/{topicID}", srv.DeleteTopic)
		})
		r.Get("/uploads/{topicID}/{name}", srv.GetUpload)

		r.Get("/graph", srv.GetGraph)

		r.Route("/nodes", func(r chi.Router) {
			r.Post("/", srv.CreateNode)
			r.Put("/{nodeID}", srv.UpdateNode)
			r.Delete("/{nodeID}", srv.DeleteNode)
		})
		r.Post("/edges", srv.CreateEdge)
		r.Delete("/edges", srv.DeleteEdge)

		r.Get("/chats/{nodeID}", srv.ChatHistory)
		r.Post("/chat", srv.Chat)
	})

	return router
}
