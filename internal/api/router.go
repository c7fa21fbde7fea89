package api

import (
	"net/http"
	"strings"

	"log/slog"

	"github.com/linkpilot/linkpilot/internal/auth"
	"github.com/linkpilot/linkpilot/internal/importer"
	"github.com/linkpilot/linkpilot/internal/models"
	"github.com/linkpilot/linkpilot/internal/syncer"
)

// Deps collects everything the API surface needs.
type Deps struct {
	UserID       string
	Orchestrator *syncer.Orchestrator
	Queue        *syncer.Queue
	Sessions     models.SyncSessionRepository
	Connections  models.ConnectionRepository
	Summaries    models.EngagementSummaryRepository
	Events       models.EngagementEventRepository
	Insights     models.NetworkInsightRepository
	Scheduled    models.ScheduledPostRepository
	Tracked      models.TrackedPostRepository
	Importer     *importer.Importer
	AuthConfig   auth.Config
	Logger       *slog.Logger
}

// SetupRoutes configures all API routes.
func SetupRoutes(mux *http.ServeMux, deps Deps) {
	authHandler := NewAuthHandler(deps.AuthConfig, deps.Logger)
	syncHandler := NewSyncHandler(deps.Orchestrator, deps.Sessions, deps.Queue, deps.Logger)
	connectionHandler := NewConnectionHandler(deps.Connections, deps.Summaries, deps.Events, deps.Importer, deps.Logger)
	insightHandler := NewInsightHandler(deps.UserID, deps.Insights, deps.Logger)
	postHandler := NewPostHandler(deps.Scheduled, deps.Tracked, deps.Logger)

	authMiddleware := auth.AuthMiddleware(deps.AuthConfig)

	// Authentication routes (login is the only public endpoint)
	mux.HandleFunc("/api/auth/login", authHandler.Login)
	mux.HandleFunc("/api/auth/validate", func(w http.ResponseWriter, r *http.Request) {
		authMiddleware(http.HandlerFunc(authHandler.ValidateToken)).ServeHTTP(w, r)
	})

	// Sync engine routes
	mux.HandleFunc("/api/sync/trigger", func(w http.ResponseWriter, r *http.Request) {
		authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			syncHandler.Trigger(w, r)
		})).ServeHTTP(w, r)
	})

	mux.HandleFunc("/api/sync/status", func(w http.ResponseWriter, r *http.Request) {
		authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			syncHandler.Status(w, r)
		})).ServeHTTP(w, r)
	})

	mux.HandleFunc("/api/sync/queue", func(w http.ResponseWriter, r *http.Request) {
		authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			syncHandler.QueueStats(w, r)
		})).ServeHTTP(w, r)
	})

	// Connection routes
	mux.HandleFunc("/api/connections", func(w http.ResponseWriter, r *http.Request) {
		authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			connectionHandler.List(w, r)
		})).ServeHTTP(w, r)
	})

	mux.HandleFunc("/api/connections/import", func(w http.ResponseWriter, r *http.Request) {
		authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			connectionHandler.Import(w, r)
		})).ServeHTTP(w, r)
	})

	mux.HandleFunc("/api/connections/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/connections/" {
			http.NotFound(w, r)
			return
		}
		authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Handle /api/connections/:id/engagement
			if r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/engagement") {
				connectionHandler.Engagement(w, r)
				return
			}
			http.Error(w, "Not found", http.StatusNotFound)
		})).ServeHTTP(w, r)
	})

	// Insight routes
	mux.HandleFunc("/api/insights", func(w http.ResponseWriter, r *http.Request) {
		authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			insightHandler.List(w, r)
		})).ServeHTTP(w, r)
	})

	// Post routes: the tracked cache plus the publishing queue
	mux.HandleFunc("/api/posts", func(w http.ResponseWriter, r *http.Request) {
		authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			postHandler.ListTracked(w, r)
		})).ServeHTTP(w, r)
	})

	mux.HandleFunc("/api/posts/scheduled", func(w http.ResponseWriter, r *http.Request) {
		authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				postHandler.ListScheduled(w, r)
			case http.MethodPost:
				postHandler.CreateScheduled(w, r)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
		})).ServeHTTP(w, r)
	})

	mux.HandleFunc("/api/posts/scheduled/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/posts/scheduled/" {
			http.NotFound(w, r)
			return
		}
		authMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete {
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
				return
			}
			postHandler.DeleteScheduled(w, r)
		})).ServeHTTP(w, r)
	})
}
