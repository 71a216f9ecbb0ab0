package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/seatplan/seatplan/internal/auth"
	"github.com/seatplan/seatplan/internal/cache"
	"github.com/seatplan/seatplan/internal/chart"
	"github.com/seatplan/seatplan/internal/collab"
	"github.com/seatplan/seatplan/internal/config"
	"github.com/seatplan/seatplan/internal/db"
	"github.com/seatplan/seatplan/internal/document"
	"github.com/seatplan/seatplan/internal/events"
	"github.com/seatplan/seatplan/internal/export"
	mw "github.com/seatplan/seatplan/internal/middleware"
	"github.com/seatplan/seatplan/internal/typeid"
)

// Playground chart allows anonymous access and is never persisted.
const playgroundChartID = "chart_playground"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		slog.Error("migrate database", "error", err)
		os.Exit(1)
	}

	queries := db.New(pool)

	var snapshots *cache.SnapshotCache
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			slog.Warn("redis unavailable, snapshot cache disabled", "error", err)
		} else {
			defer rdb.Close()
			snapshots = cache.New(rdb, cfg.CacheTTL)
			slog.Info("snapshot cache enabled")
		}
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPub, err := events.Dial(cfg.AMQPURL, cfg.EventQueue)
		if err != nil {
			slog.Warn("amqp unavailable, chart events disabled", "error", err)
		} else {
			defer amqpPub.Close()
			publisher = amqpPub
			slog.Info("publishing chart events", "queue", cfg.EventQueue)
		}
	}

	authService := auth.NewService(cfg.JWTSecret)

	chartService := chart.NewService(queries, snapshots, publisher)
	chartHandler := chart.NewHandler(chartService)

	layoutLoader := func(ctx context.Context, chartID string) (*document.Layout, error) {
		if chartID == playgroundChartID {
			return document.NewSampleLayout(chartID), nil
		}
		return chartService.LoadLayout(ctx, chartID)
	}
	layoutSaver := func(ctx context.Context, chartID string, l *document.Layout) error {
		if chartID == playgroundChartID {
			return nil
		}
		return chartService.Autosave(ctx, chartID, l)
	}

	hub := collab.NewHub(layoutLoader, layoutSaver, cfg.SaveInterval)
	chartService.SetLiveLayouts(hub)
	go hub.Run()

	exportHandler := export.NewHandler()

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := pool.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","rooms":` + fmt.Sprint(hub.RoomCount()) + `}`))
	}).Methods("GET")

	// Export endpoint (public, used by the playground)
	r.HandleFunc("/export/svg", exportHandler.ExportSVG).Methods("POST", "OPTIONS")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/charts", chartHandler.List).Methods("GET")
	api.HandleFunc("/charts", chartHandler.Create).Methods("POST")
	api.HandleFunc("/charts/{chartId}", chartHandler.Get).Methods("GET")
	api.HandleFunc("/charts/{chartId}", chartHandler.Delete).Methods("DELETE")
	api.HandleFunc("/charts/{chartId}/layout", chartHandler.GetLatestLayout).Methods("GET")
	api.HandleFunc("/charts/{chartId}/layout", chartHandler.SaveLayout).Methods("PUT")
	api.HandleFunc("/charts/{chartId}/import", chartHandler.ImportSections).Methods("POST")
	api.HandleFunc("/charts/{chartId}/export.svg", chartHandler.ExportSVG).Methods("GET")
	api.HandleFunc("/chairs", chartHandler.PreviewChairs).Methods("POST")
	api.HandleFunc("/validate", chartHandler.Validate).Methods("POST")

	// WebSocket endpoint
	r.HandleFunc("/ws/chart/{chartId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, chartService, cfg.OriginPatterns())
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop hub first so open rooms are saved
		slog.Info("saving open layouts...")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, authSvc *auth.Service, charts *chart.Service, originPatterns []string) {
	chartID := mux.Vars(r)["chartId"]

	var userID string
	var displayName string

	if chartID == playgroundChartID {
		userID = "anon-" + uuid.New().String()[:8]
		displayName = "Anonymous"
	} else {
		if err := typeid.Validate(chartID, typeid.PrefixChart); err != nil {
			http.Error(w, "invalid chart id", http.StatusBadRequest)
			return
		}

		// Auth via query param; browsers cannot set headers on websocket upgrades
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		identity, err := authSvc.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		userID = identity.UserID
		displayName = identity.DisplayName

		if _, err := charts.Get(r.Context(), chartID, userID); err != nil {
			switch {
			case errors.Is(err, chart.ErrNotFound):
				http.Error(w, "chart not found", http.StatusNotFound)
			case errors.Is(err, chart.ErrForbidden):
				http.Error(w, "not the chart owner", http.StatusForbidden)
			default:
				slog.Error("websocket chart lookup", "error", err, "chart", chartID)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := collab.NewClient(hub, conn, userID, displayName, chartID, clientID)
	client.Serve(r.Context())
}
