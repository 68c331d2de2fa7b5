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
	"github.com/gorilla/mux"

	"github.com/siteview/siteview/backend-go/internal/asset"
	"github.com/siteview/siteview/backend-go/internal/auth"
	"github.com/siteview/siteview/backend-go/internal/config"
	"github.com/siteview/siteview/backend-go/internal/document"
	"github.com/siteview/siteview/backend-go/internal/layouts"
	mw "github.com/siteview/siteview/backend-go/internal/middleware"
	"github.com/siteview/siteview/backend-go/internal/session"
	"github.com/siteview/siteview/backend-go/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(ctx, cfg)
	if err != nil {
		slog.Error("open layout store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	authService := auth.NewService(cfg.AdminPasswordHash, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)
	if !authService.Enabled() {
		slog.Warn("ADMIN_PASSWORD_HASH is empty, authentication is disabled")
	}

	assetHandler := asset.NewHandler(cfg.AssetDir)
	layoutService := layouts.NewService(st, assetHandler)
	layoutHandler := layouts.NewHandler(layoutService)

	// Sessions read and write through the same service as the REST API.
	loadLayout := func(ctx context.Context, layoutID string) (*document.Document, int, error) {
		doc, l, err := layoutService.Open(ctx, layoutID)
		if err != nil {
			return nil, 0, err
		}
		return doc, l.Version, nil
	}
	saveLayout := func(ctx context.Context, layoutID string, doc *document.Document, version int) (int, error) {
		l, err := layoutService.SaveDocument(ctx, layoutID, doc, version)
		if err != nil {
			return 0, err
		}
		return l.Version, nil
	}
	imageSize := func(name string) (int, int, error) {
		info, err := assetHandler.Info(name)
		return info.Width, info.Height, err
	}

	hub := session.NewHub(loadLayout, saveLayout, imageSize)
	go hub.Run()

	r := mux.NewRouter()

	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.PathPrefix("/assets/").Handler(assetHandler.Serve()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST", "OPTIONS")
	api.HandleFunc("/assets/{name}", assetHandler.Remove).Methods("DELETE")
	layoutHandler.Routes(api)

	r.HandleFunc("/ws/layouts/{layoutId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, layoutService, cfg.Origins())
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop hub first to save all dirty layouts
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "store", cfg.StoreDriver)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *session.Hub, authSvc *auth.Service, layoutSvc *layouts.Service, origins []string) {
	layoutID := mux.Vars(r)["layoutId"]

	// Browsers cannot set headers on a websocket, so the token rides in the query.
	if authSvc.Enabled() {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		if _, err := authSvc.ValidateToken(token); err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
	}

	if _, err := layoutSvc.Get(r.Context(), layoutID); err != nil {
		if errors.Is(err, layouts.ErrNotFound) {
			http.Error(w, "layout not found", http.StatusNotFound)
			return
		}
		http.Error(w, "load layout", http.StatusInternalServerError)
		return
	}
	if _, busy := hub.Session(layoutID); busy {
		http.Error(w, session.ErrLayoutBusy.Error(), http.StatusConflict)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	ctx := r.Context()
	client, err := hub.Open(ctx, layoutID, conn)
	if err != nil {
		status := websocket.StatusInternalError
		if errors.Is(err, session.ErrLayoutBusy) {
			status = websocket.StatusPolicyViolation
		}
		conn.Close(status, err.Error())
		return
	}

	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
