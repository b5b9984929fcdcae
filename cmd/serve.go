package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/agent-cli/internal/agency"
	"github.com/sells-group/agent-cli/internal/agent"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server exposing agent execution",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newAgencyAgent("")
		if err != nil {
			return err
		}

		router := newRouter(a)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("serve: listening", zap.Int("port", port))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return eris.Wrap(err, "serve: shutdown")
			}
			return nil
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return eris.Wrap(err, "serve: listen")
		}
	},
}

// executor is the slice of the agent the HTTP layer needs.
type executor interface {
	Execute(ctx context.Context, input map[string]any, existing map[string]any) *agent.Result
}

func newRouter(a executor) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", "X-Actor"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/agents/agency/execute", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Name     string         `json:"name"`
			Existing map[string]any `json:"existing"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if body.Name == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
			return
		}

		var existing map[string]any
		if body.Existing != nil {
			existing = agency.FlattenRecord(body.Existing)
		}

		ctx := agent.WithActor(req.Context(), req.Header.Get("X-Actor"))
		result := a.Execute(ctx, map[string]any{"name": body.Name}, existing)

		status := http.StatusOK
		if !result.Success {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, result)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
