package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/groundcheck/internal/agent"
	"github.com/ppiankov/groundcheck/internal/metrics"
	"github.com/ppiankov/groundcheck/internal/pipeline"
)

const maxRequestBytes = 4 << 20

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the checker over HTTP",
	Long: `Serve exposes the checker as an HTTP service:
  POST /v1/check   check a transcript, returns the report
  POST /v1/ask     ask the LLM (only when llm.provider and tools.base_url are set)
  GET  /metrics    Prometheus metrics
  GET  /healthz    liveness

Example:
  groundcheck serve --addr :8088`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.address)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if serveAddr != "" {
		cfg.Server.Address = serveAddr
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	p := pipeline.NewPipeline(cfg.Validation, logger)

	var a *agent.Agent
	if cfg.LLM.Provider != "" {
		a, err = newAgent(cfg, p, logger)
		if err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      newHandler(p, a, prometheus.DefaultGatherer, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", zap.String("address", cfg.Server.Address), zap.Bool("ask_enabled", a != nil))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server exited: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

type askRequest struct {
	Question string `json:"question"`
}

// newHandler builds the service mux. A nil agent leaves /v1/ask unregistered.
func newHandler(p *pipeline.Pipeline, a *agent.Agent, gatherer prometheus.Gatherer, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /v1/check", func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		t, err := pipeline.ParseTranscript(data, "json")
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, p.CheckTranscript(t, r.Header.Get("X-Source")))
	})

	if a != nil {
		mux.HandleFunc("POST /v1/ask", func(w http.ResponseWriter, r *http.Request) {
			var req askRequest
			if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil || req.Question == "" {
				writeError(w, http.StatusBadRequest, errors.New("body must be {\"question\": \"...\"}"))
				return
			}
			answer, err := a.Answer(r.Context(), req.Question)
			switch {
			case errors.Is(err, pipeline.ErrBlocked):
				writeJSON(w, http.StatusUnprocessableEntity, answer)
			case err != nil:
				logger.Error("Ask failed", zap.Error(err))
				writeError(w, http.StatusBadGateway, err)
			default:
				writeJSON(w, http.StatusOK, answer)
			}
		})
	}

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
