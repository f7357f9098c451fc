package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/liamcoop/premium/internal/config"
	"github.com/liamcoop/premium/internal/logger"
	"github.com/liamcoop/premium/internal/metrics"
	"github.com/liamcoop/premium/premium"
	"github.com/liamcoop/premium/segmentengine"
)

// maxBodyBytes bounds a prediction request; a profile is a dozen short fields
const maxBodyBytes = 16 << 10

type Server struct {
	db        *sql.DB // nil when artifacts come from files
	manager   *segmentengine.Manager
	predictor *premium.Predictor
	metrics   *metrics.Metrics
	registry  *prometheus.Registry
	timeout   time.Duration
	router    *chi.Mux
}

// NewServer opens the configured artifact source and loads the release
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	var (
		store premium.ArtifactStore
		db    *sql.DB
	)

	switch cfg.ArtifactSource {
	case config.SourcePostgres:
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		store = premium.NewPostgresArtifactStore(db)
	default:
		store = premium.NewFileArtifactStore(cfg.ArtifactDir)
	}

	s, err := NewServerWithStore(ctx, store, db, cfg.RequestTimeout)
	if err != nil && db != nil {
		db.Close()
	}
	return s, err
}

// NewServerWithStore builds a server around an existing store. db is only
// used for health checks and may be nil.
func NewServerWithStore(ctx context.Context, store premium.ArtifactStore, db *sql.DB, timeout time.Duration) (*Server, error) {
	manager := segmentengine.NewManager(store, logger.Logger)

	logger.Info("loading artifacts")
	set, err := manager.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load artifacts: %w", err)
	}
	predictor, err := manager.Predictor()
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewWithRegistry(registry)
	m.SetArtifacts(set.Version, set.Schema.Version)

	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	s := &Server{
		db:        db,
		manager:   manager,
		predictor: predictor,
		metrics:   m,
		registry:  registry,
		timeout:   timeout,
	}
	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	// Middleware
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/api/v1/health", s.handleHealth)
	r.Post("/api/v1/predict", s.handlePredict)
	r.Get("/api/v1/artifacts", s.handleArtifacts)

	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestID accepts a caller supplied X-Request-Id or assigns a UUID, and
// stores it where chi's logger middleware looks for it
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(middleware.RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.manager.Loaded() {
		respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unhealthy",
			Error:  "artifacts not loaded",
		})
		return
	}

	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status: "unhealthy",
				Error:  err.Error(),
			})
			return
		}
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:          "healthy",
		ArtifactVersion: s.predictor.Artifacts().Version,
	})
}

// Prediction handler
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()

	var input map[string]any
	if err := dec.Decode(&input); err != nil {
		s.metrics.ObserveRejection(metrics.ReasonMalformed)
		respondError(w, http.StatusBadRequest, ErrorResponse{
			RequestID: reqID,
			Error:     "invalid request body",
			Details:   err.Error(),
		})
		return
	}
	if input == nil {
		s.metrics.ObserveRejection(metrics.ReasonMalformed)
		respondError(w, http.StatusBadRequest, ErrorResponse{
			RequestID: reqID,
			Error:     "request body must be a JSON object",
		})
		return
	}

	startTime := time.Now()
	pred, err := s.predictor.PredictMap(input)
	elapsed := time.Since(startTime)

	if err != nil {
		s.handlePredictError(w, reqID, err)
		return
	}

	s.metrics.ObservePrediction(pred.Segment, pred.Clamped, elapsed)
	if pred.Clamped {
		logger.Debug("negative model output clamped", "request_id", reqID, "segment", pred.Segment)
	}

	respondJSON(w, http.StatusOK, PredictResponse{
		RequestID:       reqID,
		Premium:         json.Number(pred.Amount.StringFixed(premium.CurrencyPlaces)),
		Segment:         pred.Segment,
		ArtifactVersion: pred.ArtifactVersion,
		Clamped:         pred.Clamped,
		PredictionTime:  elapsed.String(),
	})
}

func (s *Server) handlePredictError(w http.ResponseWriter, reqID string, err error) {
	var inputErr *premium.InputError

	switch {
	case errors.As(err, &inputErr):
		s.metrics.ObserveRejection(metrics.ReasonInvalid)
		logger.WarnSampled("prediction input rejected",
			"request_id", reqID, "field", inputErr.Field, "reason", inputErr.Reason)
		respondError(w, http.StatusBadRequest, ErrorResponse{
			RequestID: reqID,
			Error:     "invalid input",
			Field:     inputErr.Field,
			Details:   inputErr.Reason,
		})
	case errors.Is(err, premium.ErrArithmeticAnomaly):
		s.metrics.ObserveRejection(metrics.ReasonArithmetic)
		logger.Error("prediction produced a non-finite value", "request_id", reqID, "error", err)
		respondError(w, http.StatusInternalServerError, ErrorResponse{
			RequestID: reqID,
			Error:     "prediction failed",
		})
	case errors.Is(err, premium.ErrArtifactLoad):
		s.metrics.ObserveRejection(metrics.ReasonUnloaded)
		respondError(w, http.StatusServiceUnavailable, ErrorResponse{
			RequestID: reqID,
			Error:     "artifacts unavailable",
		})
	default:
		logger.Error("prediction failed", "request_id", reqID, "error", err)
		respondError(w, http.StatusInternalServerError, ErrorResponse{
			RequestID: reqID,
			Error:     "prediction failed",
		})
	}
}

// Artifact metadata handler
func (s *Server) handleArtifacts(w http.ResponseWriter, r *http.Request) {
	set := s.predictor.Artifacts()

	segments := make([]SegmentInfo, 0, 2)
	for _, art := range set.Segments() {
		segments = append(segments, SegmentInfo{
			Name:       art.Segment,
			Version:    art.Version,
			ModelKind:  art.Kind,
			ScalerKind: art.Scaler.Kind,
		})
	}

	respondJSON(w, http.StatusOK, ArtifactsResponse{
		Version:       set.Version,
		AgeThreshold:  set.AgeThreshold,
		SchemaVersion: set.Schema.Version,
		FeatureOrder:  set.Schema.Names,
		Segments:      segments,
		LoadedAt:      set.LoadedAt,
	})
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, resp ErrorResponse) {
	respondJSON(w, status, resp)
}

func main() {
	var configFile string
	flag.StringVar(&configFile, "config", "", "Path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}

	if _, err := logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		SampleRate:  cfg.LogSampleRate,
		OTELEnabled: cfg.OTELEnabled,
		ServiceName: cfg.OTELService,
	}); err != nil {
		logger.Warn("logger setup incomplete", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	server, err := NewServer(ctx, cfg)
	cancel()
	if err != nil {
		logger.Fatal("failed to create server", "error", err, "artifact_source", cfg.ArtifactSource)
	}
	if server.db != nil {
		defer server.db.Close()
	}

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		logger.Info("server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := logger.Shutdown(shutdownCtx); err != nil {
		logger.Error("logger shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
