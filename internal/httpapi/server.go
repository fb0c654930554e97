package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ollamachat/internal/config"
	"ollamachat/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Chat(ctx context.Context, prompt string) (<-chan types.StreamChunk, error)
	StartBackend(ctx context.Context) error
	StopBackend(ctx context.Context) error
	BackendStatus(ctx context.Context) string
	Settings() config.Settings
	UpdateSettings(fields map[string]json.RawMessage) error
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	r.Use(MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   corsAllowedMethods,
		AllowedHeaders:   corsAllowedHeaders,
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", chatHandler(svc))
		r.Post("/ollama/start", startHandler(svc))
		r.Post("/ollama/stop", stopHandler(svc))
		r.Get("/ollama/status", statusHandler(svc))
		r.Get("/config", getConfigHandler(svc))
		r.Post("/config", updateConfigHandler(svc))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)

	return r
}

// chatHandler relays a prompt to the backend.
//
//	@Summary		Chat with the model
//	@Description	Streams the model answer as NDJSON. Each line is {"response": "..."} or a terminal {"error": "..."}.
//	@Tags			chat
//	@Accept			json
//	@Produce		application/x-ndjson
//	@Param			body	body		types.ChatRequest	true	"prompt"
//	@Success		200		{object}	types.StreamChunk
//	@Failure		400		{object}	types.ErrorResponse
//	@Failure		500		{object}	types.ErrorResponse
//	@Router			/api/chat [post]
func chatHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if strings.TrimSpace(req.Content) == "" {
			writeJSONError(w, http.StatusBadRequest, "content must not be empty")
			return
		}

		lvl := requestLogLevel(r)
		log := zlog.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
		start := time.Now()

		// Shutdown of the server base context aborts the stream as well.
		ctx, cancel := joinContexts(r.Context(), serverBaseCtx)
		defer cancel()
		chunks, err := svc.Chat(ctx, req.Content)
		if err != nil {
			status := statusFor(err)
			if lvl >= LevelError {
				log.Error().Err(err).Int("status", status).Msg("chat rejected")
			}
			writeJSONError(w, status, err.Error())
			return
		}
		if lvl >= LevelInfo {
			log.Info().Int("prompt_len", len(req.Content)).Msg("chat start")
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		out := io.Writer(w)
		if lvl >= LevelDebug {
			out = io.MultiWriter(w, &chatLineWriter{log: log})
		}
		enc := json.NewEncoder(out)
		n, failed := 0, false
		// Keep draining after a write failure; the relay stops once ctx ends.
		for c := range chunks {
			if c.IsError() {
				failed = true
			} else {
				n++
			}
			if err := enc.Encode(c); err != nil {
				cancel()
				continue
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if lvl >= LevelInfo {
			log.Info().Int("chunks", n).Bool("errored", failed).Bool("canceled", r.Context().Err() != nil).
				Dur("dur", time.Since(start)).Msg("chat end")
		}
	}
}

// startHandler launches the backend.
//
//	@Summary	Start the backend
//	@Tags		backend
//	@Produce	json
//	@Success	200	{object}	types.MessageResponse
//	@Failure	500	{object}	types.ErrorResponse
//	@Router		/api/ollama/start [post]
func startHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.StartBackend(r.Context()); err != nil {
			zlog.Error().Err(err).Msg("backend start failed")
			writeJSONError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, types.MessageResponse{Message: "Ollama service started"})
	}
}

// stopHandler terminates the backend.
//
//	@Summary	Stop the backend
//	@Tags		backend
//	@Produce	json
//	@Success	200	{object}	types.MessageResponse
//	@Failure	500	{object}	types.ErrorResponse
//	@Router		/api/ollama/stop [post]
func stopHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.StopBackend(r.Context()); err != nil {
			zlog.Error().Err(err).Msg("backend stop failed")
			writeJSONError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, types.MessageResponse{Message: "Ollama service stopped"})
	}
}

// statusHandler reports backend liveness.
//
//	@Summary	Backend status
//	@Tags		backend
//	@Produce	json
//	@Success	200	{object}	types.StatusResponse
//	@Router		/api/ollama/status [get]
func statusHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.StatusResponse{Status: svc.BackendStatus(r.Context())})
	}
}

// getConfigHandler returns the generation settings.
//
//	@Summary	Current generation settings
//	@Tags		config
//	@Produce	json
//	@Success	200	{object}	types.ConfigResponse
//	@Router		/api/config [get]
func getConfigHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := svc.Settings()
		writeJSON(w, http.StatusOK, types.ConfigResponse{
			Model:       s.ModelName,
			Temperature: s.Temperature,
			MaxTokens:   s.MaxTokens,
			TopP:        s.TopP,
		})
	}
}

// updateConfigHandler applies a partial settings update. Unknown keys are
// ignored; any invalid value rejects the whole update.
//
//	@Summary	Update settings
//	@Tags		config
//	@Accept		json
//	@Produce	json
//	@Param		body	body		object	true	"field name to value"
//	@Success	200		{object}	types.MessageResponse
//	@Failure	400		{object}	types.ErrorResponse
//	@Router		/api/config [post]
func updateConfigHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var fields map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil || fields == nil {
			writeJSONError(w, http.StatusBadRequest, "body must be a JSON object")
			return
		}
		if err := svc.UpdateSettings(fields); err != nil {
			status := http.StatusBadRequest
			var he HTTPError
			if errors.As(err, &he) {
				status = he.StatusCode()
			}
			writeJSONError(w, status, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, types.MessageResponse{Message: "Configuration updated"})
	}
}
