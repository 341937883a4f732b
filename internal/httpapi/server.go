package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/omarlabs/omar/internal/config"
	"github.com/omarlabs/omar/internal/conversation"
	"github.com/omarlabs/omar/internal/coordinator"
	"github.com/omarlabs/omar/internal/observability"
	"github.com/omarlabs/omar/internal/training"
)

type Server struct {
	cfg         config.Config
	coordinator *coordinator.Coordinator
	store       conversation.Store
	training    *training.Service
	metrics     *observability.Metrics
	provider    string
	log         zerolog.Logger
	upgrader    websocket.Upgrader
}

func New(
	cfg config.Config,
	coord *coordinator.Coordinator,
	store conversation.Store,
	trainingSvc *training.Service,
	metrics *observability.Metrics,
	provider string,
	logger zerolog.Logger,
) *Server {
	return &Server{
		cfg:         cfg,
		coordinator: coord,
		store:       store,
		training:    trainingSvc,
		metrics:     metrics,
		provider:    provider,
		log:         logger.With().Str("component", "httpapi").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)
	r.Use(s.cors)

	r.Get("/", s.handleRoot)
	r.Get("/ping", s.handlePing)
	r.Get("/status", s.handleStatus)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/ask", s.handleAsk)
	r.Get("/ask/stream", s.handleAskStream)
	r.Post("/feedback", s.handleFeedback)
	r.Post("/reset", s.handleReset)

	r.Post("/train/text", s.handleTrainText)
	r.Post("/train/image", s.handleTrainUpload("image", "imagen"))
	r.Post("/train/audio", s.handleTrainUpload("audio", "audio"))

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(started)).
			Msg("request")
	})
}

// cors mirrors the permissive policy the mobile client was built against.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AllowAnyOrigin {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
