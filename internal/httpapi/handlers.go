package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/omarlabs/omar/internal/coordinator"
	"github.com/omarlabs/omar/internal/feedback"
)

// askRequest and askResponse are the wire contract of the mobile client and
// must not change shape.
type askRequest struct {
	Pregunta  string `json:"pregunta"`
	SessionID string `json:"sessionId"`
}

type askResponse struct {
	Respuesta string   `json:"respuesta"`
	Imagenes  []string `json:"imagenes"`
	Error     *string  `json:"error"`
}

type feedbackRequest struct {
	SessionID    string `json:"sessionId"`
	MachineID    string `json:"machineId"`
	Question     string `json:"question"`
	Answer       string `json:"answer"`
	WasHelpful   bool   `json:"wasHelpful"`
	FeedbackText string `json:"feedbackText,omitempty"`
}

type resetRequest struct {
	SessionID string `json:"sessionId"`
}

type ackResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func ack(message string) ackResponse {
	return ackResponse{
		Status:    "success",
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func nack(message string) ackResponse {
	return ackResponse{
		Status:    "error",
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAskError(w, http.StatusBadRequest, string(coordinator.KindInputInvalid), "La pregunta está vacía")
		return
	}

	result, err := s.coordinator.Ask(r.Context(), coordinator.AskRequest{
		SessionID: req.SessionID,
		Question:  req.Pregunta,
	})
	if err != nil {
		cerr := coordinator.AsError(err)
		status := statusForKind(cerr.Kind)
		if cerr.Kind == coordinator.KindRateLimited && cerr.RetryAfter > 0 {
			secs := int(cerr.RetryAfter.Round(time.Second).Seconds())
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
		}
		respondAskError(w, status, string(cerr.Kind), cerr.Message)
		return
	}

	images := result.Images
	if images == nil {
		images = []string{}
	}
	respondJSON(w, http.StatusOK, askResponse{
		Respuesta: result.Answer,
		Imagenes:  images,
		Error:     nil,
	})
}

func respondAskError(w http.ResponseWriter, status int, code, userMessage string) {
	respondJSON(w, status, askResponse{
		Respuesta: userMessage,
		Imagenes:  []string{},
		Error:     &code,
	})
}

func statusForKind(kind coordinator.ErrorKind) int {
	switch kind {
	case coordinator.KindInputInvalid:
		return http.StatusBadRequest
	case coordinator.KindRateLimited:
		return http.StatusTooManyRequests
	case coordinator.KindUpstreamFailure:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, nack("SessionId requerido"))
		return
	}

	err := s.coordinator.Feedback(r.Context(), feedback.Record{
		SessionID:    req.SessionID,
		MachineID:    req.MachineID,
		Question:     req.Question,
		Answer:       req.Answer,
		WasHelpful:   req.WasHelpful,
		FeedbackText: req.FeedbackText,
	})
	if err != nil {
		cerr := coordinator.AsError(err)
		respondJSON(w, statusForKind(cerr.Kind), nack(cerr.Message))
		return
	}

	respondJSON(w, http.StatusOK, ack("Feedback recibido"))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, nack("SessionId requerido"))
		return
	}

	if err := s.coordinator.Reset(r.Context(), req.SessionID); err != nil {
		cerr := coordinator.AsError(err)
		respondJSON(w, statusForKind(cerr.Kind), nack(cerr.Message))
		return
	}

	respondJSON(w, http.StatusOK, ack("Sesión reiniciada"))
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"model":     s.cfg.OpenAIModel,
		"provider":  s.provider,
	}
	if counter, ok := s.store.(interface{ SessionCount() int }); ok {
		n := counter.SessionCount()
		body["sessions_active"] = n
		if s.metrics != nil {
			s.metrics.ActiveSessions.Set(float64(n))
		}
	}
	respondJSON(w, http.StatusOK, body)
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "OMAR Backend - IA Industrial",
		"version": "1.0.0",
		"endpoints": []string{
			"/ask - Chat con IA",
			"/ask/stream - Chat con respuesta en streaming",
			"/feedback - Feedback del operador",
			"/reset - Reinicio de sesión",
			"/train/text - Entrenamiento de texto",
			"/train/image - Entrenamiento de imagen",
			"/train/audio - Entrenamiento de audio",
			"/status - Estado del sistema",
			"/ping - Health check",
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleTrainText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Nota string `json:"nota"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, nack("Nota requerida"))
		return
	}
	if err := s.training.AcceptNote(req.Nota); err != nil {
		respondJSON(w, http.StatusBadRequest, nack("Nota requerida"))
		return
	}
	respondJSON(w, http.StatusOK, ack("Texto recibido para entrenamiento"))
}

func (s *Server) handleTrainUpload(kind, field string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// 32 MiB in-memory cap; larger parts spill to disk.
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			respondJSON(w, http.StatusBadRequest, nack("No se recibió "+field))
			return
		}
		file, header, err := r.FormFile(field)
		if err != nil {
			respondJSON(w, http.StatusBadRequest, nack("No se recibió "+field))
			return
		}
		defer file.Close()

		if err := s.training.AcceptUpload(kind, header.Filename, header.Size); err != nil {
			respondJSON(w, http.StatusBadRequest, nack("Nombre de archivo vacío"))
			return
		}
		respondJSON(w, http.StatusOK, ackResponse{
			Status:    "success",
			Message:   "Archivo recibido para entrenamiento",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}
