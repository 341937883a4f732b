package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/omarlabs/omar/internal/coordinator"
)

type streamQuestion struct {
	Pregunta string `json:"pregunta"`
}

type streamDelta struct {
	Delta string `json:"delta"`
}

// handleAskStream runs the same query state machine as POST /ask over a
// websocket, streaming answer fragments as they arrive from the provider.
// Questions on one connection are processed strictly in order.
func (s *Server) handleAskStream(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("sessionId"))
	if sessionID == "" {
		respondAskError(w, http.StatusBadRequest, string(coordinator.KindInputInvalid), "SessionId requerido")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))

		var q streamQuestion
		if err := json.Unmarshal(data, &q); err != nil {
			if werr := s.writeStreamError(conn, coordinator.KindInputInvalid, "La pregunta está vacía"); werr != nil {
				return
			}
			continue
		}

		result, err := s.coordinator.AskStream(r.Context(), coordinator.AskRequest{
			SessionID: sessionID,
			Question:  q.Pregunta,
		}, func(delta string) error {
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			return conn.WriteJSON(streamDelta{Delta: delta})
		})
		if err != nil {
			cerr := coordinator.AsError(err)
			if werr := s.writeStreamError(conn, cerr.Kind, cerr.Message); werr != nil {
				return
			}
			continue
		}

		images := result.Images
		if images == nil {
			images = []string{}
		}
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(askResponse{
			Respuesta: result.Answer,
			Imagenes:  images,
			Error:     nil,
		}); err != nil {
			return
		}
	}
}

func (s *Server) writeStreamError(conn *websocket.Conn, kind coordinator.ErrorKind, message string) error {
	code := string(kind)
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(askResponse{
		Respuesta: message,
		Imagenes:  []string{},
		Error:     &code,
	})
}
