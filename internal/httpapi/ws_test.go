package httpapi

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/omarlabs/omar/internal/llm"
)

func TestAskStreamDeliversDeltasAndFinalAnswer(t *testing.T) {
	ts := newTestServer(t, llm.NewMockClient())

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ask/stream?sessionId=s1"
	conn, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s error = %v", wsURL, err)
	}
	defer conn.Close()
	defer res.Body.Close()

	if err := conn.WriteJSON(streamQuestion{Pregunta: "fan noise"}); err != nil {
		t.Fatalf("write question: %v", err)
	}

	sawDelta := false
	deadline := time.Now().Add(5 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var frame map[string]any
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if _, ok := frame["delta"]; ok {
			sawDelta = true
			continue
		}
		respuesta, _ := frame["respuesta"].(string)
		if respuesta == "" {
			t.Fatalf("final frame missing respuesta: %v", frame)
		}
		if frame["error"] != nil {
			t.Fatalf("final frame error = %v", frame["error"])
		}
		break
	}
	if !sawDelta {
		t.Fatalf("expected at least one delta frame before the final answer")
	}
}

func TestAskStreamRequiresSessionID(t *testing.T) {
	ts := newTestServer(t, llm.NewMockClient())

	res, err := http.Get(ts.URL + "/ask/stream")
	if err != nil {
		t.Fatalf("GET /ask/stream error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", res.StatusCode)
	}
}
