package live

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// wsMessage is the JSON frame pushed to WebSocket clients for each update.
type wsMessage struct {
	Type      string  `json:"type"` // "quote" or "index"
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"changePct"`
	Volume    int64   `json:"volume,omitempty"`
}

// Hub upgrades HTTP connections and streams quote events from the model to
// each client. One goroutine per client drains its own subscription, so a
// slow consumer only drops its own events.
type Hub struct {
	model    *QuoteModel
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// NewHub creates a Hub streaming from the given model.
func NewHub(model *QuoteModel, log *slog.Logger) *Hub {
	return &Hub{
		model: model,
		log:   log,
		upgrader: websocket.Upgrader{
			// The dashboard is served from a different origin in development.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and streams until the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	subID, ch := h.model.Subscribe(256)
	defer h.model.Unsubscribe(subID)
	h.log.Info("websocket client subscribed", "subID", subID, "remote", r.RemoteAddr)

	// Snapshot first so new clients render immediately.
	for _, q := range h.model.Quotes() {
		if err := h.send(conn, QuoteEvent{Quote: q}); err != nil {
			return
		}
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.log.Info("websocket client disconnected", "subID", subID)
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := h.send(conn, evt); err != nil {
				h.log.Info("websocket write failed", "subID", subID, "error", err)
				return
			}
		}
	}
}

func (h *Hub) send(conn *websocket.Conn, evt QuoteEvent) error {
	msg := wsMessage{
		Type:      "quote",
		Symbol:    evt.Quote.Symbol,
		Price:     evt.Quote.Price,
		Change:    evt.Quote.Change,
		ChangePct: evt.Quote.ChangePct,
		Volume:    evt.Quote.Volume,
	}
	if evt.IsIndex {
		msg.Type = "index"
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
