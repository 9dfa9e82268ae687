package httpinterface

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const writeWait = 10 * time.Second

// streamOrder pushes the status view of an order over a websocket at every
// tick until the order reaches a terminal status or the client goes away.
func (h *handler) streamOrder(
	upgrader *websocket.Upgrader, interval time.Duration,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderId := r.PathValue("id")
		if _, err := h.statusSvc.GetStatus(r.Context(), orderId); err != nil {
			writeError(w, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithError(err).Debug("http: websocket upgrade failed")
			return
		}
		defer conn.Close()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			view, err := h.statusSvc.GetStatus(r.Context(), orderId)
			if err != nil {
				log.WithError(err).Warnf("http: failed to stream order %s", orderId)
				return
			}

			//nolint
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(view); err != nil {
				return
			}
			if view.IsTerminal() {
				//nolint
				conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, view.Status),
					time.Now().Add(writeWait),
				)
				return
			}

			select {
			case <-done:
				return
			case <-ticker.C:
			}
		}
	}
}
