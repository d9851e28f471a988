package bookingapi

import (
	"errors"
	"net/http"

	"golang.org/x/net/websocket"
)

var errForbiddenOrigin = errors.New("bookingapi: origin not allowed")

// Watch handles GET .../watch. It upgrades to a websocket and pushes the
// session state after every change until either side closes. Notifications
// are left for the next GET so a background tab does not swallow them.
func (h *Handler) Watch(w http.ResponseWriter, r *http.Request) {
	flow, ok := h.flow(w, r)
	if !ok {
		return
	}
	server := websocket.Server{
		// Browsers send no CORS preflight for websockets, so the origin is
		// checked here.
		Handshake: func(_ *websocket.Config, req *http.Request) error {
			if h.origins != nil && !h.origins.AllowsRequest(req) {
				h.logger.Warn("watch rejected for origin", "origin", req.Header.Get("Origin"), "session_id", flow.ID())
				return errForbiddenOrigin
			}
			return nil
		},
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()
			updates, cancel := flow.Watch()
			defer cancel()

			closed := make(chan struct{})
			go func() {
				defer close(closed)
				var discard string
				for {
					if err := websocket.Message.Receive(conn, &discard); err != nil {
						return
					}
				}
			}()

			ctx := r.Context()
			if err := websocket.JSON.Send(conn, newStateResponse(flow.State(), nil)); err != nil {
				return
			}
			for {
				select {
				case <-ctx.Done():
					return
				case <-closed:
					return
				case <-updates:
					if err := websocket.JSON.Send(conn, newStateResponse(flow.State(), nil)); err != nil {
						h.logger.Debug("watch send failed", "error", err, "session_id", flow.ID())
						return
					}
				}
			}
		},
	}
	server.ServeHTTP(w, r)
}
