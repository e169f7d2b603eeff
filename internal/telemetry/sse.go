// Package telemetry exposes an internal/eventbus.Bus over HTTP as a
// Server-Sent Events stream: a thin net/http handler, not a
// dashboard. Per spec.md §6 the wire contract is "one JSON object per
// event, field `type` discriminates the kind" — this package owns
// that framing and nothing else; a real dashboard is out of scope.
package telemetry

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/enri312/forge/internal/eventbus"
)

// Handler serves one long-lived SSE connection per request, each
// backed by its own subscription to bus. A client that disconnects
// simply has its subscription unsubscribed; nothing else on the bus
// is affected, per §4.6's "subscribers may join or leave at any
// time."
type Handler struct {
	bus       *eventbus.Bus
	log       zerolog.Logger
	heartbeat time.Duration
}

// DefaultHeartbeat is how often a comment-only SSE line is sent to
// keep idle connections (and the proxies/load balancers between a
// client and this process) from timing out.
const DefaultHeartbeat = 15 * time.Second

// NewHandler returns an http.Handler streaming bus's events as SSE.
func NewHandler(bus *eventbus.Bus, log zerolog.Logger) *Handler {
	return &Handler{bus: bus, log: log, heartbeat: DefaultHeartbeat}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := h.bus.Subscribe()
	defer sub.Unsubscribe()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case ev, open := <-sub.C:
			if !open {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				h.log.Debug().Err(err).Msg("sse client disconnected")
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeEvent frames one eventbus.Event as a single SSE "data:" line
// per spec.md §6's one-JSON-object-per-event contract.
func writeEvent(w http.ResponseWriter, ev eventbus.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
	return err
}
