package feed

import (
	"fmt"
	"net/http"
	"time"
)

// ServeSSE streams events as Server-Sent Events. Each event is written as
// a single data line holding the JSON payload.
func (f *Feed) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	sub, ok := f.subscribe(w)
	if !ok {
		return
	}
	defer f.wg.Done()
	defer sub.Unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	f.logger.Debug("sse client connected", map[string]interface{}{"remote": r.RemoteAddr})
	defer f.logger.Debug("sse client disconnected", map[string]interface{}{"remote": r.RemoteAddr})

	var heartbeat <-chan time.Time
	if f.config.HeartbeatInterval > 0 {
		ticker := time.NewTicker(f.config.HeartbeatInterval)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-f.done:
			return
		case <-heartbeat:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case msg, ok := <-sub.Messages():
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg.Data)
			flusher.Flush()
		}
	}
}
