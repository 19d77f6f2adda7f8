package service

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// eventStream writes server-sent events, one json object per event.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newEventStream(w http.ResponseWriter) (*eventStream, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &eventStream{w: w, flusher: flusher}, true
}

func (e *eventStream) send(event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(e.w, "data: %s\n\n", payload)
	if err != nil {
		return err
	}
	e.flusher.Flush()
	return nil
}

type streamError struct {
	Error string `json:"error"`
}
