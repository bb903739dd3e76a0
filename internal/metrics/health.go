package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Health reports whether a kubeconfig was written recently enough for the
// token in it to still be usable.
type Health struct {
	maxAge time.Duration
	now    func() time.Time

	mu   sync.Mutex
	last time.Time
}

// NewHealth returns a gate that is healthy while the last success is at
// most maxAge old.
func NewHealth(maxAge time.Duration) *Health {
	return &Health{maxAge: maxAge, now: time.Now}
}

// MarkSuccess records a successful refresh at t.
func (h *Health) MarkSuccess(t time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t.After(h.last) {
		h.last = t
	}
}

// Healthy reports the current state and the age of the last success.
func (h *Health) Healthy() (bool, time.Duration) {
	h.mu.Lock()
	last := h.last
	h.mu.Unlock()

	if last.IsZero() {
		return false, 0
	}
	age := h.now().Sub(last)
	return age <= h.maxAge, age
}

func (h *Health) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	ok, age := h.Healthy()
	switch {
	case ok:
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok: last refresh %s ago\n", age.Round(time.Second))
	case age == 0:
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintln(w, "no successful refresh yet")
	default:
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, "stale: last refresh %s ago\n", age.Round(time.Second))
	}
}
