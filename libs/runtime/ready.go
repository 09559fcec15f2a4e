package runtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// ReadyCheck is a named dependency check for /readyz.
type ReadyCheck struct {
	Name  string
	Check func(context.Context) error
}

const readyCheckTimeout = 2 * time.Second

type readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// NewBaseMuxWithReady returns a mux serving /healthz and /readyz. Readiness runs every check
// in parallel and reports each one by name; any failure answers 503.
func NewBaseMuxWithReady(checks ...ReadyCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeReadiness(w, http.StatusOK, readiness{Status: "ok"})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		report := readiness{Status: "ok", Checks: map[string]string{}}
		var (
			mu sync.Mutex
			wg sync.WaitGroup
		)
		for i, c := range checks {
			if c.Check == nil {
				continue
			}
			name := c.Name
			if name == "" {
				name = "dependency-" + strconv.Itoa(i)
			}
			wg.Add(1)
			go func(name string, check func(context.Context) error) {
				defer wg.Done()
				ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
				defer cancel()
				result := "ok"
				if err := check(ctx); err != nil {
					result = err.Error()
				}
				mu.Lock()
				report.Checks[name] = result
				if result != "ok" {
					report.Status = "unavailable"
				}
				mu.Unlock()
			}(name, c.Check)
		}
		wg.Wait()

		status := http.StatusOK
		if report.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		writeReadiness(w, status, report)
	})
	return mux
}

func writeReadiness(w http.ResponseWriter, status int, body readiness) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
