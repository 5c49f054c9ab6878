package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// readinessReport is the body of the readiness probe.
type readinessReport struct {
	Ready  bool              `json:"ready"`
	Status map[string]string `json:"status"`
}

// liveness answers 200 as long as the process can serve HTTP.
func (s *Server) liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness answers 200 only when every checker passes within the configured timeout.
func (s *Server) readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout)
	defer cancel()

	report := s.runChecks(ctx)

	w.Header().Set("Content-Type", "application/json")
	if report.Ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	// The status code is already written; the body is for humans.
	_ = json.NewEncoder(w).Encode(report)
}

// runChecks runs all checkers concurrently and collects their outcome.
func (s *Server) runChecks(ctx context.Context) readinessReport {
	report := readinessReport{Ready: true, Status: make(map[string]string, len(s.checkers))}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, checker := range s.checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()

			start := time.Now()
			err := c.Check(ctx)
			ReadinessCheckDuration.WithLabelValues(c.Name()).Observe(time.Since(start).Seconds())

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				// Warn, not Error: the orchestrator retries the probe.
				s.logger.Warn("health probe failed",
					slog.String("component", c.Name()),
					slog.String("error", err.Error()),
				)
				ReadinessCheckFailures.WithLabelValues(c.Name()).Inc()
				report.Status[c.Name()] = fmt.Sprintf("down: %v", err)
				report.Ready = false
				return
			}
			report.Status[c.Name()] = "up"
		}(checker)
	}
	wg.Wait()

	return report
}
