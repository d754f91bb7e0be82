package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/priyamehta/docintel/internal/audit"
	"github.com/priyamehta/docintel/internal/models"
	"github.com/priyamehta/docintel/internal/telemetry"
)

// UsageReader aggregates provider spend for the usage endpoint.
type UsageReader interface {
	GetUsageSummary(ctx context.Context, startDate, endDate *time.Time) ([]audit.UsageSummary, error)
}

// JobLister pages through a user's analysis jobs.
type JobLister interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Job, error)
}

// Check verifies one dependency for readiness.
type Check func(ctx context.Context) error

// NewServer builds the ops listener that runs next to the queue worker:
// health and readiness probes, Prometheus metrics, and read-only
// inspection endpoints for jobs and provider spend.
func NewServer(addr string, usage UsageReader, jobs JobLister, checks ...Check) *http.Server {
	return &http.Server{Addr: addr, Handler: Router(usage, jobs, checks...)}
}

// Router is split out from NewServer so handlers can be exercised in tests.
func Router(usage UsageReader, jobs JobLister, checks ...Check) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		for _, check := range checks {
			if err := check(ctx); err != nil {
				http.Error(w, fmt.Sprintf("dependency unavailable: %v", err), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})

	r.Handle("/metrics", telemetry.Handler())

	r.Get("/usage", handleUsage(usage))
	r.Get("/users/{userID}/jobs", handleUserJobs(jobs))

	return r
}

func handleUsage(usage UsageReader) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		start, err := parseTimeParam(req, "start")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		end, err := parseTimeParam(req, "end")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		summary, err := usage.GetUsageSummary(req.Context(), start, end)
		if err != nil {
			slog.Error("usage summary", "error", err)
			http.Error(w, "failed to aggregate usage", http.StatusInternalServerError)
			return
		}
		if summary == nil {
			summary = []audit.UsageSummary{}
		}
		respondJSON(w, summary)
	}
}

func handleUserJobs(jobs JobLister) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		userID, err := uuid.Parse(chi.URLParam(req, "userID"))
		if err != nil {
			http.Error(w, "invalid user id", http.StatusBadRequest)
			return
		}
		limit := intParam(req, "limit", 50)
		offset := intParam(req, "offset", 0)

		list, err := jobs.ListByUser(req.Context(), userID, limit, offset)
		if err != nil {
			slog.Error("list jobs", "user_id", userID, "error", err)
			http.Error(w, "failed to list jobs", http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []models.Job{}
		}
		respondJSON(w, list)
	}
}

func parseTimeParam(req *http.Request, key string) (*time.Time, error) {
	raw := req.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s, want RFC 3339", key)
	}
	return &t, nil
}

func intParam(req *http.Request, key string, fallback int) int {
	raw := req.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func respondJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
