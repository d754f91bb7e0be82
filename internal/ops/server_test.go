package ops

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/priyamehta/docintel/internal/audit"
	"github.com/priyamehta/docintel/internal/models"
)

type fakeUsage struct {
	summary []audit.UsageSummary
	err     error

	start *time.Time
	end   *time.Time
}

func (f *fakeUsage) GetUsageSummary(_ context.Context, start, end *time.Time) ([]audit.UsageSummary, error) {
	f.start = start
	f.end = end
	return f.summary, f.err
}

type fakeJobs struct {
	jobs []models.Job
	err  error

	userID uuid.UUID
	limit  int
	offset int
}

func (f *fakeJobs) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]models.Job, error) {
	f.userID = userID
	f.limit = limit
	f.offset = offset
	return f.jobs, f.err
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	h := Router(&fakeUsage{}, &fakeJobs{})
	if rec := get(t, h, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d, want 200", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	ok := func(context.Context) error { return nil }
	failing := func(context.Context) error { return errors.New("connection refused") }

	h := Router(&fakeUsage{}, &fakeJobs{}, ok, ok)
	if rec := get(t, h, "/readyz"); rec.Code != http.StatusOK {
		t.Errorf("readyz with healthy checks = %d, want 200", rec.Code)
	}

	h = Router(&fakeUsage{}, &fakeJobs{}, ok, failing)
	if rec := get(t, h, "/readyz"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz with failing check = %d, want 503", rec.Code)
	}
}

func TestUsageEndpoint(t *testing.T) {
	usage := &fakeUsage{summary: []audit.UsageSummary{
		{Provider: "openai", Model: "gpt-4o", TotalCalls: 12, TotalTokens: 3400, TotalCostUSD: 0.87},
	}}
	h := Router(usage, &fakeJobs{})

	rec := get(t, h, "/usage?start=2026-08-01T00:00:00Z&end=2026-08-31T00:00:00Z")
	if rec.Code != http.StatusOK {
		t.Fatalf("usage = %d, body %s", rec.Code, rec.Body)
	}
	var got []audit.UsageSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Provider != "openai" || got[0].TotalCalls != 12 {
		t.Errorf("body = %+v", got)
	}
	if usage.start == nil || usage.start.Day() != 1 {
		t.Errorf("start bound not passed through: %v", usage.start)
	}
	if usage.end == nil || usage.end.Day() != 31 {
		t.Errorf("end bound not passed through: %v", usage.end)
	}
}

func TestUsageEndpointRejectsBadTime(t *testing.T) {
	h := Router(&fakeUsage{}, &fakeJobs{})
	if rec := get(t, h, "/usage?start=yesterday"); rec.Code != http.StatusBadRequest {
		t.Errorf("usage with bad start = %d, want 400", rec.Code)
	}
}

func TestUserJobsEndpoint(t *testing.T) {
	userID := uuid.New()
	jobs := &fakeJobs{jobs: []models.Job{
		{ID: uuid.New(), UserID: userID, UseCase: "legal", Status: models.JobStatusSucceeded},
	}}
	h := Router(&fakeUsage{}, jobs)

	rec := get(t, h, "/users/"+userID.String()+"/jobs?limit=10&offset=20")
	if rec.Code != http.StatusOK {
		t.Fatalf("jobs = %d, body %s", rec.Code, rec.Body)
	}
	var got []models.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].UseCase != "legal" {
		t.Errorf("body = %+v", got)
	}
	if jobs.userID != userID || jobs.limit != 10 || jobs.offset != 20 {
		t.Errorf("lister saw user=%s limit=%d offset=%d", jobs.userID, jobs.limit, jobs.offset)
	}
}

func TestUserJobsEndpointRejectsBadID(t *testing.T) {
	h := Router(&fakeUsage{}, &fakeJobs{})
	if rec := get(t, h, "/users/not-a-uuid/jobs"); rec.Code != http.StatusBadRequest {
		t.Errorf("jobs with bad id = %d, want 400", rec.Code)
	}
}
