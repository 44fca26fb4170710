package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Harvey-Wallace/BandSync-sub000/internal/scheduler"
)

type stubJobLister struct {
	jobs []scheduler.JobStatus
}

func (s *stubJobLister) ListJobs() []scheduler.JobStatus {
	return s.jobs
}

func newStatusTestApp(lister JobLister) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(zap.NewNop()),
	})
	RegisterStatusRoutes(app, lister)
	return app
}

func performRequest(t *testing.T, app *fiber.App, method, path string) (*http.Response, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, body
}

func TestJobsHandler(t *testing.T) {
	t.Parallel()

	lister := &stubJobLister{
		jobs: []scheduler.JobStatus{
			{
				Name:      "event-reminder-scan",
				Cadence:   "every 5m0s",
				NextRunAt: time.Date(2026, time.March, 10, 12, 5, 0, 0, time.UTC),
			},
			{
				Name:      "deadline-reminder-scan",
				Cadence:   "daily at 09:00 UTC",
				NextRunAt: time.Date(2026, time.March, 11, 9, 0, 0, 0, time.UTC),
				Running:   true,
			},
		},
	}

	app := newStatusTestApp(lister)
	resp, body := performRequest(t, app, http.MethodGet, "/v1/jobs")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	var payload struct {
		Jobs  []scheduler.JobStatus `json:"jobs"`
		Count int                   `json:"count"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}

	if payload.Count != 2 || len(payload.Jobs) != 2 {
		t.Fatalf("count = %d, jobs = %d, want 2", payload.Count, len(payload.Jobs))
	}
	if payload.Jobs[0].Name != "event-reminder-scan" {
		t.Fatalf("jobs[0].Name = %q", payload.Jobs[0].Name)
	}
	if !payload.Jobs[1].Running {
		t.Fatal("jobs[1].Running = false, want true")
	}
}

func TestJobsHandlerWithoutScheduler(t *testing.T) {
	t.Parallel()

	app := newStatusTestApp(nil)
	resp, _ := performRequest(t, app, http.MethodGet, "/v1/jobs")
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestLivezHandler(t *testing.T) {
	t.Parallel()

	app := fiber.New()
	app.Get("/livez", LivezHandler())

	resp, body := performRequest(t, app, http.MethodGet, "/livez")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var payload map[string]string
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if payload["status"] != "ok" {
		t.Fatalf("status = %q, want ok", payload["status"])
	}
}
