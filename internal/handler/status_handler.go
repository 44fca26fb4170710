package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Harvey-Wallace/BandSync-sub000/internal/scheduler"
)

// JobLister exposes the scheduler's job table to the status API.
type JobLister interface {
	ListJobs() []scheduler.JobStatus
}

func RegisterStatusRoutes(app fiber.Router, jobs JobLister) {
	app.Get("/v1/jobs", JobsHandler(jobs))
}

// JobsHandler serves a read-only snapshot of the registered jobs and
// their next run times.
func JobsHandler(jobs JobLister) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if jobs == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "scheduler is not available")
		}

		statuses := jobs.ListJobs()
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"jobs":  statuses,
			"count": len(statuses),
		})
	}
}
