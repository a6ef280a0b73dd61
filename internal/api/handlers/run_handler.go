package handlers

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/reels-poster/configs"
	"github.com/maheshrc27/reels-poster/internal/queue"
	"github.com/maheshrc27/reels-poster/internal/transfer"
)

const busyDetail = "Another run is in progress"

type RunHandler struct {
	runner *queue.Runner
	cfg    config.Config
}

func NewRunHandler(runner *queue.Runner, cfg config.Config) *RunHandler {
	return &RunHandler{runner: runner, cfg: cfg}
}

func (h *RunHandler) Health(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Run triggers a cycle. By default the cycle runs in the background and the
// response only says whether it was accepted; ?wait=true answers with the
// outcome.
func (h *RunHandler) Run(c *fiber.Ctx) error {
	opts, err := ParseRunOptions(c, h.cfg)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if c.QueryBool("wait") {
		status, ok := h.runner.TryRun(c.UserContext(), opts)
		if !ok {
			return c.Status(fiber.StatusOK).JSON(transfer.RunResponse{Status: "busy", Detail: busyDetail})
		}
		if status.Error != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":  *status.Error,
				"run_id": status.RunID,
			})
		}
		return c.Status(fiber.StatusOK).JSON(transfer.RunResponse{
			Status:    "ok",
			RunID:     status.RunID,
			Changed:   &status.Changed,
			Published: &status.Published,
			Failed:    &status.Failed,
		})
	}

	runID, ok := h.runner.TryDispatch(opts)
	if !ok {
		slog.Info("run refused, cycle in progress")
		return c.Status(fiber.StatusOK).JSON(transfer.RunResponse{Status: "busy", Detail: busyDetail})
	}
	return c.Status(fiber.StatusOK).JSON(transfer.RunResponse{Status: "accepted", RunID: runID})
}

func (h *RunHandler) Last(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(h.runner.Last())
}
