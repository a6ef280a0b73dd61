package handlers

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/reels-poster/configs"
	"github.com/maheshrc27/reels-poster/internal/models"
	"github.com/maheshrc27/reels-poster/internal/transfer"
)

// ParseRunOptions reads the optional POST /run body over the configured
// defaults.
func ParseRunOptions(c *fiber.Ctx, cfg config.Config) (models.RunOptions, error) {
	opts := models.RunOptions{
		WindowMin: cfg.WindowMin,
		DryRun:    cfg.DryRun,
		AlsoStory: cfg.AlsoStory,
		MaxItems:  cfg.MaxItems,
	}

	body := c.Body()
	if len(body) > 0 {
		var req transfer.RunRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return opts, fmt.Errorf("invalid run request: %w", err)
		}
		if req.WindowMin != nil {
			opts.WindowMin = *req.WindowMin
		}
		if req.DryRun != nil {
			opts.DryRun = *req.DryRun
		}
		if req.AlsoStory != nil {
			opts.AlsoStory = *req.AlsoStory
		}
		if req.MaxItems != nil {
			opts.MaxItems = *req.MaxItems
		}
	}

	if opts.WindowMin <= 0 {
		return opts, errors.New("window_min must be a positive number of minutes")
	}
	if opts.MaxItems < 0 {
		return opts, errors.New("max_items must not be negative")
	}
	return opts, nil
}
