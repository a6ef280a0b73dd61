package job

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	config "github.com/maheshrc27/reels-poster/configs"
	"github.com/maheshrc27/reels-poster/internal/internaltypes"
	"github.com/maheshrc27/reels-poster/internal/models"
	"github.com/maheshrc27/reels-poster/internal/repository"
	"github.com/maheshrc27/reels-poster/internal/service"
	"github.com/maheshrc27/reels-poster/pkg/utils"
)

const encryptedTokenPrefix = "enc:"

// PublishJob runs one publishing cycle over the schedule.
type PublishJob struct {
	cfg   config.Config
	store repository.ScheduleRepository
	ig    service.InstagramService
	now   func() time.Time
}

func NewPublishJob(cfg config.Config, store repository.ScheduleRepository, ig service.InstagramService) *PublishJob {
	return &PublishJob{
		cfg:   cfg,
		store: store,
		ig:    ig,
		now:   time.Now,
	}
}

// Credentials returns the Graph API credentials from the configuration,
// decrypting an enc: prefixed token with SECRET_KEY.
func (j *PublishJob) Credentials() (service.Credentials, error) {
	token := j.cfg.InstagramAccessToken
	accountID := strings.TrimSpace(j.cfg.InstagramUserID)
	if token == "" || accountID == "" {
		return service.Credentials{}, &internaltypes.ConfigError{Msg: "missing IG_ACCESS_TOKEN or IG_USER_ID in environment"}
	}
	if strings.Trim(accountID, "0123456789") != "" {
		return service.Credentials{}, &internaltypes.ConfigError{Msg: fmt.Sprintf("IG_USER_ID must be the numeric account id, got %q", accountID)}
	}

	if strings.HasPrefix(token, encryptedTokenPrefix) {
		if j.cfg.SecretKey == "" {
			return service.Credentials{}, &internaltypes.ConfigError{Msg: "IG_ACCESS_TOKEN is encrypted but SECRET_KEY is not set"}
		}
		plain, err := utils.Decrypt(strings.TrimPrefix(token, encryptedTokenPrefix), []byte(j.cfg.SecretKey))
		if err != nil {
			return service.Credentials{}, &internaltypes.ConfigError{Msg: "unable to decrypt IG_ACCESS_TOKEN: " + err.Error()}
		}
		token = plain
	}

	return service.Credentials{AccessToken: token, AccountID: accountID}, nil
}

// ProcessDueItems publishes every unpublished record whose post time lies in
// the last opts.WindowMin minutes. Per record failures are written onto the
// record; configuration and persistence failures abort the cycle.
func (j *PublishJob) ProcessDueItems(ctx context.Context, opts models.RunOptions) (models.CycleResult, error) {
	var result models.CycleResult

	creds, err := j.Credentials()
	if err != nil {
		return result, err
	}

	schedule, err := j.store.Load(ctx)
	if err != nil {
		return result, err
	}
	if len(schedule) == 0 {
		slog.Info("schedule is empty, nothing to post")
		return result, nil
	}

	due := j.selectDue(schedule, opts)
	if len(due) == 0 {
		slog.Info("nothing due right now")
		return result, nil
	}

	// a record without a media URL source means PUBLIC_BASE_URL is missing
	for _, rec := range due {
		if _, err := service.ResolveMediaURL(rec, j.cfg.PublicBaseURL); err != nil {
			return result, err
		}
	}

	for _, rec := range due {
		if err := ctx.Err(); err != nil {
			return result, j.finish(ctx, schedule, result, err)
		}

		slog.Info("posting", "id", rec.ID(), "scheduled", rec.String(models.KeyPostAt))
		res, err := j.ig.PublishRecord(ctx, rec, creds, service.PublishOptions{DryRun: opts.DryRun, AlsoStory: opts.AlsoStory})
		attemptedAt := models.FormatTimestamp(j.now())
		result.Changed = true

		if err != nil {
			rec.SetString(models.KeyPublishError, err.Error())
			rec.SetString(models.KeyPublishAttempted, attemptedAt)
			result.Failed++
			slog.Error("publish failed", "id", rec.ID(), "error", err)
			continue
		}

		rec.SetString(models.KeyPublishAttempted, attemptedAt)
		if res.DryRun != nil {
			if err := rec.SetValue(models.KeyDryRunInfo, res.DryRun); err != nil {
				return result, err
			}
			result.DryRun++
			slog.Info("dry run would publish", "id", rec.ID(), "url", res.DryRun.VideoURL)
			continue
		}

		rec.SetString(models.KeyPublishedAt, attemptedAt)
		rec.SetString(models.KeyCreationID, res.CreationID)
		rec.SetString(models.KeyMediaID, res.MediaID)
		if !rec.Has(models.KeyPublicVideoURL) {
			rec.SetString(models.KeyPublicVideoURL, res.MediaURL)
		}
		if res.StoryMediaID != "" {
			rec.SetString(models.KeyStoryMediaID, res.StoryMediaID)
		}
		if res.StoryErr != nil {
			rec.SetString(models.KeyStoryError, res.StoryErr.Error())
		}
		result.Published++
		slog.Info("published", "id", rec.ID(), "media_id", res.MediaID)
	}

	return result, j.finish(ctx, schedule, result, nil)
}

// selectDue returns the unpublished records due at j.now(), in schedule
// order and capped at opts.MaxItems.
func (j *PublishJob) selectDue(schedule []*models.Record, opts models.RunOptions) []*models.Record {
	now := j.now()
	window := time.Duration(opts.WindowMin) * time.Minute

	var due []*models.Record
	for _, rec := range schedule {
		if rec.IsPublished() {
			continue
		}

		postAt := rec.String(models.KeyPostAt)
		if postAt == "" {
			continue
		}

		scheduled, err := service.ParseScheduleTime(postAt)
		if err != nil {
			slog.Error("skipping record with invalid post time", "id", rec.ID(), "error", err)
			continue
		}

		if !service.IsDue(now, scheduled, window) {
			continue
		}

		if opts.MaxItems > 0 && len(due) >= opts.MaxItems {
			slog.Info("max items reached, leaving the rest for the next cycle", "max_items", opts.MaxItems)
			break
		}
		due = append(due, rec)
	}
	return due
}

// finish persists the schedule when something changed and returns cause, or
// the save error when there was none.
func (j *PublishJob) finish(ctx context.Context, schedule []*models.Record, result models.CycleResult, cause error) error {
	if !result.Changed {
		return cause
	}

	// a cancelled ctx must not lose the stamps already made
	if err := j.store.Save(context.WithoutCancel(ctx), schedule); err != nil {
		slog.Error("saving schedule failed", "error", err)
		return err
	}
	slog.Info("schedule updated", "published", result.Published, "failed", result.Failed, "dry_run", result.DryRun)
	return cause
}
