package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	config "github.com/maheshrc27/reels-poster/configs"
	"github.com/maheshrc27/reels-poster/internal/internaltypes"
	"github.com/maheshrc27/reels-poster/internal/models"
	"github.com/maheshrc27/reels-poster/internal/transfer"
)

const (
	defaultPollInterval = 6 * time.Second
	defaultPollTimeout  = 600 * time.Second
)

type Credentials struct {
	AccessToken string
	AccountID   string
}

type PublishOptions struct {
	DryRun    bool
	AlsoStory bool
}

type InstagramService interface {
	CreateContainer(ctx context.Context, creds Credentials, req transfer.ContainerRequest) (string, error)
	WaitUntilProcessed(ctx context.Context, creds Credentials, creationID string) error
	PublishContainer(ctx context.Context, creds Credentials, creationID string) (string, error)
	PublishRecord(ctx context.Context, rec *models.Record, creds Credentials, opts PublishOptions) (*transfer.PublishResult, error)
}

type instagramService struct {
	cfg          config.Config
	graph        *GraphClient
	pollInterval time.Duration
	pollTimeout  time.Duration
}

func NewInstagramService(cfg config.Config, graph *GraphClient) InstagramService {
	return &instagramService{
		cfg:          cfg,
		graph:        graph,
		pollInterval: defaultPollInterval,
		pollTimeout:  defaultPollTimeout,
	}
}

func (s *instagramService) PublishRecord(ctx context.Context, rec *models.Record, creds Credentials, opts PublishOptions) (*transfer.PublishResult, error) {
	mediaURL, err := ResolveMediaURL(rec, s.cfg.PublicBaseURL)
	if err != nil {
		return nil, err
	}
	caption := BuildCaption(rec)

	if opts.DryRun {
		return &transfer.PublishResult{
			MediaURL: mediaURL,
			DryRun: &transfer.DryRunInfo{
				DryRun:         true,
				VideoURL:       mediaURL,
				CaptionPreview: CaptionPreview(caption),
				AlsoStory:      opts.AlsoStory,
			},
		}, nil
	}

	isImage := IsImageURL(mediaURL)
	mediaType := transfer.MediaTypeReels
	if isImage {
		mediaType = transfer.MediaTypeImage
	}

	creationID, mediaID, err := s.publishMedia(ctx, creds, newContainerRequest(mediaType, mediaURL, isImage, caption))
	if err != nil {
		return nil, err
	}

	result := &transfer.PublishResult{
		CreationID: creationID,
		MediaID:    mediaID,
		MediaURL:   mediaURL,
	}

	if opts.AlsoStory {
		_, storyMediaID, err := s.publishMedia(ctx, creds, newContainerRequest(transfer.MediaTypeStories, mediaURL, isImage, caption))
		if err != nil {
			slog.Error("story publish failed", "id", rec.ID(), "error", err)
			result.StoryErr = fmt.Errorf("story: %w", err)
		} else {
			result.StoryMediaID = storyMediaID
		}
	}

	return result, nil
}

func newContainerRequest(mediaType, mediaURL string, isImage bool, caption string) transfer.ContainerRequest {
	req := transfer.ContainerRequest{
		MediaType:   mediaType,
		Caption:     &caption,
		ShareToFeed: true,
	}
	if isImage {
		req.ImageURL = mediaURL
	} else {
		req.VideoURL = mediaURL
	}
	return req
}

// publishMedia runs create container -> wait -> publish and returns the
// creation and media ids.
func (s *instagramService) publishMedia(ctx context.Context, creds Credentials, req transfer.ContainerRequest) (string, string, error) {
	creationID, err := s.CreateContainer(ctx, creds, req)
	if err != nil {
		return "", "", err
	}
	if err := s.WaitUntilProcessed(ctx, creds, creationID); err != nil {
		return creationID, "", err
	}
	mediaID, err := s.PublishContainer(ctx, creds, creationID)
	if err != nil {
		return creationID, "", err
	}
	return creationID, mediaID, nil
}

func (s *instagramService) CreateContainer(ctx context.Context, creds Credentials, req transfer.ContainerRequest) (string, error) {
	form := url.Values{}
	form.Set("media_type", req.MediaType)
	form.Set("access_token", creds.AccessToken)
	if req.VideoURL != "" {
		form.Set("video_url", req.VideoURL)
	}
	if req.ImageURL != "" {
		form.Set("image_url", req.ImageURL)
	}
	if req.Caption != nil {
		form.Set("caption", *req.Caption)
	}
	// ignored by the API for anything but reels
	if req.MediaType == transfer.MediaTypeReels {
		form.Set("share_to_feed", fmt.Sprintf("%t", req.ShareToFeed))
	}

	var result transfer.InstagramIDResponse
	p := creds.AccountID + "/media"
	if err := s.graph.PostForm(ctx, p, form, &result); err != nil {
		return "", fmt.Errorf("create %s container: %w", req.MediaType, err)
	}
	if result.ID == "" {
		return "", &internaltypes.RemoteRejection{Detail: fmt.Sprintf("no creation id returned for %s container", req.MediaType)}
	}
	return result.ID, nil
}

// WaitUntilProcessed polls the container status until FINISHED. ERROR and
// exceeding the poll timeout are failures; ctx cancels the wait.
func (s *instagramService) WaitUntilProcessed(ctx context.Context, creds Credentials, creationID string) error {
	params := url.Values{}
	params.Set("fields", "status_code")
	params.Set("access_token", creds.AccessToken)

	start := time.Now()
	for {
		var status transfer.ContainerStatus
		if err := s.graph.Get(ctx, creationID, params, &status); err != nil {
			return fmt.Errorf("container %s status: %w", creationID, err)
		}

		switch status.StatusCode {
		case transfer.StatusFinished:
			return nil
		case transfer.StatusError:
			return &internaltypes.RemoteRejection{Detail: fmt.Sprintf("processing failed for container %s", creationID)}
		}

		if elapsed := time.Since(start); elapsed > s.pollTimeout {
			return &internaltypes.TimeoutError{CreationID: creationID, LastStatus: status.StatusCode, After: elapsed.Round(time.Second)}
		}

		timer := time.NewTimer(s.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("waiting for container %s: %w", creationID, ctx.Err())
		case <-timer.C:
		}
	}
}

func (s *instagramService) PublishContainer(ctx context.Context, creds Credentials, creationID string) (string, error) {
	form := url.Values{}
	form.Set("creation_id", creationID)
	form.Set("access_token", creds.AccessToken)

	var result transfer.InstagramIDResponse
	if err := s.graph.PostForm(ctx, creds.AccountID+"/media_publish", form, &result); err != nil {
		return "", fmt.Errorf("publish container %s: %w", creationID, err)
	}
	if result.ID == "" {
		return "", &internaltypes.RemoteRejection{Detail: fmt.Sprintf("no media id returned for container %s", creationID)}
	}
	slog.Info("published container", "creation_id", creationID, "media_id", result.ID)
	return result.ID, nil
}
