package job

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	config "github.com/maheshrc27/reels-poster/configs"
	"github.com/maheshrc27/reels-poster/internal/internaltypes"
	"github.com/maheshrc27/reels-poster/internal/models"
	"github.com/maheshrc27/reels-poster/internal/repository"
	"github.com/maheshrc27/reels-poster/internal/service"
	"github.com/maheshrc27/reels-poster/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// graphStub answers the Graph API publishing calls; createFailures makes the
// first n create container calls fail with HTTP 500.
type graphStub struct {
	mu             sync.Mutex
	calls          []string
	createFailures int
}

func (g *graphStub) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, r.Method+" "+r.URL.Path)

	switch {
	case strings.HasSuffix(r.URL.Path, "/media_publish"):
		fmt.Fprintf(rw, `{"id":"media-%s"}`, r.Form.Get("creation_id"))
	case strings.HasSuffix(r.URL.Path, "/media"):
		if g.createFailures > 0 {
			g.createFailures--
			rw.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(rw, `{"id":"creation-%d"}`, len(g.calls))
	default:
		fmt.Fprint(rw, `{"status_code":"FINISHED"}`)
	}
}

func (g *graphStub) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

type fixture struct {
	job   *PublishJob
	graph *graphStub
	path  string
}

func newFixture(t *testing.T, schedule string) *fixture {
	t.Helper()
	graph := &graphStub{}
	srv := httptest.NewServer(graph)
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "schedule.json")
	if schedule != "" {
		require.NoError(t, os.WriteFile(path, []byte(schedule), 0o644))
	}

	cfg := config.Config{
		InstagramAccessToken: "tok",
		InstagramUserID:      "1784",
		PublicBaseURL:        "https://cdn.example.com",
		GraphAPIBase:         srv.URL + "/v21.0",
	}
	gc := service.NewGraphClient(cfg, srv.Client())
	gc.Backoff = 0

	j := NewPublishJob(cfg, repository.NewFileScheduleRepository(path), service.NewInstagramService(cfg, gc))
	j.now = func() time.Time { return testNow }
	return &fixture{job: j, graph: graph, path: path}
}

func (f *fixture) records(t *testing.T) []*models.Record {
	t.Helper()
	records, err := repository.NewFileScheduleRepository(f.path).Load(context.Background())
	require.NoError(t, err)
	return records
}

func scheduleJSON(records ...string) string {
	return "[" + strings.Join(records, ",") + "]"
}

func recordAt(id string, at time.Time, extra string) string {
	return fmt.Sprintf(`{"id":%q,"post_at_iso":%q,"post_caption_main":"caption %s"%s}`, id, at.Format(time.RFC3339), id, extra)
}

var defaultOpts = models.RunOptions{WindowMin: 20}

func TestProcessDueItemsPublishesDueRecord(t *testing.T) {
	ist := time.FixedZone("IST", 19800)
	f := newFixture(t, scheduleJSON(recordAt("r-1", testNow.Add(-5*time.Minute).In(ist), "")))

	res, err := f.job.ProcessDueItems(context.Background(), defaultOpts)
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.Equal(t, 1, res.Published)
	assert.Equal(t, []string{
		"POST /v21.0/1784/media",
		"GET /v21.0/creation-1",
		"POST /v21.0/1784/media_publish",
	}, f.graph.Calls())

	rec := f.records(t)[0]
	assert.Equal(t, "2025-03-01T12:00:00.000000+00:00", rec.String(models.KeyPublishedAt))
	assert.Equal(t, "2025-03-01T12:00:00.000000+00:00", rec.String(models.KeyPublishAttempted))
	assert.Equal(t, "creation-1", rec.String(models.KeyCreationID))
	assert.Equal(t, "media-creation-1", rec.String(models.KeyMediaID))
	assert.Equal(t, "https://cdn.example.com/reels/r-1/reel.mp4", rec.String(models.KeyPublicVideoURL))
	assert.False(t, rec.Has(models.KeyPublishError))
}

func TestProcessDueItemsWithStory(t *testing.T) {
	f := newFixture(t, scheduleJSON(recordAt("r-1", testNow, `,"public_video_url":"https://own.example.com/v.mp4"`)))

	res, err := f.job.ProcessDueItems(context.Background(), models.RunOptions{WindowMin: 20, AlsoStory: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Published)

	rec := f.records(t)[0]
	assert.Equal(t, "https://own.example.com/v.mp4", rec.String(models.KeyPublicVideoURL))
	assert.Equal(t, "media-creation-4", rec.String(models.KeyStoryMediaID))
	assert.Len(t, f.graph.Calls(), 6)
}

func TestProcessDueItemsSkipsPublished(t *testing.T) {
	schedule := scheduleJSON(recordAt("r-1", testNow.Add(-5*time.Minute), `,"published_at_iso":"2025-03-01T11:55:00.000000+00:00"`))
	f := newFixture(t, schedule)

	res, err := f.job.ProcessDueItems(context.Background(), defaultOpts)
	require.NoError(t, err)

	assert.False(t, res.Changed)
	assert.Empty(t, f.graph.Calls())

	data, err := os.ReadFile(f.path)
	require.NoError(t, err)
	assert.Equal(t, schedule, string(data))
}

func TestProcessDueItemsIsIdempotent(t *testing.T) {
	schedule := scheduleJSON(
		recordAt("past", testNow.Add(-3*time.Hour), ""),
		recordAt("future", testNow.Add(time.Hour), ""),
		recordAt("edge", testNow.Add(-20*time.Minute), ""),
		`{"id":"unscheduled"}`,
		`{"id":"broken","post_at_iso":"not a date at all"}`,
	)
	f := newFixture(t, schedule)

	for i := 0; i < 2; i++ {
		res, err := f.job.ProcessDueItems(context.Background(), defaultOpts)
		require.NoError(t, err)
		assert.False(t, res.Changed)
	}

	data, err := os.ReadFile(f.path)
	require.NoError(t, err)
	assert.Equal(t, schedule, string(data))
	assert.Empty(t, f.graph.Calls())
}

func TestProcessDueItemsRecordsFailureAndContinues(t *testing.T) {
	f := newFixture(t, scheduleJSON(
		recordAt("r-1", testNow.Add(-5*time.Minute), ""),
		recordAt("r-2", testNow.Add(-1*time.Minute), ""),
	))
	f.graph.createFailures = 5

	res, err := f.job.ProcessDueItems(context.Background(), defaultOpts)
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Published)

	records := f.records(t)
	assert.Contains(t, records[0].String(models.KeyPublishError), "failed after 5 retries")
	assert.NotEmpty(t, records[0].String(models.KeyPublishAttempted))
	assert.False(t, records[0].IsPublished())
	assert.True(t, records[1].IsPublished())
}

func TestProcessDueItemsDryRun(t *testing.T) {
	long := strings.Repeat("ab", 100)
	f := newFixture(t, scheduleJSON(fmt.Sprintf(`{"id":"r-1","post_at_iso":%q,"post_caption_main":%q}`, testNow.Add(-time.Minute).Format(time.RFC3339), long)))

	res, err := f.job.ProcessDueItems(context.Background(), models.RunOptions{WindowMin: 20, DryRun: true})
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.Equal(t, 1, res.DryRun)
	assert.Empty(t, f.graph.Calls())

	rec := f.records(t)[0]
	assert.False(t, rec.IsPublished())
	raw, ok := rec.Raw(models.KeyDryRunInfo)
	require.True(t, ok)
	assert.JSONEq(t, fmt.Sprintf(`{"dry_run":true,"video_url":"https://cdn.example.com/reels/r-1/reel.mp4","caption_preview":%q}`, long[:160]+"..."), string(raw))
}

func TestProcessDueItemsMaxItems(t *testing.T) {
	f := newFixture(t, scheduleJSON(
		recordAt("r-1", testNow.Add(-5*time.Minute), ""),
		recordAt("r-2", testNow.Add(-1*time.Minute), ""),
	))

	res, err := f.job.ProcessDueItems(context.Background(), models.RunOptions{WindowMin: 20, MaxItems: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Published)

	records := f.records(t)
	assert.True(t, records[0].IsPublished())
	assert.False(t, records[1].IsPublished())
}

func TestProcessDueItemsMissingURLSourceIsFatal(t *testing.T) {
	schedule := scheduleJSON(
		recordAt("own-url", testNow.Add(-2*time.Minute), `,"public_video_url":"https://own.example.com/v.mp4"`),
		recordAt("derived", testNow, ""),
	)
	f := newFixture(t, schedule)
	f.job.cfg.PublicBaseURL = ""

	_, err := f.job.ProcessDueItems(context.Background(), defaultOpts)

	var ce *internaltypes.ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, err.Error(), "PUBLIC_BASE_URL")
	assert.Empty(t, f.graph.Calls())

	data, err := os.ReadFile(f.path)
	require.NoError(t, err)
	assert.Equal(t, schedule, string(data))
}

func TestProcessDueItemsRequiresCredentials(t *testing.T) {
	for name, mutate := range map[string]func(*config.Config){
		"no token":         func(c *config.Config) { c.InstagramAccessToken = "" },
		"no account":       func(c *config.Config) { c.InstagramUserID = "" },
		"handle not id":    func(c *config.Config) { c.InstagramUserID = "@someone" },
		"encrypted no key": func(c *config.Config) { c.InstagramAccessToken = "enc:abc" },
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, "{broken")
			mutate(&f.job.cfg)

			_, err := f.job.ProcessDueItems(context.Background(), defaultOpts)

			var ce *internaltypes.ConfigError
			assert.True(t, errors.As(err, &ce))
		})
	}
}

func TestCredentialsDecryptsToken(t *testing.T) {
	key := "0123456789abcdef0123456789abcdef"
	enc, err := utils.Encrypt([]byte("plain-token"), []byte(key))
	require.NoError(t, err)

	j := NewPublishJob(config.Config{InstagramAccessToken: "enc:" + enc, InstagramUserID: "1784", SecretKey: key}, nil, nil)
	creds, err := j.Credentials()
	require.NoError(t, err)
	assert.Equal(t, "plain-token", creds.AccessToken)
	assert.Equal(t, "1784", creds.AccountID)
}

func TestProcessDueItemsPersistenceErrors(t *testing.T) {
	f := newFixture(t, "{broken")

	_, err := f.job.ProcessDueItems(context.Background(), defaultOpts)

	var pe *internaltypes.PersistenceError
	assert.True(t, errors.As(err, &pe))
}

func TestProcessDueItemsEmptySchedule(t *testing.T) {
	f := newFixture(t, "")

	res, err := f.job.ProcessDueItems(context.Background(), defaultOpts)
	require.NoError(t, err)
	assert.False(t, res.Changed)

	_, err = os.Stat(f.path)
	assert.True(t, os.IsNotExist(err))
}
