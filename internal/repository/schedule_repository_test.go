package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	config "github.com/maheshrc27/reels-poster/configs"
	"github.com/maheshrc27/reels-poster/internal/internaltypes"
	"github.com/maheshrc27/reels-poster/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scheduleFixture = `[
  {
    "id": "r-001",
    "post_at_iso": "2025-01-02T10:00:00+05:30",
    "post_caption_main": "Morning light <3 & coffee",
    "post_caption_hashtags": "#sunrise",
    "generator": {
      "seed": 7,
      "tags": [
        "a",
        "b"
      ]
    }
  },
  {
    "post_caption_main": "Ünïcödé",
    "id": 2,
    "published_at_iso": "2025-01-01T00:00:00.000000+00:00"
  }
]
`

func TestFileScheduleRepositoryMissingFile(t *testing.T) {
	repo := NewFileScheduleRepository(filepath.Join(t.TempDir(), "schedule.json"))

	records, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFileScheduleRepositoryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.json")
	require.NoError(t, os.WriteFile(path, []byte(scheduleFixture), 0o644))
	repo := NewFileScheduleRepository(path)

	records, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "r-001", records[0].ID())
	assert.Equal(t, "2", records[1].ID())
	assert.True(t, records[1].IsPublished())

	require.NoError(t, repo.Save(context.Background(), records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, scheduleFixture, string(data))
}

func TestFileScheduleRepositorySaveUpdatesRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.json")
	require.NoError(t, os.WriteFile(path, []byte(scheduleFixture), 0o600))
	repo := NewFileScheduleRepository(path)

	records, err := repo.Load(context.Background())
	require.NoError(t, err)
	records[0].SetString(models.KeyPublishError, "HTTP 400")
	require.NoError(t, repo.Save(context.Background(), records))

	reloaded, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "HTTP 400", reloaded[0].String(models.KeyPublishError))
	assert.Equal(t, "generator", reloaded[0].Keys()[4])

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileScheduleRepositoryInvalidJSON(t *testing.T) {
	for name, content := range map[string]string{
		"garbage":   "{not json",
		"object":    `{"id": "a"}`,
		"null":      "null",
		"nullEntry": "[null]",
		"empty":     "",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "schedule.json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			_, err := NewFileScheduleRepository(path).Load(context.Background())

			var pe *internaltypes.PersistenceError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, "parse", pe.Op)
		})
	}
}

func TestFileScheduleRepositorySaveFailure(t *testing.T) {
	repo := NewFileScheduleRepository(filepath.Join(t.TempDir(), "missing-dir", "schedule.json"))

	err := repo.Save(context.Background(), []*models.Record{})

	var pe *internaltypes.PersistenceError
	assert.True(t, errors.As(err, &pe))
}

func TestNewScheduleRepository(t *testing.T) {
	repo, err := NewScheduleRepository(context.Background(), config.Config{SchedulePath: "x.json"})
	require.NoError(t, err)
	assert.IsType(t, &fileScheduleRepository{}, repo)

	_, err = NewScheduleRepository(context.Background(), config.Config{ScheduleStorage: "ftp"})
	var ce *internaltypes.ConfigError
	assert.True(t, errors.As(err, &ce))

	_, err = NewScheduleRepository(context.Background(), config.Config{ScheduleStorage: config.StorageR2})
	assert.True(t, errors.As(err, &ce))
}
