package repository

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/maheshrc27/reels-poster/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeObjectStore) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		data, ok := f.objects[r.URL.Path]
		if !ok {
			rw.Header().Set("Content-Type", "application/xml")
			rw.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(rw, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_, _ = rw.Write(data)
	case http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			rw.WriteHeader(http.StatusInternalServerError)
			return
		}
		f.objects[r.URL.Path] = data
		rw.Header().Set("ETag", `"etag"`)
		rw.WriteHeader(http.StatusOK)
	default:
		rw.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newFakeR2(t *testing.T) (*fakeObjectStore, *s3.Client) {
	store := &fakeObjectStore{objects: map[string][]byte{}}
	srv := httptest.NewServer(store)
	t.Cleanup(srv.Close)

	client := s3.New(s3.Options{
		Region:       "auto",
		Credentials:  credentials.NewStaticCredentialsProvider("key", "secret", ""),
		BaseEndpoint: aws.String(srv.URL),
		UsePathStyle: true,
	})
	return store, client
}

func TestR2ScheduleRepositoryMissingObject(t *testing.T) {
	_, client := newFakeR2(t)
	repo := NewR2ScheduleRepository(client, "reels", "schedule.json")

	records, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestR2ScheduleRepositoryRoundTrip(t *testing.T) {
	store, client := newFakeR2(t)
	store.objects["/reels/schedule.json"] = []byte(scheduleFixture)
	repo := NewR2ScheduleRepository(client, "reels", "schedule.json")

	records, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	records[0].SetString(models.KeyPublishError, "boom")
	require.NoError(t, repo.Save(context.Background(), records))

	reloaded, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "boom", reloaded[0].String(models.KeyPublishError))
	assert.Equal(t, "2", reloaded[1].ID())
}
