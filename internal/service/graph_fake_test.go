package service

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	config "github.com/maheshrc27/reels-poster/configs"
)

type graphCall struct {
	Method string
	Path   string
	Params url.Values
}

// fakeGraph emulates the three Graph API endpoints used for publishing.
type fakeGraph struct {
	mu         sync.Mutex
	calls      []graphCall
	containers int
	// statuses returned by consecutive create container calls, 200 when exhausted
	createStatus []int
	createBody   string
	// status_code values returned by consecutive polls, FINISHED when exhausted
	pollStatus []string
}

func (f *fakeGraph) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, graphCall{Method: r.Method, Path: r.URL.Path, Params: r.Form})

	rw.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/media"):
		if len(f.createStatus) > 0 {
			status := f.createStatus[0]
			f.createStatus = f.createStatus[1:]
			if status != http.StatusOK {
				rw.WriteHeader(status)
				_, _ = fmt.Fprint(rw, f.createBody)
				return
			}
		}
		f.containers++
		_, _ = fmt.Fprintf(rw, `{"id":"c-%d"}`, f.containers)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/media_publish"):
		_, _ = fmt.Fprintf(rw, `{"id":"m-%s"}`, r.Form.Get("creation_id"))
	case r.Method == http.MethodGet:
		status := "FINISHED"
		if len(f.pollStatus) > 0 {
			status = f.pollStatus[0]
			f.pollStatus = f.pollStatus[1:]
		}
		_, _ = fmt.Fprintf(rw, `{"status_code":%q,"id":%q}`, status, strings.TrimPrefix(r.URL.Path, "/v21.0/"))
	default:
		rw.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeGraph) Calls() []graphCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]graphCall(nil), f.calls...)
}

func (f *fakeGraph) paths() []string {
	var paths []string
	for _, c := range f.Calls() {
		paths = append(paths, c.Method+" "+c.Path)
	}
	return paths
}

// newTestInstagramService wires an instagramService against fake with
// no backoff and millisecond polling.
func newTestInstagramService(t *testing.T, fake http.Handler, cfg config.Config) *instagramService {
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg.GraphAPIBase = srv.URL + "/v21.0"
	graph := NewGraphClient(cfg, srv.Client())
	graph.Backoff = 0

	svc := NewInstagramService(cfg, graph).(*instagramService)
	svc.pollInterval = 0
	return svc
}
