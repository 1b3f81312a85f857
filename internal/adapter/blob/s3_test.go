package blob

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezaarrazi-sqe/langfuse/internal/config"
)

func TestNewS3UploaderDisabled(t *testing.T) {
	u, err := NewS3Uploader(config.S3Config{})
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestExportKey(t *testing.T) {
	key := ExportKey("p1", "d1", "r1")
	assert.True(t, strings.HasPrefix(key, "exports/p1/d1/r1/"), key)
	assert.True(t, strings.HasSuffix(key, ".csv"), key)
	assert.NotEqual(t, key, ExportKey("p1", "d1", "r1"))
}

// fakeS3 answers path-style bucket and object requests.
type fakeS3 struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string]string
	types   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
	bucket := parts[0]
	switch {
	case len(parts) == 1 && r.Method == http.MethodHead:
		if !f.buckets[bucket] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case len(parts) == 1 && r.Method == http.MethodPut:
		f.buckets[bucket] = true
		w.WriteHeader(http.StatusOK)
	case len(parts) == 2 && r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[bucket+"/"+parts[1]] = string(body)
		f.types[bucket+"/"+parts[1]] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3UploaderEnsureBucketAndPut(t *testing.T) {
	fake := &fakeS3{buckets: map[string]bool{}, objects: map[string]string{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	u, err := NewS3Uploader(config.S3Config{
		Endpoint:  srv.URL,
		Bucket:    "exports",
		AccessKey: "key",
		SecretKey: "secret",
	})
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "exports", u.Bucket())

	ctx := context.Background()
	require.NoError(t, u.EnsureBucket(ctx))
	assert.True(t, fake.buckets["exports"])

	require.NoError(t, u.Put(ctx, "exports/p1/d1/r1/a.csv", []byte("a,b"), "text/csv"))
	assert.Equal(t, "a,b", fake.objects["exports/exports/p1/d1/r1/a.csv"])
	assert.Equal(t, "text/csv", fake.types["exports/exports/p1/d1/r1/a.csv"])
}
