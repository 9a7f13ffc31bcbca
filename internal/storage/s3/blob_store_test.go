package s3_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/publisher-directory/internal/storage/s3"
)

type received struct {
	mu          sync.Mutex
	method      string
	path        string
	contentType string
	body        string
}

func newServer(t *testing.T, status int, rec *received) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.contentType = r.Header.Get("Content-Type")
		rec.body = string(body)
		rec.mu.Unlock()
		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `<Error><Code>AccessDenied</Code><Message>denied</Message></Error>`)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func awsConfig() aws.Config {
	return aws.Config{
		Region:           "us-east-1",
		Credentials:      aws.AnonymousCredentials{},
		RetryMaxAttempts: 1,
	}
}

func TestNewRequiresBucket(t *testing.T) {
	t.Parallel()

	_, err := s3.New(awsConfig(), s3.Config{})
	require.Error(t, err)
}

func TestPutObjectUploads(t *testing.T) {
	t.Parallel()

	rec := &received{}
	srv := newServer(t, http.StatusOK, rec)
	store, err := s3.New(awsConfig(), s3.Config{Bucket: "directory", Endpoint: srv.URL})
	require.NoError(t, err)

	uri, err := store.PutObject(context.Background(), "sources.json", "application/json", strings.NewReader(`[]`))
	require.NoError(t, err)
	assert.Equal(t, "s3://directory/sources.json", uri)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, http.MethodPut, rec.method)
	assert.Equal(t, "/directory/sources.json", rec.path)
	assert.Equal(t, "application/json", rec.contentType)
	assert.Equal(t, `[]`, rec.body)
}

func TestPutObjectSurfacesServerError(t *testing.T) {
	t.Parallel()

	srv := newServer(t, http.StatusForbidden, &received{})
	store, err := s3.New(awsConfig(), s3.Config{Bucket: "directory", Endpoint: srv.URL})
	require.NoError(t, err)

	_, err = store.PutObject(context.Background(), "sourcesjson", "application/json", strings.NewReader(`[]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://directory/sourcesjson")
}

func TestPutObjectRequiresPath(t *testing.T) {
	t.Parallel()

	store, err := s3.New(awsConfig(), s3.Config{Bucket: "directory"})
	require.NoError(t, err)
	_, err = store.PutObject(context.Background(), "", "", strings.NewReader("x"))
	require.Error(t, err)
}
