package vault

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/defidvisor-core/internal/fault"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second)
}

func TestListBuckets(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/buckets", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"data":[{"ID":1,"Name":"reports"},{"ID":2,"Name":"media"}]}`))
	})

	buckets, err := client.ListBuckets(context.Background())
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.Equal(t, "reports", buckets[0].Name)
}

func TestCreateBucket(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/buckets", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"data":{"ID":3,"Name":"archive"}}`))
	})

	bucket, err := client.CreateBucket(context.Background(), "archive")
	require.NoError(t, err)
	assert.Equal(t, "archive", bucket.Name)
}

func TestListFiles(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/buckets/reports/files", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"data":[{"ID":7,"Name":"q3.pdf"}]}`))
	})

	files, err := client.ListFiles(context.Background(), "reports")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "q3.pdf", files[0].Name)
}

func TestUploadFileSendsMultipart(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/buckets/reports/files", r.URL.Path)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "q4.pdf", header.Filename)

		_, _ = w.Write([]byte(`{"success":true,"data":{"ID":8,"Name":"q4.pdf"}}`))
	})

	uploaded, err := client.UploadFile(context.Background(), "reports", "q4.pdf", strings.NewReader("pdf-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "q4.pdf", uploaded.Name)
}

func TestDownloadFileReturnsRawBytes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/buckets/reports/files/q3.pdf/download", r.URL.Path)
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("binary-content"))
	})

	content, err := client.DownloadFile(context.Background(), "reports", "q3.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("binary-content"), content)
}

func TestEnvelopeFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"bucket exists"}`))
	})

	_, err := client.CreateBucket(context.Background(), "reports")
	require.Error(t, err)
	assert.Equal(t, fault.BackendError, fault.KindOf(err))
	assert.Contains(t, err.Error(), "bucket exists")
}

func TestMissingBucketIsNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such bucket", http.StatusNotFound)
	})

	_, err := client.ListFiles(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, fault.NotFound, fault.KindOf(err))
}
