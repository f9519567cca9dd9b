package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	path   string
}

func newFakeS3(t *testing.T, status int) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	return newFakeS3ByMethod(t, func(string) int { return status })
}

func newFakeS3ByMethod(t *testing.T, statusFor func(method string) int) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var requests []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		mu.Lock()
		requests = append(requests, recordedRequest{method: r.Method, path: r.URL.Path})
		mu.Unlock()
		w.WriteHeader(statusFor(r.Method))
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func newTestS3Client(t *testing.T, endpoint string) *S3Client {
	t.Helper()
	client, err := NewS3Client(context.Background(), S3ClientConfig{
		Endpoint:          endpoint,
		Region:            "us-east-1",
		AccessKeyID:       "access",
		SecretAccessKey:   "secret",
		Bucket:            "reports",
		UsePathStyle:      true,
		DownloadURLExpiry: 10 * time.Minute,
	})
	require.NoError(t, err)
	return client
}

func TestS3Client_ArchiveReport(t *testing.T) {
	srv, requests := newFakeS3(t, http.StatusOK)
	client := newTestS3Client(t, srv.URL)

	link, err := client.ArchiveReport(context.Background(), "reports/job-1/resultados_empresas.csv", []byte("Empresa Pesquisada\n"))
	require.NoError(t, err)

	require.Len(t, *requests, 1)
	assert.Equal(t, http.MethodPut, (*requests)[0].method)
	assert.Equal(t, "/reports/reports/job-1/resultados_empresas.csv", (*requests)[0].path)

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, srv.URL))
	assert.Equal(t, "/reports/reports/job-1/resultados_empresas.csv", parsed.Path)
	assert.Equal(t, "600", parsed.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, parsed.Query().Get("X-Amz-Signature"))
	assert.Equal(t, `attachment; filename=resultados_empresas.csv`, parsed.Query().Get("response-content-disposition"))
}

func TestS3Client_ArchiveReportUploadFailure(t *testing.T) {
	srv, _ := newFakeS3(t, http.StatusForbidden)
	client := newTestS3Client(t, srv.URL)

	link, err := client.ArchiveReport(context.Background(), "reports/job-1/x.csv", []byte("a"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upload report")
	assert.Empty(t, link)
}

func TestS3Client_EnsureBucketExisting(t *testing.T) {
	srv, requests := newFakeS3(t, http.StatusOK)
	client := newTestS3Client(t, srv.URL)

	require.NoError(t, client.EnsureBucket(context.Background()))

	require.Len(t, *requests, 1)
	assert.Equal(t, http.MethodHead, (*requests)[0].method)
}

func TestS3Client_EnsureBucketCreatesMissing(t *testing.T) {
	srv, requests := newFakeS3ByMethod(t, func(method string) int {
		if method == http.MethodHead {
			return http.StatusNotFound
		}
		return http.StatusOK
	})
	client := newTestS3Client(t, srv.URL)

	require.NoError(t, client.EnsureBucket(context.Background()))

	require.Len(t, *requests, 2)
	assert.Equal(t, http.MethodPut, (*requests)[1].method)
	assert.Equal(t, "/reports", (*requests)[1].path)
}

func TestS3Client_EnsureBucketForbidden(t *testing.T) {
	srv, requests := newFakeS3(t, http.StatusForbidden)
	client := newTestS3Client(t, srv.URL)

	err := client.EnsureBucket(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to check bucket reports")
	assert.Len(t, *requests, 1)
}

func TestNewS3Client_RequiresBucket(t *testing.T) {
	_, err := NewS3Client(context.Background(), S3ClientConfig{Region: "us-east-1"})

	assert.Error(t, err)
}
