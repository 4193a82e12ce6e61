package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3ProviderOpen(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/imports/data/a.csv" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		io.WriteString(w, "x\nInf\n")
	}))
	defer srv.Close()

	p := NewS3Provider(NewS3Client("us-east-1", srv.URL, true), "imports")
	assert.Equal(t, "s3://imports/data/a.csv", p.GetURL("data/a.csv"))

	rc, err := p.OpenFile(context.Background(), "data/a.csv")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "x\nInf\n", string(data))

	_, err = p.OpenFile(context.Background(), "missing.csv")
	assert.Error(t, err)
}
