package runner

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newTestUploader(endpoint string) *Uploader {
	return NewUploader(Config{Endpoint: endpoint})
}

func TestUploadSuccess(t *testing.T) {
	var gotName, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		b, _ := io.ReadAll(f)
		gotName, gotBody = hdr.Filename, string(b)
		w.Write([]byte("bafkreidummy\n"))
	}))
	defer srv.Close()

	path := writeFile(t, t.TempDir(), "testfile-000.bin", "payload")
	out := newTestUploader(srv.URL).Upload(context.Background(), 0, path)

	require.True(t, out.OK(), "outcome: %+v", out)
	require.NoError(t, out.Err)
	require.Equal(t, "bafkreidummy", out.Body)
	require.Equal(t, http.StatusOK, out.Status)
	require.Positive(t, out.Elapsed)
	require.Equal(t, "testfile-000.bin", gotName)
	require.Equal(t, "payload", gotBody)
}

func TestUploadProtocolFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("failed to store"))
	}))
	defer srv.Close()

	path := writeFile(t, t.TempDir(), "p.bin", "x")
	out := newTestUploader(srv.URL).Upload(context.Background(), 3, path)

	require.Equal(t, ProtocolFailure, out.Kind)
	require.Equal(t, "failed to store", out.Body)
	require.True(t, errors.Is(out.Err, ErrProtocol))
	require.False(t, errors.Is(out.Err, ErrTransport))

	var ue *UploadError
	require.True(t, errors.As(out.Err, &ue))
	require.Equal(t, 3, ue.Worker)
}

func TestUploadTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	path := writeFile(t, t.TempDir(), "p.bin", "x")
	out := newTestUploader(url).Upload(context.Background(), 1, path)

	require.Equal(t, TransportFailure, out.Kind)
	require.True(t, errors.Is(out.Err, ErrTransport))
}

func TestUploadResourceFailure(t *testing.T) {
	out := newTestUploader("http://127.0.0.1:1/upload").Upload(context.Background(), 4, filepath.Join(t.TempDir(), "missing.bin"))

	require.Equal(t, ResourceFailure, out.Kind)
	require.True(t, errors.Is(out.Err, ErrResource))
	require.Zero(t, out.Elapsed)
}
