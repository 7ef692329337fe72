package dummy

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatebench/internal/gateway"
	"gatebench/internal/runner"
)

func upload(t *testing.T, url string, content []byte) (int, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "testfile-000.bin")
	require.NoError(t, err)
	part.Write(content)
	require.NoError(t, mw.Close())

	resp, err := http.Post(url+"/upload", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, strings.TrimSpace(string(body))
}

func TestUploadReturnsCID(t *testing.T) {
	srv := httptest.NewServer(Handler(ServerConfig{}))
	defer srv.Close()

	content := []byte("some payload bytes")
	status, body := upload(t, srv.URL, content)
	require.Equal(t, http.StatusOK, status)
	require.True(t, strings.HasPrefix(body, runner.SuccessMarker), body)

	c, err := cid.Decode(body)
	require.NoError(t, err)
	assert.EqualValues(t, 1, c.Version())
	assert.EqualValues(t, cid.Raw, c.Type())

	want, err := mh.Sum(content, mh.SHA2_256, -1)
	require.NoError(t, err)
	assert.Equal(t, want, c.Hash())
}

func TestUploadInjectedFailure(t *testing.T) {
	srv := httptest.NewServer(Handler(ServerConfig{FailRate: 1}))
	defer srv.Close()

	status, body := upload(t, srv.URL, []byte("x"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.False(t, strings.HasPrefix(body, runner.SuccessMarker))
}

func TestUploadRequiresForm(t *testing.T) {
	srv := httptest.NewServer(Handler(ServerConfig{}))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/upload", "text/plain", strings.NewReader("raw"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/upload")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestProbeContent(t *testing.T) {
	srv := httptest.NewServer(Handler(ServerConfig{}))
	defer srv.Close()

	p, err := gateway.NewProber(srv.URL, gateway.ProbeCID, nil)
	require.NoError(t, err)
	require.NoError(t, p.WaitReady(context.Background()))

	resp, err := http.Get(srv.URL + "/gw/ipfs/garbage")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploaderAgainstDummy(t *testing.T) {
	srv := httptest.NewServer(Handler(ServerConfig{}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "testfile-001.bin")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{7}, 4096), 0644))

	u := runner.NewUploader(runner.Config{Endpoint: srv.URL + "/upload"})
	out := u.Upload(context.Background(), 1, path)
	require.True(t, out.OK(), "%+v", out)
}
