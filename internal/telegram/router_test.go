package telegram

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadReadsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte{0xFF, 0xD8, 0x01})
	}))
	defer srv.Close()

	b, err := download(srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8, 0x01}, b)
}

func TestDownloadRejectsNon200(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := download(srv.URL)
	assert.Error(t, err)
}

func TestDownloadClientBounded(t *testing.T) {
	// a hung file server must not pin the per-update goroutine forever
	assert.Equal(t, 60*time.Second, fileClient.Timeout)
}
