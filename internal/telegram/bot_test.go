package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/file/botSECRET/ok.png":
			_, _ = w.Write([]byte("png-bytes"))
		case "/file/botSECRET/big.bin":
			_, _ = w.Write([]byte(strings.Repeat("x", maxDownloadSize+1)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()

	data, err := fetch(ctx, srv.Client(), srv.URL+"/file/botSECRET/ok.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)

	_, err = fetch(ctx, srv.Client(), srv.URL+"/file/botSECRET/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	_, err = fetch(ctx, srv.Client(), srv.URL+"/file/botSECRET/big.bin")
	assert.Error(t, err)
}

func TestFetch_HidesToken(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fetch(ctx, http.DefaultClient, "http://127.0.0.1:1/file/botSECRET/a.png")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET")
}

func TestContactKeyboard(t *testing.T) {
	kb := contactKeyboard()
	require.Len(t, kb.Keyboard, 1)
	require.Len(t, kb.Keyboard[0], 1)
	assert.True(t, kb.Keyboard[0][0].RequestContact)
	assert.True(t, kb.OneTimeKeyboard)
	assert.True(t, kb.ResizeKeyboard)
}
