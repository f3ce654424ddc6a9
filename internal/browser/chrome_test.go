package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGeolocation(t *testing.T) {
	lat, lon, err := parseGeolocation("48.2082, 16.3738")
	require.NoError(t, err)
	assert.InDelta(t, 48.2082, lat, 1e-9)
	assert.InDelta(t, 16.3738, lon, 1e-9)

	_, _, err = parseGeolocation("48.2")
	assert.Error(t, err)

	_, _, err = parseGeolocation("north,16.3")
	assert.Error(t, err)
}

func chromeAvailable() bool {
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

// This test requires a local Chrome installation
// If Chrome is not available, the test will be skipped
func TestChromeSession(t *testing.T) {
	if testing.Short() || !chromeAvailable() {
		t.Skip("Chrome is not available, skipping test")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><body>
<div id="consent"><button onclick="document.getElementById('consent').remove()">Alle akzeptieren</button></div>
<ul><li class="product-item">One</li><li class="product-item">Two</li></ul>
</body></html>`))
	}))
	defer server.Close()

	session, err := NewChromeSession(ChromeOptions{Headless: true, Locale: "de-AT", Timezone: "Europe/Vienna"})
	require.NoError(t, err)
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, session.Navigate(ctx, server.URL))

	n, err := session.Count(ctx, "li.product-item")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	clicked, err := session.ClickFirst(ctx, "^alle akzeptieren")
	require.NoError(t, err)
	assert.True(t, clicked)

	n, err = session.Count(ctx, "#consent")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	html, err := session.HTML(ctx)
	require.NoError(t, err)
	assert.Contains(t, html, "product-item")
}
