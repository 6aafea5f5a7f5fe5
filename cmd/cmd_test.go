package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/melon-chart-api/internal/app"
	"github.com/JakeFAU/melon-chart-api/internal/config"
	"github.com/JakeFAU/melon-chart-api/internal/melon"
)

const chartPage = `<html><body><table><tbody>
<tr data-song-no="301">
  <td><div class="wrap"><span class="rank">1</span>
    <span class="rank_wrap"><span class="bullet_icons rank_up"></span><span class="up">2</span></span></div></td>
  <td><div class="wrap"><a href="javascript:melon.link.goAlbumDetail('77');"><img src="https://cdn.example/album/77.jpg"></a></div></td>
  <td><div class="ellipsis rank01"><span><a href="javascript:melon.play.playSong('1000',301);">First</a></span></div>
    <div class="ellipsis rank02"><a href="javascript:melon.link.goArtistDetail('5');">Band</a></div></td>
  <td><div class="ellipsis rank03"><a href="javascript:melon.link.goAlbumDetail('77');">Debut</a></div></td>
</tr>
</tbody></table></body></html>`

func upstreamConfig(t *testing.T, handler http.Handler) config.Config {
	t.Helper()
	upstream := httptest.NewServer(handler)
	t.Cleanup(upstream.Close)
	return config.Config{
		Server:   config.ServerConfig{Port: 8080},
		Upstream: config.UpstreamConfig{BaseURL: upstream.URL, Timeout: 2 * time.Second},
		Cache: config.CacheConfig{
			DefaultTTL: time.Minute,
			ChartTTL:   time.Minute,
			SongTTL:    time.Minute,
			AlbumTTL:   time.Minute,
		},
		Prefetch: config.PrefetchConfig{Enabled: false, Interval: time.Minute},
		Logging:  config.LoggingConfig{Level: "error"},
	}
}

// useApp swaps the factory for the duration of the test. Tests that call it
// must not run in parallel.
func useApp(t *testing.T, cfg config.Config) {
	t.Helper()
	original := newApp
	newApp = func(ctx context.Context, _ string) (App, error) {
		return app.NewApp(ctx, cfg)
	}
	t.Cleanup(func() { newApp = original })
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestChartCommandPrintsJSON(t *testing.T) {
	useApp(t, upstreamConfig(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chart/week/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(chartPage))
	})))

	out, err := execute(t, "chart", "week")
	require.NoError(t, err)

	var tracks []melon.Track
	require.NoError(t, json.Unmarshal([]byte(out), &tracks))
	require.Len(t, tracks, 1)
	require.Equal(t, "First", tracks[0].Title)
	require.Equal(t, melon.RankUp(2), tracks[0].RankChange)
	require.Contains(t, out, "\n  {")
}

func TestChartCommandRejectsUnknownType(t *testing.T) {
	useApp(t, upstreamConfig(t, http.NotFoundHandler()))

	_, err := execute(t, "chart", "yearly")
	require.Error(t, err)
	require.ErrorIs(t, err, melon.ErrInvalidArgument)
}

func TestAlbumCommandSurfacesUpstreamError(t *testing.T) {
	useApp(t, upstreamConfig(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div id="conts" data-target-id="album"></div></body></html>`))
	})))

	_, err := execute(t, "album", "999")
	require.ErrorIs(t, err, melon.ErrUpstream)
	require.ErrorContains(t, err, "Album not found")
}

func TestFailedLookupStillClosesApp(t *testing.T) {
	cfg := upstreamConfig(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	tracked := &closeTracker{}
	original := newApp
	newApp = func(ctx context.Context, _ string) (App, error) {
		inner, err := app.NewApp(ctx, cfg)
		if err != nil {
			return nil, err
		}
		tracked.App = inner
		return tracked, nil
	}
	t.Cleanup(func() { newApp = original })

	_, err := execute(t, "song", "1")
	require.ErrorIs(t, err, melon.ErrTransport)
	require.EqualValues(t, 1, tracked.closed.Load())

	_, err = execute(t, "chart", "yearly")
	require.Error(t, err)
	require.EqualValues(t, 2, tracked.closed.Load())
}

func TestCommandRequiresOneArgument(t *testing.T) {
	useApp(t, upstreamConfig(t, http.NotFoundHandler()))

	_, err := execute(t, "song")
	require.Error(t, err)
}

func TestRootFailsOnBadConfig(t *testing.T) {
	original := newApp
	newApp = func(context.Context, string) (App, error) {
		return nil, errors.New("boom")
	}
	t.Cleanup(func() { newApp = original })

	_, err := execute(t, "song", "1")
	require.ErrorContains(t, err, "failed to initialize application services")
}

func TestResolveAppMissing(t *testing.T) {
	t.Parallel()

	_, err := resolveApp(context.Background())
	require.Error(t, err)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	cfg := upstreamConfig(t, http.NotFoundHandler())
	appInstance, err := app.NewApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(appInstance.Close)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	srv := &http.Server{
		Addr:              net.JoinHostPort("127.0.0.1", strconv.Itoa(port)),
		Handler:           appInstance.GetServer().Handler(),
		ReadHeaderTimeout: time.Second,
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, appInstance, srv) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + srv.Addr + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

type closeTracker struct {
	App
	closed atomic.Int32
}

func (c *closeTracker) Close() {
	c.closed.Add(1)
	c.App.Close()
}
