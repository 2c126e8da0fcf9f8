package hero_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bezva-storefront/internal/hero"
)

func newSlider(t *testing.T) *hero.Slider {
	t.Helper()
	s, err := hero.NewSlider(hero.ParseSlides("img/hero1.jpg|Skákací hrady, img/hero2.jpg,,img/hero3.jpg"))
	require.NoError(t, err)
	return s
}

func TestParseSlides(t *testing.T) {
	slides := hero.ParseSlides(" a.jpg|Alt ,, b.jpg ")
	require.Equal(t, []hero.Slide{{Image: "a.jpg", Alt: "Alt"}, {Image: "b.jpg"}}, slides)
	_, err := hero.NewSlider(nil)
	require.ErrorIs(t, err, hero.ErrNoSlides)
}

func TestGoWraps(t *testing.T) {
	s := newSlider(t)
	require.Equal(t, 2, s.Prev())
	require.Equal(t, 0, s.Next())
	require.Equal(t, 1, s.Go(4))
	require.Equal(t, 2, s.Go(-4))
	require.Equal(t, 3, s.State().Count)
}

func TestSwipeThreshold(t *testing.T) {
	s := newSlider(t)
	require.False(t, s.Swipe(50))
	require.False(t, s.Swipe(-50))
	require.Equal(t, 0, s.Current())

	require.True(t, s.Swipe(-51))
	require.Equal(t, 1, s.Current())
	require.True(t, s.Swipe(80))
	require.Equal(t, 0, s.Current())
}

func TestOnChange(t *testing.T) {
	s := newSlider(t)
	var seen []int
	s.OnChange = func(i int) { seen = append(seen, i) }
	s.Next()
	s.Go(0)
	require.Equal(t, []int{1, 0}, seen)
}

func TestAutoplayPauseResume(t *testing.T) {
	s := newSlider(t)
	var moves atomic.Int32
	s.OnChange = func(int) { moves.Add(1) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Autoplay(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return moves.Load() >= 2 }, time.Second, time.Millisecond)

	s.Pause()
	time.Sleep(10 * time.Millisecond)
	paused := moves.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, paused, moves.Load())
	require.True(t, s.State().Paused)

	s.Resume()
	require.Eventually(t, func() bool { return moves.Load() > paused }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("autoplay did not stop")
	}
}

func TestHandlers(t *testing.T) {
	h := &hero.Handler{Slider: newSlider(t)}
	r := chi.NewRouter()
	r.Get("/api/v1/hero", h.Get)
	r.Post("/api/v1/hero/{action}", h.Action)

	post := func(action, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/hero/"+action, strings.NewReader(body)))
		return rec
	}

	require.Equal(t, http.StatusOK, post("next", "").Code)
	require.Equal(t, 1, h.Slider.Current())
	require.Equal(t, http.StatusOK, post("go", `{"index":2}`).Code)
	require.Equal(t, 2, h.Slider.Current())
	require.Equal(t, http.StatusBadRequest, post("go", `{}`).Code)
	require.Equal(t, http.StatusOK, post("swipe", `{"dx":-120}`).Code)
	require.Equal(t, 0, h.Slider.Current())
	require.Equal(t, http.StatusOK, post("prev", "").Code)
	require.Equal(t, 2, h.Slider.Current())
	require.Equal(t, http.StatusNotFound, post("spin", "").Code)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/hero", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"current":2`)
	require.Contains(t, rec.Body.String(), `"alt":"Skákací hrady"`)
}
