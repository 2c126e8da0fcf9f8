package hero

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

const (
	// SwipeThreshold is the horizontal travel in pixels a swipe needs to change slide.
	SwipeThreshold = 50.0
	// DefaultInterval is the autoplay period.
	DefaultInterval = 5 * time.Second
)

// ErrNoSlides is returned when a slider is built without slides.
var ErrNoSlides = errors.New("hero: at least one slide is required")

// Slide is one hero image.
type Slide struct {
	Image string `json:"image"`
	Alt   string `json:"alt,omitempty"`
}

// State is a point-in-time view of the slider.
type State struct {
	Current int     `json:"current"`
	Count   int     `json:"count"`
	Paused  bool    `json:"paused"`
	Slides  []Slide `json:"slides"`
}

// Slider tracks the active hero slide. Only one slide is active at a time.
type Slider struct {
	// OnChange, when set, is called with the new index after every move.
	OnChange func(index int)

	mu      sync.Mutex
	slides  []Slide
	current int
	paused  bool
	resume  chan struct{}
}

// NewSlider builds a slider starting at the first slide.
func NewSlider(slides []Slide) (*Slider, error) {
	if len(slides) == 0 {
		return nil, ErrNoSlides
	}
	return &Slider{slides: append([]Slide(nil), slides...), resume: make(chan struct{}, 1)}, nil
}

// ParseSlides reads a comma separated list of image paths. An optional alt text follows
// a "|" separator.
func ParseSlides(raw string) []Slide {
	var out []Slide
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		image, alt, _ := strings.Cut(part, "|")
		out = append(out, Slide{Image: strings.TrimSpace(image), Alt: strings.TrimSpace(alt)})
	}
	return out
}

// Go activates slide i, wrapping modulo the slide count in both directions.
func (s *Slider) Go(i int) int {
	s.mu.Lock()
	n := len(s.slides)
	s.current = ((i % n) + n) % n
	idx := s.current
	cb := s.OnChange
	s.mu.Unlock()
	if cb != nil {
		cb(idx)
	}
	return idx
}

// Next advances one slide.
func (s *Slider) Next() int { return s.Go(s.Current() + 1) }

// Prev goes back one slide.
func (s *Slider) Prev() int { return s.Go(s.Current() - 1) }

// Swipe applies a finished horizontal drag of dx pixels. Leftward drags advance.
// It reports whether the slide changed.
func (s *Slider) Swipe(dx float64) bool {
	if dx > -SwipeThreshold && dx < SwipeThreshold {
		return false
	}
	if dx < 0 {
		s.Next()
	} else {
		s.Prev()
	}
	return true
}

// Current returns the active index.
func (s *Slider) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Pause stops autoplay from advancing, as while the pointer hovers the slider.
func (s *Slider) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

// Resume restarts autoplay with a fresh interval.
func (s *Slider) Resume() {
	s.mu.Lock()
	wasPaused := s.paused
	s.paused = false
	s.mu.Unlock()
	if !wasPaused {
		return
	}
	select {
	case s.resume <- struct{}{}:
	default:
	}
}

// State snapshots the slider.
func (s *Slider) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Current: s.current,
		Count:   len(s.slides),
		Paused:  s.paused,
		Slides:  append([]Slide(nil), s.slides...),
	}
}

// Autoplay advances the slider every interval until ctx is done. Ticks are skipped while
// paused, and Resume restarts the interval.
func (s *Slider) Autoplay(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.resume:
			ticker.Reset(interval)
		case <-ticker.C:
			s.mu.Lock()
			paused := s.paused
			s.mu.Unlock()
			if !paused {
				s.Next()
			}
		}
	}
}
