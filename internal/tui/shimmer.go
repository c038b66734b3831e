package tui

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ShimmerConfig controls the highlight sweep over the selected task name
type ShimmerConfig struct {
	Enabled    bool
	SpeedMs    int     // tick interval
	WidthRatio float64 // highlight width relative to the text
	CycleMs    int     // time for one sweep
	PauseMs    int     // rest between sweeps
}

// DefaultShimmerConfig returns the default sweep. SMGANTT_REDUCE_MOTION=1 turns it off.
func DefaultShimmerConfig() ShimmerConfig {
	return ShimmerConfig{
		Enabled:    os.Getenv("SMGANTT_REDUCE_MOTION") == "",
		SpeedMs:    100,
		WidthRatio: 0.25,
		CycleMs:    1800,
		PauseMs:    500,
	}
}

// Shimmer is the animation state of one highlighted label
type Shimmer struct {
	cfg       ShimmerConfig
	center    float64
	paused    bool
	pauseFrom time.Time
	trueColor bool
}

type shimmerTickMsg struct{}

// NewShimmer returns a shimmer at the start of its sweep
func NewShimmer(cfg ShimmerConfig) *Shimmer {
	return &Shimmer{cfg: cfg, trueColor: os.Getenv("COLORTERM") == "truecolor"}
}

// Tick returns the command that drives the animation, or nil when it is off
func (s *Shimmer) Tick() tea.Cmd {
	if !s.cfg.Enabled {
		return nil
	}
	return tea.Tick(time.Duration(s.cfg.SpeedMs)*time.Millisecond, func(time.Time) tea.Msg {
		return shimmerTickMsg{}
	})
}

// Reset restarts the sweep, used when the selection changes
func (s *Shimmer) Reset() {
	s.center = 0
	s.paused = false
}

// Advance moves the sweep one tick along a label of length n
func (s *Shimmer) Advance(n int, now time.Time) {
	if !s.cfg.Enabled || n <= 0 {
		return
	}
	if s.paused {
		if now.Sub(s.pauseFrom) >= time.Duration(s.cfg.PauseMs)*time.Millisecond {
			s.paused = false
			s.center = -float64(n) * s.cfg.WidthRatio
		}
		return
	}
	ticks := float64(s.cfg.CycleMs) / float64(s.cfg.SpeedMs)
	s.center += float64(n) * (1 + 2*s.cfg.WidthRatio) / ticks
	if end := float64(n) * (1 + s.cfg.WidthRatio); s.center >= end {
		s.center = end
		s.paused = true
		s.pauseFrom = now
	}
}

// Render colours text with the sweep at its current position
func (s *Shimmer) Render(text string) string {
	if text == "" {
		return ""
	}
	if !s.cfg.Enabled {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentBright)).Bold(true).Render(text)
	}

	runes := []rune(text)
	sigma := math.Max(1, s.cfg.WidthRatio*float64(len(runes))/2)
	var b strings.Builder
	for i, r := range runes {
		dx := float64(i) - s.center
		w := math.Exp(-(dx * dx) / (2 * sigma * sigma))
		if s.trueColor {
			// blend #B1B8C7 towards #EAE6FF
			b.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(blend(177, 184, 199, 234, 230, 255, w))).
				Render(string(r)))
			continue
		}
		color := "250"
		if w > 0.5 {
			color = "147"
		}
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(string(r)))
	}
	return b.String()
}

func blend(r1, g1, b1, r2, g2, b2 int, w float64) string {
	mix := func(a, b int) int { return int(float64(a)*(1-w) + float64(b)*w) }
	return fmt.Sprintf("#%02X%02X%02X", mix(r1, r2), mix(g1, g2), mix(b1, b2))
}
