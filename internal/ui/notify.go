package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/slok/updash/internal/model"
)

// Level is the severity of a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

// Notifier surfaces action progress to the operator.
type Notifier interface {
	Notify(level Level, scope string, msg string)
}

// NotifierFunc is a helper to use functions as Notifiers.
type NotifierFunc func(level Level, scope string, msg string)

func (f NotifierFunc) Notify(level Level, scope string, msg string) { f(level, scope, msg) }

// NoopNotifier doesn't notify anything.
var NoopNotifier = NotifierFunc(func(Level, string, string) {})

var palettes = map[model.Theme]map[Level]string{
	model.ThemeLight: {
		LevelInfo:    "#007bff",
		LevelSuccess: "#28a745",
		LevelWarning: "#b38600",
		LevelError:   "#dc3545",
	},
	model.ThemeDark: {
		LevelInfo:    "#4da3ff",
		LevelSuccess: "#5cd17a",
		LevelWarning: "#ffc107",
		LevelError:   "#ff6b6b",
	},
}

// StreamNotifierConfig is the configuration of the stream notifier.
type StreamNotifierConfig struct {
	Out     io.Writer
	Theme   model.Theme
	NoColor bool
}

// StreamNotifier writes one styled line per notification.
type StreamNotifier struct {
	out    io.Writer
	styles map[Level]lipgloss.Style
	scope  lipgloss.Style
	mu     sync.Mutex
}

// NewStreamNotifier returns a notifier writing on a stream.
func NewStreamNotifier(cfg StreamNotifierConfig) *StreamNotifier {
	r := lipgloss.NewRenderer(cfg.Out)
	palette, ok := palettes[cfg.Theme]
	if !ok {
		palette = palettes[model.DefaultTheme]
	}

	styles := map[Level]lipgloss.Style{}
	for level, color := range palette {
		s := r.NewStyle()
		if !cfg.NoColor {
			s = s.Foreground(lipgloss.Color(color))
			if level == LevelError {
				s = s.Bold(true)
			}
		}
		styles[level] = s
	}

	scope := r.NewStyle()
	if !cfg.NoColor {
		scope = scope.Faint(true)
	}

	return &StreamNotifier{
		out:    cfg.Out,
		styles: styles,
		scope:  scope,
	}
}

func (s *StreamNotifier) Notify(level Level, scope string, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	style, ok := s.styles[level]
	if !ok {
		style = s.styles[LevelInfo]
	}

	if scope == "" {
		fmt.Fprintln(s.out, style.Render(msg))
		return
	}
	fmt.Fprintf(s.out, "%s %s\n", s.scope.Render("["+scope+"]"), style.Render(msg))
}
