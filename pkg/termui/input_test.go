package termui

import (
	"strings"
	"testing"

	termbox "github.com/nsf/termbox-go"

	"github.com/glyphcam/glyphcam/pkg/app"
)

func TestCommandFor(t *testing.T) {
	tests := []struct {
		name string
		ev   termbox.Event
		cmd  app.Command
		ok   bool
	}{
		{"space toggles camera", termbox.Event{Type: termbox.EventKey, Key: termbox.KeySpace}, app.CommandToggleCamera, true},
		{"q quits", termbox.Event{Type: termbox.EventKey, Ch: 'q'}, app.CommandQuit, true},
		{"esc quits", termbox.Event{Type: termbox.EventKey, Key: termbox.KeyEsc}, app.CommandQuit, true},
		{"ctrl-c quits", termbox.Event{Type: termbox.EventKey, Key: termbox.KeyCtrlC}, app.CommandQuit, true},
		{"c toggles color", termbox.Event{Type: termbox.EventKey, Ch: 'c'}, app.CommandToggleColor, true},
		{"] next charset", termbox.Event{Type: termbox.EventKey, Ch: ']'}, app.CommandNextCharacterSet, true},
		{"[ previous charset", termbox.Event{Type: termbox.EventKey, Ch: '['}, app.CommandPreviousCharacterSet, true},
		{"+ grows", termbox.Event{Type: termbox.EventKey, Ch: '+'}, app.CommandIncreaseScale, true},
		{"= grows", termbox.Event{Type: termbox.EventKey, Ch: '='}, app.CommandIncreaseScale, true},
		{"- shrinks", termbox.Event{Type: termbox.EventKey, Ch: '-'}, app.CommandDecreaseScale, true},
		{". next camera", termbox.Event{Type: termbox.EventKey, Ch: '.'}, app.CommandNextCamera, true},
		{", previous camera", termbox.Event{Type: termbox.EventKey, Ch: ','}, app.CommandPreviousCamera, true},
		{"r resets", termbox.Event{Type: termbox.EventKey, Ch: 'r'}, app.CommandResetCamera, true},
		{"x force-stops", termbox.Event{Type: termbox.EventKey, Ch: 'x'}, app.CommandForceStopCamera, true},
		{"unbound key", termbox.Event{Type: termbox.EventKey, Ch: 'z'}, app.CommandNone, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, ok := commandFor(tt.ev)
			if cmd != tt.cmd || ok != tt.ok {
				t.Fatalf("commandFor = (%v, %v), want (%v, %v)", cmd, ok, tt.cmd, tt.ok)
			}
		})
	}
}

func TestStatusLine(t *testing.T) {
	line := StatusLine(app.Status{
		State:   "active",
		FPS:     12.5,
		Charset: "dense",
		Scale:   1.0,
		Color:   true,
		Message: "hello",
	})

	for _, want := range []string{"active", "12.5", "dense", "color on", "hello"} {
		if !strings.Contains(line, want) {
			t.Errorf("status line %q missing %q", line, want)
		}
	}
}
