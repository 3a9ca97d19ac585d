package termui

import (
	termbox "github.com/nsf/termbox-go"

	"github.com/glyphcam/glyphcam/pkg/app"
)

// Listen polls terminal events and posts mapped commands and resizes
// until the screen is interrupted or a quit command is seen. Run it in
// its own goroutine; it returns after posting the quit so no keypress
// is ever delayed behind frame traffic.
func (r *Renderer) Listen(post func(app.Event)) {
	for {
		ev := termbox.PollEvent()
		switch ev.Type {
		case termbox.EventInterrupt:
			return
		case termbox.EventError:
			post(app.Event{Kind: app.EventCommand, Cmd: app.CommandQuit})
			return
		case termbox.EventResize:
			post(app.Event{Kind: app.EventResize, Cols: ev.Width, Rows: ev.Height})
		case termbox.EventKey:
			if cmd, ok := commandFor(ev); ok {
				post(app.Event{Kind: app.EventCommand, Cmd: cmd})
				if cmd == app.CommandQuit {
					return
				}
			}
		}
	}
}

// commandFor maps a key event to a command. Unbound keys map to nothing.
func commandFor(ev termbox.Event) (app.Command, bool) {
	switch ev.Key {
	case termbox.KeySpace:
		return app.CommandToggleCamera, true
	case termbox.KeyEsc, termbox.KeyCtrlC:
		return app.CommandQuit, true
	}

	switch ev.Ch {
	case 'q':
		return app.CommandQuit, true
	case 'c':
		return app.CommandToggleColor, true
	case ']':
		return app.CommandNextCharacterSet, true
	case '[':
		return app.CommandPreviousCharacterSet, true
	case '+', '=':
		return app.CommandIncreaseScale, true
	case '-', '_':
		return app.CommandDecreaseScale, true
	case '.':
		return app.CommandNextCamera, true
	case ',':
		return app.CommandPreviousCamera, true
	case 'r':
		return app.CommandResetCamera, true
	case 'x':
		return app.CommandForceStopCamera, true
	}

	return app.CommandNone, false
}
