// Package app contains the glyphcam control loop: a single router that
// merges timer ticks, user commands and camera frames, with strict
// input priority and latest-frame-wins backlog handling.
package app

import (
	"fmt"

	"github.com/glyphcam/glyphcam/pkg/capture"
)

// Command is a discrete user action, mapped from raw key events by the
// input layer. The router only consumes this enum.
type Command int

const (
	// CommandNone is the zero value and does nothing.
	CommandNone Command = iota
	// CommandToggleCamera starts the camera if stopped, stops it if active.
	CommandToggleCamera
	// CommandToggleColor switches per-cell color on or off.
	CommandToggleColor
	// CommandNextCharacterSet rotates to the next glyph ramp.
	CommandNextCharacterSet
	// CommandPreviousCharacterSet rotates to the previous glyph ramp.
	CommandPreviousCharacterSet
	// CommandIncreaseScale grows the output grid.
	CommandIncreaseScale
	// CommandDecreaseScale shrinks the output grid.
	CommandDecreaseScale
	// CommandNextCamera switches to the next capture device.
	CommandNextCamera
	// CommandPreviousCamera switches to the previous capture device.
	CommandPreviousCamera
	// CommandResetCamera clears a failed device.
	CommandResetCamera
	// CommandForceStopCamera is the emergency stop: retry the hardware
	// stop a bounded number of times, then mark the device failed.
	CommandForceStopCamera
	// CommandQuit ends the session.
	CommandQuit
)

func (c Command) String() string {
	switch c {
	case CommandNone:
		return "none"
	case CommandToggleCamera:
		return "toggle-camera"
	case CommandToggleColor:
		return "toggle-color"
	case CommandNextCharacterSet:
		return "next-charset"
	case CommandPreviousCharacterSet:
		return "previous-charset"
	case CommandIncreaseScale:
		return "increase-scale"
	case CommandDecreaseScale:
		return "decrease-scale"
	case CommandNextCamera:
		return "next-camera"
	case CommandPreviousCamera:
		return "previous-camera"
	case CommandResetCamera:
		return "reset-camera"
	case CommandForceStopCamera:
		return "force-stop-camera"
	case CommandQuit:
		return "quit"
	default:
		return fmt.Sprintf("command(%d)", int(c))
	}
}

// EventKind tags the union members of Event.
type EventKind int

const (
	// EventCommand carries a user command.
	EventCommand EventKind = iota
	// EventFrame carries a captured frame.
	EventFrame
	// EventResize carries a new terminal size.
	EventResize
	// EventCameraAck reports the result of an asynchronous camera
	// transition back into the loop.
	EventCameraAck
)

// Event is the tagged union drained and partitioned by the router each
// iteration: control events (commands, resizes, acks) are applied in
// arrival order before any frame work, and of the drained frames only
// the most recent survives.
type Event struct {
	Kind  EventKind
	Cmd   Command
	Frame capture.Frame
	Cols  int
	Rows  int
	Note  string
	Err   error
}
