package capture

import "fmt"

// DeviceError describes a hardware-level capture failure: opening,
// starting, stopping, or reading the device.
type DeviceError struct {
	Op      string // "open", "start", "stop", "read"
	Backend string
	Reason  string
	Err     error
}

func (e *DeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capture %s (%s): %s: %v", e.Op, e.Backend, e.Reason, e.Err)
	}
	return fmt.Sprintf("capture %s (%s): %s", e.Op, e.Backend, e.Reason)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}
