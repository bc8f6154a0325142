package backend

import (
	"fmt"

	"github.com/google/uuid"
)

// Device identity scopes.
const (
	DeviceScopeRequest = "request"
	DeviceScopeProcess = "process"
)

// DeviceSource hands out the opaque device identifier attached to every
// backend call. It holds no mutable state and is safe for concurrent use.
type DeviceSource struct {
	fixed string
}

// NewDeviceSource returns a source for the given scope. The process scope
// draws its identifier once, here.
func NewDeviceSource(scope string) (*DeviceSource, error) {
	switch scope {
	case "", DeviceScopeRequest:
		return &DeviceSource{}, nil
	case DeviceScopeProcess:
		return &DeviceSource{fixed: uuid.NewString()}, nil
	default:
		return nil, fmt.Errorf("unknown device scope %q (valid: request, process)", scope)
	}
}

// FixedDeviceSource always returns id. Used in tests and by the solve command.
func FixedDeviceSource(id string) *DeviceSource {
	return &DeviceSource{fixed: id}
}

// ID returns the identifier for one conversation attempt.
func (d *DeviceSource) ID() string {
	if d.fixed != "" {
		return d.fixed
	}
	return uuid.NewString()
}
