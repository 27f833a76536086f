package core

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrSurfaceOutOfDate is returned by acquire and present when the
	// swapchain no longer matches the surface. It is the only recoverable
	// error of the frame loop.
	ErrSurfaceOutOfDate = errors.New("swapchain out of date")
	ErrWaitTimeout      = errors.New("timed out waiting on the gpu")
	ErrDeviceLost       = errors.New("device lost")
	ErrOutOfMemory      = errors.New("out of device or host memory")
	ErrPoolExhausted    = errors.New("descriptor pool exhausted")
	ErrNoSuitableDevice = errors.New("no suitable physical device")
	ErrShaderLoad       = errors.New("failed to load shader")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrBackendFailure   = errors.New("backend call failed")
)

// IsRecoverable reports whether the frame loop can continue after err.
func IsRecoverable(err error) bool {
	return err != nil && errors.Is(err, ErrSurfaceOutOfDate)
}

// IsFatal reports whether err must terminate the frame loop.
func IsFatal(err error) bool {
	return err != nil && !IsRecoverable(err)
}
