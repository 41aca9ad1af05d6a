package core

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
)

var (
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")
	ErrDeviceLost       = errors.New("device lost")
	ErrOutOfMemory      = errors.New("out of device memory")
	ErrShaderCompile    = errors.New("shader blob could not be loaded")
	ErrUnknown          = errors.New("unknown")
)

// DeviceError is returned by every failing graphics API call. It carries the
// call that failed, where it was issued from and the raw result code.
type DeviceError struct {
	Op     string
	File   string
	Line   int
	Code   int64
	Detail string
	Err    error
}

func (e *DeviceError) Error() string {
	msg := fmt.Sprintf("%s failed in %s at line %d; code: %d", e.Op, e.File, e.Line, e.Code)
	if e.Detail != "" {
		msg += "; " + e.Detail
	}
	return msg
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// NewDeviceError builds a DeviceError for the caller of the function that
// invokes it.
func NewDeviceError(op string, code int64, detail string, cause error) *DeviceError {
	return newDeviceError(2, op, code, detail, cause)
}

func newDeviceError(skip int, op string, code int64, detail string, cause error) *DeviceError {
	file, line := "unknown", 0
	if _, f, l, ok := runtime.Caller(skip + 1); ok {
		file, line = filepath.Base(f), l
	}
	if cause == nil {
		cause = ErrUnknown
	}
	return &DeviceError{
		Op:     op,
		File:   file,
		Line:   line,
		Code:   code,
		Detail: detail,
		Err:    cause,
	}
}

// Check turns a result code into an error. Zero is success.
func Check(op string, code int64, detail string) error {
	if code == 0 {
		return nil
	}
	return newDeviceError(1, op, code, detail, ErrUnknown)
}

// Must logs err and terminates the process when err is not nil.
func Must(err error) {
	if err != nil {
		LogFatal("%s", err.Error())
	}
}
