//go:build !linux

package serial

import "errors"

// Config mirrors the linux build's Config so callers can compile
// platform-independent code; Open always fails here.
type Config struct {
	Path     string
	BaudRate uint32
}

// Port is unimplemented outside Linux.
type Port struct{}

// Open reports that raw-mode TTY configuration is only implemented for
// Linux, matching the teacher's own io_uring-stub pattern for
// unsupported build targets (internal/uring/kernelopcode_stub.go).
func Open(cfg Config) (*Port, error) {
	return nil, errors.New("serial: not supported on this platform")
}

func (p *Port) Write(b []byte) (int, error) { return 0, errors.New("serial: not supported on this platform") }
func (p *Port) Read(b []byte) (int, error)  { return 0, errors.New("serial: not supported on this platform") }
func (p *Port) Close() error                { return nil }
