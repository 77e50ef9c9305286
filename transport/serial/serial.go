//go:build linux

// Package serial adapts a real TTY device node into an
// internal/interfaces.Transport, configuring raw termios mode the way
// the protocol's stop-and-wait framing needs: no line discipline, no
// echo, no software flow control, 8 data bits and no parity, with the
// application-level CRC-8 standing in for a parity check
// (§6 "the serial adapter uses golang.org/x/sys/unix termios ioctls").
package serial

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Config describes how to open and configure the TTY.
type Config struct {
	Path     string
	BaudRate uint32 // line rate in bits per second (9600 to 230400); 0 selects 115200
}

// Port is an open, raw-mode serial line. It implements
// internal/interfaces.Transport via Write; received bytes are read by
// the caller's own loop via Read and fed to a node.Handler's or
// hub.Controller's Update.
type Port struct {
	f  *os.File
	fd int
}

// Open configures path as a raw-mode TTY at the given baud rate and
// returns it ready for use as a Transport.
func Open(cfg Config) (*Port, error) {
	f, err := os.OpenFile(cfg.Path, os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", cfg.Path, err)
	}
	fd := int(f.Fd())

	term, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("serial: TCGETS %s: %w", cfg.Path, err)
	}

	// cfmakeraw equivalent: disable line discipline, echo, signal
	// generation, and all input/output translation so every byte the
	// protocol's parser sees is exactly what was sent.
	term.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	term.Oflag &^= unix.OPOST
	term.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	term.Cflag &^= unix.CSIZE | unix.PARENB
	term.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL
	term.Cc[unix.VMIN] = 1
	term.Cc[unix.VTIME] = 0

	rates := map[uint32]uint32{0: unix.B115200, 9600: unix.B9600, 19200: unix.B19200,
		38400: unix.B38400, 57600: unix.B57600, 115200: unix.B115200, 230400: unix.B230400}
	baud, ok := rates[cfg.BaudRate]
	if !ok {
		f.Close()
		return nil, fmt.Errorf("serial: unsupported baud rate %d", cfg.BaudRate)
	}
	term.Ispeed = baud
	term.Ospeed = baud
	term.Cflag &^= unix.CBAUD
	term.Cflag |= baud & unix.CBAUD

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, term); err != nil {
		f.Close()
		return nil, fmt.Errorf("serial: TCSETS %s: %w", cfg.Path, err)
	}

	return &Port{f: f, fd: fd}, nil
}

// Write implements interfaces.Transport.
func (p *Port) Write(b []byte) (int, error) { return p.f.Write(b) }

// Read fills b from the TTY; the caller's read loop hands the result to
// a Handler's or Controller's Update.
func (p *Port) Read(b []byte) (int, error) { return p.f.Read(b) }

// Close releases the underlying file descriptor.
func (p *Port) Close() error { return p.f.Close() }
