// Command urs-monitor runs a hub control loop the same way urs-hub
// does, and attaches a bubbletea dashboard as its Observer so the
// device table updates live in the terminal.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	urs "github.com/mterrel/utilitaryrs"
	"github.com/mterrel/utilitaryrs/internal/cli/ui"
	"github.com/mterrel/utilitaryrs/internal/demodevice"
	"github.com/mterrel/utilitaryrs/internal/logging"
	"github.com/mterrel/utilitaryrs/transport/serial"
)

func main() {
	var (
		dev  = flag.String("device", "", "serial device path (e.g. /dev/ttyUSB0); empty uses a self-test loopback")
		baud = flag.Int("baud", 115200, "serial baud rate")
		uid  = flag.Int("uid", 0xFF, "this hub's address")
		name = flag.String("name", "hub", "this hub's name")
		poll = flag.Duration("poll", 50*time.Millisecond, "control loop tick interval")
	)
	flag.Parse()

	logger := logging.NewLogger(&logging.Config{Level: logging.LevelError, Output: os.Stderr})

	var tr urs.Transport
	var closer func()
	if *dev == "" {
		st := demodevice.New(logger)
		tr = st
	} else {
		port, err := serial.Open(serial.Config{Path: *dev, BaudRate: uint32(*baud)})
		if err != nil {
			logger.Error("failed to open serial device", "error", err)
			os.Exit(1)
		}
		tr = port
		closer = func() { port.Close() }
	}
	if closer != nil {
		defer closer()
	}

	var program *tea.Program
	obs := &refreshObserver{send: func() {
		if program != nil {
			program.Send(ui.RefreshMsg{})
		}
	}}

	h, err := urs.NewHub(urs.HubOptions{
		UID:       uint8(*uid),
		Name:      *name,
		Transport: tr,
		Observer:  obs,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("failed to construct hub", "error", err)
		os.Exit(1)
	}
	if st, ok := tr.(*demodevice.SelfTestTransport); ok {
		st.AttachHub(h)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	go func() {
		_ = h.Run(ctx, *poll)
	}()

	model := ui.New(h, *poll*4)
	program = tea.NewProgram(model)
	if _, err := program.Run(); err != nil {
		logger.Error("dashboard exited", "error", err)
		os.Exit(1)
	}
	cancel()
}

// refreshObserver forwards every hub event to the dashboard as a
// RefreshMsg, so the table updates immediately instead of waiting for
// the next poll tick.
type refreshObserver struct {
	urs.NopObserver
	send func()
}

func (o *refreshObserver) DeviceRegisteredEv(name string, version urs.DeviceVersion) { o.send() }
func (o *refreshObserver) DeviceLostEv(name string)                                  { o.send() }
func (o *refreshObserver) OnAckReceivedEv(name string, mt urs.MessageType, code urs.Result) {
	o.send()
}
func (o *refreshObserver) OnAckNotReceivedEv(name string, mt urs.MessageType) { o.send() }
func (o *refreshObserver) OnCommandResultEv(name string, code urs.Result)    { o.send() }
func (o *refreshObserver) FileWriteResultEv(name string, code urs.Result)    { o.send() }
