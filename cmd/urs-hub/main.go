// Command urs-hub runs a hub control loop against a serial line or an
// in-memory loopback peer, logging every device event to stderr.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	urs "github.com/mterrel/utilitaryrs"
	"github.com/mterrel/utilitaryrs/internal/demodevice"
	"github.com/mterrel/utilitaryrs/internal/logging"
	"github.com/mterrel/utilitaryrs/transport/serial"
)

func main() {
	var (
		dev     = flag.String("device", "", "serial device path (e.g. /dev/ttyUSB0); empty uses a self-test loopback")
		baud    = flag.Int("baud", 115200, "serial baud rate")
		uid     = flag.Int("uid", 0xFF, "this hub's address")
		name    = flag.String("name", "hub", "this hub's name")
		poll    = flag.Duration("poll", 50*time.Millisecond, "control loop tick interval")
		verbose = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	tr, closer, err := openTransport(*dev, uint32(*baud), logger)
	if err != nil {
		logger.Error("failed to open transport", "error", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}

	h, err := urs.NewHub(urs.HubOptions{
		UID:       uint8(*uid),
		Name:      *name,
		Transport: tr,
		Observer:  &logObserver{logger: logger},
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
		logger.Info("received shutdown signal")
		cancel()
	}()

	logger.Info("hub running", "uid", *uid, "name", *name, "device", *dev)
	if err := h.Run(ctx, *poll); err != nil && err != context.Canceled {
		logger.Error("hub loop exited", "error", err)
	}
}

// openTransport opens a real serial port, or (when dev is empty) a
// simulated local device, so urs-hub is runnable for demonstration
// without any hardware attached.
func openTransport(dev string, baud uint32, logger *logging.Logger) (urs.Transport, io.Closer, error) {
	if dev == "" {
		logger.Warn("no -device given, running against a local self-test device")
		return demodevice.New(logger), nil, nil
	}
	port, err := serial.Open(serial.Config{Path: dev, BaudRate: baud})
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", dev, err)
	}
	return port, port, nil
}

type logObserver struct {
	urs.NopObserver
	logger *logging.Logger
}

func (o *logObserver) DeviceRegisteredEv(name string, version urs.DeviceVersion) {
	o.logger.Info("device registered", "name", name, "sw", fmt.Sprintf("%d.%d", version.SWMajor, version.SWMinor))
}

func (o *logObserver) DeviceLostEv(name string) {
	o.logger.Warn("device lost", "name", name)
}

func (o *logObserver) OnAckNotReceivedEv(name string, mt urs.MessageType) {
	o.logger.Debug("ack not received", "name", name, "type", mt.String())
}

func (o *logObserver) FileWriteResultEv(name string, code urs.Result) {
	o.logger.Info("file write finished", "name", name, "result", code.String())
}
