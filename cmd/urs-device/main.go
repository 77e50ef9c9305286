// Command urs-device runs a device-side node against a serial line
// (-device is required; the command exits if none is given), answering a hub's
// Probe/DeviceInfoReq/HealthReq/Command traffic with a small built-in
// policy useful for exercising a hub without real firmware attached.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	urs "github.com/mterrel/utilitaryrs"
	"github.com/mterrel/utilitaryrs/internal/logging"
	"github.com/mterrel/utilitaryrs/transport/serial"
)

func main() {
	var (
		dev     = flag.String("device", "", "serial device path (e.g. /dev/ttyUSB0); required")
		baud    = flag.Int("baud", 115200, "serial baud rate")
		uid     = flag.Int("uid", 0x01, "this device's address")
		name    = flag.String("name", "device", "this device's name, reported in DeviceInfoAnw")
		swMajor = flag.Int("sw-major", 1, "reported software major version")
		swMinor = flag.Int("sw-minor", 0, "reported software minor version")
		verbose = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	if *dev == "" {
		logger.Error("-device is required")
		os.Exit(1)
	}

	port, err := serial.Open(serial.Config{Path: *dev, BaudRate: uint32(*baud)})
	if err != nil {
		logger.Error("failed to open serial device", "error", err)
		os.Exit(1)
	}
	defer port.Close()

	app := &echoAdapter{logger: logger}
	d, err := urs.NewDevice(urs.DeviceOptions{
		UID:       uint8(*uid),
		Name:      *name,
		Version:   urs.DeviceVersion{SWMajor: uint8(*swMajor), SWMinor: uint8(*swMinor)},
		Transport: port,
		Adapter:   app,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("failed to construct device", "error", err)
		os.Exit(1)
	}
	d.SetHealth(urs.Healthy, 0)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		os.Exit(0)
	}()

	logger.Info("device running", "uid", *uid, "name", *name, "device", *dev)
	buf := make([]byte, 256)
	for {
		n, err := port.Read(buf)
		if err != nil {
			logger.Error("serial read failed", "error", err)
			return
		}
		if n > 0 {
			d.Update(buf[:n])
		}
	}
}

// echoAdapter answers Command and Reboot requests by logging them and
// returning Ok — a stand-in for real firmware's own application logic.
// It serves no blobs: BlobRequests fall through to DefaultAdapter and
// are acked Unsupported.
type echoAdapter struct {
	urs.DefaultAdapter
	logger *logging.Logger
}

func (a *echoAdapter) HandleCommand(sender, cmd, val uint8) urs.Result {
	a.logger.Info("command received", "sender", sender, "cmd", cmd, "val", val)
	return urs.Ok
}

func (a *echoAdapter) HandleReboot(sender uint8, magic uint64) urs.Result {
	a.logger.Info("reboot requested", "sender", sender, "magic", fmt.Sprintf("0x%x", magic))
	return urs.Ok
}
