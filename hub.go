package urs

import (
	"context"
	"time"

	"github.com/mterrel/utilitaryrs/internal/hub"
	"github.com/mterrel/utilitaryrs/internal/interfaces"
	"github.com/mterrel/utilitaryrs/internal/node"
	"github.com/mterrel/utilitaryrs/internal/timesource"
	"github.com/mterrel/utilitaryrs/internal/wire"
)

// Re-exports of the core's externally-facing types (§6: "Transport,
// Clock, CRC free functions, Observer... re-exported from urs"), so a
// caller only ever imports the root package for everyday use and reaches
// into internal/* only from inside this module.
type (
	Observer       = hub.Observer
	NopObserver    = hub.NopObserver
	State          = hub.State
	DeviceSnapshot = hub.DeviceSnapshot
	Adapter        = node.Adapter
	DefaultAdapter = node.DefaultAdapter
	MessageType    = wire.MessageType
	Result         = wire.Result
	Health         = wire.Health
	DeviceVersion  = wire.DeviceVersion
	Transport      = interfaces.Transport
	Clock          = interfaces.Clock
	Logger         = interfaces.Logger
)

const (
	Probing      = hub.Probing
	InfoRequest  = hub.InfoRequest
	Running      = hub.Running
	FileTransfer = hub.FileTransfer
	Suspended    = hub.Suspended
	Lost         = hub.Lost
)

// Result codes (§7), re-exported so callers implementing an Adapter or
// Observer don't need to import internal/wire themselves.
const (
	Ok             = wire.Ok
	ResultError    = wire.Error
	ResultWait     = wire.Wait
	ResultBusy     = wire.Busy
	InvalidArg     = wire.InvalidArg
	ResultTimeout  = wire.Timeout
	Unsupported    = wire.Unsupported
	ChecksumFailed = wire.ChecksumFailed
)

// Health codes (§4.2 HealthAnw), re-exported for the same reason.
const (
	WarmUp      = wire.WarmUp
	Healthy     = wire.Healthy
	Warning     = wire.Warning
	HealthError = wire.HealthError
	Critical    = wire.Critical
)

// CRC8 and CRC64 expose the core's checksum primitives (§4 "CRC free
// functions... re-exported from urs") for callers building their own
// transport or tooling around frames.
func CRC8(data []byte) uint8   { return wire.CRC8(data) }
func CRC64(data []byte) uint64 { return wire.CRC64(data) }

// HubOptions bundles everything needed to run a hub control loop.
type HubOptions struct {
	UID       uint8
	Name      string
	Transport Transport
	Observer  Observer
	Logger    Logger
	Clock     Clock

	RunningPollIntervalMs       uint64
	RequestTimeoutMs            uint64
	FileTransferWaitDelayMs     uint64
	FileTransferFinalizeDelayMs uint64
	ProbeIntervalMs             uint64
	TimeoutStrikesForLost       uint32
}

// Hub wraps the core control loop with a Clock so callers can either
// drive ticks explicitly (Process) or let Run own a ticking goroutine.
type Hub struct {
	ctrl  *hub.Controller
	clock Clock
}

// NewHub validates opts and constructs a Hub. A nil Transport is a
// configuration error, not a wire-level Result.
func NewHub(opts HubOptions) (*Hub, error) {
	if opts.Transport == nil {
		return nil, NewError("NewHub", ErrCodeInvalidConfig, "transport is required")
	}
	clock := opts.Clock
	if clock == nil {
		clock = timesource.NewSystem()
	}
	ctrl := hub.NewController(hub.Config{
		UID:                         opts.UID,
		Name:                        opts.Name,
		Transport:                   opts.Transport,
		Observer:                    opts.Observer,
		Logger:                      opts.Logger,
		RunningPollIntervalMs:       opts.RunningPollIntervalMs,
		RequestTimeoutMs:            opts.RequestTimeoutMs,
		FileTransferWaitDelayMs:     opts.FileTransferWaitDelayMs,
		FileTransferFinalizeDelayMs: opts.FileTransferFinalizeDelayMs,
		ProbeIntervalMs:             opts.ProbeIntervalMs,
		TimeoutStrikesForLost:       opts.TimeoutStrikesForLost,
	})
	return &Hub{ctrl: ctrl, clock: clock}, nil
}

// UID returns the hub's own address.
func (h *Hub) UID() uint8 { return h.ctrl.UID() }

// Update feeds freshly-received bytes to the control loop.
func (h *Hub) Update(data []byte) { h.ctrl.Update(data) }

// Process runs one tick of the control loop at the given time.
func (h *Hub) Process(now uint64) { h.ctrl.Process(now) }

// Tick runs one control-loop tick using the Hub's own Clock.
func (h *Hub) Tick() { h.ctrl.Process(h.clock.Milliseconds()) }

// Run drives Tick on the given interval until ctx is cancelled. This is
// a convenience for cmd/urs-hub; nothing prevents a caller from driving
// Process/Tick from its own loop instead.
func (h *Hub) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.Tick()
		}
	}
}

func (h *Hub) DeviceState(name string) (State, bool)         { return h.ctrl.DeviceState(name) }
func (h *Hub) QueueLength(name string) (int, int, bool)      { return h.ctrl.QueueLength(name) }
func (h *Hub) SendCmdToDevice(name string, cmd, val uint8) bool {
	return h.ctrl.SendCmdToDevice(name, cmd, val)
}
func (h *Hub) SendBlobRequestToDevice(name string, request, answerSize uint8) bool {
	return h.ctrl.SendBlobRequestToDevice(name, request, answerSize)
}
func (h *Hub) RegisterTelemetry(name string, request, answerSize uint8, periodMs uint64) bool {
	return h.ctrl.RegisterTelemetry(name, request, answerSize, periodMs)
}
func (h *Hub) SendFile(name string, fileNumber uint8, data []byte, chunkSize int) bool {
	return h.ctrl.SendFile(name, fileNumber, data, chunkSize)
}
func (h *Hub) Suspend(name string) bool { return h.ctrl.Suspend(name) }
func (h *Hub) Resume(name string) bool  { return h.ctrl.Resume(name) }

// Snapshot returns a race-free copy of every known device's state, safe
// to call from a goroutine other than the one driving Process/Update
// (§5 "the hub's explicit, mutex-guarded snapshot accessor").
func (h *Hub) Snapshot() []DeviceSnapshot { return h.ctrl.Snapshot() }
