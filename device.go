package urs

import "github.com/mterrel/utilitaryrs/internal/node"

// DeviceOptions bundles everything needed to run a device-side node.
type DeviceOptions struct {
	UID        uint8
	Name       string
	Version    DeviceVersion
	BufferSize int
	Transport  Transport
	Adapter    Adapter
	Logger     Logger
}

// Device wraps a device-side node.Handler: a device never ticks its own
// control loop (§4.2 is purely reactive), so unlike Hub it exposes no
// Process/Tick/Run — only Update and the outbound sends an Adapter needs
// to call into from its own hooks (via node.Handler, reached through
// Adapter's *node.Handler parameter).
type Device struct {
	h *node.Handler
}

// NewDevice validates opts and constructs a Device.
func NewDevice(opts DeviceOptions) (*Device, error) {
	if opts.Transport == nil {
		return nil, NewError("NewDevice", ErrCodeInvalidConfig, "transport is required")
	}
	if opts.Adapter == nil {
		return nil, NewError("NewDevice", ErrCodeInvalidConfig, "adapter is required")
	}
	h := node.NewHandler(node.Config{
		UID:        opts.UID,
		Name:       opts.Name,
		Version:    opts.Version,
		BufferSize: opts.BufferSize,
		Transport:  opts.Transport,
		Adapter:    opts.Adapter,
		Logger:     opts.Logger,
	})
	return &Device{h: h}, nil
}

// UID returns this node's address.
func (d *Device) UID() uint8 { return d.h.UID() }

// Update feeds freshly-received bytes through the node handler.
func (d *Device) Update(data []byte) { d.h.Update(data) }

// SetHealth updates the health and flags this node reports in HealthAnw
// replies to the hub's HealthReq polling.
func (d *Device) SetHealth(health Health, flags uint16) { d.h.SetHealth(health, flags) }
