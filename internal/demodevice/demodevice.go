// Package demodevice provides a self-contained simulated device for the
// urs-hub and urs-monitor command shells to talk to when no real serial
// line is given: a DefaultAdapter-backed urs.Device wired directly to
// whatever hub is constructed next, so the binaries are runnable for a
// demo without any hardware attached.
package demodevice

import (
	"sync"

	urs "github.com/mterrel/utilitaryrs"
)

// transportFunc adapts a plain write function to urs.Transport.
type transportFunc func([]byte) (int, error)

func (f transportFunc) Write(p []byte) (int, error) { return f(p) }

// SelfTestTransport stands in for a real serial line: writes from the
// hub are fed straight into an in-process simulated device, and the
// device's own replies are fed back into the hub once AttachHub wires
// the hub's Update in.
type SelfTestTransport struct {
	mu      sync.Mutex
	dev     *urs.Device
	onReply func([]byte)
}

// New builds a SelfTestTransport running a simulated device at UID 0x01
// named "sim", answering Probe/DeviceInfoReq/HealthReq automatically via
// urs.DefaultAdapter and Unsupported everything else.
func New(logger urs.Logger) *SelfTestTransport {
	st := &SelfTestTransport{}
	dev, err := urs.NewDevice(urs.DeviceOptions{
		UID:       0x01,
		Name:      "sim",
		Version:   urs.DeviceVersion{SWMajor: 0, SWMinor: 1},
		Transport: transportFunc(st.deliverToHub),
		Adapter:   urs.DefaultAdapter{},
		Logger:    logger,
	})
	if err != nil {
		// UID/Transport/Adapter are all supplied above; only a
		// programming error in this constructor could reach here.
		panic(err)
	}
	st.dev = dev
	return st
}

func (s *SelfTestTransport) Write(p []byte) (int, error) {
	s.dev.Update(p)
	return len(p), nil
}

// AttachHub wires the simulated device's replies back into h. Called
// once the hub exists, since the transport itself must exist first.
func (s *SelfTestTransport) AttachHub(h *urs.Hub) {
	s.mu.Lock()
	s.onReply = h.Update
	s.mu.Unlock()
}

func (s *SelfTestTransport) deliverToHub(p []byte) (int, error) {
	s.mu.Lock()
	cb := s.onReply
	s.mu.Unlock()
	if cb != nil {
		cb(append([]byte(nil), p...))
	}
	return len(p), nil
}
