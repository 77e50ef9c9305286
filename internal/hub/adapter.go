package hub

import (
	"github.com/mterrel/utilitaryrs/internal/node"
	"github.com/mterrel/utilitaryrs/internal/wire"
)

// hubAdapter plugs the hub's reply handling into the shared node.Handler
// (§9 "Polymorphism of node handlers"): the hub only ever initiates, so
// it only overrides the four hooks that answer requests it sent itself;
// everything a device-role node would implement stays at
// node.DefaultAdapter's Unsupported/no-op default.
type hubAdapter struct {
	node.DefaultAdapter
	c *Controller
}

func (a *hubAdapter) HandleAck(sender, number uint8, code wire.Result) {
	a.c.onAck(sender, number, code)
}

func (a *hubAdapter) HandleBlobAnswer(sender, number, request uint8, data []byte) wire.Result {
	return a.c.onBlobAnswer(sender, number, request, data)
}

func (a *hubAdapter) HandleDeviceInfoAnswer(sender, number uint8, version wire.DeviceVersion, name string) {
	a.c.onDeviceInfoAnswer(sender, number, version, name)
}

func (a *hubAdapter) HandleDeviceHealth(sender, number uint8, health wire.Health, flags uint16) {
	a.c.onDeviceHealth(sender, number, health, flags)
}
