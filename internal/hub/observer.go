package hub

import "github.com/mterrel/utilitaryrs/internal/wire"

// Observer receives the hub's events synchronously from within Process
// or Update (§4.4). Implementations must not call back into the
// Controller reentrantly.
type Observer interface {
	OnAckNotReceivedEv(name string, msgType wire.MessageType)
	OnAckReceivedEv(name string, msgType wire.MessageType, code wire.Result)
	OnCommandResultEv(name string, code wire.Result)
	OnRequestErrorEv(name string, code wire.Result)
	BlobAnswerEvReceived(name string, request uint8, data []byte) wire.Result
	DeviceRegisteredEv(name string, version wire.DeviceVersion)
	DeviceLostEv(name string)
	FileWriteResultEv(name string, code wire.Result)
	DeviceHealthReceivedEv(name string, health wire.Health, flags uint16)
}

// NopObserver implements Observer with no-op defaults. Embed it in a
// concrete observer and override only the events of interest.
type NopObserver struct{}

func (NopObserver) OnAckNotReceivedEv(string, wire.MessageType)         {}
func (NopObserver) OnAckReceivedEv(string, wire.MessageType, wire.Result) {}
func (NopObserver) OnCommandResultEv(string, wire.Result)               {}
func (NopObserver) OnRequestErrorEv(string, wire.Result)                {}
func (NopObserver) BlobAnswerEvReceived(string, uint8, []byte) wire.Result {
	return wire.Ok
}
func (NopObserver) DeviceRegisteredEv(string, wire.DeviceVersion)        {}
func (NopObserver) DeviceLostEv(string)                                 {}
func (NopObserver) FileWriteResultEv(string, wire.Result)                {}
func (NopObserver) DeviceHealthReceivedEv(string, wire.Health, uint16)  {}
