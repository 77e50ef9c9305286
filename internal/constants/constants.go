// Package constants holds the default timing and sizing values for the
// hub control loop and node handler (§4.3, §7). The hub's clock is a
// raw millisecond counter (internal/interfaces.Clock), so these are
// expressed directly in milliseconds rather than as time.Duration.
package constants

// Hub per-device scheduling delays (§4.3.2), overridable at Controller
// construction for testability (§9 "Timer & scheduler").
const (
	// RunningPollIntervalMs is how often a Running-state device is
	// polled for queued commands/blobs absent other scheduled work, and
	// the file-transfer request/sending delay.
	RunningPollIntervalMs uint64 = 50

	// RequestTimeoutMs is how long the hub waits for an Ack or matching
	// reply before counting a strike against the device's pending
	// transaction.
	RequestTimeoutMs uint64 = 200

	// FileTransferWaitDelayMs is the retry delay after a chunk ack of
	// Wait.
	FileTransferWaitDelayMs uint64 = 200

	// FileTransferFinalizeDelayMs is the settle time the hub waits
	// before issuing FileWriteFinalize after the last chunk Ack.
	FileTransferFinalizeDelayMs uint64 = 500

	// ProbeIntervalMs governs Probing-state re-probes, InfoRequest
	// retries, and health-request cadence. Telemetry slots are scheduled
	// by their own period, not by this value.
	ProbeIntervalMs uint64 = 1000
)

// TimeoutStrikesForLost is the number of consecutive request timeouts
// that move a device from its current state to Lost (§4.3.1).
const TimeoutStrikesForLost uint32 = 20

// DefaultBufferSize is the default capacity, in header+payload bytes, of
// a node or hub parser buffer. It is smaller than the largest legal
// variable-length frame (header + base + 255 length-counted bytes), so a
// frame whose header+payload exceeds 256 bytes does not fit.
const DefaultBufferSize = 256
