package crawler

// Connection is one normalized adjacency edge as recorded on the device
// that discovered it, per §3's Connection tuple.
type Connection struct {
	LocalPort    string
	RemotePort   string
	Protocol     string
	PeerIP       string
	PeerPlatform string
}

// Device is everything fingerprinted and collected about one discovered
// box, keyed in the crawler's network_map by its raw fingerprinted
// hostname. Final cross-device canonicalization is pkg/topology's job.
type Device struct {
	Hostname    string
	IP          string
	Platform    string
	Serial      string
	Connections map[string][]Connection
}

// NeighborClaim is the intermediate per-link record produced by one side
// of a discovered adjacency, per §3.
type NeighborClaim struct {
	DeviceCanonical string
	LocalIf         string
	PeerIdentifier  string
	RemoteIf        string
	Protocol        string
}

// Credentials is a username/password pair, primary or alternate.
type Credentials struct {
	Username string
	Password string
}

// PendingTarget is one work-queue entry awaiting a fingerprint+collect
// pass.
type PendingTarget struct {
	Address      string
	Credentials  Credentials
	PlatformHint string
}

// Status values for ProgressEvent, per §4.6.
const (
	StatusProcessing = "processing"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusComplete   = "complete"
)

// ProgressEvent is emitted after every state change.
type ProgressEvent struct {
	RunID             string
	IP                string
	Status            string
	DevicesDiscovered int
	DevicesFailed     int
	DevicesQueued     int
	DevicesVisited    int
	UnreachableHosts  int
}

// Stats is the stable counters snapshot, reconstructible at any time from
// crawler state.
type Stats struct {
	Discovered  int
	Failed      int
	Queued      int
	Visited     int
	Unreachable int
}

// CommandCapture is the raw text returned by one command, plus the
// template the parser matched it against and that template's score.
type CommandCapture struct {
	Output   string
	Template string
	Score    int
}

// DebugRecord holds the captures for one device during fingerprinting and
// neighbor collection, keyed by the exact command text. Only populated
// when the crawler's CaptureDebug is set.
type DebugRecord struct {
	Commands map[string]CommandCapture
}
