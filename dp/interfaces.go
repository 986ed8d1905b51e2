package dp

// Transport is the subset of the control transport (spec.md §6.2) that the
// Control Encoder needs to deliver an outbound message: unicast to a
// specific client, or best-effort multicast to a datapath's notification
// group. The full request/reply/dump surface lives in package control,
// which consumes a larger interface implemented by the same concrete
// transport (package controlnl).
type Transport interface {
	// Unicast delivers msg exactly once to clientID or returns an error
	// (ENOBUFS in spec.md terms) if it cannot.
	Unicast(clientID uint32, msg []byte) error
	// Multicast makes a best-effort delivery of msg to every subscriber
	// of group.
	Multicast(group uint16, msg []byte) error
}

// HostIface is the host network stack binding for one attached interface
// (spec.md §1, "host network stack binding"): identity and administrative
// controls. Frame RX/TX is split out into PortIO so that a Port can be
// constructed against a HostIface before its receive path is wired up.
type HostIface interface {
	// Name returns the interface's device name.
	Name() string
	// HardwareAddr returns the interface's MAC address.
	HardwareAddr() [6]byte
	// MTU returns the interface's maximum transmission unit in bytes.
	MTU() int
	// SetPromiscuous enables or disables promiscuous reception.
	SetPromiscuous(on bool) error
	// AdminUp reports the interface's administrative state.
	AdminUp() (bool, error)
	// CarrierUp reports the interface's physical link carrier state.
	CarrierUp() (bool, error)
	// Close releases the binding to this interface.
	Close() error
}

// PortIO is the host network stack's frame path for one attached
// interface (spec.md §1): receive callback registration and transmit.
type PortIO interface {
	// OnReceive registers cb to be invoked with each frame received on
	// the interface. Only one callback may be registered at a time.
	OnReceive(cb func(frame *Frame))
	// Transmit sends frame out the interface.
	Transmit(frame *Frame) error
}

// HostBinder opens the host-side binding for a named interface, used by
// AddPort (spec.md §3 "Add port").
type HostBinder interface {
	Open(name string) (HostIface, PortIO, error)
}

// Chain is the flow classifier / flow chain collaborator (spec.md §1):
// match/action tables, timeouts, and the emergency table. The core treats
// it as an opaque boundary; package flowtable provides a concrete,
// in-memory reference implementation.
type Chain interface {
	// RunThroughTables evaluates frame, received on inPort, against the
	// table chain and returns the matched actions, or nil for a
	// table-miss.
	RunThroughTables(frame *Frame, inPort uint16) ([]Action, error)
	// TimeoutSweep removes any flow whose idle or hard timeout has
	// elapsed as of now, invoking onRemoved for each one removed.
	TimeoutSweep(now int64, onRemoved func(RemovedFlow))
	// ControlInput delivers a raw OpenFlow message (FLOW_MOD, and any
	// other message the chain itself understands) from sender.
	ControlInput(sender Sender, msg []byte) error
	// Iterate walks table in ascending internal position starting at
	// position, calling cb for each flow matching match and outPort.
	// It returns the position to resume from and whether the table was
	// exhausted.
	Iterate(table uint8, match Match, outPort uint16, position int, cb func(FlowEntry) bool) (next int, done bool)
	// Stats reports table-level statistics for table.
	Stats(table uint8) TableStats
}

// Action is the action vocabulary the Forwarding Engine interprets
// (spec.md §4.4). Chain implementations produce these from
// RunThroughTables; ActionOutput is the only variant with forwarding
// semantics, everything else is opaque and ignored by the engine.
type Action struct {
	Output *ActionOutput
}

// ActionOutput is the fundamental output action (spec.md §4.4): transmit
// on Port, truncating a controller-bound copy to MaxLen bytes.
type ActionOutput struct {
	Port          uint16
	MaxLen        uint16
	IgnoreNoFwd   bool
}

// Match is the match criteria vocabulary used by stats dumps and the
// reference chain (spec.md §4.7); it mirrors ofp10.Match without importing
// package ofp10 into the core, keeping the boundary with Chain narrow.
type Match struct {
	Wildcards uint32
	InPort    uint16
	DlSrc     [6]byte
	DlDst     [6]byte
	DlVlan    uint16
	DlVlanPcp uint8
	DlType    uint16
	NwTos     uint8
	NwProto   uint8
	NwSrc     uint32
	NwDst     uint32
	TpSrc     uint16
	TpDst     uint16
}

// FlowEntry is a snapshot of one flow table entry, returned by Chain.Iterate
// for the stats dump engine (spec.md §4.7).
type FlowEntry struct {
	TableID     uint8
	Match       Match
	Cookie      uint64
	Priority    uint16
	IdleTimeout uint16
	HardTimeout uint16
	CreatedAt   int64
	LastUsed    int64
	PacketCount uint64
	ByteCount   uint64
	Actions     []Action
}

// RemovedFlow describes a flow evicted by TimeoutSweep (spec.md §4.8).
type RemovedFlow struct {
	FlowEntry
	Reason      uint8
	SendFlowRem bool
	Emergency   bool
	DurationSec uint32
	DurationNs  uint32
}

// TableStats is table-level statistics for one flow table (spec.md §4.7).
type TableStats struct {
	TableID      uint8
	Name         string
	Wildcards    uint32
	MaxEntries   uint32
	ActiveCount  uint32
	LookupCount  uint64
	MatchedCount uint64
}

// Observer receives lifecycle notifications from the core (spec.md §9,
// "redesign function-pointer hooks as an Observer interface"). All methods
// are optional; NopObserver implements every method as a no-op.
type Observer interface {
	DatapathCreated(id DatapathID)
	DatapathDestroyed(id DatapathID)
	PortAdded(id DatapathID, portNo uint16)
	PortDeleted(id DatapathID, portNo uint16)
}

// NopObserver is the default Observer: every callback is a no-op.
type NopObserver struct{}

func (NopObserver) DatapathCreated(DatapathID)          {}
func (NopObserver) DatapathDestroyed(DatapathID)        {}
func (NopObserver) PortAdded(DatapathID, uint16)        {}
func (NopObserver) PortDeleted(DatapathID, uint16)      {}
