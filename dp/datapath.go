package dp

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// portTable is the RCU-protected view of a Datapath's ports (spec.md §3,
// §5): a lookup map for O(1) port_no resolution and an insertion-ordered
// list for enumeration and flood expansion.
type portTable struct {
	byNo map[uint16]*Port
	list []*Port // excludes OFPPLocal
}

func emptyPortTable() *portTable {
	return &portTable{byNo: map[uint16]*Port{}}
}

func (t *portTable) clone() *portTable {
	n := &portTable{
		byNo: make(map[uint16]*Port, len(t.byNo)+1),
		list: append([]*Port(nil), t.list...),
	}
	for k, v := range t.byNo {
		n.byNo[k] = v
	}
	return n
}

// Datapath is one logical OpenFlow switch instance (spec.md §3). It owns
// its ports, its flow Chain, and its local virtual interface; it is itself
// addressable as a "local" interface (OFPPLocal).
type Datapath struct {
	id   DatapathID
	name string
	desc string

	transport Transport
	chain     Chain
	packets   *PacketStore

	localDev HostIface
	localIO  PortIO

	mcGroup uint16

	cfgMu       sync.Mutex
	flags       uint16
	missSendLen uint16

	ports atomic.Pointer[portTable]
	epoch sync.WaitGroup

	xidCtr uint32

	maint *maintenanceTask

	logger    *log.Logger
	dropLimMu sync.Mutex
	dropLim   map[string]*rate.Limiter
}

// newDatapath constructs a Datapath in its initial state, with only the
// OFPPLocal slot installed. It does not publish into any Registry; the
// caller (Core) does that after every construction step succeeds
// (spec.md §3, "Create a Datapath").
func newDatapath(id DatapathID, name, desc string, chain Chain, transport Transport, localDev HostIface, localIO PortIO, missSendLen uint16, logger *log.Logger) *Datapath {
	dpath := &Datapath{
		id:          id,
		name:        name,
		desc:        desc,
		transport:   transport,
		chain:       chain,
		packets:     NewPacketStore(),
		localDev:    localDev,
		localIO:     localIO,
		mcGroup:     uint16(uint16(id) % MCGroups),
		missSendLen: missSendLen,
		logger:      logger,
		dropLim:     make(map[string]*rate.Limiter),
	}

	local := newPort(dpath, OFPPLocal, localDev, localIO)
	table := emptyPortTable()
	table.byNo[OFPPLocal] = local
	dpath.ports.Store(table)

	if localIO != nil {
		installBridgeHook(dpath, OFPPLocal, localIO)
	}

	dpath.maint = startMaintenance(dpath)

	return dpath
}

// Close stops the datapath's background maintenance loop and discards any
// buffered packets (spec.md §3, "Destroy a Datapath"). It does not touch
// the Registry or any port's host binding; Core.DestroyDatapath sequences
// those steps around this call.
func (d *Datapath) Close() {
	if d.maint != nil {
		d.maint.stop()
	}
	d.packets.DiscardAll()
}

// ID returns the datapath's small integer id.
func (d *Datapath) ID() DatapathID { return d.id }

// Name returns the datapath's device name.
func (d *Datapath) Name() string { return d.name }

// Desc returns the datapath's human description.
func (d *Datapath) Desc() string { return d.desc }

// MCGroup returns the multicast group this datapath's notifications are
// sent to (spec.md §3: id mod 16).
func (d *Datapath) MCGroup() uint16 { return d.mcGroup }

// Chain returns the datapath's flow chain collaborator.
func (d *Datapath) Chain() Chain { return d.chain }

// Flags returns the current OpenFlow switch flags (spec.md §3).
func (d *Datapath) Flags() uint16 {
	d.cfgMu.Lock()
	defer d.cfgMu.Unlock()
	return d.flags
}

// MissSendLen returns the current miss_send_len (spec.md §3).
func (d *Datapath) MissSendLen() uint16 {
	d.cfgMu.Lock()
	defer d.cfgMu.Unlock()
	return d.missSendLen
}

// SetConfig applies a SET_CONFIG request's flags and miss_send_len.
func (d *Datapath) SetConfig(flags, missSendLen uint16) {
	d.cfgMu.Lock()
	defer d.cfgMu.Unlock()
	d.flags = flags
	d.missSendLen = missSendLen
}

// Packets returns the datapath's packet buffer pool.
func (d *Datapath) Packets() *PacketStore { return d.packets }

// Port looks up a port by number, including OFPPLocal. This is the RCU
// read path: a single atomic load, no locking.
func (d *Datapath) Port(portNo uint16) (*Port, bool) {
	p, ok := d.ports.Load().byNo[portNo]
	return p, ok
}

// PortList returns the datapath's ports in insertion order, excluding
// OFPPLocal (spec.md §3: "used for enumeration and flood expansion").
func (d *Datapath) PortList() []*Port {
	return append([]*Port(nil), d.ports.Load().list...)
}

// AllPorts returns every port, including OFPPLocal, ordered by port
// number, for FEATURES_REPLY enumeration.
func (d *Datapath) AllPorts() []*Port {
	t := d.ports.Load()
	out := make([]*Port, 0, len(t.byNo))
	for _, p := range t.byNo {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PortNo() < out[j].PortNo() })
	return out
}

// nextFreePortNo returns the lowest unoccupied slot at or above 1
// (spec.md §3, "Add port").
func (d *Datapath) nextFreePortNo() (uint16, error) {
	t := d.ports.Load()
	for no := uint16(1); int(no) < DPMaxPorts; no++ {
		if _, occupied := t.byNo[no]; !occupied {
			return no, nil
		}
	}
	return 0, ErrExhausted
}

// addPort allocates the lowest free slot, installs a Port wrapping dev/io,
// and publishes the new port table (spec.md §3, "Add port"). It does not
// itself enable promiscuous mode or emit PortStatus — Core.AddPort
// sequences those steps around this call per spec.md §5's ordering
// guarantee.
func (d *Datapath) addPort(dev HostIface, io PortIO) (*Port, error) {
	portNo, err := d.nextFreePortNo()
	if err != nil {
		return nil, err
	}

	port := newPort(d, portNo, dev, io)
	if err := port.UpdateLink(); err != nil {
		return nil, fmt.Errorf("update link state for port %d: %w", portNo, err)
	}

	next := d.ports.Load().clone()
	next.byNo[portNo] = port
	next.list = append(next.list, port)
	d.ports.Store(next)

	installBridgeHook(d, portNo, io)

	return port, nil
}

// removePort removes portNo from the port table and publishes the new
// table, then waits for in-flight data-plane readers that may have
// captured the old table to finish (spec.md §3 "Delete port", §5 "waits
// for in-flight packets ... to drain"). It returns the removed Port so the
// caller can release its host binding.
func (d *Datapath) removePort(portNo uint16) (*Port, error) {
	if portNo == OFPPLocal {
		return nil, ErrInvalidArgument
	}

	cur := d.ports.Load()
	port, ok := cur.byNo[portNo]
	if !ok {
		return nil, ErrNotFound
	}

	next := cur.clone()
	delete(next.byNo, portNo)
	for i, p := range next.list {
		if p.PortNo() == portNo {
			next.list = append(next.list[:i:i], next.list[i+1:]...)
			break
		}
	}
	d.ports.Store(next)

	d.epoch.Wait()

	return port, nil
}

// enterDataPlane marks the start of a data-plane operation that reads the
// port table, for the read-epoch drain removePort waits on.
func (d *Datapath) enterDataPlane() { d.epoch.Add(1) }

// leaveDataPlane marks the end of a data-plane operation started with
// enterDataPlane.
func (d *Datapath) leaveDataPlane() { d.epoch.Done() }

// OnIngress is the entry point from the host stack (spec.md §4.3). The
// caller's frame is treated as possibly shared; OnIngress takes an
// unshared working copy before handing it to the Forwarding Engine.
func (d *Datapath) OnIngress(portNo uint16, frame *Frame) {
	d.enterDataPlane()
	defer d.leaveDataPlane()

	frame = frame.Unshare()
	Forward(d, frame, portNo)
}

