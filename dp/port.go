package dp

import (
	"fmt"
	"sync"
)

// OFPPLocal is the virtual port number of a Datapath's own local
// interface (spec.md §3).
const OFPPLocal uint16 = 0xfffe

// Port config bits (spec.md §4.2). These mirror the ofp10 package's
// constants of the same name so that package dp does not need to import
// the wire-format package for its own invariant checks.
const (
	PortConfigDown    uint32 = 1 << 0
	PortConfigNoFlood uint32 = 1 << 4
	PortConfigNoFwd   uint32 = 1 << 5
)

// Port state bits (spec.md §4.2).
const (
	PortStateLinkDown uint32 = 1 << 0
)

// PortFeatures is the four feature bitmaps a Port snapshot reports
// (spec.md §4.2): current, advertised, supported, and peer-advertised
// capabilities.
type PortFeatures struct {
	Curr       uint32
	Advertised uint32
	Supported  uint32
	Peer       uint32
}

// PhyPortDesc is the snapshot FillDescription produces (spec.md §4.2),
// independent of the wire encoding in package ofp10.
type PhyPortDesc struct {
	PortNo   uint16
	Name     string
	HWAddr   [6]byte
	Config   uint32
	State    uint32
	Features PortFeatures
}

// Port is one attachment of a host interface to a Datapath (spec.md §3).
type Port struct {
	portNo uint16
	dp     *Datapath // non-owning back-reference; valid for the Port's lifetime (spec.md §9)

	dev HostIface
	io  PortIO

	mu     sync.Mutex // guards config/state only (spec.md §3)
	config uint32
	state  uint32
}

func newPort(dpath *Datapath, portNo uint16, dev HostIface, io PortIO) *Port {
	return &Port{
		portNo: portNo,
		dp:     dpath,
		dev:    dev,
		io:     io,
	}
}

// PortNo returns the port's number within its datapath.
func (p *Port) PortNo() uint16 { return p.portNo }

// Datapath returns the owning datapath.
func (p *Port) Datapath() *Datapath { return p.dp }

// Device returns the underlying host interface binding.
func (p *Port) Device() HostIface { return p.dev }

// IO returns the underlying frame path.
func (p *Port) IO() PortIO { return p.io }

// Config returns the current OpenFlow port config bits.
func (p *Port) Config() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.config
}

// State returns the current OpenFlow port state bits.
func (p *Port) State() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SetConfig applies bits under mask to the port's config word (spec.md
// §4.2): config := (config &^ mask) | (bits & mask). Bits outside the
// known OpenFlow config bits are applied as-is.
func (p *Port) SetConfig(mask, bits uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config = (p.config &^ mask) | (bits & mask)
}

// UpdateLink refreshes PortStateLinkDown from the device's carrier state
// and PortConfigDown from its administrative state (spec.md §4.2).
func (p *Port) UpdateLink() error {
	adminUp, err := p.dev.AdminUp()
	if err != nil {
		return err
	}
	carrierUp, err := p.dev.CarrierUp()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if adminUp {
		p.config &^= PortConfigDown
	} else {
		p.config |= PortConfigDown
	}
	if carrierUp {
		p.state &^= PortStateLinkDown
	} else {
		p.state |= PortStateLinkDown
	}
	return nil
}

// FillDescription snapshots the port's identity and state (spec.md §4.2).
// This core does not probe ethtool-style feature sets (out of scope,
// spec.md §1), so the four feature bitmaps are always left zero.
func (p *Port) FillDescription() PhyPortDesc {
	p.mu.Lock()
	config, state := p.config, p.state
	p.mu.Unlock()

	return PhyPortDesc{
		PortNo: p.portNo,
		Name:   p.dev.Name(),
		HWAddr: p.dev.HardwareAddr(),
		Config: config,
		State:  state,
	}
}

// ValidatePortMod checks a port-mod request's caller-supplied hw_addr
// against the port's current device hw_addr (spec.md §4.2). A mismatch is
// a stale modify: the request must be rejected with no state change.
func (p *Port) ValidatePortMod(hwAddr [6]byte) error {
	if p.dev.HardwareAddr() != hwAddr {
		return fmt.Errorf("port %d: %w", p.portNo, ErrStaleModify)
	}
	return nil
}
