package dp

import (
	"fmt"
	"sync"

	"github.com/ofswitchd/go-ofswitch/ofp10"
)

// Core is the process-wide handle spec.md §9 asks for in place of
// package-level singletons (spec.md component C14): it owns the Registry,
// the shared description strings, the Observer, the control transport,
// and the host binder used to open newly attached interfaces.
type Core struct {
	registry  *Registry
	cfg       Config
	observer  Observer
	transport Transport
	binder    HostBinder
	newChain  func() Chain

	adminMu sync.Mutex // global admin lock (spec.md §5); nests inside any host interface-table lock
}

// NewCore constructs a Core. newChain is invoked once per CreateDatapath
// call to build that datapath's flow chain collaborator; package flowtable
// provides a concrete implementation.
func NewCore(binder HostBinder, transport Transport, observer Observer, cfg Config, newChain func() Chain) *Core {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Core{
		registry:  NewRegistry(),
		cfg:       cfg,
		observer:  observer,
		transport: transport,
		binder:    binder,
		newChain:  newChain,
	}
}

// Registry exposes the Core's datapath index, e.g. for the Control
// Dispatcher's lookup step (spec.md §4.6).
func (c *Core) Registry() *Registry { return c.registry }

// Transport exposes the Core's shared control transport.
func (c *Core) Transport() Transport { return c.transport }

// Descriptions returns the four process-wide description strings in
// ofp_desc_stats order: manufacturer, hardware, software, serial number
// (spec.md §4.9).
func (c *Core) Descriptions() [4]string {
	return [4]string{c.cfg.MfrDesc, c.cfg.HwDesc, c.cfg.SwDesc, c.cfg.Serial}
}

// CreateDatapath implements spec.md §3 "Create a Datapath": reserve an
// id, bind the local interface, construct the Chain, install OFPP_LOCAL,
// start maintenance, publish. Failure at any step unwinds earlier steps
// in reverse.
func (c *Core) CreateDatapath(preferredID *DatapathID, name string) (*Datapath, error) {
	c.adminMu.Lock()
	defer c.adminMu.Unlock()

	id, err := c.registry.Allocate(preferredID, name)
	if err != nil {
		return nil, fmt.Errorf("allocate datapath: %w", err)
	}

	localDev, localIO, err := c.binder.Open(name)
	if err != nil {
		c.registry.Release(id, name)
		return nil, fmt.Errorf("open local interface %q: %w", name, err)
	}

	chain := c.newChain()

	desc := fmt.Sprintf("%s (dp %d)", name, id)
	dpath := newDatapath(id, name, desc, chain, c.transport, localDev, localIO, c.cfg.MissSendLen, c.cfg.Logger)

	c.registry.Publish(dpath)
	c.observer.DatapathCreated(id)

	return dpath, nil
}

// DestroyDatapath implements spec.md §3 "Destroy a Datapath": signal and
// join the maintenance task, delete every port, discard buffered packets,
// release the local interface, remove from the Registry.
func (c *Core) DestroyDatapath(id DatapathID) error {
	c.adminMu.Lock()
	defer c.adminMu.Unlock()

	dpath, err := c.registry.GetByID(id)
	if err != nil {
		return err
	}

	for _, p := range dpath.PortList() {
		if _, err := dpath.removePort(p.PortNo()); err != nil {
			c.cfg.logf("destroy datapath %d: remove port %d: %v", id, p.PortNo(), err)
			continue
		}
		c.releasePort(p)
		c.observer.PortDeleted(id, p.PortNo())
	}

	dpath.Close()

	if err := dpath.localDev.Close(); err != nil {
		c.cfg.logf("destroy datapath %d: close local interface: %v", id, err)
	}

	if err := c.registry.Remove(id); err != nil {
		return err
	}
	c.observer.DatapathDestroyed(id)
	return nil
}

// AddPort implements spec.md §3 "Add port": allocate the lowest free
// slot, enable promiscuous mode, register the bridge hook, emit
// PortStatus(ADD) — strictly before any packet from the new port can
// reach a controller (spec.md §5 ordering guarantee), which is satisfied
// here because the port table publish inside addPort happens before
// SendPortStatus is called below.
func (c *Core) AddPort(dpath *Datapath, ifaceName string) (*Port, error) {
	c.adminMu.Lock()
	defer c.adminMu.Unlock()

	dev, io, err := c.binder.Open(ifaceName)
	if err != nil {
		return nil, fmt.Errorf("open interface %q: %w", ifaceName, err)
	}

	port, err := dpath.addPort(dev, io)
	if err != nil {
		dev.Close()
		return nil, err
	}

	if err := dev.SetPromiscuous(true); err != nil {
		c.cfg.logf("add port %s: enable promiscuous mode: %v", ifaceName, err)
	}

	dpath.SendPortStatus(ofp10.PortReasonAdd, port.FillDescription())
	c.observer.PortAdded(dpath.ID(), port.PortNo())

	return port, nil
}

// DelPort implements spec.md §3 "Delete port": remove from the port
// table, disable promiscuous mode, drain in-flight data-plane readers,
// emit PortStatus(DELETE) strictly after the last PACKET_IN that could
// carry this port as in_port (guaranteed by removePort's epoch drain
// completing before this call returns), release the host interface.
func (c *Core) DelPort(dpath *Datapath, portNo uint16) error {
	c.adminMu.Lock()
	defer c.adminMu.Unlock()

	port, err := dpath.removePort(portNo)
	if err != nil {
		return err
	}

	desc := port.FillDescription()
	c.releasePort(port)

	dpath.SendPortStatus(ofp10.PortReasonDelete, desc)
	c.observer.PortDeleted(dpath.ID(), portNo)

	return nil
}

func (c *Core) releasePort(port *Port) {
	if err := port.Device().SetPromiscuous(false); err != nil {
		c.cfg.logf("release port %d: disable promiscuous mode: %v", port.PortNo(), err)
	}
	if err := port.Device().Close(); err != nil {
		c.cfg.logf("release port %d: close interface: %v", port.PortNo(), err)
	}
}

// NegotiateHello implements the version check in spec.md §4.3: requesters
// advertising a version below ofp10.Version are rejected with
// HELLO_FAILED/INCOMPATIBLE and the call fails, leaving transport teardown
// to the caller.
func (c *Core) NegotiateHello(sender Sender, peerVersion uint8) error {
	if peerVersion >= ofp10.Version {
		return nil
	}

	msg, err := ofp10.ErrorMsg{
		Type: ofp10.ErrTypeHelloFailed,
		Code: ofp10.HelloFailedIncompatible,
	}.Marshal(sender.Xid)
	if err == nil {
		if sendErr := c.transport.Unicast(sender.ClientID, msg); sendErr != nil {
			c.cfg.logf("hello reject: send error reply: %v", sendErr)
		}
	}
	return fmt.Errorf("peer version %d below %d: %w", peerVersion, ofp10.Version, ErrVersionMismatch)
}
