//go:build linux

// Package control implements the Control Dispatcher and Stats Dump
// Engine (spec.md §4.6, §4.7): it decodes the admin command set carried
// by package controlnl and routes each command to package dp's Core,
// Datapath, and Chain collaborators.
package control

import (
	"fmt"

	"github.com/ofswitchd/go-ofswitch/controlnl"
	"github.com/ofswitchd/go-ofswitch/dp"
)

// DPReplier answers ADD_DP/QUERY_DP with a datapath's identity, using the
// admin command set's own attribute vocabulary rather than an opaque
// OpenFlow payload (implemented by *controlnl.Conn).
type DPReplier interface {
	ReplyDP(clientID uint32, id uint16, name string, mcGroup uint16) error
}

// Dispatcher routes decoded controlnl.Request values to the core (spec.md
// §4.6). It is the single entry point package cmd/ofswitchd wires a
// Listen loop to.
type Dispatcher struct {
	core    *dp.Core
	replier DPReplier
	stats   *statsDumper
}

// NewDispatcher constructs a Dispatcher. replier answers the structured
// ADD_DP/QUERY_DP replies; core.Transport() is used for everything that
// carries an OpenFlow byte payload.
func NewDispatcher(core *dp.Core, replier DPReplier) *Dispatcher {
	return &Dispatcher{core: core, replier: replier, stats: newStatsDumper()}
}

// Handle implements the Control Dispatcher's command routing table
// (spec.md §4.6). It is passed directly to controlnl.Conn.Listen.
func (d *Dispatcher) Handle(req controlnl.Request) error {
	sender := dp.Sender{Xid: req.Xid, ClientID: req.ClientID}

	switch req.Cmd {
	case controlnl.CmdAddDP:
		return d.addDP(sender, req)
	case controlnl.CmdDelDP:
		return d.delDP(req)
	case controlnl.CmdQueryDP:
		return d.queryDP(sender, req)
	case controlnl.CmdAddPort:
		return d.addPort(req)
	case controlnl.CmdDelPort:
		return d.delPort(req)
	case controlnl.CmdOpenflow, controlnl.CmdStats:
		return d.openflow(sender, req)
	default:
		return fmt.Errorf("control: unrecognized command %d", req.Cmd)
	}
}

// lookup resolves req's datapath per spec.md §4.6's lookup contract: id is
// authoritative when present and must agree with name if both are given;
// otherwise name alone resolves it.
func lookup(core *dp.Core, req controlnl.Request) (*dp.Datapath, error) {
	var idp *dp.DatapathID
	if req.HasDPID {
		id := dp.DatapathID(req.DPID)
		idp = &id
	}
	return core.Registry().Lookup(idp, req.DPName)
}

func (d *Dispatcher) addDP(sender dp.Sender, req controlnl.Request) error {
	var idp *dp.DatapathID
	if req.HasDPID {
		id := dp.DatapathID(req.DPID)
		idp = &id
	}

	dpath, err := d.core.CreateDatapath(idp, req.DPName)
	if err != nil {
		return fmt.Errorf("control: add_dp %q: %w", req.DPName, err)
	}
	return d.replier.ReplyDP(sender.ClientID, uint16(dpath.ID()), dpath.Name(), dpath.MCGroup())
}

func (d *Dispatcher) delDP(req controlnl.Request) error {
	dpath, err := lookup(d.core, req)
	if err != nil {
		return fmt.Errorf("control: del_dp: %w", err)
	}
	if err := d.core.DestroyDatapath(dpath.ID()); err != nil {
		return fmt.Errorf("control: del_dp %d: %w", dpath.ID(), err)
	}
	return nil
}

func (d *Dispatcher) queryDP(sender dp.Sender, req controlnl.Request) error {
	dpath, err := lookup(d.core, req)
	if err != nil {
		return fmt.Errorf("control: query_dp: %w", err)
	}
	return d.replier.ReplyDP(sender.ClientID, uint16(dpath.ID()), dpath.Name(), dpath.MCGroup())
}

func (d *Dispatcher) addPort(req controlnl.Request) error {
	dpath, err := lookup(d.core, req)
	if err != nil {
		return fmt.Errorf("control: add_port: %w", err)
	}
	if _, err := d.core.AddPort(dpath, req.PortName); err != nil {
		return fmt.Errorf("control: add_port %s: %w", req.PortName, err)
	}
	return nil
}

func (d *Dispatcher) delPort(req controlnl.Request) error {
	dpath, err := lookup(d.core, req)
	if err != nil {
		return fmt.Errorf("control: del_port: %w", err)
	}

	var target *dp.Port
	for _, p := range dpath.PortList() {
		if p.Device().Name() == req.PortName {
			target = p
			break
		}
	}
	if target == nil {
		return fmt.Errorf("control: del_port %s: %w", req.PortName, dp.ErrNotFound)
	}

	if err := d.core.DelPort(dpath, target.PortNo()); err != nil {
		return fmt.Errorf("control: del_port %s: %w", req.PortName, err)
	}
	return nil
}
