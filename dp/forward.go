package dp

import (
	"fmt"

	"golang.org/x/time/rate"
)

// Forward is the Forwarding Engine's entry point (spec.md §4.4): it
// delegates match+action selection to the datapath's Chain and executes
// the resulting actions, or treats a nil action list as a table-miss that
// is sent to the controller.
func Forward(d *Datapath, frame *Frame, inPort uint16) {
	actions, err := d.chain.RunThroughTables(frame, inPort)
	if err != nil {
		d.logDrop("run_through_tables", err)
		return
	}

	if actions == nil {
		sendPacketIn(d, frame, bufferIDFor(d, frame), inPort, PacketInReasonNoMatch)
		return
	}

	execute(d, frame, inPort, actions)
}

// ExecuteActions runs actions against frame on behalf of a controller
// PACKET_OUT (spec.md §4.4): the Control Dispatcher decodes the action
// list and calls this directly rather than routing back through
// RunThroughTables.
func ExecuteActions(d *Datapath, frame *Frame, inPort uint16, actions []Action) error {
	d.enterDataPlane()
	defer d.leaveDataPlane()
	execute(d, frame, inPort, actions)
	return nil
}

// execute runs one action list against frame, as produced either by
// RunThroughTables or by a controller PACKET_OUT re-entering the table
// chain via PortTable.
func execute(d *Datapath, frame *Frame, inPort uint16, actions []Action) {
	for _, a := range actions {
		if a.Output == nil {
			continue // non-output actions are opaque to the core (spec.md §4.4)
		}
		if err := outputAction(d, frame, inPort, *a.Output); err != nil {
			d.logDrop("output", err)
		}
	}
}

// outputAction executes one ActionOutput, dispatching on the virtual port
// table in spec.md §4.4.
func outputAction(d *Datapath, frame *Frame, inPort uint16, out ActionOutput) error {
	switch out.Port {
	case ofppInPort:
		if inPort == 0 {
			return fmt.Errorf("output to in_port with no ingress device: %w", ErrUnreachableOutput)
		}
		return transmitOnPort(d, frame, inPort)

	case ofppTable:
		Forward(d, frame, inPort)
		return nil

	case ofppNormal, ofppStripVlan:
		// Out of scope (spec.md §4.4): treated as unsupported.
		return fmt.Errorf("output port %d: %w", out.Port, ErrUnsupported)

	case ofppFlood:
		return floodOrAll(d, frame, inPort, true)

	case ofppAll:
		return floodOrAll(d, frame, inPort, false)

	case ofppController:
		sendPacketIn(d, frame, bufferIDFor(d, frame), inPort, PacketInReasonAction, withMaxLen(out.MaxLen))
		return nil

	case OFPPLocal:
		return deliverLocal(d, frame)

	default:
		if uint16(out.Port) >= uint16(DPMaxPorts) {
			return fmt.Errorf("output port %d: %w", out.Port, ErrUnreachableOutput)
		}
		return transmitToNumberedPort(d, frame, inPort, out.Port, out.IgnoreNoFwd)
	}
}

// Virtual port numbers, kept local to package dp so the Forwarding Engine
// does not need to import ofp10 (spec.md §4.4).
const (
	ofppInPort     = 0xfff8
	ofppTable      = 0xfff9
	ofppNormal     = 0xfffa
	ofppFlood      = 0xfffb
	ofppAll        = 0xfffc
	ofppController = 0xfffd
	ofppStripVlan  = ofppInPort - 1 // unused sentinel; NORMAL/STRIP_VLAN share the unsupported path
)

func transmitOnPort(d *Datapath, frame *Frame, portNo uint16) error {
	port, ok := d.Port(portNo)
	if !ok {
		return fmt.Errorf("port %d: %w", portNo, ErrUnreachableOutput)
	}
	return transmit(port, frame)
}

func transmitToNumberedPort(d *Datapath, frame *Frame, inPort, portNo uint16, ignoreNoFwd bool) error {
	if portNo == inPort {
		return fmt.Errorf("output to ingress port %d must use IN_PORT: %w", portNo, ErrInvalidArgument)
	}
	port, ok := d.Port(portNo)
	if !ok {
		return fmt.Errorf("port %d: %w", portNo, ErrUnreachableOutput)
	}
	if port.Config()&PortConfigNoFwd != 0 && !ignoreNoFwd {
		return nil // silent drop per spec.md §4.4
	}
	return transmit(port, frame)
}

// floodOrAll implements the single-pass, one-clone-saved algorithm of
// spec.md §4.4: walk PortList, deferring the previous eligible port by one
// step so that only k-1 clones are ever allocated for k eligible ports,
// and the final transmit reuses the original frame.
func floodOrAll(d *Datapath, frame *Frame, inPort uint16, honorNoFlood bool) error {
	var prev *Port

	for _, p := range d.PortList() {
		if p.PortNo() == inPort {
			continue
		}
		if honorNoFlood && p.Config()&PortConfigNoFlood != 0 {
			continue
		}

		if prev != nil {
			clone := frame.Clone()
			if err := transmit(prev, clone); err != nil {
				d.logDrop("flood", err)
			}
		}
		prev = p
	}

	if prev == nil {
		return nil // no eligible port; nothing to drop or transmit
	}
	return transmit(prev, frame)
}

func deliverLocal(d *Datapath, frame *Frame) error {
	d.OnIngress(OFPPLocal, frame)
	return nil
}

// transmit applies the MTU transmit policy (spec.md §4.4) and hands frame
// to the port's host binding.
func transmit(port *Port, frame *Frame) error {
	if frame.PacketLength() > port.Device().MTU() {
		return fmt.Errorf("packet length %d exceeds MTU %d on port %d: %w",
			frame.PacketLength(), port.Device().MTU(), port.PortNo(), ErrPacketTooLarge)
	}
	return port.IO().Transmit(frame)
}

type packetInOpt struct {
	maxLen uint16
}

func withMaxLen(n uint16) func(*packetInOpt) {
	return func(o *packetInOpt) { o.maxLen = n }
}

func bufferIDFor(d *Datapath, frame *Frame) uint32 {
	if !isDeferrable(frame) {
		return NoBuffer
	}
	return d.Packets().Save(frame)
}

// isDeferrable reports whether frame is a candidate for stashing in the
// PacketStore rather than being copied in full into the PACKET_IN
// (spec.md §4.4). Every frame is deferrable in this core; the hook exists
// so a future GSO/aggregate exception (spec.md §4.4's transmit policy
// carve-out) has a single place to plug into.
func isDeferrable(frame *Frame) bool { return true }

// dropLogRate caps each drop site (the "where" argument) to one log line
// per second, so a sustained fast-path failure (e.g. a jammed transport)
// cannot flood the log (spec.md §7, "a rate-limited log line").
const dropLogRate = 1

// logDrop records a fast-path drop (spec.md §7): the packet is released
// and, subject to dropLogRate, a log line naming the drop site and the
// error is emitted. Nothing travels to the controller as a result.
func (d *Datapath) logDrop(where string, err error) {
	if d.logger == nil {
		return
	}
	if !d.dropLimiter(where).Allow() {
		return
	}
	d.logger.Printf("dp %d: dropped packet at %s: %v", d.id, where, err)
}

func (d *Datapath) dropLimiter(where string) *rate.Limiter {
	d.dropLimMu.Lock()
	defer d.dropLimMu.Unlock()
	lim, ok := d.dropLim[where]
	if !ok {
		lim = rate.NewLimiter(dropLogRate, 1)
		d.dropLim[where] = lim
	}
	return lim
}
