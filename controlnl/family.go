// Package controlnl implements the control transport (spec.md §6.2, C11)
// over Linux Generic Netlink, the same protocol family the teacher's
// ovsnl package speaks to the in-kernel Open vSwitch datapath. Here the
// roles are reversed: this core is itself the datapath, and the generic
// netlink family it binds to is provided by a small kernel-resident
// registrar (out of scope, spec.md §1) the same way ovs_datapath is
// provided by the OVS kernel module.
package controlnl

// Family is the generic netlink family name this core binds to.
const Family = "ofswitchd"

// Mcgroup is the single generic netlink multicast group name advertised
// by Family; per-datapath notification groups (spec.md §6.2, 16 of them)
// are multiplexed within it by a leading group attribute rather than as
// 16 separate kernel multicast groups.
const Mcgroup = "ofswitchd"

// Command is the admin command carried in a generic netlink message's
// command field (spec.md §4.6). These are this core's own vocabulary,
// distinct from the OpenFlow message types in package ofp10.
type Command uint8

const (
	CmdUnspec Command = 0
	// CmdAddDP creates a datapath.
	CmdAddDP Command = 1
	// CmdDelDP destroys a datapath.
	CmdDelDP Command = 2
	// CmdQueryDP replies with a datapath's identity.
	CmdQueryDP Command = 3
	// CmdAddPort attaches a host interface to a datapath.
	CmdAddPort Command = 4
	// CmdDelPort detaches a host interface from a datapath.
	CmdDelPort Command = 5
	// CmdOpenflow carries a raw OpenFlow message, both directions.
	CmdOpenflow Command = 6
	// CmdStats carries a statistics request, both directions.
	CmdStats Command = 7
	// CmdNotify carries an asynchronous notification (PACKET_IN,
	// FLOW_REMOVED, PORT_STATUS, ERROR) multicast to subscribers.
	CmdNotify Command = 8
)

// Attr is a generic netlink attribute type used by the admin command set.
type Attr uint16

const (
	AttrUnspec Attr = 0
	// AttrDPID carries a DatapathID (u16).
	AttrDPID Attr = 1
	// AttrDPName carries a datapath device name (string).
	AttrDPName Attr = 2
	// AttrPortName carries a host interface name (string).
	AttrPortName Attr = 3
	// AttrGroup carries the per-datapath notification group (u16),
	// disambiguating CmdNotify multicasts within the single Mcgroup.
	AttrGroup Attr = 4
	// AttrPayload carries an opaque byte blob: an OpenFlow message for
	// CmdOpenflow/CmdStats/CmdNotify, nothing for the other commands.
	AttrPayload Attr = 5
	// AttrMCGroup carries a reply's assigned mc_group (u16), in answer
	// to CmdAddDP/CmdQueryDP.
	AttrMCGroup Attr = 6
)
