package dp

import (
	"sync/atomic"

	"github.com/ofswitchd/go-ofswitch/ofp10"
)

// PacketInReasonNoMatch and PacketInReasonAction mirror ofp10's reason
// codes so that the Forwarding Engine (forward.go) does not need to import
// the wire-format package (spec.md §4.4, §4.5).
const (
	PacketInReasonNoMatch uint8 = 0
	PacketInReasonAction  uint8 = 1
)

// nextXid hands out transaction ids for controller-initiated messages
// (PACKET_IN, FLOW_REMOVED, PORT_STATUS) that do not answer an incoming
// request (spec.md §4.5).
func (d *Datapath) nextXid() uint32 {
	return atomic.AddUint32(&d.xidCtr, 1)
}

// sendPacketIn builds and multicasts a PACKET_IN message (spec.md §4.5,
// §6.1): if the frame was buffered (bufferID != NoBuffer), the body sent
// to the controller is the frame truncated to maxLen bytes, and the
// controller can refer to the whole frame via the buffer id in a later
// PACKET_OUT; otherwise the full frame is sent.
func sendPacketIn(d *Datapath, frame *Frame, bufferID uint32, inPort uint16, reason uint8, opts ...func(*packetInOpt)) {
	o := packetInOpt{maxLen: d.MissSendLen()}
	for _, fn := range opts {
		fn(&o)
	}

	data := frame.Bytes()
	if bufferID != NoBuffer && int(o.maxLen) < len(data) {
		data = data[:o.maxLen]
	}

	msg, err := ofp10.PacketIn{
		BufferID: bufferID,
		TotalLen: uint16(frame.Len()),
		InPort:   inPort,
		Reason:   reason,
		Data:     data,
	}.Marshal(d.nextXid())
	if err != nil {
		d.logDrop("packet_in_marshal", err)
		return
	}

	if err := d.transport.Multicast(d.mcGroup, msg); err != nil {
		d.logDrop("packet_in_send", err)
	}
}

// SendFlowRemoved builds and multicasts a FLOW_REMOVED message for rf, if
// its controlling FLOW_MOD requested notification (spec.md §4.8).
func (d *Datapath) SendFlowRemoved(rf RemovedFlow) {
	if !rf.SendFlowRem {
		return
	}

	m := rf.Match
	msg, err := ofp10.FlowRemoved{
		Match: ofp10.Match{
			Wildcards: m.Wildcards,
			InPort:    m.InPort,
			DlSrc:     m.DlSrc,
			DlDst:     m.DlDst,
			DlVlan:    m.DlVlan,
			DlVlanPcp: m.DlVlanPcp,
			DlType:    m.DlType,
			NwTos:     m.NwTos,
			NwProto:   m.NwProto,
			NwSrc:     m.NwSrc,
			NwDst:     m.NwDst,
			TpSrc:     m.TpSrc,
			TpDst:     m.TpDst,
		},
		Cookie:      rf.Cookie,
		Priority:    rf.Priority,
		Reason:      rf.Reason,
		DurationSec: rf.DurationSec,
		DurationNs:  rf.DurationNs,
		IdleTimeout: rf.IdleTimeout,
		PacketCount: rf.PacketCount,
		ByteCount:   rf.ByteCount,
	}.Marshal(d.nextXid())
	if err != nil {
		d.logDrop("flow_removed_marshal", err)
		return
	}

	if err := d.transport.Multicast(d.mcGroup, msg); err != nil {
		d.logDrop("flow_removed_send", err)
	}
}

// SendPortStatus builds and multicasts a PORT_STATUS message (spec.md
// §4.2, §5).
func (d *Datapath) SendPortStatus(reason uint8, desc PhyPortDesc) {
	msg, err := ofp10.PortStatus{
		Reason: reason,
		Desc: ofp10.PhyPort{
			PortNo: desc.PortNo,
			HWAddr: desc.HWAddr,
			Name:   ofp10.NewName(desc.Name),
			Config: desc.Config,
			State:  desc.State,
			Curr:   desc.Features.Curr,
			Advertised: desc.Features.Advertised,
			Supported:  desc.Features.Supported,
			Peer:       desc.Features.Peer,
		},
	}.Marshal(d.nextXid())
	if err != nil {
		d.logDrop("port_status_marshal", err)
		return
	}

	if err := d.transport.Multicast(d.mcGroup, msg); err != nil {
		d.logDrop("port_status_send", err)
	}
}

// SendErrorReply replies to sender with an ERROR message, used by the
// Control Dispatcher for every rejected request (spec.md §4.6, §7).
func (d *Datapath) SendErrorReply(sender Sender, errType, code uint16, failed []byte) {
	msg, err := ofp10.ErrorMsg{
		Type: ofp10.ErrType(errType),
		Code: code,
		Data: failed,
	}.Marshal(sender.Xid)
	if err != nil {
		d.logDrop("error_marshal", err)
		return
	}
	if err := d.transport.Unicast(sender.ClientID, msg); err != nil {
		d.logDrop("error_send", err)
	}
}
