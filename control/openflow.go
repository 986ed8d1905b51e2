//go:build linux

package control

import (
	"fmt"

	"github.com/ofswitchd/go-ofswitch/controlnl"
	"github.com/ofswitchd/go-ofswitch/dp"
	"github.com/ofswitchd/go-ofswitch/ofp10"
)

// openflow decodes req's OpenFlow payload and routes it per spec.md §4.6
// ("OPENFLOW{dp, payload} -> deliver raw OpenFlow bytes to
// Chain.control_input") extended with the control-plane message types
// the Chain boundary does not itself understand (HELLO, ECHO, FEATURES,
// config, BARRIER, STATS_REQUEST, PACKET_OUT), which the Dispatcher
// answers directly using the Datapath/Core surface. Only FLOW_MOD is
// passed to Chain.ControlInput; any other message type returns an error.
func (d *Dispatcher) openflow(sender dp.Sender, req controlnl.Request) error {
	hdr, err := ofp10.UnmarshalHeader(req.Payload)
	if err != nil {
		return fmt.Errorf("control: openflow: decode header: %w", err)
	}
	body := req.Payload[ofp10.HeaderLen:]

	if hdr.Type == ofp10.TypeHello {
		return d.core.NegotiateHello(sender, hdr.Version)
	}

	dpath, err := lookup(d.core, req)
	if err != nil {
		return fmt.Errorf("control: openflow: %w", err)
	}

	switch hdr.Type {
	case ofp10.TypeEchoRequest:
		return d.echoReply(sender, hdr.Xid, body)
	case ofp10.TypeFeaturesRequest:
		return d.featuresReply(dpath, sender)
	case ofp10.TypeGetConfigRequest:
		return d.getConfigReply(dpath, sender)
	case ofp10.TypeSetConfig:
		return d.setConfig(dpath, body)
	case ofp10.TypeBarrierRequest:
		return d.barrierReply(sender)
	case ofp10.TypeStatsRequest:
		return d.statsRequest(dpath, sender, body)
	case ofp10.TypePacketOut:
		return d.packetOut(dpath, body)
	case ofp10.TypeFlowMod:
		return dpath.Chain().ControlInput(sender, req.Payload)
	default:
		return fmt.Errorf("control: openflow: unsupported message type %d", hdr.Type)
	}
}

func (d *Dispatcher) echoReply(sender dp.Sender, xid uint32, data []byte) error {
	msg, err := ofp10.EchoMarshal(true, xid, data)
	if err != nil {
		return fmt.Errorf("control: echo_reply: %w", err)
	}
	return d.core.Transport().Unicast(sender.ClientID, msg)
}

func (d *Dispatcher) featuresReply(dpath *dp.Datapath, sender dp.Sender) error {
	var mac [6]byte
	if local, ok := dpath.Port(dp.OFPPLocal); ok {
		mac = local.Device().HardwareAddr()
	}

	var ports []ofp10.PhyPort
	for _, p := range dpath.AllPorts() {
		desc := p.FillDescription()
		var name [16]byte
		copy(name[:], desc.Name)
		ports = append(ports, ofp10.PhyPort{
			PortNo: desc.PortNo,
			HWAddr: desc.HWAddr,
			Name:   name,
			Config: desc.Config,
			State:  desc.State,
		})
	}

	fr := ofp10.FeaturesReply{
		DatapathID:   dp.MakeDatapathID(dpath.ID(), mac),
		NBuffers:     0,
		NTables:      2,
		Capabilities: ofp10.CapFlowStats | ofp10.CapTableStats | ofp10.CapPortStats,
		Actions:      ofp10.ActionsOutput,
		Ports:        ports,
	}

	msg, err := fr.Marshal(sender.Xid)
	if err != nil {
		return fmt.Errorf("control: features_reply: %w", err)
	}
	return d.core.Transport().Unicast(sender.ClientID, msg)
}

func (d *Dispatcher) getConfigReply(dpath *dp.Datapath, sender dp.Sender) error {
	sc := ofp10.SwitchConfig{Flags: dpath.Flags(), MissSendLen: dpath.MissSendLen()}
	msg, err := sc.Marshal(sender.Xid)
	if err != nil {
		return fmt.Errorf("control: get_config_reply: %w", err)
	}
	return d.core.Transport().Unicast(sender.ClientID, msg)
}

func (d *Dispatcher) setConfig(dpath *dp.Datapath, body []byte) error {
	sc, err := ofp10.UnmarshalSwitchConfig(body)
	if err != nil {
		return fmt.Errorf("control: set_config: %w", err)
	}
	dpath.SetConfig(sc.Flags, sc.MissSendLen)
	return nil
}

func (d *Dispatcher) barrierReply(sender dp.Sender) error {
	msg, err := ofp10.BarrierReplyMarshal(sender.Xid)
	if err != nil {
		return fmt.Errorf("control: barrier_reply: %w", err)
	}
	return d.core.Transport().Unicast(sender.ClientID, msg)
}

// packetOut executes a controller-originated PACKET_OUT: if BufferID
// refers to a saved frame it is retrieved, otherwise the message's Data
// is the frame itself (spec.md §4.4, TABLE virtual port re-entry point).
func (d *Dispatcher) packetOut(dpath *dp.Datapath, body []byte) error {
	po, err := ofp10.UnmarshalPacketOut(body)
	if err != nil {
		return fmt.Errorf("control: packet_out: %w", err)
	}

	var frame *dp.Frame
	if po.BufferID != ofp10.NoBuffer {
		frame, err = dpath.Packets().Retrieve(po.BufferID)
		if err != nil {
			return fmt.Errorf("control: packet_out: %w", err)
		}
	} else {
		frame = dp.NewFrame(append([]byte(nil), po.Data...))
	}

	return dp.ExecuteActions(dpath, frame, po.InPort, dp.ConvertActions(po.Actions))
}
