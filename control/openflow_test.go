//go:build linux

package control

import (
	"testing"

	"github.com/ofswitchd/go-ofswitch/controlnl"
	"github.com/ofswitchd/go-ofswitch/ofp10"
)

func newOFMessage(t *testing.T, typ ofp10.Type, xid uint32, body []byte) []byte {
	t.Helper()
	b, err := ofp10.NewMessage(typ, xid, len(body))
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	b = append(b, body...)
	b, err = ofp10.Finish(b)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return b
}

func addTestDP(t *testing.T, d *Dispatcher, name string) {
	t.Helper()
	if err := d.Handle(controlnl.Request{Cmd: controlnl.CmdAddDP, DPName: name}); err != nil {
		t.Fatalf("AddDP(%q): %v", name, err)
	}
}

func TestDispatcherOpenflowEchoReply(t *testing.T) {
	d, _, transport, _ := newTestDispatcher(t)
	addTestDP(t, d, "dp0")

	payload := newOFMessage(t, ofp10.TypeEchoRequest, 42, []byte{0xaa, 0xbb})
	req := controlnl.Request{Cmd: controlnl.CmdOpenflow, DPName: "dp0", Xid: 42, Payload: payload}
	if err := d.Handle(req); err != nil {
		t.Fatalf("Handle(echo_request): %v", err)
	}

	hdr, err := ofp10.UnmarshalHeader(transport.last())
	if err != nil {
		t.Fatalf("UnmarshalHeader: %v", err)
	}
	if hdr.Type != ofp10.TypeEchoReply || hdr.Xid != 42 {
		t.Fatalf("reply header = %+v, want echo_reply/xid 42", hdr)
	}
}

func TestDispatcherOpenflowFeaturesReply(t *testing.T) {
	d, _, transport, _ := newTestDispatcher(t)
	addTestDP(t, d, "dp0")
	if err := d.Handle(controlnl.Request{Cmd: controlnl.CmdAddPort, DPName: "dp0", PortName: "eth0"}); err != nil {
		t.Fatalf("AddPort: %v", err)
	}

	payload := newOFMessage(t, ofp10.TypeFeaturesRequest, 7, nil)
	req := controlnl.Request{Cmd: controlnl.CmdOpenflow, DPName: "dp0", Xid: 7, Payload: payload}
	if err := d.Handle(req); err != nil {
		t.Fatalf("Handle(features_request): %v", err)
	}

	hdr, err := ofp10.UnmarshalHeader(transport.last())
	if err != nil {
		t.Fatalf("UnmarshalHeader: %v", err)
	}
	if hdr.Type != ofp10.TypeFeaturesReply || hdr.Xid != 7 {
		t.Fatalf("reply header = %+v, want features_reply/xid 7", hdr)
	}
	if len(transport.last()) <= ofp10.HeaderLen {
		t.Fatalf("features_reply body empty")
	}
}

func TestDispatcherOpenflowSetConfigUpdatesDatapath(t *testing.T) {
	d, core, _, _ := newTestDispatcher(t)
	addTestDP(t, d, "dp0")

	sc := ofp10.SwitchConfig{Flags: 0x1, MissSendLen: 256}
	body := make([]byte, 4)
	body[1] = 0x1
	body[2], body[3] = 1, 0 // 256 big-endian

	payload := newOFMessage(t, ofp10.TypeSetConfig, 1, body)
	req := controlnl.Request{Cmd: controlnl.CmdOpenflow, DPName: "dp0", Payload: payload}
	if err := d.Handle(req); err != nil {
		t.Fatalf("Handle(set_config): %v", err)
	}

	dpath, err := core.Registry().Lookup(nil, "dp0")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if dpath.Flags() != sc.Flags || dpath.MissSendLen() != sc.MissSendLen {
		t.Fatalf("datapath config = {%d,%d}, want {%d,%d}", dpath.Flags(), dpath.MissSendLen(), sc.Flags, sc.MissSendLen)
	}
}

func TestDispatcherOpenflowBarrierReply(t *testing.T) {
	d, _, transport, _ := newTestDispatcher(t)
	addTestDP(t, d, "dp0")

	payload := newOFMessage(t, ofp10.TypeBarrierRequest, 11, nil)
	req := controlnl.Request{Cmd: controlnl.CmdOpenflow, DPName: "dp0", Xid: 11, Payload: payload}
	if err := d.Handle(req); err != nil {
		t.Fatalf("Handle(barrier_request): %v", err)
	}

	hdr, err := ofp10.UnmarshalHeader(transport.last())
	if err != nil {
		t.Fatalf("UnmarshalHeader: %v", err)
	}
	if hdr.Type != ofp10.TypeBarrierReply || hdr.Xid != 11 {
		t.Fatalf("reply header = %+v, want barrier_reply/xid 11", hdr)
	}
}

func TestDispatcherOpenflowPacketOutTransmitsOnNamedPort(t *testing.T) {
	d, core, _, _ := newTestDispatcher(t)
	addTestDP(t, d, "dp0")
	if err := d.Handle(controlnl.Request{Cmd: controlnl.CmdAddPort, DPName: "dp0", PortName: "eth0"}); err != nil {
		t.Fatalf("AddPort eth0: %v", err)
	}
	if err := d.Handle(controlnl.Request{Cmd: controlnl.CmdAddPort, DPName: "dp0", PortName: "eth1"}); err != nil {
		t.Fatalf("AddPort eth1: %v", err)
	}

	dpath, err := core.Registry().Lookup(nil, "dp0")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	target, ok := dpath.Port(2) // eth1, second AddPort
	if !ok {
		t.Fatalf("Port(2) not found")
	}

	frame := []byte{
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0x02, 0, 0, 0, 0, 1,
		0x08, 0x00,
		1, 2, 3, 4,
	}
	actions := ofp10.MarshalAction(ofp10.Action{
		Type:   ofp10.ActionTypeOutput,
		Output: ofp10.OutputAction{Port: ofp10.Port(2), MaxLen: 0},
	})

	body := make([]byte, 8)
	body[0], body[1], body[2], body[3] = 0xff, 0xff, 0xff, 0xff // BufferID = NoBuffer
	body[6] = byte(len(actions) >> 8)
	body[7] = byte(len(actions))
	body = append(body, actions...)
	body = append(body, frame...)

	payload := newOFMessage(t, ofp10.TypePacketOut, 3, body)
	req := controlnl.Request{Cmd: controlnl.CmdOpenflow, DPName: "dp0", Payload: payload}
	if err := d.Handle(req); err != nil {
		t.Fatalf("Handle(packet_out): %v", err)
	}

	io, ok := target.IO().(*fakePortIO)
	if !ok {
		t.Fatalf("target port IO is not *fakePortIO")
	}
	if len(io.out) != 1 {
		t.Fatalf("transmitted frames on eth1 = %d, want 1", len(io.out))
	}
}
