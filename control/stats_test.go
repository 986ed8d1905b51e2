//go:build linux

package control

import (
	"encoding/binary"
	"testing"

	"github.com/ofswitchd/go-ofswitch/controlnl"
	"github.com/ofswitchd/go-ofswitch/dp"
	"github.com/ofswitchd/go-ofswitch/ofp10"
)

func flowModMessage(t *testing.T, priority uint16, outPort ofp10.Port) []byte {
	t.Helper()

	var match [ofp10.MatchLen]byte
	binary.BigEndian.PutUint32(match[0:4], ofp10.WildcardAll)

	var tail [24]byte
	binary.BigEndian.PutUint16(tail[8:10], uint16(ofp10.FlowModCommandAdd))
	binary.BigEndian.PutUint16(tail[14:16], priority)
	binary.BigEndian.PutUint32(tail[16:20], ofp10.NoBuffer)
	binary.BigEndian.PutUint16(tail[20:22], uint16(ofp10.PortNone))

	action := ofp10.MarshalAction(ofp10.Action{
		Type:   ofp10.ActionTypeOutput,
		Output: ofp10.OutputAction{Port: outPort},
	})

	body := append([]byte{}, match[:]...)
	body = append(body, tail[:]...)
	body = append(body, action...)

	hdr := make([]byte, ofp10.HeaderLen)
	ofp10.Header{Version: ofp10.Version, Type: ofp10.TypeFlowMod, Length: uint16(ofp10.HeaderLen + len(body))}.Marshal(hdr)
	return append(hdr, body...)
}

func installTestFlow(t *testing.T, d *Dispatcher, dpName string, priority uint16, outPort ofp10.Port) {
	t.Helper()
	dpath, err := d.core.Registry().Lookup(nil, dpName)
	if err != nil {
		t.Fatalf("lookup %q: %v", dpName, err)
	}
	sender := dp.Sender{}
	if err := dpath.Chain().ControlInput(sender, flowModMessage(t, priority, outPort)); err != nil {
		t.Fatalf("install flow: %v", err)
	}
}

func statsRequestMessage(t *testing.T, typ ofp10.StatsType, body []byte, xid uint32) []byte {
	t.Helper()
	head := make([]byte, 4)
	binary.BigEndian.PutUint16(head[0:2], uint16(typ))
	full := append(head, body...)
	return newOFMessage(t, ofp10.TypeStatsRequest, xid, full)
}

func decodeStatsReply(t *testing.T, msg []byte) (ofp10.StatsType, []byte) {
	t.Helper()
	if _, err := ofp10.UnmarshalHeader(msg); err != nil {
		t.Fatalf("UnmarshalHeader: %v", err)
	}
	body := msg[ofp10.HeaderLen:]
	if len(body) < 4 {
		t.Fatalf("stats reply body too short: %d", len(body))
	}
	typ := ofp10.StatsType(binary.BigEndian.Uint16(body[0:2]))
	return typ, body[4:]
}

func TestDispatcherStatsDesc(t *testing.T) {
	d, _, transport, _ := newTestDispatcher(t)
	addTestDP(t, d, "dp0")

	payload := statsRequestMessage(t, ofp10.StatsTypeDesc, nil, 1)
	if err := d.Handle(controlnl.Request{Cmd: controlnl.CmdOpenflow, DPName: "dp0", Payload: payload}); err != nil {
		t.Fatalf("Handle(stats desc): %v", err)
	}

	typ, body := decodeStatsReply(t, transport.last())
	if typ != ofp10.StatsTypeDesc {
		t.Fatalf("reply type = %v, want desc", typ)
	}
	if len(body) != 4*256 {
		t.Fatalf("desc body len = %d, want %d", len(body), 4*256)
	}
	mfr := string(body[0:256])
	if trimmed := mfr[:len(dp.DefaultMfrDesc)]; trimmed != dp.DefaultMfrDesc {
		t.Fatalf("mfr_desc = %q, want prefix %q", trimmed, dp.DefaultMfrDesc)
	}
}

func TestDispatcherStatsAggregateCountsInstalledFlows(t *testing.T) {
	d, _, transport, _ := newTestDispatcher(t)
	addTestDP(t, d, "dp0")
	installTestFlow(t, d, "dp0", 10, ofp10.Port(1))
	installTestFlow(t, d, "dp0", 20, ofp10.Port(2))

	var fsr [ofp10.MatchLen + 1 + 1 + 2]byte
	binary.BigEndian.PutUint32(fsr[0:4], ofp10.WildcardAll)
	fsr[ofp10.MatchLen] = ofp10.TableIDAll
	binary.BigEndian.PutUint16(fsr[ofp10.MatchLen+2:], uint16(ofp10.PortNone))

	payload := statsRequestMessage(t, ofp10.StatsTypeAggregate, fsr[:], 2)
	if err := d.Handle(controlnl.Request{Cmd: controlnl.CmdOpenflow, DPName: "dp0", Payload: payload}); err != nil {
		t.Fatalf("Handle(stats aggregate): %v", err)
	}

	typ, body := decodeStatsReply(t, transport.last())
	if typ != ofp10.StatsTypeAggregate {
		t.Fatalf("reply type = %v, want aggregate", typ)
	}
	if len(body) != 8+8+4+4 {
		t.Fatalf("aggregate body len = %d, want %d", len(body), 24)
	}
	flowCount := binary.BigEndian.Uint32(body[16:20])
	if flowCount != 2 {
		t.Fatalf("flow_count = %d, want 2", flowCount)
	}
}

func TestDispatcherStatsFlowReturnsOneRecordPerFlow(t *testing.T) {
	d, _, transport, _ := newTestDispatcher(t)
	addTestDP(t, d, "dp0")
	installTestFlow(t, d, "dp0", 10, ofp10.Port(1))
	installTestFlow(t, d, "dp0", 20, ofp10.Port(2))

	var fsr [ofp10.MatchLen + 1 + 1 + 2]byte
	binary.BigEndian.PutUint32(fsr[0:4], ofp10.WildcardAll)
	fsr[ofp10.MatchLen] = ofp10.TableIDAll
	binary.BigEndian.PutUint16(fsr[ofp10.MatchLen+2:], uint16(ofp10.PortNone))

	payload := statsRequestMessage(t, ofp10.StatsTypeFlow, fsr[:], 3)
	if err := d.Handle(controlnl.Request{Cmd: controlnl.CmdOpenflow, DPName: "dp0", Payload: payload}); err != nil {
		t.Fatalf("Handle(stats flow): %v", err)
	}

	typ, body := decodeStatsReply(t, transport.last())
	if typ != ofp10.StatsTypeFlow {
		t.Fatalf("reply type = %v, want flow", typ)
	}

	count := 0
	for len(body) > 0 {
		recLen := int(binary.BigEndian.Uint16(body[0:2]))
		if recLen <= 0 || recLen > len(body) {
			t.Fatalf("bad record length %d in remaining %d bytes", recLen, len(body))
		}
		count++
		body = body[recLen:]
	}
	if count != 2 {
		t.Fatalf("flow stats record count = %d, want 2", count)
	}
}

func TestDispatcherStatsTableReturnsBothTables(t *testing.T) {
	d, _, transport, _ := newTestDispatcher(t)
	addTestDP(t, d, "dp0")

	payload := statsRequestMessage(t, ofp10.StatsTypeTable, nil, 4)
	if err := d.Handle(controlnl.Request{Cmd: controlnl.CmdOpenflow, DPName: "dp0", Payload: payload}); err != nil {
		t.Fatalf("Handle(stats table): %v", err)
	}

	typ, body := decodeStatsReply(t, transport.last())
	if typ != ofp10.StatsTypeTable {
		t.Fatalf("reply type = %v, want table", typ)
	}
	if len(body) != 2*ofp10.TableStatsLen {
		t.Fatalf("table stats body len = %d, want %d", len(body), 2*ofp10.TableStatsLen)
	}
	if body[0] != 0 || body[ofp10.TableStatsLen] != 1 {
		t.Fatalf("table ids = %d,%d, want 0,1", body[0], body[ofp10.TableStatsLen])
	}
}

func TestDispatcherStatsPortReturnsEveryPort(t *testing.T) {
	d, _, transport, _ := newTestDispatcher(t)
	addTestDP(t, d, "dp0")
	if err := d.Handle(controlnl.Request{Cmd: controlnl.CmdAddPort, DPName: "dp0", PortName: "eth0"}); err != nil {
		t.Fatalf("AddPort eth0: %v", err)
	}
	if err := d.Handle(controlnl.Request{Cmd: controlnl.CmdAddPort, DPName: "dp0", PortName: "eth1"}); err != nil {
		t.Fatalf("AddPort eth1: %v", err)
	}

	var psr [8]byte
	binary.BigEndian.PutUint16(psr[0:2], uint16(ofp10.PortNone))

	payload := statsRequestMessage(t, ofp10.StatsTypePort, psr[:], 5)
	if err := d.Handle(controlnl.Request{Cmd: controlnl.CmdOpenflow, DPName: "dp0", Payload: payload}); err != nil {
		t.Fatalf("Handle(stats port): %v", err)
	}

	typ, body := decodeStatsReply(t, transport.last())
	if typ != ofp10.StatsTypePort {
		t.Fatalf("reply type = %v, want port", typ)
	}
	if len(body) != 2*ofp10.PortStatsLen {
		t.Fatalf("port stats body len = %d, want %d", len(body), 2*ofp10.PortStatsLen)
	}
}
