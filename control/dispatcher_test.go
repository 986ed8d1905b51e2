//go:build linux

package control

import (
	"errors"
	"testing"

	"github.com/ofswitchd/go-ofswitch/controlnl"
	"github.com/ofswitchd/go-ofswitch/dp"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *dp.Core, *fakeTransport, *fakeReplier) {
	t.Helper()

	cfg, err := dp.NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	binder := &fakeBinder{fail: map[string]bool{}}
	transport := &fakeTransport{}
	core := dp.NewCore(binder, transport, nil, cfg, newChainFactory())
	replier := &fakeReplier{}

	return NewDispatcher(core, replier), core, transport, replier
}

func TestDispatcherAddDPRepliesWithIdentity(t *testing.T) {
	d, _, _, replier := newTestDispatcher(t)

	req := controlnl.Request{Cmd: controlnl.CmdAddDP, ClientID: 1, Xid: 9, DPName: "dp0"}
	if err := d.Handle(req); err != nil {
		t.Fatalf("Handle(AddDP): %v", err)
	}

	got := replier.lastCall()
	if got.clientID != 1 || got.name != "dp0" {
		t.Fatalf("ReplyDP call = %+v", got)
	}
}

func TestDispatcherDelDPRemovesFromRegistry(t *testing.T) {
	d, core, _, _ := newTestDispatcher(t)

	if err := d.Handle(controlnl.Request{Cmd: controlnl.CmdAddDP, DPName: "dp0"}); err != nil {
		t.Fatalf("AddDP: %v", err)
	}
	if err := d.Handle(controlnl.Request{Cmd: controlnl.CmdDelDP, DPName: "dp0"}); err != nil {
		t.Fatalf("DelDP: %v", err)
	}

	if _, err := core.Registry().Lookup(nil, "dp0"); !errors.Is(err, dp.ErrNotFound) {
		t.Fatalf("Lookup after DelDP: err = %v, want ErrNotFound", err)
	}
}

func TestDispatcherDelDPUnknownNameFails(t *testing.T) {
	d, _, _, _ := newTestDispatcher(t)

	if err := d.Handle(controlnl.Request{Cmd: controlnl.CmdDelDP, DPName: "ghost"}); err == nil {
		t.Fatal("Handle(DelDP) on unknown name: want error, got nil")
	}
}

func TestDispatcherQueryDPReportsPublishedIdentity(t *testing.T) {
	d, _, _, replier := newTestDispatcher(t)

	if err := d.Handle(controlnl.Request{Cmd: controlnl.CmdAddDP, DPName: "dp0"}); err != nil {
		t.Fatalf("AddDP: %v", err)
	}
	if err := d.Handle(controlnl.Request{Cmd: controlnl.CmdQueryDP, ClientID: 5, DPName: "dp0"}); err != nil {
		t.Fatalf("QueryDP: %v", err)
	}

	got := replier.lastCall()
	if got.clientID != 5 || got.name != "dp0" {
		t.Fatalf("ReplyDP call = %+v", got)
	}
}

func TestDispatcherAddPortThenDelPort(t *testing.T) {
	d, core, _, _ := newTestDispatcher(t)

	if err := d.Handle(controlnl.Request{Cmd: controlnl.CmdAddDP, DPName: "dp0"}); err != nil {
		t.Fatalf("AddDP: %v", err)
	}
	if err := d.Handle(controlnl.Request{Cmd: controlnl.CmdAddPort, DPName: "dp0", PortName: "eth0"}); err != nil {
		t.Fatalf("AddPort: %v", err)
	}

	dpath, err := core.Registry().Lookup(nil, "dp0")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(dpath.PortList()) != 1 {
		t.Fatalf("PortList() len = %d, want 1", len(dpath.PortList()))
	}

	if err := d.Handle(controlnl.Request{Cmd: controlnl.CmdDelPort, DPName: "dp0", PortName: "eth0"}); err != nil {
		t.Fatalf("DelPort: %v", err)
	}
	if len(dpath.PortList()) != 0 {
		t.Fatalf("PortList() after DelPort len = %d, want 0", len(dpath.PortList()))
	}
}

func TestDispatcherDelPortUnknownNameFails(t *testing.T) {
	d, _, _, _ := newTestDispatcher(t)

	if err := d.Handle(controlnl.Request{Cmd: controlnl.CmdAddDP, DPName: "dp0"}); err != nil {
		t.Fatalf("AddDP: %v", err)
	}
	if err := d.Handle(controlnl.Request{Cmd: controlnl.CmdDelPort, DPName: "dp0", PortName: "ghost"}); !errors.Is(err, dp.ErrNotFound) {
		t.Fatalf("DelPort(ghost): err = %v, want ErrNotFound", err)
	}
}

func TestDispatcherUnrecognizedCommandFails(t *testing.T) {
	d, _, _, _ := newTestDispatcher(t)

	if err := d.Handle(controlnl.Request{Cmd: controlnl.Command(99)}); err == nil {
		t.Fatal("Handle(unknown command): want error, got nil")
	}
}
