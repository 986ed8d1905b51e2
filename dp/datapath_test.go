package dp

import (
	"errors"
	"testing"
)

func TestAddPortAllocatesLowestFreeSlot(t *testing.T) {
	d := newTestDatapath(t, &fakeChain{}, &fakeTransport{})

	p1, _ := mustAddPort(t, d, "eth0", 1)
	p2, _ := mustAddPort(t, d, "eth1", 2)
	if p1.PortNo() != 1 || p2.PortNo() != 2 {
		t.Fatalf("port numbers = %d, %d, want 1, 2", p1.PortNo(), p2.PortNo())
	}

	if _, err := d.removePort(p1.PortNo()); err != nil {
		t.Fatalf("removePort(1): %v", err)
	}

	p3, _ := mustAddPort(t, d, "eth2", 3)
	if p3.PortNo() != 1 {
		t.Fatalf("port number after removing slot 1 = %d, want reused slot 1", p3.PortNo())
	}
}

func TestRemovePortUnknownFails(t *testing.T) {
	d := newTestDatapath(t, &fakeChain{}, &fakeTransport{})
	if _, err := d.removePort(5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("removePort(5): err = %v, want ErrNotFound", err)
	}
}

func TestRemovePortRejectsOFPPLocal(t *testing.T) {
	d := newTestDatapath(t, &fakeChain{}, &fakeTransport{})
	if _, err := d.removePort(OFPPLocal); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("removePort(OFPPLocal): err = %v, want ErrInvalidArgument", err)
	}
}

func TestPortListExcludesOFPPLocalButAllPortsIncludesIt(t *testing.T) {
	d := newTestDatapath(t, &fakeChain{}, &fakeTransport{})
	mustAddPort(t, d, "eth0", 1)
	mustAddPort(t, d, "eth1", 2)

	if len(d.PortList()) != 2 {
		t.Fatalf("PortList() len = %d, want 2", len(d.PortList()))
	}

	all := d.AllPorts()
	if len(all) != 3 {
		t.Fatalf("AllPorts() len = %d, want 3 (2 ports + local)", len(all))
	}
	if all[0].PortNo() != 1 || all[1].PortNo() != 2 || all[2].PortNo() != OFPPLocal {
		t.Fatalf("AllPorts() not sorted by port number: %+v", all)
	}
}

func TestSetConfigAndFlags(t *testing.T) {
	d := newTestDatapath(t, &fakeChain{}, &fakeTransport{})
	d.SetConfig(0x1, 256)
	if d.Flags() != 0x1 || d.MissSendLen() != 256 {
		t.Fatalf("Flags/MissSendLen = %d/%d, want 1/256", d.Flags(), d.MissSendLen())
	}
}

func TestPortSetConfigMasksOnlyGivenBits(t *testing.T) {
	d := newTestDatapath(t, &fakeChain{}, &fakeTransport{})
	p, _ := mustAddPort(t, d, "eth0", 1)

	p.SetConfig(PortConfigNoFlood, PortConfigNoFlood)
	p.SetConfig(PortConfigNoFwd, PortConfigNoFwd)
	if p.Config()&PortConfigNoFlood == 0 || p.Config()&PortConfigNoFwd == 0 {
		t.Fatalf("Config() = %#x, want both NO_FLOOD and NO_FWD set", p.Config())
	}

	p.SetConfig(PortConfigNoFlood, 0)
	if p.Config()&PortConfigNoFlood != 0 {
		t.Fatalf("Config() = %#x, want NO_FLOOD cleared", p.Config())
	}
	if p.Config()&PortConfigNoFwd == 0 {
		t.Fatalf("Config() = %#x, want NO_FWD still set", p.Config())
	}
}

func TestValidatePortModRejectsStaleHWAddr(t *testing.T) {
	d := newTestDatapath(t, &fakeChain{}, &fakeTransport{})
	p, _ := mustAddPort(t, d, "eth0", 1)

	if err := p.ValidatePortMod(p.Device().HardwareAddr()); err != nil {
		t.Fatalf("ValidatePortMod with current hw_addr: %v", err)
	}
	if err := p.ValidatePortMod([6]byte{0xff}); !errors.Is(err, ErrStaleModify) {
		t.Fatalf("ValidatePortMod with stale hw_addr: err = %v, want ErrStaleModify", err)
	}
}
