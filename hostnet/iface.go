//go:build linux

// Package hostnet implements the host network stack binding (spec.md §1,
// component C12): interface identity/administrative controls via
// vishvananda/netlink, and raw frame RX/TX via an AF_PACKET socket, the
// way the teacher's dependency pack's host-side examples bind interfaces.
package hostnet

import (
	"fmt"
	"net"
	"sync"

	"github.com/vishvananda/netlink"
)

// Iface binds one host network interface's identity and administrative
// state, implementing dp.HostIface.
type Iface struct {
	mu   sync.Mutex
	link netlink.Link
	name string
}

// openIface resolves name to a netlink.Link.
func openIface(name string) (*Iface, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return nil, fmt.Errorf("hostnet: resolve interface %q: %w", name, err)
	}
	return &Iface{link: link, name: name}, nil
}

// Name returns the interface's device name.
func (i *Iface) Name() string { return i.name }

// HardwareAddr returns the interface's MAC address.
func (i *Iface) HardwareAddr() [6]byte {
	var mac [6]byte
	attrs := i.link.Attrs()
	if attrs != nil {
		copy(mac[:], attrs.HardwareAddr)
	}
	return mac
}

// MTU returns the interface's maximum transmission unit in bytes.
func (i *Iface) MTU() int {
	attrs := i.link.Attrs()
	if attrs == nil {
		return 0
	}
	return attrs.MTU
}

// SetPromiscuous enables or disables promiscuous reception (spec.md §3,
// "Add port"/"Delete port").
func (i *Iface) SetPromiscuous(on bool) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if on {
		if err := netlink.SetPromiscOn(i.link); err != nil {
			return fmt.Errorf("hostnet: enable promiscuous mode on %q: %w", i.name, err)
		}
		return nil
	}
	if err := netlink.SetPromiscOff(i.link); err != nil {
		return fmt.Errorf("hostnet: disable promiscuous mode on %q: %w", i.name, err)
	}
	return nil
}

// AdminUp reports the interface's administrative state (spec.md §4.2).
func (i *Iface) AdminUp() (bool, error) {
	link, err := netlink.LinkByName(i.name)
	if err != nil {
		return false, fmt.Errorf("hostnet: refresh %q: %w", i.name, err)
	}
	i.mu.Lock()
	i.link = link
	i.mu.Unlock()
	return link.Attrs().Flags&net.FlagUp != 0, nil
}

// CarrierUp reports the interface's physical link carrier state (spec.md
// §4.2).
func (i *Iface) CarrierUp() (bool, error) {
	link, err := netlink.LinkByName(i.name)
	if err != nil {
		return false, fmt.Errorf("hostnet: refresh %q: %w", i.name, err)
	}
	return link.Attrs().OperState == netlink.OperUp, nil
}

// Close releases the binding. It does not delete or bring down the host
// interface; Core.DelPort's caller owns that decision.
func (i *Iface) Close() error { return nil }
