//go:build linux

package hostnet

import (
	"fmt"

	"github.com/ofswitchd/go-ofswitch/dp"
	"github.com/vishvananda/netlink"
)

// Binder opens host-side bindings for named interfaces, implementing
// dp.HostBinder (spec.md §3, "Add port").
type Binder struct{}

// NewBinder constructs a Binder.
func NewBinder() *Binder { return &Binder{} }

// Open resolves name to a live interface and binds both its
// administrative handle and its raw frame path.
func (Binder) Open(name string) (dp.HostIface, dp.PortIO, error) {
	iface, err := openIface(name)
	if err != nil {
		return nil, nil, err
	}

	link, err := netlink.LinkByName(name)
	if err != nil {
		return nil, nil, fmt.Errorf("hostnet: resolve interface %q: %w", name, err)
	}

	io, err := openPacketIO(link.Attrs().Index)
	if err != nil {
		return nil, nil, err
	}

	return iface, io, nil
}
