//go:build linux

package controlnl

import (
	"fmt"

	"github.com/mdlayher/genetlink"
	"github.com/mdlayher/netlink"
)

// Conn is a generic netlink connection bound to Family. It implements
// dp.Transport (Unicast/Multicast) and drives the inbound command loop
// consumed by package control's Dispatcher.
type Conn struct {
	c  *genetlink.Conn
	f  genetlink.Family
}

// Dial opens a generic netlink connection and resolves Family.
func Dial() (*Conn, error) {
	c, err := genetlink.Dial(nil)
	if err != nil {
		return nil, fmt.Errorf("controlnl: dial generic netlink: %w", err)
	}
	return newConn(c)
}

// newConn is the internal Conn constructor, used in tests with a
// genltest-backed *genetlink.Conn in place of a real kernel socket.
func newConn(c *genetlink.Conn) (*Conn, error) {
	f, err := c.GetFamily(Family)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("controlnl: resolve family %q: %w", Family, err)
	}
	return &Conn{c: c, f: f}, nil
}

// Close closes the underlying generic netlink connection.
func (c *Conn) Close() error {
	return c.c.Close()
}

// joinNotifications subscribes this connection to Family's single
// multicast group, so Listen observes every CmdNotify this process did
// not itself originate.
func (c *Conn) joinNotifications() error {
	for _, g := range c.f.Groups {
		if g.Name == Mcgroup {
			return c.c.JoinGroup(g.ID)
		}
	}
	return fmt.Errorf("controlnl: family %q has no %q multicast group", Family, Mcgroup)
}

// send encodes cmd with attrs and executes it as a request, returning the
// kernel's reply messages.
func (c *Conn) send(cmd Command, flags netlink.HeaderFlags, attrs []netlink.Attribute) ([]genetlink.Message, error) {
	ae := netlink.NewAttributeEncoder()
	for _, a := range attrs {
		ae.Bytes(a.Type, a.Data)
	}
	data, err := ae.Encode()
	if err != nil {
		return nil, fmt.Errorf("controlnl: encode attributes: %w", err)
	}

	req := genetlink.Message{
		Header: genetlink.Header{Command: uint8(cmd), Version: uint8(c.f.Version)},
		Data:   data,
	}

	return c.c.Execute(req, c.f.ID, netlink.Request|flags)
}

// Unicast implements dp.Transport: it sends msg as a CmdOpenflow request
// to Family over this connection. clientID is not used for addressing; it
// appears only in the returned error text.
func (c *Conn) Unicast(clientID uint32, msg []byte) error {
	attrs := []netlink.Attribute{
		{Type: uint16(AttrPayload), Data: msg},
	}
	if _, err := c.send(CmdOpenflow, 0, attrs); err != nil {
		return fmt.Errorf("controlnl: unicast to client %d: %w", clientID, err)
	}
	return nil
}

// ReplyDP answers an ADD_DP or QUERY_DP command with a datapath's
// identity (spec.md §4.6: "reply with {id, name, mc_group}"), sent as a
// CmdQueryDP request to Family over this connection. clientID is not used
// for addressing; it appears only in the returned error text. It is not
// part of dp.Transport since it carries the
// admin command set's own attribute vocabulary rather than an opaque
// OpenFlow payload.
func (c *Conn) ReplyDP(clientID uint32, id uint16, name string, mcGroup uint16) error {
	var idAttr, mcAttr [2]byte
	idAttr[0], idAttr[1] = byte(id), byte(id>>8)
	mcAttr[0], mcAttr[1] = byte(mcGroup), byte(mcGroup>>8)

	attrs := []netlink.Attribute{
		{Type: uint16(AttrDPID), Data: idAttr[:]},
		{Type: uint16(AttrDPName), Data: []byte(name)},
		{Type: uint16(AttrMCGroup), Data: mcAttr[:]},
	}
	if _, err := c.send(CmdQueryDP, 0, attrs); err != nil {
		return fmt.Errorf("controlnl: reply to client %d: %w", clientID, err)
	}
	return nil
}

// Multicast implements dp.Transport: it delivers msg to every subscriber
// of group, tagging the notification with AttrGroup so subscribers can
// filter within the single shared Mcgroup.
func (c *Conn) Multicast(group uint16, msg []byte) error {
	var groupAttr [2]byte
	groupAttr[0] = byte(group)
	groupAttr[1] = byte(group >> 8)

	attrs := []netlink.Attribute{
		{Type: uint16(AttrGroup), Data: groupAttr[:]},
		{Type: uint16(AttrPayload), Data: msg},
	}
	if _, err := c.send(CmdNotify, 0, attrs); err != nil {
		return fmt.Errorf("controlnl: multicast to group %d: %w", group, err)
	}
	return nil
}
