//go:build linux

package controlnl

import (
	"fmt"

	"github.com/mdlayher/genetlink"
	"github.com/mdlayher/netlink"
)

// Request is one decoded inbound admin command (spec.md §4.6).
type Request struct {
	Cmd      Command
	ClientID uint32
	Xid      uint32
	DPID     uint16
	HasDPID  bool
	DPName   string
	PortName string
	Payload  []byte
}

// Listen joins the notification group and runs the receive loop, invoking
// handle for every decoded inbound command until Close is called on c or
// handle's caller cancels by returning a non-nil error that Listen
// propagates to its own caller.
func (c *Conn) Listen(handle func(Request) error) error {
	if err := c.joinNotifications(); err != nil {
		return err
	}

	for {
		msgs, nlmsgs, err := c.c.Receive()
		if err != nil {
			return fmt.Errorf("controlnl: receive: %w", err)
		}
		for i, m := range msgs {
			req, err := decodeRequest(m)
			if err != nil {
				continue // malformed command from a misbehaving peer; drop it
			}
			if i < len(nlmsgs) {
				req.ClientID = nlmsgs[i].Header.PID
				req.Xid = nlmsgs[i].Header.Sequence
			}
			if err := handle(req); err != nil {
				return err
			}
		}
	}
}

func decodeRequest(m genetlink.Message) (Request, error) {
	ad, err := netlink.NewAttributeDecoder(m.Data)
	if err != nil {
		return Request{}, err
	}

	req := Request{Cmd: Command(m.Header.Command)}

	for ad.Next() {
		switch Attr(ad.Type()) {
		case AttrDPID:
			req.DPID = ad.Uint16()
			req.HasDPID = true
		case AttrDPName:
			req.DPName = ad.String()
		case AttrPortName:
			req.PortName = ad.String()
		case AttrPayload:
			req.Payload = append([]byte(nil), ad.Bytes()...)
		}
	}
	if err := ad.Err(); err != nil {
		return Request{}, err
	}

	return req, nil
}
