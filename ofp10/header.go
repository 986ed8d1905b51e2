// Package ofp10 implements the wire format of the OpenFlow 1.0 control
// protocol subset consumed by the datapath core: message framing, physical
// port descriptions, flow match and action encoding, and the statistics
// reply bodies.
package ofp10

import (
	"encoding/binary"
	"fmt"
)

// Version is the wire version byte for OpenFlow 1.0.
const Version uint8 = 0x01

// HeaderLen is the size in bytes of the common OpenFlow message header.
const HeaderLen = 8

// MaxMessageLen is the largest length an OpenFlow message's 16-bit length
// field can represent.
const MaxMessageLen = 0xffff

// Type is an OpenFlow message type.
type Type uint8

// Message types used by the core.
const (
	TypeHello            Type = 0
	TypeError            Type = 1
	TypeEchoRequest      Type = 2
	TypeEchoReply        Type = 3
	TypeVendor           Type = 4
	TypeFeaturesRequest  Type = 5
	TypeFeaturesReply    Type = 6
	TypeGetConfigRequest Type = 7
	TypeGetConfigReply   Type = 8
	TypeSetConfig        Type = 9
	TypePacketIn         Type = 10
	TypeFlowRemoved      Type = 11
	TypePortStatus       Type = 12
	TypePacketOut        Type = 13
	TypeFlowMod          Type = 14
	TypePortMod          Type = 15
	TypeStatsRequest     Type = 16
	TypeStatsReply       Type = 17
	TypeBarrierRequest   Type = 18
	TypeBarrierReply     Type = 19
)

// Header is the 8-byte header present at the start of every OpenFlow
// message.
type Header struct {
	Version uint8
	Type    Type
	Length  uint16
	Xid     uint32
}

// Marshal encodes h into the first 8 bytes of b. b must be at least
// HeaderLen bytes long.
func (h Header) Marshal(b []byte) {
	b[0] = h.Version
	b[1] = uint8(h.Type)
	binary.BigEndian.PutUint16(b[2:4], h.Length)
	binary.BigEndian.PutUint32(b[4:8], h.Xid)
}

// UnmarshalHeader parses the leading 8 bytes of b into a Header.
func UnmarshalHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, fmt.Errorf("ofp10: short header: %d bytes", len(b))
	}
	return Header{
		Version: b[0],
		Type:    Type(b[1]),
		Length:  binary.BigEndian.Uint16(b[2:4]),
		Xid:     binary.BigEndian.Uint32(b[4:8]),
	}, nil
}

// NewMessage reserves a buffer for a message of the given type and body
// length, writes the header template (length is filled in on Finish), and
// returns the buffer positioned for the caller to append the body.
func NewMessage(t Type, xid uint32, bodyLen int) ([]byte, error) {
	total := HeaderLen + bodyLen
	if total > MaxMessageLen {
		return nil, fmt.Errorf("ofp10: message of %d bytes exceeds %d byte limit: %w", total, MaxMessageLen, ErrTooLarge)
	}
	b := make([]byte, HeaderLen, total)
	Header{Version: Version, Type: t, Xid: xid}.Marshal(b)
	return b, nil
}

// Finish shrinks b to its final length and rewrites the header's length
// field in network byte order. It is the third and last step of the
// reserve/header/shrink construction used by every encoder in this package.
func Finish(b []byte) ([]byte, error) {
	if len(b) > MaxMessageLen {
		return nil, fmt.Errorf("ofp10: message of %d bytes exceeds %d byte limit: %w", len(b), MaxMessageLen, ErrTooLarge)
	}
	binary.BigEndian.PutUint16(b[2:4], uint16(len(b)))
	return b, nil
}
