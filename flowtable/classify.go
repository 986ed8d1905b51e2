package flowtable

import "github.com/ofswitchd/go-ofswitch/dp"

const (
	ethTypeIPv4 = 0x0800
	ipProtoTCP  = 6
	ipProtoUDP  = 17
)

// classify parses frame's headers into the field vocabulary ofp_match
// describes, for use as a table lookup key. Every field not present in
// the frame (no VLAN tag, non-IPv4 payload, non-TCP/UDP transport) is left
// zero, matching ovs-ofctl's convention that an absent field only matches
// a flow that wildcards it.
func classify(frame *dp.Frame, inPort uint16) dp.Match {
	b := frame.Bytes()
	m := dp.Match{
		InPort: inPort,
		DlSrc:  frame.DlSrc(),
		DlDst:  frame.DlDst(),
		DlType: frame.EtherType(),
	}

	off := dp.EthHLen
	if frame.HasVLANTag() && len(b) >= off+4 {
		tci := uint16(b[off+2])<<8 | uint16(b[off+3])
		m.DlVlan = tci & 0x0fff
		m.DlVlanPcp = uint8(tci >> 13)
		off += 4
	} else {
		m.DlVlan = 0xffff // OFP_VLAN_NONE
	}

	if m.DlType != ethTypeIPv4 || len(b) < off+20 {
		return m
	}

	ip := b[off:]
	ihl := int(ip[0]&0x0f) * 4
	if ihl < 20 || len(ip) < ihl {
		return m
	}
	m.NwTos = ip[1] >> 2
	m.NwProto = ip[9]
	m.NwSrc = uint32(ip[12])<<24 | uint32(ip[13])<<16 | uint32(ip[14])<<8 | uint32(ip[15])
	m.NwDst = uint32(ip[16])<<24 | uint32(ip[17])<<16 | uint32(ip[18])<<8 | uint32(ip[19])

	if (m.NwProto != ipProtoTCP && m.NwProto != ipProtoUDP) || len(ip) < ihl+4 {
		return m
	}
	l4 := ip[ihl:]
	m.TpSrc = uint16(l4[0])<<8 | uint16(l4[1])
	m.TpDst = uint16(l4[2])<<8 | uint16(l4[3])

	return m
}
