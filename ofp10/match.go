package ofp10

// Wildcard bits for Match.Wildcards (ofp_flow_wildcards).
const (
	WildcardInPort  uint32 = 1 << 0
	WildcardDlVlan  uint32 = 1 << 1
	WildcardDlSrc   uint32 = 1 << 2
	WildcardDlDst   uint32 = 1 << 3
	WildcardDlType  uint32 = 1 << 4
	WildcardNwProto uint32 = 1 << 5
	WildcardTpSrc   uint32 = 1 << 6
	WildcardTpDst   uint32 = 1 << 7

	WildcardNwSrcShift = 8
	WildcardNwSrcBits  = 6
	WildcardNwSrcMask  uint32 = ((1 << WildcardNwSrcBits) - 1) << WildcardNwSrcShift
	WildcardNwSrcAll   uint32 = 32 << WildcardNwSrcShift

	WildcardNwDstShift = 14
	WildcardNwDstBits  = 6
	WildcardNwDstMask  uint32 = ((1 << WildcardNwDstBits) - 1) << WildcardNwDstShift
	WildcardNwDstAll   uint32 = 32 << WildcardNwDstShift

	WildcardDlVlanPcp uint32 = 1 << 20
	WildcardNwTos     uint32 = 1 << 21

	WildcardAll uint32 = (1 << 22) - 1
)

// MatchLen is the marshaled size of a Match (ofp_match).
const MatchLen = 40

// Match is the wire layout of ofp_match: the match criteria shared by flow
// table entries and flow statistics requests/replies.
type Match struct {
	Wildcards uint32
	InPort    uint16
	DlSrc     [6]byte
	DlDst     [6]byte
	DlVlan    uint16
	DlVlanPcp uint8
	DlType    uint16
	NwTos     uint8
	NwProto   uint8
	NwSrc     uint32
	NwDst     uint32
	TpSrc     uint16
	TpDst     uint16
}

// Marshal appends the wire encoding of m to b.
func (m Match) Marshal(b []byte) []byte {
	var buf [MatchLen]byte
	putUint32(buf[0:4], m.Wildcards)
	putUint16(buf[4:6], m.InPort)
	copy(buf[6:12], m.DlSrc[:])
	copy(buf[12:18], m.DlDst[:])
	putUint16(buf[18:20], m.DlVlan)
	buf[20] = m.DlVlanPcp
	// buf[21] pad
	putUint16(buf[22:24], m.DlType)
	buf[24] = m.NwTos
	buf[25] = m.NwProto
	// buf[26:28] pad
	putUint32(buf[28:32], m.NwSrc)
	putUint32(buf[32:36], m.NwDst)
	putUint16(buf[36:38], m.TpSrc)
	putUint16(buf[38:40], m.TpDst)
	return append(b, buf[:]...)
}

// UnmarshalMatch parses a Match from the front of b.
func UnmarshalMatch(b []byte) (Match, error) {
	if len(b) < MatchLen {
		return Match{}, ErrShort
	}
	var m Match
	m.Wildcards = getUint32(b[0:4])
	m.InPort = getUint16(b[4:6])
	copy(m.DlSrc[:], b[6:12])
	copy(m.DlDst[:], b[12:18])
	m.DlVlan = getUint16(b[18:20])
	m.DlVlanPcp = b[20]
	m.DlType = getUint16(b[22:24])
	m.NwTos = b[24]
	m.NwProto = b[25]
	m.NwSrc = getUint32(b[28:32])
	m.NwDst = getUint32(b[32:36])
	m.TpSrc = getUint16(b[36:38])
	m.TpDst = getUint16(b[38:40])
	return m, nil
}
