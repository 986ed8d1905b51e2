package ofp10

// Port is an OpenFlow port number. Values below PortMax name a physical
// switch port; values at or above PortMax (down to PortNone) are virtual
// ports with the semantics documented in spec.md §4.4.
type Port uint16

// Virtual port numbers and the boundary of the physical port range.
const (
	PortMax        Port = 0xff00
	PortInPort     Port = 0xfff8
	PortTable      Port = 0xfff9
	PortNormal     Port = 0xfffa
	PortFlood      Port = 0xfffb
	PortAll        Port = 0xfffc
	PortController Port = 0xfffd
	PortLocal      Port = 0xfffe
	PortNone       Port = 0xffff
)

// Port config bits (ofp_port_config).
const (
	PortConfigDown     uint32 = 1 << 0
	PortConfigNoSTP    uint32 = 1 << 1
	PortConfigNoRecv   uint32 = 1 << 2
	PortConfigNoRecvSTP uint32 = 1 << 3
	PortConfigNoFlood  uint32 = 1 << 4
	PortConfigNoFwd    uint32 = 1 << 5
	PortConfigNoPacketIn uint32 = 1 << 6
)

// Port state bits (ofp_port_state).
const (
	PortStateLinkDown uint32 = 1 << 0
	PortStateSTPMask  uint32 = 3 << 8
)

// Port feature bits (ofp_port_features), used for curr/advertised/
// supported/peer bitmaps.
const (
	PortFeature10MBHD  uint32 = 1 << 0
	PortFeature10MBFD  uint32 = 1 << 1
	PortFeature100MBHD uint32 = 1 << 2
	PortFeature100MBFD uint32 = 1 << 3
	PortFeature1GBHD   uint32 = 1 << 4
	PortFeature1GBFD   uint32 = 1 << 5
	PortFeature10GBFD  uint32 = 1 << 6
	PortFeatureCopper  uint32 = 1 << 7
	PortFeatureFiber   uint32 = 1 << 8
	PortFeatureAutoneg uint32 = 1 << 9
	PortFeaturePause   uint32 = 1 << 10
	PortFeaturePauseAsym uint32 = 1 << 11
)

// PhyPort is the wire layout of ofp_phy_port: a fixed 48-byte structure
// describing one switch port, used in FEATURES_REPLY and PORT_STATUS.
type PhyPort struct {
	PortNo     uint16
	HWAddr     [6]byte
	Name       [16]byte
	Config     uint32
	State      uint32
	Curr       uint32
	Advertised uint32
	Supported  uint32
	Peer       uint32
}

// PhyPortLen is the marshaled size of a PhyPort.
const PhyPortLen = 48

// Marshal appends the wire encoding of p to b.
func (p PhyPort) Marshal(b []byte) []byte {
	var buf [PhyPortLen]byte
	putUint16(buf[0:2], p.PortNo)
	copy(buf[2:8], p.HWAddr[:])
	copy(buf[8:24], p.Name[:])
	putUint32(buf[24:28], p.Config)
	putUint32(buf[28:32], p.State)
	putUint32(buf[32:36], p.Curr)
	putUint32(buf[36:40], p.Advertised)
	putUint32(buf[40:44], p.Supported)
	putUint32(buf[44:48], p.Peer)
	return append(b, buf[:]...)
}

// UnmarshalPhyPort parses a PhyPort from the front of b.
func UnmarshalPhyPort(b []byte) (PhyPort, error) {
	if len(b) < PhyPortLen {
		return PhyPort{}, ErrShort
	}
	var p PhyPort
	p.PortNo = getUint16(b[0:2])
	copy(p.HWAddr[:], b[2:8])
	copy(p.Name[:], b[8:24])
	p.Config = getUint32(b[24:28])
	p.State = getUint32(b[28:32])
	p.Curr = getUint32(b[32:36])
	p.Advertised = getUint32(b[36:40])
	p.Supported = getUint32(b[40:44])
	p.Peer = getUint32(b[44:48])
	return p, nil
}

// NewName truncates or zero-pads s into the fixed 16-byte Name field.
func NewName(s string) [16]byte {
	var name [16]byte
	copy(name[:], s)
	return name
}
