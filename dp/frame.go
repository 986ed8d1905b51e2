package dp

// EthHLen is the length of an untagged Ethernet header.
const EthHLen = 14

// vlanHLen is the additional length an 802.1Q tag inserts after the MAC
// addresses.
const vlanHLen = 4

const vlanTPID = 0x8100

// Frame is the core's packet buffer abstraction — the target-language
// stand-in for the kernel's skb (spec.md §9). A Frame may be shared by
// multiple owners (e.g. while being flooded to several ports); callers that
// need an exclusive copy must call Unshare or Clone first.
type Frame struct {
	data   []byte
	shared bool
}

// NewFrame wraps b as an unshared Frame. The caller transfers ownership of
// b to the Frame.
func NewFrame(b []byte) *Frame {
	return &Frame{data: b}
}

// Len returns the number of bytes in the frame.
func (f *Frame) Len() int { return len(f.data) }

// Bytes returns the frame's backing slice. Callers must not retain it past
// the frame's lifetime if the frame may still be shared.
func (f *Frame) Bytes() []byte { return f.data }

// IsShared reports whether other owners may hold a reference to the same
// backing storage.
func (f *Frame) IsShared() bool { return f.shared }

// MarkShared records that the frame's storage now has more than one
// logical owner, so that a later Unshare returns a private clone.
func (f *Frame) MarkShared() { f.shared = true }

// Clone returns a new Frame with its own copy of the backing bytes.
func (f *Frame) Clone() *Frame {
	b := make([]byte, len(f.data))
	copy(b, f.data)
	return &Frame{data: b}
}

// Unshare returns f unmodified if it is not shared, or a private clone if
// it is. This is the clone-on-write step the bridge hook and OnIngress
// perform before handing a frame to the Forwarding Engine.
func (f *Frame) Unshare() *Frame {
	if !f.shared {
		return f
	}
	return f.Clone()
}

// HasVLANTag reports whether the frame's Ethernet header carries an
// 802.1Q tag.
func (f *Frame) HasVLANTag() bool {
	if len(f.data) < EthHLen+2 {
		return false
	}
	return int(f.data[12])<<8|int(f.data[13]) == vlanTPID
}

// PacketLength computes the transmit-policy packet length used by the MTU
// check in spec.md §4.4: the frame length minus the Ethernet header and,
// if present, the VLAN tag.
func (f *Frame) PacketLength() int {
	n := len(f.data) - EthHLen
	if f.HasVLANTag() {
		n -= vlanHLen
	}
	if n < 0 {
		return 0
	}
	return n
}

// EtherType returns the frame's EtherType field, skipping over a VLAN tag
// if present. Returns 0 if the frame is too short to contain one.
func (f *Frame) EtherType() uint16 {
	off := 12
	if len(f.data) < off+2 {
		return 0
	}
	if f.HasVLANTag() {
		off += vlanHLen
	}
	if len(f.data) < off+2 {
		return 0
	}
	return uint16(f.data[off])<<8 | uint16(f.data[off+1])
}

// DlSrc returns the frame's source MAC address.
func (f *Frame) DlSrc() [6]byte {
	var mac [6]byte
	if len(f.data) >= 12 {
		copy(mac[:], f.data[6:12])
	}
	return mac
}

// DlDst returns the frame's destination MAC address.
func (f *Frame) DlDst() [6]byte {
	var mac [6]byte
	if len(f.data) >= 6 {
		copy(mac[:], f.data[0:6])
	}
	return mac
}

// PrependEthernetHeader restores an Ethernet header of dst/src/ethertype in
// front of the frame's current payload, for use when the host stack has
// already stripped it (spec.md §4.3, §4.10).
func (f *Frame) PrependEthernetHeader(dst, src [6]byte, ethertype uint16) {
	hdr := make([]byte, EthHLen)
	copy(hdr[0:6], dst[:])
	copy(hdr[6:12], src[:])
	hdr[12] = byte(ethertype >> 8)
	hdr[13] = byte(ethertype)
	f.data = append(hdr, f.data...)
}
