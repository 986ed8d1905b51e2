package dp

import "testing"

func untaggedFrame(payloadLen int) []byte {
	b := make([]byte, EthHLen+payloadLen)
	b[12], b[13] = 0x08, 0x00 // IPv4
	return b
}

func taggedFrame(payloadLen int) []byte {
	b := make([]byte, EthHLen+vlanHLen+payloadLen)
	b[12], b[13] = 0x81, 0x00 // 802.1Q TPID
	b[16], b[17] = 0x08, 0x00 // inner ethertype, IPv4
	return b
}

func TestFrameEtherTypeAndVLANDetection(t *testing.T) {
	f := NewFrame(untaggedFrame(10))
	if f.HasVLANTag() {
		t.Fatal("untagged frame reported as VLAN-tagged")
	}
	if f.EtherType() != 0x0800 {
		t.Fatalf("EtherType = %#x, want 0x0800", f.EtherType())
	}

	tf := NewFrame(taggedFrame(10))
	if !tf.HasVLANTag() {
		t.Fatal("tagged frame not detected as VLAN-tagged")
	}
	if tf.EtherType() != 0x0800 {
		t.Fatalf("tagged EtherType = %#x, want 0x0800", tf.EtherType())
	}
}

func TestFramePacketLengthExcludesHeaderAndVLAN(t *testing.T) {
	f := NewFrame(untaggedFrame(20))
	if f.PacketLength() != 20 {
		t.Fatalf("untagged PacketLength = %d, want 20", f.PacketLength())
	}

	tf := NewFrame(taggedFrame(20))
	if tf.PacketLength() != 20 {
		t.Fatalf("tagged PacketLength = %d, want 20", tf.PacketLength())
	}
}

func TestFrameCloneIsIndependentCopy(t *testing.T) {
	orig := NewFrame([]byte{1, 2, 3})
	clone := orig.Clone()

	clone.Bytes()[0] = 0xff
	if orig.Bytes()[0] == 0xff {
		t.Fatal("mutating clone affected original frame's backing array")
	}
}

func TestFrameUnshareOnlyClonesWhenShared(t *testing.T) {
	f := NewFrame([]byte{1, 2, 3})
	if f.Unshare() != f {
		t.Fatal("Unshare cloned an unshared frame")
	}

	f.MarkShared()
	u := f.Unshare()
	if u == f {
		t.Fatal("Unshare did not clone a shared frame")
	}
}

func TestFrameDlSrcDst(t *testing.T) {
	b := untaggedFrame(0)
	copy(b[0:6], []byte{1, 2, 3, 4, 5, 6})
	copy(b[6:12], []byte{7, 8, 9, 10, 11, 12})
	f := NewFrame(b)

	if f.DlDst() != [6]byte{1, 2, 3, 4, 5, 6} {
		t.Fatalf("DlDst = %v", f.DlDst())
	}
	if f.DlSrc() != [6]byte{7, 8, 9, 10, 11, 12} {
		t.Fatalf("DlSrc = %v", f.DlSrc())
	}
}

func TestPrependEthernetHeaderRestoresHeader(t *testing.T) {
	f := NewFrame([]byte{0xaa, 0xbb})
	dst := [6]byte{1, 1, 1, 1, 1, 1}
	src := [6]byte{2, 2, 2, 2, 2, 2}
	f.PrependEthernetHeader(dst, src, 0x0800)

	if f.Len() != EthHLen+2 {
		t.Fatalf("Len() = %d, want %d", f.Len(), EthHLen+2)
	}
	if f.DlDst() != dst || f.DlSrc() != src {
		t.Fatalf("header not restored: dst=%v src=%v", f.DlDst(), f.DlSrc())
	}
	if f.EtherType() != 0x0800 {
		t.Fatalf("EtherType = %#x, want 0x0800", f.EtherType())
	}
}
