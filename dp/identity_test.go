package dp

import "testing"

func TestMakeDatapathIDPacksIDAndMAC(t *testing.T) {
	mac := [6]byte{0x02, 0x11, 0x22, 0x33, 0x44, 0x55}
	got := MakeDatapathID(7, mac)

	want := uint64(7)<<48 | 0x02<<40 | 0x11<<32 | 0x22<<24 | 0x33<<16 | 0x44<<8 | 0x55
	if got != want {
		t.Fatalf("MakeDatapathID = %#x, want %#x", got, want)
	}
}

func TestMakeDatapathIDZeroMACKeepsIDVisible(t *testing.T) {
	got := MakeDatapathID(42, [6]byte{})
	if got != uint64(42)<<48 {
		t.Fatalf("MakeDatapathID with zero mac = %#x, want %#x", got, uint64(42)<<48)
	}
}
