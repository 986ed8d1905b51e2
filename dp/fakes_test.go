package dp

import (
	"sync"
	"testing"
)

// fakeIface is a minimal HostIface for tests: no real device, fixed MTU,
// always admin/carrier up unless overridden.
type fakeIface struct {
	name      string
	mac       [6]byte
	mtu       int
	adminUp   bool
	carrierUp bool
}

func newFakeIface(name string, lastMACByte byte) *fakeIface {
	return &fakeIface{
		name:      name,
		mac:       [6]byte{0x02, 0, 0, 0, 0, lastMACByte},
		mtu:       1500,
		adminUp:   true,
		carrierUp: true,
	}
}

func (f *fakeIface) Name() string             { return f.name }
func (f *fakeIface) HardwareAddr() [6]byte     { return f.mac }
func (f *fakeIface) MTU() int                  { return f.mtu }
func (f *fakeIface) SetPromiscuous(bool) error { return nil }
func (f *fakeIface) AdminUp() (bool, error)    { return f.adminUp, nil }
func (f *fakeIface) CarrierUp() (bool, error)  { return f.carrierUp, nil }
func (f *fakeIface) Close() error              { return nil }

// fakePortIO records every frame handed to Transmit, in order, each as an
// independent byte slice so clone-fairness can be checked by aliasing.
type fakePortIO struct {
	mu  sync.Mutex
	out []*Frame
}

func (p *fakePortIO) OnReceive(cb func(*Frame)) {}

func (p *fakePortIO) Transmit(f *Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = append(p.out, f)
	return nil
}

func (p *fakePortIO) transmitted() []*Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Frame(nil), p.out...)
}

// fakeTransport records Multicast/Unicast calls for PACKET_IN/PORT_STATUS
// assertions without a real controlnl connection.
type fakeTransport struct {
	mu        sync.Mutex
	unicast   [][]byte
	multicast [][]byte
}

func (t *fakeTransport) Unicast(clientID uint32, msg []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unicast = append(t.unicast, append([]byte(nil), msg...))
	return nil
}

func (t *fakeTransport) Multicast(group uint16, msg []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.multicast = append(t.multicast, append([]byte(nil), msg...))
	return nil
}

func (t *fakeTransport) lastMulticast() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.multicast) == 0 {
		return nil
	}
	return t.multicast[len(t.multicast)-1]
}

// fakeChain is a minimal Chain whose RunThroughTables result is fixed per
// test, for exercising the Forwarding Engine without a real flowtable.
type fakeChain struct {
	actions []Action
	err     error
}

func (c *fakeChain) RunThroughTables(frame *Frame, inPort uint16) ([]Action, error) {
	return c.actions, c.err
}
func (c *fakeChain) TimeoutSweep(now int64, onRemoved func(RemovedFlow)) {}
func (c *fakeChain) ControlInput(sender Sender, msg []byte) error        { return nil }
func (c *fakeChain) Iterate(table uint8, match Match, outPort uint16, position int, cb func(FlowEntry) bool) (int, bool) {
	return 0, true
}
func (c *fakeChain) Stats(table uint8) TableStats { return TableStats{TableID: table} }

// newTestDatapath builds a Datapath with a fakeChain and no local device
// IO, wired to a fakeTransport, for forwarding-engine tests. Its
// maintenance loop is stopped automatically at test cleanup.
func newTestDatapath(t *testing.T, chain Chain, transport Transport) *Datapath {
	t.Helper()
	d := newDatapath(1, "dp0", "dp0 (dp 1)", chain, transport, newFakeIface("dp0", 0xff), nil, 128, nil)
	t.Cleanup(d.Close)
	return d
}
