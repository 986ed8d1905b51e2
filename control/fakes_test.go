//go:build linux

package control

import (
	"fmt"
	"sync"

	"github.com/ofswitchd/go-ofswitch/dp"
	"github.com/ofswitchd/go-ofswitch/flowtable"
)

// fakeIface is a minimal dp.HostIface for tests; no real device is opened.
type fakeIface struct {
	name string
	mac  [6]byte
}

func (f *fakeIface) Name() string             { return f.name }
func (f *fakeIface) HardwareAddr() [6]byte     { return f.mac }
func (f *fakeIface) MTU() int                  { return 1500 }
func (f *fakeIface) SetPromiscuous(bool) error { return nil }
func (f *fakeIface) AdminUp() (bool, error)    { return true, nil }
func (f *fakeIface) CarrierUp() (bool, error)  { return true, nil }
func (f *fakeIface) Close() error              { return nil }

// fakePortIO is a minimal dp.PortIO; nothing ever arrives on it, and
// Transmit just records what was sent.
type fakePortIO struct {
	mu  sync.Mutex
	out []*dp.Frame
}

func (p *fakePortIO) OnReceive(cb func(*dp.Frame)) {}
func (p *fakePortIO) Transmit(f *dp.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = append(p.out, f)
	return nil
}

// fakeBinder opens a fresh fakeIface/fakePortIO per call, failing only for
// names registered in fail.
type fakeBinder struct {
	fail map[string]bool
}

func (b *fakeBinder) Open(name string) (dp.HostIface, dp.PortIO, error) {
	if b.fail[name] {
		return nil, nil, fmt.Errorf("fakeBinder: %s: %w", name, dp.ErrNotFound)
	}
	return &fakeIface{name: name, mac: [6]byte{0x02, 0, 0, 0, 0, 1}}, &fakePortIO{}, nil
}

// fakeTransport records every message handed to Unicast/Multicast for test
// assertions.
type fakeTransport struct {
	mu         sync.Mutex
	unicast    []unicastCall
	multicast  []multicastCall
	failUnicast bool
}

type unicastCall struct {
	clientID uint32
	msg      []byte
}

type multicastCall struct {
	group uint16
	msg   []byte
}

func (t *fakeTransport) Unicast(clientID uint32, msg []byte) error {
	if t.failUnicast {
		return fmt.Errorf("fakeTransport: unicast refused")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unicast = append(t.unicast, unicastCall{clientID, append([]byte(nil), msg...)})
	return nil
}

func (t *fakeTransport) Multicast(group uint16, msg []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.multicast = append(t.multicast, multicastCall{group, append([]byte(nil), msg...)})
	return nil
}

func (t *fakeTransport) last() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.unicast) == 0 {
		return nil
	}
	return t.unicast[len(t.unicast)-1].msg
}

// fakeReplier records ReplyDP calls in place of a real controlnl.Conn.
type fakeReplier struct {
	mu    sync.Mutex
	calls []replyDPCall
}

type replyDPCall struct {
	clientID uint32
	id       uint16
	name     string
	mcGroup  uint16
}

func (r *fakeReplier) ReplyDP(clientID uint32, id uint16, name string, mcGroup uint16) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, replyDPCall{clientID, id, name, mcGroup})
	return nil
}

func (r *fakeReplier) lastCall() replyDPCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[len(r.calls)-1]
}

func newChainFactory() func() dp.Chain {
	return func() dp.Chain { return flowtable.New() }
}
