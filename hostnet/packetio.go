//go:build linux

package hostnet

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/ofswitchd/go-ofswitch/dp"
	"golang.org/x/sys/unix"
)

// PacketIO is a raw AF_PACKET socket bound to one interface, implementing
// dp.PortIO. It receives every frame the interface sees (ETH_P_ALL) once
// promiscuous mode is enabled, and writes frames back out the same
// interface.
type PacketIO struct {
	fd        int
	ifindex   int
	mu        sync.Mutex
	cb        func(*dp.Frame)
	closeOnce sync.Once
	closed    chan struct{}
}

func openPacketIO(ifindex int) (*PacketIO, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return nil, fmt.Errorf("hostnet: open AF_PACKET socket: %w", err)
	}

	addr := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  ifindex,
	}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("hostnet: bind AF_PACKET socket: %w", err)
	}

	return &PacketIO{fd: fd, ifindex: ifindex, closed: make(chan struct{})}, nil
}

// htons converts a 16-bit value from host to network byte order, matching
// the kernel's expectation for sockaddr_ll.sll_protocol.
func htons(v uint16) uint16 {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return binary.LittleEndian.Uint16(b[:])
}

// OnReceive registers cb and starts the socket's receive loop. Only one
// callback may be registered, matching the bridge hook's "installed
// exactly once" contract (spec.md §4.10).
func (p *PacketIO) OnReceive(cb func(frame *dp.Frame)) {
	p.mu.Lock()
	p.cb = cb
	p.mu.Unlock()

	go p.receiveLoop()
}

func (p *PacketIO) receiveLoop() {
	buf := make([]byte, 65536)
	for {
		n, _, err := unix.Recvfrom(p.fd, buf, 0)
		if err != nil {
			select {
			case <-p.closed:
				return
			default:
				continue
			}
		}
		if n == 0 {
			continue
		}

		frame := dp.NewFrame(append([]byte(nil), buf[:n]...))

		p.mu.Lock()
		cb := p.cb
		p.mu.Unlock()
		if cb != nil {
			cb(frame)
		}
	}
}

// Transmit sends frame out the bound interface.
func (p *PacketIO) Transmit(frame *dp.Frame) error {
	addr := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  p.ifindex,
	}
	if err := unix.Sendto(p.fd, frame.Bytes(), 0, addr); err != nil {
		return fmt.Errorf("hostnet: transmit: %w", err)
	}
	return nil
}

// Close shuts down the receive loop and the underlying socket.
func (p *PacketIO) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return unix.Close(p.fd)
}
