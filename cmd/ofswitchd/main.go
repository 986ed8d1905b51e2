//go:build linux

// Command ofswitchd is the software OpenFlow 1.0 datapath daemon
// (spec.md §1): it wires the genetlink control transport, the host
// interface binder, and the flow-table chain behind dp.Core, then
// dispatches every inbound admin/OpenFlow request until told to stop.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ofswitchd/go-ofswitch/control"
	"github.com/ofswitchd/go-ofswitch/controlnl"
	"github.com/ofswitchd/go-ofswitch/dp"
	"github.com/ofswitchd/go-ofswitch/flowtable"
	"github.com/ofswitchd/go-ofswitch/hostnet"
)

func main() {
	var (
		mfrDesc     string
		hwDesc      string
		swDesc      string
		serial      string
		missSendLen uint
	)
	flag.StringVar(&mfrDesc, "mfr-desc", dp.DefaultMfrDesc, "manufacturer description reported in DESC stats")
	flag.StringVar(&hwDesc, "hw-desc", dp.DefaultHwDesc, "hardware description reported in DESC stats")
	flag.StringVar(&swDesc, "sw-desc", dp.DefaultSwDesc, "software description reported in DESC stats")
	flag.StringVar(&serial, "serial", dp.DefaultSerial, "serial number reported in DESC stats")
	flag.UintVar(&missSendLen, "miss-send-len", 128, "default miss_send_len for newly created datapaths")
	flag.Parse()

	logger := log.New(os.Stderr, "ofswitchd: ", log.LstdFlags)

	cfg, err := dp.NewConfig(
		dp.WithLogger(logger),
		dp.WithDescriptions(mfrDesc, hwDesc, swDesc, serial),
		dp.WithMissSendLen(uint16(missSendLen)),
	)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	conn, err := controlnl.Dial()
	if err != nil {
		logger.Fatalf("dial control netlink family: %v", err)
	}
	defer conn.Close()

	newChain := func() dp.Chain { return flowtable.New() }
	core := dp.NewCore(hostnet.NewBinder(), conn, nil, cfg, newChain)
	dispatcher := control.NewDispatcher(core, conn)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigc
		logger.Printf("shutting down...")
		conn.Close()
	}()

	logger.Printf("listening for control requests")
	if err := conn.Listen(dispatcher.Handle); err != nil {
		logger.Fatalf("listen: %v", err)
	}
}
