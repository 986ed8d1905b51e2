package dp

// installBridgeHook registers the single host-to-core frame path for one
// port (spec.md §4.10): per incoming frame it makes the frame uniquely
// owned, invokes the Forwarding Engine, and returns to the host stack
// having consumed the frame. It is installed exactly once, when the port
// is constructed (newDatapath for OFPPLocal, addPort for everything else).
func installBridgeHook(d *Datapath, portNo uint16, io PortIO) {
	io.OnReceive(func(frame *Frame) {
		bridgeHook(d, portNo, frame)
	})
}

// bridgeHook is the hook body, split out from installBridgeHook; its only
// caller is the callback installBridgeHook registers.
func bridgeHook(d *Datapath, portNo uint16, frame *Frame) {
	d.OnIngress(portNo, frame)
}
