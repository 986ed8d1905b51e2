package dp

// Sender identifies the origin of a control-plane request and the target
// of its unicast reply (spec.md §3). ClientID addresses the control
// transport's unicast destination; Xid is stitched into the OpenFlow
// reply header; Seq is transport-specific sequencing metadata (a netlink
// sequence number when the transport is Generic Netlink).
type Sender struct {
	Xid      uint32
	ClientID uint32
	Seq      uint32
}

// IsZero reports whether s is the empty Sender, one that names no
// specific requester.
func (s Sender) IsZero() bool {
	return s == Sender{}
}
