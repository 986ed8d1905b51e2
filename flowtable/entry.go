// Package flowtable is a concrete, in-memory reference implementation of
// the flow classifier the core treats as an external collaborator
// (spec.md §1, "Chain"): match/action tables with idle/hard timeouts and
// an emergency table, grounded in the match/action vocabulary of the
// teacher pack's ovs-ofctl-style flow syntax.
package flowtable

import "github.com/ofswitchd/go-ofswitch/dp"

// entry is one flow table row: a wildcard match, its priority, its
// actions, and the bookkeeping needed for statistics and timeout
// eviction.
type entry struct {
	match       dp.Match
	cookie      uint64
	priority    uint16
	idleTimeout uint16
	hardTimeout uint16
	sendFlowRem bool
	emergency   bool
	actions     []dp.Action

	createdAt int64
	lastUsed  int64

	packetCount uint64
	byteCount   uint64
}

// matches reports whether frame's flow key, described by key, satisfies
// e's wildcard match.
func (e *entry) matches(key dp.Match, inPort uint16) bool {
	w := e.match.Wildcards

	if w&wildcardInPort == 0 && e.match.InPort != inPort {
		return false
	}
	if w&wildcardDlVlan == 0 && e.match.DlVlan != key.DlVlan {
		return false
	}
	if w&wildcardDlSrc == 0 && e.match.DlSrc != key.DlSrc {
		return false
	}
	if w&wildcardDlDst == 0 && e.match.DlDst != key.DlDst {
		return false
	}
	if w&wildcardDlType == 0 && e.match.DlType != key.DlType {
		return false
	}
	if w&wildcardNwProto == 0 && e.match.NwProto != key.NwProto {
		return false
	}
	if w&wildcardTpSrc == 0 && e.match.TpSrc != key.TpSrc {
		return false
	}
	if w&wildcardTpDst == 0 && e.match.TpDst != key.TpDst {
		return false
	}
	if w&wildcardNwTos == 0 && e.match.NwTos != key.NwTos {
		return false
	}
	if !nwMatches(w, wildcardNwSrcShift, e.match.NwSrc, key.NwSrc) {
		return false
	}
	if !nwMatches(w, wildcardNwDstShift, e.match.NwDst, key.NwDst) {
		return false
	}
	return true
}

// nwMatches implements the CIDR-style prefix wildcarding ofp_flow_wildcards
// uses for nw_src/nw_dst: the wildcard field at shift encodes how many
// low-order bits to ignore; 32 or more matches everything.
func nwMatches(wildcards uint32, shift uint, want, got uint32) bool {
	bits := (wildcards >> shift) & 0x3f
	if bits >= 32 {
		return true
	}
	mask := ^uint32(0) << bits
	return want&mask == got&mask
}

// exactMatches reports whether e's match and priority are identical to
// other's, used by strict flow-mod commands (spec.md §4.6 passthrough).
func (e *entry) exactMatches(other dp.Match, priority uint16) bool {
	return e.match == other && e.priority == priority
}

// overlaps reports whether e's match and other agree on in_port, dl_type
// and nw_proto (a field wildcarded on either side agrees with anything),
// used by the CHECK_OVERLAP flow-mod flag. No other field is compared, so
// matches that differ only in other fields are reported as overlapping.
func (e *entry) overlaps(other dp.Match) bool {
	return wildcardsOverlap(e.match, other)
}

func wildcardsOverlap(a, b dp.Match) bool {
	if !fieldOverlap(a.Wildcards, wildcardInPort, a.InPort, b.Wildcards, wildcardInPort, b.InPort) {
		return false
	}
	if !fieldOverlap(a.Wildcards, wildcardDlType, a.DlType, b.Wildcards, wildcardDlType, b.DlType) {
		return false
	}
	if !fieldOverlap(a.Wildcards, wildcardNwProto, a.NwProto, b.Wildcards, wildcardNwProto, b.NwProto) {
		return false
	}
	return true
}

func fieldOverlap[T comparable](aw uint32, abit uint32, a T, bw uint32, bbit uint32, b T) bool {
	if aw&abit != 0 || bw&bbit != 0 {
		return true
	}
	return a == b
}

func (e *entry) expired(now int64) (bool, uint8) {
	if e.hardTimeout != 0 && now-e.createdAt >= int64(e.hardTimeout) {
		return true, flowRemovedHardTimeout
	}
	if e.idleTimeout != 0 && now-e.lastUsed >= int64(e.idleTimeout) {
		return true, flowRemovedIdleTimeout
	}
	return false, 0
}

func (e *entry) toFlowEntry(tableID uint8) dp.FlowEntry {
	return dp.FlowEntry{
		TableID:     tableID,
		Match:       e.match,
		Cookie:      e.cookie,
		Priority:    e.priority,
		IdleTimeout: e.idleTimeout,
		HardTimeout: e.hardTimeout,
		CreatedAt:   e.createdAt,
		LastUsed:    e.lastUsed,
		PacketCount: e.packetCount,
		ByteCount:   e.byteCount,
		Actions:     e.actions,
	}
}

// Reason codes for flow removal (ofp_flow_removed_reason), duplicated
// locally to keep package flowtable independent of package ofp10.
const (
	flowRemovedIdleTimeout uint8 = 0
	flowRemovedHardTimeout uint8 = 1
	flowRemovedDelete      uint8 = 2
)

// Wildcard bits (ofp_flow_wildcards), duplicated locally for the same
// reason.
const (
	wildcardInPort    uint32 = 1 << 0
	wildcardDlVlan    uint32 = 1 << 1
	wildcardDlSrc     uint32 = 1 << 2
	wildcardDlDst     uint32 = 1 << 3
	wildcardDlType    uint32 = 1 << 4
	wildcardNwProto   uint32 = 1 << 5
	wildcardTpSrc     uint32 = 1 << 6
	wildcardTpDst     uint32 = 1 << 7
	wildcardNwSrcShift       = 8
	wildcardNwDstShift       = 14
	wildcardDlVlanPcp uint32 = 1 << 20
	wildcardNwTos     uint32 = 1 << 21

	wildcardAllBits uint32 = (1 << 22) - 1
)
