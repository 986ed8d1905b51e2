package flowtable

import (
	"fmt"
	"sync"
	"time"

	"github.com/ofswitchd/go-ofswitch/dp"
	"github.com/ofswitchd/go-ofswitch/ofp10"
)

// numTables is the fixed table count of the reference chain (spec.md §4.6
// treats the table count as implementation-defined; one normal table plus
// one emergency table is the minimum needed to exercise the emergency-flow
// semantics).
const numTables = 2

const emergencyTable uint8 = 1

// Chain is the concrete, in-memory reference implementation of dp.Chain:
// a short pipeline of match/action tables with idle/hard timeouts, grounded
// in the match semantics of ofp10.Match and the action vocabulary of
// ofp10.Action.
type Chain struct {
	mu     sync.Mutex
	tables [numTables]*table
}

// New constructs a Chain with its fixed table set. It is passed to
// dp.NewCore as the newChain factory, invoked once per created datapath.
func New() *Chain {
	c := &Chain{}
	c.tables[0] = newTable("main", 0)
	c.tables[1] = newTable("emergency", 0)
	return c
}

// RunThroughTables evaluates frame against the main table first, falling
// through to the emergency table only when the main table misses entirely
// (spec.md §4.6, emergency flows activate when the controller connection
// is lost; the reference chain approximates this by treating the
// emergency table as a fallback chain rather than gating it on connection
// state, which is outside the Chain boundary).
func (c *Chain) RunThroughTables(frame *dp.Frame, inPort uint16) ([]dp.Action, error) {
	key := classify(frame, inPort)

	if e := c.tables[0].lookup(key, inPort); e != nil {
		now := time.Now().Unix()
		e.lastUsed = now
		e.packetCount++
		e.byteCount += uint64(frame.PacketLength())
		return e.actions, nil
	}
	if e := c.tables[emergencyTable].lookup(key, inPort); e != nil {
		now := time.Now().Unix()
		e.lastUsed = now
		e.packetCount++
		e.byteCount += uint64(frame.PacketLength())
		return e.actions, nil
	}
	return nil, nil
}

// TimeoutSweep evicts every flow across every table whose idle or hard
// timeout elapsed as of now (spec.md §4.8).
func (c *Chain) TimeoutSweep(now int64, onRemoved func(dp.RemovedFlow)) {
	for id, t := range c.tables {
		tableID := uint8(id)
		t.sweepTimeouts(now, func(e *entry, reason uint8) {
			onRemoved(toRemovedFlow(e, tableID, reason, now))
		})
	}
}

func toRemovedFlow(e *entry, tableID uint8, reason uint8, now int64) dp.RemovedFlow {
	dur := now - e.createdAt
	if dur < 0 {
		dur = 0
	}
	return dp.RemovedFlow{
		FlowEntry:   e.toFlowEntry(tableID),
		Reason:      reason,
		SendFlowRem: e.sendFlowRem,
		Emergency:   e.emergency,
		DurationSec: uint32(dur),
		DurationNs:  0,
	}
}

// ControlInput decodes a raw OpenFlow message from sender and applies it
// if it is a FLOW_MOD; any other message type is ignored (spec.md §4.6
// scopes the Chain boundary to flow-table mutation only, leaving the rest
// of the control surface to package control).
func (c *Chain) ControlInput(sender dp.Sender, msg []byte) error {
	hdr, err := ofp10.UnmarshalHeader(msg)
	if err != nil {
		return fmt.Errorf("flowtable: decode header: %w", err)
	}
	if hdr.Type != ofp10.TypeFlowMod {
		return nil
	}
	if len(msg) < ofp10.HeaderLen {
		return ofp10.ErrShort
	}

	fm, err := ofp10.UnmarshalFlowMod(msg[ofp10.HeaderLen:])
	if err != nil {
		return fmt.Errorf("flowtable: decode flow_mod: %w", err)
	}

	return c.applyFlowMod(fm)
}

func (c *Chain) applyFlowMod(fm ofp10.FlowMod) error {
	tableID := uint8(0)
	if fm.Flags&ofp10.FlowModFlagEmergency != 0 {
		tableID = emergencyTable
	}
	t := c.tables[tableID]

	match := convertMatch(fm.Match)
	outPort := uint16(fm.OutPort)

	switch fm.Command {
	case ofp10.FlowModCommandAdd:
		if fm.Flags&ofp10.FlowModFlagCheckOverlap != 0 {
			if c.hasOverlap(t, match, fm.Priority) {
				return fmt.Errorf("flowtable: overlapping flow at priority %d: %w", fm.Priority, dp.ErrFlowOverlap)
			}
		}
		t.insert(newEntry(fm, tableID))

	case ofp10.FlowModCommandModify:
		t.deleteMatching(match, fm.Priority, false, noFilterPort, func(*entry) {})
		t.insert(newEntry(fm, tableID))

	case ofp10.FlowModCommandModifyStrict:
		t.deleteMatching(match, fm.Priority, true, noFilterPort, func(*entry) {})
		t.insert(newEntry(fm, tableID))

	case ofp10.FlowModCommandDelete:
		t.deleteMatching(match, fm.Priority, false, outPort, func(*entry) {})

	case ofp10.FlowModCommandDeleteStrict:
		t.deleteMatching(match, fm.Priority, true, outPort, func(*entry) {})

	default:
		return fmt.Errorf("flowtable: unknown flow_mod command %d", fm.Command)
	}
	return nil
}

func (c *Chain) hasOverlap(t *table, match dp.Match, priority uint16) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	probe := &entry{match: match}
	for _, e := range t.entries {
		if e.priority == priority && probe.overlaps(e.match) {
			return true
		}
	}
	return false
}

func newEntry(fm ofp10.FlowMod, tableID uint8) *entry {
	now := time.Now().Unix()
	return &entry{
		match:       convertMatch(fm.Match),
		cookie:      fm.Cookie,
		priority:    fm.Priority,
		idleTimeout: fm.IdleTimeout,
		hardTimeout: fm.HardTimeout,
		sendFlowRem: fm.Flags&ofp10.FlowModFlagSendFlowRem != 0,
		emergency:   tableID == emergencyTable,
		actions:     dp.ConvertActions(fm.Actions),
		createdAt:   now,
		lastUsed:    now,
	}
}

func convertMatch(m ofp10.Match) dp.Match {
	return dp.Match{
		Wildcards: m.Wildcards,
		InPort:    m.InPort,
		DlSrc:     m.DlSrc,
		DlDst:     m.DlDst,
		DlVlan:    m.DlVlan,
		DlVlanPcp: m.DlVlanPcp,
		DlType:    m.DlType,
		NwTos:     m.NwTos,
		NwProto:   m.NwProto,
		NwSrc:     m.NwSrc,
		NwDst:     m.NwDst,
		TpSrc:     m.TpSrc,
		TpDst:     m.TpDst,
	}
}

// Iterate walks table in ascending position order, reporting every entry
// matching match and outPort, for the Stats Dump Engine (spec.md §4.7).
func (c *Chain) Iterate(tableID uint8, match dp.Match, outPort uint16, position int, cb func(dp.FlowEntry) bool) (int, bool) {
	if int(tableID) >= len(c.tables) {
		return position, true
	}
	t := c.tables[tableID]
	t.mu.Lock()
	var tail []*entry
	if position < len(t.entries) {
		tail = append(tail, t.entries[position:]...)
	}
	t.mu.Unlock()

	for i, e := range tail {
		if outPort != noFilterPort && !entryOutputsTo(e, outPort) {
			continue
		}
		if !wildcardsOverlap(e.match, match) {
			continue
		}
		if !cb(e.toFlowEntry(tableID)) {
			return position + i + 1, false
		}
	}
	return position + len(tail), true
}

// Stats reports table-level statistics for tableID (spec.md §4.7).
func (c *Chain) Stats(tableID uint8) dp.TableStats {
	if int(tableID) >= len(c.tables) {
		return dp.TableStats{TableID: tableID}
	}
	t := c.tables[tableID]
	active, lookups, matched := t.stats()
	return dp.TableStats{
		TableID:      tableID,
		Name:         t.name,
		Wildcards:    wildcardAllBits,
		MaxEntries:   t.maxSize,
		ActiveCount:  active,
		LookupCount:  lookups,
		MatchedCount: matched,
	}
}
