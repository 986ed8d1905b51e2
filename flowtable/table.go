package flowtable

import (
	"sort"
	"sync"

	"github.com/ofswitchd/go-ofswitch/dp"
)

// table is one flow table: entries kept sorted by descending priority so
// lookup stops at the first match, and iteration in a stable order for
// the Stats Dump Engine's resumable Iterate contract.
type table struct {
	mu      sync.Mutex
	entries []*entry
	name    string
	maxSize uint32

	lookupCount  uint64
	matchedCount uint64
}

func newTable(name string, maxSize uint32) *table {
	return &table{name: name, maxSize: maxSize}
}

// insert adds e, replacing an exact (match, priority) duplicate in place
// so a repeated ADD behaves like MODIFY_STRICT.
func (t *table) insert(e *entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, existing := range t.entries {
		if existing.exactMatches(e.match, e.priority) {
			t.entries[i] = e
			return
		}
	}

	t.entries = append(t.entries, e)
	sort.SliceStable(t.entries, func(i, j int) bool {
		return t.entries[i].priority > t.entries[j].priority
	})
}

// lookup returns the highest-priority entry matching key, or nil on a
// table-miss, updating the table's lookup/matched counters. The entry's
// own counters are left to the caller.
func (t *table) lookup(key dp.Match, inPort uint16) *entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lookupCount++
	for _, e := range t.entries {
		if e.matches(key, inPort) {
			t.matchedCount++
			return e
		}
	}
	return nil
}

// deleteMatching removes every entry overlapping filter (match, outPort),
// invoking onRemoved for each one, used by FLOW_MOD DELETE and
// DELETE_STRICT.
func (t *table) deleteMatching(filter dp.Match, priority uint16, strict bool, outPort uint16, onRemoved func(*entry)) {
	t.mu.Lock()
	kept := t.entries[:0:0]
	var removed []*entry
	for _, e := range t.entries {
		match := false
		if strict {
			match = e.exactMatches(filter, priority)
		} else {
			match = e.overlaps(filter)
		}
		if match && outPort != noFilterPort && !entryOutputsTo(e, outPort) {
			match = false
		}
		if match {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	t.entries = kept
	t.mu.Unlock()

	for _, e := range removed {
		onRemoved(e)
	}
}

// noFilterPort is the sentinel meaning "any out_port" in a flow-mod
// delete filter (ofp_flow_mod.out_port == OFPP_NONE in OFP 1.0).
const noFilterPort uint16 = 0xffff

func entryOutputsTo(e *entry, outPort uint16) bool {
	for _, a := range e.actions {
		if a.Output != nil && a.Output.Port == outPort {
			return true
		}
	}
	return false
}

// sweepTimeouts evicts every entry whose timeout has elapsed, invoking
// onRemoved for each one (spec.md §4.8).
func (t *table) sweepTimeouts(now int64, onRemoved func(*entry, uint8)) {
	t.mu.Lock()
	kept := t.entries[:0:0]
	type victim struct {
		e      *entry
		reason uint8
	}
	var victims []victim
	for _, e := range t.entries {
		if expired, reason := e.expired(now); expired {
			victims = append(victims, victim{e, reason})
			continue
		}
		kept = append(kept, e)
	}
	t.entries = kept
	t.mu.Unlock()

	for _, v := range victims {
		onRemoved(v.e, v.reason)
	}
}

// snapshot returns every entry at or after position matching (match,
// outPort), or nil when position is past the end.
func (t *table) snapshot(filter dp.Match, outPort uint16, position int) []*entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	if position >= len(t.entries) {
		return nil
	}

	var out []*entry
	for _, e := range t.entries[position:] {
		if outPort != noFilterPort && !entryOutputsTo(e, outPort) {
			continue
		}
		if !wildcardsOverlap(e.match, filter) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (t *table) stats() (active uint32, lookups, matched uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return uint32(len(t.entries)), t.lookupCount, t.matchedCount
}
