package dp

import (
	"sort"
	"sync"
	"sync/atomic"
)

// DatapathID is a small integer identifying one Datapath within the
// process (spec.md §3).
type DatapathID uint16

// registrySnapshot is the RCU-protected view of the Registry's published
// datapaths (spec.md §5): readers load it with a single atomic pointer
// read and never block a writer; writers build a new snapshot and swap it
// in. Go's garbage collector reclaims the old snapshot once the last
// reader's reference to it is gone, standing in for the explicit
// grace-period reclamation spec.md §9 describes for non-GC languages.
type registrySnapshot struct {
	byID   map[DatapathID]*Datapath
	byName map[string]*Datapath
}

func emptySnapshot() *registrySnapshot {
	return &registrySnapshot{byID: map[DatapathID]*Datapath{}, byName: map[string]*Datapath{}}
}

func (s *registrySnapshot) clone() *registrySnapshot {
	n := &registrySnapshot{
		byID:   make(map[DatapathID]*Datapath, len(s.byID)+1),
		byName: make(map[string]*Datapath, len(s.byName)+1),
	}
	for k, v := range s.byID {
		n.byID[k] = v
	}
	for k, v := range s.byName {
		n.byName[k] = v
	}
	return n
}

// Registry is the process-wide index of datapaths by id and by device
// name (spec.md §4.1, component C1).
type Registry struct {
	mu sync.Mutex // admin lock; held only across the bookkeeping below

	// reservedNames tracks ids/names claimed by Allocate but not yet
	// Published or Released, so a second Allocate cannot race a
	// construction still in progress.
	reservedIDs   map[DatapathID]struct{}
	reservedNames map[string]struct{}

	snap atomic.Pointer[registrySnapshot]
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	r := &Registry{
		reservedIDs:   map[DatapathID]struct{}{},
		reservedNames: map[string]struct{}{},
	}
	r.snap.Store(emptySnapshot())
	return r
}

func (r *Registry) load() *registrySnapshot { return r.snap.Load() }

func (r *Registry) nameTaken(name string) bool {
	if name == "" {
		return false
	}
	if _, ok := r.reservedNames[name]; ok {
		return true
	}
	_, ok := r.load().byName[name]
	return ok
}

func (r *Registry) idTaken(id DatapathID) bool {
	if _, ok := r.reservedIDs[id]; ok {
		return true
	}
	_, ok := r.load().byID[id]
	return ok
}

// Allocate reserves a DatapathID for a datapath under construction
// (spec.md §4.1). If preferredID is nil, the smallest free id is chosen.
// The reservation must be resolved with Publish on success or Release on
// failure.
func (r *Registry) Allocate(preferredID *DatapathID, name string) (DatapathID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if preferredID == nil && name == "" {
		return 0, ErrInvalidArgument
	}
	if r.nameTaken(name) {
		return 0, ErrAlreadyExists
	}

	var id DatapathID
	if preferredID != nil {
		id = *preferredID
		if id == 0 || uint16(id) >= DPMax {
			return 0, ErrInvalidArgument
		}
		if r.idTaken(id) {
			return 0, ErrAlreadyExists
		}
	} else {
		found := false
		for i := DatapathID(1); uint16(i) < DPMax; i++ {
			if !r.idTaken(i) {
				id, found = i, true
				break
			}
		}
		if !found {
			return 0, ErrExhausted
		}
	}

	r.reservedIDs[id] = struct{}{}
	if name != "" {
		r.reservedNames[name] = struct{}{}
	}
	return id, nil
}

// Release aborts a reservation made by Allocate that did not complete
// construction (spec.md §3, "unwinds earlier steps in reverse").
func (r *Registry) Release(id DatapathID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reservedIDs, id)
	if name != "" {
		delete(r.reservedNames, name)
	}
}

// Publish makes a fully constructed Datapath visible to readers and
// resolves its reservation (spec.md §3, "publishes into the Registry").
func (r *Registry) Publish(dpath *Datapath) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, name := dpath.ID(), dpath.Name()
	delete(r.reservedIDs, id)
	if name != "" {
		delete(r.reservedNames, name)
	}

	next := r.load().clone()
	next.byID[id] = dpath
	if name != "" {
		next.byName[name] = dpath
	}
	r.snap.Store(next)
}

// Remove makes id's datapath invisible to new readers (spec.md §3,
// "Destroy... removes from Registry"). It does not wait for in-flight
// readers; that drain happens at the call sites that need it (port
// deletion's read-epoch wait, spec.md §5).
func (r *Registry) Remove(id DatapathID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.load()
	dpath, ok := cur.byID[id]
	if !ok {
		return ErrNotFound
	}

	next := cur.clone()
	delete(next.byID, id)
	delete(next.byName, dpath.Name())
	r.snap.Store(next)
	return nil
}

// GetByID looks up a datapath by id. This is the RCU read path: a single
// atomic pointer load, no locking.
func (r *Registry) GetByID(id DatapathID) (*Datapath, error) {
	dpath, ok := r.load().byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return dpath, nil
}

// GetByName looks up a datapath by device name. RCU read path.
func (r *Registry) GetByName(name string) (*Datapath, error) {
	dpath, ok := r.load().byName[name]
	if !ok {
		return nil, ErrNotFound
	}
	return dpath, nil
}

// Lookup resolves a datapath from an optional id and/or name, per the
// Control Dispatcher's lookup contract (spec.md §4.6): if id is present, it
// is authoritative, and if name is also given it must agree; otherwise
// name alone is used; if neither is given the call is malformed.
func (r *Registry) Lookup(id *DatapathID, name string) (*Datapath, error) {
	switch {
	case id != nil:
		dpath, err := r.GetByID(*id)
		if err != nil {
			return nil, err
		}
		if name != "" && dpath.Name() != name {
			return nil, ErrInvalidArgument
		}
		return dpath, nil
	case name != "":
		return r.GetByName(name)
	default:
		return nil, ErrInvalidArgument
	}
}

// Iterate returns every published datapath, ordered by id for determinism.
func (r *Registry) Iterate() []*Datapath {
	snap := r.load()
	out := make([]*Datapath, 0, len(snap.byID))
	for _, d := range snap.byID {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
