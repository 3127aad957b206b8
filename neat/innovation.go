package neat

import "sync"

// nodePair keys the innovation registry by (source, target) node ids.
type nodePair struct {
	In  int
	Out int
}

// InnovationRegistry is the run-wide historical marker service. Two
// structural mutations that independently introduce the same (source,
// target) connection receive the same innovation number, which is the
// invariant crossover alignment depends on.
//
// The registry is the only state shared by concurrent mutation operations;
// all lookups and allocations are serialized behind a mutex. It is created
// at run start, only grows, and is snapshotted into checkpoints so a
// resumed run keeps numbering consistently.
type InnovationRegistry struct {
	mu         sync.Mutex
	pairs      map[nodePair]int
	nextInnov  int
	nextNodeID int
}

// NewInnovationRegistry creates a registry whose hidden-node ids start at
// firstHiddenID (one past the last output id, by convention).
func NewInnovationRegistry(firstHiddenID int) *InnovationRegistry {
	return &InnovationRegistry{
		pairs:      make(map[nodePair]int),
		nextInnov:  1,
		nextNodeID: firstHiddenID,
	}
}

// Innovation returns the innovation number for the (in, out) connection,
// allocating a new one if the pair has never been seen in this run.
func (r *InnovationRegistry) Innovation(in, out int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := nodePair{In: in, Out: out}
	if innov, ok := r.pairs[key]; ok {
		return innov
	}
	innov := r.nextInnov
	r.nextInnov++
	r.pairs[key] = innov
	return innov
}

// NewNodeID allocates a fresh hidden-node id, unique for the whole run.
func (r *InnovationRegistry) NewNodeID() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextNodeID
	r.nextNodeID++
	return id
}

// PairCount reports how many distinct connection pairs have been registered.
func (r *InnovationRegistry) PairCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pairs)
}

// RegistrySnapshot is a serializable dump of the registry state, sufficient
// to resume mutation safely after a restore.
type RegistrySnapshot struct {
	Pairs      []PairInnovation
	NextInnov  int
	NextNodeID int
}

// PairInnovation records one registered (source, target) pair.
type PairInnovation struct {
	In         int
	Out        int
	Innovation int
}

// Snapshot captures the registry state for checkpointing.
func (r *InnovationRegistry) Snapshot() RegistrySnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := RegistrySnapshot{
		Pairs:      make([]PairInnovation, 0, len(r.pairs)),
		NextInnov:  r.nextInnov,
		NextNodeID: r.nextNodeID,
	}
	for pair, innov := range r.pairs {
		snap.Pairs = append(snap.Pairs, PairInnovation{In: pair.In, Out: pair.Out, Innovation: innov})
	}
	return snap
}

// RestoreInnovationRegistry rebuilds a registry from a snapshot.
func RestoreInnovationRegistry(snap RegistrySnapshot) *InnovationRegistry {
	r := &InnovationRegistry{
		pairs:      make(map[nodePair]int, len(snap.Pairs)),
		nextInnov:  snap.NextInnov,
		nextNodeID: snap.NextNodeID,
	}
	if r.nextInnov < 1 {
		r.nextInnov = 1
	}
	for _, p := range snap.Pairs {
		r.pairs[nodePair{In: p.In, Out: p.Out}] = p.Innovation
	}
	return r
}
