package ring

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultReplicas is the virtual-node count used when a caller passes a
// non-positive replica count to New.
const DefaultReplicas = 64

// Ring is a consistent-hash ring mapping opaque string keys to member ids.
//
// A Ring is safe for concurrent use: Add, Remove, and GetNode all take the
// same RWMutex, with GetNode taking the read side so lookups never block on
// each other.
type Ring struct {
	mu       sync.RWMutex
	replicas int
	points   []uint64          // sorted, one entry per virtual point
	owners   map[uint64]string // point -> member id
	members  map[string]bool
}

// New builds a ring over the given non-empty member ids, each given
// replicas virtual points. A non-positive replicas defaults to
// DefaultReplicas.
func New(members []string, replicas int) (*Ring, error) {
	if replicas <= 0 {
		replicas = DefaultReplicas
	}
	r := &Ring{
		replicas: replicas,
		owners:   make(map[uint64]string),
		members:  make(map[string]bool),
	}
	for _, m := range members {
		if err := r.addLocked(m); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add inserts a member, giving it r.replicas new virtual points. Existing
// members' points are untouched, so only the newly added member's share of
// keyspace remaps.
func (r *Ring) Add(member string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addLocked(member)
}

func (r *Ring) addLocked(member string) error {
	if member == "" {
		return fmt.Errorf("ring: member id must not be empty")
	}
	if r.members[member] {
		return nil
	}
	r.members[member] = true
	for i := 0; i < r.replicas; i++ {
		p := hashPoint(member, i)
		// Collisions between distinct members at the same point are
		// vanishingly unlikely at 64-bit width; when they do occur the
		// lowest member id wins ownership of that point, matching the
		// lookup tie-break rule.
		if existing, ok := r.owners[p]; ok && existing < member {
			continue
		}
		if _, ok := r.owners[p]; !ok {
			r.points = append(r.points, p)
		}
		r.owners[p] = member
	}
	sort.Slice(r.points, func(i, j int) bool { return r.points[i] < r.points[j] })
	return nil
}

// Remove deletes a member and all of its virtual points. Points belonging
// to other members are left exactly where they were.
func (r *Ring) Remove(member string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.members[member] {
		return
	}
	delete(r.members, member)
	kept := r.points[:0]
	for _, p := range r.points {
		if r.owners[p] == member {
			delete(r.owners, p)
			continue
		}
		kept = append(kept, p)
	}
	r.points = kept
}

// GetNode returns the member owning key: the member whose virtual point is
// the first at or after H(key), wrapping to the lowest point if H(key) is
// past every point (ring closure). The second return is false if the ring
// has no members.
func (r *Ring) GetNode(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.points) == 0 {
		return "", false
	}
	h := hashKey(key)
	idx := sort.Search(len(r.points), func(i int) bool { return r.points[i] >= h })
	if idx == len(r.points) {
		idx = 0
	}
	return r.owners[r.points[idx]], true
}

// Members returns the current member ids in no particular order.
func (r *Ring) Members() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.members))
	for m := range r.members {
		out = append(out, m)
	}
	return out
}

// Snapshot returns a shard_id -> endpoint style map the caller can use to
// build a ring/init payload; endpoints is a member-id -> endpoint lookup
// supplied by the caller (the ring itself only knows member ids).
func (r *Ring) Snapshot(endpoints map[string]string) map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.members))
	for m := range r.members {
		out[m] = endpoints[m]
	}
	return out
}

func hashPoint(member string, i int) uint64 {
	return hashKey(member + "#" + strconv.Itoa(i))
}

func hashKey(raw string) uint64 {
	return xxhash.Sum64String(raw)
}
