package tracker

// DefaultRetiredCapacity is how many closed notification ids the tracker
// remembers. Older ids are forgotten first.
const DefaultRetiredCapacity = 4096

// retiredSet is a fixed-size set of notification ids that must no longer
// resolve a request. Insertion order decides eviction.
type retiredSet struct {
	ids   map[string]struct{}
	ring  []string
	next  int
	limit int
}

func newRetiredSet(limit int) *retiredSet {
	if limit <= 0 {
		limit = DefaultRetiredCapacity
	}
	return &retiredSet{
		ids:   make(map[string]struct{}, limit),
		ring:  make([]string, 0, limit),
		limit: limit,
	}
}

func (r *retiredSet) add(id string) {
	if id == "" {
		return
	}
	if _, ok := r.ids[id]; ok {
		return
	}
	if len(r.ring) < r.limit {
		r.ring = append(r.ring, id)
	} else {
		delete(r.ids, r.ring[r.next])
		r.ring[r.next] = id
		r.next = (r.next + 1) % r.limit
	}
	r.ids[id] = struct{}{}
}

func (r *retiredSet) has(id string) bool {
	_, ok := r.ids[id]
	return ok
}

func (r *retiredSet) len() int {
	return len(r.ids)
}
