package fleet

import "fmt"

// Registry holds live processes keyed by connection id and remembers
// insertion order, which is the matching order.
type Registry struct {
	order []uint64
	byID  map[uint64]*Process
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[uint64]*Process)}
}

func (r *Registry) Add(p *Process) error {
	if _, exists := r.byID[p.ConnID]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateConnection, p.ConnID)
	}
	r.byID[p.ConnID] = p
	r.order = append(r.order, p.ConnID)
	return nil
}

func (r *Registry) Get(connID uint64) (*Process, bool) {
	p, ok := r.byID[connID]
	return p, ok
}

// Remove deletes the entry and returns it, if present.
func (r *Registry) Remove(connID uint64) (*Process, bool) {
	p, ok := r.byID[connID]
	if !ok {
		return nil, false
	}
	delete(r.byID, connID)
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return p, true
}

// FirstFree returns the earliest-registered process that is activated and unbound.
func (r *Registry) FirstFree() (*Process, bool) {
	for _, id := range r.order {
		if p := r.byID[id]; p.Free() {
			return p, true
		}
	}
	return nil, false
}

func (r *Registry) All() []*Process {
	out := make([]*Process, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *Registry) Len() int { return len(r.order) }
