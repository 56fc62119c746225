package world

import "github.com/kasuganosora/enemyai/game/ai"

// roster is a dense slice of entities with an id index. Removal swaps the
// last entity into the hole, so iteration order is insertion order only until
// the first removal.
type roster struct {
	list  []*ai.Entity
	index map[ai.EntityID]int
}

func newRoster() *roster {
	return &roster{index: make(map[ai.EntityID]int)}
}

func (r *roster) len() int { return len(r.list) }

func (r *roster) get(id ai.EntityID) (*ai.Entity, bool) {
	i, ok := r.index[id]
	if !ok {
		return nil, false
	}
	return r.list[i], true
}

func (r *roster) add(e *ai.Entity) {
	r.index[e.ID] = len(r.list)
	r.list = append(r.list, e)
}

func (r *roster) remove(id ai.EntityID) bool {
	i, ok := r.index[id]
	if !ok {
		return false
	}
	last := len(r.list) - 1
	if i != last {
		r.list[i] = r.list[last]
		r.index[r.list[i].ID] = i
	}
	r.list[last] = nil
	r.list = r.list[:last]
	delete(r.index, id)
	return true
}

// snapshot returns a copy of the entity pointers.
func (r *roster) snapshot() []*ai.Entity {
	return append([]*ai.Entity(nil), r.list...)
}
