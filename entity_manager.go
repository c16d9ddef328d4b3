package ecsim

// entityManager owns the slot-indexed arrays backing every live and
// previously-live entity in a World: its generation counter, its current
// component mask, and the cached *entity wrapper reused across
// generations. Free slots are tracked LIFO, so recently destroyed slots
// are reused first and their generation counters climb fastest (making
// use-after-free bugs surface quickly in testing).
type entityManager struct {
	w *world

	generations []uint8
	masks       []BitSet
	active      []bool
	wrappers    []*entity
	free        []int
	capacity    int
	live        int
}

func newEntityManager(w *world, capacity int) *entityManager {
	if capacity <= 0 {
		capacity = 64
	}
	m := &entityManager{
		w:           w,
		generations: make([]uint8, capacity),
		masks:       make([]BitSet, capacity),
		active:      make([]bool, capacity),
		wrappers:    make([]*entity, capacity),
		capacity:    capacity,
	}
	for i := capacity - 1; i >= 0; i-- {
		m.free = append(m.free, i)
	}
	return m
}

func (m *entityManager) generationAt(slot int) uint8 { return m.generations[slot] }
func (m *entityManager) maskAt(slot int) BitSet      { return m.masks[slot] }
func (m *entityManager) activeAt(slot int) bool      { return m.active[slot] }

// create allocates a slot (reusing the most-recently-freed one if any) and
// returns its cached *entity wrapper at the slot's current generation.
func (m *entityManager) create() *entity {
	if len(m.free) == 0 {
		m.grow(m.capacity * 2)
	}
	n := len(m.free)
	slot := m.free[n-1]
	m.free = m.free[:n-1]
	m.masks[slot] = BitSet{}
	m.active[slot] = true
	m.live++
	e := m.wrappers[slot]
	if e == nil {
		e = &entity{world: m.w, slot: slot, generation: m.generations[slot]}
		m.wrappers[slot] = e
	} else {
		e.generation = m.generations[slot]
	}
	return e
}

// release bumps the slot's generation (invalidating every outstanding
// Entity handle pointing at it), clears its mask, and returns it to the
// free list.
func (m *entityManager) release(slot int) {
	m.active[slot] = false
	m.generations[slot]++
	m.masks[slot] = BitSet{}
	m.free = append(m.free, slot)
	m.live--
}

func (m *entityManager) setMask(slot int, mask BitSet) { m.masks[slot] = mask }

func (m *entityManager) entityAt(slot int) *entity {
	e := m.wrappers[slot]
	if e == nil {
		e = &entity{world: m.w, slot: slot, generation: m.generations[slot]}
		m.wrappers[slot] = e
	}
	return e
}

// liveAt returns the wrapper for slot only if the slot currently holds a
// live entity, else nil.
func (m *entityManager) liveAt(slot int) *entity {
	if slot < 0 || slot >= m.capacity || !m.active[slot] {
		return nil
	}
	return m.entityAt(slot)
}

// byRef resolves a packed (generation, slot) reference to its live wrapper,
// or nil if the slot is dead or has been reincarnated under a newer
// generation since the reference was taken.
func (m *entityManager) byRef(ref int32) *entity {
	generation, slot := unpackRef(ref)
	e := m.liveAt(slot)
	if e == nil || m.generations[slot] != generation {
		return nil
	}
	return e
}

// grow doubles (or exceeds, if requested) the slot pool and propagates the
// new capacity to every registered component's columns, keeping column
// length and entity capacity in lockstep.
func (m *entityManager) grow(capacity int) {
	if capacity <= m.capacity {
		return
	}
	oldCapacity := m.capacity

	grownGen := make([]uint8, capacity)
	copy(grownGen, m.generations)
	m.generations = grownGen

	grownMasks := make([]BitSet, capacity)
	copy(grownMasks, m.masks)
	m.masks = grownMasks

	grownActive := make([]bool, capacity)
	copy(grownActive, m.active)
	m.active = grownActive

	grownWrappers := make([]*entity, capacity)
	copy(grownWrappers, m.wrappers)
	m.wrappers = grownWrappers

	for i := capacity - 1; i >= oldCapacity; i-- {
		m.free = append(m.free, i)
	}

	m.capacity = capacity
	m.w.components.grow(capacity)
}

func (m *entityManager) count() int { return m.live }

// forEachLive invokes fn once for every live entity, in ascending slot
// order.
func (m *entityManager) forEachLive(fn func(e *entity)) {
	for slot := 0; slot < m.capacity; slot++ {
		if !m.active[slot] {
			continue
		}
		fn(m.entityAt(slot))
	}
}
