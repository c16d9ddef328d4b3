package ecsim

// queryManager owns every Query registered with a World and keeps each
// one's result set consistent as entities are created, destroyed, and
// mutated. Rather than re-scanning every query on every mutation, it
// indexes queries by the component bits and (component, field) pairs they
// care about, so updateEntity/updateEntityValue only touch queries that
// could plausibly be affected.
type queryManager struct {
	w *world

	byID map[string]*query

	// queriesByComponent[typeID] lists every query whose required or
	// excluded mask mentions that component.
	queriesByComponent map[int][]*query

	// queriesByValue[typeID][field] lists every query with a Where
	// predicate on that (component, field).
	queriesByValue map[int]map[string][]*query
}

func newQueryManager(w *world) *queryManager {
	return &queryManager{
		w:                  w,
		byID:               make(map[string]*query),
		queriesByComponent: make(map[int][]*query),
		queriesByValue:     make(map[int]map[string][]*query),
	}
}

func (qm *queryManager) register(cfg QueryConfig) (*query, error) {
	// Auto-register every referenced component that isn't yet registered
	// in this world, including components named only inside a Where
	// predicate, before validating or building masks against their
	// typeIds.
	for _, d := range cfg.Required {
		if !d.Registered() {
			qm.w.components.register(d)
		}
	}
	for _, d := range cfg.Excluded {
		if !d.Registered() {
			qm.w.components.register(d)
		}
	}
	for _, p := range cfg.Where {
		if !p.component.Registered() {
			qm.w.components.register(p.component)
		}
	}

	if err := validateQueryConfig(cfg); err != nil {
		return nil, err
	}

	var required, excluded BitSet
	for _, d := range cfg.Required {
		required.Mark(uint32(d.typeID))
	}
	for _, d := range cfg.Excluded {
		excluded.Mark(uint32(d.typeID))
	}
	// Predicates imply possession: a predicate on a component's field
	// requires the entity to own that component too, so fold predicate
	// components into the required mask.
	for _, p := range cfg.Where {
		required.Mark(uint32(p.component.typeID))
	}

	id := canonicalQueryID(required, excluded, cfg.Where)
	if existing, ok := qm.byID[id]; ok {
		return existing, nil
	}

	predicates := append([]Predicate(nil), cfg.Where...)
	for i := range predicates {
		predicates[i].buildSet()
	}

	q := &query{
		id:             id,
		required:       required,
		excluded:       excluded,
		predicates:     predicates,
		resultIndex:    make(map[int]int),
		qualifySubs:    make(map[int]func(Entity)),
		disqualifySubs: make(map[int]func(Entity)),
		w:              qm.w,
	}
	qm.byID[id] = q

	seen := make(map[int]bool)
	for _, bit := range required.ToArray() {
		t := int(bit)
		if !seen[t] {
			qm.queriesByComponent[t] = append(qm.queriesByComponent[t], q)
			seen[t] = true
		}
	}
	for _, bit := range excluded.ToArray() {
		t := int(bit)
		if !seen[t] {
			qm.queriesByComponent[t] = append(qm.queriesByComponent[t], q)
			seen[t] = true
		}
	}
	for _, p := range cfg.Where {
		t := p.component.typeID
		if qm.queriesByValue[t] == nil {
			qm.queriesByValue[t] = make(map[string][]*query)
		}
		qm.queriesByValue[t][p.field] = append(qm.queriesByValue[t][p.field], q)
	}

	qm.w.entities.forEachLive(func(e *entity) {
		q.sync(e)
	})

	return q, nil
}

// updateEntity re-evaluates every query touched by a structural change to
// e (a component add or remove). changedType is the typeId that was just
// added or removed.
func (qm *queryManager) updateEntity(e *entity, changedType int) {
	for _, q := range qm.queriesByComponent[changedType] {
		q.sync(e)
	}
}

// updateEntityValue re-evaluates every query with a Where predicate on
// (d, field) against e, firing a qualify/disqualify transition if e's
// membership in that query changed as a result.
func (qm *queryManager) updateEntityValue(e *entity, d *ComponentDescriptor, field string) {
	for _, q := range qm.queriesByValue[d.typeID][field] {
		q.sync(e)
	}
}

// resetEntity removes e from every query's result set, used when an
// entity is destroyed. Unlike updateEntity it touches every registered
// query rather than only component-indexed ones, since a destroyed
// entity must vanish from all result sets including value-only ones.
func (qm *queryManager) resetEntity(e *entity) {
	for _, q := range qm.byID {
		q.disqualify(e)
	}
}

func (qm *queryManager) all() []*query {
	out := make([]*query, 0, len(qm.byID))
	for _, q := range qm.byID {
		out = append(out, q)
	}
	return out
}
