package ecsim

import (
	"github.com/TheBitDrifter/bark"
	"github.com/TheBitDrifter/mask"
)

// WorldOptions configures a World at construction time.
type WorldOptions struct {
	// EntityCapacity is the initial entity slot pool size. Defaults to
	// Config.defaultEntityCapacity (1000) when left at zero.
	EntityCapacity int

	// ChecksOn enables field-value validation (enum membership, numeric
	// range) on AddComponent initial values and SetValue writes. On by
	// default (nil == true); pass a false pointer to disable once a
	// simulation is trusted.
	ChecksOn *bool

	// EntityReleaseCallback, if set, is invoked synchronously with an
	// entity's handle right before its slot is released back to the pool.
	EntityReleaseCallback func(Entity)
}

// World is the orchestrator binding together component storage, entity
// identity, incremental queries, and the system schedule for one
// simulation instance.
type World interface {
	// RegisterComponent assigns d its dense typeId, mask, and column
	// storage in this World. A no-op if d is already registered here.
	// Components are also auto-registered as a side effect of
	// AddComponent/RegisterQuery; this is the explicit entry point for
	// doing so ahead of time.
	RegisterComponent(d *ComponentDescriptor) error
	// HasComponent reports whether d has been registered with this World.
	HasComponent(d *ComponentDescriptor) bool
	// GetComponentByTypeID returns the descriptor registered under the
	// given dense typeId, or nil if no component holds it.
	GetComponentByTypeID(typeID int) *ComponentDescriptor

	CreateEntity() (Entity, error)
	DestroyEntity(e Entity) error

	// GetEntityBySlot returns the live entity occupying slot, or false if
	// the slot is out of range or currently free.
	GetEntityBySlot(slot int) (Entity, bool)
	// GetEntityByRef resolves a packed (generation, slot) reference taken
	// from Entity.Ref. It returns false once the referenced incarnation has
	// been destroyed, even if the slot has since been reused.
	GetEntityByRef(ref int32) (Entity, bool)

	RegisterQuery(cfg QueryConfig) (Query, error)

	// RegisterSystem instantiates ctor and applies opts[0].Priority (if
	// given), then registers and binds every query in its static
	// QueryConfigs(), builds its config signal bag from ConfigSchema()
	// (applying opts[0].ConfigData overrides, if given), and finally calls
	// Init exactly once — in that order. opts is optional; omit it to keep the
	// system's own constructor-assigned priority and schema defaults.
	RegisterSystem(ctor func() System, opts ...SystemOptions) (System, error)
	UnregisterSystem(s System)
	Systems() []System
	HasSystem(ctor func() System) bool
	GetSystem(ctor func() System) (System, bool)
	GetSystems() []System

	// Queries enumerates every Query registered with this World, for the
	// debug collaborator's "enumerate all registered queries" interface.
	Queries() []Query

	// Capacity returns the current entity slot / column capacity.
	Capacity() int
	// ForEachEntity invokes fn for every live entity, in ascending slot
	// order, for the debug collaborator's "enumerate all live entities in
	// slot order" interface.
	ForEachEntity(fn func(Entity))

	// Each runs fn over every entity currently in q's result set while
	// holding an iteration lock: structural mutations (component add or
	// remove, entity destroy) performed by fn are deferred until the
	// outermost Each call on this World returns, so slot reuse can never
	// be observed mid-iteration.
	Each(q Query, fn func(Entity))

	Update(delta, simTime float64) error

	Global(key string) (any, bool)
	SetGlobal(key string, value any)

	EntityCount() int
	Locked() bool
}

var _ World = (*world)(nil)

// checksOnDefault backs WorldOptions.ChecksOn's default-true behavior: a
// nil pointer in WorldOptions means "not specified", not "false", so the
// zero value of WorldOptions still gets checks on.
var checksOnDefault = true

type vvKey struct {
	slot int
	col  *vecColumn
}

type world struct {
	options    WorldOptions
	components *componentManager
	entities   *entityManager
	queries    *queryManager
	systems    *systemManager
	globals    map[string]any

	lockBits    mask.Mask256
	nextLockBit uint32
	ops         *opQueue

	vectorViews map[vvKey]*VectorView
}

func newWorld(opts WorldOptions) *world {
	if opts.EntityCapacity <= 0 {
		opts.EntityCapacity = Config.defaultEntityCapacity
	}
	if opts.ChecksOn == nil {
		opts.ChecksOn = &checksOnDefault
	}
	w := &world{
		options:     opts,
		globals:     make(map[string]any),
		ops:         newOpQueue(),
		vectorViews: make(map[vvKey]*VectorView),
	}
	w.components = newComponentManager(opts.EntityCapacity)
	w.entities = newEntityManager(w, opts.EntityCapacity)
	w.queries = newQueryManager(w)
	w.systems = newSystemManager()
	return w
}

func (w *world) Locked() bool { return !w.lockBits.IsEmpty() }

func (w *world) lock() func() {
	bit := w.nextLockBit
	w.nextLockBit++
	w.lockBits.Mark(bit)
	return func() {
		w.lockBits.Unmark(bit)
		if w.lockBits.IsEmpty() && !w.ops.empty() {
			w.ops.flush(w)
		}
	}
}

func (w *world) Each(q Query, fn func(Entity)) {
	unlock := w.lock()
	defer unlock()
	for _, e := range q.Entities() {
		fn(e)
	}
}

func (w *world) CreateEntity() (Entity, error) {
	e := w.entities.create()
	return e, nil
}

func (w *world) GetEntityBySlot(slot int) (Entity, bool) {
	e := w.entities.liveAt(slot)
	if e == nil {
		return nil, false
	}
	return e, true
}

func (w *world) GetEntityByRef(ref int32) (Entity, bool) {
	e := w.entities.byRef(ref)
	if e == nil {
		return nil, false
	}
	return e, true
}

func (w *world) DestroyEntity(e Entity) error {
	ent, ok := e.(*entity)
	if !ok {
		return InvalidQueryError{Reason: "entity does not belong to this world"}
	}
	return w.destroyEntity(ent)
}

func (w *world) destroyEntity(e *entity) error {
	if !e.Alive() {
		return nil
	}
	if w.Locked() {
		slot, generation := e.slot, e.generation
		w.ops.enqueue(func(w *world) {
			if w.entities.generationAt(slot) != generation {
				return
			}
			w.finishDestroy(w.entities.entityAt(slot))
		})
		return nil
	}
	w.finishDestroy(e)
	return nil
}

func (w *world) finishDestroy(e *entity) {
	w.queries.resetEntity(e)
	if w.options.EntityReleaseCallback != nil {
		w.options.EntityReleaseCallback(e)
	}
	for key := range w.vectorViews {
		if key.slot == e.slot {
			delete(w.vectorViews, key)
		}
	}
	w.entities.release(e.slot)
}

func (w *world) addComponent(e *entity, d *ComponentDescriptor, values map[string]any) error {
	if !d.Registered() {
		w.components.register(d)
	}
	if w.Locked() {
		slot, generation := e.slot, e.generation
		w.ops.enqueue(func(w *world) {
			if w.entities.generationAt(slot) != generation {
				return
			}
			if err := w.finishAddComponent(w.entities.entityAt(slot), d, values); err != nil {
				Config.reportError(bark.AddTrace(err))
			}
		})
		return nil
	}
	return w.finishAddComponent(e, d, values)
}

func (w *world) finishAddComponent(e *entity, d *ComponentDescriptor, values map[string]any) error {
	m := w.entities.maskAt(e.slot)
	if m.Test(uint32(d.typeID)) {
		return nil
	}
	if *w.options.ChecksOn {
		for field, value := range values {
			if _, ok := d.fieldIndex[field]; !ok {
				return UnknownFieldError{Component: d.id, Field: field}
			}
			if err := validateFieldValue(d, field, d.fields[field], value); err != nil {
				return err
			}
		}
	}
	// Every field not present in values is reset to its schema default,
	// not left at whatever a prior occupant of this slot (a reused,
	// destroyed entity) last wrote there.
	for i, field := range d.fieldNames {
		if value, ok := values[field]; ok {
			writeColumn(d.columns[i], e.slot, d.fields[field], value)
		} else {
			fillColumnDefaultRange(d.columns[i], d.fields[field], e.slot, e.slot+1)
		}
	}
	m.Mark(uint32(d.typeID))
	w.entities.setMask(e.slot, m)
	w.queries.updateEntity(e, d.typeID)
	return nil
}

func (w *world) removeComponent(e *entity, d *ComponentDescriptor) error {
	if w.Locked() {
		slot, generation := e.slot, e.generation
		w.ops.enqueue(func(w *world) {
			if w.entities.generationAt(slot) != generation {
				return
			}
			w.finishRemoveComponent(w.entities.entityAt(slot), d)
		})
		return nil
	}
	w.finishRemoveComponent(e, d)
	return nil
}

func (w *world) finishRemoveComponent(e *entity, d *ComponentDescriptor) {
	m := w.entities.maskAt(e.slot)
	if !m.Test(uint32(d.typeID)) {
		return
	}
	m.Unmark(uint32(d.typeID))
	w.entities.setMask(e.slot, m)
	w.queries.updateEntity(e, d.typeID)
}

// RegisterComponent assigns d its typeId/mask/columns in w. No-op if d is
// already registered here; d has already passed schema validation by the
// time createComponent produced it, so there is no InvalidSchema
// condition left to surface at this step.
func (w *world) RegisterComponent(d *ComponentDescriptor) error {
	w.components.register(d)
	return nil
}

// HasComponent reports whether d has been registered with w.
func (w *world) HasComponent(d *ComponentDescriptor) bool {
	_, ok := w.components.get(d.id)
	return ok
}

func (w *world) GetComponentByTypeID(typeID int) *ComponentDescriptor {
	return w.components.byType(typeID)
}

func (w *world) RegisterQuery(cfg QueryConfig) (Query, error) {
	return w.queries.register(cfg)
}

// RegisterSystem instantiates ctor and applies the priority override,
// registers and binds every static query, builds the config signal bag
// (applying ConfigData overrides), and only then calls Init — in that
// order, so a system's Init always observes fully bound queries and
// config.
func (w *world) RegisterSystem(ctor func() System, opts ...SystemOptions) (System, error) {
	var opt SystemOptions
	if len(opts) > 0 {
		opt = opts[0]
	}

	s, err := w.systems.register(ctor, opt.Priority)
	if err != nil {
		return s, err
	}

	queries := make(map[string]Query)
	for name, cfg := range s.QueryConfigs() {
		q, err := w.RegisterQuery(cfg)
		if err != nil {
			return s, err
		}
		queries[name] = q
	}
	s.BindQueries(queries)

	config := make(map[string]*ConfigSignal)
	for name, field := range s.ConfigSchema() {
		sig := NewConfigSignal(field.Default)
		if opt.ConfigData != nil {
			if v, ok := opt.ConfigData[name]; ok {
				sig.Set(v)
			}
		}
		config[name] = sig
	}
	s.BindConfig(config)

	if err := s.Init(w); err != nil {
		return s, bark.AddTrace(err)
	}
	return s, nil
}

func (w *world) UnregisterSystem(s System) {
	if !w.systems.has(s) {
		return
	}
	_ = s.Destroy(w)
	w.systems.unregister(s)
}

func (w *world) Systems() []System { return w.systems.all() }

func (w *world) HasSystem(ctor func() System) bool {
	_, ok := w.systems.byConstructor(ctor)
	return ok
}

func (w *world) GetSystem(ctor func() System) (System, bool) {
	return w.systems.byConstructor(ctor)
}

func (w *world) GetSystems() []System { return w.systems.all() }

func (w *world) Queries() []Query {
	qs := w.queries.all()
	out := make([]Query, len(qs))
	for i, q := range qs {
		out[i] = q
	}
	return out
}

func (w *world) Capacity() int { return w.entities.capacity }

func (w *world) ForEachEntity(fn func(Entity)) {
	w.entities.forEachLive(func(e *entity) { fn(e) })
}

// Update runs every non-paused system in priority order, passing the same
// (delta, time) to each. A system error aborts the tick: later systems in
// priority order do not run.
func (w *world) Update(delta, simTime float64) error {
	for _, s := range w.systems.all() {
		if s.Paused() {
			continue
		}
		if err := s.Update(w, delta, simTime); err != nil {
			traced := bark.AddTrace(err)
			Config.reportError(traced)
			return traced
		}
	}
	return nil
}

func (w *world) Global(key string) (any, bool) {
	v, ok := w.globals[key]
	return v, ok
}

func (w *world) SetGlobal(key string, value any) { w.globals[key] = value }

func (w *world) EntityCount() int { return w.entities.count() }

// vectorView returns the cached VectorView for (e.slot, col), creating one
// on first request, so repeated GetVectorView calls for the same field on
// the same entity return the identical view object.
func (w *world) vectorView(e *entity, col *vecColumn, field string) *VectorView {
	key := vvKey{slot: e.slot, col: col}
	if v, ok := w.vectorViews[key]; ok {
		return v
	}
	v := &VectorView{col: col, slot: e.slot}
	w.vectorViews[key] = v
	return v
}
