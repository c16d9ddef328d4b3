package ecsim

import (
	"reflect"
	"sort"
)

// ConfigSignal is an observable value cell: Set both stores a new value and
// notifies every current subscriber, with no dependency graph or batching.
// Systems use one to expose runtime-tunable configuration.
type ConfigSignal struct {
	value  any
	subs   map[int]func(any)
	nextID int
}

func NewConfigSignal(initial any) *ConfigSignal {
	return &ConfigSignal{value: initial, subs: make(map[int]func(any))}
}

func (s *ConfigSignal) Get() any { return s.value }

func (s *ConfigSignal) Set(v any) {
	s.value = v
	for _, fn := range s.subs {
		fn(v)
	}
}

func (s *ConfigSignal) Subscribe(fn func(any)) (unsubscribe func()) {
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() { delete(s.subs, id) }
}

// SystemOptions carries per-registration overrides for RegisterSystem: a
// priority override for this registration and initial values for named
// config signals declared in the system's ConfigSchema.
type SystemOptions struct {
	// Priority overrides the system's constructor-assigned priority for
	// this registration, if non-nil.
	Priority *int
	// ConfigData overrides the default value of any named signal declared
	// in ConfigSchema, applied before Init runs.
	ConfigData map[string]any
}

// System is a named, prioritized update procedure. Lower Priority values
// run first; systems registered at equal priority run in registration
// order (stable scheduling). QueryConfigs/ConfigSchema are the system's
// static declarations; World.RegisterSystem registers and binds them via
// BindQueries/BindConfig before Init runs once, Update runs once per tick
// while the system is not paused, and Destroy runs once on unregister.
type System interface {
	Name() string
	Priority() int

	// Paused reports whether World.Update should skip this system this
	// tick. Play/Stop flip the flag.
	Paused() bool
	Play()
	Stop()

	// QueryConfigs declares this system's named queries (name -> config),
	// fixed at construction time. World.RegisterSystem registers each and
	// delivers the bound results via BindQueries before Init runs. Nil or
	// empty if the system binds no queries.
	QueryConfigs() map[string]QueryConfig
	// BindQueries installs the registered Query for every name declared
	// by QueryConfigs, called exactly once by World.RegisterSystem before
	// Init.
	BindQueries(queries map[string]Query)

	// ConfigSchema declares this system's named config signals (name ->
	// Field, Field.Default used as the signal's initial value), fixed at
	// construction time. World.RegisterSystem builds one ConfigSignal per
	// entry (applying any SystemOptions.ConfigData override) and delivers
	// the bag via BindConfig before Init runs. Nil or empty if the system
	// has no config.
	ConfigSchema() map[string]Field
	// BindConfig installs the config signal bag built from ConfigSchema,
	// called exactly once by World.RegisterSystem before Init.
	BindConfig(config map[string]*ConfigSignal)

	Init(w World) error
	Update(w World, delta, time float64) error
	Destroy(w World) error
}

// BaseSystem is the embeddable foundation concrete systems build on: a
// shared struct carrying identity and config while the concrete type
// supplies behavior. RegisterSystem takes a constructor function;
// BaseSystem holds what every system needs regardless of what it does,
// and supplies no-op Init/Destroy so a concrete system only overrides the
// lifecycle hooks it actually uses.
type BaseSystem struct {
	name     string
	priority int
	paused   bool

	queryConfigs map[string]QueryConfig
	queries      map[string]Query

	configSchema map[string]Field
	config       map[string]*ConfigSignal
}

// NewBaseSystem constructs the shared System state for a system with no
// static queries or config. Concrete system types should embed *BaseSystem
// (or BaseSystem) and implement Update themselves.
func NewBaseSystem(name string, priority int) *BaseSystem {
	return &BaseSystem{name: name, priority: priority}
}

// NewBaseSystemWithQueries constructs the shared System state for a system
// that declares static queries and/or a config schema.
// World.RegisterSystem registers each declared query and config signal
// and delivers them via BindQueries/BindConfig before Init runs; the
// concrete system reads them back with Query(name)/Config(name).
func NewBaseSystemWithQueries(name string, priority int, queries map[string]QueryConfig, schema map[string]Field) *BaseSystem {
	return &BaseSystem{name: name, priority: priority, queryConfigs: queries, configSchema: schema}
}

func (b *BaseSystem) Name() string      { return b.name }
func (b *BaseSystem) Priority() int     { return b.priority }
func (b *BaseSystem) setPriority(p int) { b.priority = p }

func (b *BaseSystem) Paused() bool { return b.paused }
func (b *BaseSystem) Play()        { b.paused = false }
func (b *BaseSystem) Stop()        { b.paused = true }

func (b *BaseSystem) QueryConfigs() map[string]QueryConfig       { return b.queryConfigs }
func (b *BaseSystem) BindQueries(queries map[string]Query)       { b.queries = queries }
func (b *BaseSystem) ConfigSchema() map[string]Field             { return b.configSchema }
func (b *BaseSystem) BindConfig(config map[string]*ConfigSignal) { b.config = config }

// Query returns the bound Query for a name declared in QueryConfigs, or
// nil before World.RegisterSystem has run BindQueries.
func (b *BaseSystem) Query(name string) Query { return b.queries[name] }

// Config returns the bound ConfigSignal for a name declared in
// ConfigSchema, or nil before World.RegisterSystem has run BindConfig.
func (b *BaseSystem) Config(name string) *ConfigSignal { return b.config[name] }

// Init and Destroy are no-ops by default; a concrete system overrides
// whichever it needs.
func (b *BaseSystem) Init(w World) error    { return nil }
func (b *BaseSystem) Destroy(w World) error { return nil }

// priorityOverridable is implemented by *BaseSystem; World.RegisterSystem
// uses it to apply a SystemOptions.Priority override without widening the
// public System interface with a setter every implementer would need to
// provide.
type priorityOverridable interface {
	setPriority(int)
}

// systemManager owns the ordered list of Systems registered with a World
// and rejects registering the same concrete system type twice, using
// reflect.TypeOf on the instantiated value as the type identity.
type systemManager struct {
	ordered   []System
	byType    map[reflect.Type]System
	insertSeq map[reflect.Type]int
	seq       int
}

func newSystemManager() *systemManager {
	return &systemManager{
		byType:    make(map[reflect.Type]System),
		insertSeq: make(map[reflect.Type]int),
	}
}

// register instantiates ctor and adds it to the ordered schedule. If
// priority is non-nil, it overrides the instance's constructor-assigned
// priority (SystemOptions.Priority) before the schedule is sorted.
func (sm *systemManager) register(ctor func() System, priority *int) (System, error) {
	s := ctor()
	t := reflect.TypeOf(s)
	if existing, ok := sm.byType[t]; ok {
		return existing, DuplicateSystemError{SystemType: t.String()}
	}
	if priority != nil {
		if po, ok := s.(priorityOverridable); ok {
			po.setPriority(*priority)
		}
	}
	sm.byType[t] = s
	sm.insertSeq[t] = sm.seq
	sm.seq++
	sm.ordered = append(sm.ordered, s)
	sm.resort()
	return s, nil
}

func (sm *systemManager) has(s System) bool {
	_, ok := sm.byType[reflect.TypeOf(s)]
	return ok
}

// byConstructor instantiates ctor to recover the concrete system type it
// produces, then looks up the live registered instance of that type (if
// any). Used by World.HasSystem/GetSystem, which take the same
// constructor value a caller passed to RegisterSystem rather than an
// instance, matching RegisterSystem's own identity convention.
func (sm *systemManager) byConstructor(ctor func() System) (System, bool) {
	t := reflect.TypeOf(ctor())
	s, ok := sm.byType[t]
	return s, ok
}

func (sm *systemManager) unregister(s System) {
	t := reflect.TypeOf(s)
	if _, ok := sm.byType[t]; !ok {
		return
	}
	delete(sm.byType, t)
	delete(sm.insertSeq, t)
	for i, other := range sm.ordered {
		if reflect.TypeOf(other) == t {
			sm.ordered = append(sm.ordered[:i], sm.ordered[i+1:]...)
			break
		}
	}
}

// resort re-sorts systems by ascending Priority, preserving registration
// order among equal priorities (sort.SliceStable, keyed by insertSeq so
// repeated resorts stay deterministic even after an unregister).
func (sm *systemManager) resort() {
	sort.SliceStable(sm.ordered, func(i, j int) bool {
		a, b := sm.ordered[i], sm.ordered[j]
		if a.Priority() != b.Priority() {
			return a.Priority() < b.Priority()
		}
		return sm.insertSeq[reflect.TypeOf(a)] < sm.insertSeq[reflect.TypeOf(b)]
	})
}

func (sm *systemManager) all() []System {
	out := make([]System, len(sm.ordered))
	copy(out, sm.ordered)
	return out
}
