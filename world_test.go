package ecsim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorldEachDefersDestroyUntilUnlocked(t *testing.T) {
	w := newTestWorld(t, 8)
	tag := newTestComponent(t, Schema{"v": Field{Kind: KindBoolean}})

	q, err := w.RegisterQuery(QueryConfig{Required: []*ComponentDescriptor{tag}})
	require.NoError(t, err)

	var entities []Entity
	for i := 0; i < 3; i++ {
		e, err := w.CreateEntity()
		require.NoError(t, err)
		require.NoError(t, e.AddComponent(tag, nil))
		entities = append(entities, e)
	}
	require.Equal(t, 3, q.Len())

	var sawAliveDuringIteration []bool
	w.Each(q, func(e Entity) {
		require.NoError(t, w.DestroyEntity(e))
		// The destroy is deferred: the entity must still be alive while
		// Each is in progress.
		sawAliveDuringIteration = append(sawAliveDuringIteration, e.Alive())
	})

	for _, alive := range sawAliveDuringIteration {
		assert.True(t, alive, "entity should still be alive while World.Each holds the lock")
	}
	assert.Equal(t, 0, q.Len(), "deferred destroys should flush once Each unlocks")
	assert.Equal(t, 0, w.EntityCount())
}

func TestWorldLockedReflectsNestedEach(t *testing.T) {
	w := newTestWorld(t, 4)
	tag := newTestComponent(t, Schema{"v": Field{Kind: KindBoolean}})
	q, err := w.RegisterQuery(QueryConfig{Required: []*ComponentDescriptor{tag}})
	require.NoError(t, err)

	e, err := w.CreateEntity()
	require.NoError(t, err)
	require.NoError(t, e.AddComponent(tag, nil))

	assert.False(t, w.Locked())
	w.Each(q, func(Entity) {
		assert.True(t, w.Locked())
		w.Each(q, func(Entity) {
			assert.True(t, w.Locked())
		})
		assert.True(t, w.Locked(), "outer Each still holds its lock after the inner one returns")
	})
	assert.False(t, w.Locked())
}

func TestWorldGlobals(t *testing.T) {
	w := newTestWorld(t, 2)
	_, ok := w.Global("tick")
	assert.False(t, ok)

	w.SetGlobal("tick", 42)
	v, ok := w.Global("tick")
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestWorldUpdatePropagatesSystemError(t *testing.T) {
	w := newTestWorld(t, 2)
	failing := func() System {
		return &failingSystem{BaseSystem: NewBaseSystem("failing", 0)}
	}
	_, err := w.RegisterSystem(failing)
	require.NoError(t, err)

	err = w.Update(0.016, 0)
	require.Error(t, err)
}

func TestWorldQueriesForEachEntityAndCapacity(t *testing.T) {
	w := newTestWorld(t, 2)
	tag := newTestComponent(t, Schema{"v": Field{Kind: KindBoolean}})

	q, err := w.RegisterQuery(QueryConfig{Required: []*ComponentDescriptor{tag}})
	require.NoError(t, err)
	assert.Equal(t, []Query{q}, w.Queries())

	e1, err := w.CreateEntity()
	require.NoError(t, err)
	e2, err := w.CreateEntity()
	require.NoError(t, err)

	var slots []int
	w.ForEachEntity(func(e Entity) { slots = append(slots, e.Slot()) })
	assert.Equal(t, []int{e1.Slot(), e2.Slot()}, slots)

	assert.GreaterOrEqual(t, w.Capacity(), 2)
}

func TestWorldGetEntityByRef(t *testing.T) {
	w := newTestWorld(t, 4)

	e, err := w.CreateEntity()
	require.NoError(t, err)
	ref := e.Ref()

	got, ok := w.GetEntityByRef(ref)
	require.True(t, ok)
	assert.Same(t, e, got)

	require.NoError(t, e.Destroy())
	_, ok = w.GetEntityByRef(ref)
	assert.False(t, ok, "reference to a destroyed entity must not resolve")

	// Reusing the slot under a newer generation must not resurrect the old
	// reference.
	reborn, err := w.CreateEntity()
	require.NoError(t, err)
	require.Equal(t, e.Slot(), reborn.Slot())
	_, ok = w.GetEntityByRef(ref)
	assert.False(t, ok)

	got, ok = w.GetEntityByRef(reborn.Ref())
	require.True(t, ok)
	assert.Same(t, reborn, got)
}

func TestWorldGetEntityBySlot(t *testing.T) {
	w := newTestWorld(t, 4)

	e, err := w.CreateEntity()
	require.NoError(t, err)

	got, ok := w.GetEntityBySlot(e.Slot())
	require.True(t, ok)
	assert.Same(t, e, got)

	_, ok = w.GetEntityBySlot(e.Slot() + 1)
	assert.False(t, ok, "free slots do not resolve")
	_, ok = w.GetEntityBySlot(-1)
	assert.False(t, ok)
	_, ok = w.GetEntityBySlot(99)
	assert.False(t, ok)

	require.NoError(t, e.Destroy())
	_, ok = w.GetEntityBySlot(e.Slot())
	assert.False(t, ok)
}

func TestWorldChecksOffSkipsValueValidation(t *testing.T) {
	checks := false
	w := newWorld(WorldOptions{EntityCapacity: 4, ChecksOn: &checks})
	status := newTestComponent(t, Schema{
		"state": Field{Kind: KindEnum, Enum: []int{0, 1, 2}},
	})

	e, err := w.CreateEntity()
	require.NoError(t, err)
	require.NoError(t, e.AddComponent(status, nil))

	// With checks off the enum-membership assertion becomes a no-op: the
	// raw value is stored as-is.
	require.NoError(t, e.SetValue(status, "state", 99))
	v, err := e.GetValue(status, "state")
	require.NoError(t, err)
	assert.Equal(t, 99, v)
}

type failingSystem struct {
	*BaseSystem
}

func (s *failingSystem) Update(w World, delta, time float64) error {
	return ComponentNotFoundError{Component: "boom"}
}
