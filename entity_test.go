package ecsim

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorld(t *testing.T, capacity int) *world {
	t.Helper()
	return newWorld(WorldOptions{EntityCapacity: capacity})
}

func newTestComponent(t *testing.T, schema Schema) *ComponentDescriptor {
	t.Helper()
	d, err := createComponent(uniqueComponentID("T"), schema)
	require.NoError(t, err)
	return d
}

func TestEntityAddComponentAndGetValue(t *testing.T) {
	w := newTestWorld(t, 4)
	position := newTestComponent(t, Schema{
		"x": Field{Kind: KindFloat32, Default: float32(0)},
		"y": Field{Kind: KindFloat32, Default: float32(0)},
	})

	e, err := w.CreateEntity()
	require.NoError(t, err)

	require.NoError(t, e.AddComponent(position, map[string]any{"x": float32(3)}))
	assert.True(t, e.HasComponent(position))

	x, err := e.GetValue(position, "x")
	require.NoError(t, err)
	assert.Equal(t, float32(3), x)

	y, err := e.GetValue(position, "y")
	require.NoError(t, err)
	assert.Equal(t, float32(0), y)
}

func TestEntityGetValueMissingComponent(t *testing.T) {
	w := newTestWorld(t, 4)
	position := newTestComponent(t, Schema{"x": Field{Kind: KindFloat32}})

	e, err := w.CreateEntity()
	require.NoError(t, err)

	_, err = e.GetValue(position, "x")
	require.Error(t, err)
	assert.IsType(t, ComponentNotFoundError{}, err)
}

func TestEntitySetValueEnumValidation(t *testing.T) {
	w := newTestWorld(t, 4)
	status := newTestComponent(t, Schema{
		"state": Field{Kind: KindEnum, Enum: []int{0, 1, 2}},
	})

	e, err := w.CreateEntity()
	require.NoError(t, err)
	require.NoError(t, e.AddComponent(status, nil))

	require.NoError(t, e.SetValue(status, "state", 1))
	v, err := e.GetValue(status, "state")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	err = e.SetValue(status, "state", 99)
	require.Error(t, err)
	assert.IsType(t, InvalidEnumValueError{}, err)
}

func TestEntitySetValueRangeValidation(t *testing.T) {
	w := newTestWorld(t, 4)
	min, max := 0.0, 10.0
	health := newTestComponent(t, Schema{
		"hp": Field{Kind: KindFloat32, Default: float32(10), Min: &min, Max: &max},
	})

	e, err := w.CreateEntity()
	require.NoError(t, err)
	require.NoError(t, e.AddComponent(health, nil))

	err = e.SetValue(health, "hp", float32(-1))
	require.Error(t, err)
	assert.IsType(t, ValueOutOfRangeError{}, err)
}

func TestEntityComponentsAsStringIsSortedAndDeterministic(t *testing.T) {
	w := newTestWorld(t, 4)
	first := newTestComponent(t, Schema{"v": Field{Kind: KindBoolean}})
	second := newTestComponent(t, Schema{"v": Field{Kind: KindBoolean}})

	e, err := w.CreateEntity()
	require.NoError(t, err)
	// Add in reverse of sorted order to confirm the output is sorted, not
	// insertion-ordered.
	ids := []string{first.ID(), second.ID()}
	sort.Strings(ids)
	if ids[0] == first.ID() {
		require.NoError(t, e.AddComponent(second, nil))
		require.NoError(t, e.AddComponent(first, nil))
	} else {
		require.NoError(t, e.AddComponent(first, nil))
		require.NoError(t, e.AddComponent(second, nil))
	}

	assert.Equal(t, ids[0]+","+ids[1], e.ComponentsAsString())
}

func TestEntityRemoveComponent(t *testing.T) {
	w := newTestWorld(t, 4)
	tag := newTestComponent(t, Schema{"v": Field{Kind: KindBoolean}})

	e, err := w.CreateEntity()
	require.NoError(t, err)
	require.NoError(t, e.AddComponent(tag, nil))
	assert.True(t, e.HasComponent(tag))

	require.NoError(t, e.RemoveComponent(tag))
	assert.False(t, e.HasComponent(tag))
}

func TestEntityDestroyInvalidatesHandle(t *testing.T) {
	w := newTestWorld(t, 4)
	e, err := w.CreateEntity()
	require.NoError(t, err)
	assert.True(t, e.Alive())

	require.NoError(t, e.Destroy())
	assert.False(t, e.Alive())

	err = e.AddComponent(newTestComponent(t, Schema{"x": Field{Kind: KindInt8}}), nil)
	require.Error(t, err)
}

func TestEntitySlotReuseBumpsGeneration(t *testing.T) {
	w := newTestWorld(t, 2)
	first, err := w.CreateEntity()
	require.NoError(t, err)
	firstRef := first.Ref()

	require.NoError(t, first.Destroy())

	second, err := w.CreateEntity()
	require.NoError(t, err)

	assert.Equal(t, first.Slot(), second.Slot())
	assert.NotEqual(t, firstRef, second.Ref())
	assert.False(t, first.Alive())
	assert.True(t, second.Alive())
}

func TestEntityPoolReturnsSameHandlesLIFO(t *testing.T) {
	w := newTestWorld(t, 8)

	var first []Entity
	var slots []int
	var generations []uint8
	for i := 0; i < 5; i++ {
		e, err := w.CreateEntity()
		require.NoError(t, err)
		first = append(first, e)
		slots = append(slots, e.Slot())
		generations = append(generations, e.Generation())
	}

	for _, e := range first {
		require.NoError(t, e.Destroy())
	}

	// Slots come back most-recently-freed first, each reincarnation on the
	// same pooled wrapper with its generation advanced by one.
	for i := 4; i >= 0; i-- {
		e, err := w.CreateEntity()
		require.NoError(t, err)
		assert.Same(t, first[i], e)
		assert.Equal(t, slots[i], e.Slot())
		assert.Equal(t, generations[i]+1, e.Generation())
	}
}

func TestEntityReferenceFieldResolvesToNilAfterTargetDestroyed(t *testing.T) {
	w := newTestWorld(t, 4)
	follower := newTestComponent(t, Schema{
		"target": Field{Kind: KindEntity},
	})

	leader, err := w.CreateEntity()
	require.NoError(t, err)
	e, err := w.CreateEntity()
	require.NoError(t, err)
	require.NoError(t, e.AddComponent(follower, map[string]any{"target": leader}))

	resolved, err := e.GetValue(follower, "target")
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, leader.Slot(), resolved.(Entity).Slot())

	require.NoError(t, leader.Destroy())
	resolved, err = e.GetValue(follower, "target")
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestEntityReferenceFieldResetsToNullOnSlotReuse(t *testing.T) {
	w := newTestWorld(t, 4)
	follower := newTestComponent(t, Schema{
		"target": Field{Kind: KindEntity},
	})

	leader, err := w.CreateEntity()
	require.NoError(t, err)
	first, err := w.CreateEntity()
	require.NoError(t, err)
	require.NoError(t, first.AddComponent(follower, map[string]any{"target": leader}))
	require.NoError(t, first.Destroy())

	// The new occupant of the reused slot must see the schema default
	// (null), not the prior incarnation's stored target slot.
	second, err := w.CreateEntity()
	require.NoError(t, err)
	require.Equal(t, first.Slot(), second.Slot())
	require.NoError(t, second.AddComponent(follower, nil))

	target, err := second.GetValue(follower, "target")
	require.NoError(t, err)
	assert.Nil(t, target)
}

func TestEntityMaskReflectsOwnedComponents(t *testing.T) {
	w := newTestWorld(t, 4)
	tag := newTestComponent(t, Schema{"v": Field{Kind: KindBoolean}})

	e, err := w.CreateEntity()
	require.NoError(t, err)
	assert.True(t, e.Mask().IsEmpty())

	require.NoError(t, e.AddComponent(tag, nil))
	assert.True(t, e.Mask().Test(uint32(tag.TypeID())))

	require.NoError(t, e.Destroy())
	assert.True(t, e.Mask().IsEmpty())
}

func TestEntityGetVectorViewIsStableAcrossGrowth(t *testing.T) {
	w := newTestWorld(t, 1)
	position := newTestComponent(t, Schema{
		"pos": Field{Kind: KindVec2, Default: []float32{0, 0}},
	})

	e, err := w.CreateEntity()
	require.NoError(t, err)
	require.NoError(t, e.AddComponent(position, nil))

	view1, err := e.GetVectorView(position, "pos")
	require.NoError(t, err)
	view1.Set(0, 5)

	// Force entity-capacity growth (and therefore column reallocation).
	for i := 0; i < 8; i++ {
		_, err := w.CreateEntity()
		require.NoError(t, err)
	}

	view2, err := e.GetVectorView(position, "pos")
	require.NoError(t, err)
	assert.Same(t, view1, view2)
	assert.Equal(t, float32(5), view2.Get(0))
}
