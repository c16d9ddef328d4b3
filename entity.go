package ecsim

import (
	"fmt"
	"sort"
	"strings"
)

// packRef and unpackRef encode/decode an entity's (generation, slot) pair
// into a single int32 handle that's stable to store, compare, and pass
// across API boundaries: the generation in the top byte, the slot in the
// low 24 bits.
func packRef(generation uint8, slot int) int32 {
	return int32(uint32(generation)<<24 | uint32(slot)&0x00FFFFFF)
}

func unpackRef(ref int32) (generation uint8, slot int) {
	u := uint32(ref)
	return uint8(u >> 24), int(u & 0x00FFFFFF)
}

// Entity is an opaque (slot, generation) handle bound to a World. Once the
// entity is destroyed, AddComponent, RemoveComponent, GetValue, SetValue,
// GetVectorView and Destroy return a DestroyedEntityError and change
// nothing. Handles are pooled per slot: when the slot is reused, the same
// handle refers to the new occupant, and only a Ref taken earlier still
// identifies the destroyed incarnation.
type Entity interface {
	// Ref returns the packed (generation, slot) handle for this entity.
	Ref() int32
	// Slot returns the raw entity slot index, stable only while Alive.
	Slot() int
	// Generation returns the 8-bit incarnation counter of the occupant this
	// handle was most recently issued for.
	Generation() uint8
	// Alive reports whether the slot is still occupied by this handle's
	// incarnation: active, and generation unchanged since issue.
	Alive() bool
	// Mask returns a copy of this entity's owned-component bitmask. Empty
	// once the entity is destroyed.
	Mask() BitSet

	AddComponent(d *ComponentDescriptor, values map[string]any) error
	RemoveComponent(d *ComponentDescriptor) error
	HasComponent(d *ComponentDescriptor) bool
	Components() []*ComponentDescriptor
	// ComponentsAsString renders this entity's owned component ids,
	// sorted, comma-joined — a deterministic summary for the (out-of-scope)
	// debug collaborator's snapshot feature.
	ComponentsAsString() string

	GetValue(d *ComponentDescriptor, field string) (any, error)
	SetValue(d *ComponentDescriptor, field string, value any) error
	GetVectorView(d *ComponentDescriptor, field string) (*VectorView, error)

	Destroy() error
}

var _ Entity = (*entity)(nil)

// entity is the concrete, pooled Entity implementation. Instances are
// created once per slot and reused across generations: create updates the
// wrapper's generation in place. A caller that stashed the handle of a
// destroyed entity sees Alive() report false only until the slot is
// reused; from then on the handle refers to the new occupant. A packed
// Ref taken before the destroy stays stale.
type entity struct {
	world      *world
	slot       int
	generation uint8
}

func (e *entity) Ref() int32        { return packRef(e.generation, e.slot) }
func (e *entity) Slot() int         { return e.slot }
func (e *entity) Generation() uint8 { return e.generation }

func (e *entity) Alive() bool {
	return e.world.entities.activeAt(e.slot) &&
		e.world.entities.generationAt(e.slot) == e.generation
}

func (e *entity) Mask() BitSet {
	if !e.Alive() {
		return BitSet{}
	}
	return e.world.entities.maskAt(e.slot).Clone()
}

func (e *entity) checkAlive() error {
	if !e.Alive() {
		return DestroyedEntityError{Slot: e.slot, Generation: e.generation}
	}
	return nil
}

func (e *entity) AddComponent(d *ComponentDescriptor, values map[string]any) error {
	if err := e.checkAlive(); err != nil {
		return err
	}
	return e.world.addComponent(e, d, values)
}

func (e *entity) RemoveComponent(d *ComponentDescriptor) error {
	if err := e.checkAlive(); err != nil {
		return err
	}
	return e.world.removeComponent(e, d)
}

func (e *entity) HasComponent(d *ComponentDescriptor) bool {
	if !e.Alive() {
		return false
	}
	return e.world.entities.maskAt(e.slot).Test(uint32(d.typeID))
}

func (e *entity) Components() []*ComponentDescriptor {
	if !e.Alive() {
		return nil
	}
	mask := e.world.entities.maskAt(e.slot)
	out := make([]*ComponentDescriptor, 0, mask.Cardinality())
	for _, bit := range mask.ToArray() {
		if d := e.world.components.byType(int(bit)); d != nil {
			out = append(out, d)
		}
	}
	return out
}

func (e *entity) ComponentsAsString() string {
	names := make([]string, 0, len(e.Components()))
	for _, d := range e.Components() {
		names = append(names, d.id)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

func (e *entity) GetValue(d *ComponentDescriptor, field string) (any, error) {
	if err := e.checkAlive(); err != nil {
		return nil, err
	}
	if !e.HasComponent(d) {
		return nil, ComponentNotFoundError{Component: d.id}
	}
	idx, ok := d.fieldIndex[field]
	if !ok {
		return nil, UnknownFieldError{Component: d.id, Field: field}
	}
	schema := d.fields[field]
	raw := readColumn(d.columns[idx], e.slot, schema)
	if schema.Kind == KindEntity {
		return e.resolveEntityRef(raw), nil
	}
	return raw, nil
}

// resolveEntityRef turns a stored entityRefColumn slot index into the live
// Entity handle occupying that slot, per the inverse coercion GetValue
// applies to Entity-kind fields. A null slot (-1) or a slot whose occupant
// has since been destroyed resolves to nil.
func (e *entity) resolveEntityRef(raw any) any {
	if raw == nil {
		return nil
	}
	slot, ok := raw.(int32)
	if !ok {
		return nil
	}
	if resolved := e.world.entities.liveAt(int(slot)); resolved != nil {
		return resolved
	}
	return nil
}

func (e *entity) SetValue(d *ComponentDescriptor, field string, value any) error {
	if err := e.checkAlive(); err != nil {
		return err
	}
	if !e.HasComponent(d) {
		return ComponentNotFoundError{Component: d.id}
	}
	idx, ok := d.fieldIndex[field]
	if !ok {
		return UnknownFieldError{Component: d.id, Field: field}
	}
	schema := d.fields[field]
	if *e.world.options.ChecksOn {
		if err := validateFieldValue(d, field, schema, value); err != nil {
			return err
		}
	}
	writeColumn(d.columns[idx], e.slot, schema, value)
	e.world.queries.updateEntityValue(e, d, field)
	return nil
}

// GetVectorView returns a live, cached view onto a Vec2/Vec3/Vec4 field's
// lanes. Repeated calls for the same (entity, descriptor, field) return
// views backed by the same underlying column pointer and slot, so
// in-place edits through one view are visible through another, and
// remain valid across later column growth since the view re-derives its
// slice from the column rather than caching one.
func (e *entity) GetVectorView(d *ComponentDescriptor, field string) (*VectorView, error) {
	if err := e.checkAlive(); err != nil {
		return nil, err
	}
	if !e.HasComponent(d) {
		return nil, ComponentNotFoundError{Component: d.id}
	}
	idx, ok := d.fieldIndex[field]
	if !ok {
		return nil, UnknownFieldError{Component: d.id, Field: field}
	}
	col, ok := d.columns[idx].(*vecColumn)
	if !ok {
		return nil, InvalidQueryError{Reason: fmt.Sprintf("%s.%s is not a vector field", d.id, field)}
	}
	return e.world.vectorView(e, col, field), nil
}

func (e *entity) Destroy() error {
	if err := e.checkAlive(); err != nil {
		return err
	}
	return e.world.destroyEntity(e)
}

// VectorView exposes a Vec2/Vec3/Vec4 field's lanes for direct in-place
// numeric access without allocating a new slice per call.
type VectorView struct {
	col  *vecColumn
	slot int
}

// Lanes returns the live backing slice for this view's slot. The slice is
// re-derived from the column on every call, so it stays valid even if the
// column has grown (and its backing array been reallocated) since the
// view was obtained.
func (v *VectorView) Lanes() []float32 { return v.col.lanes(v.slot) }

func (v *VectorView) Get(i int) float32    { return v.col.lanes(v.slot)[i] }
func (v *VectorView) Set(i int, x float32) { v.col.lanes(v.slot)[i] = x }
func (v *VectorView) Len() int             { return v.col.arity }

func readColumn(col column, slot int, field Field) any {
	switch c := col.(type) {
	case *int8Column:
		if field.Kind == KindEnum {
			return int(c.data[slot])
		}
		return c.data[slot]
	case *int16Column:
		if field.Kind == KindEnum {
			return int(c.data[slot])
		}
		return c.data[slot]
	case *float32Column:
		return c.data[slot]
	case *float64Column:
		return c.data[slot]
	case *boolColumn:
		return c.data[slot] != 0
	case *entityRefColumn:
		if c.data[slot] < 0 {
			return nil
		}
		return c.data[slot]
	case *stringColumn:
		return c.data[slot]
	case *objectColumn:
		return c.data[slot]
	case *vecColumn:
		v := make([]float32, c.arity)
		copy(v, c.lanes(slot))
		return v
	default:
		return nil
	}
}

func writeColumn(col column, slot int, field Field, value any) {
	switch c := col.(type) {
	case *int8Column:
		if field.Kind == KindEnum {
			c.data[slot] = int8(value.(int))
		} else {
			c.data[slot] = value.(int8)
		}
	case *int16Column:
		if field.Kind == KindEnum {
			c.data[slot] = int16(value.(int))
		} else {
			c.data[slot] = value.(int16)
		}
	case *float32Column:
		c.data[slot] = value.(float32)
	case *float64Column:
		c.data[slot] = value.(float64)
	case *boolColumn:
		if value.(bool) {
			c.data[slot] = 1
		} else {
			c.data[slot] = 0
		}
	case *entityRefColumn:
		if value == nil {
			c.data[slot] = -1
			return
		}
		switch v := value.(type) {
		case int32:
			c.data[slot] = v
		case Entity:
			c.data[slot] = int32(v.Slot())
		}
	case *stringColumn:
		c.data[slot] = value.(string)
	case *objectColumn:
		c.data[slot] = value
	case *vecColumn:
		copy(c.lanes(slot), value.([]float32))
	}
}

func validateFieldValue(d *ComponentDescriptor, field string, schema Field, value any) error {
	if schema.Kind == KindEnum {
		v, ok := value.(int)
		if !ok || !d.enumContains(field, v) {
			iv := 0
			if ok {
				iv = v
			}
			return InvalidEnumValueError{Component: d.id, Field: field, Value: iv}
		}
		return nil
	}
	if schema.Kind.isNumeric() && (schema.Min != nil && schema.Max != nil) {
		f, ok := toFloat64(value)
		if ok && (f < *schema.Min || f > *schema.Max) {
			return ValueOutOfRangeError{Component: d.id, Field: field, Value: f, Min: *schema.Min, Max: *schema.Max}
		}
	}
	return nil
}

func toFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
