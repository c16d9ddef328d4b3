package ecsim

import "fmt"

// Field describes one entry of a ComponentDescriptor's schema: its Kind,
// its default value, and (for numeric kinds) an optional [Min, Max] range
// or (for Kind == KindEnum) its declared set of legal integer values.
type Field struct {
	Kind    Kind
	Default any

	// Min, Max bound a numeric field's assignable range. Both must be set
	// together; a nil pair means unbounded.
	Min, Max *float64

	// Enum lists every legal value for a KindEnum field. Required when
	// Kind == KindEnum.
	Enum []int
}

// Schema is the ordered-by-iteration mapping of field name to Field that
// createComponent validates and ComponentDescriptor stores. Go maps don't
// preserve insertion order, so ComponentDescriptor additionally records
// field order explicitly (fieldNames) so column layout is deterministic.
type Schema map[string]Field

// ComponentDescriptor is a named schema of fields, plus (once registered
// with a World) the per-field SoA column storage sized to that world's
// entity capacity. Its string id is unique process-wide from the moment
// createComponent succeeds; its typeId and single-bit mask are assigned by
// the first World that registers it.
type ComponentDescriptor struct {
	id     string
	typeID int // -1 until registered
	mask   BitSet

	fieldNames  []string
	fields      map[string]Field
	fieldIndex  map[string]int
	enumWidth16 map[string]bool

	columns  []column
	capacity int
}

// ID returns the component's process-wide unique string identity.
func (d *ComponentDescriptor) ID() string { return d.id }

// TypeID returns the dense type id assigned at registration, or -1 if the
// descriptor has not been registered with any World yet.
func (d *ComponentDescriptor) TypeID() int { return d.typeID }

// Mask returns the single-bit BitSet assigned at registration. It is the
// empty BitSet before registration.
func (d *ComponentDescriptor) Mask() BitSet { return d.mask }

// Registered reports whether the descriptor has been assigned a typeId.
func (d *ComponentDescriptor) Registered() bool { return d.typeID >= 0 }

// FieldNames returns the schema's field names in column order. That order
// is fixed when the descriptor is created, from the Schema map's iteration
// order, so it is not necessarily the order the fields were written in.
func (d *ComponentDescriptor) FieldNames() []string {
	out := make([]string, len(d.fieldNames))
	copy(out, d.fieldNames)
	return out
}

// FieldSchema returns the declared Field for name, or false if name is not
// part of the schema.
func (d *ComponentDescriptor) FieldSchema(name string) (Field, bool) {
	f, ok := d.fields[name]
	return f, ok
}

// globalComponentIDs is the only process-wide shared state in the package:
// the registry of already-used component ids, enforced at createComponent
// time. It is initialized lazily (as a package-level var) and has no
// teardown.
var globalComponentIDs = make(map[string]bool)

// createComponent validates schema and returns an unregistered
// ComponentDescriptor. It fails with InvalidSchemaError if any enum field
// lacks its declared enum or any vector field's default has the wrong
// arity, and with DuplicateComponentIDError if id has already been used
// anywhere in the process.
func createComponent(id string, schema Schema) (*ComponentDescriptor, error) {
	if globalComponentIDs[id] {
		return nil, DuplicateComponentIDError{ComponentID: id}
	}

	d := &ComponentDescriptor{
		id:          id,
		typeID:      -1,
		fields:      make(map[string]Field, len(schema)),
		fieldIndex:  make(map[string]int, len(schema)),
		enumWidth16: make(map[string]bool, len(schema)),
	}

	// Schema is unordered; sort-free stable order is not required by the
	// spec (only that the same field always lands at the same column), so
	// we assign indices in whatever range order Go gives us but record it
	// once and reuse it forever after via fieldIndex/fieldNames.
	for name, field := range schema {
		if err := validateFieldSchema(id, name, field); err != nil {
			return nil, err
		}
		if field.Kind == KindEnum {
			d.enumWidth16[name] = enumNeeds16Bits(field.Enum)
		}
		d.fieldIndex[name] = len(d.fieldNames)
		d.fieldNames = append(d.fieldNames, name)
		d.fields[name] = field
	}

	globalComponentIDs[id] = true
	return d, nil
}

func validateFieldSchema(componentID, field string, f Field) error {
	switch f.Kind {
	case KindInt8, KindInt16, KindFloat32, KindFloat64, KindBoolean, KindEntity, KindString, KindObject:
		// no further structural constraints
	case KindVec2, KindVec3, KindVec4:
		if f.Default != nil {
			v, ok := f.Default.([]float32)
			if !ok || len(v) != f.Kind.arity() {
				return InvalidSchemaError{
					ComponentID: componentID,
					Reason:      fmt.Sprintf("field %q default must be a []float32 of length %d", field, f.Kind.arity()),
				}
			}
		}
	case KindEnum:
		if len(f.Enum) == 0 {
			return InvalidSchemaError{
				ComponentID: componentID,
				Reason:      fmt.Sprintf("field %q is Kind Enum but declares no enum values", field),
			}
		}
	default:
		return InvalidSchemaError{
			ComponentID: componentID,
			Reason:      fmt.Sprintf("field %q has unsupported kind %v", field, f.Kind),
		}
	}
	return nil
}

// enumNeeds16Bits reports whether any declared enum value falls outside
// the signed 8-bit range, forcing the field onto 16-bit storage.
func enumNeeds16Bits(values []int) bool {
	for _, v := range values {
		if v < -128 || v > 127 {
			return true
		}
	}
	return false
}

func (d *ComponentDescriptor) enumContains(field string, value int) bool {
	f := d.fields[field]
	for _, v := range f.Enum {
		if v == value {
			return true
		}
	}
	return false
}

// allocate builds this descriptor's column storage sized to capacity and
// assigns typeId/mask. Called by componentManager.register.
func (d *ComponentDescriptor) allocate(typeID int, capacity int) {
	d.typeID = typeID
	d.mask = BitSet{}
	d.mask.Mark(uint32(typeID))
	d.capacity = capacity
	d.columns = make([]column, len(d.fieldNames))
	for i, name := range d.fieldNames {
		field := d.fields[name]
		col := TypeRegistry.newColumn(field.Kind, capacity, d.enumWidth16[name])
		applyColumnDefault(col, field, capacity)
		d.columns[i] = col
	}
}

func (d *ComponentDescriptor) grow(capacity int) {
	if capacity <= d.capacity {
		return
	}
	oldCapacity := d.capacity
	for i, col := range d.columns {
		col.grow(capacity)
		name := d.fieldNames[i]
		fillColumnDefaultRange(col, d.fields[name], oldCapacity, capacity)
	}
	d.capacity = capacity
}

func applyColumnDefault(col column, field Field, capacity int) {
	fillColumnDefaultRange(col, field, 0, capacity)
}

// fillColumnDefaultRange initializes slots [from, to) of col to field's
// default, so newly grown capacity behaves as if it had always held the
// schema default rather than the language zero value (matters for Entity
// refs, which default to null == -1, not 0).
func fillColumnDefaultRange(col column, field Field, from, to int) {
	switch c := col.(type) {
	case *int8Column:
		v := int8(0)
		if field.Default != nil {
			if field.Kind == KindEnum {
				v = int8(field.Default.(int))
			} else {
				v = field.Default.(int8)
			}
		}
		for i := from; i < to; i++ {
			c.data[i] = v
		}
	case *int16Column:
		v := int16(0)
		if field.Default != nil {
			if field.Kind == KindEnum {
				v = int16(field.Default.(int))
			} else {
				v = field.Default.(int16)
			}
		}
		for i := from; i < to; i++ {
			c.data[i] = v
		}
	case *float32Column:
		v := float32(0)
		if field.Default != nil {
			v = field.Default.(float32)
		}
		for i := from; i < to; i++ {
			c.data[i] = v
		}
	case *float64Column:
		v := float64(0)
		if field.Default != nil {
			v = field.Default.(float64)
		}
		for i := from; i < to; i++ {
			c.data[i] = v
		}
	case *boolColumn:
		var v byte
		if field.Default != nil && field.Default.(bool) {
			v = 1
		}
		for i := from; i < to; i++ {
			c.data[i] = v
		}
	case *entityRefColumn:
		for i := from; i < to; i++ {
			c.data[i] = -1
		}
	case *stringColumn:
		v := ""
		if field.Default != nil {
			v = field.Default.(string)
		}
		for i := from; i < to; i++ {
			c.data[i] = v
		}
	case *objectColumn:
		for i := from; i < to; i++ {
			c.data[i] = field.Default
		}
	case *vecColumn:
		var v []float32
		if field.Default != nil {
			v = field.Default.([]float32)
		} else {
			v = make([]float32, c.arity)
		}
		for i := from; i < to; i++ {
			copy(c.lanes(i), v)
		}
	}
}
