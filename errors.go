package ecsim

import "fmt"

// InvalidSchemaError is returned by createComponent when a
// schema fails validation: an enum field with no declared enum, or a vector
// field whose default has the wrong arity.
type InvalidSchemaError struct {
	ComponentID string
	Reason      string
}

func (e InvalidSchemaError) Error() string {
	return fmt.Sprintf("invalid schema for component %q: %s", e.ComponentID, e.Reason)
}

// InvalidEnumValueError is returned when an enum field is assigned a value
// outside its declared enum.
type InvalidEnumValueError struct {
	Component string
	Field     string
	Value     int
}

func (e InvalidEnumValueError) Error() string {
	return fmt.Sprintf("value %d is not a declared enum member of %s.%s", e.Value, e.Component, e.Field)
}

// ValueOutOfRangeError is returned when a numeric field is assigned a value
// outside its declared [min, max].
type ValueOutOfRangeError struct {
	Component string
	Field     string
	Value     float64
	Min, Max  float64
}

func (e ValueOutOfRangeError) Error() string {
	return fmt.Sprintf("value %v for %s.%s is outside [%v, %v]", e.Value, e.Component, e.Field, e.Min, e.Max)
}

// InvalidQueryError is returned by registerQuery when a predicate's field
// does not exist, an ordering operator targets a non-numeric field, or an
// in/nin predicate's expected value is not a slice.
type InvalidQueryError struct {
	Reason string
}

func (e InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid query: %s", e.Reason)
}

// DuplicateComponentIDError is returned by createComponent when the id has
// already been used elsewhere in the process.
type DuplicateComponentIDError struct {
	ComponentID string
}

func (e DuplicateComponentIDError) Error() string {
	return fmt.Sprintf("component id %q is already in use", e.ComponentID)
}

// LockedWorldError describes a structural mutation attempted while the
// world is mid-iteration. No function in the package returns it: such
// mutations are queued and applied once the outermost World.Each returns.
type LockedWorldError struct{}

func (e LockedWorldError) Error() string {
	return "world is currently locked by an in-progress query iteration"
}

// ComponentNotFoundError is returned when a field is addressed on a
// component the entity does not own.
type ComponentNotFoundError struct {
	Component string
}

func (e ComponentNotFoundError) Error() string {
	return fmt.Sprintf("component does not exist on entity: %s", e.Component)
}

// DuplicateSystemError is returned by World.RegisterSystem when a system
// of the same concrete type has already been registered with that World.
type DuplicateSystemError struct {
	SystemType string
}

func (e DuplicateSystemError) Error() string {
	return fmt.Sprintf("system type %q is already registered", e.SystemType)
}

// DestroyedEntityError is returned when any mutating call is made against
// an Entity handle whose generation no longer matches its slot's current
// occupant.
type DestroyedEntityError struct {
	Slot       int
	Generation uint8
}

func (e DestroyedEntityError) Error() string {
	return fmt.Sprintf("entity at slot %d (generation %d) is stale or destroyed", e.Slot, e.Generation)
}

// UnknownFieldError is returned when a field name is not part of a
// component's declared schema.
type UnknownFieldError struct {
	Component string
	Field     string
}

func (e UnknownFieldError) Error() string {
	return fmt.Sprintf("%s has no field %q", e.Component, e.Field)
}
