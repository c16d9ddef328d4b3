package ecsim

import "fmt"

// Kind enumerates the field kinds a ComponentDescriptor's schema may use.
// Each Kind has a fixed arity and a backing column element type.
type Kind int

const (
	KindInt8 Kind = iota
	KindInt16
	KindFloat32
	KindFloat64
	KindBoolean
	KindEntity
	KindString
	KindObject
	KindVec2
	KindVec3
	KindVec4
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindInt8:
		return "Int8"
	case KindInt16:
		return "Int16"
	case KindFloat32:
		return "Float32"
	case KindFloat64:
		return "Float64"
	case KindBoolean:
		return "Boolean"
	case KindEntity:
		return "Entity"
	case KindString:
		return "String"
	case KindObject:
		return "Object"
	case KindVec2:
		return "Vec2"
	case KindVec3:
		return "Vec3"
	case KindVec4:
		return "Vec4"
	case KindEnum:
		return "Enum"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// arity returns the number of scalar lanes a single field value of this
// Kind occupies. Enum's effective storage width (8 vs 16 bit) is decided
// per-field from the declared enum values, not from Kind alone.
func (k Kind) arity() int {
	switch k {
	case KindVec2:
		return 2
	case KindVec3:
		return 3
	case KindVec4:
		return 4
	default:
		return 1
	}
}

func (k Kind) isVector() bool {
	return k == KindVec2 || k == KindVec3 || k == KindVec4
}

func (k Kind) isNumeric() bool {
	switch k {
	case KindInt8, KindInt16, KindFloat32, KindFloat64, KindEnum:
		return true
	default:
		return false
	}
}

// typeRegistry enumerates the field kinds known to the package and builds
// the backing column for each. It exists mostly as a named seam so a
// future kind can be added in one place; today it is a closed switch over
// Kind rather than an open registration map, since the kind set is fixed.
type typeRegistry struct{}

// TypeRegistry is the package-wide registry of field kinds.
var TypeRegistry typeRegistry

// Arity returns the number of scalar lanes for the given Kind.
func (typeRegistry) Arity(k Kind) int {
	return k.arity()
}

// newColumn constructs the backing column for a field of the given kind,
// sized to hold `capacity` entity slots. enumWidth16 selects the 16-bit
// storage form for Kind == KindEnum when the declared enum values exceed
// the int8 range.
func (typeRegistry) newColumn(k Kind, capacity int, enumWidth16 bool) column {
	switch k {
	case KindInt8:
		return &int8Column{data: make([]int8, capacity)}
	case KindInt16:
		return &int16Column{data: make([]int16, capacity)}
	case KindFloat32:
		return &float32Column{data: make([]float32, capacity)}
	case KindFloat64:
		return &float64Column{data: make([]float64, capacity)}
	case KindBoolean:
		return &boolColumn{data: make([]byte, capacity)}
	case KindEntity:
		data := make([]int32, capacity)
		for i := range data {
			data[i] = -1
		}
		return &entityRefColumn{data: data}
	case KindString:
		return &stringColumn{data: make([]string, capacity)}
	case KindObject:
		return &objectColumn{data: make([]any, capacity)}
	case KindVec2, KindVec3, KindVec4:
		arity := k.arity()
		return &vecColumn{data: make([]float32, capacity*arity), arity: arity}
	case KindEnum:
		if enumWidth16 {
			return &int16Column{data: make([]int16, capacity)}
		}
		return &int8Column{data: make([]int8, capacity)}
	default:
		panic(fmt.Sprintf("ecsim: unsupported field kind %v", k))
	}
}

// column is the type-erased interface every backing SoA array satisfies.
// Concrete columns live in column.go.
type column interface {
	grow(capacity int)
	length() int
}
