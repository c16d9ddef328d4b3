package ecsim

import (
	"fmt"
	"reflect"
	"strings"
)

// predOp is one of the comparison operators a value Predicate may use.
type predOp int

const (
	opEq predOp = iota
	opNe
	opLt
	opLe
	opGt
	opGe
	opIn
	opNin
)

func (o predOp) String() string {
	switch o {
	case opEq:
		return "eq"
	case opNe:
		return "ne"
	case opLt:
		return "lt"
	case opLe:
		return "le"
	case opGt:
		return "gt"
	case opGe:
		return "ge"
	case opIn:
		return "in"
	case opNin:
		return "nin"
	default:
		return "?"
	}
}

// Predicate is a value-level filter over one field of one component,
// built with the Eq/Ne/Lt/Le/Gt/Ge/In/Nin helpers below and attached to a
// QueryConfig's Where slice.
type Predicate struct {
	component *ComponentDescriptor
	field     string
	op        predOp
	value     any

	// set holds In/Nin membership values keyed by normalized value, built
	// once at query registration so per-entity evaluation is O(1) rather
	// than a scan of the expected slice.
	set map[any]struct{}
}

// buildSet materializes an In/Nin predicate's expected slice into its
// membership set. No-op for other operators.
func (p *Predicate) buildSet() {
	if p.op != opIn && p.op != opNin {
		return
	}
	values := p.value.([]any)
	p.set = make(map[any]struct{}, len(values))
	for _, v := range values {
		if key, ok := normalizeValueKey(v); ok {
			p.set[key] = struct{}{}
		}
	}
}

// normalizeValueKey folds every numeric representation of the same value
// onto one map key, so In(d, "hp", []any{5}) matches a field read back as
// int16(5) or float32(5) the same way equalValues would. Non-comparable
// values (vector reads, arbitrary objects) cannot be map keys and report
// false.
func normalizeValueKey(v any) (any, bool) {
	if f, ok := toFloat64(v); ok {
		return f, true
	}
	if v == nil {
		return nil, true
	}
	if !reflect.TypeOf(v).Comparable() {
		return nil, false
	}
	return v, true
}

func Eq(d *ComponentDescriptor, field string, value any) Predicate {
	return Predicate{component: d, field: field, op: opEq, value: value}
}
func Ne(d *ComponentDescriptor, field string, value any) Predicate {
	return Predicate{component: d, field: field, op: opNe, value: value}
}
func Lt(d *ComponentDescriptor, field string, value any) Predicate {
	return Predicate{component: d, field: field, op: opLt, value: value}
}
func Le(d *ComponentDescriptor, field string, value any) Predicate {
	return Predicate{component: d, field: field, op: opLe, value: value}
}
func Gt(d *ComponentDescriptor, field string, value any) Predicate {
	return Predicate{component: d, field: field, op: opGt, value: value}
}
func Ge(d *ComponentDescriptor, field string, value any) Predicate {
	return Predicate{component: d, field: field, op: opGe, value: value}
}
func In(d *ComponentDescriptor, field string, values []any) Predicate {
	return Predicate{component: d, field: field, op: opIn, value: values}
}
func Nin(d *ComponentDescriptor, field string, values []any) Predicate {
	return Predicate{component: d, field: field, op: opNin, value: values}
}

// QueryConfig declares a query's membership rule: entities that own every
// component in Required, own none of Excluded, and satisfy every Where
// predicate.
type QueryConfig struct {
	Required []*ComponentDescriptor
	Excluded []*ComponentDescriptor
	Where    []Predicate
}

// Query is a declarative, incrementally-maintained result set. Its result
// set and qualify/disqualify notifications stay consistent as entities are
// created, destroyed, or have their components or field values changed.
type Query interface {
	ID() string
	Entities() []Entity
	Len() int
	// Matches re-evaluates e against this query's masks and predicates
	// directly, independent of the maintained result set. After any
	// mutation returns, Matches(e) and result-set membership agree.
	Matches(e Entity) bool
	// RequiredMask and ExcludedMask return copies of the query's immutable
	// component masks.
	RequiredMask() BitSet
	ExcludedMask() BitSet
	// OnQualify registers fn to run whenever an entity enters the result
	// set. Passing replayExisting true also invokes fn once per entity
	// already in the result set, in unspecified order.
	OnQualify(fn func(Entity), replayExisting ...bool) (unsubscribe func())
	OnDisqualify(fn func(Entity)) (unsubscribe func())
}

var _ Query = (*query)(nil)

type query struct {
	id         string
	required   BitSet
	excluded   BitSet
	predicates []Predicate

	resultSlots []int
	resultIndex map[int]int

	qualifySubs    map[int]func(Entity)
	disqualifySubs map[int]func(Entity)
	nextSubID      int

	w *world
}

func (q *query) ID() string { return q.id }

func (q *query) Entities() []Entity {
	out := make([]Entity, len(q.resultSlots))
	for i, slot := range q.resultSlots {
		out[i] = q.w.entities.entityAt(slot)
	}
	return out
}

func (q *query) Len() int { return len(q.resultSlots) }

func (q *query) Matches(e Entity) bool {
	ent, ok := e.(*entity)
	if !ok || !ent.Alive() {
		return false
	}
	return q.matches(ent)
}

func (q *query) RequiredMask() BitSet { return q.required.Clone() }
func (q *query) ExcludedMask() BitSet { return q.excluded.Clone() }

func (q *query) OnQualify(fn func(Entity), replayExisting ...bool) func() {
	id := q.nextSubID
	q.nextSubID++
	q.qualifySubs[id] = fn
	if len(replayExisting) > 0 && replayExisting[0] {
		for _, slot := range q.resultSlots {
			fn(q.w.entities.entityAt(slot))
		}
	}
	return func() { delete(q.qualifySubs, id) }
}

func (q *query) OnDisqualify(fn func(Entity)) func() {
	id := q.nextSubID
	q.nextSubID++
	q.disqualifySubs[id] = fn
	return func() { delete(q.disqualifySubs, id) }
}

// matchesMask reports whether a component mask alone (ignoring value
// predicates) could satisfy this query.
func (q *query) matchesMask(mask BitSet) bool {
	if !mask.Contains(q.required) {
		return false
	}
	if mask.Intersects(q.excluded) {
		return false
	}
	return true
}

func (q *query) matches(e *entity) bool {
	mask := q.w.entities.maskAt(e.slot)
	if !q.matchesMask(mask) {
		return false
	}
	for _, p := range q.predicates {
		v, err := e.GetValue(p.component, p.field)
		if err != nil {
			return false
		}
		if !evalPredicate(p, v) {
			return false
		}
	}
	return true
}

// qualify adds slot to the result set if not already present, firing
// OnQualify subscribers. Returns true if it newly qualified.
func (q *query) qualify(e *entity) bool {
	if _, ok := q.resultIndex[e.slot]; ok {
		return false
	}
	q.resultIndex[e.slot] = len(q.resultSlots)
	q.resultSlots = append(q.resultSlots, e.slot)
	for _, fn := range q.qualifySubs {
		fn(e)
	}
	return true
}

// disqualify removes slot from the result set if present, firing
// OnDisqualify subscribers. Returns true if it was actually removed.
func (q *query) disqualify(e *entity) bool {
	idx, ok := q.resultIndex[e.slot]
	if !ok {
		return false
	}
	last := len(q.resultSlots) - 1
	movedSlot := q.resultSlots[last]
	q.resultSlots[idx] = movedSlot
	q.resultIndex[movedSlot] = idx
	q.resultSlots = q.resultSlots[:last]
	delete(q.resultIndex, e.slot)
	for _, fn := range q.disqualifySubs {
		fn(e)
	}
	return true
}

// sync re-evaluates e against this query and fires the appropriate
// qualify/disqualify transition if its membership changed.
func (q *query) sync(e *entity) {
	if q.matches(e) {
		q.qualify(e)
	} else {
		q.disqualify(e)
	}
}

func evalPredicate(p Predicate, v any) bool {
	switch p.op {
	case opEq:
		return equalValues(v, p.value)
	case opNe:
		return !equalValues(v, p.value)
	case opIn:
		key, ok := normalizeValueKey(v)
		if !ok {
			return false
		}
		_, member := p.set[key]
		return member
	case opNin:
		key, ok := normalizeValueKey(v)
		if !ok {
			return true
		}
		_, member := p.set[key]
		return !member
	default:
		a, aok := toFloat64(v)
		b, bok := toFloat64(p.value)
		if !aok || !bok {
			return false
		}
		switch p.op {
		case opLt:
			return a < b
		case opLe:
			return a <= b
		case opGt:
			return a > b
		case opGe:
			return a >= b
		}
		return false
	}
}

func equalValues(a, b any) bool {
	af, aok := toFloat64(a)
	bf, bok := toFloat64(b)
	if aok && bok {
		return af == bf
	}
	// reflect.DeepEqual rather than == so vector reads ([]float32) and
	// arbitrary Object values compare by content instead of panicking on a
	// non-comparable dynamic type.
	return reflect.DeepEqual(a, b)
}

// validateQueryConfig checks that every predicate's field exists on its
// declared component, that ordering operators target numeric fields, and
// that In/Nin predicates carry a []any value.
func validateQueryConfig(cfg QueryConfig) error {
	for _, p := range cfg.Where {
		schema, ok := p.component.FieldSchema(p.field)
		if !ok {
			return InvalidQueryError{Reason: fmt.Sprintf("%s has no field %q", p.component.id, p.field)}
		}
		switch p.op {
		case opLt, opLe, opGt, opGe:
			if !schema.Kind.isNumeric() {
				return InvalidQueryError{Reason: fmt.Sprintf("%s.%s is not numeric, cannot use ordering operator %s", p.component.id, p.field, p.op)}
			}
		case opIn, opNin:
			if _, ok := p.value.([]any); !ok {
				return InvalidQueryError{Reason: fmt.Sprintf("%s predicate on %s.%s requires a []any value", p.op, p.component.id, p.field)}
			}
		}
	}
	return nil
}

// canonicalQueryID builds the stable identity string used to dedup queries
// registered with equivalent config:
// "required:"+required.String()+"|excluded:"+excluded.String()+"|where:"+P,
// where P is the declaration-order (not sorted) comma-joined rendering of
// every predicate as "typeId:field:op=value".
func canonicalQueryID(required, excluded BitSet, predicates []Predicate) string {
	parts := make([]string, len(predicates))
	for i, p := range predicates {
		parts[i] = fmt.Sprintf("%d:%s:%s=%v", p.component.typeID, p.field, p.op, p.value)
	}
	return fmt.Sprintf("required:%s|excluded:%s|where:%s", required.String(), excluded.String(), strings.Join(parts, ","))
}
