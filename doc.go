/*
Package ecsim provides a compact Entity-Component-System runtime for
interactive simulations.

ecsim offers a data-oriented substrate: entities are opaque (slot,
generation) handles, components are named schemas backed by structure-of-
arrays column storage indexed directly by entity slot, and systems are
named, prioritized update procedures that iterate queries maintained
incrementally as entities change shape.

Core Concepts:

  - Entity: a (slot, generation) handle; field accessors read/write the
    owning ComponentDescriptor's columns at its slot.
  - ComponentDescriptor: a named schema of typed fields, plus the column
    storage for every field once registered with a World.
  - Query: a declarative predicate over a bitmask and optional field-value
    predicates, whose result set is kept consistent as entities change.
  - System: a prioritized update procedure bound to a fixed set of queries
    and an observable configuration bag.

Basic Usage:

	world := Factory.NewWorld(WorldOptions{})

	position := Factory.NewComponent("Position", Schema{
		"x": Field{Kind: KindFloat32, Default: float32(0)},
		"y": Field{Kind: KindFloat32, Default: float32(0)},
	})
	velocity := Factory.NewComponent("Velocity", Schema{
		"vx": Field{Kind: KindFloat32, Default: float32(0)},
		"vy": Field{Kind: KindFloat32, Default: float32(0)},
	})

	e, _ := world.CreateEntity()
	e.AddComponent(position, nil)
	e.AddComponent(velocity, map[string]any{"vx": float32(10)})

	q, _ := world.RegisterQuery(QueryConfig{Required: []*ComponentDescriptor{position, velocity}})
	for _, ent := range q.Entities() {
		vx, _ := ent.GetValue(velocity, "vx")
		x, _ := ent.GetValue(position, "x")
		ent.SetValue(position, "x", x.(float32)+vx.(float32))
	}

ecsim is the in-memory data plane and query engine for a larger simulation
stack; debug/inspection tooling, logging, documentation generation, and
serialization are external collaborators built against the interfaces this
package exports, not part of this module.
*/
package ecsim
