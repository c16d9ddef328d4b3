package ecsim_test

import (
	"fmt"

	"github.com/bitdrifter-labs/ecsim"
)

// Example_movement integrates x += vx*delta once per tick over every
// entity owning both Position and Velocity.
func Example_movement() {
	position := ecsim.Factory.NewComponent("Position", ecsim.Schema{
		"x": ecsim.Field{Kind: ecsim.KindFloat32, Default: float32(0)},
		"y": ecsim.Field{Kind: ecsim.KindFloat32, Default: float32(0)},
	})
	velocity := ecsim.Factory.NewComponent("Velocity", ecsim.Schema{
		"vx": ecsim.Field{Kind: ecsim.KindFloat32, Default: float32(0)},
		"vy": ecsim.Field{Kind: ecsim.KindFloat32, Default: float32(0)},
	})

	world := ecsim.Factory.NewWorld(ecsim.WorldOptions{EntityCapacity: 4})
	moving := ecsim.Factory.NewQuery(world, ecsim.QueryConfig{
		Required: []*ecsim.ComponentDescriptor{position, velocity},
	})

	e, _ := world.CreateEntity()
	e.AddComponent(position, nil)
	e.AddComponent(velocity, map[string]any{"vx": float32(10)})

	for i := 0; i < 3; i++ {
		world.Each(moving, func(ent ecsim.Entity) {
			x, _ := ent.GetValue(position, "x")
			vx, _ := ent.GetValue(velocity, "vx")
			ent.SetValue(position, "x", x.(float32)+vx.(float32)*1)
		})
		x, _ := e.GetValue(position, "x")
		fmt.Println(x)
	}

	// Output:
	// 10
	// 20
	// 30
}

// Example_configurableDamage shows a system's ConfigSignal
// (healthDecreaseRate) driving per-tick damage applied to every entity
// matching a [Health] query.
func Example_configurableDamage() {
	health := ecsim.Factory.NewComponent("Health", ecsim.Schema{
		"value": ecsim.Field{Kind: ecsim.KindInt16, Default: int16(100)},
	})

	world := ecsim.Factory.NewWorld(ecsim.WorldOptions{EntityCapacity: 4})

	// damageSystem's query and config are static declarations:
	// RegisterSystem registers "hurting", builds "healthDecreaseRate"
	// from the schema default overridden by ConfigData, and binds both
	// before Init runs.
	ctor := func() ecsim.System {
		s := &damageSystem{health: health}
		s.BaseSystem = ecsim.NewBaseSystemWithQueries("damage", 0,
			map[string]ecsim.QueryConfig{
				"hurting": {Required: []*ecsim.ComponentDescriptor{health}},
			},
			map[string]ecsim.Field{
				"healthDecreaseRate": {Kind: ecsim.KindInt16, Default: int16(0)},
			},
		)
		return s
	}
	_, _ = world.RegisterSystem(ctor, ecsim.SystemOptions{
		ConfigData: map[string]any{"healthDecreaseRate": int16(10)},
	})

	e, _ := world.CreateEntity()
	e.AddComponent(health, nil)

	world.Update(1, 0)
	v, _ := e.GetValue(health, "value")
	fmt.Println(v)

	world.Update(2, 0)
	v, _ = e.GetValue(health, "value")
	fmt.Println(v)

	// Output:
	// 90
	// 70
}

type damageSystem struct {
	*ecsim.BaseSystem
	health *ecsim.ComponentDescriptor
}

func (s *damageSystem) Update(w ecsim.World, delta, time float64) error {
	rate := s.Config("healthDecreaseRate").Get().(int16)
	w.Each(s.Query("hurting"), func(e ecsim.Entity) {
		v, _ := e.GetValue(s.health, "value")
		e.SetValue(s.health, "value", v.(int16)-int16(float64(rate)*delta))
	})
	return nil
}
