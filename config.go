package ecsim

// Config holds process-wide configuration for the ecsim runtime.
var Config config = config{
	defaultEntityCapacity: 1000,
}

type config struct {
	// defaultEntityCapacity is used by NewWorld when WorldOptions.EntityCapacity
	// is left at zero.
	defaultEntityCapacity int

	// errorHook, if set, is invoked with every error bark.AddTrace would
	// otherwise just wrap silently — e.g. to route system update failures
	// to a process-wide structured logger. Nil by default.
	errorHook func(error)
}

// SetDefaultEntityCapacity changes the entity capacity NewWorld falls back
// to when WorldOptions.EntityCapacity is unset.
func (c *config) SetDefaultEntityCapacity(n int) {
	if n > 0 {
		c.defaultEntityCapacity = n
	}
}

// SetErrorHook installs a process-wide observer for errors produced during
// World.Update.
func (c *config) SetErrorHook(fn func(error)) {
	c.errorHook = fn
}

func (c *config) reportError(err error) {
	if c.errorHook != nil {
		c.errorHook(err)
	}
}
