package ecsim

// factory implements the factory pattern for top-level ecsim construction.
type factory struct{}

// Factory is the global factory instance for constructing Worlds and
// ComponentDescriptors.
var Factory factory

// NewWorld constructs a World ready to register components, queries, and
// systems against.
func (f factory) NewWorld(opts WorldOptions) World {
	return newWorld(opts)
}

// NewComponent validates schema and returns a new, unregistered
// ComponentDescriptor. It panics on InvalidSchemaError or
// DuplicateComponentIDError: schema mistakes are programmer errors caught
// at startup, not runtime conditions callers are expected to handle.
func (f factory) NewComponent(id string, schema Schema) *ComponentDescriptor {
	d, err := createComponent(id, schema)
	if err != nil {
		panic(err)
	}
	return d
}

// NewQuery registers cfg with w and returns the resulting Query. It panics
// on InvalidQueryError for the same reason NewComponent panics on a bad
// schema: a malformed query is a programming mistake, not a recoverable
// runtime state.
func (f factory) NewQuery(w World, cfg QueryConfig) Query {
	q, err := w.RegisterQuery(cfg)
	if err != nil {
		panic(err)
	}
	return q
}
