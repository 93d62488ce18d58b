package binobj

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/rs/xid"
)

// Engine is the serialization context: it owns the type registry, the
// per-type strategy cache and the configuration surface. It is created at
// engine start, passed to every writer and reader construction, and simply
// dropped at shutdown; there is no hidden process-global state.
//
// All Engine methods are safe for concurrent use. The writers and readers it
// hands out are not: they are single-use, bound to one buffer and one object.
type Engine struct {
	id          xid.ID
	log         *slog.Logger
	reg         *registry
	defaults    map[string]TypeDefaults
	serializers map[string]Serializer
}

// TypeDefaults is the externally owned per-type configuration the engine
// consumes read-only, keyed by logical type name.
type TypeDefaults struct {
	// ID overrides the name-derived logical type id when non-zero.
	ID int32
	// External demands the serializer registered under the type's name;
	// resolution fails if none was registered.
	External bool
	// RawMode makes the reflective plan emit schemaless sequential fields.
	RawMode bool
	// AffinityField designates the field used for key colocation.
	AffinityField string
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithTypeDefaults installs per-type configuration, normally produced by the
// conf package. Must be given at construction, before any type resolves.
func WithTypeDefaults(name string, d TypeDefaults) Option {
	return func(e *Engine) {
		e.defaults[name] = d
	}
}

// WithSerializer registers an external Serializer for the named type.
func WithSerializer(name string, s Serializer) Option {
	return func(e *Engine) {
		e.serializers[name] = s
	}
}

// NewEngine creates an empty engine. Types register lazily on first use, or
// eagerly via Register.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		id:          xid.New(),
		reg:         newRegistry(),
		defaults:    make(map[string]TypeDefaults),
		serializers: make(map[string]Serializer),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = logger.With("engine", e.id.String())
	return e
}

// --- Type registration and resolution ---

type typeConfig struct {
	name          string
	id            int32
	idSet         bool
	rawMode       bool
	affinityField string
	serializer    Serializer
}

// TypeOption customizes one explicit type registration.
type TypeOption func(*typeConfig)

// WithTypeName overrides the qualified-Go-name derived logical name.
func WithTypeName(name string) TypeOption {
	return func(c *typeConfig) { c.name = name }
}

// WithTypeID overrides the name-derived logical type id.
func WithTypeID(id int32) TypeOption {
	return func(c *typeConfig) { c.id = id; c.idSet = true }
}

// WithRawMode switches the type's reflective plan to raw sequential output.
func WithRawMode() TypeOption {
	return func(c *typeConfig) { c.rawMode = true }
}

// WithAffinityKey designates the field used to colocate related objects.
func WithAffinityKey(field string) TypeOption {
	return func(c *typeConfig) { c.affinityField = field }
}

// WithExternalSerializer binds an external serializer to this type only.
func WithExternalSerializer(s Serializer) TypeOption {
	return func(c *typeConfig) { c.serializer = s }
}

func typeOf(v any) (reflect.Type, error) {
	if t, ok := v.(reflect.Type); ok {
		return derefType(t), nil
	}
	if v == nil {
		return nil, fmt.Errorf("%w: nil value", ErrUnsupportedKind)
	}
	return derefType(reflect.TypeOf(v)), nil
}

func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// Register customizes a type before its first use. v may be an instance or a
// reflect.Type. Calling Register after the type already resolved, explicitly
// or automatically, fails with ConfigurationConflict: descriptors are
// immutable once published.
func (e *Engine) Register(v any, opts ...TypeOption) (*Descriptor, error) {
	t, err := typeOf(v)
	if err != nil {
		return nil, err
	}
	var cfg typeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	e.reg.mu.Lock()
	defer e.reg.mu.Unlock()
	if prev, ok := e.reg.lookupType(t); ok {
		return nil, fmt.Errorf("%w: %s already resolved as %q (%s)",
			ErrConfigurationConflict, t, prev.name, prev.strategy)
	}
	return e.buildLocked(t, &cfg)
}

// Resolve returns the descriptor for a type, creating and publishing it on
// first encounter. Idempotent and safe under concurrent first-use: the fast
// path is a lock-free map hit, the slow path re-checks under the registry
// lock so all racers converge on one descriptor.
func (e *Engine) Resolve(t reflect.Type) (*Descriptor, error) {
	t = derefType(t)
	if d, ok := e.reg.lookupType(t); ok {
		return d, nil
	}
	e.reg.mu.Lock()
	defer e.reg.mu.Unlock()
	if d, ok := e.reg.lookupType(t); ok {
		return d, nil
	}
	return e.buildLocked(t, &typeConfig{})
}

// buildLocked constructs and publishes a descriptor. Registration-time
// failures (schema collisions, id conflicts, missing external serializer)
// happen here, before any object of the type is ever serialized.
func (e *Engine) buildLocked(t reflect.Type, cfg *typeConfig) (*Descriptor, error) {
	name := cfg.name
	if name == "" {
		name = qualifiedName(t.PkgPath(), t.Name())
		if t.Name() == "" {
			name = t.String()
		}
	}
	def := e.defaults[name]

	id := TypeIDOf(name)
	if def.ID != 0 {
		id = def.ID
	}
	if cfg.idSet {
		id = cfg.id
	}

	ser := cfg.serializer
	if ser == nil {
		ser = e.serializers[name]
	}
	if ser == nil && def.External {
		return nil, fmt.Errorf("%w: %q configured external but no serializer registered",
			ErrConfigurationConflict, name)
	}

	d := &Descriptor{
		id:            id,
		name:          name,
		goType:        t,
		serializer:    ser,
		rawMode:       cfg.rawMode || def.RawMode,
		affinityField: firstNonEmpty(cfg.affinityField, def.AffinityField),
	}
	d.strategy = resolveStrategy(t, ser)
	if d.strategy == StrategyReflective {
		plan, err := buildPlan(t, d.rawMode)
		if err != nil {
			return nil, err
		}
		d.plan = plan
	}
	if err := e.reg.publish(d); err != nil {
		return nil, err
	}
	typesResolved.Inc()
	e.log.Debug("type resolved",
		"name", d.name, "id", d.id, "strategy", d.strategy.String(), "raw", d.rawMode)
	return d, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// LookupID returns the descriptor published under a logical type id.
func (e *Engine) LookupID(id int32) (*Descriptor, error) {
	if d, ok := e.reg.lookupID(id); ok {
		return d, nil
	}
	return nil, fmt.Errorf("%w: id %d", ErrUnresolvedType, id)
}

// --- Manual builder ---

// NewWriter opens a schema-first writer for a logical type name with no local
// Go type, the remote-node case. The name registers a manual descriptor on
// first use.
func (e *Engine) NewWriter(typeName string) (*Writer, error) {
	d, ok := e.reg.lookupName(typeName)
	if !ok {
		e.reg.mu.Lock()
		d, ok = e.reg.lookupName(typeName)
		if !ok {
			def := e.defaults[typeName]
			id := TypeIDOf(typeName)
			if def.ID != 0 {
				id = def.ID
			}
			d = &Descriptor{
				id:            id,
				name:          typeName,
				strategy:      StrategyManual,
				rawMode:       def.RawMode,
				affinityField: def.AffinityField,
			}
			if err := e.reg.publish(d); err != nil {
				e.reg.mu.Unlock()
				return nil, err
			}
			typesResolved.Inc()
		}
		e.reg.mu.Unlock()
	}
	return newWriter(e, d.id), nil
}

// --- Encode / decode ---

// Marshal serializes a value into a complete envelope using the strategy
// resolved (and cached) for its type.
func (e *Engine) Marshal(v any) ([]byte, error) {
	data, err := e.marshal(v)
	if err != nil {
		marshalErrors.Inc()
		return nil, err
	}
	marshalTotal.Inc()
	marshalBytes.Add(len(data))
	return data, nil
}

func (e *Engine) marshal(v any) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: cannot marshal nil", ErrUnsupportedKind)
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: cannot marshal nil pointer", ErrUnsupportedKind)
		}
		rv = rv.Elem()
	}
	desc, err := e.Resolve(rv.Type())
	if err != nil {
		return nil, err
	}

	w := newWriter(e, desc.id)
	switch desc.strategy {
	case StrategySelfDescribing:
		b, ok := asCapability[Binarizable](rv)
		if !ok {
			return nil, fmt.Errorf("%w: %s lost self-describing capability", ErrConfigurationConflict, desc.name)
		}
		if err := b.WriteBinary(w); err != nil {
			return nil, err
		}
	case StrategyExternal:
		if err := desc.serializer.Serialize(w, v); err != nil {
			return nil, err
		}
	case StrategyNative:
		if err := nativeMarshal(w, rv); err != nil {
			return nil, err
		}
	case StrategyReflective:
		if err := desc.plan.write(e, w, rv); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: type %q has no marshal strategy", ErrConfigurationConflict, desc.name)
	}
	return w.Finish()
}

// Unmarshal reconstructs a value from an envelope. The logical type id on the
// wire must resolve locally (ErrUnresolvedType otherwise); materialization is
// driven by the destination type's strategy, so a schema-evolved local struct
// still accepts older envelopes field by field.
func (e *Engine) Unmarshal(data []byte, v any) error {
	if err := e.unmarshal(data, v); err != nil {
		unmarshalErrors.Inc()
		return err
	}
	unmarshalTotal.Inc()
	return nil
}

func (e *Engine) unmarshal(data []byte, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return ErrNotPointer
	}
	r, err := NewReader(data)
	if err != nil {
		return err
	}
	wireDesc, err := e.LookupID(r.TypeID())
	if err != nil {
		return err
	}

	elem := rv.Elem()
	for elem.Kind() == reflect.Pointer {
		if elem.IsNil() {
			elem.Set(reflect.New(elem.Type().Elem()))
		}
		elem = elem.Elem()
	}

	desc := wireDesc
	if desc.goType == nil || desc.goType != elem.Type() {
		desc, err = e.Resolve(elem.Type())
		if err != nil {
			return err
		}
	}

	switch desc.strategy {
	case StrategySelfDescribing:
		b, ok := asCapability[Binarizable](elem)
		if !ok {
			return fmt.Errorf("%w: %s lost self-describing capability", ErrConfigurationConflict, desc.name)
		}
		return b.ReadBinary(r)
	case StrategyExternal:
		return desc.serializer.Deserialize(r, v)
	case StrategyNative:
		return nativeUnmarshal(r, elem)
	case StrategyReflective:
		return desc.plan.read(e, r, elem)
	}
	return fmt.Errorf("%w: type %q has no unmarshal strategy", ErrConfigurationConflict, desc.name)
}

// AffinityKey extracts the configured affinity field from an envelope without
// materializing the object. Returns nil when the type has no affinity field.
func (e *Engine) AffinityKey(data []byte) (any, error) {
	obj, err := AsObject(data)
	if err != nil {
		return nil, err
	}
	desc, err := e.LookupID(obj.TypeID())
	if err != nil {
		return nil, err
	}
	if desc.affinityField == "" {
		return nil, nil
	}
	return obj.Field(desc.affinityField)
}
