package binobj

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
)

// TagKey is the struct tag consulted by the reflective enumerator.
// `binobj:"-"` marks a field transient; any other value renames it.
const TagKey = "binobj"

// planField is one precompiled accessor: the wire name, its hash, and the
// index path into the struct (multi-element for promoted embedded fields).
type planField struct {
	name  string
	hash  uint32
	index []int
}

// fieldPlan is the one-time product of reflective field enumeration for a
// type. After the plan is built and cached in the descriptor, per-instance
// writes and reads walk the accessor list with no further field discovery.
//
// Field order is the declaration order reflect reports, embedded fields
// flattened in place. Within one process that order is stable and
// reproducible; it is not guaranteed stable across compiler versions, which
// matters only for raw-mode types (structured mode reads by hash, not
// position).
type fieldPlan struct {
	typ    reflect.Type
	raw    bool
	fields []planField
}

// buildPlan enumerates the serializable fields of a struct type: all exported
// fields including promoted ones, minus transient fields. Hash collisions
// between two surviving field names fail here, at registration time, never at
// write or read time.
func buildPlan(t reflect.Type, raw bool) (*fieldPlan, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: reflective strategy needs a struct, got %s", ErrUnsupportedKind, t.Kind())
	}
	plan := &fieldPlan{typ: t, raw: raw}
	seen := make(map[uint32]string)
	for _, f := range reflect.VisibleFields(t) {
		if f.PkgPath != "" {
			continue // unexported
		}
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			continue // container; its promoted leaves are visited separately
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup(TagKey); ok {
			if tag == "-" {
				continue
			}
			if tag != "" {
				name = tag
			}
		}
		h := FieldHash(name)
		if prev, ok := seen[h]; ok {
			return nil, fmt.Errorf("%w: %q and %q in %s both hash to 0x%08x",
				ErrSchemaCollision, prev, name, t, h)
		}
		seen[h] = name
		plan.fields = append(plan.fields, planField{name: name, hash: h, index: f.Index})
	}
	return plan, nil
}

// write emits every planned field through the writer, structured or raw
// depending on how the type was registered.
func (p *fieldPlan) write(e *Engine, w *Writer, rv reflect.Value) error {
	if p.raw {
		rw := w.Raw()
		for _, f := range p.fields {
			v, err := e.valueToAny(rv.FieldByIndex(f.index))
			if err != nil {
				return fmt.Errorf("field %q: %w", f.name, err)
			}
			rw.sequential(v)
		}
		return w.Err()
	}
	for _, f := range p.fields {
		v, err := e.valueToAny(rv.FieldByIndex(f.index))
		if err != nil {
			return fmt.Errorf("field %q: %w", f.name, err)
		}
		w.named(f.name, v)
	}
	return w.Err()
}

// read reconstructs every planned field. In structured mode a field missing
// from the envelope's schema keeps its zero value: that is the caller-side
// default the recoverable FieldNotFound contract asks for, and it is what
// lets old readers accept new envelopes and vice versa.
func (p *fieldPlan) read(e *Engine, r *Reader, rv reflect.Value) error {
	if p.raw {
		rr := r.Raw()
		for _, f := range p.fields {
			v, err := rr.ReadAny()
			if err != nil {
				return fmt.Errorf("field %q: %w", f.name, err)
			}
			if err := e.assignValue(rv.FieldByIndex(f.index), v); err != nil {
				return fmt.Errorf("field %q: %w", f.name, err)
			}
		}
		return rr.Err()
	}
	for _, f := range p.fields {
		v, err := r.ReadAny(f.name)
		if err != nil {
			if isFieldNotFound(err) {
				continue
			}
			return err
		}
		if err := e.assignValue(rv.FieldByIndex(f.index), v); err != nil {
			return fmt.Errorf("field %q: %w", f.name, err)
		}
	}
	return nil
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
	objectType  = reflect.TypeOf((*Object)(nil))
)

// valueToAny lowers a reflected field value into a codec-level dynamic value.
// Structs with no codec representation recurse through the engine and become
// nested envelopes.
func (e *Engine) valueToAny(fv reflect.Value) (any, error) {
	switch fv.Kind() {
	case reflect.Bool:
		return fv.Bool(), nil
	case reflect.Int8:
		return int8(fv.Int()), nil
	case reflect.Int16:
		return int16(fv.Int()), nil
	case reflect.Int32:
		return int32(fv.Int()), nil
	case reflect.Int64, reflect.Int:
		return fv.Int(), nil
	case reflect.Uint8:
		return uint8(fv.Uint()), nil
	case reflect.Uint16:
		return uint16(fv.Uint()), nil
	case reflect.Uint32:
		return uint32(fv.Uint()), nil
	case reflect.Uint64, reflect.Uint:
		return fv.Uint(), nil
	case reflect.Float32:
		return float32(fv.Float()), nil
	case reflect.Float64:
		return fv.Float(), nil
	case reflect.String:
		return fv.String(), nil
	case reflect.Slice, reflect.Array:
		if fv.Type().Elem().Kind() == reflect.Uint8 && fv.Kind() == reflect.Slice {
			return fv.Bytes(), nil
		}
		out := make([]any, fv.Len())
		for i := 0; i < fv.Len(); i++ {
			el, err := e.valueToAny(fv.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = el
		}
		return out, nil
	case reflect.Map:
		if fv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%w: map key %s, only string keys encode", ErrUnsupportedKind, fv.Type().Key())
		}
		out := make(map[string]any, fv.Len())
		iter := fv.MapRange()
		for iter.Next() {
			el, err := e.valueToAny(iter.Value())
			if err != nil {
				return nil, err
			}
			out[iter.Key().String()] = el
		}
		return out, nil
	case reflect.Struct:
		switch fv.Type() {
		case timeType:
			return fv.Interface().(time.Time), nil
		case decimalType:
			return fv.Interface().(decimal.Decimal), nil
		}
		if ev, ok := fv.Interface().(EnumValue); ok {
			return ev, nil
		}
		data, err := e.Marshal(fv.Interface())
		if err != nil {
			return nil, err
		}
		return AsObject(data)
	case reflect.Pointer:
		if fv.IsNil() {
			return nil, nil
		}
		if fv.Type() == objectType {
			return fv.Interface().(*Object), nil
		}
		return e.valueToAny(fv.Elem())
	case reflect.Interface:
		if fv.IsNil() {
			return nil, nil
		}
		return e.valueToAny(fv.Elem())
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, fv.Type())
}

// assignValue raises a decoded dynamic value back into a reflected field,
// converting between the codec's canonical widths and the field's own type.
func (e *Engine) assignValue(dst reflect.Value, v any) error {
	if v == nil {
		dst.SetZero()
		return nil
	}
	if obj, ok := v.(*Object); ok {
		return e.assignObject(dst, obj)
	}

	sv := reflect.ValueOf(v)
	dt := dst.Type()
	switch dst.Kind() {
	case reflect.Bool:
		if b, ok := v.(bool); ok {
			dst.SetBool(b)
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch x := v.(type) {
		case int8:
			dst.SetInt(int64(x))
			return nil
		case int16:
			dst.SetInt(int64(x))
			return nil
		case int32:
			dst.SetInt(int64(x))
			return nil
		case int64:
			dst.SetInt(x)
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		switch x := v.(type) {
		case uint8:
			dst.SetUint(uint64(x))
			return nil
		case uint16:
			dst.SetUint(uint64(x))
			return nil
		case uint32:
			dst.SetUint(uint64(x))
			return nil
		case uint64:
			dst.SetUint(x)
			return nil
		}
	case reflect.Float32, reflect.Float64:
		switch x := v.(type) {
		case float32:
			dst.SetFloat(float64(x))
			return nil
		case float64:
			dst.SetFloat(x)
			return nil
		}
	case reflect.String:
		if s, ok := v.(string); ok {
			dst.SetString(s)
			return nil
		}
	case reflect.Slice:
		if b, ok := v.([]byte); ok && dt.Elem().Kind() == reflect.Uint8 {
			dst.SetBytes(b)
			return nil
		}
		if list, ok := v.([]any); ok {
			out := reflect.MakeSlice(dt, len(list), len(list))
			for i, el := range list {
				if err := e.assignValue(out.Index(i), el); err != nil {
					return err
				}
			}
			dst.Set(out)
			return nil
		}
	case reflect.Map:
		if m, ok := v.(map[string]any); ok && dt.Key().Kind() == reflect.String {
			out := reflect.MakeMapWithSize(dt, len(m))
			for k, el := range m {
				ev := reflect.New(dt.Elem()).Elem()
				if err := e.assignValue(ev, el); err != nil {
					return err
				}
				out.SetMapIndex(reflect.ValueOf(k).Convert(dt.Key()), ev)
			}
			dst.Set(out)
			return nil
		}
	case reflect.Struct:
		if sv.Type().ConvertibleTo(dt) {
			dst.Set(sv.Convert(dt))
			return nil
		}
	case reflect.Pointer:
		p := reflect.New(dt.Elem())
		if err := e.assignValue(p.Elem(), v); err != nil {
			return err
		}
		dst.Set(p)
		return nil
	case reflect.Interface:
		if sv.Type().AssignableTo(dt) {
			dst.Set(sv)
			return nil
		}
	}
	return fmt.Errorf("%w: cannot assign %T to %s", ErrTypeMismatch, v, dt)
}

// assignObject materializes a nested envelope into a struct or pointer field.
func (e *Engine) assignObject(dst reflect.Value, obj *Object) error {
	if dst.Type() == objectType {
		dst.Set(reflect.ValueOf(obj))
		return nil
	}
	switch dst.Kind() {
	case reflect.Struct:
		return e.Unmarshal(obj.Bytes(), dst.Addr().Interface())
	case reflect.Pointer:
		p := reflect.New(dst.Type().Elem())
		if err := e.assignObject(p.Elem(), obj); err != nil {
			return err
		}
		dst.Set(p)
		return nil
	case reflect.Interface:
		dst.Set(reflect.ValueOf(obj))
		return nil
	}
	return fmt.Errorf("%w: cannot materialize nested object into %s", ErrTypeMismatch, dst.Type())
}

func isFieldNotFound(err error) bool {
	return errors.Is(err, ErrFieldNotFound)
}
