package container

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unsafe"
)

const (
	injectTag = "inject"
	paramTag  = "param"
)

// fieldSpec is the parsed form of `inject:"[key][,optional]"` or `param:"[name][,optional]"`
type fieldSpec struct {
	param    bool
	name     string
	optional bool
}

func parseFieldSpec(field reflect.StructField) (fieldSpec, bool) {
	tag, isParam := field.Tag.Lookup(paramTag)
	if !isParam {
		var ok bool
		if tag, ok = field.Tag.Lookup(injectTag); !ok {
			return fieldSpec{}, false
		}
	}
	if tag == "-" {
		return fieldSpec{}, false
	}

	name, flags, _ := strings.Cut(tag, ",")
	return fieldSpec{
		param:    isParam,
		name:     strings.TrimSpace(name),
		optional: strings.TrimSpace(flags) == "optional",
	}, true
}

// buildUp injects the fields of an existing struct pointer
func (c *Core) buildUp(v *view, target any) error {
	rv := reflect.ValueOf(target)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return InvalidArgumentError("build up target must be a non-nil struct pointer, got %T", target)
	}
	c.Initialize()
	deps := &view{core: v.core, ctx: v.ctx, path: v.path}
	return c.inject(deps, rv, nil, v.args)
}

// inject fills zero-valued tagged fields of target, a pointer to a struct.
// Parameters win over injection; dependsOn redirects a field to a named component.
func (c *Core) inject(v *view, target reflect.Value, dependsOn map[string]string, params map[string]any) error {
	elem := target.Elem()
	if elem.Kind() != reflect.Struct {
		return nil
	}
	typ := elem.Type()

	if len(params) > 0 {
		c.logger.Debug("Injecting parameters", "type", typ.String(), "parameters", maskParameters(params))
	}

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		fieldValue := elem.Field(i)
		spec, ok := parseFieldSpec(field)
		if !ok {
			if field.Anonymous && field.Type.Kind() == reflect.Struct && field.Tag == "" {
				if err := c.inject(v, fieldValue.Addr(), dependsOn, params); err != nil {
					return err
				}
			}
			continue
		}

		if !fieldValue.IsZero() {
			continue
		}

		value, found, err := c.fieldValue(v, field, spec, dependsOn, params)
		if err != nil {
			return fmt.Errorf("%s: %w", field.Name, err)
		}
		if !found {
			continue
		}
		if err := assign(fieldValue, value); err != nil {
			return fmt.Errorf("%s: %w", field.Name, err)
		}
	}
	return nil
}

func (c *Core) fieldValue(v *view, field reflect.StructField, spec fieldSpec, dependsOn map[string]string, params map[string]any) (any, bool, error) {
	if value, ok := lookupFold(params, spec.name, field.Name); ok {
		return value, true, nil
	}
	if spec.param {
		if spec.optional {
			return nil, false, nil
		}
		name := spec.name
		if name == "" {
			name = field.Name
		}
		return nil, false, InvalidArgumentError("missing parameter '%s'", name)
	}

	key := spec.name
	if override, ok := lookupFold(dependsOn, field.Name); ok {
		key = override
	}

	value, err := c.resolve(v, field.Type, key)
	if err != nil {
		if spec.optional && errors.Is(err, ErrComponentNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

// lookupFold finds the first of names in m, exact match first, then case-insensitive
func lookupFold[V any](m map[string]V, names ...string) (V, bool) {
	var zero V
	if len(m) == 0 {
		return zero, false
	}
	for _, name := range names {
		if name == "" {
			continue
		}
		if value, ok := m[name]; ok {
			return value, true
		}
	}
	for _, name := range names {
		if name == "" {
			continue
		}
		for k, value := range m {
			if strings.EqualFold(k, name) {
				return value, true
			}
		}
	}
	return zero, false
}

// assign sets field to value, reaching unexported fields through their address
func assign(field reflect.Value, value any) error {
	if !field.CanSet() {
		field = reflect.NewAt(field.Type(), unsafe.Pointer(field.UnsafeAddr())).Elem()
	}

	rv := reflect.ValueOf(value)
	if !rv.IsValid() {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	if rv.Type().AssignableTo(field.Type()) {
		field.Set(rv)
		return nil
	}
	if convertible(rv.Type(), field.Type()) {
		field.Set(rv.Convert(field.Type()))
		return nil
	}
	return ComponentTypeError(field.Type().String(), field.Type().String(), rv.Type().String())
}

// convertible allows numeric widening and named string or bool types, nothing lossy across kinds
func convertible(from, to reflect.Type) bool {
	if !from.ConvertibleTo(to) {
		return false
	}
	switch {
	case isNumber(from.Kind()) && isNumber(to.Kind()):
		return true
	case from.Kind() == reflect.String && to.Kind() == reflect.String:
		return true
	case from.Kind() == reflect.Bool && to.Kind() == reflect.Bool:
		return true
	}
	return false
}

func isNumber(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Float64
}

// maskParameters hides values whose names suggest secrets
func maskParameters(params map[string]any) map[string]any {
	masked := make(map[string]any, len(params))
	for k, v := range params {
		if isSensitive(k) {
			masked[k] = "******"
			continue
		}
		masked[k] = v
	}
	return masked
}

func isSensitive(name string) bool {
	lowerName := strings.ToLower(name)
	return strings.Contains(lowerName, "password") ||
		strings.Contains(lowerName, "secret") ||
		strings.Contains(lowerName, "token") ||
		strings.Contains(lowerName, "key") && !strings.Contains(lowerName, "public")
}
