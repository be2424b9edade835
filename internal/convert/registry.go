// Package convert implements the SLIM type-converter registry: a
// process-wide, build-mostly-once table translating between wire strings
// and typed Go values for a fixed set of primitive kinds plus
// caller-registered kinds.
package convert

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/golang/groupcache/singleflight"
)

// Converter is the bidirectional string<->value translator every registry
// entry must implement.
type Converter interface {
	ToString(value any) (string, error)
	FromString(s string) (any, error)
}

// BoolStyle selects which wire spelling the "bool" tag uses.
type BoolStyle int

const (
	// TrueFalse is the default bool spelling ("true"/"false").
	TrueFalse BoolStyle = iota
	// YesNo is the alternate, explicitly opted-into bool spelling.
	YesNo
)

const (
	TagBool     = "bool"
	TagInt      = "int"
	TagFloat    = "float"
	TagDate     = "date"
	TagTime     = "time"
	TagDatetime = "datetime"
	TagList     = "list"
)

// Registry is the converter registry described in spec.md §4.2/§9: a
// build-once, read-mostly table. Writers (Register/SetBoolStyle) are
// expected to run before any session lane starts accepting traffic;
// readers (Resolve) only take a read lock for the common case.
type Registry struct {
	mu         sync.RWMutex
	converters map[string]Converter
	defaults   singleflight.Group
}

// NewRegistry builds a registry with the required built-in converters
// (spec.md §4.2 table), defaulting bool to the true/false spelling.
func NewRegistry() *Registry {
	r := &Registry{converters: make(map[string]Converter)}
	r.converters[TagBool] = trueFalseConverter
	r.converters[TagInt] = intConverter{}
	r.converters[TagFloat] = floatConverter{}
	r.converters[TagDate] = dateConverter{}
	r.converters[TagTime] = timeConverter{}
	r.converters[TagDatetime] = datetimeConverter{}
	r.converters[TagList] = listMarker{}
	return r
}

// SetBoolStyle swaps the "bool" tag's wire spelling. Only the true/false
// style is registered by default; yes/no is an explicitly selected
// alternative, per spec.md §4.2.
func (r *Registry) SetBoolStyle(style BoolStyle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if style == YesNo {
		r.converters[TagBool] = yesNoConverter
	} else {
		r.converters[TagBool] = trueFalseConverter
	}
}

// Register adds or replaces the converter for tag. c must implement both
// ToString and FromString; Converter already requires this at compile
// time, but Register still type-asserts so a caller passing an
// incompletely-implemented value via a narrower interface is rejected at
// registration time rather than failing later at call time.
func (r *Registry) Register(tag string, c any) error {
	asConverter, ok := c.(Converter)
	if !ok {
		return fmt.Errorf("convert: converter for %q requires ToString and FromString", tag)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.converters[tag] = asConverter
	return nil
}

// Resolve looks up the converter for tag, falling back to a cached default
// converter (natural-stringification to_string, forbidden from_string) for
// any tag nothing has been registered under. Concurrent first-lookups of
// the same unseen tag are collapsed with a singleflight group so two lanes
// racing to synthesize the same default don't do the work twice.
func (r *Registry) Resolve(tag string) (Converter, error) {
	r.mu.RLock()
	c, ok := r.converters[tag]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	result, err := r.defaults.Do(tag, func() (interface{}, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if existing, ok := r.converters[tag]; ok {
			return existing, nil
		}
		def := defaultConverter{}
		r.converters[tag] = def
		return def, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(Converter), nil
}

// listMarker occupies the "list" tag in the registry for enumeration
// purposes. Actual list conversion goes through ConvertList/StringifyList
// below, since a list's wire representation is a nested chunk rather than
// a flat string the Converter interface could operate on.
type listMarker struct{}

func (listMarker) ToString(any) (string, error) {
	return "", fmt.Errorf("convert: list values must be converted element-wise via StringifyList")
}

func (listMarker) FromString(string) (any, error) {
	return nil, fmt.Errorf("convert: list values must be converted element-wise via ConvertList")
}

// ConvertList applies the elemTag converter's FromString to each item,
// implementing the "list | element-wise via per-element converter" row of
// spec.md §4.2's built-in converter table.
func (r *Registry) ConvertList(elemTag string, items []string) ([]any, error) {
	elemConverter, err := r.Resolve(elemTag)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(items))
	for i, item := range items {
		v, err := elemConverter.FromString(item)
		if err != nil {
			return nil, fmt.Errorf("convert: list element %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// StringifyList renders each value with the converter appropriate to its
// own runtime Go type, falling back to the default converter, implementing
// the "list" row's to_string behavior ("a list of strings").
func (r *Registry) StringifyList(values []any) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		s, err := r.StringifyValue(v)
		if err != nil {
			return nil, fmt.Errorf("convert: list element %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

// StringifyValue converts value back into a wire string using the
// converter registered for value's own Go type, falling back to the
// default converter when no tag maps to that type. This is what backs
// "to_string(type(value))" in spec.md §4.2: the tag is inferred from the
// runtime value, not supplied by the caller.
func (r *Registry) StringifyValue(value any) (string, error) {
	tag := TagForGoType(value)
	if tag == "" {
		return defaultConverter{}.ToString(value)
	}
	c, err := r.Resolve(tag)
	if err != nil {
		return "", err
	}
	return c.ToString(value)
}

// TagForGoType maps a return value's concrete Go type to the registry tag
// that knows how to stringify it, returning "" when none of the built-ins
// apply (the default converter then handles it).
func TagForGoType(value any) string {
	switch value.(type) {
	case bool:
		return TagBool
	case Date:
		return TagDate
	case Clock:
		return TagTime
	case DateTime:
		return TagDatetime
	}
	switch reflect.ValueOf(value).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return TagInt
	case reflect.Float32, reflect.Float64:
		return TagFloat
	}
	return ""
}
