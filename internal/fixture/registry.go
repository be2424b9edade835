// Package fixture implements the SLIM "fixture host" collaborator
// contracted in spec.md §6: compile-time class/method registration
// standing in for the reflective class loader a dynamic-language SLIM
// server would use (spec.md §9's registration-shim design note).
package fixture

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/slimfix/slimd/internal/engine"
)

// Constructor builds a raw fixture object from unconverted constructor
// arguments.
type Constructor func(args []string) (any, error)

// MethodFunc is a fixture method's compile-time body: self is the object
// Constructor returned, args are already converter-applied.
type MethodFunc func(self any, args []any) (any, error)

// MethodSpec describes one callable method: its converter tags (one per
// declared parameter, in order) and its body.
type MethodSpec struct {
	Name      string
	ParamTags []string
	Func      MethodFunc
}

// ClassSpec is everything the registry needs to construct and dispatch
// against one fixture class.
type ClassSpec struct {
	New     Constructor
	Methods []MethodSpec
}

// Registry is a compile-time (module, class) -> ClassSpec table populated
// via Register (for example by valuesandsymbols.Register at slimd startup).
type Registry struct {
	mu      sync.RWMutex
	classes map[string]map[string]ClassSpec
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{classes: make(map[string]map[string]ClassSpec)}
}

// Register adds a class under module, replacing any previous entry. It takes
// the registry's write lock, so it may run concurrently with Resolve.
func (r *Registry) Register(module, class string, spec ClassSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byClass, ok := r.classes[module]
	if !ok {
		byClass = make(map[string]ClassSpec)
		r.classes[module] = byClass
	}
	byClass[class] = spec
}

// Resolve implements engine.ClassResolver.
func (r *Registry) Resolve(module, className string) (engine.Constructor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byClass, ok := r.classes[module]
	if !ok {
		return nil, fmt.Errorf("fixture: no module %q", module)
	}
	spec, ok := byClass[className]
	if !ok {
		return nil, fmt.Errorf("fixture: no class %q in module %q", className, module)
	}
	return ctorAdapter{spec: spec}, nil
}

type ctorAdapter struct {
	spec ClassSpec
}

func (c ctorAdapter) New(args []string) (engine.Instance, error) {
	self, err := c.spec.New(args)
	if err != nil {
		return nil, err
	}
	methods := make(map[string]MethodSpec, len(c.spec.Methods))
	for _, m := range c.spec.Methods {
		methods[m.Name] = m
	}
	return &boundInstance{self: self, methods: methods}, nil
}

type boundInstance struct {
	self    any
	methods map[string]MethodSpec
}

func (b *boundInstance) Method(name string) (engine.Method, bool) {
	spec, ok := b.methods[name]
	if !ok {
		return nil, false
	}
	return boundMethod{self: b.self, spec: spec}, true
}

type boundMethod struct {
	self any
	spec MethodSpec
}

func (m boundMethod) ParamTags() []string { return m.spec.ParamTags }

func (m boundMethod) Invoke(args []any) (any, error) {
	return m.spec.Func(m.self, args)
}

// CachingResolver wraps a ClassResolver with a bounded LRU of resolved
// (module, class) -> Constructor pairs, so repeated Make instructions for
// the same class across lanes skip back into the underlying resolver only
// once (spec.md §9's "read-mostly cache in front of the import path").
type CachingResolver struct {
	inner engine.ClassResolver
	cache *lru.Cache
}

// NewCachingResolver wraps inner with an LRU of the given size.
func NewCachingResolver(inner engine.ClassResolver, size int) *CachingResolver {
	cache, err := lru.New(size)
	if err != nil {
		// Only returns an error for size <= 0, which is a caller bug.
		panic(err)
	}
	return &CachingResolver{inner: inner, cache: cache}
}

func (c *CachingResolver) Resolve(module, className string) (engine.Constructor, error) {
	key := module + "\x00" + className
	if v, ok := c.cache.Get(key); ok {
		return v.(engine.Constructor), nil
	}
	ctor, err := c.inner.Resolve(module, className)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, ctor)
	return ctor, nil
}
