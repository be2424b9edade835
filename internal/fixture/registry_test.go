package fixture_test

import (
	"testing"

	"github.com/slimfix/slimd/internal/fixture"
)

func TestRegisterAndResolve(t *testing.T) {
	reg := fixture.NewRegistry()
	reg.Register("some.module", "Widget", fixture.ClassSpec{
		New: func(args []string) (any, error) { return "widget-self", nil },
		Methods: []fixture.MethodSpec{
			{Name: "name", Func: func(self any, args []any) (any, error) { return self, nil }},
		},
	})

	ctor, err := reg.Resolve("some.module", "Widget")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	instance, err := ctor.New(nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	method, ok := instance.Method("name")
	if !ok {
		t.Fatal("expected method \"name\" to resolve")
	}
	result, err := method.Invoke(nil)
	if err != nil {
		t.Fatalf("Invoke returned error: %v", err)
	}
	if result != "widget-self" {
		t.Fatalf("got %v, want widget-self", result)
	}
}

func TestResolveUnknownModule(t *testing.T) {
	reg := fixture.NewRegistry()
	if _, err := reg.Resolve("nope", "Widget"); err == nil {
		t.Fatal("expected an error for an unregistered module")
	}
}

func TestResolveUnknownClass(t *testing.T) {
	reg := fixture.NewRegistry()
	reg.Register("some.module", "Widget", fixture.ClassSpec{
		New: func(args []string) (any, error) { return nil, nil },
	})
	if _, err := reg.Resolve("some.module", "Gadget"); err == nil {
		t.Fatal("expected an error for an unregistered class")
	}
}

func TestMethodNotFound(t *testing.T) {
	reg := fixture.NewRegistry()
	reg.Register("some.module", "Widget", fixture.ClassSpec{
		New: func(args []string) (any, error) { return nil, nil },
	})
	ctor, _ := reg.Resolve("some.module", "Widget")
	instance, _ := ctor.New(nil)
	if _, ok := instance.Method("missing"); ok {
		t.Fatal("expected Method to report false for an unregistered method")
	}
}

func TestCachingResolverServesFromCacheAfterFirstLookup(t *testing.T) {
	inner := fixture.NewRegistry()
	calls := 0
	inner.Register("m", "C", fixture.ClassSpec{
		New: func(args []string) (any, error) { calls++; return nil, nil },
	})
	cached := fixture.NewCachingResolver(inner, 8)

	ctor1, err := cached.Resolve("m", "C")
	if err != nil {
		t.Fatalf("first Resolve returned error: %v", err)
	}
	// Replace the class in the inner registry; the second lookup must be
	// served from the cache and so still return the first constructor.
	inner.Register("m", "C", fixture.ClassSpec{
		New: func(args []string) (any, error) { return nil, nil },
	})
	ctor2, err := cached.Resolve("m", "C")
	if err != nil {
		t.Fatalf("second Resolve returned error: %v", err)
	}
	if _, err := ctor1.New(nil); err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := ctor2.New(nil); err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected both constructors to be the cached first registration, got %d calls to its New", calls)
	}
}

func TestCachingResolverPropagatesUnderlyingError(t *testing.T) {
	inner := fixture.NewRegistry()
	cached := fixture.NewCachingResolver(inner, 8)
	if _, err := cached.Resolve("missing", "Widget"); err == nil {
		t.Fatal("expected an error to propagate from the wrapped resolver")
	}
}
