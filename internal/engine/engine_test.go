package engine_test

import (
	"testing"

	"github.com/slimfix/slimd/internal/convert"
	"github.com/slimfix/slimd/internal/engine"
	"github.com/slimfix/slimd/internal/fixture"
	"github.com/slimfix/slimd/internal/wire"
)

func newTestResolver() *fixture.Registry {
	reg := fixture.NewRegistry()
	reg.Register("pkg.mod", "Fixture", fixture.ClassSpec{
		New: func(args []string) (any, error) { return &greeter{}, nil },
		Methods: []fixture.MethodSpec{
			{
				Name:      "greet",
				ParamTags: []string{"string"},
				Func: func(self any, args []any) (any, error) {
					return "hello " + args[0].(string), nil
				},
			},
			{
				Name:      "echo",
				ParamTags: []string{"string"},
				Func: func(self any, args []any) (any, error) {
					return args[0].(string), nil
				},
			},
			{
				Name:      "compute",
				ParamTags: nil,
				Func: func(self any, args []any) (any, error) {
					return "42", nil
				},
			},
		},
	})
	return reg
}

type greeter struct{}

func tuple(fields ...string) wire.Value {
	values := make([]wire.Value, len(fields))
	for i, f := range fields {
		values[i] = wire.String(f)
	}
	return wire.List(values...)
}

func registerStringConverter(r *convert.Registry) {
	r.Register("string", stringConverter{})
}

type stringConverter struct{}

func (stringConverter) ToString(v any) (string, error) { return v.(string), nil }
func (stringConverter) FromString(s string) (any, error) { return s, nil }

func TestImportMakeCall(t *testing.T) {
	resolver := newTestResolver()
	ctx := engine.NewContext(resolver)
	registry := convert.NewRegistry()
	registerStringConverter(registry)
	collector := engine.NewResultCollector()

	batch := []wire.Value{
		tuple("id1", "import", "pkg.mod"),
		tuple("id2", "make", "x", "Fixture"),
		tuple("id3", "call", "x", "greet", "world"),
	}
	engine.ExecuteBatch(batch, ctx, registry, collector)

	entries := collector.Snapshot()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].ID != "id1" || entries[0].Payload.Str() != "OK" {
		t.Fatalf("unexpected entry 0: %+v", entries[0])
	}
	if entries[1].ID != "id2" || entries[1].Payload.Str() != "OK" {
		t.Fatalf("unexpected entry 1: %+v", entries[1])
	}
	if entries[2].ID != "id3" || entries[2].Payload.Str() != "hello world" {
		t.Fatalf("unexpected entry 2: %+v", entries[2])
	}
}

func TestMissingClass(t *testing.T) {
	resolver := newTestResolver()
	ctx := engine.NewContext(resolver)
	registry := convert.NewRegistry()
	collector := engine.NewResultCollector()

	engine.ExecuteBatch([]wire.Value{tuple("id", "make", "x", "NoSuch")}, ctx, registry, collector)

	entries := collector.Snapshot()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	want := "__EXCEPTION__: message:<<NO_CLASS NoSuch>>"
	if entries[0].Payload.Str() != want {
		t.Fatalf("got %q, want %q", entries[0].Payload.Str(), want)
	}
}

func TestCallAndAssignThenUse(t *testing.T) {
	resolver := newTestResolver()
	ctx := engine.NewContext(resolver)
	registry := convert.NewRegistry()
	registerStringConverter(registry)
	collector := engine.NewResultCollector()

	batch := []wire.Value{
		tuple("id0", "import", "pkg.mod"),
		tuple("id00", "make", "x", "Fixture"),
		tuple("id1", "callAndAssign", "S", "x", "compute"),
		tuple("id2", "call", "x", "echo", "$S"),
	}
	engine.ExecuteBatch(batch, ctx, registry, collector)

	entries := collector.Snapshot()
	if entries[2].Payload.Str() != "42" {
		t.Fatalf("expected id1 payload 42, got %q", entries[2].Payload.Str())
	}
	if entries[3].Payload.Str() != "42" {
		t.Fatalf("expected id2 payload 42, got %q", entries[3].Payload.Str())
	}
}

func TestIntegerConversion(t *testing.T) {
	resolver := fixture.NewRegistry()
	resolver.Register("pkg.mod", "Math", fixture.ClassSpec{
		New: func(args []string) (any, error) { return struct{}{}, nil },
		Methods: []fixture.MethodSpec{
			{
				Name:      "addOne",
				ParamTags: []string{convert.TagInt},
				Func: func(self any, args []any) (any, error) {
					return args[0].(int64) + 1, nil
				},
			},
		},
	})
	ctx := engine.NewContext(resolver)
	registry := convert.NewRegistry()
	collector := engine.NewResultCollector()

	batch := []wire.Value{
		tuple("id1", "import", "pkg.mod"),
		tuple("id2", "make", "m", "Math"),
		tuple("id3", "call", "m", "addOne", "5"),
	}
	engine.ExecuteBatch(batch, ctx, registry, collector)

	entries := collector.Snapshot()
	if entries[2].Payload.Str() != "6" {
		t.Fatalf("expected 6, got %q", entries[2].Payload.Str())
	}
}

func TestMalformedInstructionDoesNotAbortBatch(t *testing.T) {
	resolver := newTestResolver()
	ctx := engine.NewContext(resolver)
	registry := convert.NewRegistry()
	registerStringConverter(registry)
	collector := engine.NewResultCollector()

	batch := []wire.Value{
		tuple("bad", "nonsense"),
		tuple("id1", "import", "pkg.mod"),
	}
	engine.ExecuteBatch(batch, ctx, registry, collector)

	entries := collector.Snapshot()
	if len(entries) != 2 {
		t.Fatalf("expected both instructions to produce a result, got %d", len(entries))
	}
	if entries[1].Payload.Str() != "OK" {
		t.Fatalf("expected the second instruction to still succeed, got %q", entries[1].Payload.Str())
	}
}

func TestVoidReturn(t *testing.T) {
	resolver := fixture.NewRegistry()
	resolver.Register("pkg.mod", "Sink", fixture.ClassSpec{
		New: func(args []string) (any, error) { return struct{}{}, nil },
		Methods: []fixture.MethodSpec{
			{
				Name: "noop",
				Func: func(self any, args []any) (any, error) { return nil, nil },
			},
		},
	})
	ctx := engine.NewContext(resolver)
	registry := convert.NewRegistry()
	collector := engine.NewResultCollector()

	batch := []wire.Value{
		tuple("id1", "import", "pkg.mod"),
		tuple("id2", "make", "s", "Sink"),
		tuple("id3", "call", "s", "noop"),
	}
	engine.ExecuteBatch(batch, ctx, registry, collector)

	entries := collector.Snapshot()
	if entries[2].Payload.Str() != engine.VoidSentinel {
		t.Fatalf("expected void sentinel, got %q", entries[2].Payload.Str())
	}
}
