// Package valuesandsymbols is the stock "SomeDecisionTable" example fixture:
// takes an int on setInput, returns a transformed int from output. It
// demonstrates that value comparisons and symbol capture need nothing
// special from fixture code — the engine and convert packages handle both.
package valuesandsymbols

import (
	"github.com/slimfix/slimd/internal/convert"
	"github.com/slimfix/slimd/internal/fixture"
)

// Register adds SomeDecisionTable to reg under the given module name.
func Register(reg *fixture.Registry, module string) {
	reg.Register(module, "SomeDecisionTable", fixture.ClassSpec{
		New: func(args []string) (any, error) { return &someDecisionTable{}, nil },
		Methods: []fixture.MethodSpec{
			{
				Name:      "setInput",
				ParamTags: []string{convert.TagInt},
				Func: func(self any, args []any) (any, error) {
					self.(*someDecisionTable).value = args[0].(int64)
					return nil, nil
				},
			},
			{
				Name: "output",
				Func: func(self any, args []any) (any, error) {
					return self.(*someDecisionTable).output(), nil
				},
			},
		},
	})
}

type someDecisionTable struct {
	value int64
}

func (t *someDecisionTable) output() int64 {
	if t.value%2 == 0 {
		return t.value * 2
	}
	return t.value + 1
}
