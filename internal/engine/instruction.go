package engine

import (
	"fmt"

	"github.com/slimfix/slimd/internal/convert"
	"github.com/slimfix/slimd/internal/wire"
)

// Kind tags, literal per spec.md §6.
const (
	KindMake          = "make"
	KindImport        = "import"
	KindCall          = "call"
	KindCallAndAssign = "callAndAssign"
)

// Instruction is one of the four parsed variants; a factory (ParseInstruction)
// maps the wire kind tag to the matching implementation (spec.md §4.4).
type Instruction interface {
	ID() string
	Execute(ctx *Context, registry *convert.Registry) wire.Value
}

// ParseInstruction decodes one instruction tuple, validating arity per
// kind. An empty tuple and a tuple missing its kind tag are both
// MALFORMED_INSTRUCTION, per spec.md §9 Open Question (b).
func ParseInstruction(tuple wire.Value) (Instruction, *InstructionError) {
	if !tuple.IsList() {
		return nil, newError(MalformedInstruction, "instruction is not a list")
	}
	items := tuple.Items()
	if len(items) < 2 {
		return nil, newError(MalformedInstruction, "instruction missing id or kind")
	}
	if items[0].IsList() || items[1].IsList() {
		return nil, newError(MalformedInstruction, "instruction id/kind must be strings")
	}
	id := items[0].Str()
	kind := items[1].Str()

	args, err := flatArgs(items[2:])
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindMake:
		if len(args) < 2 {
			return nil, newError(MalformedInstruction, "make requires instance and class name")
		}
		return &makeInstruction{id: id, instanceName: args[0], className: args[1], ctorArgs: args[2:]}, nil
	case KindImport:
		if len(args) != 1 {
			return nil, newError(MalformedInstruction, "import requires exactly one module name")
		}
		return &importInstruction{id: id, module: args[0]}, nil
	case KindCall:
		if len(args) < 2 {
			return nil, newError(MalformedInstruction, "call requires instance and method name")
		}
		return &callInstruction{id: id, instanceName: args[0], methodName: args[1], args: args[2:]}, nil
	case KindCallAndAssign:
		if len(args) < 3 {
			return nil, newError(MalformedInstruction, "callAndAssign requires symbol, instance, and method name")
		}
		return &callAndAssignInstruction{id: id, symbolName: args[0], instanceName: args[1], methodName: args[2], args: args[3:]}, nil
	default:
		return nil, newError(MalformedInstruction, "unknown instruction kind "+kind)
	}
}

func flatArgs(items []wire.Value) ([]string, *InstructionError) {
	out := make([]string, len(items))
	for i, item := range items {
		if item.IsList() {
			return nil, newError(MalformedInstruction, "nested list arguments are not supported")
		}
		out[i] = item.Str()
	}
	return out, nil
}

// ExecuteBatch runs every instruction in tuples strictly in order against
// ctx, recording each outcome in collector. A failed instruction does not
// abort the batch (spec.md §4.4's "Ordering within a batch"). A panic raised
// by fixture code while an instruction executes is recovered and recorded
// as that instruction's generic EXCEPTION result.
func ExecuteBatch(tuples []wire.Value, ctx *Context, registry *convert.Registry, collector *ResultCollector) {
	for _, tuple := range tuples {
		instr, err := ParseInstruction(tuple)
		if err != nil {
			collector.Raised(anonymousID(tuple), err)
			continue
		}
		payload := func() (payload wire.Value) {
			defer func() {
				if x := recover(); x != nil {
					payload = exceptionValue(asInstructionError(fmt.Errorf("%v", x)))
				}
			}()
			return instr.Execute(ctx, registry)
		}()
		collector.Record(instr.ID(), payload)
	}
}

// anonymousID recovers an id for a malformed instruction, when possible,
// so the result entry can still be paired with its source tuple.
func anonymousID(tuple wire.Value) string {
	if tuple.IsList() && len(tuple.Items()) > 0 && !tuple.Items()[0].IsList() {
		return tuple.Items()[0].Str()
	}
	return ""
}

// ---- make ----

type makeInstruction struct {
	id           string
	instanceName string
	className    string
	ctorArgs     []string
}

func (m *makeInstruction) ID() string { return m.id }

func (m *makeInstruction) Execute(ctx *Context, registry *convert.Registry) wire.Value {
	ctor, classErr := ctx.ResolveClass(m.className)
	if classErr != nil {
		return exceptionValue(classErr)
	}

	substituted := make([]string, len(m.ctorArgs))
	for i, a := range m.ctorArgs {
		substituted[i] = ctx.Substitute(a)
	}

	instance, err := ctor.New(substituted)
	if err != nil {
		return exceptionValue(newError(CouldNotInvokeConstructor, m.className+": "+err.Error()))
	}

	if storeErr := ctx.StoreInstance(m.instanceName, instance); storeErr != nil {
		return exceptionValue(storeErr.(*InstructionError))
	}
	return wire.String(OK)
}

// ---- import ----

type importInstruction struct {
	id     string
	module string
}

func (i *importInstruction) ID() string { return i.id }

func (i *importInstruction) Execute(ctx *Context, _ *convert.Registry) wire.Value {
	ctx.AddImport(i.module)
	return wire.String(OK)
}

// ---- call ----

type callInstruction struct {
	id           string
	instanceName string
	methodName   string
	args         []string
}

func (c *callInstruction) ID() string { return c.id }

func (c *callInstruction) Execute(ctx *Context, registry *convert.Registry) wire.Value {
	result, err := invoke(ctx, registry, c.instanceName, c.methodName, c.args)
	if err != nil {
		return exceptionValue(err)
	}
	return result
}

// ---- callAndAssign ----

type callAndAssignInstruction struct {
	id           string
	symbolName   string
	instanceName string
	methodName   string
	args         []string
}

func (c *callAndAssignInstruction) ID() string { return c.id }

func (c *callAndAssignInstruction) Execute(ctx *Context, registry *convert.Registry) wire.Value {
	result, err := invoke(ctx, registry, c.instanceName, c.methodName, c.args)
	if err != nil {
		return exceptionValue(err)
	}
	// On success, bind the stringified return into the symbol table as
	// well as emitting it as the result payload (spec.md §4.4). Only a
	// flat string return is bindable; a list return still emits the
	// nested list as the result payload but does not set a symbol, since
	// the symbol table only holds wire-string values (spec.md §3).
	if !result.IsList() {
		ctx.SetSymbol(c.symbolName, result.Str())
	}
	return result
}

// invoke is the shared Call/CallAndAssign body: look up the instance,
// resolve the method, convert arguments, invoke, convert the return value.
func invoke(ctx *Context, registry *convert.Registry, instanceName, methodName string, rawArgs []string) (wire.Value, *InstructionError) {
	instance, err := ctx.GetInstance(instanceName)
	if err != nil {
		return wire.Value{}, err.(*InstructionError)
	}

	method, ok := instance.Method(methodName)
	if !ok {
		return wire.Value{}, newError(NoMethodInClass, methodName)
	}

	tags := method.ParamTags()
	if len(tags) != len(rawArgs) {
		return wire.Value{}, newError(NoMethodInClass, methodName)
	}

	convertedArgs := make([]any, len(rawArgs))
	for i, raw := range rawArgs {
		substituted := ctx.Substitute(raw)
		converter, convErr := registry.Resolve(tags[i])
		if convErr != nil {
			return wire.Value{}, newError(genericException, convErr.Error())
		}
		value, convErr := converter.FromString(substituted)
		if convErr != nil {
			return wire.Value{}, newError(genericException, convErr.Error())
		}
		convertedArgs[i] = value
	}

	result, invokeErr := method.Invoke(convertedArgs)
	if invokeErr != nil {
		return wire.Value{}, asInstructionError(invokeErr)
	}

	return stringifyResult(registry, result)
}

func stringifyResult(registry *convert.Registry, result any) (wire.Value, *InstructionError) {
	if result == nil {
		return wire.String(VoidSentinel), nil
	}
	if list, ok := result.([]any); ok {
		strs, err := registry.StringifyList(list)
		if err != nil {
			return wire.Value{}, newError(genericException, err.Error())
		}
		items := make([]wire.Value, len(strs))
		for i, s := range strs {
			items[i] = wire.String(s)
		}
		return wire.List(items...), nil
	}
	s, err := registry.StringifyValue(result)
	if err != nil {
		return wire.Value{}, newError(genericException, err.Error())
	}
	return wire.String(s), nil
}

func exceptionValue(err *InstructionError) wire.Value {
	return wire.String(FormatException(err))
}
