package engine

import "fmt"

// Tag is one of the bit-exact exception tags spec.md §4.5 requires for
// driver compatibility.
type Tag string

const (
	MalformedInstruction      Tag = "MALFORMED_INSTRUCTION"
	NoClass                   Tag = "NO_CLASS"
	CouldNotInvokeConstructor Tag = "COULD_NOT_INVOKE_CONSTRUCTOR"
	NoInstance                Tag = "NO_INSTANCE"
	NoMethodInClass           Tag = "NO_METHOD_IN_CLASS"
	// genericException tags a fixture-raised error that doesn't fall into
	// any of the above categories, per spec.md §7's "generic tag when the
	// error is not in the known set".
	genericException Tag = "EXCEPTION"
)

// InstructionError is raised by engine operations for any of the failure
// modes named in spec.md §4.3/§4.4. It never aborts the batch: the session
// loop records it as the instruction's result and moves on.
type InstructionError struct {
	Tag    Tag
	Detail string
}

func (e *InstructionError) Error() string {
	return fmt.Sprintf("%s %s", e.Tag, e.Detail)
}

func newError(tag Tag, detail string) *InstructionError {
	return &InstructionError{Tag: tag, Detail: detail}
}

// FormatException renders an InstructionError as the wire exception
// payload, bit-exact with spec.md §4.5:
// "__EXCEPTION__: message:<<TAG detail>>"
func FormatException(err *InstructionError) string {
	return fmt.Sprintf("__EXCEPTION__: message:<<%s %s>>", err.Tag, err.Detail)
}

// asInstructionError classifies an arbitrary error raised by fixture code
// (a panic recovered into an error, or any non-engine error) as a generic
// exception, preserving its message text per spec.md §7.
func asInstructionError(err error) *InstructionError {
	if ie, ok := err.(*InstructionError); ok {
		return ie
	}
	return newError(genericException, err.Error())
}
