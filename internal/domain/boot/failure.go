package boot

import "errors"

// ErrBootFailure matches every *Failure with errors.Is.
var ErrBootFailure = errors.New("boot failure")

// Failure is raised when the persistence root fails structural validation.
type Failure struct {
	Message string
}

func (f *Failure) Error() string {
	return f.Message
}

// Is reports whether target is ErrBootFailure.
func (f *Failure) Is(target error) bool {
	return target == ErrBootFailure
}

// Result is the outcome of a structural check.
type Result struct {
	OK      bool
	Message string
}

// Pass returns a successful Result.
func Pass() Result {
	return Result{OK: true}
}

// Fail returns a failed Result with the given diagnostic.
func Fail(message string) Result {
	return Result{Message: message}
}

// Validator checks that a persistence root can be loaded from.
type Validator interface {
	Validate(home string) Result
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(home string) Result

// Validate calls f(home).
func (f ValidatorFunc) Validate(home string) Result {
	return f(home)
}

// Check runs v against home and converts a failed Result into a *Failure.
// A failure without a message gets a generic one so the operator always sees
// something.
func Check(v Validator, home string) error {
	res := v.Validate(home)
	if res.OK {
		return nil
	}
	msg := res.Message
	if msg == "" {
		msg = "persistence root " + home + " failed structural validation"
	}
	return &Failure{Message: msg}
}
