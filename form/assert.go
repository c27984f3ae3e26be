package form

import "fmt"

// assert panics when cond is false. It guards invariants the mapper
// establishes itself; user input is checked by Validate and never trips
// it.
func assert(cond bool, msg string) {
	if !cond {
		panic("form: assertion failed: " + msg)
	}
}

func unreachable(what string, v any) string {
	return fmt.Sprintf("form: unknown %s %q (form was not validated)", what, v)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
