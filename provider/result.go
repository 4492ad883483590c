package provider

// Result is the outcome of a provider call. Exactly one of Value or Err is meaningful.
type Result[T any] struct {
	Value   T
	Err     error
	Message string // Human readable description of Err
}

// OK reports whether the call succeeded.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

func success[T any](value T) Result[T] {
	return Result[T]{Value: value}
}

func failure[T any](err error) Result[T] {
	return Result[T]{Err: err, Message: message(err)}
}
