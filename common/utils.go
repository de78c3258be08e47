package common

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// Deref returns *p, or fallback when p is nil. Optional glTF properties decode to pointers so an
// explicit zero can be told apart from an absent value that takes the schema default.
//
// Parameters:
//   - p: the optional value
//   - fallback: the value used when p is nil
//
// Returns:
//   - T: the dereferenced or fallback value
func Deref[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
