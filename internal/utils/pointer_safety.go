package utils

func Ptr[T any](v T) *T {
	return &v
}

// PtrOrNil returns nil for the zero value of T, otherwise a pointer to v.
func PtrOrNil[T comparable](v T) *T {
	var zero T
	if v == zero {
		return nil
	}
	return &v
}
