package util

// Choose returns a when cond holds, b otherwise.
func Choose[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}
