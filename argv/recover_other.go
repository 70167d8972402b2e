//go:build !linux

package argv

// Recover returns an empty vector and ErrUnsupportedPlatform. Callers should
// treat this as a degraded but usable result.
func Recover() (Argv, error) {
	return Argv{}, ErrUnsupportedPlatform
}

// RecoverChunked behaves like Recover.
func RecoverChunked(int) (Argv, error) {
	return Recover()
}
