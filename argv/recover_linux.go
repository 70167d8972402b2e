//go:build linux

package argv

// CmdlinePath is where the kernel exposes the current process's arguments.
const CmdlinePath = "/proc/self/cmdline"

// Recover reads the argument vector of the current process.
func Recover() (Argv, error) {
	return RecoverChunked(DefaultChunkSize)
}

// RecoverChunked is Recover with an explicit read size.
func RecoverChunked(chunkSize int) (Argv, error) {
	return RecoverFromChunked(CmdlinePath, chunkSize)
}
