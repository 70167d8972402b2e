// Package argv recovers the process argument vector from the command-line
// record the operating system keeps for the current process.
//
// Recovery is only needed when the vector was not handed over through the
// normal startup path. The record is a sequence of NUL-terminated tokens.
// Argv keeps the raw record and exposes each token as a view into it,
// followed by a terminal nil entry.
package argv

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	// DefaultChunkSize is the number of bytes requested per read.
	DefaultChunkSize = 100

	initialBufferSize = 1024
	initialVectorSize = 30
)

// Static errors for argv package
var (
	ErrRecordUnavailable   = errors.New("command-line record unavailable")
	ErrUnsupportedPlatform = errors.New("no mechanism to recover argc/argv on this platform")
)

// Source produces an argument vector.
type Source func() (Argv, error)

// Argv is a recovered argument vector. The zero value is an empty vector.
type Argv struct {
	record []byte
	vector [][]byte
}

// New builds an Argv from already known arguments, laying them out the same
// way the operating system record is laid out.
func New(args ...string) Argv {
	var record []byte
	for _, arg := range args {
		record = append(record, arg...)
		record = append(record, 0)
	}
	return Tokenize(record)
}

// Argc returns the number of arguments.
func (a Argv) Argc() int {
	if len(a.vector) == 0 {
		return 0
	}
	return len(a.vector) - 1
}

// Arg returns argument i, or "" when i is out of range.
func (a Argv) Arg(i int) string {
	if i < 0 || i >= a.Argc() {
		return ""
	}
	return string(a.vector[i])
}

// Args returns a copy of the arguments as strings.
func (a Argv) Args() []string {
	args := make([]string, a.Argc())
	for i := range args {
		args[i] = string(a.vector[i])
	}
	return args
}

// Vector returns the tokens followed by a terminal nil entry. Every non-nil
// entry aliases the recovered record; callers must not modify it.
func (a Argv) Vector() [][]byte {
	if len(a.vector) == 0 {
		return [][]byte{nil}
	}
	return a.vector
}

// Read consumes r in chunks of chunkSize bytes and tokenizes the result.
// The buffer doubles whenever the free space left is smaller than one
// chunk, so a single read never overruns it. A chunkSize <= 0 selects
// DefaultChunkSize.
func Read(r io.Reader, chunkSize int) (Argv, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	buf := make([]byte, initialBufferSize)
	n := 0
	for {
		for len(buf)-n < chunkSize {
			grown := make([]byte, len(buf)*2)
			copy(grown, buf[:n])
			buf = grown
		}

		read, err := r.Read(buf[n : n+chunkSize])
		n += read
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Argv{}, fmt.Errorf("%w: %w", ErrRecordUnavailable, err)
		}
	}

	return Tokenize(buf[:n]), nil
}

// Tokenize splits a NUL-delimited record into an Argv without copying the
// token bytes. A trailing token without a terminating NUL is kept.
func Tokenize(record []byte) Argv {
	vector := make([][]byte, 0, initialVectorSize)
	for start := 0; start < len(record); {
		end := bytes.IndexByte(record[start:], 0)
		if end < 0 {
			end = len(record) - start
		}
		vector = appendToken(vector, record[start:start+end:start+end])
		start += end + 1
	}
	vector = appendToken(vector, nil)

	return Argv{record: record, vector: vector}
}

// appendToken doubles the vector when it is full before appending.
func appendToken(vector [][]byte, token []byte) [][]byte {
	if len(vector) == cap(vector) {
		grown := make([][]byte, len(vector), cap(vector)*2)
		copy(grown, vector)
		vector = grown
	}
	return append(vector, token)
}

// RecoverFrom reads the command-line record at path.
func RecoverFrom(path string) (Argv, error) {
	return RecoverFromChunked(path, DefaultChunkSize)
}

// RecoverFromChunked is RecoverFrom with an explicit read size.
func RecoverFromChunked(path string, chunkSize int) (Argv, error) {
	f, err := os.Open(path)
	if err != nil {
		return Argv{}, fmt.Errorf("%w: %w", ErrRecordUnavailable, err)
	}
	defer f.Close()

	return Read(f, chunkSize)
}
