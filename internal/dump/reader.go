package dump

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"skyrating/internal/constants"
	"skyrating/internal/domain"

	"github.com/goccy/go-json"
)

// ReadLines reads r in chunks of chunkSize bytes and calls fn once per complete
// line. A record split across chunks is carried over to the next read. The
// line slice is only valid for the duration of the call.
func ReadLines(r io.Reader, chunkSize int, fn func(line []byte) error) error {
	if chunkSize <= 0 {
		chunkSize = constants.DumpChunkSize
	}
	chunk := make([]byte, chunkSize)
	var carry []byte

	for {
		n, err := r.Read(chunk)
		if n > 0 {
			data := chunk[:n]
			for {
				idx := bytes.IndexByte(data, '\n')
				if idx < 0 {
					carry = append(carry, data...)
					break
				}
				line := data[:idx]
				if len(carry) > 0 {
					carry = append(carry, line...)
					line = carry
				}
				if err := emit(line, fn); err != nil {
					return err
				}
				carry = carry[:0]
				data = data[idx+1:]
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read dump: %w", err)
		}
	}

	// trailing record without a final newline
	return emit(carry, fn)
}

func emit(line []byte, fn func([]byte) error) error {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}
	return fn(line)
}

// Decode parses every line of r as a T. A malformed record aborts with ErrStreamParse.
func Decode[T any](r io.Reader, fn func(*T) error) error {
	lineNo := 0
	return ReadLines(r, constants.DumpChunkSize, func(line []byte) error {
		lineNo++
		var v T
		if err := json.Unmarshal(line, &v); err != nil {
			return fmt.Errorf("line %d: %w: %v", lineNo, domain.ErrStreamParse, err)
		}
		return fn(&v)
	})
}

// DecodeFile is Decode over the file at path.
func DecodeFile[T any](path string, fn func(*T) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open dump %s: %w", path, err)
	}
	defer file.Close()

	if err := Decode(file, fn); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
