package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format identifies a stack file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatHCL  Format = "hcl"
)

// FormatFromPath derives the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".hcl":
		return FormatHCL, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// LoadFile reads, parses and validates the stack file at path.
func LoadFile(path string) (*Stack, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStackFileUnreadable, err)
	}

	return Parse(data, format, path)
}

// Parse decodes data in the given format and validates the result. The name
// is only used in error messages.
func Parse(data []byte, format Format, name string) (*Stack, error) {
	var (
		stack *Stack
		err   error
	)
	switch format {
	case FormatYAML:
		stack, err = parseYAML(data)
	case FormatTOML:
		stack, err = parseTOML(data)
	case FormatHCL:
		stack, err = parseHCL(data, name)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse stack file %s: %w", name, err)
	}

	if err := stack.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stack file %s: %w", name, err)
	}
	return stack, nil
}

func parseYAML(data []byte) (*Stack, error) {
	stack := &Stack{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(stack); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML: %w", err)
	}
	return stack, nil
}

func parseTOML(data []byte) (*Stack, error) {
	stack := &Stack{}
	if _, err := toml.Decode(string(data), stack); err != nil {
		return nil, fmt.Errorf("failed to decode TOML: %w", err)
	}
	return stack, nil
}
