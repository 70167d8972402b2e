// Package config describes a module stack as read from a configuration file.
//
// A stack file lists modules in the order calls travel through them. Each
// module has a name, an activation switch and an ordered list of arguments
// where keys may repeat. YAML, TOML and HCL files are supported:
//
//	modules:
//	  - name: tracer
//	    pcontrol: on
//	    arguments:
//	      - foo: bar
//	      - bar: foo
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golobby/cast"
	"gopkg.in/yaml.v3"
)

// Static errors for config package
var (
	ErrEmptyModuleName     = errors.New("module name is empty")
	ErrEmptyArgumentKey    = errors.New("argument key is empty")
	ErrInvalidSwitch       = errors.New("invalid pcontrol value")
	ErrInvalidArgument     = errors.New("invalid argument entry")
	ErrUnsupportedFormat   = errors.New("unsupported stack file format")
	ErrStackFileUnreadable = errors.New("stack file unreadable")
)

// Stack is the ordered list of configured modules.
type Stack struct {
	Modules []Module `yaml:"modules" toml:"modules"`
}

// Module is one configured entry of the stack.
type Module struct {
	Name      string     `yaml:"name" toml:"name"`
	Pcontrol  Switch     `yaml:"pcontrol" toml:"pcontrol"`
	Arguments []Argument `yaml:"arguments" toml:"arguments"`
}

// Argument is a single key/value pair. Order and duplicates are preserved.
type Argument struct {
	Key   string `yaml:"key" toml:"key"`
	Value string `yaml:"value" toml:"value"`
}

// Validate checks that every module has a name and every argument a key.
func (s *Stack) Validate() error {
	for i, m := range s.Modules {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("%w: module %d", ErrEmptyModuleName, i)
		}
		for j, arg := range m.Arguments {
			if arg.Key == "" {
				return fmt.Errorf("%w: module %d (%s) argument %d", ErrEmptyArgumentKey, i, m.Name, j)
			}
		}
	}
	return nil
}

// UnmarshalYAML accepts either {key: k, value: v} or the short {k: v} form.
func (a *Argument) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: line %d: expected mapping", ErrInvalidArgument, node.Line)
	}

	fields := make(map[string]string, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		fields[node.Content[i].Value] = node.Content[i+1].Value
	}

	key, hasKey := fields["key"]
	value, hasValue := fields["value"]
	switch {
	case hasKey && hasValue && len(fields) == 2:
		a.Key, a.Value = key, value
	case len(node.Content) == 2:
		a.Key, a.Value = node.Content[0].Value, node.Content[1].Value
	default:
		return fmt.Errorf("%w: line %d: expected {key, value} or a single pair", ErrInvalidArgument, node.Line)
	}
	return nil
}

// Switch is the pcontrol setting of a module. An unset switch means enabled.
type Switch int8

const (
	SwitchUnset Switch = iota
	SwitchOn
	SwitchOff
)

// Enabled reports whether the module is active.
func (s Switch) Enabled() bool {
	return s != SwitchOff
}

func (s Switch) String() string {
	switch s {
	case SwitchOn:
		return "on"
	case SwitchOff:
		return "off"
	}
	return "unset"
}

// ParseSwitch accepts on/off, yes/no and anything strconv.ParseBool accepts.
func ParseSwitch(value string) (Switch, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return SwitchUnset, nil
	case "on", "yes":
		return SwitchOn, nil
	case "off", "no":
		return SwitchOff, nil
	}

	b, err := cast.FromString(strings.TrimSpace(value), "bool")
	if err != nil {
		return SwitchUnset, fmt.Errorf("%w: %q", ErrInvalidSwitch, value)
	}
	if b.(bool) {
		return SwitchOn, nil
	}
	return SwitchOff, nil
}

// UnmarshalYAML parses the scalar value with ParseSwitch.
func (s *Switch) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: line %d: expected scalar", ErrInvalidSwitch, node.Line)
	}
	parsed, err := ParseSwitch(node.Value)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// UnmarshalTOML accepts TOML booleans and strings.
func (s *Switch) UnmarshalTOML(data any) error {
	switch v := data.(type) {
	case bool:
		if v {
			*s = SwitchOn
		} else {
			*s = SwitchOff
		}
		return nil
	case string:
		parsed, err := ParseSwitch(v)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	}
	return fmt.Errorf("%w: %T", ErrInvalidSwitch, data)
}

// UnmarshalText parses text with ParseSwitch.
func (s *Switch) UnmarshalText(text []byte) error {
	parsed, err := ParseSwitch(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
