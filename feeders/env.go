// Package feeders fills configuration structs from environment variables.
package feeders

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/golobby/cast"
)

// Static errors for feeders package
var (
	ErrEnvInvalidStructure = errors.New("env: expected pointer to struct")
	ErrEnvEmptyPrefix      = errors.New("env: prefix cannot be empty")
	ErrEnvFieldCannotBeSet = errors.New("env: field cannot be set")
)

// EnvFeeder sets struct fields tagged `env:"NAME"` from PREFIX_NAME.
// Unset or empty variables leave the field untouched.
type EnvFeeder struct {
	Prefix string
	lookup func(string) (string, bool)
}

// NewEnvFeeder creates an EnvFeeder reading variables that start with prefix.
func NewEnvFeeder(prefix string) EnvFeeder {
	return EnvFeeder{Prefix: prefix, lookup: os.LookupEnv}
}

// WithLookup returns a copy of the feeder that resolves variables through
// lookup instead of the process environment.
func (f EnvFeeder) WithLookup(lookup func(string) (string, bool)) EnvFeeder {
	f.lookup = lookup
	return f
}

// Feed populates the struct pointed to by structure.
func (f EnvFeeder) Feed(structure any) error {
	if f.Prefix == "" {
		return ErrEnvEmptyPrefix
	}

	rv := reflect.ValueOf(structure)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w, got %T", ErrEnvInvalidStructure, structure)
	}

	lookup := f.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return processStructFields(rv.Elem(), strings.ToUpper(f.Prefix), lookup)
}

// processStructFields iterates through struct fields
func processStructFields(rv reflect.Value, prefix string, lookup func(string) (string, bool)) error {
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		fieldType := rv.Type().Field(i)

		if err := processField(field, &fieldType, prefix, lookup); err != nil {
			return fmt.Errorf("error in field '%s': %w", fieldType.Name, err)
		}
	}
	return nil
}

// processField handles a single struct field
func processField(field reflect.Value, fieldType *reflect.StructField, prefix string, lookup func(string) (string, bool)) error {
	envTag, tagged := fieldType.Tag.Lookup("env")

	switch {
	case field.Kind() == reflect.Struct && !tagged:
		return processStructFields(field, prefix, lookup)
	case field.Kind() == reflect.Pointer && !tagged:
		if !field.IsNil() && field.Elem().Kind() == reflect.Struct {
			return processStructFields(field.Elem(), prefix, lookup)
		}
		return nil
	case !tagged:
		return nil
	}

	envName := prefix + "_" + strings.ToUpper(envTag)
	value, ok := lookup(envName)
	if !ok || value == "" {
		return nil
	}
	return setFieldValue(field, value)
}

// setFieldValue converts and sets a field value
func setFieldValue(field reflect.Value, strValue string) error {
	if !field.CanSet() {
		return ErrEnvFieldCannotBeSet
	}

	convertedValue, err := cast.FromType(strValue, field.Type())
	if err != nil {
		return fmt.Errorf("cannot convert value to type %v: %w", field.Type(), err)
	}

	field.Set(reflect.ValueOf(convertedValue).Convert(field.Type()))
	return nil
}
