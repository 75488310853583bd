// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package envflag defines flags whose defaults come from environment
// variables.
package envflag

import (
	"flag"
	"fmt"
	"strconv"
)

// Type is a constraint that permits only types supported by envflag package.
type Type interface {
	int | int64 | float64 | bool | string
}

// Value defines a flag with the given name, default value, and usage string.
//
// If the environment variable envName is set, its value replaces the
// default. A value that can't be parsed as T is reported by the returned
// error and the default is kept, so the caller decides whether a malformed
// environment is fatal.
func Value[T Type](
	fs *flag.FlagSet, getenv func(string) string,
	name, envName string, value T, usage string,
) (*T, error) {
	p := new(T)
	*p = value

	var err error
	if s := getenv(envName); s != "" {
		if v, perr := parse[T](s); perr != nil {
			err = fmt.Errorf("%s: %w", envName, perr)
		} else {
			*p = v
		}
	}

	fs.Var(&flagValue[T]{p}, name, usage+" Can be overridden by "+envName+" environment variable.")
	return p, err
}

type flagValue[T Type] struct{ p *T }

func (f *flagValue[T]) String() string {
	if f == nil || f.p == nil {
		return ""
	}
	return fmt.Sprint(*f.p)
}

func (f *flagValue[T]) Set(s string) error {
	v, err := parse[T](s)
	if err != nil {
		return err
	}
	*f.p = v
	return nil
}

// IsBoolFlag lets boolean flags be set without a value, like "-dry".
func (f *flagValue[T]) IsBoolFlag() bool {
	var zero T
	_, ok := any(zero).(bool)
	return ok
}

func parse[T Type](s string) (T, error) {
	var (
		zero T
		v    any
		err  error
	)
	switch any(zero).(type) {
	case int:
		v, err = strconv.Atoi(s)
	case int64:
		v, err = strconv.ParseInt(s, 10, 64)
	case float64:
		v, err = strconv.ParseFloat(s, 64)
	case bool:
		v, err = strconv.ParseBool(s)
	case string:
		v = s
	}
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}
