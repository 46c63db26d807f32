package util

import (
	"reflect"

	"github.com/pkg/errors"
)

// IsStructInitialized returns an error naming the first exported pointer,
// interface, map, slice or func field of s (a struct or pointer to one) that
// is nil. Fields tagged `ready:"-"` are skipped.
func IsStructInitialized(s any) error {
	v := reflect.ValueOf(s)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return errors.New("struct is nil")
		}
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return errors.Errorf("expected struct, got %s", v.Kind())
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Tag.Get("ready") == "-" {
			continue
		}

		//nolint:exhaustive
		switch v.Field(i).Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			if v.Field(i).IsNil() {
				return errors.Errorf("struct field %s is not initialized", field.Name)
			}
		}
	}

	return nil
}
