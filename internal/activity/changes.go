// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package activity

import (
	"reflect"
	"strings"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// ChangesBetween compares the exported fields of two values of the same
// struct type (or pointers to one) and reports each difference. Fields are
// named by their json tag. No changes are reported when previous is nil,
// and none when current is nil.
func ChangesBetween(itemType string, previous, current interface{}) []Change {
	prev, ok := structValue(previous)
	if !ok {
		return nil
	}
	curr, ok := structValue(current)
	if !ok || prev.Type() != curr.Type() {
		return nil
	}

	var changes []Change
	t := curr.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, ok := fieldName(f)
		if !ok {
			continue
		}

		left, leftNil := fieldValue(prev.Field(i))
		right, rightNil := fieldValue(curr.Field(i))

		switch {
		case leftNil && rightNil:
		case leftNil:
			changes = append(changes, Change{Type: itemType, Action: ChangeCreated, Field: name, After: right})
		case rightNil:
			changes = append(changes, Change{Type: itemType, Action: ChangeDeleted, Field: name, Before: left})
		case !equal(left, right):
			changes = append(changes, Change{Type: itemType, Action: ChangeChanged, Field: name, Before: left, After: right})
		}
	}
	return changes
}

func structValue(v interface{}) (reflect.Value, bool) {
	if v == nil {
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return reflect.Value{}, false
		}
		rv = rv.Elem()
	}
	return rv, rv.Kind() == reflect.Struct
}

func fieldName(f reflect.StructField) (string, bool) {
	if !f.IsExported() {
		return "", false
	}
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name, true
	}
	return f.Name, true
}

// fieldValue dereferences pointers and reports whether the field is unset.
func fieldValue(v reflect.Value) (interface{}, bool) {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return nil, true
		}
		return fieldValue(v.Elem())
	case reflect.Map, reflect.Slice:
		if v.IsNil() {
			return nil, true
		}
	}
	return v.Interface(), false
}

func equal(a, b interface{}) bool {
	if reflect.TypeOf(a) == timeType && reflect.TypeOf(b) == timeType {
		return a.(time.Time).Equal(b.(time.Time))
	}
	return reflect.DeepEqual(a, b)
}
