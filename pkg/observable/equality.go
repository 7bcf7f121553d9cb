package observable

import "reflect"

// Equality decides whether two values are equal enough to suppress a change
// notification.
type Equality func(a, b any) bool

// Identity reports equality only when both values are the same comparable
// value. Non-comparable types are never identical.
func Identity(a, b any) bool {
	return safeCompare(a, b)
}

// Shallow compares the top level of values: struct values exported field by
// exported field, maps entry by entry, everything else with == when the
// dynamic type is comparable. A non-comparable field or entry (a nested
// slice, say) always counts as changed.
func Shallow(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Struct:
		t := va.Type()
		for i := 0; i < t.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			if !safeCompare(va.Field(i).Interface(), vb.Field(i).Interface()) {
				return false
			}
		}
		return true
	case reflect.Map:
		if va.Len() != vb.Len() {
			return false
		}
		iter := va.MapRange()
		for iter.Next() {
			other := vb.MapIndex(iter.Key())
			if !other.IsValid() || !safeCompare(iter.Value().Interface(), other.Interface()) {
				return false
			}
		}
		return true
	}
	return safeCompare(a, b)
}

// Deep compares values structurally with reflect.DeepEqual.
func Deep(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

func safeCompare(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if !ta.Comparable() {
		return false
	}
	return a == b
}
