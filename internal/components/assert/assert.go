package assert

import "reflect"

// NotNil panics if value is nil, this includes typed nil pointers hidden behind an interface.
func NotNil(value any) {
	if value == nil {
		panic("expected value to be not nil")
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Chan, reflect.Interface, reflect.Slice:
		if v.IsNil() {
			panic("expected value to be not nil")
		}
	}
}

func NotEmptyStr(str string) {
	if str == "" {
		panic("expected string to be non-empty")
	}
}

// Positive panics if n <= 0.
func Positive[T ~int | ~int64 | ~float64](n T) {
	if n <= 0 {
		panic("expected value to be positive")
	}
}
