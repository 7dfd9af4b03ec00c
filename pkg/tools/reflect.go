/*
 * Copyright 2024 caiflower Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package tools

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/modern-go/reflect2"
)

// FnObj is a function applied to every field of a struct by DoTagFunc. Data is
// passed through untouched.
type FnObj struct {
	Fn   func(reflect.StructField, reflect.Value, interface{}) error
	Data interface{}
}

// DoTagFunc walks the exported fields of the struct v points to and calls each
// FnObj on them in order.
func DoTagFunc(v interface{}, fns []FnObj) error {
	if reflect2.IsNil(v) {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("DoTagFunc: want pointer to struct, got %T", v)
	}
	return walkStruct(rv.Elem(), fns)
}

func walkStruct(sv reflect.Value, fns []FnObj) error {
	st := sv.Type()
	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		if field.PkgPath != "" {
			continue
		}
		for _, f := range fns {
			if err := f.Fn(field, sv.Field(i), f.Data); err != nil {
				return fmt.Errorf("field %s: %w", field.Name, err)
			}
		}
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// SetDefaultValueIfNil fills zero-valued fields from their `default` tag and
// recurses into nested structs. Nil pointers are allocated only when tagged.
func SetDefaultValueIfNil(field reflect.StructField, value reflect.Value, _ interface{}) error {
	def, tagged := field.Tag.Lookup("default")

	switch value.Kind() {
	case reflect.Struct:
		return walkStruct(value, []FnObj{{Fn: SetDefaultValueIfNil}})
	case reflect.Ptr:
		if value.IsNil() {
			if !tagged && value.Type().Elem().Kind() != reflect.Struct {
				return nil
			}
			value.Set(reflect.New(value.Type().Elem()))
			if value.Elem().Kind() != reflect.Struct {
				return setScalar(value.Elem(), def)
			}
		}
		if value.Elem().Kind() == reflect.Struct {
			return walkStruct(value.Elem(), []FnObj{{Fn: SetDefaultValueIfNil}})
		}
		return nil
	}

	if !tagged || !value.IsZero() {
		return nil
	}
	return setScalar(value, def)
}

func setScalar(value reflect.Value, def string) error {
	if def == "" {
		return nil
	}
	if value.Type() == durationType {
		d, err := time.ParseDuration(def)
		if err != nil {
			return err
		}
		value.SetInt(int64(d))
		return nil
	}

	switch value.Kind() {
	case reflect.String:
		value.SetString(def)
	case reflect.Bool:
		b, err := strconv.ParseBool(def)
		if err != nil {
			return err
		}
		value.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(def, 10, value.Type().Bits())
		if err != nil {
			return err
		}
		value.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(def, 10, value.Type().Bits())
		if err != nil {
			return err
		}
		value.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(def, value.Type().Bits())
		if err != nil {
			return err
		}
		value.SetFloat(f)
	default:
		return fmt.Errorf("unsupported default for kind %s", value.Kind())
	}
	return nil
}
