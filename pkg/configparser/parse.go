package configparser

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var ErrNotStructPointer = errors.New("config must be a pointer to a struct")

// LoadAndParseYaml loads the YAML file into the environment (when filepath is
// set) and fills cfg from it.
func LoadAndParseYaml(filepath string, cfg any) error {
	if filepath != "" {
		if err := LoadYamlFile(filepath); err != nil {
			return err
		}
	}
	return ParseEnv(cfg)
}

// ParseEnv fills the fields of cfg tagged with `env:"NAME"` from the
// environment, falling back to the `default:"..."` tag. Untagged struct fields
// are walked recursively. Supported kinds: string, bool, ints, uints, floats,
// time.Duration and slices of those (comma separated).
func ParseEnv(cfg any) error {
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return ErrNotStructPointer
	}
	return parseStruct(v.Elem())
}

func parseStruct(v reflect.Value) error {
	t := v.Type()

	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		fv := v.Field(i)

		name, tagged := field.Tag.Lookup("env")
		if !tagged {
			if fv.Kind() == reflect.Struct {
				if err := parseStruct(fv); err != nil {
					return err
				}
			}
			continue
		}

		raw, ok := os.LookupEnv(name)
		if !ok || raw == "" {
			raw, ok = field.Tag.Lookup("default")
		}
		if !ok {
			continue
		}

		if err := setValue(fv, raw); err != nil {
			return fmt.Errorf("config %s: %w", name, err)
		}
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

func setValue(fv reflect.Value, raw string) error {
	if fv.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		fv.SetInt(int64(d))
		return nil
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, fv.Type().Bits())
		if err != nil {
			return err
		}
		fv.SetFloat(f)
	case reflect.Slice:
		parts := strings.Split(raw, ",")
		slice := reflect.MakeSlice(fv.Type(), 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			item := reflect.New(fv.Type().Elem()).Elem()
			if err := setValue(item, p); err != nil {
				return err
			}
			slice = reflect.Append(slice, item)
		}
		fv.Set(slice)
	default:
		return fmt.Errorf("unsupported kind %s", fv.Kind())
	}
	return nil
}

// Dump renders cfg as "ENV=value" lines in field order. Fields tagged
// `secret:"true"` are masked.
func Dump(cfg any) []string {
	v := reflect.ValueOf(cfg)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	var lines []string
	dumpStruct(v, &lines)
	return lines
}

func dumpStruct(v reflect.Value, lines *[]string) {
	t := v.Type()
	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		fv := v.Field(i)

		name, tagged := field.Tag.Lookup("env")
		if !tagged {
			if fv.Kind() == reflect.Struct {
				dumpStruct(fv, lines)
			}
			continue
		}

		value := fmt.Sprint(fv.Interface())
		if fv.Kind() == reflect.Slice {
			items := make([]string, fv.Len())
			for j := range fv.Len() {
				items[j] = fmt.Sprint(fv.Index(j).Interface())
			}
			value = strings.Join(items, ",")
		}
		if field.Tag.Get("secret") == "true" && value != "" {
			value = "******"
		}
		*lines = append(*lines, name+"="+quoteIfNeeded(value))
	}
}
