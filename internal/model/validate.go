package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report wire names ("id_ordre") rather than Go field names.
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			if l := f.Tag.Get("label"); l != "" {
				return l
			}
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// RecordError reports a decoded record that does not have the expected shape.
type RecordError struct {
	Index  int // -1 for a single record
	Field  string
	Reason string
}

func (e RecordError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("record %d: %s %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("record: %s %s", e.Field, e.Reason)
}

// Check validates a decoded record (struct, pointer to struct, or slice of them).
// Other values pass unchecked.
func Check(v any) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		return checkOne(rv.Interface(), -1)
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			el := rv.Index(i)
			for el.Kind() == reflect.Pointer {
				if el.IsNil() {
					break
				}
				el = el.Elem()
			}
			if el.Kind() != reflect.Struct {
				continue
			}
			if err := checkOne(el.Interface(), i); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkOne(v any, idx int) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return RecordError{Index: idx, Field: fe.Namespace(), Reason: reasonFor(fe)}
	}
	return RecordError{Index: idx, Field: "?", Reason: err.Error()}
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("has unexpected value %q", fmt.Sprint(fe.Value()))
	case "email":
		return "is not a valid e-mail"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "eqfield":
		return "does not match"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}

// FieldErrorsOf validates a form struct and returns wire-name keyed messages, or nil.
func FieldErrorsOf(v any) map[string]string {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}
	out := map[string]string{}
	for _, fe := range verrs {
		if _, dup := out[fe.Field()]; dup {
			continue
		}
		out[fe.Field()] = reasonFor(fe)
	}
	return out
}
