package validator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var (
	// ErrMalformedBody is returned when the payload is not a JSON object.
	ErrMalformedBody = errors.New("request body must be a JSON object")
	// ErrBodyTooLarge is returned when the payload exceeds the reader's limit.
	ErrBodyTooLarge = errors.New("request body too large")
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonFieldName)
}

// ValidateStruct validates a struct
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidationErrors is every rule a payload violated, in field declaration order.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, ve := range e {
		msgs = append(msgs, ve.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// DecodeJSON reads a JSON object from r into dst, a pointer to a struct, and
// checks it against the struct's validate tags. Type mismatches on fields that
// carry rules are reported per field alongside rule violations instead of
// aborting on the first one, including inside nested objects and arrays of
// objects. Mistyped values on fields without rules are dropped silently.
// The returned error is ErrMalformedBody or ErrBodyTooLarge (wrapped), or
// ValidationErrors.
func DecodeJSON(r io.Reader, dst any) error {
	body, err := io.ReadAll(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, maxErr.Limit)
		}
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("decode target must be a pointer to a struct, got %T", dst)
	}
	rt := rv.Elem().Type()

	errs := checkObject(raw, rt, "")

	filtered, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if err := json.Unmarshal(filtered, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	mistyped := make([]string, 0, len(errs))
	for _, e := range errs {
		mistyped = append(mistyped, e.Field)
	}
	if err := ValidateStruct(dst); err != nil {
		for _, fe := range FormatValidationError(err) {
			if !within(fe.Field, mistyped) {
				errs = append(errs, fe)
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}

	order := make(map[string]int, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		order[jsonFieldName(rt.Field(i))] = i
	}
	sort.SliceStable(errs, func(i, j int) bool {
		return order[topLevel(errs[i].Field)] < order[topLevel(errs[j].Field)]
	})
	return errs
}

// checkObject removes from raw every value that cannot populate its field in
// rt, descending into nested objects. Paths are reported under prefix.
func checkObject(raw map[string]json.RawMessage, rt reflect.Type, prefix string) ValidationErrors {
	var errs ValidationErrors
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		name := jsonFieldName(sf)
		value, ok := raw[name]
		if name == "" || !ok {
			continue
		}
		path := prefix + name

		if tag, matches := matchesKind(sf.Type, value); !matches {
			delete(raw, name)
			if sf.Tag.Get("validate") != "" {
				errs = append(errs, ValidationError{
					Field:   path,
					Tag:     tag,
					Message: typeMessage(path, tag),
				})
			}
			continue
		}

		cleaned, nestedErrs := checkNested(sf.Type, value, path)
		raw[name] = cleaned
		errs = append(errs, nestedErrs...)
	}
	return errs
}

func checkNested(t reflect.Type, value json.RawMessage, path string) (json.RawMessage, ValidationErrors) {
	t = indirect(t)
	switch {
	case t.Kind() == reflect.Struct:
		return checkNestedObject(t, value, path+".")
	case t.Kind() == reflect.Slice && indirect(t.Elem()).Kind() == reflect.Struct:
		var items []json.RawMessage
		if err := json.Unmarshal(value, &items); err != nil {
			return value, nil
		}
		elem := indirect(t.Elem())

		var errs ValidationErrors
		for i, item := range items {
			itemPath := fmt.Sprintf("%s[%d]", path, i)
			if tag, ok := matchesKind(elem, item); !ok {
				errs = append(errs, ValidationError{
					Field:   itemPath,
					Tag:     tag,
					Message: typeMessage(itemPath, tag),
				})
				items[i] = json.RawMessage("{}")
				continue
			}
			cleaned, itemErrs := checkNestedObject(elem, item, itemPath+".")
			items[i] = cleaned
			errs = append(errs, itemErrs...)
		}

		out, err := json.Marshal(items)
		if err != nil {
			return value, errs
		}
		return out, errs
	default:
		return value, nil
	}
}

func checkNestedObject(t reflect.Type, value json.RawMessage, prefix string) (json.RawMessage, ValidationErrors) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(value, &raw); err != nil || raw == nil {
		return value, nil
	}
	errs := checkObject(raw, t, prefix)

	out, err := json.Marshal(raw)
	if err != nil {
		return value, errs
	}
	return out, errs
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// within reports whether path is one of roots or lies beneath one.
func within(path string, roots []string) bool {
	for _, root := range roots {
		if path == root || strings.HasPrefix(path, root+".") || strings.HasPrefix(path, root+"[") {
			return true
		}
	}
	return false
}

// FormatValidationError formats validation errors into a readable format
func FormatValidationError(err error) ValidationErrors {
	var out ValidationErrors

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fieldError := range validationErrors {
			out = append(out, ValidationError{
				Field:   fieldPath(fieldError),
				Tag:     fieldError.Tag(),
				Message: getErrorMessage(fieldError),
			})
		}
	}

	return out
}

// fieldPath drops the root struct name from the namespace, so nested
// fields read as "users[1].email".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func topLevel(path string) string {
	if i := strings.IndexAny(path, ".["); i >= 0 {
		return path[:i]
	}
	return path
}

// matchesKind reports whether a raw JSON value can populate a field of type t.
// null always matches; it leaves the field at its zero value.
func matchesKind(t reflect.Type, value json.RawMessage) (string, bool) {
	v := bytes.TrimSpace(value)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return "", true
	}
	switch indirect(t).Kind() {
	case reflect.String:
		return "string", v[0] == '"'
	case reflect.Bool:
		return "boolean", bytes.Equal(v, []byte("true")) || bytes.Equal(v, []byte("false"))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		var n json.Number
		if err := json.Unmarshal(v, &n); err != nil {
			return "integer", false
		}
		_, err := n.Int64()
		return "integer", err == nil
	case reflect.Slice:
		return "array", v[0] == '['
	case reflect.Struct, reflect.Map:
		return "object", v[0] == '{'
	default:
		return "", true
	}
}

func jsonFieldName(sf reflect.StructField) string {
	tag := sf.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	name := strings.SplitN(tag, ",", 2)[0]
	if name == "" {
		return sf.Name
	}
	return name
}

func typeMessage(field, tag string) string {
	switch tag {
	case "string":
		return fmt.Sprintf("%s must be a string", field)
	case "boolean":
		return fmt.Sprintf("%s must be a boolean value", field)
	case "integer":
		return fmt.Sprintf("%s must be an integer number", field)
	case "array":
		return fmt.Sprintf("%s must be an array", field)
	case "object":
		return fmt.Sprintf("%s must be an object", field)
	default:
		return fmt.Sprintf("%s has an invalid type", field)
	}
}

// getErrorMessage returns a human-readable error message for validation errors
func getErrorMessage(fieldError validator.FieldError) string {
	field := fieldPath(fieldError)

	switch fieldError.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, fieldError.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, fieldError.Param())
	case "len":
		return fmt.Sprintf("%s must contain exactly %s items", field, fieldError.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fieldError.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fieldError.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fieldError.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
