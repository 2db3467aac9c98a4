package task

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ArgumentSchema validates the raw arguments of a start request.
type ArgumentSchema interface {
	// Validate decodes raw (which may be empty or JSON null) and returns the
	// value handed to the task body, or an *InvalidParametersError.
	Validate(raw json.RawMessage) (any, error)

	// Fields describes the accepted arguments for discovery listings.
	Fields() []FieldInfo
}

// FieldInfo describes one declared argument.
type FieldInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// validate is shared by all schemas; validator.Validate caches struct
// metadata and is safe for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON names in validation errors
	v.RegisterTagNameFunc(jsonFieldName)
	return v
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// StructSchema validates arguments by decoding them into T and running the
// `validate` struct tags on the result. Unknown fields are rejected.
type StructSchema[T any] struct {
	fields []FieldInfo
}

var _ ArgumentSchema = (*StructSchema[struct{}])(nil)

// NewStructSchema builds a schema for the struct type T. It panics if T is
// not a struct, so misdeclared tasks fail at startup.
func NewStructSchema[T any]() *StructSchema[T] {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("task: argument schema type %s is not a struct", t))
	}
	return &StructSchema[T]{fields: describeStruct(t)}
}

// Validate implements ArgumentSchema.
func (s *StructSchema[T]) Validate(raw json.RawMessage) (any, error) {
	var args T
	if isAbsent(raw) {
		raw = json.RawMessage("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&args); err != nil {
		return nil, &InvalidParametersError{Detail: describeDecodeError(err), Err: err}
	}
	if dec.More() {
		return nil, &InvalidParametersError{Detail: "arguments must be a single JSON object"}
	}

	if err := validate.Struct(args); err != nil {
		return nil, &InvalidParametersError{Detail: describeValidationError(err), Err: err}
	}
	return args, nil
}

// Fields implements ArgumentSchema.
func (s *StructSchema[T]) Fields() []FieldInfo {
	out := make([]FieldInfo, len(s.fields))
	copy(out, s.fields)
	return out
}

// decodeUntyped is used for tasks without a schema: arguments pass through
// unchanged, defaulting to an empty object.
func decodeUntyped(raw json.RawMessage) (any, error) {
	if isAbsent(raw) {
		return map[string]any{}, nil
	}
	var args any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &InvalidParametersError{Detail: describeDecodeError(err), Err: err}
	}
	return args, nil
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func describeStruct(t reflect.Type) []FieldInfo {
	fields := make([]FieldInfo, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := jsonFieldName(f)
		if name == "" {
			continue
		}
		rules := strings.Split(f.Tag.Get("validate"), ",")
		required := false
		for _, r := range rules {
			if r == "required" {
				required = true
			}
		}
		fields = append(fields, FieldInfo{Name: name, Type: jsonType(f.Type), Required: required})
	}
	return fields
}

func jsonType(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "object"
	}
}

func describeDecodeError(err error) string {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &typeErr):
		if typeErr.Field == "" {
			return fmt.Sprintf("arguments must be %s, got %s", jsonType(typeErr.Type), typeErr.Value)
		}
		return fmt.Sprintf("field '%s' must be %s, got %s", typeErr.Field, jsonType(typeErr.Type), typeErr.Value)
	case errors.As(err, &syntaxErr):
		return "malformed JSON"
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return "unknown field " + strings.TrimPrefix(err.Error(), "json: unknown field ")
	default:
		return "malformed JSON"
	}
}

func describeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "validation failed"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("field '%s' failed on the '%s' rule", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
