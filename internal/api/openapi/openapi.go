// Пакет openapi — встроенный OpenAPI контракт API и валидация тел запросов
// по его схемам (kin-openapi).
package openapi

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	apierrors "github.com/bigkaa/vidshare/internal/api/errors"
)

//go:embed openapi.yaml
var specYAML []byte

// Spec возвращает исходный YAML контракта.
func Spec() []byte {
	return specYAML
}

// Load разбирает и валидирует встроенный контракт.
func Load() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(specYAML)
	if err != nil {
		return nil, fmt.Errorf("ошибка разбора OpenAPI контракта: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("некорректный OpenAPI контракт: %w", err)
	}
	return doc, nil
}

// SchemaValidator проверяет JSON-значение по схеме из components.schemas.
type SchemaValidator struct {
	name   string
	schema *openapi3.Schema
}

// NewSchemaValidator создаёт валидатор для схемы с указанным именем.
func NewSchemaValidator(doc *openapi3.T, name string) (*SchemaValidator, error) {
	ref, ok := doc.Components.Schemas[name]
	if !ok || ref == nil || ref.Value == nil {
		return nil, fmt.Errorf("схема %s не найдена в OpenAPI контракте", name)
	}
	return &SchemaValidator{name: name, schema: ref.Value}, nil
}

// Validate проверяет значение, полученное из json.Unmarshal в any.
// Возвращает nil, если значение соответствует схеме, иначе перечень нарушений по полям.
func (v *SchemaValidator) Validate(value any) []apierrors.FieldError {
	err := v.schema.VisitJSON(value, openapi3.MultiErrors())
	if err == nil {
		return nil
	}
	return fieldErrors(err)
}

// fieldErrors разворачивает ошибки kin-openapi в плоский список.
func fieldErrors(err error) []apierrors.FieldError {
	var result []apierrors.FieldError

	switch e := err.(type) {
	case openapi3.MultiError:
		for _, inner := range e {
			result = append(result, fieldErrors(inner)...)
		}
	case *openapi3.SchemaError:
		result = append(result, apierrors.FieldError{
			Field:   "/" + strings.Join(e.JSONPointer(), "/"),
			Message: e.Reason,
		})
	default:
		result = append(result, apierrors.FieldError{Field: "/", Message: err.Error()})
	}

	return result
}
