package catalog

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Product struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Thumbnail   string  `json:"thumbnail"`
	Code        string  `json:"code"`
	Stock       int     `json:"stock"`
}

// Draft is the caller-supplied field set for create and update. Every field is
// required and must be non-zero: an empty string, 0 or a missing JSON key all fail.
type Draft struct {
	Title       string  `json:"title" yaml:"title" validate:"required"`
	Description string  `json:"description" yaml:"description" validate:"required"`
	Price       float64 `json:"price" yaml:"price" validate:"required"`
	Thumbnail   string  `json:"thumbnail" yaml:"thumbnail" validate:"required"`
	Code        string  `json:"code" yaml:"code" validate:"required"`
	Stock       int     `json:"stock" yaml:"stock" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

func (d Draft) Validate() error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ValidationError{Fields: []string{err.Error()}}
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return &ValidationError{Fields: fields}
}

func (d Draft) product(id int) Product {
	return Product{
		ID:          id,
		Title:       d.Title,
		Description: d.Description,
		Price:       d.Price,
		Thumbnail:   d.Thumbnail,
		Code:        d.Code,
		Stock:       d.Stock,
	}
}

