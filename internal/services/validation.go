package services

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"gofinances/internal/core"
)

// RegisterInput is the registration form as submitted by a client.
type RegisterInput struct {
	Name     string    `json:"name" validate:"notblank,max=120"`
	Amount   string    `json:"amount" validate:"required,amount"`
	Type     string    `json:"type" validate:"required,oneof=positive negative"`
	Category string    `json:"category" validate:"required,category"`
	Date     time.Time `json:"date"`
}

// messages holds the user-facing text per field and failed tag. The
// empty tag is the field's fallback.
var messages = map[string]map[string]string{
	"name": {
		"":    "Nome é obrigatório",
		"max": "Nome muito longo",
	},
	"amount": {
		"":       "Preço é obrigatório",
		"amount": "O valor deve ser um número positivo",
	},
	"type": {
		"": "Selecione o tipo da transação",
	},
	"category": {
		"":         "Selecione a categoria",
		"category": "Categoria desconhecida",
	},
}

func newValidator(catalog core.Catalog) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		_, err := core.ParseAmount(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return catalog.Contains(fl.Field().String())
	})
	return v
}

// validateInput returns a *ValidationError listing every invalid field.
func validateInput(v *validator.Validate, in RegisterInput) error {
	err := v.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := fields[field]; seen {
			continue
		}
		byTag := messages[field]
		msg, ok := byTag[fe.Tag()]
		if !ok {
			msg = byTag[""]
		}
		if msg == "" {
			msg = "Valor inválido"
		}
		fields[field] = msg
	}
	return &ValidationError{Fields: fields}
}
