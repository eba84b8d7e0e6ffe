package services

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	looseEmail = regexp.MustCompile(`\S+@\S+\.\S+`)
	nonDigits  = regexp.MustCompile(`\D`)

	validate = newValidator()
)

var fieldLabels = map[string]string{
	"firstName": "First name",
	"lastName":  "Last name",
	"email":     "Email",
	"phone":     "Phone number",
	"address":   "Address",
	"city":      "City",
	"state":     "State",
	"zipCode":   "ZIP code",
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "loose_email", func(fl validator.FieldLevel) bool {
		return looseEmail.MatchString(fl.Field().String())
	})
	mustRegister(v, "phone10", func(fl validator.FieldLevel) bool {
		return len(nonDigits.ReplaceAllString(fl.Field().String(), "")) == 10
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// ValidationError maps JSON field names to user-facing messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "validation failed: " + strings.Join(keys, ", ")
}

// ValidateAddress trims every field and checks the shipping form rules.
func ValidateAddress(a models.Address) (models.Address, error) {
	a = models.Address{
		FirstName: strings.TrimSpace(a.FirstName),
		LastName:  strings.TrimSpace(a.LastName),
		Email:     strings.TrimSpace(a.Email),
		Phone:     strings.TrimSpace(a.Phone),
		Address:   strings.TrimSpace(a.Address),
		City:      strings.TrimSpace(a.City),
		State:     strings.TrimSpace(a.State),
		ZipCode:   strings.TrimSpace(a.ZipCode),
		Country:   strings.TrimSpace(a.Country),
	}

	err := validate.Struct(a)
	if err == nil {
		return a, nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return a, err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		label := fieldLabels[fe.Field()]
		if label == "" {
			label = fe.Field()
		}
		switch fe.Tag() {
		case "required":
			fields[fe.Field()] = label + " is required"
		case "loose_email":
			fields[fe.Field()] = label + " is invalid"
		case "phone10":
			fields[fe.Field()] = label + " must be 10 digits"
		default:
			fields[fe.Field()] = label + " is invalid"
		}
	}
	return a, &ValidationError{Fields: fields}
}

// ValidateItems rejects cart lines that cannot be priced as stored. Keys are
// "items.<index>.quantity" so a client can point at the offending line.
func ValidateItems(items []models.CartEntry) error {
	fields := map[string]string{}
	for i, e := range items {
		if e.Quantity < 1 {
			fields[fmt.Sprintf("items.%d.quantity", i)] = fmt.Sprintf("Quantity for %s must be at least 1", orDefault(e.Name, e.ID))
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
