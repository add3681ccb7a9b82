package tracker

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func ValidateEntry(entry DayEntry) error {
	if err := validate.Struct(entry); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidEntry, entry.Date, err)
	}
	return nil
}

func ValidateSettings(settings Settings) error {
	if err := validate.Struct(settings); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return nil
}

// ValidateMealType reports whether value is one of the portion tiers.
func ValidateMealType(value MealType) error {
	for _, mealType := range MealTypes {
		if value == mealType {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown meal type %q", ErrInvalidEntry, value)
}
