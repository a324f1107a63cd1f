package concierge

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"marhaba/internal/domain"
)

var formValidator = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(validateTravelDates, domain.TravelForm{})
	return v
}

// validateTravelDates rejects date ranges that end before they start.
func validateTravelDates(sl validator.StructLevel) {
	f := sl.Current().Interface().(domain.TravelForm)
	if before(f.ReturnDate, f.DepartureDate) {
		sl.ReportError(f.ReturnDate, "return_date", "ReturnDate", "after_departure", "")
	}
	if before(f.CheckOutDate, f.CheckInDate) {
		sl.ReportError(f.CheckOutDate, "check_out_date", "CheckOutDate", "after_check_in", "")
	}
}

func before(end, start string) bool {
	if end == "" || start == "" {
		return false
	}
	e, err1 := time.Parse(time.DateOnly, end)
	s, err2 := time.Parse(time.DateOnly, start)
	if err1 != nil || err2 != nil {
		return false
	}
	return e.Before(s)
}

// ValidateForm checks a travel-plan submission. The returned error wraps
// domain.ErrInvalidInput and names every offending field.
func ValidateForm(form domain.TravelForm) error {
	err := formValidator.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.NewSubSystemError("form", "concierge.ValidateForm", domain.ErrInvalidInput, err.Error())
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return domain.NewSubSystemError("form", "concierge.ValidateForm", domain.ErrInvalidInput, strings.Join(parts, "; "))
}
