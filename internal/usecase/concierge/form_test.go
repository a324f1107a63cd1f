package concierge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"marhaba/internal/domain"
)

func TestValidateForm(t *testing.T) {
	tests := []struct {
		name    string
		form    domain.TravelForm
		wantErr string
	}{
		{"empty form", domain.TravelForm{}, ""},
		{"full form", domain.TravelForm{
			Destination: "Rabat", DepartureDate: "2030-06-10", ReturnDate: "2030-06-20",
			Passengers: "2", ClassPreference: "economy", SpiceTolerance: "mild",
			CheckInDate: "2030-06-10", CheckOutDate: "2030-06-12", SeasonalPreference: "summer",
		}, ""},
		{"bad class", domain.TravelForm{ClassPreference: "cargo"}, "class_preference: oneof"},
		{"bad date", domain.TravelForm{DepartureDate: "10/06/2030"}, "departure_date: datetime"},
		{"passengers not a number", domain.TravelForm{Passengers: "two"}, "passengers: number"},
		{"return before departure", domain.TravelForm{DepartureDate: "2030-06-10", ReturnDate: "2030-06-01"}, "return_date: after_departure"},
		{"check-out before check-in", domain.TravelForm{CheckInDate: "2030-06-10", CheckOutDate: "2030-06-09"}, "check_out_date: after_check_in"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateForm(tt.form)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.True(t, errors.Is(err, domain.ErrInvalidInput))
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
