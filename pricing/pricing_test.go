package pricing

import (
	"testing"

	"github.com/xraph/depot/booking"
	"github.com/xraph/depot/types"
)

func TestQuote(t *testing.T) {
	book := Default()

	tests := []struct {
		name      string
		cylinders int
		cylType   string
		service   booking.ServiceType
		want      types.Money
	}{
		{"two with drop", 2, Type14kg, booking.ServiceDrop, types.Rupees(2450)},
		{"one no service", 1, Type5kg, booking.ServiceNone, types.Rupees(1150)},
		{"one pickup", 1, Type19kg, booking.ServicePickup, types.Rupees(1200)},
		{"three both", 3, Type14kg, booking.ServicePickupDrop, types.Rupees(3520)},
		{"unknown type uses fallback", 1, "47.5kg", booking.ServiceNone, types.Rupees(1150)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := book.Quote(tt.cylinders, tt.cylType, tt.service)
			if !got.Equal(tt.want) {
				t.Errorf("Quote: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCustomPrice(t *testing.T) {
	book := Default()
	book.Cylinders[Type19kg] = types.Rupees(2100)

	got := book.Quote(2, Type19kg, booking.ServicePickupDrop)
	if want := types.Rupees(4270); !got.Equal(want) {
		t.Errorf("Quote: got %v, want %v", got, want)
	}
}

func TestValidate(t *testing.T) {
	book := Default()
	if err := book.Validate(); err != nil {
		t.Fatalf("default book invalid: %v", err)
	}

	book.ServiceFees[booking.ServiceDrop] = types.Major(1, "usd")
	if err := book.Validate(); err == nil {
		t.Error("expected currency mismatch error")
	}
}
