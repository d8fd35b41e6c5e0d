package booking

import "testing"

func TestCanMoveDelivery(t *testing.T) {
	tests := []struct {
		from, to DeliveryStatus
		want     bool
	}{
		{StatusBooked, StatusBooked, true},
		{StatusBooked, StatusInTransit, true},
		{StatusBooked, StatusDelivered, true},
		{StatusInTransit, StatusDelivered, true},
		{StatusInTransit, StatusBooked, false},
		{StatusBooked, StatusCancelled, true},
		{StatusInTransit, StatusCancelled, true},
		{StatusDelivered, StatusCancelled, false},
		{StatusDelivered, StatusInTransit, false},
		{StatusCancelled, StatusBooked, false},
		{StatusDelivered, StatusDelivered, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := CanMoveDelivery(tt.from, tt.to); got != tt.want {
				t.Errorf("CanMoveDelivery(%s, %s): got %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestCanMovePayment(t *testing.T) {
	tests := []struct {
		from, to PaymentStatus
		want     bool
	}{
		{PaymentPending, PaymentPartial, true},
		{PaymentPending, PaymentPaid, true},
		{PaymentPartial, PaymentPaid, true},
		{PaymentPartial, PaymentPartial, true},
		{PaymentPaid, PaymentPending, false},
		{PaymentPartial, PaymentPending, false},
		{PaymentPaid, PaymentPaid, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := CanMovePayment(tt.from, tt.to); got != tt.want {
				t.Errorf("CanMovePayment(%s, %s): got %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestParseServiceType(t *testing.T) {
	tests := []struct {
		in   string
		want ServiceType
		ok   bool
	}{
		{"No", ServiceNone, true},
		{"", ServiceNone, true},
		{"Pickup", ServicePickup, true},
		{"drop", ServiceDrop, true},
		{"Pickup + Drop", ServicePickupDrop, true},
		{"Pickup+Drop", ServicePickupDrop, true},
		{"Both", ServicePickupDrop, true},
		{"Courier", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseServiceType(tt.in)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseServiceType(%q): got (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestLocked(t *testing.T) {
	b := &Booking{Status: StatusDelivered, Payment: Payment{Status: PaymentPaid}}
	if !b.Locked() {
		t.Error("Paid and Delivered booking should be locked")
	}
	b.Payment.Status = PaymentPartial
	if b.Locked() {
		t.Error("Partial and Delivered booking should not be locked")
	}
}

func TestIncludesDrop(t *testing.T) {
	for s, want := range map[ServiceType]bool{
		ServiceNone:       false,
		ServicePickup:     false,
		ServiceDrop:       true,
		ServicePickupDrop: true,
	} {
		if got := s.IncludesDrop(); got != want {
			t.Errorf("%s.IncludesDrop(): got %v, want %v", s, got, want)
		}
	}
}
