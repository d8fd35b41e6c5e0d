package customer

import "testing"

func TestValidBookID(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"ABCD1234EFGH5678", true},
		{"abcd1234efgh5678", true},
		{" abcd1234efgh5678 ", true},
		{"ABCD1234EFGH567", false},
		{"ABCD1234EFGH56789", false},
		{"ABCD-234EFGH5678", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ValidBookID(tt.in); got != tt.want {
				t.Errorf("ValidBookID(%q): got %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestListOptsMatches(t *testing.T) {
	yes := true
	c := &Customer{
		OwnerKey: "owner-1",
		Name:     "Ravi Kumar",
		Phone:    "9876543210",
		BookID:   "ABCD1234EFGH5678",
		Category: CategoryDomestic,
		Subsidy:  true,
	}

	tests := []struct {
		name string
		opts ListOpts
		want bool
	}{
		{"empty", ListOpts{}, true},
		{"owner", ListOpts{OwnerKey: "owner-1"}, true},
		{"other owner", ListOpts{OwnerKey: "owner-2"}, false},
		{"category", ListOpts{Category: CategoryCommercial}, false},
		{"subsidy", ListOpts{Subsidy: &yes}, true},
		{"search name", ListOpts{Search: "ravi"}, true},
		{"search phone", ListOpts{Search: "98765"}, true},
		{"search book", ListOpts{Search: "efgh"}, true},
		{"search miss", ListOpts{Search: "sita"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.opts.Matches(c); got != tt.want {
				t.Errorf("Matches: got %v, want %v", got, tt.want)
			}
		})
	}
}
