package lib

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeCardNumber(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "visa test card", input: "4242424242424242", want: "4242424242424242"},
		{name: "spaces are stripped", input: "4242 4242 4242 4242", want: "4242424242424242"},
		{name: "dashes are stripped", input: "5555-5555-5555-4444", want: "5555555555554444"},
		{name: "bad checksum", input: "4242424242424241", wantErr: true},
		{name: "letters", input: "4242abcd42424242", wantErr: true},
		{name: "too short", input: "4242", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeCardNumber(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidCard) {
					t.Fatalf("expected ErrInvalidCard, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateExpiry(t *testing.T) {
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		expiry  string
		wantErr error
	}{
		{expiry: "03/26", wantErr: nil},
		{expiry: "12/30", wantErr: nil},
		{expiry: "02/26", wantErr: ErrCardExpired},
		{expiry: "13/27", wantErr: ErrInvalidCard},
		{expiry: "1/27", wantErr: ErrInvalidCard},
		{expiry: "0327", wantErr: ErrInvalidCard},
	}

	for _, tt := range tests {
		err := ValidateExpiry(tt.expiry, now)
		if tt.wantErr == nil && err != nil {
			t.Errorf("ValidateExpiry(%q) unexpected error: %v", tt.expiry, err)
		}
		if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
			t.Errorf("ValidateExpiry(%q) = %v, want %v", tt.expiry, err, tt.wantErr)
		}
	}
}

func TestValidateCVV(t *testing.T) {
	for _, ok := range []string{"123", "1234"} {
		if err := ValidateCVV(ok); err != nil {
			t.Errorf("ValidateCVV(%q) unexpected error: %v", ok, err)
		}
	}
	for _, bad := range []string{"12", "12345", "12a"} {
		if err := ValidateCVV(bad); !errors.Is(err, ErrInvalidCard) {
			t.Errorf("ValidateCVV(%q) = %v, want ErrInvalidCard", bad, err)
		}
	}
}

func TestMaskCardNumber(t *testing.T) {
	if got := MaskCardNumber("4242424242424242"); got != "**** **** **** 4242" {
		t.Fatalf("MaskCardNumber() = %q", got)
	}
	if got := MaskCardNumber("12"); got != "****" {
		t.Fatalf("MaskCardNumber(short) = %q", got)
	}
}
