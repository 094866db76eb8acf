package lib

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NormalizeCardNumber strips spaces and dashes and checks the digits with Luhn
func NormalizeCardNumber(number string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, number)

	if len(digits) < 12 || len(digits) > 19 {
		return "", fmt.Errorf("%w: card number must have 12 to 19 digits", ErrInvalidCard)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: card number must contain only digits", ErrInvalidCard)
		}
	}
	if !LuhnValid(digits) {
		return "", fmt.Errorf("%w: card number failed checksum", ErrInvalidCard)
	}
	return digits, nil
}

func LuhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// ValidateExpiry accepts MM/YY. A card is valid through the end of its month.
func ValidateExpiry(expiry string, now time.Time) error {
	month, year, ok := strings.Cut(expiry, "/")
	if !ok || len(month) != 2 || len(year) != 2 {
		return fmt.Errorf("%w: expiry must be MM/YY", ErrInvalidCard)
	}

	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return fmt.Errorf("%w: invalid expiry month", ErrInvalidCard)
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return fmt.Errorf("%w: invalid expiry year", ErrInvalidCard)
	}

	firstOfNextMonth := time.Date(2000+y, time.Month(m)+1, 1, 0, 0, 0, 0, time.UTC)
	if !now.UTC().Before(firstOfNextMonth) {
		return ErrCardExpired
	}
	return nil
}

func ValidateCVV(cvv string) error {
	if len(cvv) < 3 || len(cvv) > 4 {
		return fmt.Errorf("%w: cvv must have 3 or 4 digits", ErrInvalidCard)
	}
	for _, r := range cvv {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: cvv must contain only digits", ErrInvalidCard)
		}
	}
	return nil
}

// MaskCardNumber keeps the last four digits: **** **** **** 4242
func MaskCardNumber(digits string) string {
	if len(digits) < 4 {
		return "****"
	}
	return "**** **** **** " + digits[len(digits)-4:]
}
