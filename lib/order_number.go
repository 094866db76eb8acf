package lib

import (
	"crypto/rand"
	"fmt"
)

const orderNumberChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateOrderNumber generates an order number in the format PF-XXXXXXXX.
// Ambiguous characters (0/O, 1/I) are left out so customers can read it back.
func GenerateOrderNumber() string {
	const length = 8

	randomPart := make([]byte, length)
	if _, err := rand.Read(randomPart); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	for i := range randomPart {
		randomPart[i] = orderNumberChars[int(randomPart[i])%len(orderNumberChars)]
	}

	return fmt.Sprintf("PF-%s", string(randomPart))
}
