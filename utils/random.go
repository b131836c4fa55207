package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

const ticketNumberPrefix = "EVT"

func GenerateCode(n int) (string, error) {
	byt := make([]byte, n)
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// GenerateDigits returns a random numeric code of the given length.
func GenerateDigits(length int) (string, error) {
	const charset = "0123456789"

	code := make([]byte, length)
	if _, err := rand.Read(code); err != nil {
		return "", err
	}

	for i := 0; i < length; i++ {
		code[i] = charset[int(code[i])%len(charset)]
	}
	return string(code), nil
}

// TicketNumber builds a human-facing ticket code: prefix, six random digits
// and a base36 time suffix. Collisions are possible; callers must check
// uniqueness before committing and regenerate on conflict.
func TicketNumber() (string, error) {
	digits, err := GenerateDigits(6)
	if err != nil {
		return "", err
	}
	suffix := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli()%(36*36*36*36), 36))
	return ticketNumberPrefix + "-" + digits + "-" + suffix, nil
}
