package services

import (
	"regexp"
	"strings"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt ignores anything longer
)

var (
	emailRe   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	addressRe = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
)

func validateEmail(email string) error {
	if email == "" {
		return invalidInput("email is required")
	}
	if len(email) > 255 || !emailRe.MatchString(email) {
		return invalidInput("email is invalid")
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return invalidInput("password is required")
	}
	if len(password) < minPasswordLen {
		return invalidInput("password must be at least %d characters", minPasswordLen)
	}
	if len(password) > maxPasswordLen {
		return invalidInput("password must be at most %d bytes", maxPasswordLen)
	}
	return nil
}

// NormalizeAddress checks the 0x + 40 hex format and lowercases the address.
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", invalidInput("address is required")
	}
	if !addressRe.MatchString(address) {
		return "", invalidInput("invalid wallet address")
	}
	return strings.ToLower(address), nil
}
