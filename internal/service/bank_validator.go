package service

import (
	"regexp"
	"strings"

	apperrors "reimburse/internal/errors"
)

var (
	accountNumberRegex = regexp.MustCompile(`^\d{9,18}$`)
	routingCodeRegex   = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
)

// BankValidator validates and masks bank details.
type BankValidator struct{}

// NewBankValidator creates a new bank validator.
func NewBankValidator() *BankValidator {
	return &BankValidator{}
}

// Normalize strips spaces and dashes from an account number and upper-cases a routing code.
func (v *BankValidator) Normalize(accountNumber, routingCode string) (string, string) {
	accountNumber = strings.ReplaceAll(strings.ReplaceAll(accountNumber, " ", ""), "-", "")
	return accountNumber, strings.ToUpper(strings.TrimSpace(routingCode))
}

// Validate checks an already normalized account number and routing code.
func (v *BankValidator) Validate(accountNumber, routingCode string) error {
	if !accountNumberRegex.MatchString(accountNumber) {
		return apperrors.ErrInvalidBank.With("account number must be 9 to 18 digits")
	}
	if !routingCodeRegex.MatchString(routingCode) {
		return apperrors.ErrInvalidBank.With("routing code %q is not a valid IFSC", routingCode)
	}
	return nil
}

// MaskAccountNumber masks an account number, showing only the last 4 digits.
func (v *BankValidator) MaskAccountNumber(accountNumber string) string {
	accountNumber = strings.ReplaceAll(strings.ReplaceAll(accountNumber, " ", ""), "-", "")
	if len(accountNumber) < 4 {
		return "****"
	}
	return "**** **** **** " + accountNumber[len(accountNumber)-4:]
}
