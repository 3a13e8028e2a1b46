// Package domain provides the shared data types of a check-in run.
// These types are used across all internal packages to ensure consistent data structures.
//
// This package follows strict import rules:
//   - CAN import: internal/constants, internal/errors, standard library, uuid
//   - MUST NOT import: any other internal packages
//
// All JSON field names use snake_case.
package domain

import (
	"strings"

	checkinerrors "github.com/mrz1836/checkin/internal/errors"
)

// Credential identifies the reservation and traveler to check in.
// It is immutable for the run; build it with NewCredential.
type Credential struct {
	// ConfirmationCode is the reservation locator, always upper-case.
	ConfirmationCode string `json:"confirmation_code"`

	// FirstName is the traveler's first name as printed on the reservation.
	FirstName string `json:"first_name"`

	// LastName is the traveler's last name as printed on the reservation.
	LastName string `json:"last_name"`
}

// NewCredential trims its inputs, upper-cases the confirmation code and
// rejects any missing field with ErrConfiguration.
func NewCredential(confirmation, firstName, lastName string) (Credential, error) {
	c := Credential{
		ConfirmationCode: strings.ToUpper(strings.TrimSpace(confirmation)),
		FirstName:        strings.TrimSpace(firstName),
		LastName:         strings.TrimSpace(lastName),
	}

	var missing []string
	if c.ConfirmationCode == "" {
		missing = append(missing, "confirmation code")
	}
	if c.FirstName == "" {
		missing = append(missing, "first name")
	}
	if c.LastName == "" {
		missing = append(missing, "last name")
	}
	if len(missing) > 0 {
		return Credential{}, checkinerrors.Wrapf(checkinerrors.ErrConfiguration,
			"missing traveler %s", strings.Join(missing, ", "))
	}

	return c, nil
}

// ParseFullName splits "First Rest Of Name" on the first run of whitespace.
// A single word yields the same value for both names, matching how the
// reservation form accepts mononymous travelers.
func ParseFullName(full string) (first, last string) {
	fields := strings.Fields(full)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], fields[0]
	default:
		return fields[0], strings.Join(fields[1:], " ")
	}
}
