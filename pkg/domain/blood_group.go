package domain

import (
	"strings"

	dErrors "bloodlink/pkg/domain-errors"
)

// BloodGroup is one of the eight ABO/Rh group tokens.
// Invariant: the value is always one of the constants below.
//
// Construct via ParseBloodGroup at trust boundaries; direct casting bypasses
// validation.
type BloodGroup string

const (
	BloodGroupAPos  BloodGroup = "A+"
	BloodGroupANeg  BloodGroup = "A-"
	BloodGroupBPos  BloodGroup = "B+"
	BloodGroupBNeg  BloodGroup = "B-"
	BloodGroupABPos BloodGroup = "AB+"
	BloodGroupABNeg BloodGroup = "AB-"
	BloodGroupOPos  BloodGroup = "O+"
	BloodGroupONeg  BloodGroup = "O-"
)

var validBloodGroups = map[BloodGroup]bool{
	BloodGroupAPos:  true,
	BloodGroupANeg:  true,
	BloodGroupBPos:  true,
	BloodGroupBNeg:  true,
	BloodGroupABPos: true,
	BloodGroupABNeg: true,
	BloodGroupOPos:  true,
	BloodGroupONeg:  true,
}

// BloodGroups lists every supported token in display order.
func BloodGroups() []BloodGroup {
	return []BloodGroup{
		BloodGroupAPos, BloodGroupANeg,
		BloodGroupBPos, BloodGroupBNeg,
		BloodGroupABPos, BloodGroupABNeg,
		BloodGroupOPos, BloodGroupONeg,
	}
}

// ParseBloodGroup constructs a BloodGroup from external input.
// Surrounding whitespace is ignored and letters are upper-cased, so "ab+"
// parses as AB+.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseBloodGroup(s string) (BloodGroup, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "blood group cannot be empty")
	}
	g := BloodGroup(s)
	if !g.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid blood group")
	}
	return g, nil
}

func (g BloodGroup) IsValid() bool {
	return validBloodGroups[g]
}

func (g BloodGroup) String() string {
	return string(g)
}
