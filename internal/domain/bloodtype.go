package domain

import (
	"fmt"
	"strings"
)

// BloodType is an ABO/Rh blood group.
type BloodType string

const (
	BloodAPositive  BloodType = "A_POSITIVE"
	BloodANegative  BloodType = "A_NEGATIVE"
	BloodBPositive  BloodType = "B_POSITIVE"
	BloodBNegative  BloodType = "B_NEGATIVE"
	BloodABPositive BloodType = "AB_POSITIVE"
	BloodABNegative BloodType = "AB_NEGATIVE"
	BloodOPositive  BloodType = "O_POSITIVE"
	BloodONegative  BloodType = "O_NEGATIVE"
)

func (b BloodType) String() string { return string(b) }

func (b BloodType) IsValid() bool {
	switch b {
	case BloodAPositive, BloodANegative, BloodBPositive, BloodBNegative,
		BloodABPositive, BloodABNegative, BloodOPositive, BloodONegative:
		return true
	}
	return false
}

func ParseBloodTypeFromString(s string) (BloodType, error) {
	bt := BloodType(strings.ToUpper(strings.TrimSpace(s)))
	if !bt.IsValid() {
		return "", fmt.Errorf("%w: invalid blood type %q", ErrValidation, s)
	}
	return bt, nil
}

// compatibleDonors maps a recipient blood type to the donor types that may
// serve it. O- is the universal donor, AB+ the universal recipient.
var compatibleDonors = map[BloodType][]BloodType{
	BloodAPositive:  {BloodAPositive, BloodANegative, BloodOPositive, BloodONegative},
	BloodANegative:  {BloodANegative, BloodONegative},
	BloodBPositive:  {BloodBPositive, BloodBNegative, BloodOPositive, BloodONegative},
	BloodBNegative:  {BloodBNegative, BloodONegative},
	BloodABPositive: {BloodAPositive, BloodANegative, BloodBPositive, BloodBNegative, BloodABPositive, BloodABNegative, BloodOPositive, BloodONegative},
	BloodABNegative: {BloodANegative, BloodBNegative, BloodABNegative, BloodONegative},
	BloodOPositive:  {BloodOPositive, BloodONegative},
	BloodONegative:  {BloodONegative},
}

// CompatibleDonorTypes returns the donor blood types that may serve the given
// recipient type. The returned slice is a copy.
func CompatibleDonorTypes(recipient BloodType) []BloodType {
	donors, ok := compatibleDonors[recipient]
	if !ok {
		return nil
	}
	out := make([]BloodType, len(donors))
	copy(out, donors)
	return out
}

// IsCompatible reports whether a donor blood type may serve a recipient type.
func IsCompatible(donor, recipient BloodType) bool {
	for _, d := range compatibleDonors[recipient] {
		if d == donor {
			return true
		}
	}
	return false
}
