package lift

import (
	"fmt"
	"strconv"
	"strings"
)

// PoundsToKilograms converts the canonical unit to kilograms.
const PoundsToKilograms = 0.453592

// Unit is a weight display preference.
type Unit string

const (
	Pounds    Unit = "lbs"
	Kilograms Unit = "kg"
)

// ParseUnit accepts "lbs" or "kg" in any letter case.
func ParseUnit(s string) (Unit, bool) {
	switch Unit(strings.ToLower(strings.TrimSpace(s))) {
	case Pounds:
		return Pounds, true
	case Kilograms:
		return Kilograms, true
	}
	return "", false
}

// FormatWeight renders a weight stored in pounds in the given unit.
func FormatWeight(pounds float64, unit Unit) string {
	if unit == Kilograms {
		return fmt.Sprintf("%.1f kg", pounds*PoundsToKilograms)
	}
	return strconv.FormatFloat(pounds, 'f', -1, 64) + " lbs"
}

// FormatLift renders "Exercise: SETSxREPS @ WEIGHT".
func FormatLift(c Candidate, unit Unit) string {
	return fmt.Sprintf("%s: %dx%d @ %s", c.Exercise, c.Sets, c.Reps, FormatWeight(c.Weight, unit))
}
