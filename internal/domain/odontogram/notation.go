package odontogram

import (
	"fmt"
	"strconv"
)

// Dentition selects which of the two disjoint FDI identifier spaces a chart uses.
type Dentition string

const (
	DentitionAdult   Dentition = "adult"
	DentitionPrimary Dentition = "primary"
)

// DentitionFor maps the "uses primary dentition" flag onto a Dentition.
func DentitionFor(primary bool) Dentition {
	if primary {
		return DentitionPrimary
	}
	return DentitionAdult
}

// ParseDentition accepts "adult"/"permanent" and "primary"/"deciduous".
// An empty string resolves to the adult dentition.
func ParseDentition(s string) (Dentition, error) {
	switch s {
	case "", "adult", "permanent":
		return DentitionAdult, nil
	case "primary", "deciduous":
		return DentitionPrimary, nil
	}
	return "", fmt.Errorf("unknown dentition %q", s)
}

func (d Dentition) IsPrimary() bool { return d == DentitionPrimary }

var (
	adultUpper = []int{18, 17, 16, 15, 14, 13, 12, 11, 21, 22, 23, 24, 25, 26, 27, 28}
	adultLower = []int{48, 47, 46, 45, 44, 43, 42, 41, 31, 32, 33, 34, 35, 36, 37, 38}

	primaryUpper = []int{55, 54, 53, 52, 51, 61, 62, 63, 64, 65}
	primaryLower = []int{85, 84, 83, 82, 81, 71, 72, 73, 74, 75}
)

// universalLabels is the FDI to Universal table for both dentitions.
var universalLabels = map[int]string{
	18: "1", 17: "2", 16: "3", 15: "4", 14: "5", 13: "6", 12: "7", 11: "8",
	21: "9", 22: "10", 23: "11", 24: "12", 25: "13", 26: "14", 27: "15", 28: "16",
	38: "17", 37: "18", 36: "19", 35: "20", 34: "21", 33: "22", 32: "23", 31: "24",
	41: "25", 42: "26", 43: "27", 44: "28", 45: "29", 46: "30", 47: "31", 48: "32",

	55: "A", 54: "B", 53: "C", 52: "D", 51: "E",
	61: "F", 62: "G", 63: "H", 64: "I", 65: "J",
	75: "K", 74: "L", 73: "M", 72: "N", 71: "O",
	81: "P", 82: "Q", 83: "R", 84: "S", 85: "T",
}

// UpperArch returns the upper arch FDI ids from the patient's right to left.
func UpperArch(d Dentition) []int {
	if d.IsPrimary() {
		return append([]int(nil), primaryUpper...)
	}
	return append([]int(nil), adultUpper...)
}

// LowerArch returns the lower arch FDI ids from the patient's right to left.
func LowerArch(d Dentition) []int {
	if d.IsPrimary() {
		return append([]int(nil), primaryLower...)
	}
	return append([]int(nil), adultLower...)
}

// Teeth returns the full tooth list of a dentition, upper arch first.
func Teeth(d Dentition) []int {
	return append(UpperArch(d), LowerArch(d)...)
}

// Contains reports whether id belongs to the tooth list of d.
func Contains(d Dentition, id int) bool {
	q, p := Quadrant(id), Position(id)
	if d.IsPrimary() {
		return q >= 5 && q <= 8 && p >= 1 && p <= 5
	}
	return q >= 1 && q <= 4 && p >= 1 && p <= 8
}

// DentitionOf returns the dentition an id belongs to, or false when the id is
// outside both identifier spaces.
func DentitionOf(id int) (Dentition, bool) {
	switch {
	case Contains(DentitionAdult, id):
		return DentitionAdult, true
	case Contains(DentitionPrimary, id):
		return DentitionPrimary, true
	}
	return "", false
}

// Quadrant is the first FDI digit.
func Quadrant(id int) int {
	if id < 10 || id > 99 {
		return 0
	}
	return id / 10
}

// Position is the second FDI digit, counted from the midline.
func Position(id int) int {
	if id < 10 || id > 99 {
		return 0
	}
	return id % 10
}

// IsUpper reports whether the tooth sits in the maxillary arch.
func IsUpper(id int) bool {
	switch Quadrant(id) {
	case 1, 2, 5, 6:
		return true
	}
	return false
}

// UniversalLabel returns the Universal system label for id, falling back to the
// FDI number for ids outside the table.
func UniversalLabel(id int) string {
	if l, ok := universalLabels[id]; ok {
		return l
	}
	return strconv.Itoa(id)
}

// PalmerLabel renders Palmer notation as quadrant letters plus position, for
// example UR6 for FDI 16 and LLC for FDI 73. Primary teeth use letters A-E.
func PalmerLabel(id int) string {
	d, ok := DentitionOf(id)
	if !ok {
		return strconv.Itoa(id)
	}
	var prefix string
	switch Quadrant(id) {
	case 1, 5:
		prefix = "UR"
	case 2, 6:
		prefix = "UL"
	case 3, 7:
		prefix = "LL"
	default:
		prefix = "LR"
	}
	if d.IsPrimary() {
		return prefix + string(rune('A'+Position(id)-1))
	}
	return prefix + strconv.Itoa(Position(id))
}
