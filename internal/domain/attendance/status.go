package attendance

import (
	"fmt"
	"strings"
)

// Status is the closed attendance status vocabulary. The zero value is not a
// valid status; values only come from the constants below or ParseStatus.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusPresent
	StatusAbsent
	StatusHalfDay
	StatusOnLeave
)

// Statuses lists every valid status in wire-code order.
var Statuses = []Status{StatusPresent, StatusAbsent, StatusHalfDay, StatusOnLeave}

// String returns the canonical upper-case name used on the store API.
func (s Status) String() string {
	switch s {
	case StatusPresent:
		return "PRESENT"
	case StatusAbsent:
		return "ABSENT"
	case StatusHalfDay:
		return "HALF_DAY"
	case StatusOnLeave:
		return "ON_LEAVE"
	default:
		return "UNKNOWN"
	}
}

// Code returns the single-letter spreadsheet code.
func (s Status) Code() string {
	switch s {
	case StatusPresent:
		return "P"
	case StatusAbsent:
		return "A"
	case StatusHalfDay:
		return "H"
	case StatusOnLeave:
		return "L"
	default:
		return ""
	}
}

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusHalfDay, StatusOnLeave:
		return true
	default:
		return false
	}
}

// ParseStatus accepts a canonical name, case-insensitively. Unknown names are an error.
func ParseStatus(name string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "PRESENT":
		return StatusPresent, nil
	case "ABSENT":
		return StatusAbsent, nil
	case "HALF_DAY":
		return StatusHalfDay, nil
	case "ON_LEAVE":
		return StatusOnLeave, nil
	default:
		return StatusUnknown, fmt.Errorf("%w: %q", ErrUnknownStatus, name)
	}
}

// TranslateCode maps a spreadsheet cell to a status. Blank or unrecognized codes
// return false and must be treated as "no entry" by the caller.
func TranslateCode(code string) (Status, bool) {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "P":
		return StatusPresent, true
	case "A":
		return StatusAbsent, true
	case "H":
		return StatusHalfDay, true
	case "L":
		return StatusOnLeave, true
	default:
		return StatusUnknown, false
	}
}

// Codes returns the spreadsheet codes in order, for template drop lists.
func Codes() []string {
	codes := make([]string, len(Statuses))
	for i, s := range Statuses {
		codes[i] = s.Code()
	}
	return codes
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
