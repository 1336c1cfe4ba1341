package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// ID is a record identifier as the backend sends it: a JSON string or a JSON
// number. The text is kept verbatim; Equal folds 3, 3.0 and "3" together.
type ID string

// ParseID reads a raw identifier taken from a URL path or form field.
func ParseID(raw string) ID {
	return ID(strings.TrimSpace(raw))
}

// String returns the identifier as the backend sent it.
func (id ID) String() string { return string(id) }

// IsZero reports whether the identifier is absent.
func (id ID) IsZero() bool { return id == "" }

// Equal reports whether two identifiers name the same record. Integral
// numbers compare by value without rounding; anything else compares as text.
func (id ID) Equal(other ID) bool {
	return id.key() == other.key()
}

// UnmarshalJSON accepts strings, numbers and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits JSON number tokens as numbers and everything else as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if jsonNumber.MatchString(string(id)) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Less orders identifiers numerically when both are numbers, lexically otherwise.
// Numbers sort before non-numeric identifiers.
func (id ID) Less(other ID) bool {
	a, aok := id.number()
	b, bok := other.number()
	switch {
	case aok && bok:
		if c := a.Cmp(b); c != 0 {
			return c < 0
		}
		return id < other
	case aok:
		return true
	case bok:
		return false
	default:
		return id < other
	}
}

var (
	numericID  = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)
	jsonNumber = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?$`)
	integralID = regexp.MustCompile(`^(-?)(0|[1-9][0-9]*)(\.0+)?$`)
)

// key is the comparison form: an integral number without sign noise or a
// zero fraction, otherwise the text itself. Zero padded strings stay distinct.
func (id ID) key() string {
	m := integralID.FindStringSubmatch(string(id))
	if m == nil {
		return string(id)
	}
	if m[2] == "0" {
		return "0"
	}
	return m[1] + m[2]
}

func (id ID) number() (*big.Rat, bool) {
	if !numericID.MatchString(string(id)) {
		return nil, false
	}
	return new(big.Rat).SetString(string(id))
}
