package domain

import (
	"encoding"
	"encoding/json"
	"fmt"
)

// Difficulty is the learner's self-reported recall difficulty.
type Difficulty int

const (
	Easy Difficulty = iota + 1
	Medium
	Hard
)

var (
	difficultyNames  = [...]string{Easy: "easy", Medium: "medium", Hard: "hard"}
	difficultyByName = map[string]Difficulty{
		"easy":   Easy,
		"medium": Medium,
		"hard":   Hard,
	}
)

var (
	_ fmt.Stringer             = Difficulty(0)
	_ json.Marshaler           = Difficulty(0)
	_ json.Unmarshaler         = (*Difficulty)(nil)
	_ encoding.TextMarshaler   = Difficulty(0)
	_ encoding.TextUnmarshaler = (*Difficulty)(nil)
)

// ParseDifficulty returns the Difficulty named by s ("easy", "medium", "hard").
func ParseDifficulty(s string) (Difficulty, error) {
	d, ok := difficultyByName[s]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDifficulty, s)
	}
	return d, nil
}

// String returns the lowercase name, or "Difficulty(n)" for invalid values.
func (d Difficulty) String() string {
	if d.IsValid() {
		return difficultyNames[d]
	}
	return fmt.Sprintf("Difficulty(%d)", int(d))
}

// IsValid reports whether d is one of Easy, Medium or Hard.
func (d Difficulty) IsValid() bool {
	return d >= Easy && d <= Hard
}

// MarshalText implements encoding.TextMarshaler.
func (d Difficulty) MarshalText() ([]byte, error) {
	if !d.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDifficulty, int(d))
	}
	return []byte(difficultyNames[d]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Difficulty) UnmarshalText(text []byte) error {
	v, err := ParseDifficulty(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// MarshalJSON implements json.Marshaler. Difficulty serializes as a JSON string.
func (d Difficulty) MarshalJSON() ([]byte, error) {
	text, err := d.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Difficulty) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDifficulty, data)
	}
	return d.UnmarshalText([]byte(s))
}
