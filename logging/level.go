// Package logging provides a thin typed wrapper around go.uber.org/zap: a
// Level type that round-trips through JSON/text, and a Logger interface
// every package takes by constructor injection (spec.md §9/§10.1;
// grounded on go.viam.com/rdk/logging).
package logging

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Level is a logging severity, ordered DEBUG < INFO < WARN < ERROR.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// String returns the capitalized name of the level ("Debug", "Info", ...).
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "Debug"
	case INFO:
		return "Info"
	case WARN:
		return "Warn"
	case ERROR:
		return "Error"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// LevelFromString parses a level name case-insensitively, accepting
// "warning" as an alias for WARN.
func LevelFromString(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return 0, fmt.Errorf("logging: unrecognized level %q", s)
	}
}

// MarshalJSON implements json.Marshaler, encoding the level as its string
// name.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON implements json.Unmarshaler, parsing a quoted level name.
func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("logging: level must be a JSON string: %w", err)
	}
	parsed, err := LevelFromString(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
