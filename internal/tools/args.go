package tools

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Args gives alias-aware access to the raw arguments of one call.
type Args struct {
	raw    map[string]any
	params map[string]Param
}

// NewArgs binds raw arguments to the declared params.
func NewArgs(raw map[string]any, params []Param) Args {
	if raw == nil {
		raw = map[string]any{}
	}
	ps := make(map[string]Param, len(params))
	for _, p := range params {
		ps[p.Name] = p
	}
	return Args{raw: raw, params: ps}
}

// Raw returns the arguments as received.
func (a Args) Raw() map[string]any {
	return a.raw
}

// keys returns the name followed by its aliases.
func (a Args) keys(name string) []string {
	return append([]string{name}, a.params[name].Aliases...)
}

// lookup returns the first present, non-empty value among name and aliases.
func (a Args) lookup(name string) (any, bool) {
	for _, k := range a.keys(name) {
		v, ok := a.raw[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// String returns a required string argument or a diagnostic error that lists
// the keys tried and echoes the raw arguments.
func (a Args) String(name string) (string, error) {
	v, ok := a.lookup(name)
	if !ok {
		return "", a.missing(name)
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case float64, int, int64, bool:
		return fmt.Sprint(s), nil
	default:
		return "", fmt.Errorf("argument %q must be a string, got %T", name, v)
	}
}

// OptionalString returns a string argument or def when absent.
func (a Args) OptionalString(name, def string) string {
	if s, err := a.String(name); err == nil {
		return s
	}
	return def
}

// Int returns an integer argument or def when absent or malformed.
// Models may send numbers as float64 or as strings.
func (a Args) Int(name string, def int) int {
	v, ok := a.lookup(name)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
	}
	return def
}

// Bool returns a boolean argument or def when absent or malformed.
func (a Args) Bool(name string, def bool) bool {
	v, ok := a.lookup(name)
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
			return parsed
		}
	}
	return def
}

func (a Args) missing(name string) error {
	received, err := json.Marshal(a.raw)
	if err != nil {
		received = []byte(fmt.Sprint(a.raw))
	}
	return fmt.Errorf("missing required argument %q (tried %s); received %s",
		name, strings.Join(a.keys(name), ", "), received)
}
