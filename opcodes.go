package sfzcore

import (
	"strconv"
	"strings"
)

// RawOpcode is one parsed `name=value` pair from an SFZ block, with any
// trailing integer parameter split off (locc74 -> name "locc", parameter 74).
type RawOpcode struct {
	Name         string
	Parameter    int
	HasParameter bool
	Value        string
}

// splitOpcodeParameter splits a trailing run of digits off an opcode name.
func splitOpcodeParameter(name string) (base string, param int, ok bool) {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == len(name) || i == 0 {
		return name, 0, false
	}
	n, err := strconv.Atoi(name[i:])
	if err != nil {
		return name, 0, false
	}
	return name[:i], n, true
}

// ParseRawOpcode turns a lowercase "name=value" token into a RawOpcode.
func ParseRawOpcode(name, value string) RawOpcode {
	name = strings.ToLower(strings.TrimSpace(name))
	base, param, ok := splitOpcodeParameter(name)
	return RawOpcode{Name: base, Parameter: param, HasParameter: ok, Value: strings.TrimSpace(value)}
}

func parseOpFloat(v string, def float64) (float64, bool) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, false
	}
	return f, true
}

func parseOpInt(v string, def int) (int, bool) {
	i, err := strconv.Atoi(v)
	if err != nil {
		if f, err2 := strconv.ParseFloat(v, 64); err2 == nil {
			return int(f), true
		}
		return def, false
	}
	return i, true
}
