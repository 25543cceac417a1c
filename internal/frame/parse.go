package frame

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseType accepts a type name (DATA, CONTROL, ACK, UNSET; any case)
// or a decimal or 0x-prefixed number.
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	for _, t := range []Type{TypeUnset, TypeData, TypeControl, TypeAck} {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	n, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid frame type %q", s)
	}
	return Type(n), nil
}

// ParseFlags accepts the form produced by Flags.String: flag names and
// hex literals joined by "|". "0" and "" are the empty set.
func ParseFlags(s string) (Flags, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	var out Flags
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(part)
		switch strings.ToUpper(part) {
		case "COMPRESSED":
			out |= FlagCompressed
		case "ENCRYPTED":
			out |= FlagEncrypted
		case "FINAL":
			out |= FlagFinal
		case "ACK_REQUIRED":
			out |= FlagAckRequired
		default:
			n, err := strconv.ParseUint(part, 0, 16)
			if err != nil {
				return 0, fmt.Errorf("invalid frame flag %q", part)
			}
			out |= Flags(n)
		}
	}
	return out, nil
}
