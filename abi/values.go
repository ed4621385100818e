package abi

import (
	"math"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// TypeOf returns the type tag of v.
func TypeOf(v lua.LValue) int {
	if v == nil {
		return TypeNone
	}
	switch v.Type() {
	case lua.LTNil:
		return TypeNil
	case lua.LTBool:
		return TypeBoolean
	case lua.LTNumber:
		return TypeNumber
	case lua.LTString:
		return TypeString
	case lua.LTTable:
		return TypeTable
	case lua.LTFunction:
		return TypeFunction
	case lua.LTThread:
		return TypeThread
	default:
		return TypeUserdata
	}
}

// ToNumber converts v the way the VM's arithmetic does: numbers as is,
// strings holding a numeral parsed.
func ToNumber(v lua.LValue) (float64, bool) {
	switch n := v.(type) {
	case lua.LNumber:
		return float64(n), true
	case lua.LString:
		return parseNumber(string(n))
	}
	return 0, false
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	body := strings.TrimLeft(s, "+-")
	if strings.HasPrefix(body, "0x") || strings.HasPrefix(body, "0X") {
		u, err := strconv.ParseUint(body[2:], 16, 64)
		if err != nil {
			return 0, false
		}
		if s[0] == '-' {
			return -float64(u), true
		}
		return float64(u), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ToString converts v the way string operations do: strings as is, numbers
// formatted.
func ToString(v lua.LValue) (string, bool) {
	switch s := v.(type) {
	case lua.LString:
		return string(s), true
	case lua.LNumber:
		return s.String(), true
	}
	return "", false
}

// toInt32 truncates a number toward zero, saturating at the int32 range.
func toInt32(f float64) int32 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int32(f)
}

// toUint32 converts modulo 2^32, as a C cast through an integer does.
func toUint32(f float64) uint32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return uint32(int64(math.Trunc(math.Mod(f, 1<<32)))) //nolint:gosec // modulo 2^32
}
