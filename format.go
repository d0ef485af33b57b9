package wave

import (
	"fmt"
	"strings"
)

// Format strings use `{}` placeholders, optionally carrying an
// explicit spec: `{c}` `{x}` `{p}` `{s}` `{d}`.  An empty spec picks
// the C conversion from the argument's lowered type.

// printfSpecForType maps a lowered argument type to its printf
// conversion.  isCStr distinguishes byte pointers that are C strings
// from raw addresses, which the type alone cannot.
func printfSpecForType(t IRType, isCStr bool) string {
	switch tt := t.(type) {
	case IRInt:
		switch tt.Bits {
		case 1:
			return "%d"
		case 8:
			return "%hhd"
		case 16:
			return "%hd"
		case 32:
			return "%d"
		case 64:
			return "%ld"
		case 128:
			return "%lld"
		default:
			return "%d"
		}
	case IRFloat:
		if tt.Bits == 32 {
			return "%f"
		}
		return "%lf"
	case IRPointer:
		if isCStr {
			return "%s"
		}
		return "%p"
	default:
		return "%p"
	}
}

// BuildPrintfFormat translates a `{}`-style format into a C printf
// format, one argument per placeholder.  Explicit specs override the
// type-driven choice.
func BuildPrintfFormat(format string, argTypes []IRType, argIsCStr []bool) (string, error) {
	if len(argTypes) != len(argIsCStr) {
		return "", fmt.Errorf("argument type and string-ness lists disagree: %d vs %d",
			len(argTypes), len(argIsCStr))
	}

	var out strings.Builder
	arg := 0
	runes := []rune(format)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c != '{' {
			if c == '%' {
				out.WriteString("%%")
				continue
			}
			out.WriteRune(c)
			continue
		}

		var spec strings.Builder
		for i++; i < len(runes) && runes[i] != '}'; i++ {
			spec.WriteRune(runes[i])
		}
		if arg >= len(argTypes) {
			return "", fmt.Errorf("format has more placeholders than arguments")
		}

		switch s := strings.TrimSpace(spec.String()); s {
		case "":
			out.WriteString(printfSpecForType(argTypes[arg], argIsCStr[arg]))
		case "c":
			out.WriteString("%c")
		case "x":
			out.WriteString("%x")
		case "p":
			out.WriteString("%p")
		case "s":
			out.WriteString("%s")
		case "d":
			out.WriteString("%d")
		default:
			return "", fmt.Errorf("unknown format spec `{%s}`", s)
		}
		arg++
	}

	if arg != len(argTypes) {
		return "", fmt.Errorf("format expects %d arguments, found %d", arg, len(argTypes))
	}
	return out.String(), nil
}

// BuildScanfFormat translates an input format into a C scanf format
// from the lvalue element types.  Pointers and strings cannot be
// read into directly.
func BuildScanfFormat(format string, argTypes []WaveType) (string, error) {
	var out strings.Builder
	arg := 0
	runes := []rune(format)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c != '{' {
			if c == '%' {
				out.WriteString("%%")
				continue
			}
			out.WriteRune(c)
			continue
		}

		for i++; i < len(runes) && runes[i] != '}'; i++ {
		}
		if arg >= len(argTypes) {
			return "", fmt.Errorf("input format has more placeholders than arguments")
		}

		spec, err := scanfSpecForType(argTypes[arg])
		if err != nil {
			return "", err
		}
		out.WriteString(spec)
		arg++
	}

	if arg != len(argTypes) {
		return "", fmt.Errorf("input format expects %d arguments, found %d", arg, len(argTypes))
	}
	return out.String(), nil
}

func scanfSpecForType(t WaveType) (string, error) {
	switch tt := t.(type) {
	case BoolType:
		return "%d", nil
	case CharType:
		return "%c", nil
	case ByteType:
		return "%hhu", nil
	case IntType:
		switch tt.Bits {
		case 8:
			return "%hhd", nil
		case 16:
			return "%hd", nil
		case 32:
			return "%d", nil
		case 64:
			return "%ld", nil
		case 128:
			return "%lld", nil
		default:
			return "%d", nil
		}
	case UintType:
		switch tt.Bits {
		case 8:
			return "%hhu", nil
		case 16:
			return "%hu", nil
		case 32:
			return "%u", nil
		case 64:
			return "%lu", nil
		case 128:
			return "%llu", nil
		default:
			return "%u", nil
		}
	case FloatType:
		if tt.Bits == 32 {
			return "%f", nil
		}
		return "%lf", nil
	case PointerType, StringType:
		return "", fmt.Errorf("cannot input into a pointer or string value")
	default:
		return "", fmt.Errorf("unsupported type `%s` in input format", t)
	}
}
