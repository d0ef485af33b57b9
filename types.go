package wave

import (
	"fmt"
	"strconv"
	"strings"
)

// WaveType is the semantic type of a value in the source language.
type WaveType interface {
	String() string
	typ()
}

type VoidType struct{}

func (VoidType) typ()           {}
func (VoidType) String() string { return "void" }

type IntType struct{ Bits int }

func (IntType) typ()             {}
func (t IntType) String() string { return fmt.Sprintf("i%d", t.Bits) }

type UintType struct{ Bits int }

func (UintType) typ()             {}
func (t UintType) String() string { return fmt.Sprintf("u%d", t.Bits) }

type FloatType struct{ Bits int } // 32 or 64

func (FloatType) typ()             {}
func (t FloatType) String() string { return fmt.Sprintf("f%d", t.Bits) }

type BoolType struct{}

func (BoolType) typ()           {}
func (BoolType) String() string { return "bool" }

type CharType struct{}

func (CharType) typ()           {}
func (CharType) String() string { return "char" }

type ByteType struct{}

func (ByteType) typ()           {}
func (ByteType) String() string { return "byte" }

// StringType is a null-terminated byte pointer.
type StringType struct{}

func (StringType) typ()           {}
func (StringType) String() string { return "str" }

type PointerType struct{ Inner WaveType }

func (PointerType) typ()             {}
func (t PointerType) String() string { return fmt.Sprintf("ptr<%s>", t.Inner) }

type ArrayType struct {
	Inner WaveType
	Size  int
}

func (ArrayType) typ() {}

func (t ArrayType) String() string { return fmt.Sprintf("array<%s, %d>", t.Inner, t.Size) }

type NamedType struct{ Name string } // user-defined struct

func (NamedType) typ()             {}
func (t NamedType) String() string { return t.Name }

// pointerBits is the width of a pointer on both supported targets;
// isz/usz alias to it.
const pointerBits = 64

// ParseType parses a type string: width-suffixed primitives, `bool
// char byte str void`, `ptr<T>`, `array<T, N>`, and bare identifiers
// naming structs.  It recurses into angle-bracketed inner strings,
// respecting nesting depth.
func ParseType(text string) (WaveType, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty type")
	}

	if lt := strings.IndexByte(text, '<'); lt >= 0 {
		if !strings.HasSuffix(text, ">") {
			return nil, fmt.Errorf("malformed generic type `%s`", text)
		}
		base := text[:lt]
		inner := text[lt+1 : len(text)-1]

		switch base {
		case "array":
			// Split on the top-level comma between element type and size.
			depth, split := 0, -1
			for i := 0; i < len(inner); i++ {
				switch inner[i] {
				case '<':
					depth++
				case '>':
					depth--
				case ',':
					if depth == 0 {
						split = i
					}
				}
				if split >= 0 {
					break
				}
			}
			if split < 0 {
				return nil, fmt.Errorf("array type needs an element type and a size: `%s`", text)
			}
			elem, err := ParseType(inner[:split])
			if err != nil {
				return nil, err
			}
			size, err := strconv.Atoi(strings.TrimSpace(inner[split+1:]))
			if err != nil || size < 0 {
				return nil, fmt.Errorf("invalid array size in `%s`", text)
			}
			return ArrayType{Inner: elem, Size: size}, nil
		case "ptr":
			elem, err := ParseType(inner)
			if err != nil {
				return nil, err
			}
			return PointerType{Inner: elem}, nil
		}
		return nil, fmt.Errorf("unknown generic type `%s`", base)
	}

	switch text {
	case "void":
		return VoidType{}, nil
	case "bool":
		return BoolType{}, nil
	case "char":
		return CharType{}, nil
	case "byte":
		return ByteType{}, nil
	case "str":
		return StringType{}, nil
	case "isz":
		return IntType{Bits: pointerBits}, nil
	case "usz":
		return UintType{Bits: pointerBits}, nil
	}

	if len(text) >= 2 {
		if w, err := strconv.Atoi(text[1:]); err == nil {
			switch text[0] {
			case 'i':
				if intWidths[w] {
					return IntType{Bits: w}, nil
				}
			case 'u':
				if intWidths[w] {
					return UintType{Bits: w}, nil
				}
			case 'f':
				if w == 32 || w == 64 {
					return FloatType{Bits: w}, nil
				}
			}
			return nil, fmt.Errorf("unsupported type width `%s`", text)
		}
	}

	if !isIdentStart(rune(text[0])) {
		return nil, fmt.Errorf("invalid type `%s`", text)
	}
	for _, c := range text {
		if !isIdentCont(c) {
			return nil, fmt.Errorf("invalid type `%s`", text)
		}
	}
	return NamedType{Name: text}, nil
}

// TokenTypeToWaveType maps a concrete type token to its semantic
// type.  Identifiers resolve as struct names.
func TokenTypeToWaveType(tok Token) (WaveType, error) {
	switch tok.Kind {
	case TokenTypeInt, TokenTypeUint, TokenTypeFloat,
		TokenTypeBool, TokenTypeChar, TokenTypeByte,
		TokenTypeStr, TokenTypeVoid:
		return ParseType(tok.Lexeme)
	case TokenIdentifier:
		return ParseType(tok.Lexeme)
	default:
		return nil, fmt.Errorf("token `%s` does not name a type", tok)
	}
}

// ValidateType checks structural compatibility between two types.
// Widths within the same integer/float category are compatible;
// width coercion is deferred to codegen.  Pointers and arrays match
// recursively, and arrays also by size.
func ValidateType(expected, actual WaveType) bool {
	switch e := expected.(type) {
	case IntType:
		_, ok := actual.(IntType)
		return ok
	case UintType:
		_, ok := actual.(UintType)
		return ok
	case FloatType:
		_, ok := actual.(FloatType)
		return ok
	case BoolType:
		_, ok := actual.(BoolType)
		return ok
	case CharType:
		_, ok := actual.(CharType)
		return ok
	case ByteType:
		_, ok := actual.(ByteType)
		return ok
	case StringType:
		_, ok := actual.(StringType)
		return ok
	case VoidType:
		_, ok := actual.(VoidType)
		return ok
	case PointerType:
		a, ok := actual.(PointerType)
		return ok && ValidateType(e.Inner, a.Inner)
	case ArrayType:
		a, ok := actual.(ArrayType)
		return ok && e.Size == a.Size && ValidateType(e.Inner, a.Inner)
	case NamedType:
		a, ok := actual.(NamedType)
		return ok && e.Name == a.Name
	}
	return false
}

// StructLayout records the field order and types of a declared
// struct; field indices are assigned in declaration order.
type StructLayout struct {
	Name       string
	Fields     []StructField
	FieldIndex map[string]int
}

func NewStructLayout(name string, fields []StructField) *StructLayout {
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		idx[f.Name] = i
	}
	return &StructLayout{Name: name, Fields: fields, FieldIndex: idx}
}

func (sl *StructLayout) FieldType(name string) (WaveType, bool) {
	i, ok := sl.FieldIndex[name]
	if !ok {
		return nil, false
	}
	return sl.Fields[i].Type, true
}

// StorageSize returns the size in bytes a value of t occupies,
// resolving struct names through the registry.  Layout is packed;
// both supported targets agree on these sizes for the types the
// language can express at an extern boundary.
func StorageSize(t WaveType, structs map[string]*StructLayout) (int, error) {
	switch tt := t.(type) {
	case IntType:
		return (tt.Bits + 7) / 8, nil
	case UintType:
		return (tt.Bits + 7) / 8, nil
	case FloatType:
		return tt.Bits / 8, nil
	case BoolType, CharType, ByteType:
		return 1, nil
	case StringType, PointerType:
		return pointerBits / 8, nil
	case ArrayType:
		inner, err := StorageSize(tt.Inner, structs)
		if err != nil {
			return 0, err
		}
		return inner * tt.Size, nil
	case NamedType:
		layout, ok := structs[tt.Name]
		if !ok {
			return 0, fmt.Errorf("unknown struct `%s`", tt.Name)
		}
		total := 0
		for _, f := range layout.Fields {
			sz, err := StorageSize(f.Type, structs)
			if err != nil {
				return 0, err
			}
			total += sz
		}
		return total, nil
	case VoidType:
		return 0, nil
	}
	return 0, fmt.Errorf("no storage size for `%s`", t)
}

// hasIntegerPointerLeavesOnly reports whether every leaf of an
// aggregate is an integer or a pointer.
func hasIntegerPointerLeavesOnly(t WaveType, structs map[string]*StructLayout) bool {
	switch tt := t.(type) {
	case IntType, UintType, BoolType, CharType, ByteType, StringType, PointerType:
		return true
	case ArrayType:
		return hasIntegerPointerLeavesOnly(tt.Inner, structs)
	case NamedType:
		layout, ok := structs[tt.Name]
		if !ok {
			return false
		}
		for _, f := range layout.Fields {
			if !hasIntegerPointerLeavesOnly(f.Type, structs) {
				return false
			}
		}
		return true
	}
	return false
}

// AbiCLower rewrites an aggregate parameter or return type at an
// extern(c) boundary.  Aggregates of at most 16 bytes whose leaves
// are all integers or pointers become a single integer of size*8
// bits; everything else passes through unchanged.
func AbiCLower(t WaveType, structs map[string]*StructLayout) WaveType {
	switch t.(type) {
	case ArrayType, NamedType:
	default:
		return t
	}
	if !hasIntegerPointerLeavesOnly(t, structs) {
		return t
	}
	size, err := StorageSize(t, structs)
	if err != nil || size == 0 || size > 16 {
		return t
	}
	return UintType{Bits: size * 8}
}

// IsAggregate reports whether t is an array or named struct.
func IsAggregate(t WaveType) bool {
	switch t.(type) {
	case ArrayType, NamedType:
		return true
	}
	return false
}
