package wave

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrintfFormatWidths(t *testing.T) {
	tests := []struct {
		typ  IRType
		cstr bool
		want string
	}{
		{IRInt{Bits: 1}, false, "%d"},
		{IRInt{Bits: 8}, false, "%hhd"},
		{IRInt{Bits: 16}, false, "%hd"},
		{IRInt{Bits: 32}, false, "%d"},
		{IRInt{Bits: 64}, false, "%ld"},
		{IRInt{Bits: 128}, false, "%lld"},
		{IRFloat{Bits: 32}, false, "%f"},
		{IRFloat{Bits: 64}, false, "%lf"},
		{irI8Ptr, true, "%s"},
		{irI8Ptr, false, "%p"},
		{IRPointer{Elem: irI32}, false, "%p"},
	}
	for _, tt := range tests {
		got, err := BuildPrintfFormat("{}", []IRType{tt.typ}, []bool{tt.cstr})
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.typ.String())
	}
}

func TestBuildPrintfFormatExplicitSpecs(t *testing.T) {
	got, err := BuildPrintfFormat("{c} {x} {p} {s} {d}",
		[]IRType{irI8, irI64, irI8Ptr, irI8Ptr, irI64},
		[]bool{false, false, false, true, false})
	require.NoError(t, err)
	assert.Equal(t, "%c %x %p %s %d", got)
}

func TestBuildPrintfFormatUnknownSpec(t *testing.T) {
	_, err := BuildPrintfFormat("{z}", []IRType{irI32}, []bool{false})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format spec")
}

func TestBuildPrintfFormatCountMismatch(t *testing.T) {
	_, err := BuildPrintfFormat("{} {}", []IRType{irI32}, []bool{false})
	assert.Error(t, err)

	_, err = BuildPrintfFormat("{}", []IRType{irI32, irI32}, []bool{false, false})
	assert.Error(t, err)
}

func TestBuildPrintfFormatEscapesPercent(t *testing.T) {
	got, err := BuildPrintfFormat("100% {}", []IRType{irI32}, []bool{false})
	require.NoError(t, err)
	assert.Equal(t, "100%% %d", got)
}

func TestBuildScanfFormatWidths(t *testing.T) {
	tests := []struct {
		typ  WaveType
		want string
	}{
		{BoolType{}, "%d"},
		{CharType{}, "%c"},
		{ByteType{}, "%hhu"},
		{IntType{Bits: 8}, "%hhd"},
		{IntType{Bits: 16}, "%hd"},
		{IntType{Bits: 32}, "%d"},
		{IntType{Bits: 64}, "%ld"},
		{IntType{Bits: 128}, "%lld"},
		{UintType{Bits: 8}, "%hhu"},
		{UintType{Bits: 16}, "%hu"},
		{UintType{Bits: 32}, "%u"},
		{UintType{Bits: 64}, "%lu"},
		{UintType{Bits: 128}, "%llu"},
		{FloatType{Bits: 32}, "%f"},
		{FloatType{Bits: 64}, "%lf"},
	}
	for _, tt := range tests {
		got, err := BuildScanfFormat("{}", []WaveType{tt.typ})
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.typ.String())
	}
}

func TestBuildScanfFormatRejectsPointers(t *testing.T) {
	for _, typ := range []WaveType{
		StringType{},
		PointerType{Inner: IntType{Bits: 32}},
	} {
		_, err := BuildScanfFormat("{}", []WaveType{typ})
		assert.Error(t, err, typ.String())
	}
}

func TestBuildScanfFormatCountMismatch(t *testing.T) {
	_, err := BuildScanfFormat("{} {}", []WaveType{IntType{Bits: 32}})
	assert.Error(t, err)
}
