package extractor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadableRune(t *testing.T) {
	for _, r := range "請求書インボイスinvoice 123【注】¥" {
		assert.True(t, readableRune(r), string(r))
	}
	for _, r := range []rune{0x01, 0x07, 0xFFFD + 1000, 0x0530} {
		assert.False(t, readableRune(r), string(r))
	}
}

func TestTextQuality(t *testing.T) {
	assert.Equal(t, 0.0, textQuality(nil))
	assert.Equal(t, 1.0, textQuality([]string{"ご請求書 invoice"}))
	assert.Less(t, textQuality([]string{"\x01\x02\x03\x04"}), 0.5)
}

func TestIsReadable(t *testing.T) {
	tests := []struct {
		name     string
		pages    []string
		expected bool
	}{
		{
			name:     "japanese billing text",
			pages:    []string{"ご請求書\n合計金額 ¥12,000"},
			expected: true,
		},
		{
			name:     "too short",
			pages:    []string{"請求"},
			expected: false,
		},
		{
			name:     "readable but no billing vocabulary",
			pages:    []string{"the quick brown fox jumps over the lazy dog"},
			expected: false,
		},
		{
			name:     "misdecoded glyph soup",
			pages:    []string{strings.Repeat("\x01\x02\x7F\x05", 20) + "請求"},
			expected: false,
		},
		{
			name:     "empty pages",
			pages:    []string{"", ""},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isReadable(tt.pages))
		})
	}
}

func TestContainsBillingWords(t *testing.T) {
	assert.True(t, containsBillingWords([]string{"御中", "ご請求明細書"}))
	assert.True(t, containsBillingWords([]string{"INVOICE #42"})) // case folded
	assert.False(t, containsBillingWords([]string{"hello world"}))
}

func TestUnescapePDFString(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{`plain`, "plain"},
		{`a\nb`, "a\nb"},
		{`a\tb`, "a\tb"},
		{`\(paren\)`, "(paren)"},
		{`back\\slash`, `back\slash`},
		{`\101\102`, "AB"},
		{`\12`, "\n"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, unescapePDFString(tt.in), tt.in)
	}
}

func TestDecodeHexStringUTF16Fallback(t *testing.T) {
	// No CMap available: CID strings are tried as UTF-16BE.
	assert.Equal(t, "出荷", decodeHexString("51FA8377", nil))
	assert.Equal(t, "", decodeHexString("zz", nil))
}

func TestDecodeShowArray(t *testing.T) {
	// Kerning numbers are dropped and fragments keep source order.
	assert.Equal(t, "Hello", decodeShowArray("(He) -10 (llo)", nil))
	assert.Equal(t, "出A", decodeShowArray("<51FA> -120 (A)", nil))
}

func TestDecodeStream(t *testing.T) {
	stream := []byte(`BT
/F1 12 Tf
1 0 0 1 50 700 Td
(Hello) Tj
0 -20 Td
(World) Tj
ET`)

	assert.Equal(t, "Hello\nWorld", decodeStream(stream, nil))
}

func TestContentStreams(t *testing.T) {
	data := []byte("1 0 obj\nstream\nfirst\nendstream\n2 0 obj\nstream\r\nsecond\nendstream")
	streams := contentStreams(data)
	require.Len(t, streams, 2)
	assert.Equal(t, "first\n", string(streams[0]))
	assert.Equal(t, "second\n", string(streams[1]))
}

func TestExtractRawLiteralStrings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	data := []byte("%PDF-1.4\n1 0 obj\n<< /Length 40 >>\nstream\nBT\n(ご請求書) Tj\nT*\n(合計 1,000) Tj\nET\nendstream\nendobj\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	pages, err := ExtractRaw(path)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "ご請求書\n合計 1,000", pages[0])
}

func TestExtractRawWithToUnicode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cid.pdf")
	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	b.WriteString("1 0 obj\n<< /Length 60 >>\nstream\n")
	b.WriteString("begincmap\n2 beginbfchar\n<01> <51FA>\n<02> <8377>\nendbfchar\nendcmap\n")
	b.WriteString("endstream\nendobj\n")
	b.WriteString("2 0 obj\n<< /Length 30 >>\nstream\n")
	b.WriteString("BT\n<0102> Tj\nET\n")
	b.WriteString("endstream\nendobj\n")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))

	pages, err := ExtractRaw(path)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "出荷", pages[0])
}

func TestExtractRawNoStreams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n%%EOF\n"), 0o644))

	pages, err := ExtractRaw(path)
	require.NoError(t, err)
	assert.Nil(t, pages)
}
