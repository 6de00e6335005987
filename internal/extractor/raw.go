package extractor

import (
	"bytes"
	"compress/zlib"
	"encoding/hex"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode"
)

// ExtractRaw decodes text straight from the PDF byte stream, without the
// structured library. Japanese billing PDFs routinely embed CID/Type0
// fonts whose glyph codes only become text through the ToUnicode CMap, so
// the raw path first builds a merged CMap from every ToUnicode stream and
// then applies it to the Tj/TJ show operators of each content stream.
//
// Page boundaries are not recoverable here: everything lands on a single
// page, which means the segmentation boundary defaults to page 0. That is
// the same outcome the legacy tool produced for such files.
func ExtractRaw(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	streams := contentStreams(data)
	if len(streams) == 0 {
		return nil, nil
	}

	cm := toUnicodeMap(data)

	var chunks []string
	for _, stream := range streams {
		text := decodeStream(inflate(stream), cm)
		if text != "" {
			chunks = append(chunks, text)
		}
	}
	if len(chunks) == 0 {
		return nil, nil
	}
	return []string{strings.TrimSpace(strings.Join(chunks, "\n"))}, nil
}

// contentStreams returns every stream...endstream block in the file.
func contentStreams(data []byte) [][]byte {
	var streams [][]byte
	begin := []byte("stream")
	end := []byte("endstream")

	offset := 0
	for offset < len(data) {
		idx := bytes.Index(data[offset:], begin)
		if idx < 0 {
			break
		}
		start := offset + idx + len(begin)
		if start < len(data) && data[start] == '\r' {
			start++
		}
		if start < len(data) && data[start] == '\n' {
			start++
		}
		endIdx := bytes.Index(data[start:], end)
		if endIdx < 0 {
			break
		}
		if endIdx > 0 {
			streams = append(streams, data[start:start+endIdx])
		}
		offset = start + endIdx + len(end)
	}
	return streams
}

// inflate zlib-decompresses a stream, returning it untouched on failure
// (uncompressed streams are legal).
func inflate(data []byte) []byte {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return data
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return data
	}
	return out
}

// PDF text show / positioning operators.
var (
	hexShowRe   = regexp.MustCompile(`<([0-9A-Fa-f]+)>\s*Tj`)
	litShowRe   = regexp.MustCompile(`\(([^)]*)\)\s*Tj`)
	arrayShowRe = regexp.MustCompile(`\[([^\]]*)\]\s*TJ`)
	hexTokenRe2 = regexp.MustCompile(`<([0-9A-Fa-f]+)>`)
	litTokenRe  = regexp.MustCompile(`\(([^)]*)\)`)
	nextLineRe  = regexp.MustCompile(`\(([^)]*)\)\s*'`)
	movePosRe   = regexp.MustCompile(`([\d.\-]+)\s+([\d.\-]+)\s+T[dD]`)
)

// decodeStream turns one content stream into text, one line per text
// positioning operation.
func decodeStream(data []byte, cm *CMap) string {
	content := string(data)
	if !strings.Contains(content, "Tj") && !strings.Contains(content, "TJ") &&
		!strings.Contains(content, "BT") {
		return ""
	}

	var lines []string
	for _, block := range textBlocks(content) {
		lines = append(lines, decodeBlock(block, cm)...)
	}
	if len(lines) == 0 {
		if text := decodeAnywhere(content, cm); text != "" {
			lines = append(lines, text)
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// textBlocks returns the BT...ET spans of a content stream.
func textBlocks(content string) []string {
	var blocks []string
	rest := content
	for {
		bt := strings.Index(rest, "BT")
		if bt < 0 {
			break
		}
		et := strings.Index(rest[bt:], "ET")
		if et < 0 {
			break
		}
		blocks = append(blocks, rest[bt:bt+et+2])
		rest = rest[bt+et+2:]
	}
	return blocks
}

// decodeBlock walks one BT...ET block. Td/TD moves and the T* operator
// terminate the current line; show operators append to it.
func decodeBlock(block string, cm *CMap) []string {
	var lines []string
	var current strings.Builder

	flush := func() {
		if line := strings.TrimSpace(current.String()); line != "" {
			lines = append(lines, line)
		}
		current.Reset()
	}

	for _, op := range strings.Split(block, "\n") {
		op = strings.TrimSpace(op)

		if op == "T*" || movePosRe.MatchString(op) {
			flush()
		}

		for _, m := range hexShowRe.FindAllStringSubmatch(op, -1) {
			current.WriteString(decodeHexString(m[1], cm))
		}
		for _, m := range litShowRe.FindAllStringSubmatch(op, -1) {
			current.WriteString(decodeLiteralString(m[1], cm))
		}
		for _, m := range arrayShowRe.FindAllStringSubmatch(op, -1) {
			current.WriteString(decodeShowArray(m[1], cm))
		}
		for _, m := range nextLineRe.FindAllStringSubmatch(op, -1) {
			flush()
			current.WriteString(decodeLiteralString(m[1], cm))
		}
	}
	flush()
	return lines
}

// decodeAnywhere collects show-operator text when no BT/ET structure was
// found.
func decodeAnywhere(content string, cm *CMap) string {
	var parts []string
	for _, m := range hexShowRe.FindAllStringSubmatch(content, -1) {
		if text := decodeHexString(m[1], cm); text != "" {
			parts = append(parts, text)
		}
	}
	for _, m := range litShowRe.FindAllStringSubmatch(content, -1) {
		if text := decodeLiteralString(m[1], cm); text != "" {
			parts = append(parts, text)
		}
	}
	for _, m := range arrayShowRe.FindAllStringSubmatch(content, -1) {
		if text := decodeShowArray(m[1], cm); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// decodeHexString decodes a <hex> string via the CMap, falling back to
// UTF-16BE and finally to ASCII.
func decodeHexString(hexStr string, cm *CMap) string {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return ""
	}

	if cm != nil && cm.Len() > 0 {
		if s := cm.Decode(raw); s != "" {
			return s
		}
	}

	// CID fonts without a usable CMap often still encode UTF-16BE.
	if len(raw) >= 2 && len(raw)%2 == 0 {
		var b strings.Builder
		for i := 0; i+1 < len(raw); i += 2 {
			cp := rune(raw[i])<<8 | rune(raw[i+1])
			if unicode.IsPrint(cp) || cp == ' ' {
				b.WriteRune(cp)
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}

	return dropUnprintable(string(raw))
}

// decodeLiteralString decodes a (literal) string via escapes and the CMap.
func decodeLiteralString(s string, cm *CMap) string {
	decoded := unescapePDFString(s)
	if cm != nil && cm.Len() > 0 {
		if out := cm.Decode([]byte(decoded)); out != "" && mostlyPrintable(out) {
			return out
		}
	}
	return dropUnprintable(decoded)
}

// decodeShowArray decodes a TJ array, interleaving its hex and literal
// elements in source order. The numeric kerning elements are ignored.
func decodeShowArray(arrayContent string, cm *CMap) string {
	type element struct {
		pos   int
		isHex bool
		value string
	}
	var elems []element

	for _, idx := range hexTokenRe2.FindAllStringSubmatchIndex(arrayContent, -1) {
		elems = append(elems, element{pos: idx[0], isHex: true, value: arrayContent[idx[2]:idx[3]]})
	}
	for _, idx := range litTokenRe.FindAllStringSubmatchIndex(arrayContent, -1) {
		elems = append(elems, element{pos: idx[0], isHex: false, value: arrayContent[idx[2]:idx[3]]})
	}
	sort := func() {
		for i := 1; i < len(elems); i++ {
			for j := i; j > 0 && elems[j].pos < elems[j-1].pos; j-- {
				elems[j], elems[j-1] = elems[j-1], elems[j]
			}
		}
	}
	sort()

	var b strings.Builder
	for _, e := range elems {
		if e.isHex {
			b.WriteString(decodeHexString(e.value, cm))
		} else {
			b.WriteString(decodeLiteralString(e.value, cm))
		}
	}
	return b.String()
}

// unescapePDFString resolves \n, \t, octal and friends in a literal string.
func unescapePDFString(s string) string {
	var buf strings.Builder
	i := 0
	for i < len(s) {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case '(', ')', '\\':
				buf.WriteByte(s[i])
			default:
				if s[i] >= '0' && s[i] <= '7' {
					val := int(s[i] - '0')
					for j := 1; j < 3 && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '7'; j++ {
						i++
						val = val*8 + int(s[i]-'0')
					}
					if val < 256 {
						buf.WriteByte(byte(val))
					}
				} else {
					buf.WriteByte(s[i])
				}
			}
		} else {
			buf.WriteByte(s[i])
		}
		i++
	}
	return buf.String()
}

func dropUnprintable(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		return -1
	}, s))
}

func mostlyPrintable(s string) bool {
	runes := []rune(s)
	if len(runes) == 0 {
		return false
	}
	printable := 0
	for _, r := range runes {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}
	return float64(printable)/float64(len(runes)) > 0.5
}
