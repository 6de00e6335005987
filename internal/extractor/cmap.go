package extractor

import (
	"encoding/hex"
	"regexp"
	"strings"
	"unicode/utf16"
)

// CMap is a glyph-code to Unicode mapping assembled from the ToUnicode
// streams of a PDF. Keys are uppercase hex-encoded character codes.
type CMap struct {
	chars map[string]string
}

// NewCMap returns an empty CMap.
func NewCMap() *CMap {
	return &CMap{chars: make(map[string]string)}
}

// Len returns the number of mapped character codes.
func (cm *CMap) Len() int {
	return len(cm.chars)
}

var (
	bfCharBlockRe  = regexp.MustCompile(`(?s)beginbfchar\s*(.*?)\s*endbfchar`)
	bfRangeBlockRe = regexp.MustCompile(`(?s)beginbfrange\s*(.*?)\s*endbfrange`)
	cmapHexRe      = regexp.MustCompile(`<([0-9A-Fa-f]+)>`)
)

// ParseCMap builds a CMap from the content of one ToUnicode stream.
// It understands bfchar pairs and both bfrange forms:
//
//	<start> <end> <dstStart>
//	<start> <end> [<dst1> <dst2> ...]
func ParseCMap(content string) *CMap {
	cm := NewCMap()

	for _, block := range bfCharBlockRe.FindAllStringSubmatch(content, -1) {
		tokens := cmapHexRe.FindAllStringSubmatch(block[1], -1)
		for i := 0; i+1 < len(tokens); i += 2 {
			src := strings.ToUpper(tokens[i][1])
			if uni := hexToUnicode(tokens[i+1][1]); uni != "" {
				cm.chars[src] = uni
			}
		}
	}

	for _, block := range bfRangeBlockRe.FindAllStringSubmatch(content, -1) {
		for _, line := range strings.Split(block[1], "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if strings.Contains(line, "[") {
				cm.addRangeArray(line)
				continue
			}
			cm.addRange(line)
		}
	}

	return cm
}

func (cm *CMap) addRange(line string) {
	tokens := cmapHexRe.FindAllStringSubmatch(line, -1)
	if len(tokens) < 3 {
		return
	}
	startHex, endHex, dstHex := tokens[0][1], tokens[1][1], tokens[2][1]
	start, end, dst := hexToInt(startHex), hexToInt(endHex), hexToInt(dstHex)
	if start < 0 || end < 0 || dst < 0 {
		return
	}
	for code := start; code <= end; code++ {
		src := intToHex(code, len(startHex))
		if uni := hexToUnicode(intToHex(dst+(code-start), len(dstHex))); uni != "" {
			cm.chars[src] = uni
		}
	}
}

func (cm *CMap) addRangeArray(line string) {
	bracket := strings.Index(line, "[")
	if bracket < 0 {
		return
	}
	tokens := cmapHexRe.FindAllStringSubmatch(line[:bracket], -1)
	if len(tokens) < 2 {
		return
	}
	startHex := tokens[0][1]
	start := hexToInt(startHex)
	for i, dst := range cmapHexRe.FindAllStringSubmatch(line[bracket:], -1) {
		src := intToHex(start+i, len(startHex))
		if uni := hexToUnicode(dst[1]); uni != "" {
			cm.chars[src] = uni
		}
	}
}

// Decode translates raw string bytes into Unicode text using the map.
// The code width is taken from the map's keys (1 byte for simple fonts,
// 2 bytes for the CID fonts Japanese documents use).
func (cm *CMap) Decode(raw []byte) string {
	if len(cm.chars) == 0 {
		return ""
	}

	codeLen := 1
	for k := range cm.chars {
		codeLen = len(k) / 2
		break
	}
	if codeLen < 1 {
		codeLen = 1
	}

	var b strings.Builder
	for i := 0; i <= len(raw)-codeLen; i += codeLen {
		chunk := raw[i : i+codeLen]
		key := strings.ToUpper(hex.EncodeToString(chunk))
		if uni, ok := cm.chars[key]; ok {
			b.WriteString(uni)
			continue
		}
		if codeLen > 1 {
			// Mixed-width stream: retry at single-byte width.
			key1 := strings.ToUpper(hex.EncodeToString(chunk[:1]))
			if uni, ok := cm.chars[key1]; ok {
				b.WriteString(uni)
				i -= codeLen - 1
				continue
			}
		}
		if codeLen == 1 && chunk[0] >= 32 && chunk[0] < 127 {
			b.WriteByte(chunk[0])
		}
	}
	return b.String()
}

// toUnicodeMap merges every ToUnicode CMap found in the raw PDF bytes.
func toUnicodeMap(data []byte) *CMap {
	merged := NewCMap()
	for _, stream := range contentStreams(data) {
		content := string(inflate(stream))
		if !strings.Contains(content, "beginbfchar") && !strings.Contains(content, "beginbfrange") {
			continue
		}
		cm := ParseCMap(content)
		for k, v := range cm.chars {
			merged.chars[k] = v
		}
	}
	if merged.Len() == 0 {
		return nil
	}
	return merged
}

// hexToUnicode interprets a hex token as UTF-16BE, handling surrogate
// pairs from supplementary-plane characters.
func hexToUnicode(h string) string {
	if len(h)%2 != 0 {
		h = "0" + h
	}
	data, err := hex.DecodeString(h)
	if err != nil {
		return ""
	}

	switch len(data) {
	case 2:
		return string(rune(uint16(data[0])<<8 | uint16(data[1])))
	case 4:
		hi := uint16(data[0])<<8 | uint16(data[1])
		lo := uint16(data[2])<<8 | uint16(data[3])
		if hi >= 0xD800 && hi <= 0xDBFF && lo >= 0xDC00 && lo <= 0xDFFF {
			return string(utf16.DecodeRune(rune(hi), rune(lo)))
		}
		return string(rune(hi)) + string(rune(lo))
	}

	var b strings.Builder
	for i := 0; i+1 < len(data); i += 2 {
		b.WriteRune(rune(uint16(data[i])<<8 | uint16(data[i+1])))
	}
	return b.String()
}

func hexToInt(h string) int {
	val := 0
	for _, c := range strings.ToUpper(h) {
		val <<= 4
		switch {
		case c >= '0' && c <= '9':
			val += int(c - '0')
		case c >= 'A' && c <= 'F':
			val += int(c-'A') + 10
		default:
			return -1
		}
	}
	return val
}

func intToHex(val, width int) string {
	h := strings.ToUpper(hex.EncodeToString([]byte{byte(val >> 8), byte(val)}))
	if len(h) > width {
		h = h[len(h)-width:]
	}
	for len(h) < width {
		h = "0" + h
	}
	return h
}
