package code

import (
	"fmt"
	"math"
	"strings"
)

// The transport encoding writes each integer as zero or more continuation
// characters carrying 5 bits each, most significant first, followed by one
// base-61 low digit. Low digits use '\x20'..'\x5e' and continuations use
// '\x5f'..'\x7e'. The double quote and the backslash are never produced, so
// encoded programs can be embedded in quoted script literals.
const (
	lowBase    = 61
	lowFirst   = 0x20
	contFirst  = 0x5f
	contBits   = 5
	contMask   = 1<<contBits - 1
	skipQuote  = '"'
	skipEscape = '\\'
)

// Encode serializes a sequence of non-negative integers. It panics if a value
// is negative.
func Encode(seq []int) string {
	var sb strings.Builder
	var chunks []byte
	for _, v := range seq {
		if v < 0 {
			panic(fmt.Sprintf("code.Encode: negative value %d", v))
		}
		chunks = chunks[:0]
		for acc := v / lowBase; acc > 0; acc >>= contBits {
			chunks = append(chunks, byte(contFirst+acc&contMask))
		}
		for i := len(chunks) - 1; i >= 0; i-- {
			sb.WriteByte(chunks[i])
		}
		sb.WriteByte(lowDigit(v % lowBase))
	}
	return sb.String()
}

func lowDigit(d int) byte {
	ch := lowFirst + d
	if ch >= skipQuote {
		ch++
	}
	if ch >= skipEscape {
		ch++
	}
	return byte(ch)
}

// Decode is the inverse of Encode.
func Decode(s string) ([]int, error) {
	var seq []int
	acc, pending := 0, false
	for i := 0; i < len(s); i++ {
		ch := int(s[i])
		switch {
		case ch < lowFirst || ch > 0x7e || ch == skipQuote || ch == skipEscape:
			return nil, fmt.Errorf("invalid character %q at %d", s[i], i)
		case ch >= contFirst:
			if acc > math.MaxInt>>contBits {
				return nil, fmt.Errorf("value too large at %d", i)
			}
			acc = acc<<contBits + (ch - contFirst)
			pending = true
		default:
			if ch > skipEscape {
				ch--
			}
			if ch > skipQuote {
				ch--
			}
			if acc > (math.MaxInt-lowBase)/lowBase {
				return nil, fmt.Errorf("value too large at %d", i)
			}
			seq = append(seq, acc*lowBase+ch-lowFirst)
			acc, pending = 0, false
		}
	}
	if pending {
		return nil, fmt.Errorf("truncated value at end of input")
	}
	return seq, nil
}
