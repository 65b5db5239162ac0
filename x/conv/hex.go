// Package conv formats numbers into caller buffers without fmt.
package conv

const hexd = "0123456789ABCDEF"

// Hex writes n as "0x" and digits uppercase hex digits, zero-padded, ending
// at the end of buf. digits is clamped to 1..8. If buf is too short it
// returns buf[:0].
func Hex(buf []byte, n uint32, digits int) []byte {
	if digits < 1 {
		digits = 1
	}
	if digits > 8 {
		digits = 8
	}
	if len(buf) < digits+2 {
		return buf[:0]
	}
	i := len(buf)
	for j := 0; j < digits; j++ {
		i--
		buf[i] = hexd[n&0xF]
		n >>= 4
	}
	i -= 2
	buf[i], buf[i+1] = '0', 'x'
	return buf[i:]
}

// HexString is Hex into a fresh buffer.
func HexString(n uint32, digits int) string {
	var buf [10]byte
	return string(Hex(buf[:], n, digits))
}
