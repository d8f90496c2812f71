// Package conv formats numbers into caller-owned byte slices.
// No allocations beyond append growth; no fmt/strconv dependency.
package conv

// AppendUint appends the base-10 form of n to dst.
func AppendUint(dst []byte, n uint64) []byte {
	var tmp [20]byte
	i := len(tmp)
	if n == 0 {
		i--
		tmp[i] = '0'
	}
	for n > 0 {
		i--
		tmp[i] = byte('0' + n%10)
		n /= 10
	}
	return append(dst, tmp[i:]...)
}

// AppendInt appends the base-10 form of n to dst. Negative numbers supported.
func AppendInt(dst []byte, n int64) []byte {
	if n < 0 {
		dst = append(dst, '-')
		// Two's complement negation is safe for MinInt64 as uint64.
		return AppendUint(dst, uint64(-n))
	}
	return AppendUint(dst, uint64(n))
}

// AppendFixed appends v scaled down by 10^decimals, e.g. (9807, 3) -> "9.807".
func AppendFixed(dst []byte, v int64, decimals int) []byte {
	if decimals <= 0 {
		return AppendInt(dst, v)
	}
	var u uint64
	if v < 0 {
		dst = append(dst, '-')
		u = uint64(-v)
	} else {
		u = uint64(v)
	}
	div := uint64(1)
	for i := 0; i < decimals; i++ {
		div *= 10
	}
	dst = AppendUint(dst, u/div)
	dst = append(dst, '.')
	frac := u % div
	for div /= 10; div > 0; div /= 10 {
		dst = append(dst, byte('0'+frac/div))
		frac %= div
	}
	return dst
}

// AppendHex appends n in uppercase hex, zero-padded to at least width digits.
func AppendHex(dst []byte, n uint64, width int) []byte {
	const hexd = "0123456789ABCDEF"
	var tmp [16]byte
	i := len(tmp)
	for {
		i--
		tmp[i] = hexd[n&0xF]
		n >>= 4
		if i == 0 || (n == 0 && len(tmp)-i >= width) {
			return append(dst, tmp[i:]...)
		}
	}
}
