package ppm

// tokenLimit caps accumulated header integers. Longer digit runs saturate at
// tokenLimit instead of wrapping, and Decode rejects any field that large.
const tokenLimit = 1 << 27

// readUint scans buf from pos for the next unsigned decimal integer.
//
// Spaces and tabs are skipped, as is any newline met before the first digit.
// A '#' before the first digit starts a comment running through the next
// newline. Scanning stops at the first non-digit following a digit, and the
// returned position points at that terminator, which is left unconsumed for
// the caller to validate.
//
// When the end of buf is reached before any digit, readUint returns 0. Any
// other byte in the whitespace zone is an ErrMalformedHeader.
func readUint(buf []byte, pos int) (value int, next int, err error) {
	var (
		inComment bool
		seenDigit bool
	)

	for pos < len(buf) {
		ch := buf[pos]
		switch {
		case ch == '\n' && !seenDigit:
			inComment = false
			pos++
		case inComment:
			pos++
		case ch == '#' && !seenDigit:
			inComment = true
			pos++
		case ch >= '0' && ch <= '9':
			seenDigit = true
			value = value*10 + int(ch-'0')
			if value > tokenLimit {
				value = tokenLimit
			}
			pos++
		case seenDigit:
			return value, pos, nil
		case ch == ' ' || ch == '\t':
			pos++
		default:
			return 0, pos, decodeErr(pos, ErrMalformedHeader, "unexpected character %q", ch)
		}
	}

	if !seenDigit {
		return 0, pos, nil
	}
	return value, pos, nil
}

// isSpace reports whether ch is one of the separators allowed between header
// fields and after the max value.
func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n'
}

// isFieldSeparator reports whether ch may terminate the width or height field.
// Unlike the byte after the max value, a comment may start immediately.
func isFieldSeparator(ch byte) bool {
	return isSpace(ch) || ch == '#'
}
