package xlsx

import "strings"

// builtinDateFmts are the built-in number format ids that render dates or
// times.
var builtinDateFmts = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	45: true, 46: true, 47: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

// isDateNumFmt reports whether a cell style's number format renders a date
// or time. Custom formats are scanned for date tokens outside quoted
// literals, escapes and bracketed sections (colors, conditions, locales);
// elapsed-time brackets like [h] count as time.
func isDateNumFmt(id int, custom *string) bool {
	if custom == nil || *custom == "" {
		return builtinDateFmts[id]
	}
	code := *custom
	// Only the positive section decides.
	if i := sectionEnd(code); i >= 0 {
		code = code[:i]
	}
	inQuote := false
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case inQuote:
			if c == '"' {
				inQuote = false
			}
		case c == '"':
			inQuote = true
		case c == '\\' || c == '_' || c == '*':
			i++
		case c == '[':
			end := strings.IndexByte(code[i:], ']')
			if end < 0 {
				return false
			}
			inner := strings.ToLower(code[i+1 : i+end])
			if inner == "h" || inner == "hh" || inner == "m" || inner == "mm" || inner == "s" || inner == "ss" {
				return true
			}
			i += end
		default:
			switch c | 0x20 {
			case 'y', 'd', 'h', 's', 'm':
				return true
			}
		}
	}
	return false
}

// sectionEnd returns the index of the first unquoted ';', or -1.
func sectionEnd(code string) int {
	inQuote := false
	for i := 0; i < len(code); i++ {
		switch code[i] {
		case '"':
			inQuote = !inQuote
		case '\\':
			i++
		case ';':
			if !inQuote {
				return i
			}
		}
	}
	return -1
}
