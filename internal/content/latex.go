package content

import "errors"

var (
	ErrUnexpectedBrace = errors.New("unexpected closing brace '}'")
	ErrMissingBrace    = errors.New("missing closing brace '}'")
)

// WarnUnevenDollars is reported for LaTeX with an odd number of '$'
// delimiters. The formula is still accepted.
const WarnUnevenDollars = "Uneven number of '$' delimiters."

// ValidateLatex checks brace balance and math delimiters. A backslash
// escapes the next character. Unbalanced braces are errors; an odd '$'
// count is returned as a warning.
func ValidateLatex(latex string) (warning string, err error) {
	braces, dollars := 0, 0
	escaped := false

	for _, c := range latex {
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '{':
			braces++
		case '}':
			braces--
			if braces < 0 {
				return "", ErrUnexpectedBrace
			}
		case '$':
			dollars++
		}
	}

	if braces > 0 {
		return "", ErrMissingBrace
	}
	if dollars%2 != 0 {
		return WarnUnevenDollars, nil
	}
	return "", nil
}
