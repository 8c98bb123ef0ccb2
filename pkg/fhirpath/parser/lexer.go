package parser

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isIdentStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }

func isIdentPart(r rune) bool { return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) }

func tokenize(input string) ([]Token, error) {
	var tokens []Token
	i := 0
	n := len(input)

	emit := func(kind Kind, start, end int) {
		tokens = append(tokens, Token{Kind: kind, Text: input[start:end], Pos: start, End: end})
	}

	for i < n {
		ch := input[i]

		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			i++
			continue
		}
		if ch == '/' && i+1 < n && input[i+1] == '/' {
			for i < n && input[i] != '\n' {
				i++
			}
			continue
		}
		if ch == '/' && i+1 < n && input[i+1] == '*' {
			end := -1
			for j := i + 2; j+1 < n; j++ {
				if input[j] == '*' && input[j+1] == '/' {
					end = j + 2
					break
				}
			}
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated comment at position %d", ErrSyntax, i)
			}
			i = end
			continue
		}

		start := i
		switch {
		case ch == '.':
			i++
			emit(Dot, start, i)
		case ch == '(':
			i++
			emit(LParen, start, i)
		case ch == ')':
			i++
			emit(RParen, start, i)
		case ch == '[':
			i++
			emit(LBrack, start, i)
		case ch == ']':
			i++
			emit(RBrack, start, i)
		case ch == '{':
			i++
			emit(LBrace, start, i)
		case ch == '}':
			i++
			emit(RBrace, start, i)
		case ch == ',':
			i++
			emit(Comma, start, i)
		case ch == '|':
			i++
			emit(Pipe, start, i)
		case ch == '=':
			i++
			emit(Eq, start, i)
		case ch == '~':
			i++
			emit(Equiv, start, i)
		case ch == '+':
			i++
			emit(Plus, start, i)
		case ch == '-':
			i++
			emit(Minus, start, i)
		case ch == '*':
			i++
			emit(Star, start, i)
		case ch == '/':
			i++
			emit(Slash, start, i)
		case ch == '&':
			i++
			emit(Amp, start, i)
		case ch == '%':
			i++
			emit(Percent, start, i)
		case ch == '!':
			if i+1 < n && input[i+1] == '=' {
				i += 2
				emit(Ne, start, i)
			} else if i+1 < n && input[i+1] == '~' {
				i += 2
				emit(NotEquiv, start, i)
			} else {
				return nil, fmt.Errorf("%w: unexpected character '!' at position %d", ErrSyntax, start)
			}
		case ch == '<':
			if i+1 < n && input[i+1] == '=' {
				i += 2
				emit(Le, start, i)
			} else {
				i++
				emit(Lt, start, i)
			}
		case ch == '>':
			if i+1 < n && input[i+1] == '=' {
				i += 2
				emit(Ge, start, i)
			} else {
				i++
				emit(Gt, start, i)
			}
		case ch == '\'' || ch == '`':
			end, err := scanQuoted(input, i)
			if err != nil {
				return nil, err
			}
			i = end
			if ch == '\'' {
				emit(String, start, i)
			} else {
				emit(Delimited, start, i)
			}
		case ch == '@':
			kind, end := scanTemporal(input, i)
			if end == i+1 {
				return nil, fmt.Errorf("%w: malformed date/time literal at position %d", ErrSyntax, start)
			}
			i = end
			emit(kind, start, i)
		case ch == '$':
			j := i + 1
			for j < n {
				r, size := utf8.DecodeRuneInString(input[j:])
				if !isIdentPart(r) {
					break
				}
				j += size
			}
			switch input[i:j] {
			case "$this", "$index", "$total":
			default:
				return nil, fmt.Errorf("%w: unknown special invocation %q at position %d", ErrSyntax, input[i:j], start)
			}
			i = j
			emit(Special, start, i)
		case isDigit(ch):
			j := i
			for j < n && isDigit(input[j]) {
				j++
			}
			// A '.' followed by a digit is a decimal point; otherwise it is
			// navigation after the number.
			if j+1 < n && input[j] == '.' && isDigit(input[j+1]) {
				j++
				for j < n && isDigit(input[j]) {
					j++
				}
			}
			i = j
			emit(Number, start, i)
		default:
			r, size := utf8.DecodeRuneInString(input[i:])
			if !isIdentStart(r) {
				return nil, fmt.Errorf("%w: unexpected character %q at position %d", ErrSyntax, string(r), start)
			}
			j := i + size
			for j < n {
				r, size = utf8.DecodeRuneInString(input[j:])
				if !isIdentPart(r) {
					break
				}
				j += size
			}
			i = j
			emit(Ident, start, i)
		}
	}

	tokens = append(tokens, Token{Kind: EOF, Pos: n, End: n})
	return tokens, nil
}

// scanQuoted returns the offset just past the closing quote matching the
// quote at input[start]. Escapes are skipped, not decoded.
func scanQuoted(input string, start int) (int, error) {
	quote := input[start]
	i := start + 1
	for i < len(input) {
		switch input[i] {
		case '\\':
			i += 2
			continue
		case quote:
			return i + 1, nil
		}
		i++
	}
	return 0, fmt.Errorf("%w: unterminated %s at position %d", ErrSyntax, quoteName(quote), start)
}

func quoteName(q byte) string {
	if q == '`' {
		return "delimited identifier"
	}
	return "string"
}

// scanTemporal scans a date, dateTime or time literal starting at the '@'.
func scanTemporal(input string, start int) (Kind, int) {
	n := len(input)
	i := start + 1
	if i < n && input[i] == 'T' {
		return Time, scanClock(input, i+1)
	}
	for i < n && (isDigit(input[i]) || (input[i] == '-' && i+1 < n && isDigit(input[i+1]))) {
		i++
	}
	if i < n && input[i] == 'T' {
		i = scanClock(input, i+1)
		i = scanZone(input, i)
		return DateTime, i
	}
	return Date, i
}

func scanClock(input string, i int) int {
	n := len(input)
	for i < n && (isDigit(input[i]) || (input[i] == ':' && i+1 < n && isDigit(input[i+1]))) {
		i++
	}
	if i+1 < n && input[i] == '.' && isDigit(input[i+1]) {
		i++
		for i < n && isDigit(input[i]) {
			i++
		}
	}
	return i
}

func scanZone(input string, i int) int {
	n := len(input)
	if i < n && input[i] == 'Z' {
		return i + 1
	}
	if i+5 < n && (input[i] == '+' || input[i] == '-') &&
		isDigit(input[i+1]) && isDigit(input[i+2]) && input[i+3] == ':' && isDigit(input[i+4]) && isDigit(input[i+5]) {
		return i + 6
	}
	return i
}
