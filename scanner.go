package ledger

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// tokenKind classifies one lexical token of a directive line.
type tokenKind int

const (
	tokEOL tokenKind = iota
	tokString
	tokNumber
	tokDate
	tokAccount
	tokCurrency
	tokWord
	tokKey // metadata key, including the trailing colon
	tokTag
	tokLink
	tokStar
	tokFlag
	tokLBrace
	tokRBrace
	tokLLBrace
	tokRRBrace
	tokAt
	tokAtAt
	tokComma
	tokTilde
	tokHashSep // the "#" separating per-unit and total in a cost spec
)

func (k tokenKind) String() string {
	switch k {
	case tokEOL:
		return "end of line"
	case tokString:
		return "string"
	case tokNumber:
		return "number"
	case tokDate:
		return "date"
	case tokAccount:
		return "account"
	case tokCurrency:
		return "currency"
	case tokWord:
		return "word"
	case tokKey:
		return "metadata key"
	case tokTag:
		return "tag"
	case tokLink:
		return "link"
	case tokStar:
		return "'*'"
	case tokFlag:
		return "flag"
	case tokLBrace:
		return "'{'"
	case tokRBrace:
		return "'}'"
	case tokLLBrace:
		return "'{{'"
	case tokRRBrace:
		return "'}}'"
	case tokAt:
		return "'@'"
	case tokAtAt:
		return "'@@'"
	case tokComma:
		return "','"
	case tokTilde:
		return "'~'"
	case tokHashSep:
		return "'#'"
	default:
		return "unknown token"
	}
}

type token struct {
	kind tokenKind
	text string
}

var (
	dateTokenRx = regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}$`)
	numberRx    = regexp.MustCompile(`^[-+]?\d+(?:\.\d*)?$`)
	metaKeyRx   = regexp.MustCompile(`^[a-z][a-zA-Z0-9\-_]*:$`)
	tagWordRx   = regexp.MustCompile(`^[A-Za-z0-9\-_/.]+$`)
)

// scanLine tokenizes one line of input. A ";" starts a comment running to the
// end of the line.
func scanLine(line string) ([]token, error) {
	var tokens []token
	runes := []rune(line)
	i := 0
	n := len(runes)

	for i < n {
		r := runes[i]
		switch {
		case r == ' ' || r == '\t':
			i++
		case r == ';':
			return tokens, nil // comment to end of line
		case r == '"':
			text, next, err := scanString(runes, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{tokString, text})
			i = next
		case r == '{':
			if i+1 < n && runes[i+1] == '{' {
				tokens = append(tokens, token{tokLLBrace, "{{"})
				i += 2
			} else {
				tokens = append(tokens, token{tokLBrace, "{"})
				i++
			}
		case r == '}':
			if i+1 < n && runes[i+1] == '}' {
				tokens = append(tokens, token{tokRRBrace, "}}"})
				i += 2
			} else {
				tokens = append(tokens, token{tokRBrace, "}"})
				i++
			}
		case r == '@':
			if i+1 < n && runes[i+1] == '@' {
				tokens = append(tokens, token{tokAtAt, "@@"})
				i += 2
			} else {
				tokens = append(tokens, token{tokAt, "@"})
				i++
			}
		case r == ',':
			tokens = append(tokens, token{tokComma, ","})
			i++
		case r == '~':
			tokens = append(tokens, token{tokTilde, "~"})
			i++
		case r == '*':
			tokens = append(tokens, token{tokStar, "*"})
			i++
		case r == '!':
			tokens = append(tokens, token{tokFlag, "!"})
			i++
		case r == '#':
			word, next := scanWord(runes, i+1)
			if word == "" {
				tokens = append(tokens, token{tokHashSep, "#"})
				i++
			} else if tagWordRx.MatchString(word) {
				tokens = append(tokens, token{tokTag, word})
				i = next
			} else {
				return nil, fmt.Errorf("invalid tag %q", word)
			}
		case r == '^':
			word, next := scanWord(runes, i+1)
			if !tagWordRx.MatchString(word) {
				return nil, fmt.Errorf("invalid link %q", word)
			}
			tokens = append(tokens, token{tokLink, word})
			i = next
		case unicode.IsDigit(r) || r == '-' || r == '+':
			word, next := scanWord(runes, i)
			switch {
			case dateTokenRx.MatchString(word):
				tokens = append(tokens, token{tokDate, word})
			case numberRx.MatchString(word):
				tokens = append(tokens, token{tokNumber, word})
			default:
				return nil, fmt.Errorf("invalid number or date %q", word)
			}
			i = next
		case unicode.IsLetter(r):
			word, next := scanWord(runes, i)
			tokens = append(tokens, token{classifyWord(word), strings.TrimSuffix(word, ":")})
			i = next
		default:
			return nil, fmt.Errorf("unexpected character %q", string(r))
		}
	}
	return tokens, nil
}

// scanWord reads a bare word: letters, digits and the punctuation legal in
// accounts, currencies and dates.
func scanWord(runes []rune, i int) (string, int) {
	start := i
	for i < len(runes) {
		r := runes[i]
		if unicode.IsLetter(r) || unicode.IsDigit(r) ||
			strings.ContainsRune(":-_'./", r) {
			i++
			continue
		}
		break
	}
	return string(runes[start:i]), i
}

func classifyWord(word string) tokenKind {
	switch {
	case metaKeyRx.MatchString(word):
		return tokKey
	case strings.Contains(word, ":"):
		return tokAccount
	case currencyRx.MatchString(word):
		return tokCurrency
	default:
		return tokWord
	}
}

// scanString reads a double-quoted string starting at runes[i], handling \"
// and \\ escapes. It returns the unquoted text and the index past the closing
// quote.
func scanString(runes []rune, i int) (string, int, error) {
	var b strings.Builder
	i++ // opening quote
	for i < len(runes) {
		r := runes[i]
		switch r {
		case '\\':
			if i+1 >= len(runes) {
				return "", 0, fmt.Errorf("unterminated escape in string")
			}
			next := runes[i+1]
			switch next {
			case '"', '\\':
				b.WriteRune(next)
			case 'n':
				b.WriteRune('\n')
			default:
				b.WriteRune('\\')
				b.WriteRune(next)
			}
			i += 2
		case '"':
			return b.String(), i + 1, nil
		default:
			b.WriteRune(r)
			i++
		}
	}
	return "", 0, fmt.Errorf("unterminated string")
}
