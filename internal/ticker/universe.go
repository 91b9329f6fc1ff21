package ticker

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ErrInvalidUniverse is returned when the ticker universe file is missing,
// empty, or contains a malformed symbol. Fatal at startup.
var ErrInvalidUniverse = errors.New("invalid ticker universe")

// Universe is the immutable set of valid uppercase symbols, loaded once at
// process start. The composition root owns the value and passes it
// explicitly into every extraction call; there is no hidden module state.
type Universe struct {
	symbols map[string]struct{}
}

// NewUniverse builds a universe from the given symbols. Symbols are
// trimmed and uppercased; blanks are dropped.
func NewUniverse(symbols []string) *Universe {
	u := &Universe{symbols: make(map[string]struct{}, len(symbols))}
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		u.symbols[s] = struct{}{}
	}
	return u
}

// LoadUniverse reads a newline-delimited symbol file into a Universe.
// Returns an error wrapping ErrInvalidUniverse if the file is missing,
// contains a malformed symbol, or yields no symbols at all.
func LoadUniverse(path string) (*Universe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidUniverse, path, err)
	}

	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	symbols := make([]string, 0, len(lines))
	for i, line := range lines {
		s := strings.ToUpper(strings.TrimSpace(line))
		if s == "" {
			continue
		}
		if !validSymbol(s) {
			return nil, fmt.Errorf("%w: line %d: malformed symbol %q", ErrInvalidUniverse, i+1, line)
		}
		symbols = append(symbols, s)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: %s contains no symbols", ErrInvalidUniverse, path)
	}

	return NewUniverse(symbols), nil
}

// Contains reports whether the normalized uppercase symbol is valid.
func (u *Universe) Contains(symbol string) bool {
	_, ok := u.symbols[strings.ToUpper(symbol)]
	return ok
}

// Size returns the number of symbols in the universe.
func (u *Universe) Size() int {
	return len(u.symbols)
}

// Symbols returns all symbols sorted ascending.
func (u *Universe) Symbols() []string {
	out := make([]string, 0, len(u.symbols))
	for s := range u.symbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// validSymbol accepts uppercase letters and digits with optional '.' or
// '-' separated class suffixes, e.g. AAPL, BRK.A, BF-B.
func validSymbol(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '.' || c == '-':
			if i == 0 || i == len(s)-1 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
