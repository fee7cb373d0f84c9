package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrNotNumeric is returned when a summary token is not a plain count.
var ErrNotNumeric = errors.New("parser: count is not numeric")

// ParseTotal reads the total result count from a summary text such as
// "1-50 of 1,234": the last whitespace-delimited token of the first line.
func ParseTotal(summary string) (int, error) {
	fields := strings.Fields(firstLine(summary))
	if len(fields) == 0 {
		return 0, fmt.Errorf("total from %q: %w", summary, ErrNotNumeric)
	}
	return parseCount(fields[len(fields)-1])
}

// ParseLoaded reads how many results are rendered from a summary text such
// as "1-100 of 1,234": the first token after the range dash.
func ParseLoaded(summary string) (int, error) {
	line := firstLine(summary)
	if idx := strings.LastIndexAny(line, "-–"); idx >= 0 {
		_, size := utf8.DecodeRuneInString(line[idx:])
		line = line[idx+size:]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, fmt.Errorf("loaded from %q: %w", summary, ErrNotNumeric)
	}
	return parseCount(fields[0])
}

// NormalizeCount strips the thousands separators used by the listing.
func NormalizeCount(token string) string {
	token = strings.TrimSpace(token)
	token = strings.ReplaceAll(token, ".", "")
	return strings.ReplaceAll(token, ",", "")
}

func parseCount(token string) (int, error) {
	digits := NormalizeCount(token)
	if digits == "" {
		return 0, fmt.Errorf("count %q: %w", token, ErrNotNumeric)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("count %q: %w", token, ErrNotNumeric)
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("count %q: %w", token, errors.Join(ErrNotNumeric, err))
	}
	return n, nil
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(strings.TrimLeft(text, "\r\n"), "\n")
	return strings.TrimSuffix(line, "\r")
}
