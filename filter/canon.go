package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sequenceos/chainmonitor/ethcoder"
)

// intAliasRe matches a bare "uint"/"int" type or array thereof with no
// explicit bit width, which Solidity treats as an alias for the 256-bit
// width.
var intAliasRe = regexp.MustCompile(`^(u?int)((\[\d*\])*)$`)

// CanonicalSignature normalises a monitor-declared function/event
// signature to its ABI canonical form: whitespace is stripped, bare
// `uint`/`int` become `uint256`/`int256`, tuples are expanded, and array
// suffixes are preserved. ethcoder.ParseABISignature does the
// structural parse; this layer only adds the width-alias normalisation
// ethcoder doesn't perform.
func CanonicalSignature(sig string) (string, error) {
	parsed, err := ethcoder.ParseABISignature(sig)
	if err != nil {
		return "", fmt.Errorf("filter: invalid signature %q: %w", sig, err)
	}

	types := make([]string, len(parsed.ArgTypes))
	for i, t := range parsed.ArgTypes {
		types[i] = normalizeType(t)
	}

	return fmt.Sprintf("%s(%s)", parsed.Name, strings.Join(types, ",")), nil
}

func normalizeType(t string) string {
	if m := intAliasRe.FindStringSubmatch(t); m != nil {
		return m[1] + "256" + m[2]
	}
	// tuples: recursively normalise each component type inside the parens,
	// preserving any trailing array suffix.
	if strings.HasPrefix(t, "(") {
		close := strings.LastIndex(t, ")")
		if close < 0 {
			return t
		}
		inner := t[1:close]
		suffix := t[close+1:]
		parts := splitTopLevelCommas(inner)
		for i, p := range parts {
			parts[i] = normalizeType(strings.TrimSpace(p))
		}
		return "(" + strings.Join(parts, ",") + ")" + suffix
	}
	return t
}

// splitTopLevelCommas splits a tuple's inner type list on commas that are
// not nested inside another tuple's parens.
func splitTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}
