package standardize

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// productIDPrefix marks content-derived product identifiers.
const productIDPrefix = "PROD_"

// productIDHexLen is the digest width kept in the identifier. 10 hex chars
// (40 bits) is plenty for catalog-scale cardinality while keeping the IDs
// readable in joins and reports.
const productIDHexLen = 10

// NormalizeProductName canonicalizes a product name for hashing:
// lower-case, diacritics stripped (NFD decompose, drop combining marks),
// non-alphanumeric runs collapsed to a single space, edges trimmed.
//
// "Sony TV", "sony   tv" and "SONY-TV" all normalize to "sony tv".
func NormalizeProductName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return ""
	}

	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))

	lastSpace := true
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			// Combining mark from NFD decomposition; drop it.
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// ProductID derives the deterministic content-hash identifier for a product
// name. The same logical product always maps to the same identifier, across
// sources and across runs; that property is what makes dimension and fact
// joins line up. Names that normalize to nothing yield ok=false.
func ProductID(name string) (id string, ok bool) {
	canon := NormalizeProductName(name)
	if canon == "" {
		return "", false
	}
	sum := sha256.Sum256([]byte(canon))
	return productIDPrefix + hex.EncodeToString(sum[:])[:productIDHexLen], true
}
