package standardize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StripHTML extracts the plain text of a crawled field. E-commerce listing
// descriptions arrive with markup fragments left over from the crawl; the
// standardized layer carries text only.
//
// Values without any markup pass through untouched (minus whitespace
// collapsing), and parse failures fall back to the raw string: a mangled
// description is a data-quality finding, never a pipeline error.
func StripHTML(s string) string {
	if !strings.ContainsRune(s, '<') {
		return collapseSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapseSpace(s)
	}
	return collapseSpace(doc.Text())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
