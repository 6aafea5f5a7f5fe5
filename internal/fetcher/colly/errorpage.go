package collyfetcher

import (
	"strings"

	"github.com/JakeFAU/melon-chart-api/internal/document"
)

const targetIDAttr = "data-target-id"

// detectErrorPage reports the target id of an upstream "not available" page.
// The marker sits on the #conts container or on its direct child. Content
// pages carry the attribute on nested widgets, which must not match.
func detectErrorPage(doc document.Node) (string, bool) {
	for _, selector := range []string{
		"#conts[" + targetIDAttr + "]",
		"#conts > [" + targetIDAttr + "]",
	} {
		if id, ok := doc.Find(selector).First().Attr(targetIDAttr); ok {
			return strings.TrimSpace(id), true
		}
	}
	return "", false
}
