package extract

import (
	"regexp"
	"strings"

	"github.com/JakeFAU/melon-chart-api/internal/document"
	"github.com/JakeFAU/melon-chart-api/internal/melon"
)

var (
	htmlComment = regexp.MustCompile(`(?s)<!--.*?-->`)
	lineBreak   = regexp.MustCompile(`(?i)<br\s*/?>`)

	// The serializer writes a double quote as &#34; so it is decoded too.
	entities = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#34;", `"`,
		"&#39;", "'",
	)
)

// normalizeMarkup turns inner HTML into plain text with line breaks kept.
func normalizeMarkup(markup string) string {
	s := htmlComment.ReplaceAllString(markup, "")
	s = lineBreak.ReplaceAllString(s, "\n")
	return entities.Replace(strings.TrimSpace(s))
}

// joinMarkup normalizes every matched element and concatenates the results.
func joinMarkup(nodes document.Node) string {
	var b strings.Builder
	nodes.Each(func(_ int, n document.Node) {
		b.WriteString(normalizeMarkup(n.HTML()))
	})
	return b.String()
}

// metaContent reads a <meta property=...> tag.
func metaContent(doc document.Node, property string) string {
	v, _ := doc.Find(`meta[property="` + property + `"]`).Attr("content")
	return strings.TrimSpace(v)
}

// titleFromOG keeps the part of og:title before the " - " artist suffix.
func titleFromOG(doc document.Node) string {
	title := metaContent(doc, "og:title")
	if before, _, found := strings.Cut(title, " - "); found {
		return strings.TrimSpace(before)
	}
	return title
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// appendArtist adds a named artist unless the name is empty or already present.
func appendArtist(list []melon.ArtistRef, name, id string) []melon.ArtistRef {
	if name == "" {
		return list
	}
	for _, a := range list {
		if a.Name == name {
			return list
		}
	}
	return append(list, melon.ArtistRef{Name: name, ID: id})
}

func appendName(list []string, name string) []string {
	if name == "" {
		return list
	}
	for _, n := range list {
		if n == name {
			return list
		}
	}
	return append(list, name)
}

// artistRefs collects deduplicated artist links with their ids.
func artistRefs(links document.Node) []melon.ArtistRef {
	artists := []melon.ArtistRef{}
	links.Each(func(_ int, a document.Node) {
		href, _ := a.Attr("href")
		artists = appendArtist(artists, a.Text(), artistID(href))
	})
	return artists
}
