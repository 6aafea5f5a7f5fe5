package extract

import (
	"strconv"
	"strings"

	"github.com/JakeFAU/melon-chart-api/internal/document"
	"github.com/JakeFAU/melon-chart-api/internal/melon"
)

// Chart reads every ranked row of a chart page in page order.
func (e *Extractor) Chart(doc document.Node) (tracks []melon.Track, err error) {
	defer recoverParse("chart", &err)

	tracks = []melon.Track{}
	e.eachRow("chart", doc.Find("tbody > tr"), func(_ int, row document.Node) error {
		track, ok := chartRow(row)
		if !ok {
			return errSkipRow
		}
		tracks = append(tracks, track)
		return nil
	})
	return tracks, nil
}

func chartRow(row document.Node) (melon.Track, bool) {
	rank := row.Find("span.rank").First().Text()
	if rank == "" {
		return melon.Track{}, false
	}
	track := melon.Track{
		Rank:       rank,
		Title:      chartTitle(row),
		Artists:    chartArtists(row),
		RankChange: rankChange(row),
	}

	if href, ok := row.Find(`a[href*="playSong"]`).Attr("href"); ok {
		if id := playSongID(href); id != "" {
			track.SongID = &id
		}
	}

	album := row.Find("div.ellipsis.rank03 > a").First()
	track.Album = album.Text()
	if href, ok := album.Attr("href"); ok {
		if id := albumID(href); id != "" {
			track.AlbumID = &id
		}
	}

	if src, ok := row.Find(`img[src*="album"]`).Attr("src"); ok {
		track.ImageURL = strings.TrimSpace(src)
	}
	return track, true
}

func chartTitle(row document.Node) string {
	return firstNonEmpty(
		row.Find("div.ellipsis.rank01 > span > a").First().Text(),
		row.Find("div.ellipsis.rank01 > span").First().Text(),
	)
}

func chartArtists(row document.Node) []string {
	artists := []string{}
	row.Find("div.ellipsis.rank02 > a").Each(func(_ int, a document.Node) {
		artists = appendName(artists, a.Text())
	})
	if len(artists) > 0 {
		return artists
	}
	for _, name := range strings.Split(row.Find("div.ellipsis.rank02 span.checkEllipsis").Text(), ",") {
		artists = appendName(artists, strings.TrimSpace(name))
	}
	return artists
}

// rankChange checks the up, down and static markers in that order.
func rankChange(row document.Node) *melon.RankChange {
	switch {
	case row.Find("span.bullet_icons.rank_up").Len() > 0:
		return melon.RankUp(atoiOrZero(row.Find("span.up").First().Text()))
	case row.Find("span.bullet_icons.rank_down").Len() > 0:
		return melon.RankDown(atoiOrZero(row.Find("span.down").First().Text()))
	case row.Find("span.bullet_icons.rank_static").Len() > 0:
		return melon.RankStatic()
	default:
		return nil
	}
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
