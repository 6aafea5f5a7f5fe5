package extract

import (
	"strings"

	"github.com/JakeFAU/melon-chart-api/internal/document"
	"github.com/JakeFAU/melon-chart-api/internal/melon"
)

// Album meta labels as printed on the page.
const (
	labelReleaseDate = "발매일"
	labelGenre       = "장르"
	labelPublisher   = "발매사"
	labelAgency      = "기획사"
)

var bracketTrimmer = strings.NewReplacer("[", "", "]", "")

// Album reads an album detail page. albumID is echoed into the record.
func (e *Extractor) Album(doc document.Node, albumID string) (album melon.AlbumData, err error) {
	defer recoverParse("album", &err)

	info := doc.Find(".section_info")
	album = melon.AlbumData{
		AlbumID: albumID,
		Type:    strings.TrimSpace(bracketTrimmer.Replace(doc.Find(".gubun").First().Text())),
		Title: firstNonEmpty(
			info.Find(".wrap_info .entry .info .song_name").OwnText(),
			titleFromOG(doc),
		),
		Artists:      artistRefs(info.Find(".wrap_info .artist .artist_name")),
		Introduction: joinMarkup(doc.Find(".section_albuminfo .cont_albuminfo .dtl_albuminfo div")),
		Songs:        []melon.AlbumSong{},
	}

	info.Find(".meta .list dt").Each(func(_ int, dt document.Node) {
		value := dt.NextMatching("dd").Text()
		switch dt.Text() {
		case labelReleaseDate:
			album.ReleaseDate = value
		case labelGenre:
			album.Genre = value
		case labelPublisher:
			album.Publisher = value
		case labelAgency:
			album.Agency = value
		}
	})

	src, _ := info.Find(".thumb img").Attr("src")
	album.ImageURL = firstNonEmpty(strings.TrimSpace(src), metaContent(doc, "og:image"))

	rows := doc.Find("div.service_list_song table tbody tr[data-group-items]")
	e.eachRow("album", rows, func(_ int, row document.Node) error {
		song, ok := albumRow(row)
		if !ok {
			return errSkipRow
		}
		album.Songs = append(album.Songs, song)
		return nil
	})
	return album, nil
}

func albumRow(row document.Node) (melon.AlbumSong, bool) {
	id, _ := row.Find(`input[type="checkbox"][name="input_check"]`).Attr("value")
	id = strings.TrimSpace(id)
	if id == "" {
		href, _ := row.Find(`a[href*="goSongDetail"]`).Attr("href")
		id = songID(href)
	}
	if id == "" {
		return melon.AlbumSong{}, false
	}

	info := row.Find(".wrap_song_info")
	title := info.Find(".ellipsis:not(.rank02) span a").First().Text()
	if title == "" {
		title = info.Find(".ellipsis:not(.rank02) span").First().Without(".bullet_icons, .none").Text()
	}
	return melon.AlbumSong{
		SongID:  id,
		Title:   title,
		Artists: artistRefs(info.Find(".ellipsis.rank02 a")),
		IsTitle: info.Find(".ellipsis span .bullet_icons.title").Len() > 0,
	}, true
}
