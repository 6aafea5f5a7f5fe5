package extract

import (
	"strings"

	"github.com/JakeFAU/melon-chart-api/internal/document"
	"github.com/JakeFAU/melon-chart-api/internal/melon"
)

const songNameLabel = "곡명"

// Song reads a song detail page.
func (e *Extractor) Song(doc document.Node) (song melon.SongData, err error) {
	defer recoverParse("song", &err)

	title := strings.TrimSpace(strings.Replace(doc.Find(".song_name").Text(), songNameLabel, "", 1))
	song = melon.SongData{
		Title:     firstNonEmpty(title, titleFromOG(doc)),
		Artists:   artistRefs(doc.Find(".section_info .artist a.artist_name")),
		Producers: producers(doc.Find(".section_prdcr .list_person li")),
	}

	meta := doc.Find(".section_info .list dd")
	album := meta.Eq(0).Find("a").First()
	song.Album.Name = album.Text()
	if href, ok := album.Attr("href"); ok {
		song.Album.ID = albumID(href)
	}
	song.ReleaseDate = meta.Eq(1).Text()
	song.Genre = meta.Eq(2).Text()

	song.Lyrics = joinMarkup(doc.Find(".section_lyric .lyric"))
	if song.Lyrics == "" {
		song.Lyrics = joinMarkup(doc.Find("#d_video_summary"))
	}
	return song, nil
}

// producers merges every credited role under a single entry per name.
func producers(items document.Node) []melon.Producer {
	list := []melon.Producer{}
	index := map[string]int{}
	items.Each(func(_ int, li document.Node) {
		link := li.Find(".ellipsis.artist .artist_name").First()
		name := link.Text()
		role := li.Find(".meta .type").First().Text()
		if name == "" || role == "" {
			return
		}
		if i, ok := index[name]; ok {
			for _, r := range list[i].Roles {
				if r == role {
					return
				}
			}
			list[i].Roles = append(list[i].Roles, role)
			return
		}
		href, _ := link.Attr("href")
		index[name] = len(list)
		list = append(list, melon.Producer{Name: name, ID: artistID(href), Roles: []string{role}})
	})
	return list
}
