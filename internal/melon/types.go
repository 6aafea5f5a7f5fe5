// Package melon defines the catalog records, chart kinds, and error taxonomy
// shared by the fetcher, extractors, cache, and HTTP layers.
package melon

// Direction describes how a track moved since the previous chart snapshot.
type Direction string

// Rank change directions reported by chart rows.
const (
	DirectionUp     Direction = "up"
	DirectionDown   Direction = "down"
	DirectionStatic Direction = "static"
)

// RankChange is the movement indicator for a chart row. A nil *RankChange on
// a Track means the row carried no indicator at all (new entries, for
// example).
type RankChange struct {
	Direction Direction `json:"direction"`
	Value     int       `json:"value"`
}

// RankUp builds an upward movement of n places.
func RankUp(n int) *RankChange {
	return &RankChange{Direction: DirectionUp, Value: nonNegative(n)}
}

// RankDown builds a downward movement of n places.
func RankDown(n int) *RankChange {
	return &RankChange{Direction: DirectionDown, Value: nonNegative(n)}
}

// RankStatic builds an unchanged indicator.
func RankStatic() *RankChange {
	return &RankChange{Direction: DirectionStatic}
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// Track is one row of a chart. SongID is nil when the row has no playable
// song link, which marks an unlinked entry rather than a failure.
type Track struct {
	Rank       string      `json:"rank"`
	SongID     *string     `json:"songId"`
	Title      string      `json:"title"`
	Artists    []string    `json:"artists"`
	Album      string      `json:"album"`
	AlbumID    *string     `json:"albumId"`
	ImageURL   string      `json:"imageUrl"`
	RankChange *RankChange `json:"rankChange"`
}

// ArtistRef names an artist and, when the page exposes it, their id.
type ArtistRef struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// AlbumRef names the album a song belongs to.
type AlbumRef struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Producer is a credited contributor with every role they hold on a song.
type Producer struct {
	Name  string   `json:"name"`
	ID    string   `json:"id"`
	Roles []string `json:"roles"`
}

// SongData is the detail record for a single song page.
type SongData struct {
	Title       string      `json:"title"`
	Artists     []ArtistRef `json:"artists"`
	Album       AlbumRef    `json:"album"`
	ReleaseDate string      `json:"releaseDate"`
	Genre       string      `json:"genre"`
	Lyrics      string      `json:"lyrics"`
	Producers   []Producer  `json:"producers"`
}

// AlbumSong is one track listed on an album page.
type AlbumSong struct {
	SongID  string      `json:"songId"`
	Title   string      `json:"title"`
	Artists []ArtistRef `json:"artists"`
	IsTitle bool        `json:"isTitle"`
}

// AlbumData is the detail record for a single album page.
type AlbumData struct {
	AlbumID      string      `json:"albumId"`
	Type         string      `json:"type"`
	Title        string      `json:"title"`
	Artists      []ArtistRef `json:"artists"`
	ReleaseDate  string      `json:"releaseDate"`
	Genre        string      `json:"genre"`
	Publisher    string      `json:"publisher"`
	Agency       string      `json:"agency"`
	ImageURL     string      `json:"imageUrl"`
	Introduction string      `json:"introduction"`
	Songs        []AlbumSong `json:"songs"`
}
