package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/melon-chart-api/internal/document"
	"github.com/JakeFAU/melon-chart-api/internal/melon"
)

const chartPage = `<html><body><table><tbody>
<tr>
  <td><span class="rank">1</span>
    <span class="rank_wrap"><span class="bullet_icons rank_up"></span><span class="up">3</span></span></td>
  <td><a href="javascript:melon.play.playSong('1000002721',38123338);"><img src="https://cdn.example/album/1.jpg"></a></td>
  <td>
    <div class="ellipsis rank01"><span><a href="#">Supernova</a></span></div>
    <div class="ellipsis rank02"><a href="#">aespa</a><a href="#">aespa</a><span class="checkEllipsis">aespa</span></div>
    <div class="ellipsis rank03"><a href="javascript:melon.link.goAlbumDetail('11576524');">Armageddon</a></div>
  </td>
</tr>
<tr>
  <td><span class="rank">2</span>
    <span class="rank_wrap"><span class="bullet_icons rank_down"></span><span class="down">n/a</span></span></td>
  <td><img src="https://cdn.example/album/2.jpg"></td>
  <td>
    <div class="ellipsis rank01"><span>Unlinked Song</span></div>
    <div class="ellipsis rank02"><span class="checkEllipsis">IU, SUGA</span></div>
    <div class="ellipsis rank03"></div>
  </td>
</tr>
<tr>
  <td><span class="rank"></span></td>
</tr>
<tr>
  <td><span class="rank">3</span><span class="bullet_icons rank_static"></span></td>
  <td><a href="javascript:melon.play.playSong('1000002721', '37145732');">play</a></td>
  <td>
    <div class="ellipsis rank01"><span><a href="#">Love wins all</a></span></div>
    <div class="ellipsis rank02"><a href="#">IU</a></div>
    <div class="ellipsis rank03"><a href="#">Love wins all</a></div>
  </td>
</tr>
<tr>
  <td><span class="rank">4</span></td>
  <td><div class="ellipsis rank01"><span><a href="#">New Entry</a></span></div></td>
</tr>
</tbody></table></body></html>`

const songPage = `<html><head><meta property="og:title" content="Lilac - IU"></head><body>
<div class="section_info">
  <div class="song_name"><strong class="none">곡명</strong> Lilac </div>
  <div class="artist">
    <a class="artist_name" href="javascript:melon.link.goArtistDetail('261143');">IU</a>
    <a class="artist_name" href="javascript:melon.link.goArtistDetail('672375');">SUGA</a>
    <a class="artist_name" href="javascript:melon.link.goArtistDetail('261143');">IU</a>
  </div>
  <dl class="list">
    <dt>앨범</dt><dd><a href="javascript:melon.link.goAlbumDetail('10583221');">IU 5th Album 'LILAC'</a></dd>
    <dt>발매일</dt><dd>2021.03.25</dd>
    <dt>장르</dt><dd>Dance</dd>
  </dl>
</div>
<div class="section_lyric"><div class="lyric"><!-- height:auto; 로 변경시, 확장됨 -->Nana na&amp;na<br>Bye &#39;bye&#39; &quot;lilac&quot;<br/>&lt;end&gt;</div></div>
<div class="section_prdcr"><ul class="list_person">
  <li><div class="ellipsis artist"><a class="artist_name" href="javascript:melon.link.goArtistDetail(261143);">IU</a></div><div class="meta"><span class="type">작사</span></div></li>
  <li><div class="ellipsis artist"><a class="artist_name" href="javascript:melon.link.goArtistDetail(261143);">IU</a></div><div class="meta"><span class="type">작곡</span></div></li>
  <li><div class="ellipsis artist"><a class="artist_name" href="javascript:melon.link.goArtistDetail('12345');">Ryan S. Jhun</a></div><div class="meta"><span class="type">작곡</span></div></li>
  <li><div class="ellipsis artist"><a class="artist_name" href="#">Nobody</a></div><div class="meta"><span class="type"></span></div></li>
</ul></div>
</body></html>`

const albumPage = `<html><head>
<meta property="og:title" content="The Winning - IU">
<meta property="og:image" content="https://cdn.example/og.jpg">
</head><body>
<div class="section_info">
  <div class="thumb"></div>
  <div class="wrap_info">
    <div class="entry"><span class="gubun">[EP]</span>
      <div class="info"><div class="song_name"><strong class="none">앨범명</strong> The Winning </div></div>
      <div class="artist"><a class="artist_name" href="javascript:melon.link.goArtistDetail('261143');">IU</a></div>
    </div>
    <div class="meta"><dl class="list">
      <dt>발매일</dt><dd>2024.02.20</dd>
      <dt>장르</dt><dd>Ballad, Dance</dd>
      <dt>발매사</dt><dd>Kakao Entertainment</dd>
      <dt>기획사</dt><dd>EDAM</dd>
    </dl></div>
  </div>
</div>
<div class="section_albuminfo"><div class="cont_albuminfo"><div class="dtl_albuminfo"><div>First line<br>Second &amp; last</div></div></div></div>
<div class="service_list_song"><table><tbody>
  <tr data-group-items="cd1">
    <td><input type="checkbox" name="input_check" value="37140709"></td>
    <td><div class="wrap_song_info">
      <div class="ellipsis"><span><span class="bullet_icons title">Title</span><a href="#">Shopper</a></span></div>
      <div class="ellipsis rank02"><a href="javascript:melon.link.goArtistDetail('261143');">IU</a></div>
    </div></td>
  </tr>
  <tr data-group-items="cd1">
    <td><a href="javascript:melon.link.goSongDetail('37140710');">info</a></td>
    <td><div class="wrap_song_info">
      <div class="ellipsis"><span><span class="none">disabled</span>Holssi</span></div>
      <div class="ellipsis rank02"><a href="javascript:melon.link.goArtistDetail('261143');">IU</a></div>
    </div></td>
  </tr>
  <tr data-group-items="cd1">
    <td><div class="wrap_song_info"><div class="ellipsis"><span><a href="#">No Id</a></span></div></div></td>
  </tr>
</tbody></table></div>
</body></html>`

func TestChartExtractsRowsInPageOrder(t *testing.T) {
	t.Parallel()

	tracks, err := New(nil).Chart(mustParse(t, chartPage))
	require.NoError(t, err)
	require.Len(t, tracks, 4)

	first := tracks[0]
	require.Equal(t, "1", first.Rank)
	require.NotNil(t, first.SongID)
	require.Equal(t, "38123338", *first.SongID)
	require.Equal(t, "Supernova", first.Title)
	require.Equal(t, []string{"aespa"}, first.Artists)
	require.Equal(t, "Armageddon", first.Album)
	require.NotNil(t, first.AlbumID)
	require.Equal(t, "11576524", *first.AlbumID)
	require.Equal(t, "https://cdn.example/album/1.jpg", first.ImageURL)
	require.Equal(t, melon.RankUp(3), first.RankChange)

	second := tracks[1]
	require.Equal(t, "2", second.Rank)
	require.Nil(t, second.SongID)
	require.Nil(t, second.AlbumID)
	require.Equal(t, "Unlinked Song", second.Title)
	require.Equal(t, []string{"IU", "SUGA"}, second.Artists)
	require.Equal(t, "", second.Album)
	require.Equal(t, melon.RankDown(0), second.RankChange)

	third := tracks[2]
	require.Equal(t, "3", third.Rank)
	require.Equal(t, "37145732", *third.SongID)
	require.Equal(t, melon.RankStatic(), third.RankChange)
	require.Equal(t, "", third.ImageURL)

	require.Equal(t, "4", tracks[3].Rank)
	require.Nil(t, tracks[3].RankChange)
	require.Empty(t, tracks[3].Artists)
}

func TestChartEmptyDocument(t *testing.T) {
	t.Parallel()

	tracks, err := New(nil).Chart(mustParse(t, "<html><body></body></html>"))
	require.NoError(t, err)
	require.NotNil(t, tracks)
	require.Empty(t, tracks)
}

func TestSongExtractsDetail(t *testing.T) {
	t.Parallel()

	song, err := New(nil).Song(mustParse(t, songPage))
	require.NoError(t, err)

	require.Equal(t, "Lilac", song.Title)
	require.Equal(t, []melon.ArtistRef{{Name: "IU", ID: "261143"}, {Name: "SUGA", ID: "672375"}}, song.Artists)
	require.Equal(t, melon.AlbumRef{Name: "IU 5th Album 'LILAC'", ID: "10583221"}, song.Album)
	require.Equal(t, "2021.03.25", song.ReleaseDate)
	require.Equal(t, "Dance", song.Genre)
	require.Equal(t, "Nana na&na\nBye 'bye' \"lilac\"\n<end>", song.Lyrics)
	require.NotContains(t, song.Lyrics, "<!--")

	require.Equal(t, []melon.Producer{
		{Name: "IU", ID: "261143", Roles: []string{"작사", "작곡"}},
		{Name: "Ryan S. Jhun", ID: "12345", Roles: []string{"작곡"}},
	}, song.Producers)
}

func TestSongFallsBackToMetaTitle(t *testing.T) {
	t.Parallel()

	page := `<html><head><meta property="og:title" content="Blueming - IU"></head><body>
<div id="d_video_summary">Summary<br>text</div></body></html>`
	song, err := New(nil).Song(mustParse(t, page))
	require.NoError(t, err)
	require.Equal(t, "Blueming", song.Title)
	require.Equal(t, "Summary\ntext", song.Lyrics)
	require.Empty(t, song.Artists)
	require.Empty(t, song.Producers)
	require.Equal(t, "", song.Genre)
}

func TestAlbumExtractsDetail(t *testing.T) {
	t.Parallel()

	album, err := New(nil).Album(mustParse(t, albumPage), "11419081")
	require.NoError(t, err)

	require.Equal(t, "11419081", album.AlbumID)
	require.Equal(t, "EP", album.Type)
	require.Equal(t, "The Winning", album.Title)
	require.Equal(t, []melon.ArtistRef{{Name: "IU", ID: "261143"}}, album.Artists)
	require.Equal(t, "2024.02.20", album.ReleaseDate)
	require.Equal(t, "Ballad, Dance", album.Genre)
	require.Equal(t, "Kakao Entertainment", album.Publisher)
	require.Equal(t, "EDAM", album.Agency)
	require.Equal(t, "https://cdn.example/og.jpg", album.ImageURL)
	require.Equal(t, "First line\nSecond & last", album.Introduction)

	require.Equal(t, []melon.AlbumSong{
		{SongID: "37140709", Title: "Shopper", Artists: []melon.ArtistRef{{Name: "IU", ID: "261143"}}, IsTitle: true},
		{SongID: "37140710", Title: "Holssi", Artists: []melon.ArtistRef{{Name: "IU", ID: "261143"}}},
	}, album.Songs)
}

func TestAlbumTitleFallsBackToMeta(t *testing.T) {
	t.Parallel()

	page := `<html><head><meta property="og:title" content="Palette - IU"></head><body></body></html>`
	album, err := New(nil).Album(mustParse(t, page), "1")
	require.NoError(t, err)
	require.Equal(t, "Palette", album.Title)
	require.NotNil(t, album.Songs)
	require.Empty(t, album.Songs)
}

func TestRowPanicIsIsolated(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	ex := New(zap.New(core))
	rows := mustParse(t, `<table><tbody><tr><td>a</td></tr><tr><td>b</td></tr></tbody></table>`).Find("tr")

	var seen []string
	ex.eachRow("chart", rows, func(i int, row document.Node) error {
		if i == 0 {
			panic("unexpected tree shape")
		}
		seen = append(seen, row.Text())
		return nil
	})

	require.Equal(t, []string{"b"}, seen)
	entries := logs.FilterMessage("row extraction failed").All()
	require.Len(t, entries, 1)
	require.Equal(t, int64(0), entries[0].ContextMap()["row"])
}

func TestEntityPanicBecomesParseError(t *testing.T) {
	t.Parallel()

	_, err := New(nil).Song(panicNode{})
	require.Error(t, err)
	require.ErrorIs(t, err, melon.ErrParse)
}

func TestIDRecovery(t *testing.T) {
	t.Parallel()

	require.Equal(t, "38123338", playSongID("javascript:melon.play.playSong('1000002721',38123338);"))
	require.Equal(t, "", playSongID("javascript:melon.play.playSong('1000002721');"))
	require.Equal(t, "11576524", albumID("javascript:melon.link.goAlbumDetail('11576524');"))
	require.Equal(t, "261143", artistID("javascript:melon.link.goArtistDetail(261143);"))
	require.Equal(t, "37140710", songID(`javascript:melon.link.goSongDetail("37140710")`))
	require.Equal(t, "", albumID("#"))
}

func mustParse(t *testing.T, html string) document.Node {
	t.Helper()
	doc, err := document.ParseString(html)
	require.NoError(t, err)
	return doc
}

// panicNode simulates a tree that blows up on traversal.
type panicNode struct {
	document.Node
}

func (panicNode) Find(string) document.Node {
	panic("broken tree")
}
