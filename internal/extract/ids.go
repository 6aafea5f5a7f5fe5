package extract

import (
	"regexp"
	"strings"
)

var (
	playSongCall    = regexp.MustCompile(`playSong\(([^)]*)\)`)
	albumDetailCall = handlerCall("goAlbumDetail")
	artistCall      = handlerCall("goArtistDetail")
	songDetailCall  = handlerCall("goSongDetail")
	nonDigit        = regexp.MustCompile(`\D`)
)

// handlerCall matches the first argument of an inline javascript handler,
// quoted or not.
func handlerCall(name string) *regexp.Regexp {
	return regexp.MustCompile(name + `\(\s*['"]?([^'",)]*)`)
}

func digitsOnly(s string) string {
	return nonDigit.ReplaceAllString(s, "")
}

func handlerID(re *regexp.Regexp, href string) string {
	m := re.FindStringSubmatch(href)
	if len(m) < 2 {
		return ""
	}
	return digitsOnly(m[1])
}

// playSongID reads the song id, the second argument of playSong(menu, id).
func playSongID(href string) string {
	m := playSongCall.FindStringSubmatch(href)
	if len(m) < 2 {
		return ""
	}
	args := strings.Split(m[1], ",")
	if len(args) < 2 {
		return ""
	}
	return digitsOnly(args[1])
}

func albumID(href string) string  { return handlerID(albumDetailCall, href) }
func artistID(href string) string { return handlerID(artistCall, href) }
func songID(href string) string   { return handlerID(songDetailCall, href) }
