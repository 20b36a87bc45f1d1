// package titles extracts artist and song names from loosely formatted video titles.
//
// Titles are read as "<artist><delimiter><song>", e.g. "Daft Punk - One More Time" or
// "Artist: 'Track Name'". Parsing never fails: input without any delimiter is used
// whole as both the artist and the song.
package titles

import (
	"net/url"
	"strings"
	"unicode"
)

// separators may sit between the artist and the song.
const separators = "-~|*%#:_"

// quotes may wrap the song.
const quotes = "'\"`"

// Normalize collapses runs of whitespace to a single space and trims both ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Parse splits a title into artist and song.
//
// The artist is the leading run of characters outside the separator and quote sets.
// One separator may follow, then optional whitespace. When the remainder opens with a
// quote character and the same character appears again later, the song is the text
// between the opening quote and its last occurrence; otherwise the whole remainder is
// the song, quote included.
func Parse(title string) (artist, song string) {
	stop := strings.IndexAny(title, separators+quotes)
	if stop < 0 {
		whole := Normalize(title)
		return whole, whole
	}

	artist = title[:stop]
	rest := title[stop:]
	if strings.IndexByte(separators, rest[0]) >= 0 {
		rest = rest[1:]
	}
	rest = strings.TrimLeftFunc(rest, unicode.IsSpace)

	return Normalize(artist), Normalize(unquote(rest))
}

func unquote(s string) string {
	if s == "" || strings.IndexByte(quotes, s[0]) < 0 {
		return s
	}
	inner := s[1:]
	end := strings.LastIndexByte(inner, s[0])
	if end < 0 {
		return s
	}
	return inner[:end]
}

// ParseDescription is the fallback for videos that only carry a free-text description.
//
// It parses the first non-blank line of the description as a title. Descriptions rarely
// name the album reliably, so album is always empty.
func ParseDescription(description string) (album, artist, song string) {
	for _, line := range strings.Split(description, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		artist, song = Parse(line)
		return "", artist, song
	}
	return "", "", ""
}

// SearchURL fills the {artist} and {song} placeholders of format with the words of each
// field joined by "+". Each word is query-escaped.
func SearchURL(format, artist, song string) string {
	r := strings.NewReplacer("{artist}", urlify(artist), "{song}", urlify(song))
	return r.Replace(format)
}

func urlify(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = url.QueryEscape(w)
	}
	return strings.Join(words, "+")
}
