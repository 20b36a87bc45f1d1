// package tagger writes artist, title and album tags into downloaded audio files.
//
// MP3 files are tagged through [id3v2]; every other container (opus, m4a, ogg, flac)
// goes through TagLib.
package tagger

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
	"go.senan.xyz/taglib"

	"github.com/desertthunder/ydl/internal/shared"
)

// Tags holds the values written into a file.
type Tags struct {
	Artist string
	Title  string
	Album  string
}

// Writer persists tags into one kind of audio container.
type Writer interface {
	WriteTags(path string, tags Tags) error
}

// WriterFunc adapts a function to [Writer].
type WriterFunc func(path string, tags Tags) error

func (f WriterFunc) WriteTags(path string, tags Tags) error {
	return f(path, tags)
}

// Tagger picks a [Writer] by file extension.
type Tagger struct {
	byExt    map[string]Writer
	fallback Writer
}

// New returns a Tagger that uses ID3v2 for .mp3 and TagLib for everything else.
func New() *Tagger {
	return NewWithWriters(map[string]Writer{".mp3": WriterFunc(writeID3)}, WriterFunc(writeTagLib))
}

// NewWithWriters returns a Tagger with explicit writers. Extensions are matched case-insensitively.
func NewWithWriters(byExt map[string]Writer, fallback Writer) *Tagger {
	normalized := make(map[string]Writer, len(byExt))
	for ext, w := range byExt {
		normalized[strings.ToLower(ext)] = w
	}
	return &Tagger{byExt: normalized, fallback: fallback}
}

// Write stores tags in the file at path. Album is written even when empty, which clears
// a stale value left by the source.
func (t *Tagger) Write(path string, tags Tags) error {
	w, ok := t.byExt[strings.ToLower(filepath.Ext(path))]
	if !ok {
		w = t.fallback
	}
	if w == nil {
		return fmt.Errorf("%w: no writer for %s", shared.ErrTagWriteFailed, path)
	}

	if err := w.WriteTags(path, tags); err != nil {
		return fmt.Errorf("%w: %s: %w", shared.ErrTagWriteFailed, path, err)
	}
	return nil
}

func writeID3(path string, tags Tags) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetArtist(tags.Artist)
	tag.SetTitle(tags.Title)
	tag.SetAlbum(tags.Album)

	return tag.Save()
}

func writeTagLib(path string, tags Tags) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	return taglib.WriteTags(abs, map[string][]string{
		taglib.Artist: {tags.Artist},
		taglib.Title:  {tags.Title},
		taglib.Album:  {tags.Album},
	}, 0)
}

// Read returns the tags currently stored in the file at path.
func (t *Tagger) Read(path string) (Tags, error) {
	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		return readID3(path)
	}
	return readTagLib(path)
}

func readTagLib(path string) (Tags, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Tags{}, err
	}

	values, err := taglib.ReadTags(abs)
	if err != nil {
		return Tags{}, err
	}

	first := func(key string) string {
		if v := values[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	return Tags{Artist: first(taglib.Artist), Title: first(taglib.Title), Album: first(taglib.Album)}, nil
}

func readID3(path string) (Tags, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return Tags{}, err
	}
	defer tag.Close()

	return Tags{Artist: tag.Artist(), Title: tag.Title(), Album: tag.Album()}, nil
}
