package models

import (
	"errors"
	"fmt"
	"time"
)

// Model defines the base interface for persistent models.
type Model interface {
	ID() string
	CreatedAt() time.Time
	Validate() error
}

// Repository defines data access for one model type.
type Repository[T Model] interface {
	Create(model T) error
	Get(id string) (T, error)
	Delete(id string) error
	List(limit int) ([]T, error)
}

// Source records which part of the video metadata a [Track] was derived from.
type Source string

const (
	// SourceMetadata means the platform supplied artist and track fields.
	SourceMetadata Source = "metadata"
	// SourceTitle means artist and song were parsed from the video title.
	SourceTitle Source = "title"
	// SourceDescription means artist and song were parsed from the first line of the description.
	SourceDescription Source = "description"
)

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	switch s {
	case SourceMetadata, SourceTitle, SourceDescription:
		return true
	}
	return false
}

// Track is the tag set chosen for a downloaded file.
type Track struct {
	Artist string `json:"artist"`
	Song   string `json:"song"`
	Album  string `json:"album"`
	Source Source `json:"source"`
}

// String formats the track the way status lines print it: "artist - song (album)".
func (t Track) String() string {
	return fmt.Sprintf("%s - %s (%s)", t.Artist, t.Song, t.Album)
}

// Download is a completed download stored in the history database.
type Download struct {
	id        string
	sequence  int
	target    string
	videoID   string
	path      string
	track     Track
	createdAt time.Time
}

// NewDownload creates an unsaved Download. The ID and sequence are assigned on create.
func NewDownload(target, videoID, path string, track Track) *Download {
	return &Download{
		target:    target,
		videoID:   videoID,
		path:      path,
		track:     track,
		createdAt: time.Now().UTC(),
	}
}

// RestoreDownload rebuilds a Download from stored values.
func RestoreDownload(id string, sequence int, target, videoID, path string, track Track, createdAt time.Time) *Download {
	return &Download{
		id:        id,
		sequence:  sequence,
		target:    target,
		videoID:   videoID,
		path:      path,
		track:     track,
		createdAt: createdAt,
	}
}

func (d *Download) ID() string           { return d.id }
func (d *Download) Sequence() int        { return d.sequence }
func (d *Download) Target() string       { return d.target }
func (d *Download) VideoID() string      { return d.videoID }
func (d *Download) Path() string         { return d.path }
func (d *Download) Track() Track         { return d.track }
func (d *Download) CreatedAt() time.Time { return d.createdAt }

func (d *Download) SetID(id string)          { d.id = id }
func (d *Download) SetSequence(sequence int) { d.sequence = sequence }

// Validate checks the fields required for storage.
func (d *Download) Validate() error {
	var errs []error
	if d.id == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if d.target == "" {
		errs = append(errs, errors.New("target is required"))
	}
	if d.videoID == "" {
		errs = append(errs, errors.New("video id is required"))
	}
	if d.path == "" {
		errs = append(errs, errors.New("path is required"))
	}
	if !d.track.Source.Valid() {
		errs = append(errs, fmt.Errorf("unknown source %q", d.track.Source))
	}
	return errors.Join(errs...)
}

// DownloadRecord is the serializable form of a [Download].
type DownloadRecord struct {
	ID        string    `json:"id"`
	Sequence  int       `json:"sequence"`
	Target    string    `json:"target"`
	VideoID   string    `json:"video_id"`
	Path      string    `json:"path"`
	Artist    string    `json:"artist"`
	Song      string    `json:"song"`
	Album     string    `json:"album"`
	Source    Source    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// Record converts d for JSON output.
func (d *Download) Record() DownloadRecord {
	return DownloadRecord{
		ID:        d.id,
		Sequence:  d.sequence,
		Target:    d.target,
		VideoID:   d.videoID,
		Path:      d.path,
		Artist:    d.track.Artist,
		Song:      d.track.Song,
		Album:     d.track.Album,
		Source:    d.track.Source,
		CreatedAt: d.createdAt,
	}
}
