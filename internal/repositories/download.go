package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ydl/internal/models"
	"github.com/desertthunder/ydl/internal/shared"
)

const downloadColumns = `id, sequence, target, video_id, artist, song, album, source, path, created_at`

// DownloadRepository implements models.Repository[*models.Download].
type DownloadRepository struct {
	db *sql.DB
}

// NewDownloadRepository creates a new DownloadRepository with the given database connection
func NewDownloadRepository(db *sql.DB) *DownloadRepository {
	return &DownloadRepository{db: db}
}

// Create inserts d with a generated ID and the next sequence number.
func (r *DownloadRepository) Create(d *models.Download) error {
	d.SetID(shared.GenerateID())
	if err := d.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "downloads")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	d.SetSequence(sequence)

	track := d.Track()
	_, err = r.db.Exec(
		`INSERT INTO downloads (`+downloadColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID(),
		sequence,
		d.Target(),
		d.VideoID(),
		track.Artist,
		track.Song,
		track.Album,
		string(track.Source),
		d.Path(),
		d.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert download: %w", err)
	}

	return nil
}

// Get retrieves a download by ID.
func (r *DownloadRepository) Get(id string) (*models.Download, error) {
	row := r.db.QueryRow(`SELECT `+downloadColumns+` FROM downloads WHERE id = ?`, id)

	d, err := scanDownload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("download %s: %w", id, ErrNotFound)
	}
	return d, err
}

// Delete removes a download by ID.
func (r *DownloadRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM downloads WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete download: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("download %s: %w", id, ErrNotFound)
	}

	return nil
}

// List returns the most recent downloads first. A limit of zero or less returns all rows.
func (r *DownloadRepository) List(limit int) ([]*models.Download, error) {
	query := `SELECT ` + downloadColumns + ` FROM downloads ORDER BY sequence DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query downloads: %w", err)
	}
	defer rows.Close()

	var downloads []*models.Download
	for rows.Next() {
		d, err := scanDownload(rows)
		if err != nil {
			return nil, err
		}
		downloads = append(downloads, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return downloads, nil
}

// Count returns the number of stored downloads.
func (r *DownloadRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM downloads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count downloads: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDownload(s scanner) (*models.Download, error) {
	var (
		id        string
		sequence  int
		target    string
		videoID   string
		track     models.Track
		source    string
		path      string
		createdAt time.Time
	)

	err := s.Scan(&id, &sequence, &target, &videoID, &track.Artist, &track.Song, &track.Album, &source, &path, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan download: %w", err)
	}
	track.Source = models.Source(source)

	return models.RestoreDownload(id, sequence, target, videoID, path, track, createdAt), nil
}
