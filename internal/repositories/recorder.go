package repositories

import (
	"fmt"

	"github.com/desertthunder/ydl/internal/models"
)

// HistoryRecorder implements tasks.Recorder using DownloadRepository.
type HistoryRecorder struct {
	repo *DownloadRepository
}

// NewHistoryRecorder creates a new HistoryRecorder with the given repository
func NewHistoryRecorder(repo *DownloadRepository) *HistoryRecorder {
	return &HistoryRecorder{repo: repo}
}

// Record stores one completed download.
func (h *HistoryRecorder) Record(target, videoID, path string, track models.Track) error {
	if err := h.repo.Create(models.NewDownload(target, videoID, path, track)); err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}
	return nil
}
