package tasks

import (
	"fmt"

	"github.com/desertthunder/ydl/internal/models"
)

// ProgressUpdate represents a progress event during a run.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Phase enumerates the pipeline steps.
type Phase int

const (
	Lookup Phase = iota
	Fetch
	Tag
	Record
	Import
)

func (p Phase) String() string {
	switch p {
	case Lookup:
		return "lookup"
	case Fetch:
		return "fetch"
	case Tag:
		return "tag"
	case Record:
		return "record"
	case Import:
		return "import"
	default:
		return ""
	}
}

func lookupUpdate(step, total int, target string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Lookup,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Looking up %s...", step, total, target),
	}
}

func fetchUpdate(step, total int, target string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Fetch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Downloading %s...", step, total, target),
	}
}

func tagUpdate(step, total int, track models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Tag,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Tagging %s - %s (%s)", step, total, track.Artist, track.Song, track.Source),
		Data:    track,
	}
}

func recordUpdate(step, total int, videoID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Record,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Recording %s", step, total, videoID),
	}
}

func importUpdate(paths []string, mode string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Import,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Importing %d path(s) as %s", len(paths), mode),
		Data:    paths,
	}
}
