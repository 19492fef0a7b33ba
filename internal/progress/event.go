package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the milestone an Event represents.
type Stage string

// Supported progress stages.
const (
	StageRunStart   Stage = "RUN_START"
	StageRunDone    Stage = "RUN_DONE"
	StageYearStart  Stage = "YEAR_START"
	StageYearDone   Stage = "YEAR_DONE"
	StageYearError  Stage = "YEAR_ERROR"
	StageMovieDone  Stage = "MOVIE_DONE"
	StageMovieError Stage = "MOVIE_ERROR"
)

// Event captures a single crawl milestone.
type Event struct {
	// RunID identifies one pipeline invocation.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS    time.Time
	Stage Stage
	// Year is the release year being crawled; zero for run-level stages.
	Year  int
	Title string
	URL   string
	// Bytes is the size of the fetched detail page.
	Bytes int64
	// Count carries the listed movie count on YEAR_START and the record
	// count on YEAR_DONE and RUN_DONE.
	Count int
	// Failures carries the detail failure count on YEAR_DONE and RUN_DONE.
	Failures int
	Dur      time.Duration
	// Note holds low-volume context such as error text.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone:
	case StageYearStart, StageYearDone, StageYearError:
		if e.Year == 0 {
			return fmt.Errorf("%s requires year", e.Stage)
		}
	case StageMovieDone, StageMovieError:
		if e.Year == 0 || e.URL == "" {
			return fmt.Errorf("%s requires year and url", e.Stage)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
