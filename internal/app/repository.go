package app

import (
	"context"

	"github.com/bembido/video-to-quiz/internal/domain"
)

// CatalogRepository owns videos, segments and quizzes. RegisterVideo must be atomic per
// dedup key: concurrent registrations of one source yield one video.
type CatalogRepository interface {
	RegisterVideo(ctx context.Context, source domain.Source, durationSeconds float64) (domain.Video, int, bool, error)
	Video(ctx context.Context, id string) (domain.Video, error)
	Segment(ctx context.Context, id string) (domain.Segment, error)
	Quiz(ctx context.Context, segmentID string) (domain.Quiz, error)
	// SegmentsForVideo returns segments sorted by index.
	SegmentsForVideo(ctx context.Context, videoID string) ([]domain.Segment, error)
}

// ProgressLedger records which segments a client passed on a video. Entries only grow.
type ProgressLedger interface {
	Passed(ctx context.Context, clientID, videoID string) (map[string]struct{}, error)
	MarkPassed(ctx context.Context, clientID, videoID, segmentID string) error
}

// Recorder receives business events for metrics.
type Recorder interface {
	VideoRegistered(created bool)
	AnswerSubmitted(outcome string)
}

// Submission outcomes reported to the Recorder.
const (
	OutcomePassed = "passed"
	OutcomeFailed = "failed"
	OutcomeLocked = "locked"
)

type nopRecorder struct{}

func (nopRecorder) VideoRegistered(bool)   {}
func (nopRecorder) AnswerSubmitted(string) {}
