// Package segmentation divides a video timeline into equal-length topic segments.
package segmentation

import (
	"fmt"
	"math"

	"github.com/bembido/video-to-quiz/internal/domain"
	"github.com/google/uuid"
)

// DefaultTargetSeconds is the preferred segment length.
const DefaultTargetSeconds = 180.0

// Split partitions durationSeconds into ceil(duration/target) equal segments. The last
// segment always ends exactly at the effective duration so the timeline is covered without a
// remainder segment. A non-positive or non-finite duration is replaced by the target.
// Callers bound the duration; the segment count grows linearly with it.
func Split(videoID string, durationSeconds, targetSeconds float64) []domain.Segment {
	if !finite(targetSeconds) || targetSeconds <= 0 {
		targetSeconds = DefaultTargetSeconds
	}
	if !finite(durationSeconds) || durationSeconds <= 0 {
		durationSeconds = targetSeconds
	}
	count := int(math.Ceil(durationSeconds / targetSeconds))
	if count < 1 {
		count = 1
	}
	step := durationSeconds / float64(count)

	segments := make([]domain.Segment, 0, count)
	for i := 0; i < count; i++ {
		end := math.Min(durationSeconds, float64(i+1)*step)
		if i == count-1 {
			end = durationSeconds
		}
		title := fmt.Sprintf("Topic %d", i+1)
		segments = append(segments, domain.Segment{
			ID:           uuid.NewString(),
			VideoID:      videoID,
			Index:        i,
			StartSeconds: float64(i) * step,
			EndSeconds:   end,
			TopicTitle:   title,
			ShortSummary: fmt.Sprintf("Auto-generated summary for topic %d based on timeline.", i+1),
			Keywords:     []string{"topic", fmt.Sprintf("segment-%d", i+1), "summary"},
		})
	}
	return segments
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
