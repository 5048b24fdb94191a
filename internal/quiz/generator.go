// Package quiz builds the fixed three-question quiz for a segment and scores answers.
package quiz

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/bembido/video-to-quiz/internal/domain"
	"github.com/bembido/video-to-quiz/internal/timestamp"
	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// distractors are shown next to the real topic title in the multiple choice question.
var distractors = []string{"Introduction", "Implementation details", "Conclusion"}

// SeedFromID derives a shuffle seed from a segment id. Equal ids give equal seeds.
func SeedFromID(id string) int64 {
	return int64(xxhash.Sum64String(id))
}

// Generate builds the quiz for segment. Option order depends only on seed; question ids
// are fresh on every call.
func Generate(segment domain.Segment, seed int64) domain.Quiz {
	rng := rand.New(rand.NewSource(seed))

	options := append([]string{segment.TopicTitle}, distractors...)
	rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})

	keywords := make([]string, 0, len(segment.Keywords))
	for _, k := range segment.Keywords {
		keywords = append(keywords, strings.ToLower(k))
	}

	return domain.Quiz{
		SegmentID: segment.ID,
		Questions: []domain.Question{
			{
				ID:       uuid.NewString(),
				Type:     domain.MultipleChoice,
				Prompt:   "Which topic label matches this segment?",
				Options:  options,
				Accepted: []string{segment.TopicTitle},
			},
			{
				ID:       uuid.NewString(),
				Type:     domain.TrueFalse,
				Prompt:   fmt.Sprintf("This segment starts at %s.", timestamp.Format(segment.StartSeconds)),
				Options:  []string{"true", "false"},
				Accepted: []string{"true"},
			},
			{
				ID:       uuid.NewString(),
				Type:     domain.ShortAnswer,
				Prompt:   "Provide one keyword from the segment summary.",
				Accepted: keywords,
			},
		},
	}
}
