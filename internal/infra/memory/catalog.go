package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/bembido/video-to-quiz/internal/domain"
	"github.com/bembido/video-to-quiz/internal/quiz"
	"github.com/bembido/video-to-quiz/internal/segmentation"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultDurationSeconds is used when a registration carries no usable duration.
	DefaultDurationSeconds = 600.0
	// DefaultMaxDurationSeconds caps registrations unless configured otherwise.
	DefaultMaxDurationSeconds = 24 * 3600.0
)

// Catalog is the in-process store of videos, segments and quizzes.
type Catalog struct {
	targetSeconds   float64
	defaultDuration float64
	maxDuration     float64
	clock           func() time.Time
	sf              singleflight.Group

	mu       sync.RWMutex
	videos   map[string]domain.Video
	segments map[string]domain.Segment
	quizzes  map[string]domain.Quiz
	byVideo  map[string][]string // segment ids ordered by index
	bySource map[string]string   // dedup key -> video id
}

type registration struct {
	video domain.Video
	count int
}

// NewCatalog creates an empty catalog. Non-positive or NaN arguments fall back to the defaults.
func NewCatalog(targetSeconds, defaultDuration, maxDuration float64) *Catalog {
	if !(targetSeconds > 0) {
		targetSeconds = segmentation.DefaultTargetSeconds
	}
	if !(defaultDuration > 0) || math.IsInf(defaultDuration, 0) {
		defaultDuration = DefaultDurationSeconds
	}
	if !(maxDuration > 0) {
		maxDuration = DefaultMaxDurationSeconds
	}
	return &Catalog{
		targetSeconds:   targetSeconds,
		defaultDuration: defaultDuration,
		maxDuration:     maxDuration,
		clock:           time.Now,
		videos:          make(map[string]domain.Video),
		segments:        make(map[string]domain.Segment),
		quizzes:         make(map[string]domain.Quiz),
		byVideo:         make(map[string][]string),
		bySource:        make(map[string]string),
	}
}

// RegisterVideo returns the existing video for source, or segments the new video, builds a
// quiz per segment and stores everything in one step. Missing, non-positive or non-finite
// durations fall back to the default; durations above the maximum are rejected.
func (c *Catalog) RegisterVideo(_ context.Context, source domain.Source, durationSeconds float64) (domain.Video, int, bool, error) {
	key := source.Key()
	if reg, ok := c.lookup(key); ok {
		return reg.video, reg.count, false, nil
	}

	if durationSeconds <= 0 || math.IsNaN(durationSeconds) || math.IsInf(durationSeconds, 0) {
		durationSeconds = c.defaultDuration
	}
	if durationSeconds > c.maxDuration {
		return domain.Video{}, 0, false, fmt.Errorf("%w: %v exceeds %v seconds", domain.ErrInvalidDuration, durationSeconds, c.maxDuration)
	}

	created := false
	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check in case a registration finished between lookup and Do.
		if reg, ok := c.lookup(key); ok {
			return reg, nil
		}

		video := domain.Video{
			ID:              uuid.NewString(),
			Source:          source,
			DurationSeconds: durationSeconds,
			CreatedAt:       c.clock().UTC(),
		}
		segments := segmentation.Split(video.ID, durationSeconds, c.targetSeconds)
		quizzes := make([]domain.Quiz, 0, len(segments))
		for _, seg := range segments {
			quizzes = append(quizzes, quiz.Generate(seg, quiz.SeedFromID(seg.ID)))
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		ids := make([]string, 0, len(segments))
		for i, seg := range segments {
			c.segments[seg.ID] = seg
			c.quizzes[seg.ID] = quizzes[i]
			ids = append(ids, seg.ID)
		}
		c.videos[video.ID] = video
		c.byVideo[video.ID] = ids
		c.bySource[key] = video.ID
		created = true
		return registration{video: video, count: len(segments)}, nil
	})
	if err != nil {
		return domain.Video{}, 0, false, err
	}
	reg := result.(registration)
	return reg.video, reg.count, created, nil
}

func (c *Catalog) lookup(key string) (registration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.bySource[key]
	if !ok {
		return registration{}, false
	}
	return registration{video: c.videos[id], count: len(c.byVideo[id])}, true
}

func (c *Catalog) Video(_ context.Context, id string) (domain.Video, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	video, ok := c.videos[id]
	if !ok {
		return domain.Video{}, domain.ErrVideoNotFound
	}
	return video, nil
}

func (c *Catalog) Segment(_ context.Context, id string) (domain.Segment, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seg, ok := c.segments[id]
	if !ok {
		return domain.Segment{}, domain.ErrSegmentNotFound
	}
	return seg, nil
}

func (c *Catalog) Quiz(_ context.Context, segmentID string) (domain.Quiz, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.quizzes[segmentID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return q, nil
}

func (c *Catalog) SegmentsForVideo(_ context.Context, videoID string) ([]domain.Segment, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids, ok := c.byVideo[videoID]
	if !ok {
		return nil, domain.ErrVideoNotFound
	}
	segments := make([]domain.Segment, 0, len(ids))
	for _, id := range ids {
		segments = append(segments, c.segments[id])
	}
	sort.Slice(segments, func(i, j int) bool { return segments[i].Index < segments[j].Index })
	return segments, nil
}
