package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/bembido/video-to-quiz/internal/domain"
	"github.com/bembido/video-to-quiz/internal/quiz"
	"github.com/bembido/video-to-quiz/internal/timestamp"
)

// GateService contains the segment gating use cases.
type GateService struct {
	catalog  CatalogRepository
	ledger   ProgressLedger
	recorder Recorder
	locks    *keyLocks
	feeds    *feeds
}

// Option customizes a GateService.
type Option func(*GateService)

// WithRecorder reports registrations and submissions to r.
func WithRecorder(r Recorder) Option {
	return func(s *GateService) {
		if r != nil {
			s.recorder = r
		}
	}
}

func NewGateService(catalog CatalogRepository, ledger ProgressLedger, opts ...Option) *GateService {
	s := &GateService{
		catalog:  catalog,
		ledger:   ledger,
		recorder: nopRecorder{},
		locks:    newKeyLocks(),
		feeds:    newFeeds(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterVideo registers a source or returns the video already registered for it.
// The bool reports whether a new video was created.
func (s *GateService) RegisterVideo(ctx context.Context, source domain.Source, durationSeconds float64) (domain.VideoSummary, bool, error) {
	if strings.TrimSpace(source.Value) == "" {
		return domain.VideoSummary{}, false, domain.ErrSourceRequired
	}
	video, count, created, err := s.catalog.RegisterVideo(ctx, source, durationSeconds)
	if err != nil {
		return domain.VideoSummary{}, false, err
	}
	s.recorder.VideoRegistered(created)
	return domain.VideoSummary{
		ID:              video.ID,
		DurationSeconds: video.DurationSeconds,
		SegmentsCount:   count,
	}, created, nil
}

// Video returns a registered video with its segment count.
func (s *GateService) Video(ctx context.Context, videoID string) (domain.VideoDetail, error) {
	video, err := s.catalog.Video(ctx, videoID)
	if err != nil {
		return domain.VideoDetail{}, err
	}
	segments, err := s.catalog.SegmentsForVideo(ctx, videoID)
	if err != nil {
		return domain.VideoDetail{}, err
	}
	return domain.VideoDetail{
		ID:              video.ID,
		SourceType:      string(video.Source.Type),
		DurationSeconds: video.DurationSeconds,
		SegmentsCount:   len(segments),
		CreatedAt:       video.CreatedAt,
	}, nil
}

// ListSegments returns the video's segments with lock flags for clientID. Without a client
// id nothing is locked.
func (s *GateService) ListSegments(ctx context.Context, videoID, clientID string) ([]domain.SegmentView, error) {
	if _, err := s.catalog.Video(ctx, videoID); err != nil {
		return nil, err
	}
	return s.segmentViews(ctx, videoID, clientID)
}

// GetQuiz returns the quiz of an unlocked segment without its accepted answers.
func (s *GateService) GetQuiz(ctx context.Context, segmentID, clientID string) (domain.QuizView, error) {
	segment, err := s.catalog.Segment(ctx, segmentID)
	if err != nil {
		return domain.QuizView{}, err
	}
	locks, err := s.lockMap(ctx, segment.VideoID, clientID)
	if err != nil {
		return domain.QuizView{}, err
	}
	if locks[segmentID] {
		return domain.QuizView{}, domain.ErrSegmentLocked
	}
	q, err := s.catalog.Quiz(ctx, segmentID)
	if err != nil {
		return domain.QuizView{}, err
	}

	view := domain.QuizView{SegmentID: segmentID, Questions: make([]domain.QuestionView, 0, len(q.Questions))}
	for _, question := range q.Questions {
		view.Questions = append(view.Questions, domain.QuestionView{
			ID:       question.ID,
			Type:     question.Type,
			Question: question.Prompt,
			Options:  copyStrings(question.Options),
		})
	}
	return view, nil
}

// SubmitAnswer scores a full quiz submission. A pass is recorded only when every question
// is answered correctly; the lock check and the pass are serialized per (client, video).
func (s *GateService) SubmitAnswer(ctx context.Context, segmentID, clientID string, answers map[string]string) (domain.AnswerResult, error) {
	segment, err := s.catalog.Segment(ctx, segmentID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	q, err := s.catalog.Quiz(ctx, segmentID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if clientID == "" {
		return domain.AnswerResult{}, domain.ErrClientRequired
	}

	segments, err := s.catalog.SegmentsForVideo(ctx, segment.VideoID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	var nextID *string
	for _, candidate := range segments {
		if candidate.Index == segment.Index+1 {
			id := candidate.ID
			nextID = &id
			break
		}
	}

	unlock := s.locks.lock(progressKey(clientID, segment.VideoID))
	passed, err := s.ledger.Passed(ctx, clientID, segment.VideoID)
	if err != nil {
		unlock()
		return domain.AnswerResult{}, fmt.Errorf("read progress: %w", err)
	}
	if LockMap(segments, passed)[segmentID] {
		unlock()
		s.recorder.AnswerSubmitted(OutcomeLocked)
		return domain.AnswerResult{}, domain.ErrSegmentLocked
	}

	if !quiz.Score(q, answers) {
		unlock()
		s.recorder.AnswerSubmitted(OutcomeFailed)
		retry := timestamp.Format(segment.StartSeconds)
		return domain.AnswerResult{
			Correct:        false,
			SegmentID:      segmentID,
			RetryFrom:      &retry,
			PassedSegments: sortedIDs(passed),
			NextSegmentID:  nextID,
		}, nil
	}

	if err := s.ledger.MarkPassed(ctx, clientID, segment.VideoID, segmentID); err != nil {
		unlock()
		return domain.AnswerResult{}, fmt.Errorf("record pass: %w", err)
	}
	passed[segmentID] = struct{}{}
	// Publish while holding the lock so snapshots reach subscribers in pass order.
	key := progressKey(clientID, segment.VideoID)
	if s.feeds.hasSubscribers(key) {
		s.feeds.publish(key, buildViews(segments, LockMap(segments, passed)))
	}
	unlock()
	s.recorder.AnswerSubmitted(OutcomePassed)

	return domain.AnswerResult{
		Correct:        true,
		SegmentID:      segmentID,
		PassedSegments: sortedIDs(passed),
		NextSegmentID:  nextID,
	}, nil
}

// Progress summarizes how far clientID got on videoID.
func (s *GateService) Progress(ctx context.Context, videoID, clientID string) (domain.ProgressView, error) {
	if _, err := s.catalog.Video(ctx, videoID); err != nil {
		return domain.ProgressView{}, err
	}
	if clientID == "" {
		return domain.ProgressView{}, domain.ErrClientRequired
	}
	segments, err := s.catalog.SegmentsForVideo(ctx, videoID)
	if err != nil {
		return domain.ProgressView{}, err
	}
	passed, err := s.ledger.Passed(ctx, clientID, videoID)
	if err != nil {
		return domain.ProgressView{}, fmt.Errorf("read progress: %w", err)
	}

	allowed := AllowedIndex(segments, passed)
	highest := allowed
	if highest > len(segments)-1 {
		highest = len(segments) - 1
	}
	return domain.ProgressView{
		VideoID:            videoID,
		ClientID:           clientID,
		PassedSegments:     sortedIDs(passed),
		HighestUnlockedIdx: highest,
		Completed:          len(segments) > 0 && allowed >= len(segments),
	}, nil
}

// Subscribe streams segment snapshots for (videoID, clientID). The first value is the
// current state; later values follow every pass. The caller must invoke cancel.
func (s *GateService) Subscribe(ctx context.Context, videoID, clientID string) (<-chan []domain.SegmentView, func(), error) {
	if clientID == "" {
		return nil, nil, domain.ErrClientRequired
	}
	initial, err := s.ListSegments(ctx, videoID, clientID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.feeds.subscribe(progressKey(clientID, videoID), initial)
	return ch, cancel, nil
}

func (s *GateService) lockMap(ctx context.Context, videoID, clientID string) (map[string]bool, error) {
	if clientID == "" {
		return map[string]bool{}, nil
	}
	segments, err := s.catalog.SegmentsForVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	passed, err := s.ledger.Passed(ctx, clientID, videoID)
	if err != nil {
		return nil, fmt.Errorf("read progress: %w", err)
	}
	return LockMap(segments, passed), nil
}

func (s *GateService) segmentViews(ctx context.Context, videoID, clientID string) ([]domain.SegmentView, error) {
	segments, err := s.catalog.SegmentsForVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	locks, err := s.lockMap(ctx, videoID, clientID)
	if err != nil {
		return nil, err
	}
	return buildViews(segments, locks), nil
}

func buildViews(segments []domain.Segment, locks map[string]bool) []domain.SegmentView {
	views := make([]domain.SegmentView, 0, len(segments))
	for _, seg := range segments {
		views = append(views, domain.SegmentView{
			ID:           seg.ID,
			VideoID:      seg.VideoID,
			Index:        seg.Index,
			StartTime:    timestamp.Format(seg.StartSeconds),
			EndTime:      timestamp.Format(seg.EndSeconds),
			TopicTitle:   seg.TopicTitle,
			ShortSummary: seg.ShortSummary,
			Keywords:     copyStrings(seg.Keywords),
			IsLocked:     locks[seg.ID],
		})
	}
	return views
}

// copyStrings keeps views from aliasing catalog slices. nil stays nil.
func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
