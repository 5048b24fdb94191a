package domain

import "time"

// SourceType tells how a video reached the service.
type SourceType string

const (
	SourceUpload SourceType = "upload"
	SourceURL    SourceType = "url"
)

// Source describes where a video came from. Value is the uploaded filename or the URL and,
// together with Type, forms the dedup key.
type Source struct {
	Type  SourceType
	Value string
}

// Key returns the dedup key for the source.
func (s Source) Key() string {
	return string(s.Type) + ":" + s.Value
}

// Video is immutable after registration.
type Video struct {
	ID              string
	Source          Source
	DurationSeconds float64
	CreatedAt       time.Time
}

// Segment is one contiguous time slice of a video. Indices are dense from 0.
type Segment struct {
	ID           string
	VideoID      string
	Index        int
	StartSeconds float64
	EndSeconds   float64
	TopicTitle   string
	ShortSummary string
	Keywords     []string
}

// QuestionType enumerates the fixed question templates.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
)

// Question is a single quiz item. Accepted is never exposed to clients.
type Question struct {
	ID       string
	Type     QuestionType
	Prompt   string
	Options  []string // nil for short answers
	Accepted []string
}

// Quiz belongs to exactly one segment.
type Quiz struct {
	SegmentID string
	Questions []Question
}

// VideoSummary is returned by registration.
type VideoSummary struct {
	ID              string  `json:"video_id"`
	DurationSeconds float64 `json:"duration_seconds"`
	SegmentsCount   int     `json:"segments_count"`
}

// VideoDetail is the read model for a single registered video.
type VideoDetail struct {
	ID              string    `json:"id"`
	SourceType      string    `json:"source_type"`
	DurationSeconds float64   `json:"duration_seconds"`
	SegmentsCount   int       `json:"segments_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// SegmentView is a segment as seen by one client.
type SegmentView struct {
	ID           string   `json:"id"`
	VideoID      string   `json:"video_id"`
	Index        int      `json:"index"`
	StartTime    string   `json:"start_time"`
	EndTime      string   `json:"end_time"`
	TopicTitle   string   `json:"topic_title"`
	ShortSummary string   `json:"short_summary"`
	Keywords     []string `json:"keywords"`
	IsLocked     bool     `json:"is_locked"`
}

// QuestionView hides accepted answers.
type QuestionView struct {
	ID       string       `json:"id"`
	Type     QuestionType `json:"type"`
	Question string       `json:"question"`
	Options  []string     `json:"options"`
}

// QuizView is the client-facing quiz.
type QuizView struct {
	SegmentID string         `json:"segment_id"`
	Questions []QuestionView `json:"questions"`
}

// AnswerResult summarizes one submission.
type AnswerResult struct {
	Correct        bool     `json:"correct"`
	SegmentID      string   `json:"segment_id"`
	RetryFrom      *string  `json:"retry_from"`
	PassedSegments []string `json:"passed_segments"`
	NextSegmentID  *string  `json:"next_segment_id"`
}

// ProgressView reports how far a client got on a video.
type ProgressView struct {
	VideoID            string   `json:"video_id"`
	ClientID           string   `json:"client_id"`
	PassedSegments     []string `json:"passed_segments"`
	HighestUnlockedIdx int      `json:"highest_unlocked_index"`
	Completed          bool     `json:"completed"`
}
