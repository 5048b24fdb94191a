package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the umbrella for unknown video, segment or quiz ids.
	ErrNotFound = errors.New("not found")
	// ErrVideoNotFound is returned when a video id is not registered.
	ErrVideoNotFound = fmt.Errorf("video %w", ErrNotFound)
	// ErrSegmentNotFound is returned when a segment id is not registered.
	ErrSegmentNotFound = fmt.Errorf("segment %w", ErrNotFound)
	// ErrQuizNotFound indicates the quiz for a segment could not be loaded.
	ErrQuizNotFound = fmt.Errorf("quiz %w", ErrNotFound)
	// ErrSegmentLocked is returned when a client reaches past its unlocked range.
	ErrSegmentLocked = errors.New("segment is locked")
	// ErrClientRequired is returned when a progress-mutating call has no client id.
	ErrClientRequired = errors.New("client_id is required")
	// ErrInvalidTimestamp indicates malformed HH:MM:SS text.
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	// ErrInvalidDuration is returned for durations that are not finite or exceed the limit.
	ErrInvalidDuration = errors.New("invalid duration")
	// ErrSourceRequired is returned when a registration names neither a file nor a URL.
	ErrSourceRequired = errors.New("provide file or video_url")
)
