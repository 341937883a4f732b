// Package training is the intake surface for operator-contributed training
// material. Items are acknowledged and counted; no processing pipeline exists
// behind it yet.
package training

import (
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/omarlabs/omar/internal/observability"
)

var (
	ErrEmptyNote     = errors.New("training note is empty")
	ErrEmptyFilename = errors.New("uploaded file has no name")
)

type Service struct {
	metrics *observability.Metrics
	log     zerolog.Logger
}

func New(metrics *observability.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		metrics: metrics,
		log:     logger.With().Str("component", "training").Logger(),
	}
}

// AcceptNote acknowledges a free-text training note.
func (s *Service) AcceptNote(note string) error {
	note = strings.TrimSpace(note)
	if note == "" {
		return ErrEmptyNote
	}
	s.log.Info().Int("chars", len(note)).Msg("training note received")
	if s.metrics != nil {
		s.metrics.TrainingItems.WithLabelValues("text").Inc()
	}
	return nil
}

// AcceptUpload acknowledges an uploaded training file (image or audio).
func (s *Service) AcceptUpload(kind, filename string, size int64) error {
	if strings.TrimSpace(filename) == "" {
		return ErrEmptyFilename
	}
	s.log.Info().Str("kind", kind).Str("filename", filename).Int64("bytes", size).Msg("training upload received")
	if s.metrics != nil {
		s.metrics.TrainingItems.WithLabelValues(kind).Inc()
	}
	return nil
}
