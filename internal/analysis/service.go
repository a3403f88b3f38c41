package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Skufu/rxguard/internal/llm"
	"github.com/Skufu/rxguard/internal/metrics"
	"github.com/Skufu/rxguard/internal/store"
)

// ReportStore is the storage the service needs: history reads and report
// writes.
type ReportStore interface {
	MedicineSource
	SaveReport(ctx context.Context, r store.Report) (int64, error)
}

// Generator is satisfied by *Dispatcher.
type Generator interface {
	Dispatch(ctx context.Context, prompt string, images []llm.Image) (RawResult, error)
}

type Service struct {
	store     ReportStore
	generator Generator
	history   *HistoryAggregator
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(st ReportStore, gen Generator, logger zerolog.Logger) *Service {
	return &Service{
		store:     st,
		generator: gen,
		history:   NewHistoryAggregator(st, logger),
		logger:    logger,
		now:       time.Now,
	}
}

// Analyze runs one submission end to end. Report persistence is best
// effort and never turns a successful analysis into an error.
func (s *Service) Analyze(ctx context.Context, req Request) (Result, error) {
	start := s.now()
	res, err := s.analyze(ctx, req)

	outcome := "success"
	switch {
	case errors.Is(err, ErrEmptyRequest):
		outcome = "rejected"
	case err != nil:
		outcome = "failure"
	case req.Mock:
		outcome = "mock"
	}
	metrics.RequestsTotal.WithLabelValues(outcome).Inc()
	if !req.Mock {
		metrics.DurationSeconds.Observe(time.Since(start).Seconds())
	}

	if err != nil {
		return Result{}, err
	}
	s.saveReport(ctx, req.PatientID, res)
	return res, nil
}

func (s *Service) analyze(ctx context.Context, req Request) (Result, error) {
	if len(req.Images) == 0 && strings.TrimSpace(req.UserText) == "" {
		return Result{}, ErrEmptyRequest
	}
	if req.Mock {
		return MockResult(), nil
	}
	if s.generator == nil {
		return Result{}, fmt.Errorf("%w: no AI provider configured", ErrAllModelsFailed)
	}

	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = DefaultLanguage
	}

	prompt := BuildPrompt(PromptInput{
		UserText:   req.UserText,
		ImageCount: len(req.Images),
		Language:   language,
		Conditions: req.Conditions,
		History:    s.history.HistoryFor(ctx, req.PatientID),
	})

	raw, err := s.generator.Dispatch(ctx, prompt, req.Images)
	if err != nil {
		return Result{}, err
	}
	return Normalize(raw), nil
}

func (s *Service) saveReport(ctx context.Context, patientID string, res Result) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" || len(res.MedicinesFound) == 0 || s.store == nil {
		return
	}
	id, err := s.store.SaveReport(ctx, store.Report{
		PatientID:    patientID,
		Medicines:    res.MedicinesFound,
		RiskLevel:    res.RiskLevel,
		AlertMessage: res.AlertMessage,
		Timestamp:    s.now().UTC(),
	})
	if err != nil {
		metrics.ReportSaveErrorsTotal.Inc()
		s.logger.Error().Err(err).Str("patient_id", patientID).Msg("failed to save report")
		return
	}
	s.logger.Info().Int64("report_id", id).Str("patient_id", patientID).Msg("report saved")
}
