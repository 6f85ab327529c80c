package sequence

import (
	"context"
	"errors"
	"fmt"
)

// TxRepository exposes transactional operations on document_series.
type TxRepository interface {
	GetSeriesForUpdate(ctx context.Context, code, scope string) (Series, error)
	InsertSeries(ctx context.Context, series Series) error
	SetCounter(ctx context.Context, code, scope string, value int64) error
	SetPrefixes(ctx context.Context, code, scope, prefixA, prefixB string) error
}

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetSeries(ctx context.Context, code, scope string) (Series, error)
}

// Service allocates document numbers.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// AllocateNext reserves and returns the next number for a series. The
// whole read-format-write sequence runs in one serialized transaction;
// on failure the transaction rolls back and the counter keeps its prior
// value, so no number is lost without an error being reported.
func (s *Service) AllocateNext(ctx context.Context, code, scope string) (string, error) {
	if _, err := DefaultSeries(code, scope); err != nil {
		return "", err
	}
	var number string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		series, err := s.loadOrCreate(ctx, tx, code, scope)
		if err != nil {
			return err
		}
		next := series.Counter + 1
		number = FormatNumber(series.PrefixA, series.PrefixB, next)
		return tx.SetCounter(ctx, code, scope, next)
	})
	if err != nil {
		return "", fmt.Errorf("sequence: allocate %s/%s: %w", code, scope, err)
	}
	return number, nil
}

// Preview returns the number AllocateNext would produce, without
// consuming it. Two previews with no allocation in between return the
// same number.
func (s *Service) Preview(ctx context.Context, code, scope string) (string, error) {
	series, err := s.repo.GetSeries(ctx, code, scope)
	if errors.Is(err, ErrSeriesNotFound) {
		series, err = DefaultSeries(code, scope)
	}
	if err != nil {
		return "", err
	}
	return FormatNumber(series.PrefixA, series.PrefixB, series.Counter+1), nil
}

// SetPrefixes updates the prefix pair for a series, creating the row
// with a zero counter when absent.
func (s *Service) SetPrefixes(ctx context.Context, code, prefixA, prefixB, scope string) error {
	if _, err := DefaultSeries(code, scope); err != nil {
		return err
	}
	if !ValidPrefix(prefixA) || !ValidPrefix(prefixB) {
		return ErrInvalidPrefix
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := s.loadOrCreate(ctx, tx, code, scope); err != nil {
			return err
		}
		return tx.SetPrefixes(ctx, code, scope, prefixA, prefixB)
	})
}

// SetCounter overrides the running counter for a series.
func (s *Service) SetCounter(ctx context.Context, code string, value int64, scope string) error {
	if _, err := DefaultSeries(code, scope); err != nil {
		return err
	}
	if value < 0 {
		return ErrNegativeCounter
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := s.loadOrCreate(ctx, tx, code, scope); err != nil {
			return err
		}
		return tx.SetCounter(ctx, code, scope, value)
	})
}

func (s *Service) loadOrCreate(ctx context.Context, tx TxRepository, code, scope string) (Series, error) {
	series, err := tx.GetSeriesForUpdate(ctx, code, scope)
	if errors.Is(err, ErrSeriesNotFound) {
		series, err = DefaultSeries(code, scope)
		if err != nil {
			return Series{}, err
		}
		if err := tx.InsertSeries(ctx, series); err != nil {
			return Series{}, err
		}
		return series, nil
	}
	if err != nil {
		return Series{}, err
	}
	return series, nil
}
