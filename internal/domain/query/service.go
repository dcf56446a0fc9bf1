package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpggio/recordbase/internal/domain/access"
	"github.com/rpggio/recordbase/internal/domain/entry"
)

// Service runs searches over instance records.
type Service struct {
	schemas  entry.SchemaLoader
	searcher Searcher
	groups   access.GroupVisibility
	now      func() time.Time
	logger   *slog.Logger
}

// NewService creates a new search service.
func NewService(schemas entry.SchemaLoader, searcher Searcher, groups access.GroupVisibility, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		schemas:  schemas,
		searcher: searcher,
		groups:   groups,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// WithClock replaces the time source used for policy windows.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Search returns one page of records visible to the actor and matching the request.
func (s *Service) Search(ctx context.Context, req Request) (*Result, error) {
	schema, err := s.schemas.LoadSchema(ctx, req.InstanceID)
	if err != nil {
		return nil, err
	}
	policy := access.NewPolicy(schema.Instance.Settings, s.now(), s.groups)
	plan, err := Build(schema, policy, req)
	if err != nil {
		return nil, err
	}

	total, err := s.searcher.Count(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("counting records: %w", err)
	}
	result := &Result{
		Records:    []entry.Record{},
		TotalCount: total,
		Page:       max(req.Page, 0),
		PageSize:   max(req.PageSize, 0),
	}
	if plan.Where != nil {
		maxCount, err := s.searcher.Count(ctx, plan.Unfiltered())
		if err != nil {
			return nil, fmt.Errorf("counting records: %w", err)
		}
		result.MaxCount = &maxCount
	}
	if total == 0 || (plan.Limit > 0 && plan.Offset >= total) {
		return result, nil
	}

	records, err := s.searcher.Search(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("searching records: %w", err)
	}
	result.Records = records
	s.logger.Debug("search executed",
		"instance_id", req.InstanceID,
		"user_id", req.Actor.UserID,
		"total", total,
		"returned", len(records),
	)
	return result, nil
}
