package api

import (
	"context"

	"petsync/internal/queue"
)

// QueueReader abstracts queue persistence interactions needed for API queries.
type QueueReader interface {
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Action, error)
	Stats(ctx context.Context) (map[queue.Status]int, error)
	Get(ctx context.Context, id string) (*queue.Action, error)
}

// QueueService exposes read-only queue operations returning API DTOs.
type QueueService struct {
	store QueueReader
}

// NewQueueService constructs a QueueService around the provided reader.
func NewQueueService(store QueueReader) *QueueService {
	if store == nil {
		return nil
	}
	return &QueueService{store: store}
}

// List returns actions filtered by status, in enqueue order.
func (s *QueueService) List(ctx context.Context, statuses ...queue.Status) ([]Action, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	actions, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromActions(actions), nil
}

// Stats returns queue summary counts keyed by status string.
func (s *QueueService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeQueueStats(stats), nil
}

// Describe fetches a single action.
func (s *QueueService) Describe(ctx context.Context, id string) (*Action, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	action, err := s.store.Get(ctx, id)
	if err != nil || action == nil {
		return nil, err
	}
	dto := FromAction(action)
	return &dto, nil
}
