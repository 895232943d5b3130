package fakes

import (
	"context"
	"sync"
	"time"

	"github.com/pushmill/automation-engine/internal/models"
)

// FakeHistoryStore is an in-memory implementation of the engine's
// HistoryStore interface.
type FakeHistoryStore struct {
	mu      sync.Mutex
	nextID  int64
	Records map[int64]*models.HistoryRecord
	Phases  map[int64][]models.Phase

	StartErr error
}

func NewFakeHistoryStore() *FakeHistoryStore {
	return &FakeHistoryStore{
		Records: make(map[int64]*models.HistoryRecord),
		Phases:  make(map[int64][]models.Phase),
	}
}

func (f *FakeHistoryStore) TrackExecutionStart(_ context.Context, automationID, automationName, instanceID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StartErr != nil {
		return 0, f.StartErr
	}
	f.nextID++
	f.Records[f.nextID] = &models.HistoryRecord{
		ID:             f.nextID,
		AutomationID:   automationID,
		AutomationName: automationName,
		InstanceID:     instanceID,
		Status:         models.ExecutionStatusRunning,
		StartedAt:      time.Now().UTC(),
	}
	return f.nextID, nil
}

func (f *FakeHistoryStore) TrackExecutionPhase(_ context.Context, recordID int64, phase models.Phase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.Records[recordID]; ok {
		r.CurrentPhase = phase
	}
	f.Phases[recordID] = append(f.Phases[recordID], phase)
	return nil
}

func (f *FakeHistoryStore) TrackExecutionComplete(_ context.Context, recordID int64, status models.ExecutionStatus, metrics models.ExecutionMetrics, startTime time.Time, errorMessage, errorStack string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.Records[recordID]
	if !ok {
		return nil
	}
	now := time.Now().UTC()
	duration := now.Sub(startTime).Milliseconds()
	r.Status = status
	r.CompletedAt = &now
	r.DurationMs = &duration
	r.AudienceSize = metrics.AudienceSize
	r.PushesSent = metrics.PushesSent
	r.PushesFailed = metrics.PushesFailed
	if errorMessage != "" {
		r.ErrorMessage = &errorMessage
	}
	if errorStack != "" {
		r.ErrorStack = &errorStack
	}
	return nil
}
