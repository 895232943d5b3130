package fakes

import (
	"context"
	"sync"
	"time"

	"github.com/pushmill/automation-engine/internal/models"
	"github.com/pushmill/automation-engine/internal/storage"
)

// FakeProgressStore is an in-memory implementation of the engine's
// ProgressStore interface. Logs are kept in append order.
type FakeProgressStore struct {
	mu      sync.Mutex
	records map[string]*models.ProgressRecord
	logs    map[string][]models.ExecutionLogEntry
	byAuto  map[string][]string // automationID -> executionIDs in start order

	StartErr error
}

func NewFakeProgressStore() *FakeProgressStore {
	return &FakeProgressStore{
		records: make(map[string]*models.ProgressRecord),
		logs:    make(map[string][]models.ExecutionLogEntry),
		byAuto:  make(map[string][]string),
	}
}

func (f *FakeProgressStore) StartExecution(_ context.Context, executionID, automationID, automationName, instanceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StartErr != nil {
		return f.StartErr
	}
	f.records[executionID] = &models.ProgressRecord{
		ExecutionID:    executionID,
		AutomationID:   automationID,
		AutomationName: automationName,
		InstanceID:     instanceID,
		Status:         models.ExecutionStatusRunning,
		StartedAt:      time.Now().UTC(),
	}
	f.byAuto[automationID] = append(f.byAuto[automationID], executionID)
	return nil
}

func (f *FakeProgressStore) UpdateProgress(_ context.Context, executionID string, status models.ExecutionStatus, phase models.Phase, message string, current, total int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[executionID]
	if !ok {
		return storage.ErrExecutionNotFound
	}
	r.Status = status
	r.CurrentPhase = phase
	r.Message = message
	r.ProgressCurrent = current
	r.ProgressTotal = total
	return nil
}

func (f *FakeProgressStore) AppendLog(_ context.Context, executionID, automationID string, level models.LogLevel, phase models.Phase, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs[executionID] = append(f.logs[executionID], models.ExecutionLogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Phase:     phase,
		Message:   message,
	})
	return nil
}

func (f *FakeProgressStore) CompleteExecution(_ context.Context, executionID string, status models.ExecutionStatus, phase models.Phase, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[executionID]
	if !ok {
		return storage.ErrExecutionNotFound
	}
	now := time.Now().UTC()
	r.Status = status
	r.CurrentPhase = phase
	r.Message = message
	r.CompletedAt = &now
	return nil
}

func (f *FakeProgressStore) GetExecution(_ context.Context, executionID string) (*models.ProgressRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[executionID]
	if !ok {
		return nil, storage.ErrExecutionNotFound
	}
	copied := *r
	return &copied, nil
}

func (f *FakeProgressStore) GetLatestExecution(_ context.Context, automationID string) (*models.ProgressRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := f.byAuto[automationID]
	if len(ids) == 0 {
		return nil, storage.ErrExecutionNotFound
	}
	copied := *f.records[ids[len(ids)-1]]
	return &copied, nil
}

func (f *FakeProgressStore) GetLogs(_ context.Context, executionID string) ([]models.ExecutionLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ExecutionLogEntry, len(f.logs[executionID]))
	copy(out, f.logs[executionID])
	return out, nil
}

// Record returns the stored record for assertions, or nil.
func (f *FakeProgressStore) Record(executionID string) *models.ProgressRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[executionID]
	if !ok {
		return nil
	}
	copied := *r
	return &copied
}
