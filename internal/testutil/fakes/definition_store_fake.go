package fakes

import (
	"context"
	"sort"
	"sync"

	"github.com/pushmill/automation-engine/internal/models"
	"github.com/pushmill/automation-engine/internal/storage"
)

// FakeDefinitionStore is an in-memory implementation of the engine's
// DefinitionStore interface.
type FakeDefinitionStore struct {
	mu          sync.Mutex
	automations map[string]models.Automation
	Skipped     []string
	ListErr     error
	Deleted     []string
}

func NewFakeDefinitionStore() *FakeDefinitionStore {
	return &FakeDefinitionStore{
		automations: make(map[string]models.Automation),
	}
}

// Put seeds or replaces a definition.
func (f *FakeDefinitionStore) Put(a models.Automation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.automations[a.ID] = a
}

func (f *FakeDefinitionStore) GetAutomation(_ context.Context, automationID string) (*models.Automation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.automations[automationID]
	if !ok {
		return nil, storage.ErrAutomationNotFound
	}
	return &a, nil
}

func (f *FakeDefinitionStore) ListAutomations(_ context.Context) ([]models.Automation, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, nil, f.ListErr
	}
	list := make([]models.Automation, 0, len(f.automations))
	for _, a := range f.automations {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, f.Skipped, nil
}

func (f *FakeDefinitionStore) UpdateAutomationStatus(_ context.Context, automationID string, status models.AutomationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.automations[automationID]
	if !ok {
		return storage.ErrAutomationNotFound
	}
	a.Status = status
	a.IsActive = status == models.AutomationStatusActive || status == models.AutomationStatusScheduled
	f.automations[automationID] = a
	return nil
}

func (f *FakeDefinitionStore) DeleteAutomation(_ context.Context, automationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.automations[automationID]; !ok {
		return storage.ErrAutomationNotFound
	}
	delete(f.automations, automationID)
	f.Deleted = append(f.Deleted, automationID)
	return nil
}

// Has reports whether a definition is still present.
func (f *FakeDefinitionStore) Has(automationID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.automations[automationID]
	return ok
}
