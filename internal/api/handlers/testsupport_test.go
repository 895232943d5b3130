package handlers

import (
	"context"
	"testing"

	"github.com/pushmill/automation-engine/internal/engine"
	"github.com/pushmill/automation-engine/internal/logging"
	"github.com/pushmill/automation-engine/internal/models"
	"github.com/pushmill/automation-engine/internal/testutil/fakes"
	"github.com/pushmill/automation-engine/pkg/config"
)

// testDeps bundles the fakes behind a handler-test engine.
type testDeps struct {
	definitions *fakes.FakeDefinitionStore
	progress    *fakes.FakeProgressStore
	history     *fakes.FakeHistoryStore
	downstream  *fakes.FakeDownstream
	publisher   *fakes.FakePublisher
	subprocess  *fakes.FakeSubprocessRunner
}

// newTestEngine builds an engine wired to in-memory fakes. The engine's cron
// runner is stopped when the test ends.
func newTestEngine(t *testing.T) (*engine.Engine, *testDeps) {
	t.Helper()

	deps := &testDeps{
		definitions: fakes.NewFakeDefinitionStore(),
		progress:    fakes.NewFakeProgressStore(),
		history:     fakes.NewFakeHistoryStore(),
		downstream:  fakes.NewFakeDownstream(),
		publisher:   &fakes.FakePublisher{},
		subprocess:  &fakes.FakeSubprocessRunner{},
	}

	eng := engine.New(engine.Deps{
		Config:      config.App{Environment: "test", EngineVersion: "v2"},
		Logger:      logging.NewNoOpLogger(),
		Definitions: deps.definitions,
		Progress:    deps.progress,
		History:     deps.history,
		Publisher:   deps.publisher,
		Downstream:  deps.downstream,
		Subprocess:  deps.subprocess,
	})
	t.Cleanup(eng.Shutdown)

	return eng, deps
}

func testContext() context.Context { return context.Background() }

// dailyAutomation returns a minimal valid daily automation definition.
func dailyAutomation(id string) models.Automation {
	return models.Automation{
		ID:       id,
		Name:     "Daily Winback",
		IsActive: true,
		Status:   models.AutomationStatusActive,
		Schedule: models.Schedule{
			Frequency:     models.FrequencyDaily,
			ExecutionTime: "14:30",
		},
		PushSequence: []models.AutomationPush{{Title: "Come back", Body: "We miss you"}},
	}
}
