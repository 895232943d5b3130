package main

import (
	"context"
	"log"
	"time"

	_ "github.com/pushmill/automation-engine/docs" // Import generated docs
	"github.com/pushmill/automation-engine/internal/api"
)

// @title Automation Engine API
// @version 1.0
// @description Execution engine for timed push-notification automations. Owns the in-process schedule table, drives each automation through a five-phase timeline (audience generation, test sending, cancellation window, live execution, cleanup), and records progress durably for disconnected observers.
// @description
// @description ## Features
// @description - **Cron Scheduling**: Per-automation timezone-aware cron handles with lead-time offsets and startup restoration
// @description - **Control API**: emergency_stop, cancel, pause, resume and execute_now actions for operators
// @description - **Progress Streaming**: Server-sent events with durable catch-up for late observers
// @description - **Lifecycle Events**: Kafka feed of execution start, phase and completion events

// @contact.name Engineering
// @contact.url https://github.com/pushmill/automation-engine

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:3001
// @BasePath /api/v1
// @schemes http https

func main() {
	srv, err := api.NewServer()
	if err != nil {
		log.Fatalf("engine init: %v", err)
	}

	restoreCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	srv.Engine().RestoreSchedules(restoreCtx)
	cancel()

	if err := srv.Serve(); err != nil {
		log.Fatalf("engine server stopped: %v", err)
	}
}
