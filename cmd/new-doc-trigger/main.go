package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/docminer/internal/gcp"
	"github.com/Lllllllleong/docminer/internal/models"
	"github.com/Lllllllleong/docminer/internal/services"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

const entryPoint = "NewDocTrigger"

var (
	docMinerInstance *services.DocMinerFunction
	once             sync.Once
	initErr          error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Register the CloudEvent function. The framework will handle routing the event here.
	functions.CloudEvent(entryPoint, newDocTrigger)
}

// main starts a local Functions Framework server. On Cloud Functions the platform
// provides its own entry point and only init() runs.
func main() {
	if os.Getenv("FUNCTION_TARGET") == "" {
		os.Setenv("FUNCTION_TARGET", entryPoint)
	}
	port := gcp.GetEnv("PORT", "8080")
	if err := funcframework.Start(port); err != nil {
		slog.Error("Functions Framework exited", "error", err)
		os.Exit(1)
	}
}

// newDocTrigger is the Cloud Function entry point for storage object.finalized events.
func newDocTrigger(ctx context.Context, e cloudevents.Event) error {
	// Clients are created once per instance and shared by concurrent invocations.
	once.Do(func() {
		docMinerInstance, initErr = services.NewDocMiner(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent models.GCSEvent
	if err := e.DataAs(&gcsEvent); err != nil {
		slog.Error("Failed to decode event data", "error", err, "eventId", e.ID(), "data", string(e.Data()))
		return fmt.Errorf("event.DataAs: %w", err)
	}
	slog.Info("Received storage event.", "eventId", e.ID(), "eventType", e.Type(), "gcsObject", gcsEvent.Name)

	// Returning the error marks the invocation as failed so the trigger can redeliver.
	return docMinerInstance.Process(ctx, gcsEvent)
}
