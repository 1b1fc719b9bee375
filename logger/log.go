package logger

import (
	"context"
	"log"

	"cloud.google.com/go/compute/metadata"
	"cloud.google.com/go/logging"
)

const logName = "texter"

// New returns a standard logger writing to Cloud Logging for the given
// project.
func New(ctx context.Context, projectID string) *log.Logger {
	client, err := logging.NewClient(ctx, projectID)
	if err != nil {
		log.Fatalf("failed to create logging client: %v", err)
	}
	return client.Logger(logName).StandardLogger(logging.Info)
}

// FromContext returns a standard logger backed by Cloud Logging. Only usable
// on GCP, where the project ID is discoverable from the metadata server.
func FromContext(ctx context.Context) *log.Logger {
	projectID, err := metadata.ProjectIDWithContext(ctx)
	if err != nil {
		log.Fatalf("failed to get project ID: %v", err)
	}
	return New(ctx, projectID)
}
