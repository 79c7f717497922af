package report

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
)

// Archive writes a finished report to the reports bucket and returns its
// GCS URI. Assumes Application Default Credentials are configured. An empty
// bucket name disables archival; callers get "" back and the report is only
// returned inline.
func Archive(ctx context.Context, bucketName, projectID string, text string, generatedAt time.Time) (string, error) {
	if bucketName == "" {
		return "", nil
	}

	objectName := fmt.Sprintf("reports/%s/%s.txt", projectID, generatedAt.Format("2006-01-02T15-04-05"))

	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("Archive: create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	w.ContentType = "text/plain; charset=utf-8"

	if _, err := w.Write([]byte(text)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("Archive: writing object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Archive: finalize upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", bucketName, objectName), nil
}
