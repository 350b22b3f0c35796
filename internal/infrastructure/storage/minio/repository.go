package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/npl-scorer/internal/application/scoring"
	"github.com/turtacn/npl-scorer/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/npl-scorer/pkg/errors"
)

const reportContentType = "application/json"

// ReportInfo describes one archived run report.
type ReportInfo struct {
	Key          string    `json:"key"`
	RunID        string    `json:"run_id"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// ReportArchiver writes run summaries as JSON objects under
// <prefix><run id>.json.
type ReportArchiver struct {
	client *MinIOClient
	prefix string
	logger logging.Logger
}

var _ scoring.ReportArchiver = (*ReportArchiver)(nil)

func NewReportArchiver(client *MinIOClient, log logging.Logger) *ReportArchiver {
	prefix := client.config.ReportPrefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &ReportArchiver{client: client, prefix: prefix, logger: log}
}

func (a *ReportArchiver) objectKey(runID string) string {
	return a.prefix + runID + ".json"
}

// Archive implements scoring.ReportArchiver.
func (a *ReportArchiver) Archive(ctx context.Context, sum *scoring.Summary) (string, error) {
	if sum == nil || sum.RunID == "" {
		return "", errors.New(errors.ErrCodeValidation, "summary with run id required")
	}
	api, err := a.client.API()
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, errors.CodeSerialization, "failed to encode run summary")
	}

	key := a.objectKey(sum.RunID)
	_, err = api.PutObject(ctx, a.client.Bucket(), key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  reportContentType,
		UserMetadata: map[string]string{"run-id": sum.RunID},
	})
	if err != nil {
		a.logger.Error("Failed to archive run report", logging.String("key", key), logging.Err(err))
		return "", errors.Wrap(err, errors.ErrCodeReportArchive, "failed to upload run report")
	}

	loc := "s3://" + a.client.Bucket() + "/" + key
	a.logger.Info("Run report archived", logging.String("location", loc), logging.Int("bytes", len(data)))
	return loc, nil
}

// Exists reports whether a run's report has been archived.
func (a *ReportArchiver) Exists(ctx context.Context, runID string) (bool, error) {
	api, err := a.client.API()
	if err != nil {
		return false, err
	}
	_, err = api.StatObject(ctx, a.client.Bucket(), a.objectKey(runID), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return false, nil
	}
	return false, errors.Wrap(err, errors.ErrCodeReportArchive, "failed to stat run report")
}

// List returns archived reports, newest first, at most limit when limit > 0.
func (a *ReportArchiver) List(ctx context.Context, limit int) ([]ReportInfo, error) {
	api, err := a.client.API()
	if err != nil {
		return nil, err
	}

	var out []ReportInfo
	for obj := range api.ListObjects(ctx, a.client.Bucket(), minio.ListObjectsOptions{Prefix: a.prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeReportArchive, "failed to list run reports")
		}
		if !strings.HasSuffix(obj.Key, ".json") {
			continue
		}
		out = append(out, ReportInfo{
			Key:          obj.Key,
			RunID:        strings.TrimSuffix(path.Base(obj.Key), ".json"),
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].LastModified.After(out[j].LastModified) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
