// Package results persists job status and per-module research results in the
// key-value store.
package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prevalidate/researchd/internal/db"
	"github.com/prevalidate/researchd/internal/domain"
)

var keyPrefix = domain.KeyPrefix + "job:"

// store is the consumer interface for result persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Exists(ctx context.Context, key string) (bool, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	RPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
}

// JobRecord is the persisted job status row.
type JobRecord struct {
	Status      domain.JobStatus   `json:"status"`
	ErrorSource domain.ErrorSource `json:"error_source,omitempty"`
	Error       string             `json:"error,omitempty"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Repo stores job results keyed by job id. Module results are append-only:
// one JSON blob per module name plus a list of saved module names.
type Repo struct {
	store store
	now   func() time.Time
}

// New creates a results repository.
func New(s store) *Repo {
	return &Repo{store: s, now: time.Now}
}

// SaveModuleResult saves one module's result under the job.
func (r *Repo) SaveModuleResult(ctx context.Context, jobID, module string, result any) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal %s result: %w", module, err)
	}

	key := moduleKey(jobID, module)
	known, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check module %s: %w", module, err)
	}

	if err := r.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("save module %s: %w", module, err)
	}
	if !known {
		if err := r.store.RPush(ctx, modulesKey(jobID), module); err != nil {
			return fmt.Errorf("index module %s: %w", module, err)
		}
	}
	return nil
}

// GetModuleResult returns one module's raw result payload.
func (r *Repo) GetModuleResult(ctx context.Context, jobID, module string) (json.RawMessage, error) {
	data, err := r.store.Get(ctx, moduleKey(jobID, module))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("module %s for job %s: %w", module, jobID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get module %s: %w", module, err)
	}
	return data, nil
}

// ListModules returns the names of all modules saved for the job, in save
// order.
func (r *Repo) ListModules(ctx context.Context, jobID string) ([]string, error) {
	names, err := r.store.LRange(ctx, modulesKey(jobID), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("list modules for job %s: %w", jobID, err)
	}
	return names, nil
}

// UpdateJobStatus writes the job's status row.
func (r *Repo) UpdateJobStatus(
	ctx context.Context, jobID string, status domain.JobStatus, source domain.ErrorSource, errMsg string,
) error {
	fields := map[string]string{
		"status":     string(status),
		"updated_at": r.now().UTC().Format(time.RFC3339),
	}
	if source != domain.SourceNone {
		fields["error_source"] = string(source)
	}
	if errMsg != "" {
		fields["error"] = errMsg
	}

	if err := r.store.HSet(ctx, statusKey(jobID), fields); err != nil {
		return fmt.Errorf("update job %s status: %w", jobID, err)
	}
	return nil
}

// GetJobStatus reads the job's status row.
func (r *Repo) GetJobStatus(ctx context.Context, jobID string) (JobRecord, error) {
	fields, err := r.store.HGetAll(ctx, statusKey(jobID))
	if err != nil {
		return JobRecord{}, fmt.Errorf("get job %s status: %w", jobID, err)
	}
	if len(fields) == 0 {
		return JobRecord{}, fmt.Errorf("job %s: %w", jobID, domain.ErrNotFound)
	}

	rec := JobRecord{
		Status:      domain.JobStatus(fields["status"]),
		ErrorSource: domain.ErrorSource(fields["error_source"]),
		Error:       fields["error"],
	}
	if ts := fields["updated_at"]; ts != "" {
		if t, perr := time.Parse(time.RFC3339, ts); perr == nil {
			rec.UpdatedAt = t
		}
	}
	return rec, nil
}

func statusKey(jobID string) string  { return keyPrefix + jobID + ":status" }
func modulesKey(jobID string) string { return keyPrefix + jobID + ":modules" }
func moduleKey(jobID, module string) string {
	return keyPrefix + jobID + ":module:" + module
}
