// Package audit produces immutable, timestamped records of
// security-relevant events. Records are append-only: there is no update
// or delete path.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/threelizards/safe-variables/internal/logging"
)

// Actions emitted by the core services.
const (
	ActionRegisterSuccess  = "REGISTER_SUCCESS"
	ActionRegisterFailed   = "REGISTER_FAILED"
	ActionLoginSuccess     = "LOGIN_SUCCESS"
	ActionLoginFailed      = "LOGIN_FAILED"
	ActionLoginRateLimited = "LOGIN_RATE_LIMITED"
	ActionLogout           = "LOGOUT"
	ActionProfileUpdated   = "PROFILE_UPDATED"
	ActionSecretRevealed   = "SECRET_REVEALED"
	ActionProjectDeleted   = "PROJECT_DELETED"
	ActionVariableDeleted  = "VARIABLE_DELETED"
)

// Record is a single audit event. Actor is empty when the event has no
// authenticated subject, e.g. a failed login.
type Record struct {
	ID         string
	Actor      string
	Action     string
	Resource   string
	ResourceID string
	IP         string
	UserAgent  string
	Success    bool
	Details    map[string]any
	Timestamp  time.Time
}

// Recorder writes audit records as structured log lines. The underlying
// logger is safe for concurrent use, so Write may be called from any
// request goroutine.
type Recorder struct {
	logger logging.Logger
	now    func() time.Time
}

func NewRecorder(logger logging.Logger) *Recorder {
	return &Recorder{logger: logger, now: time.Now}
}

// Write assigns the record an id and capture timestamp and emits it.
func (r *Recorder) Write(ctx context.Context, rec Record) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = r.now().UTC()
	}

	args := []any{
		"audit_id", rec.ID,
		"action", rec.Action,
		"resource", rec.Resource,
		"success", rec.Success,
		"ip", rec.IP,
		"user_agent", rec.UserAgent,
		"timestamp", rec.Timestamp,
	}
	if rec.Actor != "" {
		args = append(args, "actor", rec.Actor)
	}
	if rec.ResourceID != "" {
		args = append(args, "resource_id", rec.ResourceID)
	}
	for k, v := range rec.Details {
		args = append(args, "detail_"+k, v)
	}

	r.logger.Info(ctx, "audit", args...)
}
