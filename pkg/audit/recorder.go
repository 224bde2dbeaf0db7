package audit

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gatehouse-io/gatehouse/pkg/httputil"
	"github.com/gatehouse-io/gatehouse/pkg/observability"
	"github.com/gatehouse-io/gatehouse/pkg/store"
)

// Recorder writes login and operation events. Recording failures are
// logged, never surfaced to the request that triggered them.
type Recorder struct {
	logins  *store.LoginLogStore
	ops     *store.OperationLogStore
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewRecorder creates a recorder. Logger and metrics may be nil.
func NewRecorder(logins *store.LoginLogStore, ops *store.OperationLogStore, logger *observability.Logger, metrics *observability.Metrics) *Recorder {
	return &Recorder{logins: logins, ops: ops, logger: logger, metrics: metrics}
}

// RecordLogin records one authentication attempt. The user is nil when the
// username did not resolve to an account.
func (r *Recorder) RecordLogin(ctx context.Context, req *http.Request, username string, user *store.User, succeeded bool) {
	browser, agentOS := ParseUserAgent(req.UserAgent())
	entry := &store.LoginLog{
		Username: username,
		IP:       httputil.ClientIP(req),
		Agent:    req.UserAgent(),
		Browser:  browser,
		OS:       agentOS,
		Status:   succeeded,
	}
	if user != nil {
		entry.Creator = &user.ID
		entry.DeptBelongID = user.DeptID
		entry.Modifier = user.Username
	}
	if err := r.logins.Create(ctx, entry); err != nil {
		if r.logger != nil {
			r.logger.WithError(err).WithField("username", username).Error("failed to record login")
		}
		return
	}
	r.count("login", succeeded)
}

// RecordOperation records one mutating API request.
func (r *Recorder) RecordOperation(ctx context.Context, entry *store.OperationLog) {
	if err := r.ops.Create(ctx, entry); err != nil {
		if r.logger != nil {
			r.logger.WithError(err).WithField("path", entry.RequestPath).Error("failed to record operation")
		}
		return
	}
	r.count("operation", entry.Status)
}

func (r *Recorder) count(eventType string, ok bool) {
	if r.metrics == nil {
		return
	}
	r.metrics.AuditEventsTotal.WithLabelValues(eventType, strconv.FormatBool(ok)).Inc()
}
