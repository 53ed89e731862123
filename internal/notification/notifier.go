package notification

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Notifier is the boundary to whatever delivers alerts (email, webhook).
// Delivery failures never fail the mutation that triggered them.
type Notifier interface {
	CaseAllocated(ctx context.Context, caseID, agencyID snowflake.ID)
	SLABreached(ctx context.Context, caseID, agencyID snowflake.ID)
	CaseEscalated(ctx context.Context, caseID snowflake.ID)
}

type logNotifier struct {
	log *zap.Logger
}

// NewLogNotifier logs notifications instead of delivering them. It stands in
// until a real channel is configured.
func NewLogNotifier(log *zap.Logger) Notifier {
	return &logNotifier{log: log.Named("notification")}
}

func (n *logNotifier) CaseAllocated(ctx context.Context, caseID, agencyID snowflake.ID) {
	_ = ctx
	n.log.Info("case allocated",
		zap.String("case_id", caseID.String()),
		zap.String("agency_id", agencyID.String()),
	)
}

func (n *logNotifier) SLABreached(ctx context.Context, caseID, agencyID snowflake.ID) {
	_ = ctx
	n.log.Warn("sla breached",
		zap.String("case_id", caseID.String()),
		zap.String("agency_id", agencyID.String()),
	)
}

func (n *logNotifier) CaseEscalated(ctx context.Context, caseID snowflake.ID) {
	_ = ctx
	n.log.Warn("case escalated",
		zap.String("case_id", caseID.String()),
	)
}

var Module = fx.Module("notification",
	fx.Provide(NewLogNotifier),
)
