package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/priyamehta/docintel/internal/contract"
	"github.com/priyamehta/docintel/internal/llm"
)

// Service writes audit rows for validation failures and provider usage.
// Audit writes never fail the job they describe: errors are logged and
// dropped.
type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

var _ contract.AuditSink = (*Service)(nil)

// ValidationFailure records one failed schema-validation attempt.
func (s *Service) ValidationFailure(ctx context.Context, ev contract.ValidationFailureEvent) {
	details, err := json.Marshal(map[string]any{
		"issues":      ev.Issues,
		"raw_preview": ev.RawPreview,
		"final":       ev.Final,
	})
	if err != nil {
		slog.Error("marshal validation failure details", "job_id", ev.JobID, "error", err)
		return
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO audit_events (job_id, event_type, vertical, stage, details)
		 VALUES ($1, $2, $3, $4, $5)`,
		ev.JobID, "validation_failure", ev.VerticalID, ev.Stage, details,
	)
	if err != nil {
		slog.Error("insert validation failure event", "job_id", ev.JobID, "error", err)
	}
}

// LogUsage records one provider call for cost accounting.
func (s *Service) LogUsage(ctx context.Context, jobID uuid.UUID, rec llm.UsageRecord) {
	_, err := s.db.Exec(ctx,
		`INSERT INTO llm_usage_logs (job_id, provider, model, input_tokens, output_tokens, total_tokens, cost_usd, latency_ms, endpoint)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		jobID, rec.Provider, rec.Model, rec.InputTokens, rec.OutputTokens,
		rec.TotalTokens, rec.CostUSD, rec.LatencyMs, rec.Endpoint,
	)
	if err != nil {
		slog.Error("insert usage log", "job_id", jobID, "provider", rec.Provider, "error", err)
	}
}

type UsageSummary struct {
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	TotalCalls   int     `json:"total_calls"`
	TotalTokens  int     `json:"total_tokens"`
	TotalCostUSD float64 `json:"total_cost_usd"`
}

// GetUsageSummary aggregates provider spend, optionally bounded in time.
func (s *Service) GetUsageSummary(ctx context.Context, startDate, endDate *time.Time) ([]UsageSummary, error) {
	query := `SELECT provider, model, COUNT(*) as total_calls,
			         COALESCE(SUM(total_tokens), 0) as total_tokens,
			         COALESCE(SUM(cost_usd), 0) as total_cost_usd
			  FROM llm_usage_logs WHERE 1=1`
	var args []interface{}
	argIdx := 1

	if startDate != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *startDate)
		argIdx++
	}
	if endDate != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *endDate)
		argIdx++
	}

	query += " GROUP BY provider, model ORDER BY total_cost_usd DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query usage summary: %w", err)
	}
	defer rows.Close()

	var summaries []UsageSummary
	for rows.Next() {
		var us UsageSummary
		if err := rows.Scan(&us.Provider, &us.Model, &us.TotalCalls, &us.TotalTokens, &us.TotalCostUSD); err != nil {
			return nil, fmt.Errorf("scan usage summary: %w", err)
		}
		summaries = append(summaries, us)
	}
	return summaries, rows.Err()
}
