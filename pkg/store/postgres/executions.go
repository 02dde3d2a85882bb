package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"digital.vasic.campaigns/pkg/campaign"
	"digital.vasic.campaigns/pkg/execution"
)

const executionColumns = `id, campaign_id, campaign_name, partial_execution,
	environment, user_id, dataset_id, start_date, explicit_status,
	scenario_reports`

const (
	selectExecutionByID = `SELECT ` + executionColumns + `
	FROM campaign_executions WHERE id = $1`

	selectExecutionHistory = `SELECT ` + executionColumns + `
	FROM campaign_executions
	WHERE campaign_id = $1
	ORDER BY start_date DESC NULLS LAST, id DESC`

	insertExecution = `INSERT INTO campaign_executions (
		campaign_id, campaign_name, partial_execution, environment,
		user_id, dataset_id, start_date, explicit_status, scenario_reports
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	RETURNING id`

	upsertExecution = `INSERT INTO campaign_executions (
		id, campaign_id, campaign_name, partial_execution, environment,
		user_id, dataset_id, start_date, explicit_status, scenario_reports
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	ON CONFLICT (id) DO UPDATE SET
		campaign_id = EXCLUDED.campaign_id,
		campaign_name = EXCLUDED.campaign_name,
		partial_execution = EXCLUDED.partial_execution,
		environment = EXCLUDED.environment,
		user_id = EXCLUDED.user_id,
		dataset_id = EXCLUDED.dataset_id,
		start_date = EXCLUDED.start_date,
		explicit_status = EXCLUDED.explicit_status,
		scenario_reports = EXCLUDED.scenario_reports`
)

// ExecutionStore is a campaign.ExecutionStore over PostgreSQL.
type ExecutionStore struct {
	db DB
}

var _ campaign.ExecutionStore = (*ExecutionStore)(nil)

func NewExecutionStore(db DB) *ExecutionStore {
	if db == nil {
		return nil
	}
	return &ExecutionStore{db: db}
}

func (s *ExecutionStore) SaveCampaignExecution(
	ctx context.Context,
	exec campaign.CampaignExecution,
) (campaign.CampaignExecution, error) {
	if s == nil || s.db == nil {
		return campaign.CampaignExecution{}, fmt.Errorf("execution store not initialized")
	}
	exec = exec.Clone()
	args, err := executionArgs(exec)
	if err != nil {
		return campaign.CampaignExecution{}, err
	}

	if exec.ExecutionID == 0 {
		if err := s.db.QueryRowContext(ctx, insertExecution, args...).Scan(
			&exec.ExecutionID,
		); err != nil {
			return campaign.CampaignExecution{}, fmt.Errorf(
				"insert campaign execution: %w", handleError(err),
			)
		}
		return exec, nil
	}

	if _, err := s.db.ExecContext(
		ctx, upsertExecution, append([]any{exec.ExecutionID}, args...)...,
	); err != nil {
		return campaign.CampaignExecution{}, fmt.Errorf(
			"upsert campaign execution %d: %w", exec.ExecutionID, handleError(err),
		)
	}
	if err := syncSequence(ctx, s.db, "campaign_executions"); err != nil {
		return campaign.CampaignExecution{}, fmt.Errorf("sync execution ids: %w", err)
	}
	return exec, nil
}

func (s *ExecutionStore) GetCampaignExecutionByID(
	ctx context.Context,
	executionID int64,
) (campaign.CampaignExecution, error) {
	if s == nil || s.db == nil {
		return campaign.CampaignExecution{}, fmt.Errorf("execution store not initialized")
	}
	exec, err := scanExecution(s.db.QueryRowContext(ctx, selectExecutionByID, executionID))
	if err != nil {
		return campaign.CampaignExecution{}, fmt.Errorf(
			"campaign execution %d: %w", executionID, handleError(err),
		)
	}
	return exec, nil
}

// GetExecutionHistory returns the executions of campaignID, most
// recent first.
func (s *ExecutionStore) GetExecutionHistory(
	ctx context.Context,
	campaignID int64,
) ([]campaign.CampaignExecution, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("execution store not initialized")
	}
	rows, err := s.db.QueryContext(ctx, selectExecutionHistory, campaignID)
	if err != nil {
		return nil, fmt.Errorf("query execution history: %w", err)
	}
	defer rows.Close()

	out := []campaign.CampaignExecution{}
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign execution: %w", err)
		}
		out = append(out, exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate execution history: %w", err)
	}
	return out, nil
}

// executionArgs returns every column but id, in insert order.
func executionArgs(exec campaign.CampaignExecution) ([]any, error) {
	reports, err := encodeJSON(exec.ScenarioExecutionReports, "[]")
	if err != nil {
		return nil, fmt.Errorf("encode scenario reports: %w", err)
	}
	return []any{
		nullInt64(exec.CampaignID),
		exec.CampaignName,
		exec.PartialExecution,
		exec.ExecutionEnvironment,
		exec.UserID,
		exec.DataSetID,
		nullTime(exec.StartDate),
		string(exec.ExplicitStatus),
		reports,
	}, nil
}

func scanExecution(row scanner) (campaign.CampaignExecution, error) {
	var (
		exec       campaign.CampaignExecution
		campaignID sql.NullInt64
		startDate  sql.NullTime
		status     string
		reports    []byte
	)
	if err := row.Scan(
		&exec.ExecutionID, &campaignID, &exec.CampaignName,
		&exec.PartialExecution, &exec.ExecutionEnvironment,
		&exec.UserID, &exec.DataSetID, &startDate, &status, &reports,
	); err != nil {
		return campaign.CampaignExecution{}, err
	}
	if campaignID.Valid {
		id := campaignID.Int64
		exec.CampaignID = &id
	}
	if startDate.Valid {
		exec.StartDate = startDate.Time.UTC()
	}
	exec.ExplicitStatus = execution.Status(status)
	if len(reports) > 0 {
		if err := json.Unmarshal(reports, &exec.ScenarioExecutionReports); err != nil {
			return campaign.CampaignExecution{}, fmt.Errorf("decode scenario reports: %w", err)
		}
	}
	return exec.Clone(), nil
}
