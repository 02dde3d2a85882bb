package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"digital.vasic.campaigns/pkg/campaign"
)

const campaignColumns = `id, title, description, environment, parallel_run,
	retry_auto, external_dataset_id, scenarios, tags, execution_parameters`

const (
	selectCampaignByID = `SELECT ` + campaignColumns + `
	FROM campaigns WHERE id = $1`

	selectCampaignsByTitle = `SELECT ` + campaignColumns + `
	FROM campaigns WHERE title = $1 ORDER BY id`

	selectCampaignsByEnvironment = `SELECT ` + campaignColumns + `
	FROM campaigns WHERE environment = $1 ORDER BY id`

	selectCampaignsByScenario = `SELECT ` + campaignColumns + `
	FROM campaigns
	WHERE scenarios @> jsonb_build_array(jsonb_build_object('scenarioId', $1::text))
	ORDER BY id`

	insertCampaign = `INSERT INTO campaigns (
		title, description, environment, parallel_run, retry_auto,
		external_dataset_id, scenarios, tags, execution_parameters
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	RETURNING id`

	upsertCampaign = `INSERT INTO campaigns (
		id, title, description, environment, parallel_run, retry_auto,
		external_dataset_id, scenarios, tags, execution_parameters
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	ON CONFLICT (id) DO UPDATE SET
		title = EXCLUDED.title,
		description = EXCLUDED.description,
		environment = EXCLUDED.environment,
		parallel_run = EXCLUDED.parallel_run,
		retry_auto = EXCLUDED.retry_auto,
		external_dataset_id = EXCLUDED.external_dataset_id,
		scenarios = EXCLUDED.scenarios,
		tags = EXCLUDED.tags,
		execution_parameters = EXCLUDED.execution_parameters`

	deleteCampaign = `DELETE FROM campaigns WHERE id = $1`
)

// CampaignStore is a campaign.Repository over PostgreSQL.
type CampaignStore struct {
	db DB
}

var _ campaign.Repository = (*CampaignStore)(nil)

func NewCampaignStore(db DB) *CampaignStore {
	if db == nil {
		return nil
	}
	return &CampaignStore{db: db}
}

func (s *CampaignStore) FindByID(
	ctx context.Context,
	id int64,
) (campaign.Campaign, error) {
	if s == nil || s.db == nil {
		return campaign.Campaign{}, fmt.Errorf("campaign store not initialized")
	}
	c, err := scanCampaign(s.db.QueryRowContext(ctx, selectCampaignByID, id))
	if err != nil {
		return campaign.Campaign{}, fmt.Errorf("campaign %d: %w", id, handleError(err))
	}
	return c, nil
}

func (s *CampaignStore) FindByName(
	ctx context.Context,
	name string,
) ([]campaign.Campaign, error) {
	return s.list(ctx, selectCampaignsByTitle, name)
}

func (s *CampaignStore) FindCampaignsByScenarioID(
	ctx context.Context,
	scenarioID string,
) ([]campaign.Campaign, error) {
	return s.list(ctx, selectCampaignsByScenario, scenarioID)
}

func (s *CampaignStore) FindCampaignsByEnvironment(
	ctx context.Context,
	environment string,
) ([]campaign.Campaign, error) {
	return s.list(ctx, selectCampaignsByEnvironment, environment)
}

func (s *CampaignStore) CreateOrUpdate(
	ctx context.Context,
	c campaign.Campaign,
) (campaign.Campaign, error) {
	if s == nil || s.db == nil {
		return campaign.Campaign{}, fmt.Errorf("campaign store not initialized")
	}
	args, err := campaignArgs(c)
	if err != nil {
		return campaign.Campaign{}, err
	}

	if c.ID == 0 {
		if err := s.db.QueryRowContext(ctx, insertCampaign, args...).Scan(&c.ID); err != nil {
			return campaign.Campaign{}, fmt.Errorf("insert campaign: %w", handleError(err))
		}
		return c.Clone(), nil
	}

	if _, err := s.db.ExecContext(
		ctx, upsertCampaign, append([]any{c.ID}, args...)...,
	); err != nil {
		return campaign.Campaign{}, fmt.Errorf("upsert campaign %d: %w", c.ID, handleError(err))
	}
	if err := syncSequence(ctx, s.db, "campaigns"); err != nil {
		return campaign.Campaign{}, fmt.Errorf("sync campaign ids: %w", err)
	}
	return c.Clone(), nil
}

func (s *CampaignStore) RemoveByID(
	ctx context.Context,
	id int64,
) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("campaign store not initialized")
	}
	res, err := s.db.ExecContext(ctx, deleteCampaign, id)
	if err != nil {
		return false, fmt.Errorf("delete campaign %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete campaign %d: %w", id, err)
	}
	return n > 0, nil
}

func (s *CampaignStore) list(
	ctx context.Context,
	query string,
	arg any,
) ([]campaign.Campaign, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("campaign store not initialized")
	}
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query campaigns: %w", err)
	}
	defer rows.Close()

	out := []campaign.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaigns: %w", err)
	}
	return out, nil
}

// campaignArgs returns every column but id, in insert order.
func campaignArgs(c campaign.Campaign) ([]any, error) {
	scenarios, err := encodeJSON(c.Scenarios, "[]")
	if err != nil {
		return nil, fmt.Errorf("encode scenarios: %w", err)
	}
	tags, err := encodeJSON(c.Tags, "[]")
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	params, err := encodeJSON(c.ExecutionParameters, "{}")
	if err != nil {
		return nil, fmt.Errorf("encode execution parameters: %w", err)
	}
	return []any{
		c.Title,
		c.Description,
		c.Environment,
		c.ParallelRun,
		c.RetryAuto,
		c.ExternalDatasetID,
		scenarios,
		tags,
		params,
	}, nil
}

func scanCampaign(row scanner) (campaign.Campaign, error) {
	var c campaign.Campaign
	var scenarios, tags, params []byte
	if err := row.Scan(
		&c.ID, &c.Title, &c.Description, &c.Environment,
		&c.ParallelRun, &c.RetryAuto, &c.ExternalDatasetID,
		&scenarios, &tags, &params,
	); err != nil {
		return campaign.Campaign{}, err
	}
	if err := decodeCampaignJSON(&c, scenarios, tags, params); err != nil {
		return campaign.Campaign{}, err
	}
	return c, nil
}

func decodeCampaignJSON(c *campaign.Campaign, scenarios, tags, params []byte) error {
	c.Scenarios = []campaign.CampaignScenario{}
	c.Tags = []string{}
	if len(scenarios) > 0 {
		if err := json.Unmarshal(scenarios, &c.Scenarios); err != nil {
			return fmt.Errorf("decode scenarios: %w", err)
		}
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &c.Tags); err != nil {
			return fmt.Errorf("decode tags: %w", err)
		}
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &c.ExecutionParameters); err != nil {
			return fmt.Errorf("decode execution parameters: %w", err)
		}
	}
	if len(c.ExecutionParameters) == 0 {
		c.ExecutionParameters = nil
	}
	return nil
}
