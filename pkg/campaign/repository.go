package campaign

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a repository holds no record
	// for the requested id.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when creating a named entity
	// that is already stored.
	ErrAlreadyExists = errors.New("already exists")
)

// Repository stores campaign configurations.
type Repository interface {
	// FindByID returns the campaign or an error wrapping
	// ErrNotFound.
	FindByID(ctx context.Context, id int64) (Campaign, error)

	// FindByName returns every campaign titled name.
	FindByName(ctx context.Context, name string) ([]Campaign, error)

	// CreateOrUpdate stores c. A zero id assigns a new one; the
	// stored value is returned.
	CreateOrUpdate(ctx context.Context, c Campaign) (Campaign, error)

	// RemoveByID deletes the campaign and reports whether it
	// existed.
	RemoveByID(ctx context.Context, id int64) (bool, error)

	FindCampaignsByScenarioID(
		ctx context.Context,
		scenarioID string,
	) ([]Campaign, error)

	FindCampaignsByEnvironment(
		ctx context.Context,
		environment string,
	) ([]Campaign, error)
}

// ExecutionRepository reads campaign executions back.
type ExecutionRepository interface {
	// GetCampaignExecutionByID returns the raw execution, retries
	// included, or an error wrapping ErrNotFound.
	GetCampaignExecutionByID(
		ctx context.Context,
		executionID int64,
	) (CampaignExecution, error)

	// GetExecutionHistory returns every past run of a campaign
	// in the store's own order.
	GetExecutionHistory(
		ctx context.Context,
		campaignID int64,
	) ([]CampaignExecution, error)
}

// ExecutionStore is an ExecutionRepository that can also persist
// executions while they run.
type ExecutionStore interface {
	ExecutionRepository

	// SaveCampaignExecution stores exec and returns it with its
	// execution id set. A zero id assigns a new one; any other
	// id replaces the stored execution.
	SaveCampaignExecution(
		ctx context.Context,
		exec CampaignExecution,
	) (CampaignExecution, error)
}

// RenameEnvironmentHandler is notified when an environment is
// renamed so that everything bound to it can follow.
type RenameEnvironmentHandler interface {
	RenameEnvironment(ctx context.Context, oldName, newName string) error
}
