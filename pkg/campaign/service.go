package campaign

import (
	"context"
	"errors"
	"fmt"

	"digital.vasic.campaigns/pkg/logging"
)

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used by the service.
func WithLogger(logger logging.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// Service reads campaign executions for callers and keeps
// campaigns in step with environment renames. Executions it
// returns are always retry-collapsed.
type Service struct {
	campaigns  Repository
	executions ExecutionRepository
	logger     logging.Logger
}

var _ RenameEnvironmentHandler = (*Service)(nil)

// NewService creates a Service over the given repositories.
func NewService(
	campaigns Repository,
	executions ExecutionRepository,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		campaigns:  campaigns,
		executions: executions,
		logger:     logging.NullLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindByExecutionID returns the retry-collapsed execution. A
// missing execution yields an error wrapping ErrNotFound.
func (s *Service) FindByExecutionID(
	ctx context.Context,
	executionID int64,
) (CampaignExecution, error) {
	exec, err := s.executions.GetCampaignExecutionByID(ctx, executionID)
	if err != nil {
		return CampaignExecution{}, fmt.Errorf(
			"failed to load campaign execution %d: %w",
			executionID, err,
		)
	}
	return exec.WithoutRetries(), nil
}

// FindExecutionsByID returns the history of a campaign with each
// run retry-collapsed, in repository order.
func (s *Service) FindExecutionsByID(
	ctx context.Context,
	campaignID int64,
) ([]CampaignExecution, error) {
	history, err := s.executions.GetExecutionHistory(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to load execution history of campaign %d: %w",
			campaignID, err,
		)
	}
	out := make([]CampaignExecution, 0, len(history))
	for _, exec := range history {
		out = append(out, exec.WithoutRetries())
	}
	return out, nil
}

// RenameEnvironmentInCampaigns rebinds every campaign using
// oldName to newName. Campaigns are updated one at a time; a
// failing update does not stop the others and all failures are
// returned joined.
func (s *Service) RenameEnvironmentInCampaigns(
	ctx context.Context,
	oldName, newName string,
) error {
	campaigns, err := s.campaigns.FindCampaignsByEnvironment(ctx, oldName)
	if err != nil {
		return fmt.Errorf(
			"failed to find campaigns bound to %q: %w", oldName, err,
		)
	}

	var errs []error
	updated := 0
	for _, c := range campaigns {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := s.campaigns.CreateOrUpdate(
			ctx, c.WithEnvironment(newName),
		); err != nil {
			s.logger.Error("failed to rename campaign environment",
				logging.CampaignField(c.ID),
				logging.EnvironmentField(newName),
				logging.ErrorField(err),
			)
			errs = append(errs, fmt.Errorf(
				"failed to update campaign %d: %w", c.ID, err,
			))
			continue
		}
		updated++
	}

	s.logger.Info("environment renamed in campaigns",
		logging.StringField("from", oldName),
		logging.StringField("to", newName),
		logging.IntField("updated", updated),
		logging.IntField("failed", len(errs)),
	)
	return errors.Join(errs...)
}

// RenameEnvironment implements RenameEnvironmentHandler.
func (s *Service) RenameEnvironment(
	ctx context.Context,
	oldName, newName string,
) error {
	return s.RenameEnvironmentInCampaigns(ctx, oldName, newName)
}
