package service

import (
	"context"

	"github.com/vanshika/scansync/internal/config"
	"github.com/vanshika/scansync/internal/domain"
	"github.com/vanshika/scansync/internal/provider"
)

// ValidateInvocation checks the configuration and makes a trial call to the
// provider. Configuration problems are reported before any request is sent.
func ValidateInvocation(ctx context.Context, cfg *config.Config, client provider.Client) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if client == nil {
		return &domain.ConfigurationError{Reason: "provider client is not configured"}
	}
	if _, err := client.GetResources(ctx); err != nil {
		return &domain.AuthenticationError{Err: err}
	}
	return nil
}
