package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/campaignhq/automation/pkg/crm"
	"github.com/campaignhq/automation/pkg/crm/file"
	"github.com/campaignhq/automation/pkg/crm/postgresql"
)

// NewCRM selects the contact and list store from the URL scheme.
// The returned close function releases any connection the store holds.
func NewCRM(ctx context.Context, logger *slog.Logger, crmURL string) (crm.Store, func() error, error) {
	switch parseProvider(crmURL) {
	case "postgres", "postgresql":
		store, err := postgresql.Open(ctx, logger, crmURL)
		if err != nil {
			return nil, nil, err
		}

		return store, store.Close, nil
	case "file":
		return file.NewStore(strings.Replace(crmURL, "file://", "", 1)), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported CRM URL %q (supported: file://, postgres://)", crmURL)
	}
}
