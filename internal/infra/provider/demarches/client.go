// Package demarches implements the Démarches Simplifiées bank information providers.
package demarches

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"provider-sync-service/internal/infra/provider"
)

// Client reads applications of Démarches Simplifiées procedures.
type Client struct {
	caller *provider.Caller
	logger *zap.Logger
}

// NewClient creates a new Démarches Simplifiées client.
func NewClient(cfg provider.ClientConfig, logger *zap.Logger) *Client {
	return &Client{
		caller: provider.NewCaller("demarches_simplifiees", cfg, logger),
		logger: logger,
	}
}

// ApplicationsPage fetches one page (1-based) of a procedure's applications.
func (c *Client) ApplicationsPage(ctx context.Context, procedureID string, page int) (*ListResponse, error) {
	var result ListResponse
	err := c.caller.Get(ctx, "/procedures/"+procedureID+"/dossiers", map[string]string{
		"page":               strconv.Itoa(page),
		"resultats_par_page": strconv.Itoa(PageSize),
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("listing applications of procedure %s page %d: %w", procedureID, page, err)
	}

	return &result, nil
}

// Application fetches one application of a procedure.
func (c *Client) Application(ctx context.Context, procedureID string, id int64) (*Application, error) {
	var result DetailResponse
	path := "/procedures/" + procedureID + "/dossiers/" + strconv.FormatInt(id, 10)
	if err := c.caller.Get(ctx, path, nil, &result); err != nil {
		return nil, fmt.Errorf("fetching application %d: %w", id, err)
	}

	return &result.Dossier, nil
}
