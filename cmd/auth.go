package main

import (
	"context"
	"fmt"

	"github.com/tunebridge/tunebridge/internal/models"
	"github.com/tunebridge/tunebridge/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin connects a provider for the given user.
//
// Without --code it prints the consent URL; with --code it exchanges the
// authorization code and stores the connection.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	provider, err := models.ParseProviderID(cmd.String("provider"))
	if err != nil {
		return err
	}
	userID := cmd.String("user")
	code := cmd.String("code")

	config := r.loadConfig(cmd)
	engine, err := r.openEngine(config)
	if err != nil {
		return err
	}
	defer engine.Close()

	if code == "" {
		authURL, err := engine.manager.AuthURL(provider, shared.GenerateID())
		if err != nil {
			return err
		}
		r.writePlain("Open this URL in your browser to authorize %s:\n\n  %s\n", provider, authURL)
		r.writePlainln("Then re-run with --code <authorization code from the redirect>")
		return nil
	}

	r.logger.Info("exchanging authorization code", "provider", provider, "user", userID)

	conn, err := engine.manager.Connect(ctx, userID, provider, code)
	if err != nil {
		return fmt.Errorf("failed to connect %s: %w", provider, err)
	}

	r.writePlain("✓ Connected %s (token expires %s)\n", provider, conn.ExpiresAt.Format("2006-01-02 15:04"))
	return nil
}

// AuthStatus shows the connection status for every registered provider.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	userID := cmd.String("user")

	config := r.loadConfig(cmd)
	engine, err := r.openEngine(config)
	if err != nil {
		return err
	}
	defer engine.Close()

	statuses, err := engine.manager.Status(userID)
	if err != nil {
		return err
	}

	for _, provider := range engine.registry.IDs() {
		r.writePlain("%-10s %s\n", provider, statuses[provider])
	}
	return nil
}

// AuthDisconnect removes a stored provider connection.
func (r *Runner) AuthDisconnect(ctx context.Context, cmd *cli.Command) error {
	provider, err := models.ParseProviderID(cmd.String("provider"))
	if err != nil {
		return err
	}
	userID := cmd.String("user")

	config := r.loadConfig(cmd)
	engine, err := r.openEngine(config)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.manager.Disconnect(userID, provider); err != nil {
		return fmt.Errorf("failed to disconnect %s: %w", provider, err)
	}

	r.writePlain("✓ Disconnected %s\n", provider)
	return nil
}
