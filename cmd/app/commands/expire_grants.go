package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/medvault/grants/internal/grants/usecase"
)

// RunExpireGrants retires every grant whose expiry has already passed, in one
// pass. In dry-run mode it only counts the rows the pass would close.
// Supports both text and JSON output formats.
//
// Requirements: Database must be migrated and accessible.
func RunExpireGrants(
	ctx context.Context,
	sweeper usecase.SweeperUseCase,
	grantRepo usecase.GrantRepository,
	logger *slog.Logger,
	out io.Writer,
	dryRun bool,
	format string,
) error {
	now := time.Now().UTC()
	logger.Info("expiring due grants", slog.Bool("dry_run", dryRun))

	var count int64
	if dryRun {
		var err error
		count, err = grantRepo.CountDue(ctx, now)
		if err != nil {
			return fmt.Errorf("failed to count due grants: %w", err)
		}
	} else {
		var err error
		count, err = sweeper.ExpirePass(ctx, now)
		if err != nil {
			return fmt.Errorf("failed to expire due grants: %w", err)
		}
	}

	if format == "json" {
		outputExpireGrantsJSON(out, count, dryRun)
	} else {
		outputExpireGrantsText(out, count, dryRun)
	}

	logger.Info("expiry pass completed",
		slog.Int64("count", count),
		slog.Bool("dry_run", dryRun),
	)
	return nil
}

// outputExpireGrantsText outputs the result in human-readable text format.
func outputExpireGrantsText(out io.Writer, count int64, dryRun bool) {
	if dryRun {
		fmt.Fprintf(out, "Dry-run mode: Would expire %d due grant(s)\n", count)
	} else {
		fmt.Fprintf(out, "Successfully expired %d due grant(s)\n", count)
	}
}

// outputExpireGrantsJSON outputs the result in JSON format for machine consumption.
func outputExpireGrantsJSON(out io.Writer, count int64, dryRun bool) {
	result := map[string]interface{}{
		"count":   count,
		"dry_run": dryRun,
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(out, "failed to marshal JSON: %v\n", err)
		return
	}

	fmt.Fprintln(out, string(jsonBytes))
}
