package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/medvault/grants/internal/grants/usecase"
)

// RunRevokeResource revokes every active grant referencing a resource.
// Intended for operators cleaning up after a record was removed from the
// catalog. Supports both text and JSON output formats.
//
// Requirements: Database must be migrated and accessible.
func RunRevokeResource(
	ctx context.Context,
	grantUseCase usecase.GrantUseCase,
	logger *slog.Logger,
	out io.Writer,
	resourceID string,
	format string,
) error {
	id, err := uuid.Parse(resourceID)
	if err != nil {
		return fmt.Errorf("invalid resource id: %w", err)
	}

	logger.Info("revoking grants for resource", slog.String("resource_id", id.String()))

	count, err := grantUseCase.RevokeAllForResource(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to revoke grants for resource: %w", err)
	}

	if format == "json" {
		outputRevokeResourceJSON(out, id, count)
	} else {
		fmt.Fprintf(out, "Successfully revoked %d grant(s) for resource %s\n", count, id)
	}

	logger.Info("resource revocation completed",
		slog.String("resource_id", id.String()),
		slog.Int64("count", count),
	)
	return nil
}

// outputRevokeResourceJSON outputs the result in JSON format for machine consumption.
func outputRevokeResourceJSON(out io.Writer, resourceID uuid.UUID, count int64) {
	result := map[string]interface{}{
		"resource_id": resourceID.String(),
		"count":       count,
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(out, "failed to marshal JSON: %v\n", err)
		return
	}

	fmt.Fprintln(out, string(jsonBytes))
}
