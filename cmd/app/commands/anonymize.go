package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	promptshield "github.com/allisson/promptshield"
	apperrors "github.com/allisson/promptshield/internal/errors"
)

// RunAnonymize anonymizes a prompt and writes the safe text and the mapping
// id to out in the requested format.
func RunAnonymize(ctx context.Context, client *promptshield.Client, out io.Writer, prompt string, ttl int, format string) error {
	if format != "text" && format != "json" {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "format must be 'text' or 'json'")
	}

	result, err := client.Anonymize(ctx, prompt, options(ttl))
	if err != nil {
		return err
	}

	if format == "json" {
		output := map[string]any{
			"safePrompt": result.SafePrompt,
			"mappingId":  result.Restore.MappingID(),
		}
		if result.Stats != nil {
			output["stats"] = result.Stats
		}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(output)
	}

	fmt.Fprintf(out, "Safe prompt: %s\n", result.SafePrompt)
	fmt.Fprintf(out, "Mapping id:  %s\n", result.Restore.MappingID())
	if result.Stats != nil {
		fmt.Fprintf(out, "Replaced:    %d (%v)\n", result.Stats.Replaced, result.Stats.Types)
	}
	return nil
}
