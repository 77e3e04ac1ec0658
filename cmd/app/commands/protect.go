package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	promptshield "github.com/allisson/promptshield"
	apperrors "github.com/allisson/promptshield/internal/errors"
)

// RunProtect anonymizes a prompt, pipes the safe text to a shell command on
// stdin, and writes the command's output with the original values restored.
func RunProtect(ctx context.Context, client *promptshield.Client, out io.Writer, prompt, command string, ttl int) error {
	if strings.TrimSpace(command) == "" {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "command must not be blank")
	}

	restored, err := client.Protect(ctx, prompt, func(ctx context.Context, safePrompt string) (string, error) {
		cmd := exec.CommandContext(ctx, "sh", "-c", command)
		cmd.Stdin = strings.NewReader(safePrompt)

		var stdout bytes.Buffer
		cmd.Stdout = &stdout
		if err := cmd.Run(); err != nil {
			return "", fmt.Errorf("process command failed: %w", err)
		}
		return stdout.String(), nil
	}, options(ttl))
	if err != nil {
		return err
	}

	fmt.Fprintln(out, restored)
	return nil
}
