// Whole-file overwrite guardrails.

package edit

import (
	"context"
	"fmt"
	"strings"
)

// CheckOverwrite refuses overwrites that would blank a non-trivial file or
// delete the majority of its content, steering the caller toward the
// narrower replace and region tools. Thresholds come from config.
func (e *Engine) CheckOverwrite(existing, proposed string) error {
	if len(existing) < e.cfg.MinGuardedBytes {
		return nil
	}

	if strings.TrimSpace(proposed) == "" {
		return fmt.Errorf("refusing to blank a %d-byte file; use replace_in_file to remove specific content, or delete_file if the file should go away", len(existing))
	}

	shrink := 100 - len(proposed)*100/len(existing)
	if shrink > e.cfg.MaxShrinkPercent {
		return fmt.Errorf("refusing overwrite: new content is %d%% smaller than the current %d bytes; use replace_in_file for targeted changes, or raise EDIT_MAX_SHRINK_PERCENT if this shrink is intended", shrink, len(existing))
	}
	return nil
}

// Overwrite replaces a file's entire content after the guardrail passes.
func (e *Engine) Overwrite(ctx context.Context, ref, newContent string) (string, error) {
	fc, ok := e.ws.Resolve(ref)
	if !ok {
		return "", fmt.Errorf("file not found in working set: %s", ref)
	}
	existing, err := e.ws.Content(ctx, fc.FileID)
	if err != nil {
		return "", err
	}
	if err := e.CheckOverwrite(existing, newContent); err != nil {
		return "", err
	}
	if err := e.ws.ApplyWrite(ctx, fc.FileID, newContent); err != nil {
		return "", err
	}
	return fmt.Sprintf("Wrote %d bytes to %s.", len(newContent), fc.Path), nil
}
