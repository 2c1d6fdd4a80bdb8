package faults

import (
	"fmt"
	"log/slog"
	"time"
)

// LogError emits one structured record describing the failure. It only logs
// and never panics, even on nil inputs.
func LogError(logger *slog.Logger, err error, context map[string]any) {
	if logger == nil {
		return
	}

	attrs := []any{
		"kind", string(Classify(err)),
		"timestamp", time.Now().UTC().Format(time.RFC3339),
	}
	if err != nil {
		attrs = append(attrs,
			"message", err.Error(),
			"error_type", fmt.Sprintf("%T", err),
		)
	}
	for k, v := range context {
		attrs = append(attrs, k, v)
	}

	logger.Error("pipeline error", attrs...)
}
