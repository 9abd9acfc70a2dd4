package inference

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// Probe statuses.
const (
	ProbeSuccess = "success"
	ProbeWarning = "warning"
	ProbeError   = "error"
)

// ProbeResult describes connectivity to the inference service and whether the
// configured model is available there.
type ProbeResult struct {
	Status          string   `json:"status"`
	Message         string   `json:"message"`
	Host            string   `json:"host,omitempty"`
	AvailableModels []string `json:"available_models,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// Probe checks that the service answers and that the configured model is pulled.
func (c *Client) Probe(ctx context.Context) ProbeResult {
	c.logger.Info("testing inference service connection", zap.String("host", c.host))

	models, err := c.Tags(ctx)
	if err != nil {
		c.logger.Error("inference service probe failed", zap.Error(err))

		var status *StatusError
		if errors.As(err, &status) {
			return ProbeResult{
				Status:  ProbeError,
				Message: fmt.Sprintf("inference service returned status %d", status.Code),
				Host:    c.host,
				Error:   err.Error(),
			}
		}
		if IsUnreachable(err) {
			return ProbeResult{
				Status:  ProbeError,
				Message: fmt.Sprintf("cannot connect to inference service at %s. Is it running?", c.host),
				Host:    c.host,
				Error:   err.Error(),
			}
		}
		return ProbeResult{
			Status:  ProbeError,
			Message: fmt.Sprintf("unexpected error: %v", err),
			Host:    c.host,
			Error:   err.Error(),
		}
	}

	if !slices.Contains(models, c.model) {
		c.logger.Warn("configured model not found", zap.Strings("available", models))
		return ProbeResult{
			Status:          ProbeWarning,
			Message:         fmt.Sprintf("model %q not found, pull it before analysing", c.model),
			Host:            c.host,
			AvailableModels: models,
		}
	}

	c.logger.Info("inference service reachable, model available")
	return ProbeResult{
		Status:          ProbeSuccess,
		Message:         fmt.Sprintf("connected, model %q available", c.model),
		Host:            c.host,
		AvailableModels: models,
	}
}
