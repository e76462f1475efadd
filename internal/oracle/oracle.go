package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/maowise/go-engine/internal/params"
)

// #region types

// Prediction is the forward model's output for one recipe.
type Prediction struct {
	Alpha      float64 `json:"pred_alpha"`
	Epsilon    float64 `json:"pred_epsilon"`
	Confidence float64 `json:"confidence"`
}

// Predictor turns a parameter vector into predicted thermal-optical
// performance. Implementations may fail; callers decide whether to skip a
// candidate or abort. No retries happen at this level.
type Predictor interface {
	Predict(ctx context.Context, v params.Vector) (Prediction, error)
}

// #endregion types

// #region client

// Client calls the forward-model HTTP service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the model service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: http.DefaultClient}
}

// NewClientWithHTTP creates a Client with an injected *http.Client.
// Used for testing without a real service.
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: baseURL, http: hc}
}

// #endregion client

// #region predict

type predictRequest struct {
	Description string `json:"description"`
}

// Predict renders v into the description text the model service expects and
// requests a prediction. Timeouts come from ctx; errors are wrapped and
// propagated, never swallowed.
func (c *Client) Predict(ctx context.Context, v params.Vector) (Prediction, error) {
	body, err := json.Marshal(predictRequest{Description: RenderDescription(v)})
	if err != nil {
		return Prediction{}, fmt.Errorf("marshal predict request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/maowise/v1/predict", bytes.NewReader(body))
	if err != nil {
		return Prediction{}, fmt.Errorf("build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict rpc: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Prediction{}, fmt.Errorf("predict rpc: status %d", resp.StatusCode)
	}

	var pred Prediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return Prediction{}, fmt.Errorf("decode predict response: %w", err)
	}
	return pred, nil
}

// #endregion predict

// #region render

// RenderDescription flattens a vector into the slot-style text the forward
// model was trained on.
func RenderDescription(v params.Vector) string {
	system := v.System
	if system == "" {
		system = params.SystemSilicate
	}
	waveform := v.Waveform
	if waveform == "" {
		waveform = params.WaveformUnipolar
	}
	return fmt.Sprintf(
		"MAO coating on AZ91 in %s electrolyte; voltage %.1f V; current density %.2f A/dm2; frequency %.0f Hz; duty cycle %.1f%%; time %.1f min; %s pulses.",
		system, v.VoltageV, v.CurrentDensityDm2, v.FrequencyHz, v.DutyCyclePct, v.TimeMin, waveform,
	)
}

// #endregion render
