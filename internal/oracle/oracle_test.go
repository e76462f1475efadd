package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/maowise/go-engine/internal/params"
)

func TestRenderDescription(t *testing.T) {
	v := params.Vector{
		VoltageV:          420,
		CurrentDensityDm2: 8.5,
		FrequencyHz:       900,
		DutyCyclePct:      25,
		TimeMin:           30,
		Waveform:          params.WaveformBipolar,
		System:            params.SystemZirconate,
	}
	got := RenderDescription(v)
	for _, want := range []string{"zirconate", "420.0 V", "8.50 A/dm2", "900 Hz", "25.0%", "30.0 min", "bipolar"} {
		if !strings.Contains(got, want) {
			t.Fatalf("description %q missing %q", got, want)
		}
	}
}

func TestRenderDescriptionDefaults(t *testing.T) {
	got := RenderDescription(params.Vector{})
	if !strings.Contains(got, "silicate") {
		t.Fatalf("empty system did not default to silicate: %q", got)
	}
	if !strings.Contains(got, "unipolar") {
		t.Fatalf("empty waveform did not default to unipolar: %q", got)
	}
}

func TestClientPredict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/maowise/v1/predict" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		var req predictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if !strings.Contains(req.Description, "380.0 V") {
			t.Fatalf("description = %q", req.Description)
		}
		json.NewEncoder(w).Encode(map[string]float64{
			"pred_alpha": 0.18, "pred_epsilon": 0.84, "confidence": 0.72,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	pred, err := c.Predict(context.Background(), params.Vector{VoltageV: 380, CurrentDensityDm2: 8, FrequencyHz: 900, DutyCyclePct: 25, TimeMin: 20})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if pred.Alpha != 0.18 || pred.Epsilon != 0.84 || pred.Confidence != 0.72 {
		t.Fatalf("prediction = %+v", pred)
	}
}

func TestClientPredictNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Predict(context.Background(), params.Vector{}); err == nil {
		t.Fatal("expected error on HTTP 503")
	}
}

func TestClientPredictHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewClient(srv.URL).Predict(ctx, params.Vector{}); err == nil {
		t.Fatal("expected cancellation error")
	}
}
