package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/interfaces"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/models"
)

var generatorRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "generator_trigger_requests_total",
	Help: "Outbound journey generation requests by outcome.",
}, []string{"outcome"})

var _ interfaces.GeneratorClient = (*GeneratorClient)(nil)

// GeneratorClient posts journey generation requests to the external workflow engine.
// With no base URL it runs in stub mode and only logs the request.
type GeneratorClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewGeneratorClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *GeneratorClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GeneratorClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("GeneratorClient"),
	}
}

// TriggerJourney sends one request and does not retry; the generator reports
// the outcome through the webhook callbacks.
func (c *GeneratorClient) TriggerJourney(ctx context.Context, trigger models.GenerationTrigger) error {
	log := c.logger.With(zap.String("journeyID", trigger.JourneyID.String()), zap.String("userID", trigger.UserID.String()))
	if c.baseURL == "" {
		generatorRequests.WithLabelValues("stub").Inc()
		log.Warn("Generator URL not configured, skipping trigger", zap.Int("contextSnippets", len(trigger.UserContext)))
		return nil
	}
	if trigger.UserContext == nil {
		trigger.UserContext = []models.ContextSnippet{}
	}

	body, err := json.Marshal(trigger)
	if err != nil {
		return fmt.Errorf("failed to marshal generation trigger: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/journey-create", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		generatorRequests.WithLabelValues("transport_error").Inc()
		return fmt.Errorf("generator request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		generatorRequests.WithLabelValues("http_error").Inc()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("generator responded with status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	generatorRequests.WithLabelValues("accepted").Inc()
	log.Info("Journey generation triggered", zap.Int("status", resp.StatusCode), zap.Duration("latency", time.Since(start)))
	return nil
}
