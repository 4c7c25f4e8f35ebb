package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/jgoulah/meterbook/internal/config"
	"github.com/jgoulah/meterbook/internal/logging"
)

const publishTimeout = 10 * time.Second

// connectTimeout bounds the initial broker connection. Connect retries in the
// background, so its token does not complete while the broker is unreachable.
var connectTimeout = 10 * time.Second

// mqttClient is the subset of mqtt.Client the publisher uses
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// Publisher sends consumption summaries to MQTT and/or Home Assistant
type Publisher struct {
	client       mqttClient
	topicPrefix  string
	haConfig     config.HAConfig
	entityPrefix string
	httpClient   *http.Client
	logger       *logging.Logger
}

// New creates a publisher for every sink enabled in cfg
func New(cfg *config.Config, logger *logging.Logger) (*Publisher, error) {
	haCfg := cfg.HomeAssistant
	mqttCfg := cfg.MQTT

	if !haCfg.Enabled && !mqttCfg.Enabled {
		return nil, fmt.Errorf("neither MQTT nor Home Assistant publishing is enabled in config")
	}

	// Validate HA config if enabled
	if haCfg.Enabled {
		if haCfg.URL == "" {
			return nil, fmt.Errorf("Home Assistant URL is required when enabled")
		}
		if haCfg.Token == "" {
			return nil, fmt.Errorf("Home Assistant token is required when enabled")
		}
	}

	p := &Publisher{
		topicPrefix:  cfg.GetTopicPrefix(),
		haConfig:     haCfg,
		entityPrefix: cfg.GetEntityPrefix(),
		httpClient:   &http.Client{Timeout: publishTimeout},
		logger:       logger.WithComponent("publisher"),
	}

	if mqttCfg.Enabled {
		if mqttCfg.Broker == "" {
			return nil, fmt.Errorf("MQTT broker address is required when enabled")
		}

		opts := mqtt.NewClientOptions()
		opts.AddBroker(fmt.Sprintf("tcp://%s", mqttCfg.Broker))
		opts.SetClientID("meterbook-" + uuid.NewString())
		opts.SetAutoReconnect(true)
		opts.SetConnectRetry(true)
		opts.SetConnectTimeout(publishTimeout)

		if mqttCfg.Username != "" {
			opts.SetUsername(mqttCfg.Username)
		}
		if mqttCfg.Password != "" {
			opts.SetPassword(mqttCfg.Password)
		}

		client := mqtt.NewClient(opts)
		token := client.Connect()
		if !token.WaitTimeout(connectTimeout) {
			client.Disconnect(0)
			return nil, fmt.Errorf("connecting to MQTT broker %s: timed out after %s", mqttCfg.Broker, connectTimeout)
		}
		if err := token.Error(); err != nil {
			return nil, fmt.Errorf("connecting to MQTT broker: %w", err)
		}
		p.client = client
	}

	return p, nil
}

// Topic returns the MQTT state topic of a meter
func (p *Publisher) Topic(g GroupSummary) string {
	return fmt.Sprintf("%s/%d/%s/state", p.topicPrefix, g.Key.Unit, g.Key.Utility)
}

// EntityID returns the Home Assistant sensor of a meter
func (p *Publisher) EntityID(g GroupSummary) string {
	return fmt.Sprintf("sensor.%s_%d_%s", p.entityPrefix, g.Key.Unit, g.Key.Utility)
}

// Publish sends every meter of the summary to each enabled sink. All meters are
// attempted; failures are joined into the returned error.
func (p *Publisher) Publish(ctx context.Context, summary Summary) error {
	var errs []error

	for _, g := range summary.Groups {
		if err := ctx.Err(); err != nil {
			return err
		}

		if p.client != nil {
			topic := p.Topic(g)
			err := p.publishMQTT(topic, g)
			p.logger.LogPublish("mqtt", topic, err)
			if err != nil {
				errs = append(errs, err)
			}
		}

		if p.haConfig.Enabled {
			entityID := p.EntityID(g)
			err := p.publishState(ctx, entityID, g)
			p.logger.LogPublish("home_assistant", entityID, err)
			if err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}

func (p *Publisher) publishMQTT(topic string, g GroupSummary) error {
	payload, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	token := p.client.Publish(topic, 1, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publishing to %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

// HAState is the body of a Home Assistant state update
type HAState struct {
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes"`
}

func stateOf(g GroupSummary) HAState {
	state := "unknown"
	if g.Trend != nil {
		state = strconv.FormatFloat(*g.Trend, 'f', 2, 64)
	}

	attrs := map[string]any{
		"friendly_name":       g.Label,
		"unit_of_measurement": g.MeasurementUnit + "/month",
		"rate":                g.Rate,
		"date":                g.Date,
		"yearly_total":        g.YearlyTotal,
	}
	if g.Year != 0 {
		attrs["year"] = g.Year
	}

	return HAState{State: state, Attributes: attrs}
}

func (p *Publisher) publishState(ctx context.Context, entityID string, g GroupSummary) error {
	body, err := json.Marshal(stateOf(g))
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	apiURL := fmt.Sprintf("%s/api/states/%s", p.haConfig.URL, entityID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+p.haConfig.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		// Read error response body for debugging
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP error for %s: status %d, response: %s", entityID, resp.StatusCode, string(respBody))
	}

	return nil
}

// Close disconnects from the MQTT broker
func (p *Publisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
