package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/sguter90/pimaestro/pkg/config"
	"github.com/sguter90/pimaestro/pkg/output"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Output publishes every reading as a JSON message on
// <topic>/<sensor id>/<channel>
type Output struct {
	client mqtt.Client
	topic  string
}

type payload struct {
	Value   float64   `json:"value"`
	Unit    string    `json:"unit"`
	Sensor  string    `json:"sensor"`
	Channel string    `json:"channel"`
	DateUTC time.Time `json:"date_utc"`
}

// New connects to the broker
func New(cfg config.MQTTConfig) (*Output, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Server).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, errors.Errorf("mqtt connect to %s timed out", cfg.Server)
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrap(err, "mqtt connect")
	}

	return newWithClient(client, cfg.Topic), nil
}

func newWithClient(client mqtt.Client, topic string) *Output {
	return &Output{client: client, topic: strings.TrimSuffix(topic, "/")}
}

func (m *Output) Publish(ctx context.Context, sample output.Sample) error {
	for _, r := range sample.Readings {
		ch := sample.Channel(r)
		b, err := json.Marshal(payload{
			Value:   r.Value,
			Unit:    ch.Unit,
			Sensor:  sample.Sensor.Name,
			Channel: ch.Name,
			DateUTC: r.DateUTC.UTC(),
		})
		if err != nil {
			return err
		}

		topic := fmt.Sprintf("%s/%s/%s", m.topic, sample.Sensor.ID, strings.ToLower(ch.Name))
		token := m.client.Publish(topic, 0, false, b)
		if !token.WaitTimeout(publishTimeout) {
			return errors.Errorf("mqtt publish to %s timed out", topic)
		}
		if err := token.Error(); err != nil {
			return errors.Wrapf(err, "mqtt publish to %s", topic)
		}
	}
	return nil
}

func (m *Output) Close() error {
	if m.client != nil {
		m.client.Disconnect(250)
	}
	return nil
}
