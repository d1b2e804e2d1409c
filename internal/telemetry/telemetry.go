// Package telemetry publishes device state over MQTT.
package telemetry

import (
	"encoding/json"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"kagami-orb/internal/cellular"
	"kagami-orb/internal/location"
	"kagami-orb/internal/power"
)

const (
	TopicLocation = "orb/location"
	TopicCellular = "orb/cellular"
	TopicPower    = "orb/power"
)

// client is the slice of mqtt.Client the publisher uses; a recorder stands
// in for it in tests.
type client interface {
	publish(topic string, retained bool, payload []byte) error
	close()
}

type pahoClient struct {
	c mqtt.Client
}

func (p *pahoClient) publish(topic string, retained bool, payload []byte) error {
	token := p.c.Publish(topic, 0, retained, payload)
	token.Wait()
	return token.Error()
}

func (p *pahoClient) close() {
	p.c.Disconnect(250)
}

type Config struct {
	// Broker address, e.g. "tcp://localhost:1883".
	Broker   string
	ClientID string
}

type Publisher struct {
	cl client
}

// New connects to the broker. Unlike drivers, telemetry does not degrade to
// simulation: an unreachable broker is a real error the caller may retry.
func New(cfg Config) (*Publisher, error) {
	if cfg.ClientID == "" {
		cfg.ClientID = "orbd"
	}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true)

	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("telemetry: connect %s: %w", cfg.Broker, token.Error())
	}
	log.Printf("telemetry: connected broker=%s client_id=%s", cfg.Broker, cfg.ClientID)
	return &Publisher{cl: &pahoClient{c: c}}, nil
}

func newWithClient(cl client) *Publisher {
	return &Publisher{cl: cl}
}

func (p *Publisher) publishJSON(topic string, retained bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("telemetry: marshal %s: %w", topic, err)
	}
	return p.cl.publish(topic, retained, payload)
}

// PublishLocation sends the latest fix, retained so late subscribers get the
// last known position immediately.
func (p *Publisher) PublishLocation(u *location.Update) error {
	if u == nil {
		return nil
	}
	return p.publishJSON(TopicLocation, true, u)
}

func (p *Publisher) PublishCellular(s cellular.Status) error {
	return p.publishJSON(TopicCellular, false, s)
}

func (p *Publisher) PublishPower(s power.Status) error {
	return p.publishJSON(TopicPower, false, s)
}

func (p *Publisher) Close() {
	p.cl.close()
}
