// SPDX-License-Identifier: GPL-3.0-only

package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/shini4i/unblind-daemon/internal/controller"
	"github.com/shini4i/unblind-daemon/internal/dimmer"
	"github.com/shini4i/unblind-daemon/internal/events"
	"github.com/shini4i/unblind-daemon/internal/schedule"
)

const (
	mqttConnectTimeout    = 10 * time.Second
	mqttPublishTimeout    = 5 * time.Second
	mqttDisconnectQuiesce = 250 // milliseconds
)

// ErrMQTTConnect is returned when the broker cannot be reached.
var ErrMQTTConnect = errors.New("mqtt connection failed")

// mqttPublisher is the part of pahomqtt.Client the publisher uses.
type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
}

// MQTTConfig holds connection settings for NewMQTTPublisher.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
}

// MQTTPublisher publishes retained state topics under a prefix:
// <prefix>/brightness, <prefix>/period, <prefix>/schedule, <prefix>/displays
// and <prefix>/status.
type MQTTPublisher struct {
	client     mqttPublisher
	prefix     string
	qos        byte
	disconnect func()
}

type brightnessPayload struct {
	Brightness uint32 `json:"brightness"`
	Delta      int    `json:"delta"`
}

type periodPayload struct {
	Period   string `json:"period"`
	Previous string `json:"previous"`
}

type schedulePayload struct {
	DaytimeStart    string  `json:"daytime_start"`
	NighttimeStart  string  `json:"nighttime_start"`
	DayBrightness   uint32  `json:"day_brightness"`
	NightBrightness uint32  `json:"night_brightness"`
	DayToNight      float64 `json:"day_to_night_minutes"`
	NightToDay      float64 `json:"night_to_day_minutes"`
}

type displaysPayload struct {
	Count      int  `json:"count"`
	Integrated bool `json:"integrated"`
}

// ClientID returns id, or a random "unblind-" id when empty.
func ClientID(id string) string {
	if id != "" {
		return id
	}
	return "unblind-" + uuid.NewString()
}

// NewMQTTPublisher connects to the broker and announces the daemon online.
// The broker publishes "offline" on <prefix>/status if the daemon dies.
func NewMQTTPublisher(cfg MQTTConfig) (*MQTTPublisher, error) {
	clientID := ClientID(cfg.ClientID)
	statusTopic := cfg.TopicPrefix + "/status"

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttConnectTimeout).
		SetWill(statusTopic, "offline", cfg.QoS, true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	})

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %s", ErrMQTTConnect, mqttConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMQTTConnect, err)
	}

	p := newMQTTPublisher(client, cfg.TopicPrefix, cfg.QoS)
	p.disconnect = func() {
		p.publish("status", "offline")
		client.Disconnect(mqttDisconnectQuiesce)
	}
	p.publish("status", "online")

	log.Info().Str("broker", cfg.Broker).Str("client_id", clientID).Msg("MQTT state publisher connected")
	return p, nil
}

func newMQTTPublisher(client mqttPublisher, prefix string, qos byte) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: prefix, qos: qos, disconnect: func() {}}
}

// Handle implements Sink.
func (p *MQTTPublisher) Handle(e events.Event) {
	switch ev := e.(type) {
	case dimmer.BrightnessChanged:
		p.publishJSON("brightness", brightnessPayload{Brightness: ev.Brightness, Delta: ev.Delta})
	case schedule.PeriodChanged:
		p.publishJSON("period", periodPayload{Period: ev.Period.String(), Previous: ev.Previous.String()})
	case schedule.ConfigChanged:
		p.publishJSON("schedule", schedulePayload{
			DaytimeStart:    schedule.FormatTimeOfDay(ev.Config.DaytimeStart),
			NighttimeStart:  schedule.FormatTimeOfDay(ev.Config.NighttimeStart),
			DayBrightness:   ev.Config.DayBrightness,
			NightBrightness: ev.Config.NightBrightness,
			DayToNight:      ev.Config.DayToNight.Minutes(),
			NightToDay:      ev.Config.NightToDay.Minutes(),
		})
	case controller.DisplaysRefreshed:
		p.publishJSON("displays", displaysPayload{Count: ev.Count, Integrated: ev.Integrated})
	}
}

func (p *MQTTPublisher) publishJSON(topic string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to encode MQTT payload")
		return
	}
	p.publish(topic, payload)
}

// publish sends a retained message without waiting for the broker.
func (p *MQTTPublisher) publish(topic string, payload interface{}) {
	full := p.prefix + "/" + topic
	token := p.client.Publish(full, p.qos, true, payload)
	go func() {
		if !token.WaitTimeout(mqttPublishTimeout) {
			log.Warn().Str("topic", full).Msg("MQTT publish timed out")
			return
		}
		if err := token.Error(); err != nil {
			log.Warn().Err(err).Str("topic", full).Msg("MQTT publish failed")
		}
	}()
}

// Close publishes the offline status and disconnects.
func (p *MQTTPublisher) Close() error {
	p.disconnect()
	return nil
}
