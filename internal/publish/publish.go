// Package publish serializes a Snapshot and publishes it, retained,
// across the four MQTT topics (nearest, planes, nearest_commercial,
// stats). The broker connection is lazily (re-)established on publish;
// a failed publish is simply counted, never queued or retried within
// the cycle.
package publish

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/hangarwatch/aerofuse/internal/snapshot"
	"github.com/hangarwatch/aerofuse/pkg/logger"
)

// Config configures the broker connection and topic behavior.
type Config struct {
	Host                     string
	Port                     int
	Username                 string
	Password                 string
	ClientID                 string
	TopicPrefix              string
	PublishPlanes            bool
	PublishNearestCommercial bool
}

// Publisher owns the MQTT client and publishes Snapshots onto the
// configured topic set.
type Publisher struct {
	cfg Config
	log *logger.Logger

	mu     sync.Mutex
	client mqtt.Client
}

// New constructs a Publisher. The broker connection is not opened until
// the first Publish call.
func New(cfg Config, log *logger.Logger) *Publisher {
	return &Publisher{cfg: cfg, log: log.Named("publish")}
}

func (p *Publisher) ensureConnected() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil && p.client.IsConnected() {
		return nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", p.cfg.Host, p.cfg.Port))
	opts.SetClientID(p.cfg.ClientID)
	if p.cfg.Username != "" {
		opts.SetUsername(p.cfg.Username)
		opts.SetPassword(p.cfg.Password)
	}
	opts.SetConnectTimeout(15 * time.Second)
	opts.SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(15 * time.Second) {
		return fmt.Errorf("mqtt connect timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect failed: %w", err)
	}

	p.client = client
	return nil
}

// Disconnect cleanly closes the broker connection. Called from main on
// shutdown, after the scheduler has stopped.
func (p *Publisher) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

// Result reports how many of the topic publishes in one call succeeded
// and failed, so the caller can update its stats counters.
type Result struct {
	Successful int
	Failed     int
}

// Publish serializes snap and publishes it across nearest (when set),
// planes (opt-in, and only when non-empty), nearest_commercial (opt-in,
// when set), and stats in that order. Publication of each topic is independent — one
// failure doesn't suppress the others.
func (p *Publisher) Publish(snap *snapshot.Snapshot, stats snapshot.Stats) Result {
	var result Result

	if err := p.ensureConnected(); err != nil {
		p.log.Warn("mqtt connect failed, skipping this cycle's publish", logger.Error(err))
		if snap.Nearest != nil {
			result.Failed++
		}
		if p.cfg.PublishPlanes && len(snap.Planes) > 0 {
			result.Failed++
		}
		if p.cfg.PublishNearestCommercial && snap.NearestCommercial != nil {
			result.Failed++
		}
		result.Failed++ // stats
		return result
	}

	publishOne := func(suffix string, payload any) {
		b, err := json.Marshal(payload)
		if err != nil {
			p.log.Error("failed to marshal payload", logger.String("topic", suffix), logger.Error(err))
			result.Failed++
			return
		}
		if p.publishRaw(suffix, b) {
			result.Successful++
		} else {
			result.Failed++
		}
	}

	if snap.Nearest != nil {
		publishOne("nearest", snap.Nearest)
	}
	if p.cfg.PublishPlanes && len(snap.Planes) > 0 {
		publishOne("planes", snap.Planes)
	}
	if p.cfg.PublishNearestCommercial && snap.NearestCommercial != nil {
		publishOne("nearest_commercial", snap.NearestCommercial)
	}
	publishOne("stats", stats)

	return result
}

func (p *Publisher) publishRaw(suffix string, payload []byte) bool {
	topic := fmt.Sprintf("%s/%s", strings.TrimRight(p.cfg.TopicPrefix, "/"), suffix)

	p.mu.Lock()
	client := p.client
	p.mu.Unlock()
	if client == nil {
		return false
	}

	token := client.Publish(topic, 0, true, payload)
	if !token.WaitTimeout(15 * time.Second) {
		p.log.Warn("mqtt publish timed out", logger.String("topic", topic))
		return false
	}
	if err := token.Error(); err != nil {
		p.log.Warn("mqtt publish failed", logger.String("topic", topic), logger.Error(err))
		return false
	}
	return true
}
