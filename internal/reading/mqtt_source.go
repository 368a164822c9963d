package reading

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/growwiz/growwiz-core/internal/infrastructure/mqtt"
)

const latestKey = "latest"

// Subscriber is the subset of the MQTT client MQTTSource needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// MQTTSource serves the most recent reading published by a sensor node.
// A reading older than maxAge is treated as unavailable.
type MQTTSource struct {
	cache *cache.Cache
	now   func() time.Time

	mu        sync.RWMutex
	onReading []func(Reading)
}

// NewMQTTSource creates a source whose readings expire after maxAge.
func NewMQTTSource(maxAge time.Duration) *MQTTSource {
	return &MQTTSource{
		cache: cache.New(maxAge, 2*maxAge),
		now:   time.Now,
	}
}

// Start subscribes to the sensor reading topic.
func (s *MQTTSource) Start(sub Subscriber, topic string, qos byte) error {
	if err := sub.Subscribe(topic, qos, s.HandleMessage); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	return nil
}

// OnReading registers a callback for every accepted reading.
func (s *MQTTSource) OnReading(fn func(Reading)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReading = append(s.onReading, fn)
}

// HandleMessage decodes one JSON reading. Missing metrics stay nil and a
// missing timestamp is set to the receive time.
func (s *MQTTSource) HandleMessage(_ string, payload []byte) error {
	var r Reading
	if err := json.Unmarshal(payload, &r); err != nil {
		return fmt.Errorf("decoding sensor reading: %w", err)
	}
	if r.Timestamp == 0 {
		r.Timestamp = s.now().Unix()
	}

	s.cache.Set(latestKey, r, cache.DefaultExpiration)

	s.mu.RLock()
	callbacks := s.onReading
	s.mu.RUnlock()
	for _, fn := range callbacks {
		fn(r)
	}
	return nil
}

// Latest returns the cached reading or ErrReadingUnavailable when none
// arrived within maxAge.
func (s *MQTTSource) Latest(_ context.Context) (Reading, error) {
	v, ok := s.cache.Get(latestKey)
	if !ok {
		return Reading{}, fmt.Errorf("%w: no fresh reading from sensor node", ErrReadingUnavailable)
	}
	r, _ := v.(Reading)
	return r, nil
}
