package events

import (
	"log"
	"strings"

	"github.com/gatehouse-app/backend/internal/config"
)

// NewBroker creates a Broker based on the application configuration. If
// KAFKA_BROKERS is set, it returns a KafkaBroker; otherwise it falls back to
// an InMemoryBroker suitable for single-node deployments.
func NewBroker(cfg *config.Config) (Broker, error) {
	if cfg.KafkaBrokers != "" {
		brokers := strings.Split(cfg.KafkaBrokers, ",")
		log.Printf("events: using KafkaBroker with brokers=%v group=%s", brokers, cfg.KafkaConsumerGroup)
		return NewKafkaBroker(KafkaConfig{
			Brokers:       brokers,
			ConsumerGroup: cfg.KafkaConsumerGroup,
		})
	}

	log.Println("events: using InMemoryBroker (KAFKA_BROKERS not set)")
	return NewInMemoryBroker(), nil
}
