// Worker consumes telemetry events from Kafka and writes them to Loki and, when DATABASE_URL is set,
// to the telemetry_events table.
// Set KAFKA_BROKERS, TELEMETRY_KAFKA_TOPIC, KAFKA_GROUP_ID and LOKI_URL.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/backend/internal/config"
	"storefront/backend/internal/db"
	"storefront/backend/internal/telemetry/consumer"
	"storefront/backend/internal/telemetry/loki"
	telemetryrepo "storefront/backend/internal/telemetry/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	brokers := cfg.TelemetryKafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("worker: KAFKA_BROKERS is required")
	}

	var sinks []consumer.Sink
	if cfg.LokiURL != "" {
		sinks = append(sinks, loki.NewClient(cfg.LokiURL, &http.Client{Timeout: 10 * time.Second}))
	}
	if cfg.DatabaseURL != "" {
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("worker: postgres: %v", err)
		}
		defer conn.Close()
		sinks = append(sinks, telemetryrepo.NewPostgresRepository(conn))
	}
	if len(sinks) == 0 {
		log.Fatal("worker: set LOKI_URL or DATABASE_URL")
	}

	c := consumer.NewKafkaConsumer(brokers, cfg.TelemetryKafkaTopic, cfg.KafkaGroupID, sinks...)
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("worker: consuming from %s (group %s) into %d sinks", cfg.TelemetryKafkaTopic, cfg.KafkaGroupID, len(sinks))
	if err := c.Run(ctx); err != nil {
		log.Printf("worker: %v", err)
	}
	log.Println("worker: stopped")
}
