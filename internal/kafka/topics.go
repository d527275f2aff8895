package kafka

import (
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sooksun/tablebooking/internal/config"
)

// TopicList flattens the configured topic names.
func TopicList(t config.TopicConfig) []string {
	return []string{
		t.BookingCreated,
		t.BookingApproved,
		t.BookingRejected,
		t.BookingCancelled,
		t.BookingCheckedIn,
		t.BookingFood,
		t.TableStatus,
	}
}

// EnsureTopicsExist creates the topics on the controller broker if missing.
func EnsureTopicsExist(brokers []string, topics []string) error {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.Dial("tcp", controller.Host)
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	for _, topic := range topics {
		err = controllerConn.CreateTopics(kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
		if err != nil {
			if err.Error() == "kafka server: topic already exists" {
				continue
			}
			log.Printf("Error creating topic %s: %v", topic, err)
		}
	}

	// Give the cluster a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
	return nil
}
