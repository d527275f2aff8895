package kafka

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/sooksun/tablebooking/internal/config"
	"github.com/sooksun/tablebooking/internal/models"
)

// Producer streams booking lifecycle events. One writer serves all topics;
// the topic is set per message.
type Producer struct {
	Writer *kafka.Writer
	Topics config.TopicConfig
}

func NewProducer(brokers []string, topics config.TopicConfig) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{Writer: writer, Topics: topics}
}

func (p *Producer) Publish(topic, key string, value []byte) error {
	return p.Writer.WriteMessages(context.Background(), kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
}

func (p *Producer) publishJSON(topic, key string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.Publish(topic, key, value)
}

// Booking events keyed by booking id so per-booking ordering is preserved.

func (p *Producer) BookingCreated(b models.Booking) error {
	return p.publishJSON(p.Topics.BookingCreated, b.ID, b)
}

func (p *Producer) BookingApproved(b models.Booking) error {
	return p.publishJSON(p.Topics.BookingApproved, b.ID, b)
}

func (p *Producer) BookingRejected(b models.Booking) error {
	return p.publishJSON(p.Topics.BookingRejected, b.ID, b)
}

func (p *Producer) BookingCancelled(b models.Booking) error {
	return p.publishJSON(p.Topics.BookingCancelled, b.ID, b)
}

func (p *Producer) BookingCheckedIn(b models.Booking) error {
	return p.publishJSON(p.Topics.BookingCheckedIn, b.ID, b)
}

func (p *Producer) BookingFoodServed(b models.Booking) error {
	return p.publishJSON(p.Topics.BookingFood, b.ID, b)
}

type tableStatusEvent struct {
	TableID int    `json:"table_id"`
	Status  string `json:"status"`
}

func (p *Producer) TableStatus(tableID int, status string) error {
	return p.publishJSON(p.Topics.TableStatus, strconv.Itoa(tableID), tableStatusEvent{
		TableID: tableID,
		Status:  status,
	})
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
