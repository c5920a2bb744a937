package messaging

import (
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/stenmark/stone-finder/pkg/types"
)

// ChangeTopic names one catalog change stream. Topics are prefixed per
// deployment so several environments can share a broker.
type ChangeTopic string

const (
	StonesUpserted ChangeTopic = "stones_upserted"
	StoneDeleted   ChangeTopic = "stone_deleted"
	PriceLowered   ChangeTopic = "price_lowered"
)

type RabbitConfig struct {
	Url         string
	VHost       string
	TopicPrefix string
}

func (c RabbitConfig) Dial() (*amqp.Connection, error) {
	return amqp.DialConfig(c.Url, amqp.Config{
		Vhost:      c.VHost,
		Properties: amqp.NewConnectionProperties(),
	})
}

// PriceDrop is the payload on the price_lowered topic, published by the
// feeder when an upsert lowers a stone's price.
type PriceDrop struct {
	Id       types.ItemId `json:"id"`
	Sku      string       `json:"sku"`
	Title    string       `json:"title"`
	OldPrice int          `json:"oldPrice"`
	NewPrice int          `json:"newPrice"`
	Currency string       `json:"currency,omitempty"`
}
