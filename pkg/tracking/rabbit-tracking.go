package tracking

import (
	"log"
	"net/http"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/stenmark/stone-finder/pkg/messaging"
	"github.com/stenmark/stone-finder/pkg/types"
)

// RabbitTracking publishes usage events on a shared topic. Sends are fire
// and forget, a lost event never fails the request that produced it.
type RabbitTracking struct {
	connection *amqp.Connection
}

const trackingTopic = "tracking"

func NewRabbitTracking(url string) (*RabbitTracking, error) {
	ret := RabbitTracking{
		connection: nil,
	}
	err := ret.connect(url)
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (t *RabbitTracking) connect(url string) error {
	conn, err := amqp.Dial(url)
	if err != nil {
		return err
	}
	t.connection = conn
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	return messaging.DefineTopic(ch, "global", trackingTopic)
}

func (t *RabbitTracking) Close() error {
	return t.connection.Close()
}

func (t *RabbitTracking) send(data any) error {
	return messaging.SendChange(t.connection, "global", trackingTopic, data)
}

type BaseEvent struct {
	SessionId string `json:"session_id"`
	Event     uint16 `json:"event"`
	Ts        int64  `json:"ts"`
}

type Session struct {
	*BaseEvent
	UserAgent string `json:"user_agent,omitempty"`
	Ip        string `json:"ip,omitempty"`
	Language  string `json:"language,omitempty"`
}

func (rt *RabbitTracking) TrackSession(sessionId string, r *http.Request) {
	ip := r.Header.Get("X-Real-Ip")
	if ip == "" {
		ip = r.Header.Get("X-Forwarded-For")
	}
	if ip == "" {
		ip = r.RemoteAddr
	}

	err := rt.send(Session{
		BaseEvent: &BaseEvent{Event: 0, SessionId: sessionId, Ts: time.Now().Unix()},
		Language:  r.Header.Get("Accept-Language"),
		UserAgent: r.UserAgent(),
		Ip:        ip,
	})
	if err != nil {
		log.Println("Error sending session event: ", err)
	}
}

type SearchEvent struct {
	*types.Filters
	*BaseEvent
	NumberOfResults int    `json:"noi"`
	Page            int    `json:"page"`
	Referer         string `json:"referer,omitempty"`
}

func (rt *RabbitTracking) TrackSearch(sessionId string, filters *types.Filters, hits int, page int, r *http.Request) {
	err := rt.send(&SearchEvent{
		BaseEvent:       &BaseEvent{Event: 1, SessionId: sessionId, Ts: time.Now().Unix()},
		Filters:         filters,
		NumberOfResults: hits,
		Page:            page,
		Referer:         r.Header.Get("Referer"),
	})
	if err != nil {
		log.Println("Error sending search event: ", err)
	}
}

type ClickEvent struct {
	*BaseEvent
	Item     types.ItemId `json:"item"`
	Position float32      `json:"position"`
}

func (rt *RabbitTracking) TrackClick(sessionId string, id types.ItemId, position float32, r *http.Request) {
	err := rt.send(&ClickEvent{
		BaseEvent: &BaseEvent{Event: 2, SessionId: sessionId, Ts: time.Now().Unix()},
		Item:      id,
		Position:  position,
	})
	if err != nil {
		log.Println("Error sending click event: ", err)
	}
}

type RelatedEvent struct {
	*BaseEvent
	Item            types.ItemId `json:"item"`
	NumberOfResults int          `json:"noi"`
	Referer         string       `json:"referer,omitempty"`
}

func (rt *RabbitTracking) TrackRelated(sessionId string, id types.ItemId, hits int, r *http.Request) {
	err := rt.send(&RelatedEvent{
		BaseEvent:       &BaseEvent{Event: 3, SessionId: sessionId, Ts: time.Now().Unix()},
		Item:            id,
		NumberOfResults: hits,
		Referer:         r.Header.Get("Referer"),
	})
	if err != nil {
		log.Println("Error sending related event: ", err)
	}
}

type BrowseEvent struct {
	*BaseEvent
	BrowseId string `json:"browse_id"`
	Page     int    `json:"page"`
}

func (rt *RabbitTracking) TrackBrowse(sessionId string, browseId string, page int, r *http.Request) {
	err := rt.send(&BrowseEvent{
		BaseEvent: &BaseEvent{Event: 4, SessionId: sessionId, Ts: time.Now().Unix()},
		BrowseId:  browseId,
		Page:      page,
	})
	if err != nil {
		log.Println("Error sending browse event: ", err)
	}
}
