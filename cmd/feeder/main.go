package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/stenmark/stone-finder/pkg/common"
	"github.com/stenmark/stone-finder/pkg/index"
	"github.com/stenmark/stone-finder/pkg/messaging"
	"github.com/stenmark/stone-finder/pkg/server"
	"github.com/stenmark/stone-finder/pkg/storage"
	"github.com/stenmark/stone-finder/pkg/types"
)

var (
	listenAddress = envOr("LISTEN", ":8090")
	debugAddress  = envOr("DEBUG_LISTEN", ":8091")
	dataDir       = envOr("DATA_DIR", "data")
	topicPrefix   = envOr("TOPIC_PREFIX", "gems")
	rabbitUrl     = os.Getenv("RABBIT_URL")
	rabbitVHost   = os.Getenv("RABBIT_HOST")
)

func envOr(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return fallback
}

// FeederApp owns the backoffice side of the catalog. It keeps a full index of
// its own so price drops can be detected before a batch is applied.
type FeederApp struct {
	index      *index.ItemIndex
	storage    *storage.DiskStorage
	connection *amqp.Connection
}

func (app *FeederApp) defineTopics() error {
	ch, err := app.connection.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	for _, topic := range []messaging.ChangeTopic{
		messaging.StonesUpserted,
		messaging.StoneDeleted,
		messaging.PriceLowered,
	} {
		if err := messaging.DefineTopic(ch, topicPrefix, topic); err != nil {
			return err
		}
	}
	return nil
}

func validateStone(s *index.Stone) error {
	if s.Id == 0 {
		return errors.New("id is required")
	}
	if s.Sku == "" {
		return fmt.Errorf("stone %d: sku is required", s.Id)
	}
	if s.Title == "" {
		return fmt.Errorf("stone %d: title is required", s.Id)
	}
	if s.StoneType == "" {
		return fmt.Errorf("stone %d: type is required", s.Id)
	}
	if s.Price < 0 {
		return fmt.Errorf("stone %d: price cannot be negative", s.Id)
	}
	if s.Currency == "" {
		s.Currency = types.DefaultCurrency
	}
	if s.LastUpdate == 0 {
		s.LastUpdate = time.Now().UnixMilli()
	}
	return nil
}

func (app *FeederApp) handleUpsert(w http.ResponseWriter, r *http.Request) {
	batch := make([]*index.Stone, 0)
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&batch); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(batch) == 0 {
		http.Error(w, "empty batch", http.StatusBadRequest)
		return
	}

	// Price drops are judged against the index as it was before the batch.
	drops := make([]*messaging.PriceDrop, 0)
	items := make([]types.Item, 0, len(batch))
	for _, stone := range batch {
		if err := validateStone(stone); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if prev, ok := app.index.GetItem(stone.Id); ok {
			if old := prev.GetPrice(); stone.Price > 0 && stone.Price < old {
				drops = append(drops, &messaging.PriceDrop{
					Id:       stone.Id,
					Sku:      stone.Sku,
					Title:    stone.Title,
					OldPrice: old,
					NewPrice: stone.Price,
					Currency: stone.Currency,
				})
			}
		}
		items = append(items, stone)
	}
	if err := app.index.HandleItems(items); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	go func() {
		if err := messaging.SendChange(app.connection, topicPrefix, messaging.StonesUpserted, batch); err != nil {
			log.Printf("Error publishing %d stones: %v", len(batch), err)
		}
		for _, drop := range drops {
			if err := messaging.SendChange(app.connection, topicPrefix, messaging.PriceLowered, drop); err != nil {
				log.Printf("Error publishing price drop for %d: %v", drop.Id, err)
			}
		}
	}()

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (app *FeederApp) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	stoneId := types.ItemId(id)
	if !app.index.HasItem(stoneId) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err := app.index.DeleteItem(stoneId); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	go func() {
		if err := messaging.SendChange(app.connection, topicPrefix, messaging.StoneDeleted, stoneId); err != nil {
			log.Printf("Error publishing delete for %d: %v", stoneId, err)
		}
	}()

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (app *FeederApp) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := app.storage.SaveItems(app.index.GetAllItems()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"saved"}`))
}

func main() {
	if rabbitUrl == "" {
		log.Fatal("RABBIT_URL environment variable is not set")
	}
	conn, err := messaging.RabbitConfig{
		Url:         rabbitUrl,
		VHost:       rabbitVHost,
		TopicPrefix: topicPrefix,
	}.Dial()
	if err != nil {
		log.Fatalf("Failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()

	app := &FeederApp{
		index:      index.NewItemIndex(),
		storage:    storage.NewDiskStorage(dataDir),
		connection: conn,
	}
	if err := app.defineTopics(); err != nil {
		log.Fatalf("Failed to declare topics: %v", err)
	}
	if err := app.storage.LoadItems(app.index); err != nil {
		log.Printf("No catalog snapshot loaded: %v", err)
	}
	log.Printf("Feeder ready, %d stones", app.index.Len())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /items", app.handleUpsert)
	mux.HandleFunc("DELETE /items/{id}", app.handleDelete)
	mux.HandleFunc("POST /save", app.handleSave)

	cfg := common.LoadTimeoutConfig(common.TimeoutConfig{
		ReadHeader: 5 * time.Second,
		Read:       60 * time.Second,
		Write:      60 * time.Second,
		Idle:       120 * time.Second,
		Shutdown:   15 * time.Second,
		Hook:       20 * time.Second,
	})
	srv := common.NewServerWithTimeouts(&http.Server{Addr: listenAddress, Handler: mux}, cfg)
	debugSrv := common.NewServerWithTimeouts(&http.Server{Addr: debugAddress, Handler: server.DebugHandler()}, cfg)

	common.RunServerWithShutdown(srv, debugSrv,
		"stone feeder listening on "+listenAddress,
		cfg.Shutdown, cfg.Hook,
		func(ctx context.Context) error {
			return app.storage.SaveItems(app.index.GetAllItems())
		},
	)
}
