package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/stenmark/stone-finder/pkg/common"
	"github.com/stenmark/stone-finder/pkg/index"
	"github.com/stenmark/stone-finder/pkg/messaging"
	"github.com/stenmark/stone-finder/pkg/notify"
	"github.com/stenmark/stone-finder/pkg/server"
	"github.com/stenmark/stone-finder/pkg/storage"
	"github.com/stenmark/stone-finder/pkg/tracking"
	"github.com/stenmark/stone-finder/pkg/types"
)

var (
	listenAddress = envOr("LISTEN", ":8080")
	debugAddress  = envOr("DEBUG_LISTEN", ":8081")
	dataDir       = envOr("DATA_DIR", "data")
	topicPrefix   = envOr("TOPIC_PREFIX", "gems")
	nodeName      = envOr("NODE_NAME", "stone-finder")
	rabbitUrl     = os.Getenv("RABBIT_URL")
	rabbitVHost   = os.Getenv("RABBIT_HOST")
	redisUrl      = os.Getenv("REDIS_URL")
	redisPassword = os.Getenv("REDIS_PASSWORD")
)

func envOr(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return fallback
}

// ingestChunkSize caps how many stones each index write takes so the write
// lock stays short while a large feed batch drains.
const ingestChunkSize = 100

// connectFeed attaches the catalog feed consumers. Each topic gets its own
// channel since a handler error closes the channel it runs on.
func connectFeed(conn *amqp.Connection, queue *common.QueueHandler[types.Item], idx *index.ItemIndex, watcher *notify.PriceWatcher) error {
	upserts, err := conn.Channel()
	if err != nil {
		return err
	}
	err = messaging.ListenToTopic(upserts, topicPrefix, messaging.StonesUpserted, func(d amqp.Delivery) error {
		batch := make([]*index.Stone, 0)
		if err := sonic.Unmarshal(d.Body, &batch); err != nil {
			return err
		}
		items := make([]types.Item, len(batch))
		for i, stone := range batch {
			items[i] = stone
		}
		queue.Add(items...)
		return nil
	})
	if err != nil {
		return err
	}

	deletes, err := conn.Channel()
	if err != nil {
		return err
	}
	err = messaging.ListenToTopic(deletes, topicPrefix, messaging.StoneDeleted, func(d amqp.Delivery) error {
		var id types.ItemId
		if err := sonic.Unmarshal(d.Body, &id); err != nil {
			return err
		}
		if err := idx.DeleteItem(id); err != nil {
			log.Printf("Delete for unknown stone %d: %v", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	drops, err := conn.Channel()
	if err != nil {
		return err
	}
	return messaging.ListenToTopic(drops, topicPrefix, messaging.PriceLowered, func(d amqp.Delivery) error {
		drop := &messaging.PriceDrop{}
		if err := sonic.Unmarshal(d.Body, drop); err != nil {
			return err
		}
		watcher.NotifyLowered(context.Background(), drop)
		return nil
	})
}

func main() {
	idx := index.NewItemIndex()
	db := storage.NewDiskStorage(dataDir)
	watcher := notify.NewPriceWatcher(db)

	ws := server.NewWebServer(idx)
	ws.Storage = db
	ws.Watches = watcher
	ws.Cache = server.NewCache(redisUrl, redisPassword, 0)
	ws.Tracking = tracking.NoopTracking{}

	if redisUrl != "" {
		ws.Redis = redis.NewClient(&redis.Options{
			Addr:     redisUrl,
			Password: redisPassword,
			DB:       0,
		})
		idx.Sorting.ConnectOverrides(ws.Redis)
	}
	if rabbitUrl != "" {
		t, err := tracking.NewRabbitTracking(rabbitUrl)
		if err != nil {
			log.Fatalf("Failed to connect tracking: %v", err)
		}
		ws.Tracking = t
	}

	queue := common.NewQueueHandler(func(items []types.Item) {
		if err := idx.HandleItems(items); err != nil {
			log.Printf("Error applying %d stones from the feed: %v", len(items), err)
		}
	}, ingestChunkSize)

	// The snapshot loads in the background so metrics and pprof come up
	// right away; /health flips once the catalog is usable.
	ready := &atomic.Bool{}
	go func() {
		if err := db.LoadItems(idx); err != nil {
			log.Printf("No catalog snapshot loaded: %v", err)
		}
		idx.Sorting.UpdateSorts()
		log.Printf("Catalog ready, %d stones", idx.Len())

		if rabbitUrl != "" {
			conn, err := messaging.RabbitConfig{
				Url:         rabbitUrl,
				VHost:       rabbitVHost,
				TopicPrefix: topicPrefix,
			}.Dial()
			if err != nil {
				log.Fatalf("Failed to connect to rabbitmq: %v", err)
			}
			if err := connectFeed(conn, queue, idx, watcher); err != nil {
				log.Fatalf("Failed to attach to the catalog feed: %v", err)
			}
			log.Printf("Following catalog feed %s", topicPrefix)
		} else {
			log.Println("No RABBIT_URL set, running standalone")
		}
		runtime.GC()
		ready.Store(true)
	}()

	mux := http.NewServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", ws.ClientHandler()))
	mux.Handle("/admin/", http.StripPrefix("/admin", ws.AdminHandler()))

	debugMux := server.DebugHandler()
	debugMux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if !ready.Load() {
			http.Error(w, "loading", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	cfg := common.LoadTimeoutConfig(common.TimeoutConfig{
		ReadHeader: 5 * time.Second,
		Read:       30 * time.Second,
		Write:      90 * time.Second,
		Idle:       120 * time.Second,
		Shutdown:   15 * time.Second,
		Hook:       20 * time.Second,
	})
	apiServer := common.NewServerWithTimeouts(&http.Server{Addr: listenAddress, Handler: mux}, cfg)
	debugServer := common.NewServerWithTimeouts(&http.Server{Addr: debugAddress, Handler: debugMux}, cfg)

	common.RunServerWithShutdown(apiServer, debugServer,
		nodeName+" listening on "+listenAddress,
		cfg.Shutdown, cfg.Hook,
		func(ctx context.Context) error {
			queue.Flush()
			return db.SaveItems(idx.GetAllItems())
		},
		func(ctx context.Context) error {
			ws.Cache.Close()
			return ws.Tracking.Close()
		},
	)
}
