package notify

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	firebase "firebase.google.com/go/v4"
	fcm "firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/stenmark/stone-finder/pkg/messaging"
	"github.com/stenmark/stone-finder/pkg/types"
)

const priceWatchesFile = "price_watches.json"

// PriceWatch ties one push token to one stone.
type PriceWatch struct {
	StoneId   types.ItemId `json:"stoneId"`
	Token     string       `json:"token"`
	CreatedAt time.Time    `json:"createdAt"`
}

// PriceWatcher keeps the registered watches on disk and pushes an FCM
// message to every watching token when a stone gets cheaper. Push failures
// are logged, a broken token never fails the flow that triggered the send.
type PriceWatcher struct {
	mu      sync.RWMutex
	storage types.StorageProvider
	Watches []PriceWatch `json:"watches"`

	clientOnce sync.Once
	client     *fcm.Client
	clientErr  error
	push       func(ctx context.Context, token string, notification *fcm.Notification, data map[string]string) error
}

func NewPriceWatcher(storage types.StorageProvider) *PriceWatcher {
	p := &PriceWatcher{
		storage: storage,
		Watches: []PriceWatch{},
	}
	p.push = p.sendFirebaseNotification
	err := storage.LoadJson(p, priceWatchesFile)
	if err != nil && !os.IsNotExist(err) {
		log.Printf("Error loading price watches: %v", err)
	}
	if p.Watches == nil {
		p.Watches = []PriceWatch{}
	}
	return p
}

// Watch registers token for price drops on stoneId. A watch that already
// exists for the same pair is refreshed. The confirmation push proves the
// token works, its failure is logged but does not undo the watch.
func (p *PriceWatcher) Watch(ctx context.Context, stoneId types.ItemId, token string) error {
	if token == "" {
		return fmt.Errorf("subscription token is required")
	}

	newWatch := PriceWatch{
		StoneId:   stoneId,
		Token:     token,
		CreatedAt: time.Now(),
	}

	p.mu.Lock()
	watchIndex := -1
	for i, watch := range p.Watches {
		if watch.StoneId == stoneId && watch.Token == token {
			watchIndex = i
			break
		}
	}
	if watchIndex >= 0 {
		p.Watches[watchIndex] = newWatch
	} else {
		p.Watches = append(p.Watches, newWatch)
	}
	err := p.storage.SaveJson(p, priceWatchesFile)
	p.mu.Unlock()
	if err != nil {
		return err
	}

	err = p.push(ctx, token, &fcm.Notification{
		Title: "Price watch activated",
		Body:  fmt.Sprintf("You will be notified when the price of stone %d drops.", stoneId),
	}, map[string]string{
		"stoneId": fmt.Sprintf("%d", stoneId),
		"type":    "confirmation",
		"tag":     "price-watch-confirmation",
	})
	if err != nil {
		log.Printf("Error sending confirmation push: %v", err)
	}
	return nil
}

// Len reports the number of registered watches.
func (p *PriceWatcher) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.Watches)
}

// NotifyLowered pushes the drop to every token watching the stone.
func (p *PriceWatcher) NotifyLowered(ctx context.Context, drop *messaging.PriceDrop) {
	p.mu.RLock()
	watching := make([]PriceWatch, 0)
	for _, watch := range p.Watches {
		if watch.StoneId == drop.Id {
			watching = append(watching, watch)
		}
	}
	p.mu.RUnlock()

	for _, watch := range watching {
		notification := &fcm.Notification{
			Title: fmt.Sprintf("Price drop for %s", drop.Title),
			Body:  fmt.Sprintf("The price is now %.2f, down from %.2f", float64(drop.NewPrice)/100, float64(drop.OldPrice)/100),
		}
		data := map[string]string{
			"stoneId":  fmt.Sprintf("%d", drop.Id),
			"sku":      drop.Sku,
			"type":     "price-drop",
			"newPrice": fmt.Sprintf("%.2f", float64(drop.NewPrice)/100),
		}
		err := p.push(ctx, watch.Token, notification, data)
		if err != nil {
			log.Printf("Failed to send price drop notification for stone %d to token %s: %v", watch.StoneId, watch.Token, err)
		}
	}
}

func (p *PriceWatcher) firebaseClient(ctx context.Context) (*fcm.Client, error) {
	p.clientOnce.Do(func() {
		// GOOGLE_APPLICATION_CREDENTIALS should be set in the environment,
		// otherwise the default application credentials are used.
		var app *firebase.App
		var err error
		if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" {
			opt := option.WithCredentialsFile(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
			app, err = firebase.NewApp(ctx, nil, opt)
		} else {
			app, err = firebase.NewApp(ctx, nil)
		}
		if err != nil {
			p.clientErr = err
			return
		}
		p.client, p.clientErr = app.Messaging(ctx)
	})
	return p.client, p.clientErr
}

func (p *PriceWatcher) sendFirebaseNotification(ctx context.Context, token string, notification *fcm.Notification, data map[string]string) error {
	client, err := p.firebaseClient(ctx)
	if err != nil {
		log.Printf("error getting Messaging client: %v", err)
		return err
	}

	response, err := client.Send(ctx, &fcm.Message{
		Notification: notification,
		Data:         data,
		Token:        token,
	})
	if err != nil {
		return err
	}
	log.Printf("Successfully sent message: %s", response)
	return nil
}
