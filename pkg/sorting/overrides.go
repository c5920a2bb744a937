package sorting

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/stenmark/stone-finder/pkg/types"
)

const (
	RedisPopularKey    = "_popular"
	RedisPopularChange = "popularChange"
	RedisStaticKey     = "_staticPositions"
	RedisStaticChange  = "staticPositionsChange"
)

func GetOverrideFromKey(rdb *redis.Client, key string) (*types.SortOverride, error) {
	data, err := rdb.Get(context.Background(), key).Result()
	if err != nil {
		return nil, err
	}
	sortOverride := types.SortOverride{}
	err = sortOverride.FromString(data)
	return &sortOverride, err
}

func GetStaticPositionsFromKey(rdb *redis.Client, key string) (*StaticPositions, error) {
	data, err := rdb.Get(context.Background(), key).Result()
	if err != nil {
		return nil, err
	}
	statics := StaticPositions{}
	err = statics.FromString(data)
	return &statics, err
}

// ListenForSortOverride re-reads key whenever anything is published on
// channel. The payload itself is ignored, redis only carries the nudge.
func ListenForSortOverride(rdb *redis.Client, channel string, key string, fn func(sortOverride *types.SortOverride)) {
	ctx := context.Background()
	go func(sub *redis.PubSub) {
		for {
			_, err := sub.ReceiveMessage(ctx)
			if err != nil {
				log.Println("Error receiving sort override message", err)
				return
			}
			sortOverride, err := GetOverrideFromKey(rdb, key)
			if err != nil {
				log.Println(err)
				continue
			}
			fn(sortOverride)
		}
	}(rdb.Subscribe(ctx, channel))
}

func ListenForStaticPositions(rdb *redis.Client, channel string, key string, fn func(statics *StaticPositions)) {
	ctx := context.Background()
	go func(sub *redis.PubSub) {
		for {
			_, err := sub.ReceiveMessage(ctx)
			if err != nil {
				log.Println("Error receiving static positions message", err)
				return
			}
			statics, err := GetStaticPositionsFromKey(rdb, key)
			if err != nil {
				log.Println(err)
				continue
			}
			fn(statics)
		}
	}(rdb.Subscribe(ctx, channel))
}

// ConnectOverrides loads the merchandising data from redis and keeps it
// fresh through the change channels.
func (h *SortingItemHandler) ConnectOverrides(rdb *redis.Client) {
	if popular, err := GetOverrideFromKey(rdb, RedisPopularKey); err == nil {
		h.HandleSortOverrideUpdate(types.SortOverrideUpdate{Key: PopularSort, Data: *popular})
	}
	if statics, err := GetStaticPositionsFromKey(rdb, RedisStaticKey); err == nil {
		h.SetStaticPositions(*statics)
	}
	ListenForSortOverride(rdb, RedisPopularChange, RedisPopularKey, func(sortOverride *types.SortOverride) {
		h.HandleSortOverrideUpdate(types.SortOverrideUpdate{Key: PopularSort, Data: *sortOverride})
	})
	ListenForStaticPositions(rdb, RedisStaticChange, RedisStaticKey, func(statics *StaticPositions) {
		h.SetStaticPositions(*statics)
	})
}

// PublishPopularOverride writes the override to redis and nudges every
// listening node, this one included.
func PublishPopularOverride(rdb *redis.Client, sortOverride *types.SortOverride) error {
	ctx := context.Background()
	if err := rdb.Set(ctx, RedisPopularKey, sortOverride.ToString(), 0).Err(); err != nil {
		return err
	}
	return rdb.Publish(ctx, RedisPopularChange, "external").Err()
}

func PublishStaticPositions(rdb *redis.Client, statics *StaticPositions) error {
	ctx := context.Background()
	if err := rdb.Set(ctx, RedisStaticKey, statics.ToString(), 0).Err(); err != nil {
		return err
	}
	return rdb.Publish(ctx, RedisStaticChange, "external").Err()
}
