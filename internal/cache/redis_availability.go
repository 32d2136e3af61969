package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

type RedisAvailabilityCache struct {
	client *redis.Client
}

func NewRedisAvailabilityCache(client *redis.Client) AvailabilityCache {
	return &RedisAvailabilityCache{
		client: client,
	}
}

// 單一票種可售數量 key
func (c *RedisAvailabilityCache) entryKey(eventID, ticketTypeID string) string {
	return fmt.Sprintf("event:%s:availability:%s", eventID, ticketTypeID)
}

// 活動底下有快取的票種 id 集合
func (c *RedisAvailabilityCache) indexKey(eventID string) string {
	return fmt.Sprintf("event:%s:availability", eventID)
}

/*
	版本檢查與寫入放在同一個 Lua 腳本，確保原子性
	1. 快取內 version 較新或相同時不寫入
	2. 寫入數量與 version
	3. 把票種 id 加進活動的 index
*/
var putAvailabilityScript = redis.NewScript(`
	local entry_key = KEYS[1]
	local index_key = KEYS[2]

	local current = redis.call('HGET', entry_key, 'version')
	if current and tonumber(current) >= tonumber(ARGV[4]) then
		return 0
	end

	redis.call('HSET', entry_key,
		'total', ARGV[1],
		'booked', ARGV[2],
		'available', ARGV[3],
		'version', ARGV[4])
	redis.call('SADD', index_key, ARGV[5])

	return 1
`)

func (c *RedisAvailabilityCache) Put(ctx context.Context, eventID string, entry AvailabilityEntry) (bool, error) {
	keys := []string{c.entryKey(eventID, entry.TicketTypeID), c.indexKey(eventID)}
	written, err := putAvailabilityScript.Run(ctx, c.client, keys,
		entry.Total, entry.Booked, entry.Available, entry.Version, entry.TicketTypeID,
	).Int()
	if err != nil {
		return false, fmt.Errorf("put availability: %w", err)
	}
	return written == 1, nil
}

func (c *RedisAvailabilityCache) Get(ctx context.Context, eventID, ticketTypeID string) (AvailabilityEntry, error) {
	result, err := c.client.HGetAll(ctx, c.entryKey(eventID, ticketTypeID)).Result()
	if err != nil {
		return AvailabilityEntry{}, err
	}
	// 檢查 key 是否存在
	if len(result) == 0 {
		return AvailabilityEntry{}, ErrCacheMiss
	}
	return parseEntry(ticketTypeID, result)
}

func (c *RedisAvailabilityCache) GetEvent(ctx context.Context, eventID string) ([]AvailabilityEntry, error) {
	ids, err := c.client.SMembers(ctx, c.indexKey(eventID)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrCacheMiss
	}

	pipe := c.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, c.entryKey(eventID, id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	out := make([]AvailabilityEntry, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		entry, err := parseEntry(ids[i], fields)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	if len(out) == 0 {
		return nil, ErrCacheMiss
	}
	sortEntries(out)
	return out, nil
}

func (c *RedisAvailabilityCache) Invalidate(ctx context.Context, eventID string) error {
	ids, err := c.client.SMembers(ctx, c.indexKey(eventID)).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, c.entryKey(eventID, id))
	}
	keys = append(keys, c.indexKey(eventID))
	return c.client.Del(ctx, keys...).Err()
}

func parseEntry(ticketTypeID string, fields map[string]string) (AvailabilityEntry, error) {
	entry := AvailabilityEntry{TicketTypeID: ticketTypeID}
	ints := []struct {
		name string
		dst  *int
	}{
		{"total", &entry.Total},
		{"booked", &entry.Booked},
		{"available", &entry.Available},
	}
	for _, f := range ints {
		v, err := strconv.Atoi(fields[f.name])
		if err != nil {
			return AvailabilityEntry{}, fmt.Errorf("invalid %s: %v", f.name, err)
		}
		*f.dst = v
	}
	version, err := strconv.ParseInt(fields["version"], 10, 64)
	if err != nil {
		return AvailabilityEntry{}, fmt.Errorf("invalid version: %v", err)
	}
	entry.Version = version
	return entry, nil
}
