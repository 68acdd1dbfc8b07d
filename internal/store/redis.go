package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"bagel-preorder-backend/internal/capacity"
	"bagel-preorder-backend/internal/model"
)

// Key layout, all under the configured prefix:
//
//	<p>:orders:seq           INCR counter for order ids
//	<p>:order:<id>           HASH of order fields
//	<p>:orders:all           SET of every order id
//	<p>:week:<wk>            SET of order ids per week
//	<p>:bucket:<wk|day|slot> SET of capacity-occupying order ids
//	<p>:slots:<day>          LIST of slot labels
//	<p>:slots:days           SET of days with a slot list
//	<p>:push:subs            HASH endpoint -> JSON subscription

// createOrderScript admits and writes an order in one step.
// KEYS: bucket, seq, all, week. ARGV: cap, order key prefix, field/value pairs...
var createOrderScript = redis.NewScript(`
if redis.call('SCARD', KEYS[1]) >= tonumber(ARGV[1]) then
  return 0
end
local id = redis.call('INCR', KEYS[2])
redis.call('HSET', ARGV[2] .. id, 'id', id, unpack(ARGV, 3))
redis.call('SADD', KEYS[1], id)
redis.call('SADD', KEYS[3], id)
redis.call('SADD', KEYS[4], id)
return id
`)

// updateOrderScript moves an order between buckets and applies field edits.
// Returns -1 when missing, 0 when the target bucket is full, 1 on success.
// KEYS: order. ARGV: cap, bucket prefix, id, new day, new slot, override,
// freeing status 1, freeing status 2, field/value pairs...
var updateOrderScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
local cur = redis.call('HMGET', KEYS[1], 'week_key', 'day', 'slot', 'status')
local day, slot = cur[2], cur[3]
if ARGV[4] ~= '' then day = ARGV[4] end
if ARGV[5] ~= '' then slot = ARGV[5] end
local oldKey = ARGV[2] .. cur[1] .. '|' .. cur[2] .. '|' .. cur[3]
local newKey = ARGV[2] .. cur[1] .. '|' .. day .. '|' .. slot
local occupies = cur[4] ~= ARGV[7] and cur[4] ~= ARGV[8]
if occupies and newKey ~= oldKey then
  if ARGV[6] ~= '1' then
    local used = redis.call('SCARD', newKey)
    if redis.call('SISMEMBER', newKey, ARGV[3]) == 1 then
      used = used - 1
    end
    if used >= tonumber(ARGV[1]) then
      return 0
    end
  end
  redis.call('SREM', oldKey, ARGV[3])
  redis.call('SADD', newKey, ARGV[3])
end
if #ARGV > 8 then
  redis.call('HSET', KEYS[1], unpack(ARGV, 9))
end
return 1
`)

// updateStatusScript sets the status and keeps bucket membership in step.
// An order re-entering its bucket is admitted only while there is room.
// Returns -1 when missing, 0 when the bucket is full, 1 on success.
// KEYS: order. ARGV: bucket prefix, id, status, occupies (1/0), cap.
var updateStatusScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
local cur = redis.call('HMGET', KEYS[1], 'week_key', 'day', 'slot')
local bucket = ARGV[1] .. cur[1] .. '|' .. cur[2] .. '|' .. cur[3]
if ARGV[4] == '1' then
  if redis.call('SISMEMBER', bucket, ARGV[2]) == 0 then
    if redis.call('SCARD', bucket) >= tonumber(ARGV[5]) then
      return 0
    end
    redis.call('SADD', bucket, ARGV[2])
  end
else
  redis.call('SREM', bucket, ARGV[2])
end
redis.call('HSET', KEYS[1], 'status', ARGV[3])
return 1
`)

// deleteOrderScript removes an order and every index entry.
// KEYS: order, all. ARGV: bucket prefix, week prefix, id.
var deleteOrderScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
local cur = redis.call('HMGET', KEYS[1], 'week_key', 'day', 'slot')
redis.call('SREM', ARGV[1] .. cur[1] .. '|' .. cur[2] .. '|' .. cur[3], ARGV[3])
redis.call('SREM', ARGV[2] .. cur[1], ARGV[3])
redis.call('SREM', KEYS[2], ARGV[3])
redis.call('DEL', KEYS[1])
return 1
`)

// deleteWeekScript removes every order of a week.
// KEYS: week, all. ARGV: bucket prefix, order key prefix.
var deleteWeekScript = redis.NewScript(`
local ids = redis.call('SMEMBERS', KEYS[1])
for _, id in ipairs(ids) do
  local key = ARGV[2] .. id
  local cur = redis.call('HMGET', key, 'week_key', 'day', 'slot')
  if cur[1] then
    redis.call('SREM', ARGV[1] .. cur[1] .. '|' .. cur[2] .. '|' .. cur[3], id)
  end
  redis.call('DEL', key)
  redis.call('SREM', KEYS[2], id)
end
redis.call('DEL', KEYS[1])
return #ids
`)

// redisStore implements the Store interface on redis hashes and sets.
type redisStore struct {
	client  *redis.Client
	prefix  string
	gate    *capacity.Gate
	timeout time.Duration
}

// NewRedisStore creates a store keeping its data under prefix.
func NewRedisStore(client *redis.Client, prefix string, gate *capacity.Gate, timeout time.Duration) Store {
	return &redisStore{client: client, prefix: prefix, gate: gate, timeout: timeout}
}

func (s *redisStore) CreateOrder(ctx context.Context, o *model.Order) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if o.Status == "" {
		o.Status = model.StatusQueued
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	fields, err := encodeOrder(o)
	if err != nil {
		return err
	}

	keys := []string{s.bucketKey(o.Bucket()), s.key("orders:seq"), s.key("orders:all"), s.weekKey(o.WeekKey)}
	args := append([]any{s.gate.Capacity(), s.key("order:")}, fields...)
	id, err := createOrderScript.Run(ctx, s.client, keys, args...).Int64()
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	if id == 0 {
		return capacity.ErrSlotSoldOut
	}
	o.ID = id
	return nil
}

func (s *redisStore) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	m, err := s.client.HGetAll(ctx, s.orderKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load order %d: %w", id, err)
	}
	if len(m) == 0 {
		return nil, ErrNotFound
	}
	return decodeOrder(m)
}

func (s *redisStore) ListOrders(ctx context.Context, f OrderFilter) ([]model.Order, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	f = f.Normalized()
	index := s.key("orders:all")
	if f.WeekKey != "" {
		index = s.weekKey(f.WeekKey)
	}
	ids, err := s.client.SMembers(ctx, index).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.key("order:"+id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := make([]model.Order, 0, len(ids))
	for _, cmd := range cmds {
		m := cmd.Val()
		if len(m) == 0 {
			continue
		}
		o, err := decodeOrder(m)
		if err != nil {
			return nil, err
		}
		if f.Matches(o) {
			orders = append(orders, *o)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		a, b := orders[i], orders[j]
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	if len(orders) > f.Limit {
		orders = orders[:f.Limit]
	}
	return orders, nil
}

func (s *redisStore) UpdateOrder(ctx context.Context, id int64, upd OrderUpdate) (*model.Order, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var day, slot, override string
	var fields []any
	if upd.Day != nil {
		day = *upd.Day
		fields = append(fields, "day", day)
	}
	if upd.Slot != nil {
		slot = *upd.Slot
		fields = append(fields, "slot", slot)
	}
	if upd.Item != nil {
		fields = append(fields, "item", *upd.Item)
	}
	if upd.KitchenNotes != nil {
		fields = append(fields, "kitchen_notes", *upd.KitchenNotes)
	}
	override = "0"
	if upd.OverrideCapacity {
		override = "1"
	}

	freeing := s.gate.FreeingStatuses()
	args := []any{s.gate.Capacity(), s.key("bucket:"), id, day, slot, override, freeing[0], freeing[1]}
	res, err := updateOrderScript.Run(ctx, s.client, []string{s.orderKey(id)}, append(args, fields...)...).Int64()
	if err != nil {
		return nil, fmt.Errorf("failed to update order %d: %w", id, err)
	}
	switch res {
	case -1:
		return nil, ErrNotFound
	case 0:
		return nil, capacity.ErrSlotSoldOut
	}
	return s.GetOrder(ctx, id)
}

func (s *redisStore) UpdateStatus(ctx context.Context, id int64, status string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	occupies := "0"
	if s.gate.Occupies(status) {
		occupies = "1"
	}
	res, err := updateStatusScript.Run(ctx, s.client, []string{s.orderKey(id)},
		s.key("bucket:"), id, status, occupies, s.gate.Capacity()).Int64()
	if err != nil {
		return fmt.Errorf("failed to update status of order %d: %w", id, err)
	}
	switch res {
	case -1:
		return ErrNotFound
	case 0:
		return capacity.ErrSlotSoldOut
	}
	return nil
}

func (s *redisStore) DeleteOrder(ctx context.Context, id int64) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	res, err := deleteOrderScript.Run(ctx, s.client, []string{s.orderKey(id), s.key("orders:all")},
		s.key("bucket:"), s.key("week:"), id).Int64()
	if err != nil {
		return fmt.Errorf("failed to delete order %d: %w", id, err)
	}
	if res == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *redisStore) DeleteWeek(ctx context.Context, weekKey string) (int64, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	n, err := deleteWeekScript.Run(ctx, s.client, []string{s.weekKey(weekKey), s.key("orders:all")},
		s.key("bucket:"), s.key("order:")).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to delete week %s: %w", weekKey, err)
	}
	return n, nil
}

func (s *redisStore) CountBucket(ctx context.Context, b model.Bucket, excludeID int64) (int64, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	key := s.bucketKey(b)
	var card *redis.IntCmd
	var member *redis.BoolCmd
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		card = pipe.SCard(ctx, key)
		if excludeID != 0 {
			member = pipe.SIsMember(ctx, key, excludeID)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count bucket %s: %w", b, err)
	}
	n := card.Val()
	if member != nil && member.Val() {
		n--
	}
	return n, nil
}

func (s *redisStore) SeedSlots(ctx context.Context, slots []model.TimeSlot) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	rows := append([]model.TimeSlot(nil), slots...)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Day != rows[j].Day {
			return rows[i].Day < rows[j].Day
		}
		return rows[i].Position < rows[j].Position
	})

	daysKey := s.key("slots:days")
	oldDays, err := s.client.SMembers(ctx, daysKey).Result()
	if err != nil {
		return fmt.Errorf("failed to seed time slots: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, d := range oldDays {
			pipe.Del(ctx, s.slotsKey(d))
		}
		pipe.Del(ctx, daysKey)
		for _, r := range rows {
			pipe.RPush(ctx, s.slotsKey(r.Day), r.Slot)
			pipe.SAdd(ctx, daysKey, r.Day)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to seed time slots: %w", err)
	}
	return nil
}

func (s *redisStore) ListSlots(ctx context.Context, day string) ([]string, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	slots, err := s.client.LRange(ctx, s.slotsKey(day), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list slots for %s: %w", day, err)
	}
	return slots, nil
}

func (s *redisStore) SaveSubscription(ctx context.Context, sub *model.PushSubscription) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	key := s.key("push:subs")
	if prev, err := s.client.HGet(ctx, key, sub.Endpoint).Result(); err == nil {
		var old model.PushSubscription
		if json.Unmarshal([]byte(prev), &old) == nil {
			sub.CreatedAt = old.CreatedAt
		}
	} else if !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}

	b, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	if err := s.client.HSet(ctx, key, sub.Endpoint, b).Err(); err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

func (s *redisStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.client.HDel(ctx, s.key("push:subs"), endpoint).Result()
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *redisStore) ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	vals, err := s.client.HVals(ctx, s.key("push:subs")).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	subs := make([]model.PushSubscription, 0, len(vals))
	for _, v := range vals {
		var sub model.PushSubscription
		if err := json.Unmarshal([]byte(v), &sub); err != nil {
			return nil, fmt.Errorf("failed to decode subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].Endpoint < subs[j].Endpoint })
	return subs, nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}

// --- Keys ---

func (s *redisStore) key(suffix string) string { return s.prefix + ":" + suffix }

func (s *redisStore) orderKey(id int64) string {
	return s.key("order:" + strconv.FormatInt(id, 10))
}

func (s *redisStore) weekKey(wk string) string { return s.key("week:" + wk) }

func (s *redisStore) bucketKey(b model.Bucket) string { return s.key("bucket:" + b.String()) }

func (s *redisStore) slotsKey(day string) string { return s.key("slots:" + day) }

// --- Encoding ---

func encodeOrder(o *model.Order) ([]any, error) {
	opts, err := json.Marshal(o.Options)
	if err != nil {
		return nil, fmt.Errorf("encode options: %w", err)
	}
	if o.Options == nil {
		opts = []byte("{}")
	}
	paid := "0"
	if o.PaymentReady {
		paid = "1"
	}
	return []any{
		"created_at", o.CreatedAt.UTC().Format(time.RFC3339Nano),
		"day", o.Day,
		"slot", o.Slot,
		"item", o.Item,
		"options", string(opts),
		"name", o.Name,
		"building_room", o.BuildingRoom,
		"phone", o.Phone,
		"notes", o.Notes,
		"payment_ready", paid,
		"total_cents", o.TotalCents,
		"week_key", o.WeekKey,
		"status", o.Status,
		"kitchen_notes", o.KitchenNotes,
	}, nil
}

func decodeOrder(m map[string]string) (*model.Order, error) {
	id, err := strconv.ParseInt(m["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode order id %q: %w", m["id"], err)
	}
	o := &model.Order{
		ID:           id,
		Day:          m["day"],
		Slot:         m["slot"],
		Item:         m["item"],
		Name:         m["name"],
		BuildingRoom: m["building_room"],
		Phone:        m["phone"],
		Notes:        m["notes"],
		PaymentReady: m["payment_ready"] == "1",
		WeekKey:      m["week_key"],
		Status:       m["status"],
		KitchenNotes: m["kitchen_notes"],
	}
	if v := m["total_cents"]; v != "" {
		if o.TotalCents, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("decode order %d total: %w", id, err)
		}
	}
	if v := m["created_at"]; v != "" {
		if o.CreatedAt, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return nil, fmt.Errorf("decode order %d created_at: %w", id, err)
		}
	}
	if err := o.Options.Scan(m["options"]); err != nil {
		return nil, fmt.Errorf("decode order %d: %w", id, err)
	}
	return o, nil
}
