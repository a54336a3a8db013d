package seats

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// AtomicSeatOps executes the seat-state transitions that must be atomic:
// multi-seat hold, release, confirm and sweep. Each transition is one Lua
// script, so concurrent callers can never observe a partial batch.
type AtomicSeatOps struct {
	redis *redis.Client
}

func NewAtomicSeatOps(redisClient *redis.Client) *AtomicSeatOps {
	return &AtomicSeatOps{redis: redisClient}
}

// seatRef binds a seat code to its bitmap offset and hold key for one function.
type seatRef struct {
	Code    string
	Offset  int64
	HoldKey string
}

// holdOutcome reports a successful hold batch. Fresh lists the seats this
// call actually wrote; seats already held by the same user are reused and
// keep their original TTL.
type holdOutcome struct {
	ExpiresIn time.Duration
	Fresh     []seatRef
}

// Check-and-set for a batch of seats. A set bit with a live hold key is a
// hold, a set bit without one is a sale. Seats already held by the
// requesting user are reused, everything else with a set bit is a conflict
// and nothing is written.
const luaSeatHold = `
-- KEYS[1]    = bitmap key
-- KEYS[2..]  = hold key per seat
-- ARGV[1]    = requesting user id
-- ARGV[2]    = hold payload (json)
-- ARGV[3]    = ttl seconds
-- ARGV[4..]  = bit offset per seat, aligned with KEYS[2..]

local user = ARGV[1]
local payload = ARGV[2]
local ttl = tonumber(ARGV[3])
local owned = '"user":"' .. user .. '"'

local conflicts = {}
local fresh = {}
local min_ttl = -1

for i = 2, #KEYS do
    local offset = tonumber(ARGV[i + 2])
    if redis.call("GETBIT", KEYS[1], offset) == 1 then
        local hold = redis.call("GET", KEYS[i])
        if not hold then
            conflicts[#conflicts + 1] = i - 1
            conflicts[#conflicts + 1] = "sold"
        elseif string.find(hold, owned, 1, true) then
            local remaining = redis.call("TTL", KEYS[i])
            if min_ttl < 0 or remaining < min_ttl then
                min_ttl = remaining
            end
        else
            conflicts[#conflicts + 1] = i - 1
            conflicts[#conflicts + 1] = "held"
        end
    else
        fresh[#fresh + 1] = i
    end
end

if #conflicts > 0 then
    local out = {0}
    for j = 1, #conflicts do
        out[#out + 1] = conflicts[j]
    end
    return out
end

if #fresh > 0 and (min_ttl < 0 or ttl < min_ttl) then
    min_ttl = ttl
end

local out = {1, min_ttl}
for j = 1, #fresh do
    local i = fresh[j]
    redis.call("SETBIT", KEYS[1], tonumber(ARGV[i + 2]), 1)
    redis.call("SETEX", KEYS[i], ttl, payload)
    out[#out + 1] = i - 1
end
return out
`

// Releases the caller's holds. Seats not held by the caller are skipped, so
// a double release and a release racing a TTL expiry are both safe. Sold
// seats have no hold key and are never touched.
const luaSeatRelease = `
-- KEYS[1]   = bitmap key
-- KEYS[2..] = hold key per seat
-- ARGV[1]   = requesting user id
-- ARGV[2..] = bit offset per seat, aligned with KEYS[2..]

local owned = '"user":"' .. ARGV[1] .. '"'
local released = {}

for i = 2, #KEYS do
    local hold = redis.call("GET", KEYS[i])
    if hold and string.find(hold, owned, 1, true) then
        redis.call("DEL", KEYS[i])
        redis.call("SETBIT", KEYS[1], tonumber(ARGV[i]), 0)
        released[#released + 1] = i - 1
    end
end
return released
`

// Converts the caller's holds into sales by deleting the hold keys while the
// bits stay set. All-or-nothing: if any seat is no longer held by the caller
// the whole batch is rejected and the lost seats are reported.
const luaSeatConfirm = `
-- KEYS[1..] = hold key per seat
-- ARGV[1]   = requesting user id

local owned = '"user":"' .. ARGV[1] .. '"'
local lost = {}

for i = 1, #KEYS do
    local hold = redis.call("GET", KEYS[i])
    if not hold or not string.find(hold, owned, 1, true) then
        lost[#lost + 1] = i
    end
end

if #lost > 0 then
    local out = {0}
    for j = 1, #lost do
        out[#out + 1] = lost[j]
    end
    return out
end

for i = 1, #KEYS do
    redis.call("DEL", KEYS[i])
end
return {1}
`

// Clears the bits of expired holds. Candidates whose hold key is still alive
// are left alone; the cache TTL decides expiry, the bitmap only follows.
const luaSeatSweep = `
-- KEYS[1]   = bitmap key
-- KEYS[2..] = hold key per candidate seat
-- ARGV[1..] = bit offset per seat, aligned with KEYS[2..]

local swept = {}

for i = 2, #KEYS do
    if redis.call("EXISTS", KEYS[i]) == 0 then
        local offset = tonumber(ARGV[i - 1])
        if redis.call("GETBIT", KEYS[1], offset) == 1 then
            redis.call("SETBIT", KEYS[1], offset, 0)
        end
        swept[#swept + 1] = i - 1
    end
end
return swept
`

var (
	holdScript    = redis.NewScript(luaSeatHold)
	releaseScript = redis.NewScript(luaSeatRelease)
	confirmScript = redis.NewScript(luaSeatConfirm)
	sweepScript   = redis.NewScript(luaSeatSweep)
)

// HoldSeats atomically holds a batch of seats for a user. It returns
// SeatUnavailableError with the full conflict set when any seat is taken by
// someone else; holds the user already owns are reused.
func (a *AtomicSeatOps) HoldSeats(ctx context.Context, bitmapKey string, seats []seatRef, userID, payload string, ttl time.Duration) (*holdOutcome, error) {
	if a.redis == nil {
		return nil, fmt.Errorf("redis client not available")
	}

	keys := make([]string, 0, len(seats)+1)
	keys = append(keys, bitmapKey)
	args := make([]interface{}, 0, len(seats)+3)
	args = append(args, userID, payload, strconv.Itoa(int(ttl.Seconds())))
	for _, seat := range seats {
		keys = append(keys, seat.HoldKey)
		args = append(args, seat.Offset)
	}

	result, err := holdScript.Run(ctx, a.redis, keys, args...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to execute atomic seat hold: %w", err)
	}

	resultArray, ok := result.([]interface{})
	if !ok || len(resultArray) == 0 {
		return nil, fmt.Errorf("unexpected result format from seat hold script")
	}

	flag, ok := resultArray[0].(int64)
	if !ok {
		return nil, fmt.Errorf("invalid success flag in seat hold result")
	}

	if flag == 0 {
		conflicts, err := parseConflicts(resultArray[1:], seats)
		if err != nil {
			return nil, err
		}
		return nil, &SeatUnavailableError{Conflicts: conflicts}
	}

	if len(resultArray) < 2 {
		return nil, fmt.Errorf("unexpected result format from seat hold script")
	}
	minTTL, ok := resultArray[1].(int64)
	if !ok {
		return nil, fmt.Errorf("invalid ttl in seat hold result")
	}

	outcome := &holdOutcome{ExpiresIn: time.Duration(minTTL) * time.Second}
	for _, raw := range resultArray[2:] {
		idx, ok := raw.(int64)
		if !ok || idx < 1 || int(idx) > len(seats) {
			return nil, fmt.Errorf("invalid seat index in seat hold result")
		}
		outcome.Fresh = append(outcome.Fresh, seats[idx-1])
	}
	return outcome, nil
}

// ReleaseSeats atomically releases the user's holds and returns the seats
// that were actually released. Seats held by others or not held at all are
// skipped.
func (a *AtomicSeatOps) ReleaseSeats(ctx context.Context, bitmapKey string, seats []seatRef, userID string) ([]seatRef, error) {
	if a.redis == nil {
		return nil, fmt.Errorf("redis client not available")
	}

	keys := make([]string, 0, len(seats)+1)
	keys = append(keys, bitmapKey)
	args := make([]interface{}, 0, len(seats)+1)
	args = append(args, userID)
	for _, seat := range seats {
		keys = append(keys, seat.HoldKey)
		args = append(args, seat.Offset)
	}

	result, err := releaseScript.Run(ctx, a.redis, keys, args...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to execute atomic seat release: %w", err)
	}

	return parseSeatIndexes(result, seats, "seat release")
}

// ConfirmSeats converts the user's holds into permanent sales. It fails with
// HoldLostError when any requested seat is no longer held by the user.
func (a *AtomicSeatOps) ConfirmSeats(ctx context.Context, seats []seatRef, userID string) error {
	if a.redis == nil {
		return fmt.Errorf("redis client not available")
	}

	keys := make([]string, 0, len(seats))
	for _, seat := range seats {
		keys = append(keys, seat.HoldKey)
	}

	result, err := confirmScript.Run(ctx, a.redis, keys, userID).Result()
	if err != nil {
		return fmt.Errorf("failed to execute atomic seat confirm: %w", err)
	}

	resultArray, ok := result.([]interface{})
	if !ok || len(resultArray) == 0 {
		return fmt.Errorf("unexpected result format from seat confirm script")
	}

	flag, ok := resultArray[0].(int64)
	if !ok {
		return fmt.Errorf("invalid success flag in seat confirm result")
	}
	if flag == 1 {
		return nil
	}

	lost := make([]string, 0, len(resultArray)-1)
	for _, raw := range resultArray[1:] {
		idx, ok := raw.(int64)
		if !ok || idx < 1 || int(idx) > len(seats) {
			return fmt.Errorf("invalid seat index in seat confirm result")
		}
		lost = append(lost, seats[idx-1].Code)
	}
	return &HoldLostError{Seats: lost}
}

// SweepSeats clears the bitmap bits of candidate seats whose hold keys have
// expired and returns the seats that were swept.
func (a *AtomicSeatOps) SweepSeats(ctx context.Context, bitmapKey string, seats []seatRef) ([]seatRef, error) {
	if a.redis == nil {
		return nil, fmt.Errorf("redis client not available")
	}

	keys := make([]string, 0, len(seats)+1)
	keys = append(keys, bitmapKey)
	args := make([]interface{}, 0, len(seats))
	for _, seat := range seats {
		keys = append(keys, seat.HoldKey)
		args = append(args, seat.Offset)
	}

	result, err := sweepScript.Run(ctx, a.redis, keys, args...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to execute atomic seat sweep: %w", err)
	}

	return parseSeatIndexes(result, seats, "seat sweep")
}

// SeatStates reads the bitmap bit and hold record of every seat in one
// round trip. A missing hold is returned as a nil record. The read is a
// point-in-time snapshot and takes no lock.
func (a *AtomicSeatOps) SeatStates(ctx context.Context, bitmapKey string, seats []seatRef) ([]int64, []*HoldRecord, error) {
	if a.redis == nil {
		return nil, nil, fmt.Errorf("redis client not available")
	}

	pipe := a.redis.Pipeline()
	bitCmds := make([]*redis.IntCmd, len(seats))
	holdKeys := make([]string, len(seats))
	for i, seat := range seats {
		bitCmds[i] = pipe.GetBit(ctx, bitmapKey, seat.Offset)
		holdKeys[i] = seat.HoldKey
	}
	mgetCmd := pipe.MGet(ctx, holdKeys...)

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, nil, fmt.Errorf("failed to read seat states: %w", err)
	}

	bits := make([]int64, len(seats))
	for i, cmd := range bitCmds {
		bits[i] = cmd.Val()
	}

	holds := make([]*HoldRecord, len(seats))
	for i, raw := range mgetCmd.Val() {
		if raw == nil {
			continue
		}
		value, ok := raw.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected hold value type for seat %s", seats[i].Code)
		}
		var record HoldRecord
		if err := json.Unmarshal([]byte(value), &record); err != nil {
			return nil, nil, fmt.Errorf("failed to decode hold record for seat %s: %w", seats[i].Code, err)
		}
		holds[i] = &record
	}

	return bits, holds, nil
}

// rebuildHold is one live hold to restore during a bitmap rebuild.
type rebuildHold struct {
	Ref       seatRef
	Payload   string
	ExpiresIn time.Duration
}

// RebuildFunction rewrites the bitmap and hold keys of a function from
// durable state. Runs as a single transaction so readers never observe a
// half-rebuilt map.
func (a *AtomicSeatOps) RebuildFunction(ctx context.Context, bitmapKey string, sold []seatRef, holds []rebuildHold) error {
	if a.redis == nil {
		return fmt.Errorf("redis client not available")
	}

	pipe := a.redis.TxPipeline()
	pipe.Del(ctx, bitmapKey)
	for _, seat := range sold {
		pipe.SetBit(ctx, bitmapKey, seat.Offset, 1)
	}
	for _, hold := range holds {
		ttl := hold.ExpiresIn
		if ttl < time.Second {
			ttl = time.Second
		}
		pipe.SetBit(ctx, bitmapKey, hold.Ref.Offset, 1)
		pipe.Set(ctx, hold.Ref.HoldKey, hold.Payload, ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to rebuild seat state: %w", err)
	}
	return nil
}

// PreloadScripts loads the seat and lock scripts into the Redis script cache
// so the first hold of the day does not pay the load round trip.
func (a *AtomicSeatOps) PreloadScripts(ctx context.Context) error {
	if a.redis == nil {
		return fmt.Errorf("redis client not available")
	}

	scripts := []*redis.Script{holdScript, releaseScript, confirmScript, sweepScript, unlockScript, renewScript}
	for _, script := range scripts {
		if err := script.Load(ctx, a.redis).Err(); err != nil {
			return fmt.Errorf("failed to preload seat script: %w", err)
		}
	}
	return nil
}

func parseConflicts(raw []interface{}, seats []seatRef) ([]SeatConflict, error) {
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("unexpected conflict list length")
	}
	conflicts := make([]SeatConflict, 0, len(raw)/2)
	for i := 0; i < len(raw); i += 2 {
		idx, ok := raw[i].(int64)
		if !ok || idx < 1 || int(idx) > len(seats) {
			return nil, fmt.Errorf("invalid seat index in conflict list")
		}
		state, ok := raw[i+1].(string)
		if !ok {
			return nil, fmt.Errorf("invalid seat state in conflict list")
		}
		conflicts = append(conflicts, SeatConflict{Code: seats[idx-1].Code, State: state})
	}
	return conflicts, nil
}

func parseSeatIndexes(result interface{}, seats []seatRef, op string) ([]seatRef, error) {
	resultArray, ok := result.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected result format from %s script", op)
	}
	refs := make([]seatRef, 0, len(resultArray))
	for _, raw := range resultArray {
		idx, ok := raw.(int64)
		if !ok || idx < 1 || int(idx) > len(seats) {
			return nil, fmt.Errorf("invalid seat index in %s result", op)
		}
		refs = append(refs, seats[idx-1])
	}
	return refs, nil
}
