package dresscode

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/roombox/internal/rooms"
	"github.com/Seednode/roombox/internal/store"
)

const testPhoto = "data:image/jpeg;base64,dGVzdA=="

func newTestService() (*Service, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	kernel := rooms.NewKernel(store.NewMemory(), clock, rooms.DefaultTTL)
	return NewService(kernel), clock
}

func createTestRoom(t *testing.T, svc *Service) Room {
	t.Helper()

	room, err := svc.Create(context.Background(), "Gala Night")
	require.NoError(t, err)
	return room
}

func TestCreateRoom(t *testing.T) {
	svc, clock := newTestService()

	room := createTestRoom(t, svc)

	assert.Len(t, room.Code, rooms.CodeLength)
	assert.Equal(t, "Gala Night", room.HostName)
	assert.Equal(t, clock.Now().Add(rooms.DefaultTTL), room.ExpiresAt)
	assert.Empty(t, room.Submissions)
	assert.Empty(t, room.Votes)
}

func TestJoinByCodeRejectsCompletedButGetByCodeDoesNot(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	room := createTestRoom(t, svc)

	_, err := svc.Complete(ctx, room.Code)
	require.NoError(t, err)

	_, err = svc.JoinByCode(ctx, room.Code)
	assert.ErrorIs(t, err, rooms.ErrNotFound)

	// Late arrivals can still load the results page by code.
	got, err := svc.GetByCode(ctx, room.Code)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)
}

func TestSubmitEntryOverwritesInPlace(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	room := createTestRoom(t, svc)

	require.NoError(t, svc.SubmitEntry(ctx, room.Code, "device-1", "Dana", testPhoto, "first try"))
	require.NoError(t, svc.SubmitEntry(ctx, room.Code, "device-2", "Eli", testPhoto, ""))
	require.NoError(t, svc.SubmitEntry(ctx, room.Code, "device-1", "Dana", testPhoto, "better outfit"))

	got, err := svc.GetByCode(ctx, room.Code)
	require.NoError(t, err)
	require.Len(t, got.Submissions, 2)
	assert.Equal(t, "device-1", got.Submissions[0].DeviceID)
	assert.Equal(t, "better outfit", got.Submissions[0].Message)
	assert.Equal(t, "device-2", got.Submissions[1].DeviceID)
}

func TestSubmitEntryValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	room := createTestRoom(t, svc)

	assert.True(t, rooms.IsValidation(svc.SubmitEntry(ctx, room.Code, "", "Dana", testPhoto, "")))
	assert.True(t, rooms.IsValidation(svc.SubmitEntry(ctx, room.Code, "device-1", "  ", testPhoto, "")))
	assert.True(t, rooms.IsValidation(svc.SubmitEntry(ctx, room.Code, "device-1", "Dana", "", "")))
}

func TestValidatePhoto(t *testing.T) {
	assert.NoError(t, ValidatePhoto(testPhoto))
	assert.True(t, rooms.IsValidation(ValidatePhoto("")))
	assert.True(t, rooms.IsValidation(ValidatePhoto("https://example.com/photo.jpg")))
	assert.True(t, rooms.IsValidation(ValidatePhoto("data:text/plain;base64,dGVzdA==")))

	oversized := "data:image/jpeg;base64," + strings.Repeat("A", MaxPhotoBytes)
	assert.True(t, rooms.IsValidation(ValidatePhoto(oversized)))
}

func TestSubmitVotesSingleShot(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	room := createTestRoom(t, svc)

	require.NoError(t, svc.SubmitEntry(ctx, room.Code, "device-1", "Dana", testPhoto, ""))
	require.NoError(t, svc.SubmitEntry(ctx, room.Code, "device-2", "Eli", testPhoto, ""))

	require.NoError(t, svc.SubmitVotes(ctx, room.Code, "device-1", []string{"device-2"}))

	// Any later ballot is rejected, even an identical one.
	err := svc.SubmitVotes(ctx, room.Code, "device-1", []string{"device-2"})
	assert.True(t, rooms.IsValidation(err))

	got, err := svc.GetByCode(ctx, room.Code)
	require.NoError(t, err)
	require.Len(t, got.Votes, 1)
}

func TestSubmitVotesValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	room := createTestRoom(t, svc)

	assert.True(t, rooms.IsValidation(svc.SubmitVotes(ctx, room.Code, "", []string{"device-2"})))
	assert.True(t, rooms.IsValidation(svc.SubmitVotes(ctx, room.Code, "device-1", nil)))
	assert.True(t, rooms.IsValidation(svc.SubmitVotes(ctx, room.Code, "device-1",
		[]string{"a", "b", "c", "d"})))
	assert.True(t, rooms.IsValidation(svc.SubmitVotes(ctx, room.Code, "device-1",
		[]string{"device-1"})))
	assert.True(t, rooms.IsValidation(svc.SubmitVotes(ctx, room.Code, "device-1",
		[]string{"device-2", "device-2"})))
}

func TestCompleteTalliesVotes(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	room := createTestRoom(t, svc)

	require.NoError(t, svc.SubmitEntry(ctx, room.Code, "device-1", "Dana", testPhoto, ""))
	require.NoError(t, svc.SubmitEntry(ctx, room.Code, "device-2", "Eli", testPhoto, ""))
	require.NoError(t, svc.SubmitEntry(ctx, room.Code, "device-3", "Fay", testPhoto, ""))

	require.NoError(t, svc.SubmitVotes(ctx, room.Code, "device-1", []string{"device-2", "device-3"}))
	require.NoError(t, svc.SubmitVotes(ctx, room.Code, "device-2", []string{"device-3"}))

	results, err := svc.Complete(ctx, room.Code)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "device-3", results[0].DeviceID)
	assert.Equal(t, 2, results[0].VoteCount)
	assert.Equal(t, "device-2", results[1].DeviceID)
	assert.Equal(t, 1, results[1].VoteCount)
	assert.Equal(t, "device-1", results[2].DeviceID)
	assert.Equal(t, 0, results[2].VoteCount)

	// Frozen rooms reject every further contribution.
	assert.ErrorIs(t, svc.SubmitEntry(ctx, room.Code, "device-4", "Gil", testPhoto, ""), rooms.ErrCompleted)
	assert.ErrorIs(t, svc.SubmitVotes(ctx, room.Code, "device-3", []string{"device-1"}), rooms.ErrCompleted)
}

func TestStatusReportsContributions(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	room := createTestRoom(t, svc)

	require.NoError(t, svc.SubmitEntry(ctx, room.Code, "device-1", "Dana", testPhoto, ""))
	require.NoError(t, svc.SubmitEntry(ctx, room.Code, "device-2", "Eli", testPhoto, ""))
	require.NoError(t, svc.SubmitVotes(ctx, room.Code, "device-1", []string{"device-2"}))

	got, err := svc.GetByCode(ctx, room.Code)
	require.NoError(t, err)

	status := Status(got, "device-1")
	assert.True(t, status.HasSubmitted)
	assert.True(t, status.HasVoted)
	require.NotNil(t, status.Submission)
	assert.Equal(t, "Dana", status.Submission.Name)

	status = Status(got, "device-2")
	assert.True(t, status.HasSubmitted)
	assert.False(t, status.HasVoted)

	status = Status(got, "device-9")
	assert.False(t, status.HasSubmitted)
	assert.False(t, status.HasVoted)
	assert.Nil(t, status.Submission)
}

func TestSubscribeDeliversUpdates(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	room := createTestRoom(t, svc)

	updates, cancel, err := svc.Subscribe(ctx, room.Code)
	require.NoError(t, err)
	defer cancel()

	seed := <-updates
	assert.Equal(t, room.ID, seed.ID)

	require.NoError(t, svc.SubmitEntry(ctx, room.Code, "device-1", "Dana", testPhoto, ""))

	select {
	case next := <-updates:
		assert.Len(t, next.Submissions, 1)
	case <-time.After(time.Second):
		t.Fatal("no update delivered")
	}
}
