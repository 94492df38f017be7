package relay

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/emrgen/canvas/internal/model"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan *Envelope) *Envelope {
	t.Helper()
	select {
	case env := <-ch:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("no envelope received")
		return nil
	}
}

func TestEnvelope_Decode(t *testing.T) {
	cursor := model.Position{X: 3, Y: 4}
	env, err := NewEnvelope(KindPresence, "ws", "alice", "Alice", Presence{Cursor: &cursor, Selection: []string{"b1"}})
	require.NoError(t, err)
	assert.NotEmpty(t, env.ID)

	var p Presence
	require.NoError(t, env.Decode(&p))
	assert.Equal(t, cursor, *p.Cursor)
	assert.Equal(t, []string{"b1"}, p.Selection)

	env.Payload = []byte("{")
	assert.Error(t, env.Decode(&p))
}

func testRelay(t *testing.T, r Relay) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mine, err := r.Subscribe(ctx, "ws")
	require.NoError(t, err)
	other, err := r.Subscribe(ctx, "other")
	require.NoError(t, err)

	env, err := NewEnvelope(KindOperation, "ws", "alice", "Alice", map[string]string{"field": "title"})
	require.NoError(t, err)
	require.NoError(t, r.Publish(ctx, env))

	got := receive(t, mine)
	assert.Equal(t, env.ID, got.ID)
	assert.Equal(t, KindOperation, got.Kind)
	assert.JSONEq(t, `{"field":"title"}`, string(got.Payload))

	select {
	case env := <-other:
		t.Fatalf("unexpected envelope %s on another workspace", env.ID)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	for range mine {
	}
}

func TestLocal(t *testing.T) {
	r := NewLocal()
	testRelay(t, r)

	require.NoError(t, r.Close())
	_, err := r.Subscribe(context.Background(), "ws")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	testRelay(t, NewRedis(client))
}

func TestNew(t *testing.T) {
	r, err := New(Options{})
	require.NoError(t, err)
	assert.IsType(t, &Local{}, r)

	_, err = New(Options{Name: NameRedis})
	assert.ErrorIs(t, err, ErrUnknownRelay)

	_, err = New(Options{Name: "carrier-pigeon"})
	assert.ErrorIs(t, err, ErrUnknownRelay)
}
