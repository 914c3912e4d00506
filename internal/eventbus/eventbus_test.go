package eventbus_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hanpama/fieldguide/internal/eventbus"
)

type ping struct{ N int }
type pong struct{}

func TestPublishReachesSubscribersOfThatType(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	var got []int
	unsubA := eventbus.Subscribe(func(_ context.Context, e ping) { got = append(got, e.N) })
	unsubB := eventbus.Subscribe(func(_ context.Context, e ping) { got = append(got, e.N*10) })
	defer unsubB()
	pongs := 0
	defer eventbus.Subscribe(func(context.Context, pong) { pongs++ })()

	eventbus.Publish(context.Background(), ping{N: 1})
	assert.Equal(t, []int{1, 10}, got)
	assert.Equal(t, 0, pongs)

	// Unsubscribing removes exactly that handler, even though both were
	// created from the same generic wrapper.
	unsubA()
	unsubA()
	eventbus.Publish(context.Background(), ping{N: 2})
	assert.Equal(t, []int{1, 10, 20}, got)
}

func TestPublishWithoutBus(t *testing.T) {
	eventbus.Use(nil)
	called := false
	unsub := eventbus.Subscribe(func(context.Context, ping) { called = true })
	eventbus.Publish(context.Background(), ping{})
	unsub()
	assert.False(t, called)
}
