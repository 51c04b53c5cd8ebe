package notify_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/poll"

	"github.com/nikbrunner/tora/internal/notify"
)

func TestLocal_PublishReachesEveryHandler(t *testing.T) {
	n := notify.NewLocal()
	defer n.Close()

	var got1, got2 []notify.Change
	n.Subscribe(func(c notify.Change) { got1 = append(got1, c) })
	n.Subscribe(func(c notify.Change) { got2 = append(got2, c) })

	c := notify.Change{UserID: "u1", Kind: "links"}
	assert.NilError(t, n.Publish(context.Background(), c))

	assert.DeepEqual(t, got1, []notify.Change{c})
	assert.DeepEqual(t, got2, []notify.Change{c})
}

func TestLocal_CancelStopsDelivery(t *testing.T) {
	n := notify.NewLocal()

	calls := 0
	cancel := n.Subscribe(func(notify.Change) { calls++ })

	assert.NilError(t, n.Publish(context.Background(), notify.Change{UserID: "u1", Kind: "folders"}))
	cancel()
	assert.NilError(t, n.Publish(context.Background(), notify.Change{UserID: "u1", Kind: "folders"}))

	assert.Equal(t, calls, 1)
}

// Requires a running Redis; set TORA_TEST_REDIS=localhost:6379 to enable.
func TestRedis_RoundTrip(t *testing.T) {
	addr := os.Getenv("TORA_TEST_REDIS")
	if addr == "" {
		t.Skip("TORA_TEST_REDIS not set")
	}

	ctx := context.Background()
	channel := "tora:test:" + time.Now().Format("150405.000000")

	a, err := notify.NewRedis(ctx, addr, channel, nil)
	assert.NilError(t, err)
	defer a.Close()
	b, err := notify.NewRedis(ctx, addr, channel, nil)
	assert.NilError(t, err)
	defer b.Close()

	var mu sync.Mutex
	var received []notify.Change
	b.Subscribe(func(c notify.Change) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, c)
	})

	want := notify.Change{UserID: "u1", Kind: "links"}
	assert.NilError(t, a.Publish(ctx, want))

	poll.WaitOn(t, func(poll.LogT) poll.Result {
		mu.Lock()
		defer mu.Unlock()
		if len(received) == 0 {
			return poll.Continue("no change received yet")
		}
		if received[0] != want {
			return poll.Error(fmt.Errorf("unexpected change %+v", received[0]))
		}
		return poll.Success()
	}, poll.WithTimeout(5*time.Second))
}
