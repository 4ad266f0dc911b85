package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/braingate/internal/types"
)

func TestGatewayHandleInbound(t *testing.T) {
	gw := New()
	gw.Start(context.Background())
	defer gw.Stop()

	processed := make(chan *Run, 1)
	gw.Queue.SetProcessor(func(run *Run) error {
		processed <- run
		return nil
	})

	event := &types.InboundEvent{
		EventID:   "Ev001",
		Source:    "slack",
		ChannelID: "C024BE91L",
		UserID:    "U123",
		Text:      "hello",
		TS:        "1712345678.000200",
	}
	require.NoError(t, gw.HandleInbound(context.Background(), event))

	select {
	case run := <-processed:
		assert.Equal(t, types.SessionID("1712345678.000200"), run.SessionID)
		assert.Equal(t, types.SessionKey("slack:C024BE91L:1712345678.000200"), run.SessionKey)
		assert.Equal(t, "hello", run.Event.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("run was not processed")
	}
}

func TestGatewaySameThreadSameLane(t *testing.T) {
	gw := New(4)
	gw.Start(context.Background())
	defer gw.Stop()

	var mu sync.Mutex
	keys := make(map[types.SessionKey]int)
	gw.Queue.SetProcessor(func(run *Run) error {
		mu.Lock()
		keys[run.SessionKey]++
		mu.Unlock()
		return nil
	})

	root := &types.InboundEvent{
		EventID: "Ev001", Source: "slack", ChannelID: "C1",
		UserID: "U123", Text: "root", TS: "100.1",
	}
	reply := &types.InboundEvent{
		EventID: "Ev002", Source: "slack", ChannelID: "C1",
		UserID: "U123", Text: "reply", ThreadTS: "100.1", TS: "100.2",
	}
	require.NoError(t, gw.HandleInbound(context.Background(), root))
	require.NoError(t, gw.HandleInbound(context.Background(), reply))

	require.True(t, gw.Queue.WaitIdle(2*time.Second))
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, keys, 1, "thread root and reply must share a lane")
	assert.Equal(t, 2, keys["slack:C1:100.1"])
}

func TestGatewayDifferentThreadsIndependent(t *testing.T) {
	gw := New(4)
	gw.Start(context.Background())
	defer gw.Stop()

	var mu sync.Mutex
	keys := make(map[types.SessionKey]int)
	gw.Queue.SetProcessor(func(run *Run) error {
		mu.Lock()
		keys[run.SessionKey]++
		mu.Unlock()
		return nil
	})

	for _, ts := range []string{"100.1", "200.1"} {
		ev := &types.InboundEvent{
			EventID: types.EventID("Ev-" + ts), Source: "slack", ChannelID: "C1",
			UserID: "U123", Text: "hi", TS: ts,
		}
		require.NoError(t, gw.HandleInbound(context.Background(), ev))
	}

	require.True(t, gw.Queue.WaitIdle(2*time.Second))
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, keys, 2, "distinct threads get distinct lanes")
}

func TestGatewayOnCompleteOption(t *testing.T) {
	gw := New()
	gw.Start(context.Background())
	defer gw.Stop()

	gw.Queue.SetProcessor(func(run *Run) error {
		run.OnComplete("the reply")
		return nil
	})

	replies := make(chan string, 1)
	ev := &types.InboundEvent{
		EventID: "Ev001", Source: "slack", ChannelID: "C1",
		UserID: "U123", Text: "hi", TS: "100.1",
	}
	err := gw.HandleInbound(context.Background(), ev, WithOnComplete(func(response string) {
		replies <- response
	}))
	require.NoError(t, err)

	select {
	case got := <-replies:
		assert.Equal(t, "the reply", got)
	case <-time.After(2 * time.Second):
		t.Fatal("OnComplete was not called")
	}
}
