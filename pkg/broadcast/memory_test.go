package broadcast

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// socketFrame is the shape a live in-app connection carries: the stored
// notification's identity plus rendered content.
type socketFrame struct {
	NotificationID string
	Type           string
	Title          string
}

func mentionFrame() Message[socketFrame] {
	return Message[socketFrame]{Data: socketFrame{
		NotificationID: "ntf_01",
		Type:           "mention",
		Title:          "alice mentioned you",
	}}
}

func TestMemoryBroadcaster_Subscribe(t *testing.T) {
	t.Run("new subscriber receives a live channel", func(t *testing.T) {
		b := NewMemoryBroadcaster[socketFrame](10)
		defer b.Close()

		ctx := context.Background()
		sub := b.Subscribe(ctx)
		require.NotNil(t, sub)
		require.NotNil(t, sub.Receive(ctx))
		assert.Equal(t, 1, b.Len())
	})

	t.Run("subscribing after shutdown yields a closed subscriber", func(t *testing.T) {
		b := NewMemoryBroadcaster[socketFrame](10)
		require.NoError(t, b.Close())

		ctx := context.Background()
		sub := b.Subscribe(ctx)
		require.NotNil(t, sub)

		_, ok := <-sub.Receive(ctx)
		assert.False(t, ok)
	})

	t.Run("context cancel detaches the connection", func(t *testing.T) {
		b := NewMemoryBroadcaster[socketFrame](10)
		defer b.Close()

		ctx, cancel := context.WithCancel(context.Background())
		sub := b.Subscribe(ctx)

		cancel()
		time.Sleep(50 * time.Millisecond)

		require.NoError(t, b.Broadcast(context.Background(), mentionFrame()))

		select {
		case frame, ok := <-sub.Receive(context.Background()):
			if ok {
				t.Fatalf("detached connection received %v", frame.Data)
			}
		case <-time.After(50 * time.Millisecond):
		}
	})
}

func TestMemoryBroadcaster_Broadcast(t *testing.T) {
	t.Run("single connection", func(t *testing.T) {
		b := NewMemoryBroadcaster[socketFrame](10)
		defer b.Close()

		ctx := context.Background()
		sub := b.Subscribe(ctx)

		require.NoError(t, b.Broadcast(ctx, mentionFrame()))

		got := <-sub.Receive(ctx)
		assert.Equal(t, "ntf_01", got.Data.NotificationID)
		assert.Equal(t, "mention", got.Data.Type)
	})

	t.Run("every open tab gets the frame", func(t *testing.T) {
		b := NewMemoryBroadcaster[socketFrame](10)
		defer b.Close()

		ctx := context.Background()
		const tabs = 5
		subs := make([]Subscriber[socketFrame], tabs)
		for i := range tabs {
			subs[i] = b.Subscribe(ctx)
		}

		require.NoError(t, b.Broadcast(ctx, mentionFrame()))

		for i, sub := range subs {
			select {
			case got := <-sub.Receive(ctx):
				assert.Equal(t, "alice mentioned you", got.Data.Title, "connection %d", i)
			case <-time.After(100 * time.Millisecond):
				t.Fatalf("connection %d never received the frame", i)
			}
		}
	})

	t.Run("broadcast after shutdown is a no-op", func(t *testing.T) {
		b := NewMemoryBroadcaster[socketFrame](10)
		require.NoError(t, b.Close())

		assert.NoError(t, b.Broadcast(context.Background(), mentionFrame()))
	})

	t.Run("stalled connection drops frames instead of blocking", func(t *testing.T) {
		b := NewMemoryBroadcaster[socketFrame](1)
		defer b.Close()

		ctx := context.Background()
		sub := b.Subscribe(ctx)

		// Nobody drains the channel, so everything past the buffer is lost
		// and the connection is detached.
		for range 10 {
			require.NoError(t, b.Broadcast(ctx, mentionFrame()))
		}

		time.Sleep(50 * time.Millisecond)

		count := 0
		timeout := time.After(100 * time.Millisecond)
		for {
			select {
			case _, ok := <-sub.Receive(ctx):
				if !ok {
					return
				}
				count++
			case <-timeout:
				assert.LessOrEqual(t, count, 2)
				return
			}
		}
	})
}

func TestMemoryBroadcaster_Close(t *testing.T) {
	t.Run("shutdown closes every connection", func(t *testing.T) {
		b := NewMemoryBroadcaster[socketFrame](10)

		ctx := context.Background()
		subs := make([]Subscriber[socketFrame], 3)
		for i := range subs {
			subs[i] = b.Subscribe(ctx)
		}

		require.NoError(t, b.Close())

		for i, sub := range subs {
			_, ok := <-sub.Receive(ctx)
			assert.False(t, ok, "connection %d still open", i)
		}
		assert.Equal(t, 0, b.Len())
	})

	t.Run("repeated shutdown is safe", func(t *testing.T) {
		b := NewMemoryBroadcaster[socketFrame](10)

		require.NoError(t, b.Close())
		require.NoError(t, b.Close())
	})
}

func TestMemoryBroadcaster_Concurrent(t *testing.T) {
	t.Run("concurrent broadcasts reach a draining connection", func(t *testing.T) {
		b := NewMemoryBroadcaster[int](1000)
		defer b.Close()

		ctx := context.Background()
		sub := b.Subscribe(ctx)

		const workers = 10
		const perWorker = 100

		var wg sync.WaitGroup
		wg.Add(workers)
		for i := range workers {
			go func(base int) {
				defer wg.Done()
				for j := range perWorker {
					assert.NoError(t, b.Broadcast(ctx, Message[int]{Data: base*1000 + j}))
				}
			}(i)
		}
		wg.Wait()

		received := make(map[int]bool)
		timeout := time.After(1 * time.Second)
		count := 0
	loop:
		for count < workers*perWorker {
			select {
			case msg, ok := <-sub.Receive(ctx):
				if !ok {
					break loop
				}
				received[msg.Data] = true
				count++
			case <-timeout:
				break loop
			}
		}

		assert.GreaterOrEqual(t, len(received), 900)
	})

	t.Run("churning connections while broadcasting", func(t *testing.T) {
		b := NewMemoryBroadcaster[socketFrame](10)
		defer b.Close()

		var wg sync.WaitGroup
		const connections = 50

		wg.Add(connections)
		for range connections {
			go func() {
				defer wg.Done()
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
				defer cancel()

				sub := b.Subscribe(ctx)
				<-sub.Receive(ctx)
			}()
		}

		go func() {
			for range 100 {
				b.Broadcast(context.Background(), mentionFrame())
				time.Sleep(time.Millisecond)
			}
		}()

		wg.Wait()
	})
}

func BenchmarkMemoryBroadcaster_Broadcast(b *testing.B) {
	broadcaster := NewMemoryBroadcaster[socketFrame](100)
	defer broadcaster.Close()

	ctx := context.Background()
	const connections = 10

	for range connections {
		sub := broadcaster.Subscribe(ctx)
		go func(s Subscriber[socketFrame]) {
			for range s.Receive(ctx) {
			}
		}(sub)
	}

	frame := mentionFrame()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			broadcaster.Broadcast(ctx, frame)
		}
	})
}

func BenchmarkMemoryBroadcaster_Subscribe(b *testing.B) {
	broadcaster := NewMemoryBroadcaster[socketFrame](10)
	defer broadcaster.Close()

	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			sub := broadcaster.Subscribe(ctx)
			sub.Close()
		}
	})
}
