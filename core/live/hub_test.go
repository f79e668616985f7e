package live

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 慢客户端（发送缓冲区满）不能卡死主循环，应被就地移除
func TestBroadcastSlowClientDoesNotStallHub(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	// 不启动读写泵，缓冲区填满后即为慢客户端
	slow := NewClient(hub, nil, "evt-1")
	hub.Register(slow)

	for i := 0; i < 70; i++ {
		hub.Broadcast("evt-1", MsgTypePoolUpdate, map[string]int{"seq": i})
	}

	registered := make(chan struct{})
	go func() {
		hub.Register(NewClient(hub, nil, "evt-1"))
		close(registered)
	}()

	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("主循环被慢客户端阻塞")
	}

	// 慢客户端被移除，只剩新接入的客户端
	require.Eventually(t, func() bool {
		return hub.ClientCount("evt-1") == 1
	}, time.Second, 10*time.Millisecond)

	_, ok := <-slow.send
	for ok {
		_, ok = <-slow.send
	}
}

func TestBroadcastOnlyReachesEventClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	a := NewClient(hub, nil, "evt-a")
	b := NewClient(hub, nil, "evt-b")
	hub.Register(a)
	hub.Register(b)

	require.Eventually(t, func() bool {
		return hub.ClientCount("evt-a") == 1 && hub.ClientCount("evt-b") == 1
	}, time.Second, 10*time.Millisecond)

	hub.Broadcast("evt-a", MsgTypeQueueUpdate, map[string]string{"k": "v"})

	select {
	case raw := <-a.send:
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, MsgTypeQueueUpdate, msg.Type)
		assert.Equal(t, "evt-a", msg.EventID)
	case <-time.After(time.Second):
		t.Fatal("evt-a 客户端未收到广播")
	}

	select {
	case <-b.send:
		t.Fatal("evt-b 客户端不应收到 evt-a 的广播")
	case <-time.After(50 * time.Millisecond):
	}
}

// 定向补发只写入目标客户端自己的发送通道
func TestClientSendTargetsSingleClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	newcomer := NewClient(hub, nil, "evt-1")
	onlooker := NewClient(hub, nil, "evt-1")
	hub.Register(newcomer)
	hub.Register(onlooker)

	require.Eventually(t, func() bool {
		return hub.ClientCount("evt-1") == 2
	}, time.Second, 10*time.Millisecond)

	newcomer.Send(MsgTypeNowPlaying, map[string]string{"trackId": "t1"})

	select {
	case raw := <-newcomer.send:
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, MsgTypeNowPlaying, msg.Type)
		assert.Equal(t, "evt-1", msg.EventID)
	case <-time.After(time.Second):
		t.Fatal("目标客户端未收到定向消息")
	}

	select {
	case <-onlooker.send:
		t.Fatal("定向消息不应广播给其他客户端")
	case <-time.After(50 * time.Millisecond):
	}
}

// 缓冲区满时定向消息直接丢弃，调用方不被阻塞
func TestClientSendDropsWhenBufferFull(t *testing.T) {
	client := NewClient(nil, nil, "evt-1")
	for i := 0; i < 64; i++ {
		client.Send(MsgTypePing, nil)
	}

	done := make(chan struct{})
	go func() {
		client.Send(MsgTypePing, nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("缓冲区满时 Send 不应阻塞")
	}
	assert.Len(t, client.send, 64)
}
