package handler

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"annotatio-backend/internal/session"
)

// fakeSocket 쓰기 중첩을 감지하는 wsWriter
type fakeSocket struct {
	inFlight int32
	overlap  atomic.Bool
	written  atomic.Int32
	deadline atomic.Int64
}

func (f *fakeSocket) WriteMessage(messageType int, data []byte) error {
	if !atomic.CompareAndSwapInt32(&f.inFlight, 0, 1) {
		f.overlap.Store(true)
	}
	time.Sleep(time.Millisecond)
	f.written.Add(1)
	atomic.StoreInt32(&f.inFlight, 0)
	return nil
}

func (f *fakeSocket) SetWriteDeadline(t time.Time) error {
	f.deadline.Store(t.UnixNano())
	return nil
}

// 스토어 옵저버는 변경 고루틴에서 동기 실행된다 — 두 뮤테이션이 겹치면
// 브로드캐스트도 겹치므로 연결당 쓰기가 직렬화돼야 한다.
func TestBroadcastSerializesWritesPerConnection(t *testing.T) {
	h := NewAnnotationWSHandler(session.NewManager(), 5*time.Second)

	sockA, sockB := &fakeSocket{}, &fakeSocket{}
	room := &DocumentRoom{clients: map[*websocket.Conn]*wsClient{
		new(websocket.Conn): {w: sockA},
		new(websocket.Conn): {w: sockB},
	}}

	const senders = 16
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h.broadcast(room, AnnotationEvent{Type: "ADD", PageIndex: i})
		}(i)
	}
	wg.Wait()

	for _, sock := range []*fakeSocket{sockA, sockB} {
		assert.False(t, sock.overlap.Load(), "동시 WriteMessage가 감지됐다")
		assert.Equal(t, int32(senders), sock.written.Load())
	}
}

func TestSendSetsWriteDeadline(t *testing.T) {
	sock := &fakeSocket{}
	cl := &wsClient{w: sock}

	before := time.Now()
	require.NoError(t, cl.send([]byte(`{}`), 5*time.Second))

	deadline := time.Unix(0, sock.deadline.Load())
	assert.True(t, deadline.After(before.Add(4*time.Second)), "쓰기 데드라인이 설정돼야 한다")
}
