package handler

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"annotatio-backend/internal/model"
	"annotatio-backend/internal/session"
	"annotatio-backend/internal/store"
)

// AnnotationWSHandler 문서별 주석 변경 브로드캐스트 핸들러
//
// 같은 문서를 보고 있는 뷰어들에게 스토어 이벤트를 밀어준다. 편집 자체는
// REST로 들어온다 — 소켓은 리드로우 신호 전용 (다중 사용자 동시 편집은
// 지원하지 않는다).
type AnnotationWSHandler struct {
	sessions     *session.Manager
	rooms        map[string]*DocumentRoom // documentID -> room
	mu           sync.RWMutex
	writeTimeout time.Duration
}

// wsWriter 소켓 쓰기 표면 (websocket.Conn, 테스트에서 교체)
type wsWriter interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
}

// wsClient 연결 하나 + 쓰기 직렬화
//
// websocket.Conn은 동시 WriteMessage를 허용하지 않으므로 스토어 옵저버
// 여럿이 같은 연결로 브로드캐스트해도 한 번에 한 쓰기만 나간다.
type wsClient struct {
	mu sync.Mutex
	w  wsWriter
}

func (cl *wsClient) send(msg []byte, timeout time.Duration) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if timeout > 0 {
		if err := cl.w.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	}
	return cl.w.WriteMessage(websocket.TextMessage, msg)
}

// DocumentRoom 문서 시청자 묶음
type DocumentRoom struct {
	clients    map[*websocket.Conn]*wsClient
	mu         sync.RWMutex
	subscribed bool
}

// AnnotationEvent 클라이언트로 나가는 변경 통지
type AnnotationEvent struct {
	Type       string          `json:"type"`
	PageIndex  int             `json:"page_index"`
	Annotation *model.Envelope `json:"annotation,omitempty"`
	CanUndo    bool            `json:"canUndo"`
	CanRedo    bool            `json:"canRedo"`
}

// NewAnnotationWSHandler AnnotationWSHandler 생성
func NewAnnotationWSHandler(sessions *session.Manager, writeTimeout time.Duration) *AnnotationWSHandler {
	return &AnnotationWSHandler{
		sessions:     sessions,
		rooms:        make(map[string]*DocumentRoom),
		writeTimeout: writeTimeout,
	}
}

// getOrCreateRoom 문서 룸 조회 또는 생성
func (h *AnnotationWSHandler) getOrCreateRoom(documentID string) *DocumentRoom {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, ok := h.rooms[documentID]; ok {
		return room
	}
	room := &DocumentRoom{clients: make(map[*websocket.Conn]*wsClient)}
	h.rooms[documentID] = room
	return room
}

// HandleWebSocket WebSocket 연결 처리
func (h *AnnotationWSHandler) HandleWebSocket(c *websocket.Conn) {
	documentID, ok := c.Locals("documentId").(string)
	if !ok || documentID == "" {
		c.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","message":"invalid document"}`))
		c.Close()
		return
	}

	sess, ok := h.sessions.Get(documentID)
	if !ok {
		c.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","message":"document session is not open"}`))
		c.Close()
		return
	}

	room := h.getOrCreateRoom(documentID)

	// 스토어 구독은 룸당 한 번
	room.mu.Lock()
	if !room.subscribed {
		room.subscribed = true
		h.subscribe(room, sess)
	}
	room.clients[c] = &wsClient{w: c}
	room.mu.Unlock()

	log.Printf("🔌 주석 뷰어 연결: doc=%s", documentID)

	defer func() {
		room.mu.Lock()
		delete(room.clients, c)
		room.mu.Unlock()
		c.Close()
		log.Printf("🔌 주석 뷰어 연결 해제: doc=%s", documentID)
	}()

	// 수신 루프 — 클라이언트가 보내는 건 ping뿐, 끊기면 종료
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
}

// subscribe 스토어 이벤트를 룸으로 브로드캐스트
func (h *AnnotationWSHandler) subscribe(room *DocumentRoom, sess *session.Session) {
	sess.Store.Subscribe(func(ev store.Event) {
		out := AnnotationEvent{
			Type:      string(ev.Type),
			PageIndex: ev.PageIndex,
			CanUndo:   sess.Store.CanUndo(),
			CanRedo:   sess.Store.CanRedo(),
		}
		if ev.Annotation != nil {
			if raw, err := model.Marshal(ev.Annotation); err == nil {
				var env model.Envelope
				if json.Unmarshal(raw, &env) == nil {
					out.Annotation = &env
				}
			}
		}
		h.broadcast(room, out)
	})
}

// broadcast 룸의 모든 클라이언트에게 전송
func (h *AnnotationWSHandler) broadcast(room *DocumentRoom, ev AnnotationEvent) {
	msgBytes, _ := json.Marshal(ev)

	room.mu.RLock()
	clients := make([]*wsClient, 0, len(room.clients))
	for _, cl := range room.clients {
		clients = append(clients, cl)
	}
	room.mu.RUnlock()

	for _, cl := range clients {
		if err := cl.send(msgBytes, h.writeTimeout); err != nil {
			log.Printf("메시지 전송 실패: %v", err)
		}
	}
}
