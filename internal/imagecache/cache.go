// Package imagecache imageRef → 디코딩된 비트맵 매핑 (지연 + 비동기 적재).
//
// 렌더러는 항목이 없거나 대기 중이면 플레이스홀더를 그린다. 디코딩 실패는
// 영구 실패로 기록해 같은 ref를 다시 시도하지 않는다.
package imagecache

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// State 캐시 항목 상태
type State int

const (
	// StateMissing 아직 요청된 적 없음
	StateMissing State = iota
	// StatePending 디코딩 진행 중
	StatePending
	// StateReady 디코딩 완료
	StateReady
	// StateFailed 영구 실패 (재시도 안 함)
	StateFailed
)

// entry 캐시 항목
type entry struct {
	state State
	img   image.Image
	raw   []byte
	err   error
}

// Cache imageRef 키 비트맵 캐시
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	// fetch ref → 원본 바이트 (테스트에서 교체)
	fetch func(ref string) ([]byte, error)
}

// New 빈 캐시 생성
func New() *Cache {
	c := &Cache{entries: make(map[string]*entry)}
	c.fetch = defaultFetch
	return c
}

// NewWithFetcher 커스텀 fetcher로 캐시 생성 (테스트/대체 스토리지용)
func NewWithFetcher(fetch func(ref string) ([]byte, error)) *Cache {
	return &Cache{entries: make(map[string]*entry), fetch: fetch}
}

// Request ref의 비동기 디코딩 시작 (이미 있으면 no-op)
func (c *Cache) Request(ref string) {
	if ref == "" {
		return
	}
	c.mu.Lock()
	if _, ok := c.entries[ref]; ok {
		c.mu.Unlock()
		return
	}
	c.entries[ref] = &entry{state: StatePending}
	c.mu.Unlock()

	go c.load(ref)
}

func (c *Cache) load(ref string) {
	raw, err := c.fetch(ref)
	if err == nil {
		var img image.Image
		img, _, err = image.Decode(bytes.NewReader(raw))
		if err == nil {
			c.mu.Lock()
			c.entries[ref] = &entry{state: StateReady, img: img, raw: raw}
			c.mu.Unlock()
			return
		}
	}
	// 실패는 영구 기록 — 같은 ref를 매 프레임 재시도하지 않는다
	log.Printf("⚠️ 이미지 디코딩 실패: ref=%s err=%v", ref, err)
	c.mu.Lock()
	c.entries[ref] = &entry{state: StateFailed, err: err}
	c.mu.Unlock()
}

// Ready ref의 비트맵이 준비됐는지 (render.ImageLookup 구현)
func (c *Cache) Ready(ref string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[ref]
	return ok && e.state == StateReady
}

// StateOf ref의 캐시 상태
func (c *Cache) StateOf(ref string) State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[ref]
	if !ok {
		return StateMissing
	}
	return e.state
}

// Bitmap 디코딩된 이미지 조회 (준비 안 됐으면 false)
func (c *Cache) Bitmap(ref string) (image.Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[ref]
	if !ok || e.state != StateReady {
		return nil, false
	}
	return e.img, true
}

// Raw 원본 인코딩 바이트 조회 (export가 재인코딩 없이 임베드)
func (c *Cache) Raw(ref string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[ref]
	if !ok || e.state != StateReady {
		return nil, false
	}
	return e.raw, true
}

// Err ref의 실패 사유 (실패 상태가 아니면 nil)
func (c *Cache) Err(ref string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[ref]
	if !ok || e.state != StateFailed {
		return nil
	}
	return e.err
}

var httpClient = &http.Client{Timeout: 15 * time.Second}

// SetFetchTimeout 원격 이미지 요청 제한 시간 설정 (기동 시 한 번 호출)
func SetFetchTimeout(d time.Duration) {
	if d > 0 {
		httpClient.Timeout = d
	}
}

// defaultFetch 파일 경로 또는 http(s) URL에서 원본 바이트 로드
func defaultFetch(ref string) ([]byte, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		resp, err := httpClient.Get(ref)
		if err != nil {
			return nil, fmt.Errorf("이미지 요청 실패: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("이미지 요청 실패: status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
	ref = strings.TrimPrefix(ref, "file://")
	return os.ReadFile(ref)
}
