package imagecache

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func waitState(t *testing.T, c *Cache, ref string, want State) {
	t.Helper()
	assert.Eventually(t, func() bool {
		return c.StateOf(ref) == want
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRequestDecodesAndCaches(t *testing.T) {
	raw := tinyPNG(t)
	c := NewWithFetcher(func(ref string) ([]byte, error) {
		return raw, nil
	})

	assert.Equal(t, StateMissing, c.StateOf("a"))
	assert.False(t, c.Ready("a"))

	c.Request("a")
	waitState(t, c, "a", StateReady)

	assert.True(t, c.Ready("a"))
	img, ok := c.Bitmap("a")
	require.True(t, ok)
	assert.Equal(t, 2, img.Bounds().Dx())

	got, ok := c.Raw("a")
	require.True(t, ok)
	assert.Equal(t, raw, got)
	assert.NoError(t, c.Err("a"))
}

func TestFetchFailureIsPermanent(t *testing.T) {
	var calls atomic.Int32
	c := NewWithFetcher(func(ref string) ([]byte, error) {
		calls.Add(1)
		return nil, errors.New("연결 끊김")
	})

	c.Request("bad")
	waitState(t, c, "bad", StateFailed)

	assert.False(t, c.Ready("bad"))
	assert.Error(t, c.Err("bad"))
	_, ok := c.Bitmap("bad")
	assert.False(t, ok)

	// 실패 후 재요청은 no-op — fetcher가 다시 불리지 않는다
	c.Request("bad")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestUndecodableBytesFail(t *testing.T) {
	c := NewWithFetcher(func(ref string) ([]byte, error) {
		return []byte("이건 이미지가 아니다"), nil
	})

	c.Request("garbage")
	waitState(t, c, "garbage", StateFailed)
	assert.Error(t, c.Err("garbage"))
}

func TestRequestDeduplicates(t *testing.T) {
	var calls atomic.Int32
	block := make(chan struct{})
	raw := tinyPNG(t)
	c := NewWithFetcher(func(ref string) ([]byte, error) {
		calls.Add(1)
		<-block
		return raw, nil
	})

	c.Request("a")
	c.Request("a")
	c.Request("a")
	assert.Equal(t, StatePending, c.StateOf("a"))

	close(block)
	waitState(t, c, "a", StateReady)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmptyRefIgnored(t *testing.T) {
	c := NewWithFetcher(func(ref string) ([]byte, error) {
		t.Fatal("빈 ref는 fetch하면 안 된다")
		return nil, nil
	})
	c.Request("")
	assert.Equal(t, StateMissing, c.StateOf(""))
}
