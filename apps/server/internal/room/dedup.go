package room

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// dedupResult is the remembered outcome of a request_id. Reply holds the
// frame a duplicate gets back: the error frame for rejections, the last
// committed broadcast for successes (nil when nothing was committed).
type dedupResult struct {
	OK    bool
	Reply []byte
}

// dedupWindow deduplicates request ids over a bounded recent window,
// at least 256 entries per seat.
type dedupWindow struct {
	cache *lru.Cache[string, dedupResult]
}

func newDedupWindow(size int) *dedupWindow {
	if size <= 0 {
		size = 256 * 4
	}
	cache, err := lru.New[string, dedupResult](size)
	if err != nil {
		// lru.New only fails on size <= 0
		panic(err)
	}
	return &dedupWindow{cache: cache}
}

func dedupKey(seat int, requestID string) string {
	return fmt.Sprintf("%d:%s", seat, requestID)
}

func (w *dedupWindow) lookup(seat int, requestID string) (dedupResult, bool) {
	if requestID == "" {
		return dedupResult{}, false
	}
	return w.cache.Get(dedupKey(seat, requestID))
}

func (w *dedupWindow) remember(seat int, requestID string, res dedupResult) {
	if requestID == "" {
		return
	}
	w.cache.Add(dedupKey(seat, requestID), res)
}
