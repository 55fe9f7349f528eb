package server

import (
	"strconv"
	"sync"
	"sync/atomic"

	"hikyaku/internal/response"
)

// Stats は接続とレスポンスの集計値
// 全ての操作はゴルーチンセーフ
type Stats struct {
	accepted      atomic.Int64
	active        atomic.Int64
	requests      atomic.Int64
	readErrors    atomic.Int64
	malformed     atomic.Int64
	handlerErrors atomic.Int64

	mu        sync.Mutex
	responses map[response.StatusCode]int64
}

// StatsSnapshot はある時点のStatsの値
type StatsSnapshot struct {
	Accepted      int64            `json:"accepted"`
	Active        int64            `json:"active"`
	Requests      int64            `json:"requests"`
	ReadErrors    int64            `json:"read_errors"`
	Malformed     int64            `json:"malformed_request_lines"`
	HandlerErrors int64            `json:"handler_errors"`
	Responses     map[string]int64 `json:"responses"`
}

// NewStats は新しいStatsを作成する
func NewStats() *Stats {
	return &Stats{responses: make(map[response.StatusCode]int64)}
}

func (s *Stats) connOpened() {
	s.accepted.Add(1)
	s.active.Add(1)
}

func (s *Stats) connClosed() {
	s.active.Add(-1)
}

func (s *Stats) responded(code response.StatusCode) {
	s.mu.Lock()
	s.responses[code]++
	s.mu.Unlock()
}

// Snapshot は現在の集計値をコピーして返す
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	responses := make(map[string]int64, len(s.responses))
	for code, n := range s.responses {
		responses[strconv.Itoa(int(code))] = n
	}
	s.mu.Unlock()

	return StatsSnapshot{
		Accepted:      s.accepted.Load(),
		Active:        s.active.Load(),
		Requests:      s.requests.Load(),
		ReadErrors:    s.readErrors.Load(),
		Malformed:     s.malformed.Load(),
		HandlerErrors: s.handlerErrors.Load(),
		Responses:     responses,
	}
}
