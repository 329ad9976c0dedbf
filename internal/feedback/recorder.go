package feedback

import (
	"sync"
	"time"
)

// RecorderCap is how many failures the recorder keeps.
const RecorderCap = 5

type Failure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	At      int64  `json:"at"`
}

// Recorder keeps the most recent failures in a fixed ring.
type Recorder struct {
	mu   sync.Mutex
	buf  [RecorderCap]Failure
	next int
	n    int
	now  func() time.Time
}

func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

func (r *Recorder) Record(kind, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = Failure{Kind: kind, Message: msg, At: r.now().UnixMilli()}
	r.next = (r.next + 1) % RecorderCap
	if r.n < RecorderCap {
		r.n++
	}
}

// Entries returns the retained failures, oldest first.
func (r *Recorder) Entries() []Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Failure, 0, r.n)
	start := (r.next - r.n + RecorderCap) % RecorderCap
	for i := 0; i < r.n; i++ {
		out = append(out, r.buf[(start+i)%RecorderCap])
	}
	return out
}
