package offsite

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Uploader is what the mirror drains into; *Bucket implements it.
type Uploader interface {
	PutFile(ctx context.Context, key, localPath string) error
}

type Stats struct {
	QueueDepth      int    `json:"queue_depth"`
	QueueCapacity   int    `json:"queue_capacity"`
	Enqueued        uint64 `json:"enqueued"`
	Dropped         uint64 `json:"dropped"`
	Uploaded        uint64 `json:"uploaded"`
	Failed          uint64 `json:"failed"`
	LastSuccessUnix int64  `json:"last_success_unix,omitempty"`
	LastErrorUnix   int64  `json:"last_error_unix,omitempty"`
}

type MirrorConfig struct {
	Uploader Uploader
	// Prefix is prepended to every object key.
	Prefix        string
	Workers       int
	QueueCapacity int
	// EnqueueWait bounds how long Enqueue blocks on a full queue before
	// dropping the job.
	EnqueueWait time.Duration
	Attempts    int
	RetryDelay  time.Duration
	Logger      *log.Logger
}

type job struct {
	key  string
	path string
}

// Mirror uploads files from a bounded queue on background workers.
type Mirror struct {
	up       Uploader
	prefix   string
	wait     time.Duration
	attempts int
	delay    time.Duration
	logger   *log.Logger

	// mu guards closed so late enqueues never hit a closed channel.
	mu     sync.RWMutex
	closed bool
	jobs   chan job
	wg     sync.WaitGroup

	enqueued    atomic.Uint64
	dropped     atomic.Uint64
	uploaded    atomic.Uint64
	failed      atomic.Uint64
	lastSuccess atomic.Int64
	lastError   atomic.Int64
}

func NewMirror(cfg MirrorConfig) *Mirror {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 256
	}
	if cfg.EnqueueWait <= 0 {
		cfg.EnqueueWait = 25 * time.Millisecond
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 4
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	m := &Mirror{
		up:       cfg.Uploader,
		prefix:   strings.Trim(strings.ReplaceAll(cfg.Prefix, "\\", "/"), "/"),
		wait:     cfg.EnqueueWait,
		attempts: cfg.Attempts,
		delay:    cfg.RetryDelay,
		logger:   cfg.Logger,
		jobs:     make(chan job, cfg.QueueCapacity),
	}
	for i := 0; i < cfg.Workers; i++ {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			for j := range m.jobs {
				m.upload(j)
			}
		}()
	}
	return m
}

// Enqueue schedules localPath for upload under key. A nil mirror is a no-op.
func (m *Mirror) Enqueue(key, localPath string) {
	if m == nil || m.up == nil {
		return
	}
	if m.prefix != "" {
		key = path.Join(m.prefix, key)
	}
	j := job{key: cleanKey(key), path: localPath}
	if j.key == "" {
		m.logger.Printf("skip %s: empty key", localPath)
		return
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		m.dropped.Add(1)
		m.logger.Printf("drop key=%s reason=closed", j.key)
		return
	}
	m.enqueued.Add(1)

	select {
	case m.jobs <- j:
		return
	default:
	}
	timer := time.NewTimer(m.wait)
	defer timer.Stop()
	select {
	case m.jobs <- j:
	case <-timer.C:
		n := m.dropped.Add(1)
		m.logger.Printf("drop key=%s reason=queue_full dropped_total=%d", j.key, n)
	}
}

// Close drains the queue and waits for in-flight uploads.
func (m *Mirror) Close() {
	if m == nil {
		return
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.jobs)
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *Mirror) Stats() Stats {
	if m == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:      len(m.jobs),
		QueueCapacity:   cap(m.jobs),
		Enqueued:        m.enqueued.Load(),
		Dropped:         m.dropped.Load(),
		Uploaded:        m.uploaded.Load(),
		Failed:          m.failed.Load(),
		LastSuccessUnix: m.lastSuccess.Load(),
		LastErrorUnix:   m.lastError.Load(),
	}
}

func (m *Mirror) upload(j job) {
	op := func() (struct{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		err := m.up.PutFile(ctx, j.key, j.path)
		if err != nil && !retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = m.delay
	_, err := backoff.Retry(context.Background(), op,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(uint(m.attempts)),
	)
	now := time.Now().Unix()
	if err != nil {
		m.failed.Add(1)
		m.lastError.Store(now)
		m.logger.Printf("upload failed key=%s local=%s err=%v", j.key, j.path, err)
		return
	}
	m.uploaded.Add(1)
	m.lastSuccess.Store(now)
	m.logger.Printf("uploaded key=%s", j.key)
}

// retryable is false for missing files and for 4xx other than 429.
func retryable(err error) bool {
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status >= 500 || se.Status == 429
	}
	return true
}
