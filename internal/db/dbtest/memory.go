// Package dbtest provides in-memory collections for tests.
package dbtest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ukydev/fleetflow/internal/db"
	"github.com/ukydev/fleetflow/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

// MemorySource is an in-memory db.Source holding documents of type T.
// Documents added with AppendRaw are kept as written and decoded through BSON
// on read, the way documents written by other clients are.
type MemorySource[T any] struct {
	name string

	mu       sync.Mutex
	docs     []interface{}
	streams  map[*memoryStream]struct{}
	findErr  error
	watchErr error
	reads    int
}

// NewMemorySource returns an empty source named name.
func NewMemorySource[T any](name string, docs ...T) *MemorySource[T] {
	s := &MemorySource[T]{
		name:    name,
		streams: make(map[*memoryStream]struct{}),
	}
	for _, doc := range docs {
		s.docs = append(s.docs, doc)
	}
	return s
}

// Name returns the collection name.
func (s *MemorySource[T]) Name() string {
	return s.name
}

// Find returns a cursor over a copy of the current documents.
func (s *MemorySource[T]) Find(ctx context.Context) (db.Cursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.findErr != nil {
		return nil, s.findErr
	}
	return &memoryCursor[T]{docs: append([]interface{}(nil), s.docs...)}, nil
}

// Watch opens a change stream that signals on every Set, Append or Touch.
func (s *MemorySource[T]) Watch(ctx context.Context) (db.ChangeStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watchErr != nil {
		return nil, s.watchErr
	}
	stream := &memoryStream{
		changes: make(chan struct{}, 1),
		failed:  make(chan struct{}),
		closed:  make(chan struct{}),
		release: func(m *memoryStream) {
			s.mu.Lock()
			delete(s.streams, m)
			s.mu.Unlock()
		},
	}
	s.streams[stream] = struct{}{}
	return stream, nil
}

// Set replaces all documents and notifies open streams.
func (s *MemorySource[T]) Set(docs ...T) {
	s.mu.Lock()
	s.docs = nil
	for _, doc := range docs {
		s.docs = append(s.docs, doc)
	}
	s.notifyLocked()
	s.mu.Unlock()
}

// Append adds one document and notifies open streams.
func (s *MemorySource[T]) Append(doc T) {
	s.appendAny(doc)
}

// AppendRaw adds a document of arbitrary shape and notifies open streams.
func (s *MemorySource[T]) AppendRaw(doc bson.M) {
	s.appendAny(doc)
}

func (s *MemorySource[T]) appendAny(doc interface{}) {
	s.mu.Lock()
	s.docs = append(s.docs, doc)
	s.notifyLocked()
	s.mu.Unlock()
}

// Docs returns a copy of the stored documents of type T. Raw documents are left out.
func (s *MemorySource[T]) Docs() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []T
	for _, doc := range s.docs {
		if typed, ok := doc.(T); ok {
			out = append(out, typed)
		}
	}
	return out
}

// FailStreams ends every open stream with err.
func (s *MemorySource[T]) FailStreams(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for stream := range s.streams {
		stream.fail(err)
	}
}

// FailWatch makes subsequent Watch calls return err.
func (s *MemorySource[T]) FailWatch(err error) {
	s.mu.Lock()
	s.watchErr = err
	s.mu.Unlock()
}

// FailReads makes subsequent Find calls return err. A nil err clears it.
func (s *MemorySource[T]) FailReads(err error) {
	s.mu.Lock()
	s.findErr = err
	s.mu.Unlock()
}

// OpenStreams reports how many change streams are open.
func (s *MemorySource[T]) OpenStreams() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams)
}

// Reads reports how many times Find was called.
func (s *MemorySource[T]) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func (s *MemorySource[T]) notifyLocked() {
	for stream := range s.streams {
		select {
		case stream.changes <- struct{}{}:
		default:
		}
	}
}

type memoryCursor[T any] struct {
	docs []interface{}
	pos  int
	err  error
}

func (c *memoryCursor[T]) Next(ctx context.Context) bool {
	if err := ctx.Err(); err != nil {
		c.err = err
		return false
	}
	if c.pos >= len(c.docs) {
		return false
	}
	c.pos++
	return true
}

func (c *memoryCursor[T]) Decode(val interface{}) error {
	if c.pos == 0 {
		return errors.New("dbtest: Decode called before Next")
	}
	doc := c.docs[c.pos-1]
	if typed, ok := doc.(T); ok {
		dst, ok := val.(*T)
		if !ok {
			return fmt.Errorf("dbtest: cannot decode %T into %T", typed, val)
		}
		*dst = typed
		return nil
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, val)
}

func (c *memoryCursor[T]) Err() error {
	return c.err
}

func (c *memoryCursor[T]) Close(ctx context.Context) error {
	return nil
}

type memoryStream struct {
	changes chan struct{}
	failed  chan struct{}
	closed  chan struct{}
	release func(*memoryStream)

	mu        sync.Mutex
	err       error
	closeOnce sync.Once
	failOnce  sync.Once
}

func (m *memoryStream) Next(ctx context.Context) bool {
	select {
	case <-m.changes:
		return true
	case <-m.failed:
		return false
	case <-m.closed:
		return false
	case <-ctx.Done():
		m.mu.Lock()
		if m.err == nil {
			m.err = ctx.Err()
		}
		m.mu.Unlock()
		return false
	}
}

func (m *memoryStream) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *memoryStream) Close(ctx context.Context) error {
	m.closeOnce.Do(func() {
		close(m.closed)
		m.release(m)
	})
	return nil
}

func (m *memoryStream) fail(err error) {
	m.failOnce.Do(func() {
		m.mu.Lock()
		m.err = err
		m.mu.Unlock()
		close(m.failed)
	})
}

// ErrWriteFailed is returned by MemoryLogs when FailWrites is set.
var ErrWriteFailed = errors.New("dbtest: write failed")

// MemoryLogs is a daily_logs source that also accepts writes, closing the
// write-then-redeliver loop in tests.
type MemoryLogs struct {
	*MemorySource[models.DailyLog]

	mu         sync.Mutex
	failWrites bool
}

// NewMemoryLogs returns an empty daily_logs collection.
func NewMemoryLogs(docs ...models.DailyLog) *MemoryLogs {
	return &MemoryLogs{MemorySource: NewMemorySource[models.DailyLog](db.CollectionDailyLogs, docs...)}
}

// FailWrites makes InsertDailyLog fail with ErrWriteFailed.
func (l *MemoryLogs) FailWrites(fail bool) {
	l.mu.Lock()
	l.failWrites = fail
	l.mu.Unlock()
}

// InsertDailyLog appends log and notifies subscribers.
func (l *MemoryLogs) InsertDailyLog(ctx context.Context, log models.DailyLog) error {
	l.mu.Lock()
	fail := l.failWrites
	l.mu.Unlock()
	if fail {
		return ErrWriteFailed
	}
	l.Append(log)
	return nil
}
