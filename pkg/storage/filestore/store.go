package filestore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/stash/pkg/observability"
)

const defaultSaveDelay = 250 * time.Millisecond

// Store holds namespace -> key -> value state backed by one JSON document on
// disk. It is safe for concurrent use and is typically a process-wide
// singleton.
type Store struct {
	path      string
	log       *observability.Logger
	metrics   *observability.Metrics
	saveDelay time.Duration

	mu     sync.RWMutex
	data   map[string]map[string]json.RawMessage
	loaded bool

	saveCh    chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// saving serializes save cycles so snapshot+write is one atomic unit.
	saving sync.Mutex

	// wmu guards lastWritten, used to tell our own file writes apart from
	// external ones when watching.
	wmu         sync.Mutex
	lastWritten []byte

	watcher *fsnotify.Watcher
	cron    *cron.Cron
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *observability.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics enables Prometheus instrumentation of saves and reloads.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithSaveDelay sets the debounce interval between a change and the save it
// schedules. Zero saves immediately.
func WithSaveDelay(d time.Duration) Option {
	return func(s *Store) { s.saveDelay = d }
}

// New creates a store persisting to path and starts its writer goroutine.
// Call Load before handing the store to adapters, and Close on shutdown for
// a final flush.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:      path,
		log:       observability.NopLogger(),
		saveDelay: defaultSaveDelay,
		data:      make(map[string]map[string]json.RawMessage),
		saveCh:    make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.run()
	return s
}

// Load reads the on-disk document into memory. A missing or malformed file
// degrades to an empty store; Load never fails startup.
func (s *Store) Load() {
	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.log.WithField("path", s.path).Debug("No state document yet, starting empty")
	case err != nil:
		s.log.WithError(err).WithField("path", s.path).Warn("Failed to read state document, starting empty")
	default:
		var doc map[string]map[string]json.RawMessage
		if err := json.Unmarshal(data, &doc); err != nil {
			s.log.WithError(err).WithField("path", s.path).Warn("Corrupt state document, starting empty")
		} else if doc != nil {
			s.mu.Lock()
			s.data = doc
			s.mu.Unlock()

			s.wmu.Lock()
			s.lastWritten = data
			s.wmu.Unlock()
		}
	}

	s.mu.Lock()
	s.loaded = true
	count := s.entryCountLocked()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.StoreEntriesTotal.Set(float64(count))
	}
	s.log.WithFields(map[string]interface{}{
		"path":    s.path,
		"entries": count,
	}).Info("State store loaded")
}

// GetState returns a copy of the record for namespace. Absent namespaces and
// reads before Load yield an empty record, never nil.
func (s *Store) GetState(namespace string) map[string]json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record := make(map[string]json.RawMessage, len(s.data[namespace]))
	for key, value := range s.data[namespace] {
		record[key] = append(json.RawMessage(nil), value...)
	}
	return record
}

// Namespaces returns the ids of all namespaces currently present.
func (s *Store) Namespaces() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.data))
	for namespace := range s.data {
		out = append(out, namespace)
	}
	return out
}

// SetState upserts key in the namespace's record, or deletes it when value
// is absent. A cleared key disappears entirely rather than leaving a null
// tombstone. Either way a coalesced save is scheduled.
func (s *Store) SetState(namespace, key string, value json.RawMessage) {
	s.mu.Lock()
	if len(value) == 0 || bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
		if record, ok := s.data[namespace]; ok {
			delete(record, key)
		}
	} else {
		record, ok := s.data[namespace]
		if !ok {
			record = make(map[string]json.RawMessage)
			s.data[namespace] = record
		}
		record[key] = append(json.RawMessage(nil), value...)
	}
	count := s.entryCountLocked()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.StoreEntriesTotal.Set(float64(count))
	}
	s.scheduleSave()
}

// Flush persists the current state synchronously.
func (s *Store) Flush() error {
	return s.save()
}

// Close stops the writer goroutine, watcher and backup schedule, then runs a
// final flush.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		if s.watcher != nil {
			s.watcher.Close()
		}
		if s.cron != nil {
			s.cron.Stop()
		}
		err = s.save()
	})
	return err
}

func (s *Store) scheduleSave() {
	select {
	case s.saveCh <- struct{}{}:
	default:
	}
}

func (s *Store) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.saveCh:
			if s.saveDelay > 0 {
				timer := time.NewTimer(s.saveDelay)
				select {
				case <-s.done:
					timer.Stop()
					return
				case <-timer.C:
				}
			}
			// Absorb signals that arrived during the delay; the save below
			// already captures those changes.
			select {
			case <-s.saveCh:
			default:
			}
			if err := s.save(); err != nil {
				s.log.WithError(err).Error("Failed to save state document")
			}
		}
	}
}

// save snapshots the in-memory state and writes it to disk as one atomic
// unit: a temp file replaced over the document via rename. Concurrent save
// calls are serialized; a change landing mid-save re-arms saveCh and causes
// a follow-up save.
func (s *Store) save() error {
	s.saving.Lock()
	defer s.saving.Unlock()

	start := time.Now()
	saveID := uuid.NewString()

	s.mu.RLock()
	snapshot := make(map[string]map[string]json.RawMessage, len(s.data))
	for namespace, record := range s.data {
		out := make(map[string]json.RawMessage, len(record))
		for key, value := range record {
			out[key] = value
		}
		snapshot[namespace] = out
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		s.observeSave(start, err)
		return fmt.Errorf("failed to encode state document: %w", err)
	}

	s.wmu.Lock()
	s.lastWritten = data
	s.wmu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		s.observeSave(start, err)
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		s.observeSave(start, err)
		return fmt.Errorf("failed to write state document: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.observeSave(start, err)
		return fmt.Errorf("failed to replace state document: %w", err)
	}

	s.observeSave(start, nil)
	if s.metrics != nil {
		s.metrics.StoreDocumentBytes.Set(float64(len(data)))
	}
	s.log.WithFields(map[string]interface{}{
		"save_id": saveID,
		"bytes":   len(data),
		"took":    time.Since(start).String(),
	}).Debug("State document saved")
	return nil
}

func (s *Store) observeSave(start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.StoreSavesTotal.WithLabelValues(status).Inc()
	s.metrics.StoreSaveDuration.Observe(time.Since(start).Seconds())
}

func (s *Store) entryCountLocked() int {
	count := 0
	for _, record := range s.data {
		count += len(record)
	}
	return count
}

// Watch reloads the in-memory state when another process modifies the
// document. Writes made by this store are recognized and ignored.
func (s *Store) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Watch the directory: editors and atomic renames replace the file node.
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch state directory: %w", err)
	}
	s.watcher = watcher

	go s.watchLoop()
	return nil
}

func (s *Store) watchLoop() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			s.reloadExternal()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.WithError(err).Warn("File watcher error")
		}
	}
}

func (s *Store) reloadExternal() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}

	s.wmu.Lock()
	own := bytes.Equal(data, s.lastWritten)
	s.wmu.Unlock()
	if own {
		return
	}

	var doc map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		s.log.WithError(err).Warn("Ignoring malformed external state document")
		return
	}
	if doc == nil {
		doc = make(map[string]map[string]json.RawMessage)
	}

	s.mu.Lock()
	s.data = doc
	count := s.entryCountLocked()
	s.mu.Unlock()

	s.wmu.Lock()
	s.lastWritten = data
	s.wmu.Unlock()

	if s.metrics != nil {
		s.metrics.StoreReloadsTotal.Inc()
		s.metrics.StoreEntriesTotal.Set(float64(count))
	}
	s.log.WithField("entries", count).Info("Reloaded externally modified state document")
}

// ScheduleBackups copies the document to <path>.bak on the given cron
// schedule (e.g. "@hourly").
func (s *Store) ScheduleBackups(schedule string) error {
	if s.cron == nil {
		s.cron = cron.New()
	}
	if _, err := s.cron.AddFunc(schedule, s.backup); err != nil {
		return fmt.Errorf("invalid backup schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	return nil
}

func (s *Store) backup() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	if err := os.WriteFile(s.path+".bak", data, 0644); err != nil {
		s.log.WithError(err).Warn("Failed to write state backup")
	}
}
