// File: internal/permissions/store.go
package permissions

import (
	"fmt"
	"os"
	"sync"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// Decision is a persisted answer for one action/target pair.
type Decision string

const (
	Allowed Decision = "ALLOWED"
	Denied  Decision = "DENIED"
	Unknown Decision = "UNKNOWN"
)

// Store maps "{action}:{target}" keys to persisted decisions. Writes are
// serialized through a mutex since each grant/deny is a read-modify-write of
// the backing file. Single-process usage is assumed; there is no cross
// process locking.
type Store struct {
	path   string
	logger *zap.Logger

	mu        sync.Mutex
	decisions map[string]Decision
}

// NewStore loads the decision file if it exists. A missing or corrupt file
// starts an empty store rather than failing startup.
func NewStore(path string, logger *zap.Logger) *Store {
	s := &Store{
		path:      path,
		logger:    logger.Named("permissions"),
		decisions: make(map[string]Decision),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	if err := json.Unmarshal(data, &s.decisions); err != nil {
		s.logger.Warn("Permission file is corrupt, starting empty", zap.Error(err))
		s.decisions = make(map[string]Decision)
	}
	return s
}

func key(action, target string) string {
	return fmt.Sprintf("%s:%s", action, target)
}

// Check returns the persisted decision for the pair, or Unknown.
func (s *Store) Check(action, target string) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.decisions[key(action, target)]; ok {
		return d
	}
	return Unknown
}

// Grant persists an ALLOWED decision.
func (s *Store) Grant(action, target string) {
	s.set(key(action, target), Allowed)
}

// Deny persists a DENIED decision.
func (s *Store) Deny(action, target string) {
	s.set(key(action, target), Denied)
}

func (s *Store) set(k string, d Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions[k] = d
	if err := s.save(); err != nil {
		s.logger.Error("Failed to save permissions", zap.Error(err))
	}
}

// save writes the whole map back to disk. Caller holds the mutex.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.decisions, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}
