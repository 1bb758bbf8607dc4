// Package profiles loads the scenario, agent, and relationship data that
// role-play chats are built from and indexes it for the queries the chat
// needs.
package profiles

import (
	"bufio"
	"bytes"
	"embed"
	"encoding/json"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/myrjola/sotopia-chat/internal/errors"
	"github.com/myrjola/sotopia-chat/internal/models"
)

var (
	// ErrLoad means a profile source could not be read, parsed, or validated.
	ErrLoad = errors.NewSentinel("profile source could not be loaded")
	// ErrIntegrity means the sources disagree with each other, e.g. an edge
	// references an agent that does not exist.
	ErrIntegrity = errors.NewSentinel("profile sources are inconsistent")
	// ErrNotFound means a lookup did not match any profile.
	ErrNotFound = errors.NewSentinel("no matching profile")
)

// Sources names the newline-delimited JSON files a snapshot is built from.
type Sources struct {
	Environments  string
	Agents        string
	Relationships string
}

// DefaultSources is the file layout expected inside a profile directory.
var DefaultSources = Sources{
	Environments:  "environment_profiles.jsonl",
	Agents:        "agent_profiles.jsonl",
	Relationships: "relationship_profiles.jsonl",
}

//go:embed data
var embeddedFS embed.FS

var embeddedStore = func() *Store {
	fsys, err := fs.Sub(embeddedFS, "data")
	if err != nil {
		panic(err)
	}
	return NewStore(fsys)
}()

// Embedded returns the process-wide store backed by the bundled demo profiles.
func Embedded() *Store {
	return embeddedStore
}

// Store hands out profile snapshots parsed from a file system. Loading is
// memoized per source triple so that concurrent callers share a single parse.
type Store struct {
	fsys      fs.FS
	mu        sync.Mutex
	snapshots map[Sources]*memoizedLoad
}

type memoizedLoad struct {
	once     sync.Once
	snapshot *Snapshot
	err      error
}

// NewStore creates a store over the given file system, e.g. os.DirFS over a
// profile directory.
func NewStore(fsys fs.FS) *Store {
	return &Store{
		fsys:      fsys,
		mu:        sync.Mutex{},
		snapshots: make(map[Sources]*memoizedLoad),
	}
}

// Load parses and indexes the given sources. The first caller for a source
// triple does the work and later or concurrent callers share its outcome,
// including a failed one, until Reset is called.
func (s *Store) Load(sources Sources) (*Snapshot, error) {
	s.mu.Lock()
	memo, ok := s.snapshots[sources]
	if !ok {
		memo = &memoizedLoad{once: sync.Once{}, snapshot: nil, err: nil}
		s.snapshots[sources] = memo
	}
	s.mu.Unlock()

	memo.once.Do(func() {
		memo.snapshot, memo.err = s.load(sources)
	})
	if memo.err != nil {
		return nil, memo.err
	}
	return memo.snapshot, nil
}

// Reset drops the memoized snapshots so that the next Load parses the sources
// again. Intended for tests that mutate the underlying files.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = make(map[Sources]*memoizedLoad)
}

func (s *Store) load(sources Sources) (*Snapshot, error) {
	environments, err := decodeRecords[models.EnvironmentProfile](s.fsys, sources.Environments)
	if err != nil {
		return nil, err
	}
	agents, err := decodeRecords[models.AgentProfile](s.fsys, sources.Agents)
	if err != nil {
		return nil, err
	}
	edges, err := decodeRecords[models.RelationshipEdge](s.fsys, sources.Relationships)
	if err != nil {
		return nil, err
	}
	return buildSnapshot(environments, agents, edges)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeRecords parses one JSON object per line. Blank lines are skipped,
// anything else that fails to parse or validate aborts the load.
func decodeRecords[T any](fsys fs.FS, name string) ([]T, error) {
	file, err := fsys.Open(name)
	if err != nil {
		return nil, errors.Wrap(errors.Join(ErrLoad, err), "open profile source", slog.String("file", name))
	}
	defer func() {
		_ = file.Close()
	}()

	var records []T
	scanner := bufio.NewScanner(file)
	// Scenario texts can be long, so allow oversized lines.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var record T
		if err = json.Unmarshal(raw, &record); err != nil {
			return nil, errors.Wrap(errors.Join(ErrLoad, err), "decode profile record",
				slog.String("file", name), slog.Int("line", line))
		}
		if err = validate.Struct(record); err != nil {
			return nil, errors.Wrap(errors.Join(ErrLoad, err), "validate profile record",
				slog.String("file", name), slog.Int("line", line))
		}
		records = append(records, record)
	}
	if err = scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.Join(ErrLoad, err), "read profile source", slog.String("file", name))
	}
	return records, nil
}
