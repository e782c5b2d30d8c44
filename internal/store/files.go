// ABOUTME: File-backed Store implementation over an active and an archived directory
// ABOUTME: One YAML file per race; lifecycle transitions are renames between the two directories

package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultExtension is the file extension used when FileStoreConfig leaves it empty
const DefaultExtension = "yaml"

// FileStoreConfig configures a FileStore
type FileStoreConfig struct {
	RacesDir    string
	ArchivedDir string
	Extension   string
	Logger      *slog.Logger
}

// FileStore implements Store on two directories of the local filesystem.
// The directory listing is the only index: nothing is cached between calls.
type FileStore struct {
	racesDir    string
	archivedDir string
	ext         string
	locks       *keyLocks
	logger      *slog.Logger
}

// Compile-time interface check
var _ Store = (*FileStore)(nil)

// NewFileStore creates both directories when they are missing. It fails when a path exists but
// is not a directory, or when both paths name the same directory.
func NewFileStore(cfg FileStoreConfig) (*FileStore, error) {
	if cfg.RacesDir == "" || cfg.ArchivedDir == "" {
		return nil, errors.New("races and archived directories are required")
	}

	ext := strings.TrimPrefix(cfg.Extension, ".")
	if ext == "" {
		ext = DefaultExtension
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for _, dir := range []string{cfg.RacesDir, cfg.ArchivedDir} {
		if err := ensureDir(dir); err != nil {
			logger.Error("initializing race directory", "path", dir, "error", err)
			return nil, err
		}
	}

	racesInfo, err := os.Stat(cfg.RacesDir)
	if err != nil {
		return nil, fmt.Errorf("checking dir %s: %w", cfg.RacesDir, err)
	}
	archivedInfo, err := os.Stat(cfg.ArchivedDir)
	if err != nil {
		return nil, fmt.Errorf("checking dir %s: %w", cfg.ArchivedDir, err)
	}
	if os.SameFile(racesInfo, archivedInfo) {
		return nil, fmt.Errorf("races dir %s and archived dir %s are the same directory", cfg.RacesDir, cfg.ArchivedDir)
	}

	return &FileStore{
		racesDir:    cfg.RacesDir,
		archivedDir: cfg.ArchivedDir,
		ext:         ext,
		locks:       newKeyLocks(),
		logger:      logger,
	}, nil
}

// ensureDir creates dir when absent and rejects paths that are not directories
func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating dir %s: %w", dir, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("checking dir %s: %w", dir, err)
	case !info.IsDir():
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

func (s *FileStore) activePath(id string) string {
	return filepath.Join(s.racesDir, id+"."+s.ext)
}

func (s *FileStore) archivedPath(id string) string {
	return filepath.Join(s.archivedDir, id+"."+s.ext)
}

// List reads every race file of the scope. Files that cannot be parsed are logged and skipped.
func (s *FileStore) List(ctx context.Context, scope Scope) ([]*Race, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir, archived := s.racesDir, false
	if scope == ScopeArchived {
		dir, archived = s.archivedDir, true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		s.logger.Error("reading race directory", "path", dir, "error", err)
		return nil, fmt.Errorf("reading dir %s: %w", dir, err)
	}

	suffix := "." + s.ext
	races := make([]*Race, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || !strings.HasSuffix(name, suffix) {
			continue
		}
		id := strings.TrimSuffix(name, suffix)
		if ValidateID(id) != nil {
			continue
		}

		path := filepath.Join(dir, name)
		race, err := readRace(path)
		if err != nil {
			s.logger.Warn("skipping unreadable race file", "path", path, "error", err)
			continue
		}
		race.ID = id
		race.Archived = archived
		races = append(races, race)
	}

	sortByStartDesc(races)
	return races, nil
}

// sortByStartDesc orders races by descending start time. A race without a start time counts
// as the earliest instant. Ties keep their listing order.
func sortByStartDesc(races []*Race) {
	sort.SliceStable(races, func(i, j int) bool {
		return startKey(races[i]).After(startKey(races[j]))
	})
}

func startKey(r *Race) time.Time {
	if r.StartTime == nil {
		return time.Time{}
	}
	return *r.StartTime
}

// Get returns the race from the active set, or from the archived set when it is not active.
func (s *FileStore) Get(ctx context.Context, id string) (*Race, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateID(id); err != nil {
		return nil, opError("get", id, err)
	}

	for _, loc := range []struct {
		path     string
		archived bool
	}{
		{s.activePath(id), false},
		{s.archivedPath(id), true},
	} {
		race, err := readRace(loc.path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			s.logger.Error("reading race file", "path", loc.path, "error", err)
			return nil, fmt.Errorf("reading race %s: %w", id, err)
		}
		race.ID = id
		race.Archived = loc.archived
		return race, nil
	}

	return nil, opError("get", id, ErrNotFound)
}

// Create writes a new race into the active set. The race must carry its identifier.
func (s *FileStore) Create(ctx context.Context, race *Race) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if race == nil {
		return opError("create", "", ErrIdentifierRequired)
	}
	id := race.ID
	if err := ValidateID(id); err != nil {
		return opError("create", id, err)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	path := s.activePath(id)
	found, err := s.exists(path)
	if err != nil {
		return err
	}
	if found {
		return opError("create", id, ErrAlreadyExists)
	}

	return s.save(path, race)
}

// Update rewrites an active race. When race.ID names another identifier the race is written
// under the new name and the old file is removed.
func (s *FileStore) Update(ctx context.Context, id string, race *Race) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateID(id); err != nil {
		return opError("update", id, err)
	}
	if race == nil {
		return errors.New("update: nil race")
	}

	newID := id
	if race.ID != "" && race.ID != id {
		if err := ValidateID(race.ID); err != nil {
			return opError("update", race.ID, err)
		}
		newID = race.ID
	}

	unlock := s.locks.Lock(id, newID)
	defer unlock()

	oldPath := s.activePath(id)
	found, err := s.exists(oldPath)
	if err != nil {
		return err
	}
	if !found {
		return opError("update", id, ErrNotFound)
	}

	if newID == id {
		return s.save(oldPath, race)
	}

	newPath := s.activePath(newID)
	taken, err := s.exists(newPath)
	if err != nil {
		return err
	}
	if taken {
		return opError("update", newID, ErrAlreadyExists)
	}

	if err := s.save(newPath, race); err != nil {
		return err
	}
	if err := os.Remove(oldPath); err != nil {
		s.logger.Error("removing renamed race file", "path", oldPath, "error", err)
		// Leave exactly one file for the race
		_ = os.Remove(newPath)
		return fmt.Errorf("removing %s: %w", oldPath, err)
	}
	return nil
}

// Delete removes the race from the active set, or from the archived set when it is not active.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateID(id); err != nil {
		return opError("delete", id, err)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	for _, path := range []string{s.activePath(id), s.archivedPath(id)} {
		err := os.Remove(path)
		if err == nil {
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Error("removing race file", "path", path, "error", err)
			return fmt.Errorf("removing %s: %w", path, err)
		}
	}

	return opError("delete", id, ErrNotFound)
}

// Archive moves an active race into the archived set.
func (s *FileStore) Archive(ctx context.Context, id string) error {
	return s.transition(ctx, "archive", id, s.activePath(id), s.archivedPath(id))
}

// Restore moves an archived race back into the active set.
func (s *FileStore) Restore(ctx context.Context, id string) error {
	return s.transition(ctx, "restore", id, s.archivedPath(id), s.activePath(id))
}

// transition renames src to dst. src must exist and dst must not.
func (s *FileStore) transition(ctx context.Context, op, id, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateID(id); err != nil {
		return opError(op, id, err)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	found, err := s.exists(src)
	if err != nil {
		return err
	}
	if !found {
		return opError(op, id, ErrNotFound)
	}

	taken, err := s.exists(dst)
	if err != nil {
		return err
	}
	if taken {
		return opError(op, id, ErrAlreadyExists)
	}

	if err := os.Rename(src, dst); err != nil {
		s.logger.Error("moving race file", "from", src, "to", dst, "error", err)
		return fmt.Errorf("moving %s to %s: %w", src, dst, err)
	}
	return nil
}

// Check verifies that both directories are still present
func (s *FileStore) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, dir := range []string{s.racesDir, s.archivedDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("checking dir %s: %w", dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}
	}
	return nil
}

func (s *FileStore) exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	s.logger.Error("checking race file", "path", path, "error", err)
	return false, fmt.Errorf("checking %s: %w", path, err)
}

func (s *FileStore) save(path string, race *Race) error {
	race.Normalize()
	data, err := EncodeRace(race)
	if err != nil {
		s.logger.Error("encoding race", "path", path, "error", err)
		return fmt.Errorf("encoding race: %w", err)
	}
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		s.logger.Error("saving race", "path", path, "error", err)
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

// EncodeRace renders a race in the on-disk format
func EncodeRace(race *Race) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(race); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeRace parses the on-disk format. ID and Archived are left for the caller to project.
func DecodeRace(data []byte) (*Race, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty race document")
	}
	var race Race
	if err := yaml.Unmarshal(data, &race); err != nil {
		return nil, err
	}
	race.Normalize()
	return &race, nil
}

func readRace(path string) (*Race, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	race, err := DecodeRace(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return race, nil
}

// writeFileAtomic writes data to a temp file in the target directory and renames it over path,
// so readers see either the old content or the new one.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	success = true
	return nil
}
