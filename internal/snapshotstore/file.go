package snapshotstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gradewatch/internal/components/assert"
	"gradewatch/internal/components/telemetry"
	"gradewatch/internal/grades"
)

const (
	report_file_load = "file.load"
	report_file_save = "file.save"
)

// DefaultPath is where the daemon keeps its baseline unless configured
// otherwise, the data directory is meant to be a mounted volume.
const DefaultPath = "data/grades_history.json"

// FileStore keeps the snapshot in a single human readable json file.
type FileStore struct {
	path string
	tel  telemetry.API

	// beforeRename runs after the temporary file is written and closed,
	// tests use it to simulate a crash in the middle of Save.
	beforeRename func(tmpPath string) error
}

func NewFileStore(path string, tel telemetry.API) *FileStore {
	assert.NotEmptyStr(path)
	assert.NotNil(tel)

	return &FileStore{
		path: path,
		tel:  telemetry.NewScopedAPI("snapshot_store", tel),
	}
}

func (s *FileStore) backend() string {
	return fmt.Sprintf("file %s", s.path)
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(ctx context.Context) (grades.Snapshot, bool, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.tel.ReportDebug("no snapshot file yet", s.path)
		return nil, false, nil
	}
	if err != nil {
		s.tel.ReportDebug(report_file_load, err, s.path)
		return nil, false, &StorageError{Op: "load", Backend: s.backend(), Err: err}
	}

	snapshot, err := decodeSnapshot(data)
	if err != nil {
		s.tel.ReportDebug(report_file_load, err, s.path)
		return nil, false, &StorageError{Op: "load", Backend: s.backend(), Err: err}
	}
	return snapshot, true, nil
}

// Save writes the snapshot next to the target file and renames it into
// place, so the target is always either the old or the new snapshot.
func (s *FileStore) Save(ctx context.Context, snapshot grades.Snapshot) error {
	err := s.save(snapshot)
	if err != nil {
		s.tel.ReportDebug(report_file_save, err, s.path)
		return &StorageError{Op: "save", Backend: s.backend(), Err: err}
	}
	return nil
}

func (s *FileStore) save(snapshot grades.Snapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	err = os.MkdirAll(dir, 0o755)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, fmt.Sprintf(".%s-*.tmp", filepath.Base(s.path)))
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	_, err = tmp.Write(data)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	err = tmp.Sync()
	if err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	err = tmp.Close()
	if err != nil {
		return err
	}

	if s.beforeRename != nil {
		err = s.beforeRename(tmpPath)
		if err != nil {
			return err
		}
	}

	err = os.Rename(tmpPath, s.path)
	if err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	committed = true

	syncDir(dir)
	return nil
}

// syncDir makes the rename durable, not every platform supports fsync on a
// directory so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	d.Sync()
}
