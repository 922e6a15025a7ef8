package sonicprint

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/himanishpuri/sonicprint/pkg/sonicprint/storage"
)

// ErrNotFound is returned for unknown fingerprint ids.
var ErrNotFound = storage.ErrNotFound

// storageAdapter adapts storage.DBClient to the Storage interface.
type storageAdapter struct {
	db *storage.DBClient
}

// NewSQLiteStorage opens (or creates) the fingerprint cache at dbPath.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return &storageAdapter{db: db}, nil
}

func toRecord(r *FingerprintRecord) *storage.Record {
	return &storage.Record{
		ID:             r.ID,
		Name:           r.Name,
		RawDigest:      r.RawDigest,
		SettingsDigest: r.SettingsDigest,
		Hash:           r.Hash,
		FloatHash:      r.FloatHash,
		Width:          r.Width,
		Height:         r.Height,
		Samples:        r.Samples,
		Features:       r.Features,
		Raw:            r.Raw,
		Payload:        r.Payload,
	}
}

func infoOf(r *storage.Record) FingerprintInfo {
	return FingerprintInfo{
		ID:        r.ID,
		Name:      r.Name,
		Hash:      r.Hash,
		FloatHash: r.FloatHash,
		Width:     r.Width,
		Height:    r.Height,
		Samples:   r.Samples,
		Features:  r.Features,
		CreatedAt: r.CreatedAt,
	}
}

func fromRecord(r *storage.Record) *FingerprintRecord {
	return &FingerprintRecord{
		FingerprintInfo: infoOf(r),
		RawDigest:       r.RawDigest,
		SettingsDigest:  r.SettingsDigest,
		Raw:             r.Raw,
		Payload:         r.Payload,
	}
}

func (s *storageAdapter) SaveFingerprint(rec *FingerprintRecord) (string, error) {
	return s.db.Save(toRecord(rec))
}

func (s *storageAdapter) FindFingerprint(rawDigest, settingsDigest string) (*FingerprintRecord, error) {
	r, err := s.db.FindByKey(rawDigest, settingsDigest)
	if err != nil {
		return nil, err
	}
	return fromRecord(r), nil
}

func (s *storageAdapter) GetFingerprint(id string) (*FingerprintRecord, error) {
	r, err := s.db.Get(id)
	if err != nil {
		return nil, err
	}
	return fromRecord(r), nil
}

func (s *storageAdapter) ListFingerprints() ([]FingerprintInfo, error) {
	rows, err := s.db.List()
	if err != nil {
		return nil, err
	}
	out := make([]FingerprintInfo, len(rows))
	for i := range rows {
		out[i] = infoOf(&rows[i])
	}
	return out, nil
}

func (s *storageAdapter) DeleteFingerprint(id string) error {
	return s.db.Delete(id)
}

func (s *storageAdapter) Close() error {
	return s.db.Close()
}

// memoryStorage keeps records for the lifetime of the process.
type memoryStorage struct {
	mu   sync.RWMutex
	byID map[string]*FingerprintRecord
	now  func() time.Time
}

// NewMemoryStorage returns a Storage that persists nothing.
func NewMemoryStorage() Storage {
	return &memoryStorage{byID: make(map[string]*FingerprintRecord), now: time.Now}
}

func (m *memoryStorage) SaveFingerprint(rec *FingerprintRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.byID {
		if r.RawDigest == rec.RawDigest && r.SettingsDigest == rec.SettingsDigest {
			return id, nil
		}
	}
	cp := *rec
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	cp.CreatedAt = m.now()
	m.byID[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memoryStorage) FindFingerprint(rawDigest, settingsDigest string) (*FingerprintRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.byID {
		if r.RawDigest == rawDigest && r.SettingsDigest == settingsDigest {
			cp := *r
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memoryStorage) GetFingerprint(id string) (*FingerprintRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memoryStorage) ListFingerprints() ([]FingerprintInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]FingerprintInfo, 0, len(m.byID))
	for _, r := range m.byID {
		out = append(out, r.FingerprintInfo)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memoryStorage) DeleteFingerprint(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memoryStorage) Close() error {
	return nil
}
