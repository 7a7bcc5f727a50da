package preferences

import (
	"crypto/md5"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const recordSuffix = ".sc"

type service struct {
	sync.Mutex
	databaseFolder string

	eventSubscribers map[string]func(event *Event)
}

func NewService(databaseFolder string) (Service, error) {
	if err := os.MkdirAll(databaseFolder, 0755); err != nil {
		return nil, fmt.Errorf("failed to create preferences folder %s: %w", databaseFolder, err)
	}
	return &service{
		databaseFolder:   databaseFolder,
		eventSubscribers: make(map[string]func(*Event)),
	}, nil
}

func recordFilename(front bool) string {
	key := "back"
	if front {
		key = "front"
	}
	hash := md5.New()
	hash.Write([]byte(key))
	return hex.EncodeToString(hash.Sum(nil)) + recordSuffix
}

// Get returns the stored record for the facing, or a zero record when none
// has been written yet.
func (s *service) Get(front bool) (*Record, error) {
	s.Lock()
	defer s.Unlock()
	return s.read(front)
}

func (s *service) read(front bool) (*Record, error) {
	file, err := os.Open(path.Join(s.databaseFolder, recordFilename(front)))
	if errors.Is(err, os.ErrNotExist) {
		return &Record{Front: front}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open preferences file: %w", err)
	}

	var record Record
	err = gob.NewDecoder(file).Decode(&record)
	_ = file.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to decode preferences: %w", err)
	}
	return &record, nil
}

func (s *service) Update(record *Record) error {
	if record.PhotoResolutionIndex < 0 || record.VideoResolutionIndex < 0 {
		return errors.New("resolution index must not be negative")
	}

	s.Lock()
	previous, err := s.read(record.Front)
	if err != nil {
		log.WithError(err).Warn("overwriting unreadable preferences")
		previous = &Record{Front: record.Front}
	}

	file, err := os.OpenFile(path.Join(s.databaseFolder, recordFilename(record.Front)), os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		s.Unlock()
		return fmt.Errorf("failed to open preferences file for writing: %w", err)
	}
	err = gob.NewEncoder(file).Encode(record)
	_ = file.Close()
	if err != nil {
		s.Unlock()
		return fmt.Errorf("failed to write preferences to file: %w", err)
	}

	var handlers []func(*Event)
	if *previous != *record {
		for _, h := range s.eventSubscribers {
			handlers = append(handlers, h)
		}
	}
	s.Unlock()

	stored := *record
	for _, h := range handlers {
		h(&Event{Type: EventTypeResolutionChanged, Record: &stored})
	}
	return nil
}

func (s *service) List() ([]*Record, error) {
	s.Lock()
	defer s.Unlock()

	dir, err := os.ReadDir(s.databaseFolder)
	if err != nil {
		return nil, fmt.Errorf("failed to list preferences folder content: %w", err)
	}

	var records []*Record
	for _, entry := range dir {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordSuffix) {
			continue
		}
		file, err := os.Open(path.Join(s.databaseFolder, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read entry %s: %w", entry.Name(), err)
		}
		var record Record
		err = gob.NewDecoder(file).Decode(&record)
		_ = file.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal preferences entry %s: %w", entry.Name(), err)
		}
		records = append(records, &record)
	}
	return records, nil
}

// PhotoResolutionIndex never fails: unreadable preferences select the largest size.
func (s *service) PhotoResolutionIndex(front bool) int {
	record, err := s.Get(front)
	if err != nil {
		log.WithError(err).Warn("failed to read photo resolution preference")
		return 0
	}
	return record.PhotoResolutionIndex
}

func (s *service) Subscribe(f func(*Event)) func() {
	id := uuid.NewString()
	s.Lock()
	defer s.Unlock()
	s.eventSubscribers[id] = f
	return func() {
		s.Lock()
		defer s.Unlock()
		delete(s.eventSubscribers, id)
	}
}
