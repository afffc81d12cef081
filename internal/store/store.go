// Package store persists sticker templates in a YAML file.
package store

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/stickyfollow/internal/follow"
)

// CurrentVersion is written to every stickers file.
const CurrentVersion = 1

var (
	ErrNotFound  = errors.New("sticker not found")
	ErrAmbiguous = errors.New("sticker reference is ambiguous")
	ErrClosed    = errors.New("store is closed")
)

// Sticker is a template as stored on disk.
type Sticker struct {
	follow.Template `yaml:",inline"`
	Name            string `yaml:"name,omitempty" json:"name,omitempty"`
	// Image is a path to a PNG, JPEG, GIF or WebP file.
	Image string `yaml:"image,omitempty" json:"image,omitempty"`
}

// Label returns the name, or the id when unnamed.
func (s Sticker) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

type file struct {
	Version  int       `yaml:"version"`
	Stickers []Sticker `yaml:"stickers"`
}

// ChangeType identifies what happened in a ChangeEvent.
type ChangeType string

const (
	ChangeTypeAdd    ChangeType = "add"
	ChangeTypeUpdate ChangeType = "update"
	ChangeTypeDelete ChangeType = "delete"
	ChangeTypeReload ChangeType = "reload"
)

// ChangeEvent is sent to subscribers after the store changes.
type ChangeEvent struct {
	Type ChangeType
	ID   string
	// Source is "api" for in-process edits and "file" for reloads.
	Source string
}

// Store holds stickers in memory and writes every change back to disk.
type Store struct {
	mu          sync.RWMutex
	path        string
	stickers    []Sticker
	digest      [sha256.Size]byte
	subscribers []chan ChangeEvent
	closed      bool
}

// Open loads path. A missing file yields an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	if _, err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// NewID returns a fresh sticker id.
func NewID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate ULID: %w", err)
	}
	return id.String(), nil
}

// Reload rereads the file. It reports false when the content is unchanged
// since the last load or save.
func (s *Store) Reload() (bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		data = nil
	} else if err != nil {
		return false, fmt.Errorf("read stickers: %w", err)
	}

	digest := sha256.Sum256(data)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrClosed
	}
	if digest == s.digest && s.stickers != nil {
		s.mu.Unlock()
		return false, nil
	}
	s.mu.Unlock()

	var f file
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return false, fmt.Errorf("parse %s: %w", s.path, err)
		}
	}
	if f.Version > CurrentVersion {
		return false, fmt.Errorf("%s: unsupported version %d", s.path, f.Version)
	}
	if err := validate(f.Stickers); err != nil {
		return false, fmt.Errorf("%s: %w", s.path, err)
	}

	s.mu.Lock()
	s.stickers = append(make([]Sticker, 0, len(f.Stickers)), f.Stickers...)
	s.digest = digest
	s.notifyChange(ChangeEvent{Type: ChangeTypeReload, Source: "file"})
	s.mu.Unlock()
	return true, nil
}

func validate(stickers []Sticker) error {
	seen := make(map[string]bool, len(stickers))
	for i, st := range stickers {
		if strings.TrimSpace(st.ID) == "" {
			return fmt.Errorf("sticker %d has no id", i)
		}
		if seen[st.ID] {
			return fmt.Errorf("duplicate sticker id %q", st.ID)
		}
		seen[st.ID] = true
	}
	return nil
}

// All returns a copy of every sticker in file order.
func (s *Store) All() []Sticker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.stickers)
}

// Templates returns the follow templates of every sticker.
func (s *Store) Templates() []follow.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]follow.Template, 0, len(s.stickers))
	for _, st := range s.stickers {
		out = append(out, st.Template)
	}
	return out
}

// Get returns the sticker with exactly this id.
func (s *Store) Get(id string) (Sticker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.stickers[i], true
	}
	return Sticker{}, false
}

// Lookup resolves a user-supplied reference: an exact id, a unique id
// prefix, or a unique case-insensitive name.
func (s *Store) Lookup(ref string) (Sticker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(ref); i >= 0 {
		return s.stickers[i], nil
	}

	var matches []int
	for i, st := range s.stickers {
		if strings.HasPrefix(strings.ToUpper(st.ID), strings.ToUpper(ref)) || strings.EqualFold(st.Name, ref) {
			matches = append(matches, i)
		}
	}
	switch len(matches) {
	case 0:
		return Sticker{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
	case 1:
		return s.stickers[matches[0]], nil
	default:
		return Sticker{}, fmt.Errorf("%w: %s matches %d stickers", ErrAmbiguous, ref, len(matches))
	}
}

// Add stores a new sticker, assigning an id when it has none.
func (s *Store) Add(st Sticker) (Sticker, error) {
	if st.ID == "" {
		id, err := NewID()
		if err != nil {
			return Sticker{}, err
		}
		st.ID = id
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Sticker{}, ErrClosed
	}
	if s.indexOf(st.ID) >= 0 {
		return Sticker{}, fmt.Errorf("sticker %s already exists", st.ID)
	}
	s.stickers = append(s.stickers, st)
	if err := s.save(); err != nil {
		s.stickers = s.stickers[:len(s.stickers)-1]
		return Sticker{}, err
	}
	s.notifyChange(ChangeEvent{Type: ChangeTypeAdd, ID: st.ID, Source: "api"})
	return st, nil
}

// Update replaces a sticker.
func (s *Store) Update(st Sticker) error {
	return s.modify(st.ID, func(cur *Sticker) { *cur = st })
}

// UpdateTemplate replaces only the follow template part of a sticker.
func (s *Store) UpdateTemplate(tpl follow.Template) error {
	return s.modify(tpl.ID, func(cur *Sticker) { cur.Template = tpl })
}

func (s *Store) modify(id string, fn func(*Sticker)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	prev := s.stickers[i]
	fn(&s.stickers[i])
	s.stickers[i].ID = id
	if s.stickers[i] == prev {
		return nil
	}
	if err := s.save(); err != nil {
		s.stickers[i] = prev
		return err
	}
	s.notifyChange(ChangeEvent{Type: ChangeTypeUpdate, ID: id, Source: "api"})
	return nil
}

// Delete removes a sticker by id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	prev := slices.Clone(s.stickers)
	s.stickers = slices.Delete(s.stickers, i, i+1)
	if err := s.save(); err != nil {
		s.stickers = prev
		return err
	}
	s.notifyChange(ChangeEvent{Type: ChangeTypeDelete, ID: id, Source: "api"})
	return nil
}

// Count returns the number of stickers.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stickers)
}

// Subscribe returns a channel that receives change events.
func (s *Store) Subscribe() <-chan ChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan ChangeEvent, 10)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// Close closes all subscriber channels.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	for _, ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil
	return nil
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.stickers, func(st Sticker) bool { return st.ID == id })
}

// save writes the file atomically. Callers hold mu.
func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create stickers dir: %w", err)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(file{Version: CurrentVersion, Stickers: s.stickers}); err != nil {
		return fmt.Errorf("encode stickers: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode stickers: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write stickers: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace stickers: %w", err)
	}
	s.digest = sha256.Sum256(buf.Bytes())
	return nil
}

// notifyChange sends a change event to all subscribers (non-blocking).
// Callers hold mu.
func (s *Store) notifyChange(event ChangeEvent) {
	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
