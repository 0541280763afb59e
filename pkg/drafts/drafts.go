// Package drafts persists PRD drafts as named JSON documents.
package drafts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a named draft does not exist.
	ErrNotFound = errors.New("draft not found")
	// ErrInvalidFilename rejects empty names, path separators and "..".
	ErrInvalidFilename = errors.New("invalid draft filename")
	// ErrInvalidJSON rejects bodies that are not a single JSON value.
	ErrInvalidJSON = errors.New("invalid draft JSON")
)

const (
	filePrefix      = "prd-"
	fileExt         = ".json"
	untitledModule  = "untitled"
	maxNameAttempts = 5
)

// Backend stores draft bodies by filename. Implementations return
// ErrNotFound from Get and Delete for missing names.
type Backend interface {
	Put(ctx context.Context, name string, body []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
}

// Service validates drafts and names new ones; storage is delegated to a Backend.
type Service struct {
	backend Backend
	now     func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source used for filenames.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wraps backend.
func NewService(backend Backend, opts ...Option) *Service {
	s := &Service{backend: backend, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Save stores body under a fresh prd-<module>-<millis>.json name and returns it.
func (s *Service) Save(ctx context.Context, body []byte) (string, error) {
	if err := validateBody(body); err != nil {
		return "", err
	}
	module := moduleName(body)
	millis := s.now().UnixMilli()
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := filePrefix + module + "-" + strconv.FormatInt(millis+int64(attempt), 10) + fileExt
		exists, err := s.backend.Exists(ctx, name)
		if err != nil {
			return "", fmt.Errorf("check draft %s: %w", name, err)
		}
		if exists {
			continue
		}
		if err := s.backend.Put(ctx, name, body); err != nil {
			return "", fmt.Errorf("save draft %s: %w", name, err)
		}
		return name, nil
	}
	return "", fmt.Errorf("save draft: no free filename for module %q after %d attempts", module, maxNameAttempts)
}

// List returns stored .json draft names in lexical order.
func (s *Service) List(ctx context.Context) ([]string, error) {
	names, err := s.backend.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		if strings.HasSuffix(name, fileExt) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Load returns the stored body verbatim.
func (s *Service) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ValidateFilename(name); err != nil {
		return nil, err
	}
	return s.backend.Get(ctx, name)
}

// Delete removes a draft.
func (s *Service) Delete(ctx context.Context, name string) error {
	if err := ValidateFilename(name); err != nil {
		return err
	}
	return s.backend.Delete(ctx, name)
}

// Update overwrites a draft, creating it when absent.
func (s *Service) Update(ctx context.Context, name string, body []byte) error {
	if err := ValidateFilename(name); err != nil {
		return err
	}
	if err := validateBody(body); err != nil {
		return err
	}
	if err := s.backend.Put(ctx, name, body); err != nil {
		return fmt.Errorf("update draft %s: %w", name, err)
	}
	return nil
}

// ValidateFilename reports whether name is safe to use as a flat key.
func ValidateFilename(name string) error {
	switch {
	case strings.TrimSpace(name) == "", name == ".":
		return fmt.Errorf("%w: empty", ErrInvalidFilename)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidFilename, name)
	case strings.Contains(name, ".."):
		return fmt.Errorf("%w: %q contains \"..\"", ErrInvalidFilename, name)
	}
	return nil
}

func validateBody(body []byte) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("%w: empty body", ErrInvalidJSON)
	}
	if !json.Valid(body) {
		return ErrInvalidJSON
	}
	return nil
}

// moduleName mirrors `data.module || 'untitled'`: falsy values fall back,
// and the result is made safe for use inside a filename.
func moduleName(body []byte) string {
	var doc struct {
		Module json.RawMessage `json:"module"`
	}
	if err := json.Unmarshal(body, &doc); err != nil || len(doc.Module) == 0 {
		return untitledModule
	}
	var name string
	switch raw := strings.TrimSpace(string(doc.Module)); {
	case raw == "null", raw == "false", raw == `""`:
		return untitledModule
	case strings.HasPrefix(raw, `"`):
		if err := json.Unmarshal(doc.Module, &name); err != nil {
			return untitledModule
		}
	case strings.HasPrefix(raw, "{"), strings.HasPrefix(raw, "["):
		return untitledModule
	default:
		if f, err := strconv.ParseFloat(raw, 64); err == nil && f == 0 {
			return untitledModule
		}
		name = raw
	}
	return safeSegment(name)
}

func safeSegment(name string) string {
	name = strings.TrimSpace(name)
	name = strings.NewReplacer("/", "_", "\\", "_", "\x00", "", "..", "_").Replace(name)
	if name == "" {
		return untitledModule
	}
	return name
}
