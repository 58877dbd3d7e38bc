// Package backup writes full JSON-lines snapshots of the asset collection and
// restores the most recent one.
package backup

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jacksonlee411/assetdesk/modules/asset/domain/ports"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/types"
	"github.com/jacksonlee411/assetdesk/pkg/logger"
)

const (
	filePrefix      = "assetdesk_"
	fileExt         = ".jsonl"
	timestampLayout = "20060102_150405"
)

var ErrNoBackups = errors.New("backup: no backup files found")

// AssetLister is the read side of the asset store a snapshot needs.
type AssetLister interface {
	List(ctx context.Context, ids []string) ([]types.Asset, error)
}

type Result struct {
	Path   string    `json:"path"`
	Assets int       `json:"assets"`
	At     time.Time `json:"at"`
}

type Service struct {
	assets   AssetLister
	restorer ports.AssetRestorer
	purger   ports.PreviewPurger
	dir      string
	now      func() time.Time
	log      logger.Logger
}

type Option func(*Service)

func WithRestorer(r ports.AssetRestorer) Option {
	return func(s *Service) { s.restorer = r }
}

// WithPreviewPurger enables PurgePreviews for preview stores without native expiry.
func WithPreviewPurger(p ports.PreviewPurger) Option {
	return func(s *Service) { s.purger = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

func NewService(assets AssetLister, dir string, opts ...Option) *Service {
	if strings.TrimSpace(dir) == "" {
		dir = "backups"
	}
	s := &Service{assets: assets, dir: dir, now: time.Now, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Dir() string { return s.dir }

// CanPurge reports whether the preview store needs explicit purging.
func (s *Service) CanPurge() bool { return s.purger != nil }

// Run snapshots every asset into <dir>/assetdesk_<timestamp>.jsonl. The file is
// written under a temporary name and renamed once complete.
func (s *Service) Run(ctx context.Context) (Result, error) {
	at := s.now()
	assets, err := s.assets.List(ctx, nil)
	if err != nil {
		return Result{}, fmt.Errorf("backup: list assets: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("backup: %w", err)
	}

	final := filepath.Join(s.dir, filePrefix+at.UTC().Format(timestampLayout)+fileExt)
	tmp, err := os.CreateTemp(s.dir, ".assetdesk-*.tmp")
	if err != nil {
		return Result{}, fmt.Errorf("backup: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := writeSnapshot(tmp, assets); err != nil {
		_ = tmp.Close()
		return Result{}, fmt.Errorf("backup: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Result{}, fmt.Errorf("backup: %w", err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return Result{}, fmt.Errorf("backup: %w", err)
	}

	s.log.Info("backup written", "path", final, "assets", len(assets))
	return Result{Path: final, Assets: len(assets), At: at}, nil
}

func writeSnapshot(w io.Writer, assets []types.Asset) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, a := range assets {
		if err := enc.Encode(a); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Latest returns the newest snapshot in the backup directory.
func (s *Service) Latest() (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoBackups
		}
		return "", err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileExt) {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return "", ErrNoBackups
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return filepath.Join(s.dir, names[0]), nil
}

// Restore replaces the whole collection with the snapshot at path, or with the
// latest snapshot when path is empty.
func (s *Service) Restore(ctx context.Context, path string) (int, error) {
	if s.restorer == nil {
		return 0, errors.New("backup: store does not support restore")
	}
	if strings.TrimSpace(path) == "" {
		latest, err := s.Latest()
		if err != nil {
			return 0, err
		}
		path = latest
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	assets, err := ReadSnapshot(f)
	if err != nil {
		return 0, fmt.Errorf("backup: %s: %w", filepath.Base(path), err)
	}
	if err := s.restorer.ReplaceAll(ctx, assets); err != nil {
		return 0, err
	}
	s.log.Info("backup restored", "path", path, "assets", len(assets))
	return len(assets), nil
}

// ReadSnapshot decodes one asset per line; blank lines are skipped.
func ReadSnapshot(r io.Reader) ([]types.Asset, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	var out []types.Asset
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(strings.TrimSpace(string(b))) == 0 {
			continue
		}
		var a types.Asset
		if err := json.Unmarshal(b, &a); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if strings.TrimSpace(a.ID) == "" {
			return nil, fmt.Errorf("line %d: missing id", line)
		}
		out = append(out, a)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// PurgePreviews drops expired import previews. Stores with native expiry
// report zero.
func (s *Service) PurgePreviews(ctx context.Context) (int, error) {
	if s.purger == nil {
		return 0, nil
	}
	n, err := s.purger.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("expired previews purged", "count", n)
	}
	return n, nil
}
