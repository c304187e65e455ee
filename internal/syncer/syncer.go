package syncer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/alucardeht/specsync/internal/document"
	"github.com/alucardeht/specsync/internal/logger"
)

var log = logger.ForComponent("syncer")

type Fetcher interface {
	Fetch(ctx context.Context) (*document.APIDocument, error)
	URL() string
}

// Recorder receives every finished sync attempt.
type Recorder interface {
	Record(ctx context.Context, result Result) error
}

type Options struct {
	HostFile string
	Marker   string
	Rewrite  document.RewriteOptions
}

type Result struct {
	ID           string
	Trigger      string
	StartedAt    time.Time
	Duration     time.Duration
	Changed      bool
	BytesWritten int
	DocHash      string
	Shape        document.Shape
	Kind         Kind
	Err          error
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Plan is a rewritten host document that has not been written yet.
type Plan struct {
	HostFile string
	Current  document.HostText
	Updated  document.HostText
	Region   document.Region
	Doc      *document.APIDocument
}

func (p *Plan) Changed() bool {
	return p.Current.Text != p.Updated.Text || p.Current.HasBOM != p.Updated.HasBOM
}

type Syncer struct {
	fetcher  Fetcher
	opts     Options
	locator  *document.Locator
	recorder Recorder
}

func New(fetcher Fetcher, opts Options) *Syncer {
	if opts.Marker == "" {
		opts.Marker = "spec:"
	}
	return &Syncer{
		fetcher: fetcher,
		opts:    opts,
		locator: document.NewLocator(opts.Marker),
	}
}

func (s *Syncer) SetRecorder(r Recorder) {
	s.recorder = r
}

func (s *Syncer) HostFile() string {
	return s.opts.HostFile
}

func (s *Syncer) Locator() *document.Locator {
	return s.locator
}

// Plan fetches the API document, locates the region in the host document
// and renders the replacement. Nothing is written.
func (s *Syncer) Plan(ctx context.Context) (*Plan, error) {
	doc, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	current, err := s.readHost()
	if err != nil {
		return nil, err
	}

	region, err := s.locator.Locate(current.Text)
	if err != nil {
		return nil, err
	}

	text, err := s.locator.Rewrite(current.Text, region, doc, s.opts.Rewrite)
	if err != nil {
		return nil, err
	}

	return &Plan{
		HostFile: s.opts.HostFile,
		Current:  current,
		Updated:  document.HostText{Text: text, HasBOM: current.HasBOM},
		Region:   region,
		Doc:      doc,
	}, nil
}

// Sync runs fetch, locate and rewrite in sequence. A failure in any stage
// leaves the host document untouched. The write itself replaces the file
// with a renamed temp file, so readers see either the old or the new
// content.
func (s *Syncer) Sync(ctx context.Context, trigger string) (Result, error) {
	result := Result{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		StartedAt: time.Now(),
	}

	log.Info("starting sync", "id", result.ID, "trigger", trigger, "host", s.opts.HostFile)

	err := s.sync(ctx, &result)

	result.Duration = time.Since(result.StartedAt)
	result.Err = err
	result.Kind = Classify(err)

	if err != nil {
		log.Error("sync failed", "id", result.ID, "kind", result.Kind, "error", err)
	} else if result.Changed {
		log.Info("host document updated", "id", result.ID, "bytes", result.BytesWritten, "duration", result.Duration)
	} else {
		log.Info("host document already up to date", "id", result.ID, "duration", result.Duration)
	}

	if s.recorder != nil {
		if rerr := s.recorder.Record(context.WithoutCancel(ctx), result); rerr != nil {
			log.Warn("failed to record sync", "id", result.ID, "error", rerr)
		}
	}

	return result, err
}

func (s *Syncer) sync(ctx context.Context, result *Result) error {
	plan, err := s.Plan(ctx)
	if err != nil {
		return err
	}

	result.DocHash = plan.Doc.Hash()
	result.Shape = plan.Region.Shape

	if !plan.Changed() {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("sync cancelled before write: %w", err)
	}

	n, err := s.writeHost(plan.Updated)
	if err != nil {
		return err
	}

	result.Changed = true
	result.BytesWritten = n
	return nil
}

func (s *Syncer) readHost() (document.HostText, error) {
	data, err := os.ReadFile(s.opts.HostFile)
	if err != nil {
		return document.HostText{}, &ReadError{Path: s.opts.HostFile, Err: err}
	}

	host, err := document.DecodeHost(data)
	if err != nil {
		return document.HostText{}, &ReadError{Path: s.opts.HostFile, Err: err}
	}
	return host, nil
}

func (s *Syncer) writeHost(host document.HostText) (int, error) {
	path := s.opts.HostFile

	data, err := document.EncodeHost(host)
	if err != nil {
		return 0, &WriteError{Path: path, Err: err}
	}

	// The rename must land on the link target, not replace the link.
	target := path
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		target = resolved
	} else if !errors.Is(err, fs.ErrNotExist) {
		return 0, &WriteError{Path: path, Err: fmt.Errorf("resolving path: %w", err)}
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(target); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".tmp.*")
	if err != nil {
		return 0, &WriteError{Path: path, Err: fmt.Errorf("creating temp file: %w", err)}
	}
	tmpPath := tmp.Name()

	fail := func(err error) (int, error) {
		tmp.Close()
		os.Remove(tmpPath)
		return 0, &WriteError{Path: path, Err: err}
	}

	if _, err := tmp.Write(data); err != nil {
		return fail(fmt.Errorf("writing temp file: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing temp file: %w", err))
	}
	if err := tmp.Chmod(mode); err != nil {
		return fail(fmt.Errorf("setting mode: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, &WriteError{Path: path, Err: fmt.Errorf("closing temp file: %w", err)}
	}

	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return 0, &WriteError{Path: path, Err: fmt.Errorf("renaming temp file: %w", err)}
	}

	return len(data), nil
}
