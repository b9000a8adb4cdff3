package report

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/linkprobe/internal/model"
	"golang.org/x/sync/errgroup"
)

// Emitter writes a finished report to files in the output directory.
// One crawl run produces an HTML and a JSON file, plus a Markdown file
// when enabled, all sharing a timestamped base name so a directory of
// runs stays sorted and collision-free.
type Emitter struct {
	// dir is the output directory; it must already exist.
	dir string

	// version is embedded in the JSON output's metadata wrapper.
	version string

	// markdown enables the additional Markdown file.
	markdown bool

	// now returns the current time; replaced in tests.
	now func() time.Time
}

// EmitterOption configures an Emitter.
type EmitterOption func(*Emitter)

// WithMarkdownFile enables writing an additional Markdown report file.
func WithMarkdownFile(enabled bool) EmitterOption {
	return func(e *Emitter) {
		e.markdown = enabled
	}
}

// WithTimeSource replaces the emitter's time source used for file naming.
func WithTimeSource(now func() time.Time) EmitterOption {
	return func(e *Emitter) {
		e.now = now
	}
}

// NewEmitter creates an Emitter writing into dir.
func NewEmitter(dir, version string, opts ...EmitterOption) *Emitter {
	e := &Emitter{
		dir:     dir,
		version: version,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Emit writes the report files and returns the paths written. The formats
// are independent, so they are rendered and written concurrently; the
// returned error joins all per-file failures while successful files stay
// on disk.
func (e *Emitter) Emit(report *model.CrawlReport) ([]string, error) {
	base := e.baseName(report)

	type job struct {
		path   string
		writer func(f *os.File) Writer
	}

	jobs := []job{
		{
			path: filepath.Join(e.dir, base+".html"),
			writer: func(f *os.File) Writer {
				return NewHTMLWriter(f)
			},
		},
		{
			path: filepath.Join(e.dir, base+".json"),
			writer: func(f *os.File) Writer {
				return NewFullJSONWriter(f, e.version, WithPrettyPrint())
			},
		},
	}
	if e.markdown {
		jobs = append(jobs, job{
			path: filepath.Join(e.dir, base+".md"),
			writer: func(f *os.File) Writer {
				return NewMarkdownWriter(f)
			},
		})
	}

	paths := make([]string, len(jobs))
	var eg errgroup.Group
	for i, j := range jobs {
		i, j := i, j
		eg.Go(func() error {
			f, err := os.Create(j.path)
			if err != nil {
				return fmt.Errorf("failed to create report file: %w", err)
			}

			if _, err := j.writer(f).Write(report); err != nil {
				f.Close()
				return fmt.Errorf("failed to write %s: %w", j.path, err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to close %s: %w", j.path, err)
			}

			paths[i] = j.path
			return nil
		})
	}

	err := eg.Wait()

	written := make([]string, 0, len(paths))
	for _, p := range paths {
		if p != "" {
			written = append(written, p)
		}
	}
	return written, err
}

// baseName builds the shared file stem: the emit timestamp followed by the
// seed's host, with characters unsafe in file names replaced.
func (e *Emitter) baseName(report *model.CrawlReport) string {
	host := "unknown"
	if u, err := url.Parse(report.Seed); err == nil && u.Host != "" {
		host = u.Host
	}
	host = strings.NewReplacer(":", "_", "/", "_").Replace(host)

	return fmt.Sprintf("%s-%s", e.now().Format("20060102T150405"), host)
}
