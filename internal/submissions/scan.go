// Package submissions discovers student submissions on disk, expanding
// zip archives where needed, and hands them out through a restartable
// iterator.
package submissions

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/klauspost/compress/zip"

	"github.com/jhartz/gradefast/api"
)

// ExtractionError reports a zip archive that could not be expanded.
// The scan logs it and moves on; one broken upload never blocks the
// rest of the class.
type ExtractionError struct {
	Archive string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("cannot extract %q: %v", e.Archive, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Source describes one directory of submissions.
type Source struct {
	// Path is the directory whose entries are candidate submissions.
	Path string

	// Regex matches entry names; the first non-empty capture group
	// becomes the submission name. Empty means "every directory, name
	// is the directory name".
	Regex string

	// CheckArchives expands matching .zip files into sibling
	// directories before scanning.
	CheckArchives bool

	// LateRegex, when it matches an entry name, flags the submission
	// late.
	LateRegex string
}

// Options adjusts how scanned names are presented.
type Options struct {
	// LastNameFirst rewrites "Last, First" names to "First Last".
	LastNameFirst bool

	Logger *slog.Logger
}

// Scan walks every source, expands archives where asked, and returns
// submissions sorted by name then assigned IDs 1..n.
func Scan(sources []Source, opts Options) ([]*api.Submission, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var subs []*api.Submission
	for _, src := range sources {
		found, err := scanSource(src, opts, logger)
		if err != nil {
			return nil, err
		}
		subs = append(subs, found...)
	}

	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].Name != subs[j].Name {
			return subs[i].Name < subs[j].Name
		}
		return subs[i].FullName < subs[j].FullName
	})
	for i, sub := range subs {
		sub.ID = i + 1
	}
	return subs, nil
}

func scanSource(src Source, opts Options, logger *slog.Logger) ([]*api.Submission, error) {
	var re, lateRe *regexp.Regexp
	var err error
	if src.Regex != "" {
		re, err = regexp.Compile(src.Regex)
		if err != nil {
			return nil, fmt.Errorf("submission regex %q: %w", src.Regex, err)
		}
	}
	if src.LateRegex != "" {
		lateRe, err = regexp.Compile(src.LateRegex)
		if err != nil {
			return nil, fmt.Errorf("late regex %q: %w", src.LateRegex, err)
		}
	}

	entries, err := os.ReadDir(src.Path)
	if err != nil {
		return nil, fmt.Errorf("reading submissions dir: %w", err)
	}

	existing := mapset.NewSet[string]()
	for _, entry := range entries {
		if entry.IsDir() {
			existing.Add(entry.Name())
		}
	}

	if src.CheckArchives {
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), ".zip") {
				continue
			}
			base := strings.TrimSuffix(name, filepath.Ext(name))
			if existing.Contains(base) {
				continue
			}
			if re != nil && !re.MatchString(base) {
				continue
			}
			dest := filepath.Join(src.Path, base)
			if err := extractZip(filepath.Join(src.Path, name), dest); err != nil {
				logger.Warn("skipping archive", "archive", name, "error", err)
				continue
			}
			existing.Add(base)
		}
	}

	var subs []*api.Submission
	for _, dirName := range existing.ToSlice() {
		fullName := dirName
		name := dirName
		if re != nil {
			m := re.FindStringSubmatch(dirName)
			if m == nil {
				continue
			}
			if g := firstGroup(m); g != "" {
				name = g
			}
		}
		if opts.LastNameFirst {
			name = flipName(name)
		}
		subs = append(subs, &api.Submission{
			Name:     name,
			FullName: fullName,
			Dir:      filepath.Join(src.Path, dirName),
			Late:     lateRe != nil && lateRe.MatchString(dirName),
		})
	}
	return subs, nil
}

func firstGroup(m []string) string {
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

// flipName turns "Doe, Jane" into "Jane Doe". Names without a comma
// pass through unchanged.
func flipName(name string) string {
	last, first, found := strings.Cut(name, ",")
	if !found {
		return name
	}
	return strings.TrimSpace(first) + " " + strings.TrimSpace(last)
}

func extractZip(archive, dest string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return &ExtractionError{Archive: archive, Err: err}
	}
	defer r.Close()

	for _, f := range r.File {
		if err := extractFile(f, dest); err != nil {
			return &ExtractionError{Archive: archive, Err: err}
		}
	}
	return nil
}

func extractFile(f *zip.File, dest string) error {
	path := filepath.Join(dest, f.Name)
	// Reject entries that would escape the target directory.
	if !strings.HasPrefix(path, filepath.Clean(dest)+string(os.PathSeparator)) {
		return fmt.Errorf("entry %q escapes archive root", f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(path, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
