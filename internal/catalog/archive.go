package catalog

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ErrNoArchive is returned by Latest when nothing has been archived yet.
var ErrNoArchive = errors.New("no archived catalog")

const (
	archivePrefix = "catalog_"
	archiveSuffix = ".cat"
)

// Archive keeps the most recent downloaded catalogs on disk so the
// dashboard can start with the last known target list while the catalog
// server is unreachable.
type Archive struct {
	dir  string
	keep int
}

// NewArchive stores copies in dir and keeps at most keep of them.
func NewArchive(dir string, keep int) *Archive {
	if keep <= 0 {
		keep = 5
	}
	return &Archive{dir: dir, keep: keep}
}

// Save writes data as the copy fetched at ts, then prunes older copies.
// The file appears atomically.
func (a *Archive) Save(data []byte, ts time.Time) error {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("creating archive dir: %w", err)
	}

	tmp, err := os.CreateTemp(a.dir, ".incoming-*")
	if err != nil {
		return fmt.Errorf("archiving catalog: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("archiving catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("archiving catalog: %w", err)
	}
	name := archivePrefix + strconv.FormatInt(ts.Unix(), 10) + archiveSuffix
	if err := os.Rename(tmp.Name(), filepath.Join(a.dir, name)); err != nil {
		return fmt.Errorf("archiving catalog: %w", err)
	}
	return a.prune()
}

// Latest returns the newest archived copy and when it was fetched.
func (a *Archive) Latest() ([]byte, time.Time, error) {
	copies, err := a.list()
	if err != nil {
		return nil, time.Time{}, err
	}
	if len(copies) == 0 {
		return nil, time.Time{}, ErrNoArchive
	}

	newest := copies[len(copies)-1]
	data, err := os.ReadFile(filepath.Join(a.dir, newest.name))
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading archived catalog: %w", err)
	}
	return data, newest.fetched, nil
}

type archived struct {
	name    string
	fetched time.Time
}

// list returns the archived copies, oldest first.
func (a *Archive) list() ([]archived, error) {
	entries, err := os.ReadDir(a.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing archive dir: %w", err)
	}

	var out []archived
	for _, e := range entries {
		name := e.Name()
		stamp, ok := strings.CutPrefix(name, archivePrefix)
		if e.IsDir() || !ok {
			continue
		}
		stamp, ok = strings.CutSuffix(stamp, archiveSuffix)
		if !ok {
			continue
		}
		unix, err := strconv.ParseInt(stamp, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, archived{name: name, fetched: time.Unix(unix, 0)})
	}
	slices.SortFunc(out, func(x, y archived) int {
		return cmp.Compare(x.fetched.Unix(), y.fetched.Unix())
	})
	return out, nil
}

func (a *Archive) prune() error {
	copies, err := a.list()
	if err != nil {
		return err
	}
	if len(copies) <= a.keep {
		return nil
	}
	for _, c := range copies[:len(copies)-a.keep] {
		if err := os.Remove(filepath.Join(a.dir, c.name)); err != nil {
			return fmt.Errorf("pruning archived catalog %s: %w", c.name, err)
		}
	}
	return nil
}
