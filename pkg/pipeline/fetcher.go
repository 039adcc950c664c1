package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// FileFetcher reads documents saved as <id>.json in Dir. A file may hold a
// full page response from the API or the bare document value.
type FileFetcher struct {
	Dir string
}

// NewFileFetcher creates a fetcher for the given directory
func NewFileFetcher(dir string) *FileFetcher {
	return &FileFetcher{Dir: dir}
}

func (f *FileFetcher) Fetch(ctx context.Context, id string) (gjson.Result, error) {
	data, err := os.ReadFile(filepath.Join(f.Dir, id+".json"))
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, errors.Errorf("%s.json is not valid JSON", id)
	}

	raw := gjson.ParseBytes(data)
	if doc := raw.Get("document"); doc.IsObject() {
		return doc, nil
	}
	return raw, nil
}

// IDs lists the document identifiers available in Dir, sorted.
func (f *FileFetcher) IDs() ([]string, error) {
	var ids []string
	err := filepath.Walk(f.Dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.ToLower(filepath.Ext(path)) != ".json" {
			return nil
		}
		rel, err := filepath.Rel(f.Dir, path)
		if err != nil {
			return err
		}
		ids = append(ids, filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel))))
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s", f.Dir)
	}

	sort.Strings(ids)
	return ids, nil
}
