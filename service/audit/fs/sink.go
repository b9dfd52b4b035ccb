// Package fs archives audit entries as JSON objects on any afs-supported
// storage (local file, mem, cloud buckets). Objects are written once and
// never overwritten.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
	"github.com/viant/fingov/model/audit"
)

// Sink is an append-only audit archive rooted at baseURL.
type Sink struct {
	fs      afs.Service
	baseURL string
}

// New creates a Sink; fs defaults to afs.New().
func New(fs afs.Service, baseURL string) (*Sink, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("audit archive URL was empty")
	}
	if fs == nil {
		fs = afs.New()
	}
	return &Sink{fs: fs, baseURL: baseURL}, nil
}

// Append writes entry unless an object for it already exists.
func (s *Sink) Append(ctx context.Context, entry *audit.Entry) error {
	location := url.Join(s.baseURL, entry.Key())
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return fmt.Errorf("failed to check audit entry %s: %w", location, err)
	}
	if exists {
		return nil
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	if err = s.fs.Upload(ctx, location, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to upload audit entry %s: %w", location, err)
	}
	return nil
}

// List returns archived entries of one entity ordered by timestamp.
func (s *Sink) List(ctx context.Context, entityType, entityID string) ([]*audit.Entry, error) {
	probe := &audit.Entry{EntityType: entityType, EntityID: entityID}
	dir := url.Join(s.baseURL, path.Dir(probe.Key()))
	exists, err := s.fs.Exists(ctx, dir)
	if err != nil || !exists {
		return nil, err
	}
	objects, err := s.fs.List(ctx, dir, option.NewRecursive(false))
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	var ret []*audit.Entry
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.DownloadWithURL(ctx, object.URL())
		if err != nil {
			return nil, fmt.Errorf("failed to read audit entry %s: %w", object.URL(), err)
		}
		entry := &audit.Entry{}
		if err := json.Unmarshal(data, entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal audit entry %s: %w", object.URL(), err)
		}
		ret = append(ret, entry)
	}
	sort.SliceStable(ret, func(i, j int) bool { return ret[i].Timestamp.Before(ret[j].Timestamp) })
	return ret, nil
}
