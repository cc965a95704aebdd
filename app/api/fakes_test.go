package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lysyi3m/press-comb/app/content"
	"github.com/lysyi3m/press-comb/app/database"
	"github.com/lysyi3m/press-comb/app/menu"
	"github.com/lysyi3m/press-comb/app/tasks"
)

var _ tasks.TaskSchedulerInterface = (*MockScheduler)(nil)

type fakeStore struct {
	posts  map[int64]content.Post
	meta   map[int64]map[string][]string
	fields map[int64]map[string]any
	order  []int64
}

func (f *fakeStore) GetPost(ctx context.Context, id int64) (*content.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeStore) QueryPosts(ctx context.Context, filter content.Filter) ([]content.Post, error) {
	filter = filter.Normalized()
	var out []content.Post
	for _, id := range f.order {
		p := f.posts[id]
		if p.Type != filter.Type || p.Status != filter.Status {
			continue
		}
		if filter.ParentID != nil && p.ParentID != *filter.ParentID {
			continue
		}
		out = append(out, p)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) GetMeta(ctx context.Context, namespace string, id int64, key string, single bool) (any, error) {
	values := f.meta[id][key]
	if single {
		if len(values) == 0 {
			return "", nil
		}
		return values[0], nil
	}
	if values == nil {
		return []string{}, nil
	}
	return values, nil
}

func (f *fakeStore) GetAllMeta(ctx context.Context, namespace string, id int64) (map[string][]string, error) {
	out := map[string][]string{}
	for k, v := range f.meta[id] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) GetFields(ctx context.Context, id int64) (map[string]any, error) {
	out := map[string]any{}
	for k, v := range f.fields[id] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) GetFieldObject(ctx context.Context, name string, id int64, formatted bool) (*content.FieldObject, error) {
	v, ok := f.fields[id][name]
	if !ok {
		return nil, nil
	}
	return &content.FieldObject{Key: "field_" + name, Name: name, Label: name, Type: "text", Value: v}, nil
}

func (f *fakeStore) Permalink(ctx context.Context, id int64) (string, error) {
	p, ok := f.posts[id]
	if !ok {
		return "", nil
	}
	return "https://example.com/" + p.Slug + "/", nil
}

type fakeMenus struct {
	menus map[string]*menu.Menu
	items map[int64][]menu.Item
}

func (f *fakeMenus) ResolveLocation(ctx context.Context, location string) (*menu.Menu, error) {
	return f.menus[location], nil
}

func (f *fakeMenus) GetMenuItems(ctx context.Context, m *menu.Menu) ([]menu.Item, error) {
	return f.items[m.ID], nil
}

type fakeSources struct {
	sources []database.Source
	stats   map[string]database.SourceStats
}

func (f *fakeSources) GetSource(ctx context.Context, name string) (*database.Source, error) {
	for _, s := range f.sources {
		if s.Name == name {
			return &s, nil
		}
	}
	return nil, nil
}

func (f *fakeSources) ListSources(ctx context.Context) ([]database.Source, error) {
	return f.sources, nil
}

func (f *fakeSources) UpsertSource(ctx context.Context, name, url, postType string) error {
	return errors.New("read only")
}

func (f *fakeSources) UpdateSourceMetadata(ctx context.Context, name, title, link, description, language string, nextFetch time.Time) error {
	return errors.New("read only")
}

func (f *fakeSources) CheckDuplicate(ctx context.Context, sourceName, contentHash string) (bool, error) {
	return false, nil
}

func (f *fakeSources) UpsertSourcePost(ctx context.Context, sourceName string, post database.SourcePost) (int64, error) {
	return 0, errors.New("read only")
}

func (f *fakeSources) GetSourcePosts(ctx context.Context, sourceName string) ([]database.StoredSourcePost, error) {
	return nil, nil
}

func (f *fakeSources) UpdateFilterStatus(ctx context.Context, postID int64, isFiltered bool, reason string) error {
	return nil
}

func (f *fakeSources) GetSourceStats(ctx context.Context, sourceName string) (database.SourceStats, error) {
	return f.stats[sourceName], nil
}

func (f *fakeSources) GetPostsForExtraction(ctx context.Context, sourceName string, limit int) ([]database.PostForExtraction, error) {
	return nil, nil
}

func (f *fakeSources) UpdateExtractionStatus(ctx context.Context, postID int64, status string, extractedAt time.Time, errMsg string) error {
	return nil
}

func (f *fakeSources) UpdateExtractedContent(ctx context.Context, postID int64, body string, extractedAt time.Time) error {
	return nil
}

// MockScheduler records reload requests
type MockScheduler struct {
	reloaded []string
	err      error
}

func (m *MockScheduler) Start() {}
func (m *MockScheduler) Stop()  {}

func (m *MockScheduler) EnqueueTask(task tasks.TaskInterface) error {
	return nil
}

func (m *MockScheduler) ReloadSource(name string) error {
	if m.err != nil {
		return fmt.Errorf("failed to reload source config: %w", m.err)
	}
	m.reloaded = append(m.reloaded, name)
	return nil
}
