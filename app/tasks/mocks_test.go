package tasks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lysyi3m/press-comb/app/database"
)

// MockSourceRepository implements database.SourceStore in memory
type MockSourceRepository struct {
	mu      sync.Mutex
	sources map[string]*database.Source
	err     error
}

func NewMockSourceRepository() *MockSourceRepository {
	return &MockSourceRepository{sources: make(map[string]*database.Source)}
}

func (m *MockSourceRepository) GetSource(ctx context.Context, name string) (*database.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.sources[name]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (m *MockSourceRepository) ListSources(ctx context.Context) ([]database.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.Source
	for _, s := range m.sources {
		out = append(out, *s)
	}
	return out, m.err
}

func (m *MockSourceRepository) UpsertSource(ctx context.Context, name, url, postType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	s, ok := m.sources[name]
	if !ok {
		s = &database.Source{ID: int64(len(m.sources) + 1), Name: name}
		m.sources[name] = s
	}
	s.URL = url
	s.PostType = postType
	return nil
}

func (m *MockSourceRepository) UpdateSourceMetadata(ctx context.Context, name, title, link, description, language string, nextFetch time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sources[name]
	if !ok {
		return errors.New("source not found")
	}
	s.Title = title
	s.Link = link
	s.Description = description
	s.Language = language
	s.NextFetchAt = &nextFetch
	return nil
}

// MockPostRepository implements database.SourcePostStore in memory
type MockPostRepository struct {
	mu         sync.Mutex
	posts      []database.StoredSourcePost
	sourceOf   map[int64]string
	extraction map[int64]string
	extracted  map[int64]string
	upsertErr  error
	fetchLimit int
}

func NewMockPostRepository() *MockPostRepository {
	return &MockPostRepository{
		sourceOf:   make(map[int64]string),
		extraction: make(map[int64]string),
		extracted:  make(map[int64]string),
	}
}

func (m *MockPostRepository) add(sourceName string, sp database.SourcePost) int64 {
	id := int64(len(m.posts) + 1)
	m.posts = append(m.posts, database.StoredSourcePost{ID: id, SourcePost: sp})
	m.sourceOf[id] = sourceName
	m.extraction[id] = database.ExtractionPending
	return id
}

func (m *MockPostRepository) CheckDuplicate(ctx context.Context, sourceName, contentHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.posts {
		if m.sourceOf[p.ID] == sourceName && p.ContentHash == contentHash {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockPostRepository) UpsertSourcePost(ctx context.Context, sourceName string, sp database.SourcePost) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return 0, m.upsertErr
	}
	for i, p := range m.posts {
		if m.sourceOf[p.ID] == sourceName && p.GUID == sp.GUID {
			m.posts[i].SourcePost = sp
			return p.ID, nil
		}
	}
	return m.add(sourceName, sp), nil
}

func (m *MockPostRepository) GetSourcePosts(ctx context.Context, sourceName string) ([]database.StoredSourcePost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []database.StoredSourcePost
	for _, p := range m.posts {
		if m.sourceOf[p.ID] == sourceName {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockPostRepository) UpdateFilterStatus(ctx context.Context, postID int64, isFiltered bool, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.posts {
		if m.posts[i].ID == postID {
			m.posts[i].IsFiltered = isFiltered
			m.posts[i].FilterReason = reason
			return nil
		}
	}
	return errors.New("post not found")
}

func (m *MockPostRepository) GetSourceStats(ctx context.Context, sourceName string) (database.SourceStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stats database.SourceStats
	for _, p := range m.posts {
		if m.sourceOf[p.ID] != sourceName {
			continue
		}
		stats.Total++
		if p.IsFiltered {
			stats.Filtered++
		} else {
			stats.Visible++
		}
	}
	return stats, nil
}

func (m *MockPostRepository) GetPostsForExtraction(ctx context.Context, sourceName string, limit int) ([]database.PostForExtraction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchLimit = limit
	var out []database.PostForExtraction
	for _, p := range m.posts {
		if m.sourceOf[p.ID] == sourceName && !p.IsFiltered && m.extraction[p.ID] == database.ExtractionPending {
			out = append(out, database.PostForExtraction{ID: p.ID, Link: p.Link})
		}
	}
	return out, nil
}

func (m *MockPostRepository) UpdateExtractionStatus(ctx context.Context, postID int64, status string, extractedAt time.Time, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extraction[postID] = status
	return nil
}

func (m *MockPostRepository) UpdateExtractedContent(ctx context.Context, postID int64, body string, extractedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extraction[postID] = database.ExtractionSuccess
	m.extracted[postID] = body
	return nil
}

// recordingCounter captures metric increments
type recordingCounter struct {
	mu    sync.Mutex
	calls [][]string
}

func (c *recordingCounter) Increment(val ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, val)
}

func (c *recordingCounter) snapshot() [][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]string(nil), c.calls...)
}
