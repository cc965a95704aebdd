package content

import (
	"context"
	"errors"
	"strconv"
)

type fakePosts struct {
	posts   map[int64]Post
	results []Post
	err     error
	gets    []int64
}

func (f *fakePosts) GetPost(ctx context.Context, id int64) (*Post, error) {
	f.gets = append(f.gets, id)
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.posts[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakePosts) QueryPosts(ctx context.Context, filter Filter) ([]Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type fakeMeta struct {
	values  map[int64]map[string][]string
	failKey string
	calls   int
}

func (f *fakeMeta) GetMeta(ctx context.Context, namespace string, id int64, key string, single bool) (any, error) {
	f.calls++
	if key == f.failKey {
		return nil, errors.New("meta backend down")
	}
	values := f.values[id][key]
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

func (f *fakeMeta) GetAllMeta(ctx context.Context, namespace string, id int64) (map[string][]string, error) {
	f.calls++
	return f.values[id], nil
}

type fakeFields struct {
	fields  map[int64]map[string]any
	objects map[string]*FieldObject
	err     error
}

func (f *fakeFields) GetFields(ctx context.Context, id int64) (map[string]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.fields[id], nil
}

func (f *fakeFields) GetFieldObject(ctx context.Context, name string, id int64, formatted bool) (*FieldObject, error) {
	obj, ok := f.objects[name]
	if !ok {
		return nil, nil
	}
	cp := *obj
	cp.Value = f.fields[id][name]
	return &cp, nil
}

type fakeLinks struct{}

func (fakeLinks) Permalink(ctx context.Context, id int64) (string, error) {
	return "https://example.com/?p=" + strconv.FormatInt(id, 10), nil
}

type countingResetter struct {
	resets int
}

func (c *countingResetter) Reset() {
	c.resets++
}
