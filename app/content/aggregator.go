package content

import (
	"context"
	"log/slog"
	"slices"

	"github.com/lysyi3m/press-comb/app/metric"
)

const DefaultMaxRelationDepth = 8

// Deps are the collaborators an Aggregator reads from. Resetter and Fetches are optional.
type Deps struct {
	Posts            Posts
	Meta             Metadata
	Fields           Fields
	Permalinks       Permalinks
	Resetter         IterationResetter
	Fetches          metric.IncrementalCounter
	MaxRelationDepth int
}

// Aggregator fetches posts and decorates them with metadata and custom fields.
// Lookup failures never surface: they degrade to nil items and are logged.
type Aggregator struct {
	posts    Posts
	meta     Metadata
	fields   Fields
	links    Permalinks
	resetter IterationResetter
	fetches  metric.IncrementalCounter
	maxDepth int
}

func NewAggregator(deps Deps) *Aggregator {
	a := &Aggregator{
		posts:    deps.Posts,
		meta:     deps.Meta,
		fields:   deps.Fields,
		links:    deps.Permalinks,
		resetter: deps.Resetter,
		fetches:  deps.Fetches,
		maxDepth: deps.MaxRelationDepth,
	}
	if a.fetches == nil {
		a.fetches = metric.Nop{}
	}
	if a.maxDepth <= 0 {
		a.maxDepth = DefaultMaxRelationDepth
	}
	return a
}

// WithResetter returns a copy of the aggregator that resets r after every collection fetch.
func (a *Aggregator) WithResetter(r IterationResetter) *Aggregator {
	cp := *a
	cp.resetter = r
	return &cp
}

// FetchItem returns the post with its metadata, or nil when it cannot be found.
func (a *Aggregator) FetchItem(ctx context.Context, id int64, opts ...Option) *Item {
	o := newOptions(opts)

	post := a.lookup(ctx, id)
	if post == nil {
		a.fetches.Increment("fetch_item", "not_found")
		return nil
	}

	item := &Item{Post: *post}
	item.Meta = a.metaFor(ctx, o, id, o.single)

	a.fetches.Increment("fetch_item", "found")
	return item
}

// FetchItemWithFields is FetchItem plus custom fields and the permalink.
func (a *Aggregator) FetchItemWithFields(ctx context.Context, id int64, opts ...Option) *Item {
	o := newOptions(opts)

	item := a.fetchWithFields(ctx, id, o, map[int64]bool{})
	if item == nil {
		a.fetches.Increment("fetch_item_with_fields", "not_found")
		return nil
	}

	a.fetches.Increment("fetch_item_with_fields", "found")
	return item
}

// FetchItems runs a collection query. The boolean is false when nothing matched.
func (a *Aggregator) FetchItems(ctx context.Context, filter Filter, opts ...Option) ([]*Item, bool) {
	o := newOptions(opts)
	defer a.reset()

	posts := a.query(ctx, filter)
	if len(posts) == 0 {
		a.fetches.Increment("fetch_items", "empty")
		return nil, false
	}

	items := make([]*Item, 0, len(posts))
	for _, post := range posts {
		item := &Item{Post: post}
		item.Meta = a.metaFor(ctx, o, post.ID, false)
		items = append(items, item)
	}

	a.fetches.Increment("fetch_items", "found")
	return items, true
}

// FetchItemsWithFields is FetchItems plus custom fields and permalinks.
// Relation fields are left as references at collection level.
func (a *Aggregator) FetchItemsWithFields(ctx context.Context, filter Filter, opts ...Option) ([]*Item, bool) {
	o := newOptions(opts)
	defer a.reset()

	posts := a.query(ctx, filter)
	if len(posts) == 0 {
		a.fetches.Increment("fetch_items_with_fields", "empty")
		return nil, false
	}

	items := make([]*Item, 0, len(posts))
	for _, post := range posts {
		item := &Item{Post: post}
		item.Fields = a.fieldsFor(ctx, post.ID)
		item.Permalink = a.permalink(ctx, post.ID)
		if o.fieldObjects {
			a.expandFieldObjects(ctx, item)
		}
		item.Meta = a.metaFor(ctx, o, post.ID, false)
		items = append(items, item)
	}

	a.fetches.Increment("fetch_items_with_fields", "found")
	return items, true
}

// fetchWithFields builds the item for id. path holds the ids of the items
// currently being expanded above it.
func (a *Aggregator) fetchWithFields(ctx context.Context, id int64, o options, path map[int64]bool) *Item {
	post := a.lookup(ctx, id)
	if post == nil {
		return nil
	}

	item := &Item{Post: *post}
	item.Fields = a.fieldsFor(ctx, id)

	switch {
	case o.relations:
		path[id] = true
		a.expandRelations(ctx, item, o, path)
		delete(path, id)
	case o.fieldObjects:
		a.expandFieldObjects(ctx, item)
	}

	item.Meta = a.metaFor(ctx, o, id, o.single)
	item.Permalink = a.permalink(ctx, id)
	return item
}

// expandRelations replaces relation fields with the items they point to. A
// field is left as []PostRef when any of its references leads back to an item
// on the current path or when the depth limit is reached.
func (a *Aggregator) expandRelations(ctx context.Context, item *Item, o options, path map[int64]bool) {
	depth := len(path) - 1
	for name, value := range item.Fields {
		refs, ok := value.([]PostRef)
		if !ok || len(refs) == 0 {
			continue
		}

		if slices.ContainsFunc(refs, func(ref PostRef) bool { return path[ref.ID] }) {
			slog.Debug("Relation refers back to an expanded post, keeping references",
				"post_id", item.ID, "field", name)
			continue
		}

		if depth >= a.maxDepth {
			slog.Warn("Relation expansion depth reached, keeping references",
				"post_id", item.ID, "field", name, "depth", depth)
			continue
		}

		expanded := make([]*Item, len(refs))
		for i, ref := range refs {
			expanded[i] = a.fetchWithFields(ctx, ref.ID, o, path)
		}
		item.Fields[name] = expanded
	}
}

func (a *Aggregator) expandFieldObjects(ctx context.Context, item *Item) {
	for name := range item.Fields {
		obj, err := a.fields.GetFieldObject(ctx, name, item.ID, true)
		if err != nil {
			slog.Warn("Failed to get field object", "post_id", item.ID, "field", name, "error", err)
		}
		if obj == nil {
			item.Fields[name] = nil
			continue
		}
		item.Fields[name] = obj
	}
}

func (a *Aggregator) lookup(ctx context.Context, id int64) *Post {
	post, err := a.posts.GetPost(ctx, id)
	if err != nil {
		slog.Warn("Failed to get post", "post_id", id, "error", err)
		return nil
	}
	return post
}

func (a *Aggregator) query(ctx context.Context, filter Filter) []Post {
	posts, err := a.posts.QueryPosts(ctx, filter)
	if err != nil {
		slog.Warn("Failed to query posts", "type", filter.Type, "error", err)
		return nil
	}
	return posts
}

func (a *Aggregator) metaFor(ctx context.Context, o options, id int64, single bool) map[string]any {
	meta := make(map[string]any)

	switch {
	case o.meta.All:
		all, err := a.meta.GetAllMeta(ctx, o.namespace, id)
		if err != nil {
			slog.Warn("Failed to get metadata", "namespace", o.namespace, "id", id, "error", err)
			return meta
		}
		for key, values := range all {
			meta[key] = values
		}
	case len(o.meta.Keys) > 0:
		for _, key := range o.meta.Keys {
			value, err := a.meta.GetMeta(ctx, o.namespace, id, key, single)
			if err != nil {
				slog.Warn("Failed to get metadata key", "namespace", o.namespace, "id", id, "key", key, "error", err)
				meta[key] = nil
				continue
			}
			meta[key] = value
		}
	}

	return meta
}

func (a *Aggregator) fieldsFor(ctx context.Context, id int64) map[string]any {
	fields, err := a.fields.GetFields(ctx, id)
	if err != nil {
		slog.Warn("Failed to get custom fields", "post_id", id, "error", err)
		return make(map[string]any)
	}

	out := make(map[string]any, len(fields))
	for name, value := range fields {
		out[name] = value
	}
	return out
}

func (a *Aggregator) permalink(ctx context.Context, id int64) string {
	link, err := a.links.Permalink(ctx, id)
	if err != nil {
		slog.Warn("Failed to build permalink", "post_id", id, "error", err)
		return ""
	}
	return link
}

func (a *Aggregator) reset() {
	if a.resetter != nil {
		a.resetter.Reset()
	}
}
