package content

import "context"

// Posts looks up raw post records. GetPost returns nil, nil when the post does not exist.
type Posts interface {
	GetPost(ctx context.Context, id int64) (*Post, error)
	QueryPosts(ctx context.Context, filter Filter) ([]Post, error)
}

// Metadata reads key/value annotations. With single set GetMeta returns the
// first stored value as a string, otherwise every value as []string.
type Metadata interface {
	GetMeta(ctx context.Context, namespace string, id int64, key string, single bool) (any, error)
	GetAllMeta(ctx context.Context, namespace string, id int64) (map[string][]string, error)
}

// Fields reads custom field values and definitions. Relation fields decode to []PostRef.
type Fields interface {
	GetFields(ctx context.Context, id int64) (map[string]any, error)
	GetFieldObject(ctx context.Context, name string, id int64, formatted bool) (*FieldObject, error)
}

type Permalinks interface {
	Permalink(ctx context.Context, id int64) (string, error)
}

// IterationResetter clears "current item" state kept by presentation code.
type IterationResetter interface {
	Reset()
}
