package content

// Option tunes a single aggregator call.
type Option func(*options)

type options struct {
	meta         MetaSelector
	single       bool
	namespace    string
	fieldObjects bool
	relations    bool
}

func newOptions(opts []Option) options {
	o := options{namespace: DefaultNamespace}
	for _, opt := range opts {
		opt(&o)
	}
	if o.namespace == "" {
		o.namespace = DefaultNamespace
	}
	return o
}

// WithMeta selects the metadata attached to each item.
func WithMeta(sel MetaSelector) Option {
	return func(o *options) { o.meta = sel }
}

// WithSingle maps each selected meta key to its first value only.
// Honoured by single item fetches.
func WithSingle() Option {
	return func(o *options) { o.single = true }
}

// WithNamespace sets the metadata namespace ("post", "user", "term", ...).
func WithNamespace(ns string) Option {
	return func(o *options) { o.namespace = ns }
}

// WithFieldObjects replaces every custom field value with its full definition.
func WithFieldObjects() Option {
	return func(o *options) { o.fieldObjects = true }
}

// WithRelations expands relation fields into fully fetched items.
// Takes precedence over WithFieldObjects. Single item fetches only.
func WithRelations() Option {
	return func(o *options) { o.relations = true }
}
