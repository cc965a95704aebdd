package content

// Loop walks a fetched collection and remembers the item currently being
// rendered. It is not safe for concurrent use; create one per request.
type Loop struct {
	items   []*Item
	pos     int
	current *Item
}

var _ IterationResetter = (*Loop)(nil)

func NewLoop() *Loop {
	return &Loop{}
}

// Load replaces the collection and rewinds the loop.
func (l *Loop) Load(items []*Item) {
	l.items = items
	l.pos = 0
	l.current = nil
}

// Next advances to the next item. It returns false once the collection is exhausted.
func (l *Loop) Next() bool {
	if l.pos >= len(l.items) {
		l.current = nil
		return false
	}
	l.current = l.items[l.pos]
	l.pos++
	return true
}

// Current returns the item under the cursor or nil outside of iteration.
func (l *Loop) Current() *Item {
	return l.current
}

// Index is the zero based position of the current item, -1 outside of iteration.
func (l *Loop) Index() int {
	if l.current == nil {
		return -1
	}
	return l.pos - 1
}

func (l *Loop) Reset() {
	l.items = nil
	l.pos = 0
	l.current = nil
}
