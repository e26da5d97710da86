package descriptor

// Block is a pseudo-PGP armored payload attached to a keyword line.
type Block struct {
	Type string // text between the BEGIN/END markers, e.g. "SIGNATURE"
	Raw  string // full block content including both marker lines
}

// Entry is one keyword line plus its optional trailing block. Order among
// entries is significant: it is the on-wire order of the document.
type Entry struct {
	Keyword string
	Value   string
	Block   *Block
}

// Entries holds the tokenized records of a document section in wire
// order, with keyword lookups and the secondary ordered sequence for
// caller-supplied keywords (see TokenizeOptions.ExtraKeywords).
type Entries struct {
	order     []*Entry
	byKeyword map[string][]*Entry
	extra     []*Entry
}

func newEntries() *Entries {
	return &Entries{byKeyword: make(map[string][]*Entry)}
}

func (e *Entries) add(entry *Entry) {
	e.order = append(e.order, entry)
	e.byKeyword[entry.Keyword] = append(e.byKeyword[entry.Keyword], entry)
}

// All returns every entry in wire order.
func (e *Entries) All() []*Entry { return e.order }

// Len returns the number of entries, not counting extra-keyword entries.
func (e *Entries) Len() int { return len(e.order) }

// Get returns all entries for the given keyword in wire order.
func (e *Entries) Get(keyword string) []*Entry { return e.byKeyword[keyword] }

// First returns the first entry for the given keyword, if any.
func (e *Entries) First(keyword string) (*Entry, bool) {
	list := e.byKeyword[keyword]
	if len(list) == 0 {
		return nil, false
	}
	return list[0], true
}

// Count returns how many times the given keyword appears.
func (e *Entries) Count(keyword string) int { return len(e.byKeyword[keyword]) }

// Extra returns the entries whose keywords were listed in
// TokenizeOptions.ExtraKeywords, preserving their relative wire order.
func (e *Entries) Extra() []*Entry { return e.extra }
