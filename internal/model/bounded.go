package model

// Authors is an ordered list capped at MaxAuthors. Values past the cap
// are dropped silently; a feed listing more is not an error.
type Authors struct {
	items []Author
}

// Add appends a, reporting false when the list is full or a has no name.
func (l *Authors) Add(a Author) bool {
	if a.Name == "" || len(l.items) >= MaxAuthors {
		return false
	}
	l.items = append(l.items, a)
	return true
}

// All returns the stored authors in insertion order.
func (l Authors) All() []Author {
	return l.items
}

// Len returns the number of stored authors.
func (l Authors) Len() int {
	return len(l.items)
}

// Contains reports whether an author with the same name is present.
func (l Authors) Contains(name string) bool {
	for _, a := range l.items {
		if a.Name == name {
			return true
		}
	}
	return false
}

// Categories is an ordered list capped at MaxCategories, with the same
// drop-when-full policy as Authors.
type Categories struct {
	items []Category
}

// Add appends c, reporting false when the list is full or c is empty.
func (l *Categories) Add(c Category) bool {
	if c.Name == "" || len(l.items) >= MaxCategories {
		return false
	}
	l.items = append(l.items, c)
	return true
}

// All returns the stored categories in insertion order.
func (l Categories) All() []Category {
	return l.items
}

// Len returns the number of stored categories.
func (l Categories) Len() int {
	return len(l.items)
}

// Contains reports whether a category with the same name is present.
func (l Categories) Contains(name string) bool {
	for _, c := range l.items {
		if c.Name == name {
			return true
		}
	}
	return false
}
