package models

// CategorizedCatalog maps category names to their items. Category order is
// the order in which each category first received an item; item order within
// a category is crawl order.
type CategorizedCatalog struct {
	names []string
	items map[string][]Item
}

// NewCategorizedCatalog returns an empty catalog.
func NewCategorizedCatalog() *CategorizedCatalog {
	return &CategorizedCatalog{items: make(map[string][]Item)}
}

// Add appends item to the named category, creating it on first use.
func (c *CategorizedCatalog) Add(category string, item Item) {
	c.ensure(category)
	c.items[category] = append(c.items[category], item)
}

// Ensure registers a category even when it has no items.
func (c *CategorizedCatalog) Ensure(category string) {
	c.ensure(category)
}

func (c *CategorizedCatalog) ensure(category string) {
	if c.items == nil {
		c.items = make(map[string][]Item)
	}
	if _, ok := c.items[category]; !ok {
		c.names = append(c.names, category)
		c.items[category] = nil
	}
}

// Categories returns category names in insertion order.
func (c *CategorizedCatalog) Categories() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Items returns the items stored under category.
func (c *CategorizedCatalog) Items(category string) []Item {
	return c.items[category]
}

// Len returns the number of categories.
func (c *CategorizedCatalog) Len() int {
	return len(c.names)
}

// TotalItems returns the number of items across all categories.
func (c *CategorizedCatalog) TotalItems() int {
	total := 0
	for _, items := range c.items {
		total += len(items)
	}
	return total
}
