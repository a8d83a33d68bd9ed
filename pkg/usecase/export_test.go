package usecase

import "sort"

// ShownLayouts returns the filenames of live layouts currently displayed
func (c *Catalog) ShownLayouts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shown []string
	for filename, l := range c.layouts {
		if l.Shown() {
			shown = append(shown, filename)
		}
	}
	sort.Strings(shown)
	return shown
}

// LoadedLayouts returns the filenames of live layouts of the current game
func (c *Catalog) LoadedLayouts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var names []string
	for filename := range c.layouts {
		names = append(names, filename)
	}
	sort.Strings(names)
	return names
}

// LiveLayout exposes a live layout for inspection
func (c *Catalog) LiveLayout(filename string) *Layout {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.layouts[filename]
}

var IsLayoutFilename = isLayoutFilename
