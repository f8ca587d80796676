package state

import (
	"slices"
	"sync"
)

// Document is the surface theme classes are applied to.
type Document interface {
	Add(classes ...string)
	Remove(classes ...string)
}

// ClassList is an ordered set of class names, standing in for a document root.
type ClassList struct {
	mu      sync.Mutex
	classes []string
}

// NewClassList returns a class list holding the given classes.
func NewClassList(classes ...string) *ClassList {
	c := &ClassList{}
	c.Add(classes...)
	return c
}

// Add appends classes not already present.
func (c *ClassList) Add(classes ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, class := range classes {
		if class != "" && !slices.Contains(c.classes, class) {
			c.classes = append(c.classes, class)
		}
	}
}

// Remove deletes the given classes if present.
func (c *ClassList) Remove(classes ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.classes = slices.DeleteFunc(c.classes, func(class string) bool {
		return slices.Contains(classes, class)
	})
}

// Contains reports whether class is present.
func (c *ClassList) Contains(class string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Contains(c.classes, class)
}

// Classes returns a copy of the class names in insertion order.
func (c *ClassList) Classes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.classes)
}
