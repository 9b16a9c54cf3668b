package imagery

import (
	"fmt"
	"slices"
)

// Listener receives collection changes synchronously, on the goroutine
// that made the change.
type Listener interface {
	LayerAdded(layer *Layer, index int)
	LayerRemoved(layer *Layer, index int)
	LayerMoved(layer *Layer, newIndex, oldIndex int)
	LayerShownOrHidden(layer *Layer, index int, show bool)
}

// Collection is an ordered stack of layers. Index 0 is drawn first, at the
// bottom.
type Collection struct {
	layers    []*Layer
	listeners []Listener
}

// NewCollection returns a collection holding layers in order.
func NewCollection(layers ...*Layer) *Collection {
	c := &Collection{}
	for _, l := range layers {
		_ = c.Add(l)
	}
	return c
}

// AddListener registers l and returns a function that unregisters it.
func (c *Collection) AddListener(l Listener) (remove func()) {
	c.listeners = append(c.listeners, l)
	return func() {
		if i := slices.Index(c.listeners, l); i >= 0 {
			c.listeners = slices.Delete(c.listeners, i, i+1)
		}
	}
}

// Len returns the number of layers.
func (c *Collection) Len() int { return len(c.layers) }

// Get returns the layer at index.
func (c *Collection) Get(index int) *Layer { return c.layers[index] }

// Layers returns a copy of the layer stack.
func (c *Collection) Layers() []*Layer { return slices.Clone(c.layers) }

// IndexOf returns the position of layer, or -1.
func (c *Collection) IndexOf(layer *Layer) int { return slices.Index(c.layers, layer) }

// Contains reports whether layer is in the collection.
func (c *Collection) Contains(layer *Layer) bool { return c.IndexOf(layer) >= 0 }

// Add puts layer on top of the stack.
func (c *Collection) Add(layer *Layer) error {
	return c.AddAt(layer, len(c.layers))
}

// AddAt inserts layer at index.
func (c *Collection) AddAt(layer *Layer, index int) error {
	if layer.IsDestroyed() {
		return ErrLayerDestroyed
	}
	if index < 0 || index > len(c.layers) {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrIndexOutOfRange, index, len(c.layers))
	}
	c.layers = slices.Insert(c.layers, index, layer)
	c.Update()
	for _, l := range c.listeners {
		l.LayerAdded(layer, index)
	}
	return nil
}

// AddProvider creates a layer for p, adds it on top and returns it.
func (c *Collection) AddProvider(p Provider, opts ...LayerOption) *Layer {
	layer := NewLayer(p, opts...)
	_ = c.Add(layer)
	return layer
}

// Remove takes layer out of the collection and reports whether it was
// there. With destroy set the layer is destroyed after listeners ran.
func (c *Collection) Remove(layer *Layer, destroy bool) bool {
	index := c.IndexOf(layer)
	if index < 0 {
		return false
	}
	c.layers = slices.Delete(c.layers, index, index+1)
	c.Update()
	layer.index = -1
	for _, l := range c.listeners {
		l.LayerRemoved(layer, index)
	}
	if destroy {
		layer.Destroy()
	}
	return true
}

// RemoveAll removes every layer, top first.
func (c *Collection) RemoveAll(destroy bool) {
	for i := len(c.layers) - 1; i >= 0; i-- {
		c.Remove(c.layers[i], destroy)
	}
}

// Raise moves layer up one position.
func (c *Collection) Raise(layer *Layer) error {
	i := c.IndexOf(layer)
	if i < 0 {
		return ErrLayerNotInCollection
	}
	c.swap(i, i+1)
	return nil
}

// Lower moves layer down one position.
func (c *Collection) Lower(layer *Layer) error {
	i := c.IndexOf(layer)
	if i < 0 {
		return ErrLayerNotInCollection
	}
	c.swap(i, i-1)
	return nil
}

// RaiseToTop moves layer to the top of the stack.
func (c *Collection) RaiseToTop(layer *Layer) error {
	return c.moveTo(layer, len(c.layers)-1)
}

// LowerToBottom moves layer to the bottom of the stack.
func (c *Collection) LowerToBottom(layer *Layer) error {
	return c.moveTo(layer, 0)
}

func (c *Collection) moveTo(layer *Layer, target int) error {
	i := c.IndexOf(layer)
	if i < 0 {
		return ErrLayerNotInCollection
	}
	if i == target {
		return nil
	}
	c.layers = slices.Delete(c.layers, i, i+1)
	c.layers = slices.Insert(c.layers, target, layer)
	c.Update()
	c.notifyMoved(layer, target, i)
	return nil
}

func (c *Collection) swap(i, j int) {
	if j < 0 || j >= len(c.layers) {
		return
	}
	a, b := c.layers[i], c.layers[j]
	c.layers[i], c.layers[j] = b, a
	c.Update()
	c.notifyMoved(a, j, i)
}

func (c *Collection) notifyMoved(layer *Layer, newIndex, oldIndex int) {
	for _, l := range c.listeners {
		l.LayerMoved(layer, newIndex, oldIndex)
	}
}

// Update refreshes layer indices and the base layer, and reports Show
// changes made since the last call.
func (c *Collection) Update() {
	base := true
	var toggled []*Layer
	for i, layer := range c.layers {
		layer.index = i
		if layer.Show {
			layer.baseLayer = base
			base = false
		} else {
			layer.baseLayer = false
		}
		if layer.showKnown && layer.Show != layer.shown {
			toggled = append(toggled, layer)
		}
		layer.shown = layer.Show
		layer.showKnown = true
	}
	for _, layer := range toggled {
		for _, l := range c.listeners {
			l.LayerShownOrHidden(layer, layer.index, layer.Show)
		}
	}
}
