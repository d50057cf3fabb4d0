// Package document provides the in-memory design document the built-in
// agents operate on, and the immutable context snapshots handed to
// validation and execution.
package document

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Object is one named item in a document: a solid, a sketch, or a derived
// feature. Params hold the defining dimensions.
type Object struct {
	Name      string
	Type      string
	Params    map[string]float64
	CreatedBy string
}

func (o Object) clone() Object {
	params := make(map[string]float64, len(o.Params))
	for k, v := range o.Params {
		params[k] = v
	}
	o.Params = params
	return o
}

// Document is a mutable model of the external design target. All access
// goes through its methods; the engine never reads it ambiently.
type Document struct {
	mu      sync.RWMutex
	name    string
	order   []string
	objects map[string]Object
}

// New creates an empty document.
func New(name string) *Document {
	return &Document{
		name:    name,
		objects: make(map[string]Object),
	}
}

// Name returns the document name.
func (d *Document) Name() string { return d.name }

// AddObject inserts a new object. Names are unique within a document.
func (d *Document) AddObject(obj Object) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if obj.Name == "" {
		return fmt.Errorf("object name is required")
	}
	if _, exists := d.objects[obj.Name]; exists {
		return fmt.Errorf("object %q already exists", obj.Name)
	}
	d.objects[obj.Name] = obj.clone()
	d.order = append(d.order, obj.Name)
	return nil
}

// RemoveObject deletes an object and returns its last state so the caller
// can restore it.
func (d *Document) RemoveObject(name string) (Object, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	obj, ok := d.objects[name]
	if !ok {
		return Object{}, fmt.Errorf("object %q not found", name)
	}
	delete(d.objects, name)
	for i, n := range d.order {
		if n == name {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return obj, nil
}

// Object returns a copy of the named object.
func (d *Document) Object(name string) (Object, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	obj, ok := d.objects[name]
	if !ok {
		return Object{}, false
	}
	return obj.clone(), true
}

// SetParams replaces an object's parameters and returns the previous
// values for undo.
func (d *Document) SetParams(name string, params map[string]float64) (map[string]float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	obj, ok := d.objects[name]
	if !ok {
		return nil, fmt.Errorf("object %q not found", name)
	}
	prev := obj.Params
	next := make(map[string]float64, len(params))
	for k, v := range params {
		next[k] = v
	}
	obj.Params = next
	d.objects[name] = obj
	return prev, nil
}

// ObjectCount returns the number of objects in the document.
func (d *Document) ObjectCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.objects)
}

// Snapshot captures the document state as an immutable ExecutionContext.
func (d *Document) Snapshot() ExecutionContext {
	d.mu.RLock()
	defer d.mu.RUnlock()

	objs := make([]Object, 0, len(d.order))
	for _, name := range d.order {
		objs = append(objs, d.objects[name].clone())
	}
	return ExecutionContext{
		DocumentName: d.name,
		TakenAt:      time.Now(),
		objects:      objs,
	}
}

// ExecutionContext is an immutable snapshot of the target document taken
// at planning time and again before each step's validation. It is passed
// explicitly to every validation and execution call.
type ExecutionContext struct {
	DocumentName string
	TakenAt      time.Time
	objects      []Object
}

// Objects returns the snapshot's objects in creation order.
func (c ExecutionContext) Objects() []Object {
	out := make([]Object, len(c.objects))
	copy(out, c.objects)
	return out
}

// ObjectNames returns the snapshot's object names, sorted.
func (c ExecutionContext) ObjectNames() []string {
	names := make([]string, 0, len(c.objects))
	for _, o := range c.objects {
		names = append(names, o.Name)
	}
	sort.Strings(names)
	return names
}

// HasObject reports whether the snapshot contains the named object.
func (c ExecutionContext) HasObject(name string) bool {
	for _, o := range c.objects {
		if o.Name == name {
			return true
		}
	}
	return false
}

// ObjectCount returns the number of objects in the snapshot.
func (c ExecutionContext) ObjectCount() int { return len(c.objects) }

// Provider yields fresh context snapshots for planning and per-step
// validation.
type Provider interface {
	Snapshot() ExecutionContext
}
