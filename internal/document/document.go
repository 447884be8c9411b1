// Package document defines the resource edited by the forked command line.
package document

import (
	"maps"
	"slices"
	"strings"

	"github.com/javanhut/forked/internal/merger"
)

// Item is an entry in a document's checklist.
type Item struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done,omitempty"`
}

// Identity implements merger.Identifiable.
func (i Item) Identity() string { return i.ID }

// Document is a titled text with tags, free-form fields and a checklist.
type Document struct {
	Title  string              `json:"title,omitempty"`
	Body   string              `json:"body,omitempty"`
	Tags   map[string]struct{} `json:"tags,omitempty"`
	Fields map[string]string   `json:"fields,omitempty"`
	Items  []Item              `json:"items,omitempty"`
}

// Merged merges each field on its own. The title is replaced as a whole:
// the side that changed it wins, and the receiver when both did.
func (d Document) Merged(subordinate, commonAncestor Document) (Document, error) {
	var out Document
	var err error

	out.Title = d.Title
	if d.Title == commonAncestor.Title {
		out.Title = subordinate.Title
	}
	if out.Body, err = (merger.TextMerger{}).Merge(d.Body, subordinate.Body, commonAncestor.Body); err != nil {
		return Document{}, err
	}
	if out.Tags, err = (merger.SetMerger[string]{}).Merge(d.Tags, subordinate.Tags, commonAncestor.Tags); err != nil {
		return Document{}, err
	}
	if out.Fields, err = (merger.DictionaryMerger[string, string]{}).Merge(d.Fields, subordinate.Fields, commonAncestor.Fields); err != nil {
		return Document{}, err
	}
	if out.Items, err = (merger.ArrayOfIdentifiableMerger[Item, string]{}).Merge(d.Items, subordinate.Items, commonAncestor.Items); err != nil {
		return Document{}, err
	}
	if len(out.Tags) == 0 {
		out.Tags = nil
	}
	if len(out.Fields) == 0 {
		out.Fields = nil
	}
	return out, nil
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	d.Tags = maps.Clone(d.Tags)
	d.Fields = maps.Clone(d.Fields)
	d.Items = slices.Clone(d.Items)
	return d
}

// SortedTags returns the tags in lexical order.
func (d Document) SortedTags() []string {
	return slices.Sorted(maps.Keys(d.Tags))
}

// AddTag adds tag, creating the set if needed.
func (d *Document) AddTag(tag string) {
	if d.Tags == nil {
		d.Tags = make(map[string]struct{})
	}
	d.Tags[tag] = struct{}{}
}

// RemoveTag removes tag.
func (d *Document) RemoveTag(tag string) {
	delete(d.Tags, tag)
	if len(d.Tags) == 0 {
		d.Tags = nil
	}
}

// SetField sets key to value. An empty value removes the field.
func (d *Document) SetField(key, value string) {
	if value == "" {
		delete(d.Fields, key)
		if len(d.Fields) == 0 {
			d.Fields = nil
		}
		return
	}
	if d.Fields == nil {
		d.Fields = make(map[string]string)
	}
	d.Fields[key] = value
}

// PutItem replaces the item with the same ID or appends it.
func (d *Document) PutItem(item Item) {
	for i := range d.Items {
		if d.Items[i].ID == item.ID {
			d.Items[i] = item
			return
		}
	}
	d.Items = append(d.Items, item)
}

// RemoveItem removes the item with the given ID and reports whether it was
// present.
func (d *Document) RemoveItem(id string) bool {
	i := slices.IndexFunc(d.Items, func(it Item) bool { return it.ID == id })
	if i < 0 {
		return false
	}
	d.Items = slices.Delete(d.Items, i, i+1)
	if len(d.Items) == 0 {
		d.Items = nil
	}
	return true
}

// ParseAssignment splits "key=value". The value may be empty.
func ParseAssignment(s string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(s, "=")
	if !ok || key == "" {
		return "", "", false
	}
	return key, value, true
}
