package merger

import (
	"errors"
	"slices"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/javanhut/forked/internal/crdt"
)

// errTooManyValues is returned when a sequence holds more distinct values
// than there are Unicode code points to stand for them.
var errTooManyValues = errors.New("merger: too many distinct values to diff")

type insertion[T any] struct {
	at    int
	value T
}

// editScript turns one sequence into another: remove the listed source
// indexes in descending order, then insert at the listed target indexes in
// ascending order.
type editScript[T any] struct {
	removals   []int
	insertions []insertion[T]
}

// diffSequences computes an edit script from `from` to `to`, comparing
// elements by key. Elements are interned as runes so the rune diff of
// diffmatchpatch can be used for any comparable key.
func diffSequences[T any, K comparable](from, to []T, key func(T) K) (editScript[T], error) {
	table := make(map[K]rune)
	next := rune(0)
	intern := func(seq []T) ([]rune, error) {
		out := make([]rune, len(seq))
		for i, v := range seq {
			k := key(v)
			r, ok := table[k]
			if !ok {
				if next > utf8.MaxRune {
					return nil, errTooManyValues
				}
				r = next
				table[k] = r
				next++
				// skip the surrogate range, which does not survive string conversion
				if next == 0xD800 {
					next = 0xE000
				}
			}
			out[i] = r
		}
		return out, nil
	}

	a, err := intern(from)
	if err != nil {
		return editScript[T]{}, err
	}
	b, err := intern(to)
	if err != nil {
		return editScript[T]{}, err
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0

	var script editScript[T]
	i, j := 0, 0
	for _, d := range dmp.DiffMainRunes(a, b, false) {
		n := utf8.RuneCountInString(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			i += n
			j += n
		case diffmatchpatch.DiffDelete:
			for k := 0; k < n; k++ {
				script.removals = append(script.removals, i+k)
			}
			i += n
		case diffmatchpatch.DiffInsert:
			for k := 0; k < n; k++ {
				script.insertions = append(script.insertions, insertion[T]{at: j + k, value: to[j+k]})
			}
			j += n
		}
	}
	slices.Sort(script.removals)
	slices.Reverse(script.removals)
	slices.SortFunc(script.insertions, func(x, y insertion[T]) int { return x.at - y.at })
	return script, nil
}

func (s editScript[T]) apply(a *crdt.MergeableArray[T]) {
	for _, i := range s.removals {
		a.Remove(i)
	}
	for _, ins := range s.insertions {
		a.Insert(ins.value, ins.at)
	}
}

// mergeSequences runs the seed, replay and merge steps shared by the array
// mergers and returns the merged CRDT.
func mergeSequences[T any, K comparable](dominant, subordinate, ancestor []T, key func(T) K) (crdt.MergeableArray[T], error) {
	seed := crdt.NewArray(ancestor...)

	subScript, err := diffSequences(ancestor, subordinate, key)
	if err != nil {
		return crdt.MergeableArray[T]{}, err
	}
	domScript, err := diffSequences(ancestor, dominant, key)
	if err != nil {
		return crdt.MergeableArray[T]{}, err
	}

	sub := seed
	subScript.apply(&sub)

	dom := seed
	dom.CatchUp(sub)
	domScript.apply(&dom)

	return dom.MergedWith(sub), nil
}
