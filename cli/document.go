package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/javanhut/forked/internal/colors"
	"github.com/javanhut/forked/internal/document"
	"github.com/javanhut/forked/internal/forked"
)

type setOptions struct {
	title     string
	body      string
	tags      []string
	untags    []string
	fields    []string
	items     []string
	done      []string
	dropItems []string
	clear     bool
}

func newSetCmd(opts *rootOptions) *cobra.Command {
	so := &setOptions{}
	cmd := &cobra.Command{
		Use:   "set <fork>",
		Short: "Edit the document in a fork",
		Long: `Applies the given edits to the document in a fork and commits the
result as one new version.

Examples:
  forked set main --title "Release notes" --tag draft
  forked set feature --field owner=ana --item 1="write intro"
  forked set feature --done 1 --untag draft
  forked set feature --clear`,
		Args: cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, s *session, args []string) error {
			if !anyChanged(cmd, "title", "body", "tag", "untag", "field", "item", "done", "drop-item", "clear") {
				return errors.New("nothing to set; see 'forked set --help'")
			}
			fork := forked.Fork(args[0])

			var version forked.Version
			err := s.res.PerformAtomically(func(tx *forked.Tx[document.Document]) error {
				if so.clear {
					v, err := tx.Update(fork, nil)
					version = v
					return err
				}
				doc, _, err := tx.Resource(fork)
				if err != nil {
					return err
				}
				doc = doc.Clone()
				if err := so.apply(cmd, &doc); err != nil {
					return err
				}
				v, err := tx.Update(fork, &doc)
				version = v
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Committed %s to %s\n", colors.Version(version.String()), colors.Fork(fork.String()))
			return nil
		}),
	}

	f := cmd.Flags()
	f.StringVar(&so.title, "title", "", "Set the title")
	f.StringVar(&so.body, "body", "", "Set the body text")
	f.StringSliceVar(&so.tags, "tag", nil, "Add tags")
	f.StringSliceVar(&so.untags, "untag", nil, "Remove tags")
	f.StringArrayVar(&so.fields, "field", nil, "Set a field as key=value; an empty value removes it")
	f.StringArrayVar(&so.items, "item", nil, "Add or rename a checklist item as id=text")
	f.StringSliceVar(&so.done, "done", nil, "Mark checklist items done by id")
	f.StringSliceVar(&so.dropItems, "drop-item", nil, "Remove checklist items by id")
	f.BoolVar(&so.clear, "clear", false, "Remove the document from the fork")
	cmd.MarkFlagsMutuallyExclusive("clear", "title")
	cmd.MarkFlagsMutuallyExclusive("clear", "body")
	return cmd
}

func (so *setOptions) apply(cmd *cobra.Command, doc *document.Document) error {
	if cmd.Flags().Changed("title") {
		doc.Title = so.title
	}
	if cmd.Flags().Changed("body") {
		doc.Body = so.body
	}
	for _, tag := range so.tags {
		doc.AddTag(tag)
	}
	for _, tag := range so.untags {
		doc.RemoveTag(tag)
	}
	for _, f := range so.fields {
		key, value, ok := document.ParseAssignment(f)
		if !ok {
			return fmt.Errorf("invalid field %q (expected key=value)", f)
		}
		doc.SetField(key, value)
	}
	for _, it := range so.items {
		id, text, ok := document.ParseAssignment(it)
		if !ok {
			return fmt.Errorf("invalid item %q (expected id=text)", it)
		}
		item := document.Item{ID: id, Text: text}
		for _, existing := range doc.Items {
			if existing.ID == id {
				item.Done = existing.Done
			}
		}
		doc.PutItem(item)
	}
	for _, id := range so.done {
		found := false
		for _, existing := range doc.Items {
			if existing.ID == id {
				existing.Done = true
				doc.PutItem(existing)
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("no item with id %q", id)
		}
	}
	for _, id := range so.dropItems {
		if !doc.RemoveItem(id) {
			return fmt.Errorf("no item with id %q", id)
		}
	}
	return nil
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show [fork]",
		Short: "Print the document in a fork (main by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, s *session, args []string) error {
			fork := forked.Main
			if len(args) == 1 {
				fork = forked.Fork(args[0])
			}
			content, err := s.res.Content(fork)
			if err != nil {
				return err
			}
			if asJSON {
				data, err := json.MarshalIndent(content, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			version, err := s.res.MostRecentVersion(fork)
			if err != nil {
				return err
			}
			printDocument(cmd.OutOrStdout(), fork, version, content)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the document as JSON")
	return cmd
}

func printDocument(w io.Writer, fork forked.Fork, version forked.Version, doc *document.Document) {
	fmt.Fprintf(w, "%s %s\n", colors.Fork(fork.String()), colors.Version(version.String()))
	if doc == nil {
		fmt.Fprintln(w, colors.Gray("(no document)"))
		return
	}

	fmt.Fprintf(w, "%s %s\n", colors.SectionHeader("Title:"), doc.Title)
	if tags := doc.SortedTags(); len(tags) > 0 {
		fmt.Fprintf(w, "%s %s\n", colors.SectionHeader("Tags:"), strings.Join(tags, ", "))
	}
	if len(doc.Fields) > 0 {
		fmt.Fprintln(w, colors.SectionHeader("Fields:"))
		for _, key := range sortedKeys(doc.Fields) {
			fmt.Fprintf(w, "  %s = %s\n", key, doc.Fields[key])
		}
	}
	if len(doc.Items) > 0 {
		fmt.Fprintln(w, colors.SectionHeader("Items:"))
		for _, it := range doc.Items {
			mark := "[ ]"
			if it.Done {
				mark = colors.SuccessText("[x]")
			}
			fmt.Fprintf(w, "  %s %s %s\n", mark, colors.Gray(it.ID), it.Text)
		}
	}
	if doc.Body != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, doc.Body)
	}
}

func anyChanged(cmd *cobra.Command, names ...string) bool {
	return slices.ContainsFunc(names, cmd.Flags().Changed)
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
