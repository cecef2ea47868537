package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/notekeep"
	"github.com/aretw0/notekeep/pkg/notes"
	"github.com/aretw0/notekeep/pkg/service"
)

var (
	noteTitle    string
	noteContent  string
	noteTags     string
	notePinned   bool
	noteArchived bool
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a note",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		nb := openNotebook(cmd)
		defer closeNotebook(nb)

		n, err := nb.AddNote(notekeep.NoteInput{
			Title:    noteTitle,
			Content:  noteContent,
			Tags:     service.ParseTags(noteTags),
			Pinned:   notePinned,
			Archived: noteArchived,
		})
		if err != nil {
			nb.Close(cmd.Context())
			fatal("Failed to add note", err)
		}
		fmt.Println(n.ID)
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change the fields of a note",
	Long:  `Only the flags given on the command line are changed.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var changes notes.Changes
		f := cmd.Flags()
		if f.Changed("title") {
			changes.Title = &noteTitle
		}
		if f.Changed("content") {
			changes.Content = &noteContent
		}
		if f.Changed("tags") {
			tags := service.ParseTags(noteTags)
			changes.Tags = &tags
		}
		if f.Changed("pinned") {
			changes.Pinned = &notePinned
		}
		if f.Changed("archived") {
			changes.Archived = &noteArchived
		}

		nb := openNotebook(cmd)
		defer closeNotebook(nb)
		mustExist(nb.UpdateNote(args[0], changes), args[0])
	},
}

// toggleCommand builds a command applying op to every id given.
func toggleCommand(use, short string, op func(nb *notekeep.Notebook, id string) bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			nb := openNotebook(cmd)
			defer closeNotebook(nb)
			for _, id := range args {
				mustExist(op(nb, id), id)
			}
		},
	}
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete notes",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		nb := openNotebook(cmd)
		defer closeNotebook(nb)

		if len(args) == 1 {
			mustExist(nb.DeleteNote(args[0]), args[0])
			return
		}
		fmt.Printf("Deleted %d note(s).\n", nb.BulkDelete(args))
	},
}

func mustExist(ok bool, id string) {
	if !ok {
		fmt.Printf("No note with id %q.\n", id)
	}
}

func init() {
	for _, c := range []*cobra.Command{addCmd, editCmd} {
		c.Flags().StringVarP(&noteTitle, "title", "t", "", "Note title")
		c.Flags().StringVarP(&noteContent, "content", "c", "", "Note content")
		c.Flags().StringVar(&noteTags, "tags", "", "Comma separated tags")
		c.Flags().BoolVar(&notePinned, "pinned", false, "Pin the note")
		c.Flags().BoolVar(&noteArchived, "archived", false, "Archive the note")
	}

	rootCmd.AddCommand(addCmd, editCmd, deleteCmd)
	rootCmd.AddCommand(
		toggleCommand("pin", "Toggle the pinned flag", func(nb *notekeep.Notebook, id string) bool { return nb.TogglePin(id) }),
		toggleCommand("archive", "Archive notes", func(nb *notekeep.Notebook, id string) bool { return nb.ArchiveNote(id) }),
		toggleCommand("restore", "Restore archived notes", func(nb *notekeep.Notebook, id string) bool { return nb.RestoreNote(id) }),
	)
}
