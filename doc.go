// Package notekeep is the composition root of a single-user notes
// application core.
//
// It wires the note and settings reducers to a storage backend through a
// persistence bridge that debounces writes, migrates older documents,
// recovers from corrupt data and applies changes made by other processes
// sharing the same storage.
//
// Backends:
//
//   - fs: one JSON file per key, atomic writes, fsnotify based watching.
//   - sqlite: a key/value table in notekeep.db, polled for foreign commits.
//   - memory: a process-local map, useful in tests.
//
// Usage:
//
//	nb, err := notekeep.Open(ctx, "./.notekeep",
//		notekeep.WithAdapter(notekeep.AdapterSQLite),
//		notekeep.WithWatch(true),
//	)
//	if err != nil {
//		return err
//	}
//	defer nb.Close(ctx)
//
//	note, err := nb.AddNote(notekeep.NoteInput{Title: "Groceries"})
//	for _, n := range nb.View() {
//		fmt.Println(n.Title)
//	}
package notekeep
