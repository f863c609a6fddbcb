// Package notebox is the composition root of a small note store.
//
// Notes are plain UTF-8 `.md` files in a workspace directory. Callers address
// them by a logical id that is sanitized before it ever reaches the
// filesystem, so no id can read or write outside the workspace. There is no
// database and no cache: every call reads the directory as it is.
//
// Two id policies exist and a deployment picks one:
//
//   - flat: every character outside [A-Za-z0-9_-] is stripped and the note
//     lives at <root>/<id>.md.
//   - nested: ids are paths under a prefix (default "notes/"), with parent
//     and hidden segments rejected.
//
// Usage:
//
//	svc, err := notebox.New(notebox.WithPolicy("flat"), notebox.WithLogger(logger))
//
//	info, err := svc.SaveNote(ctx, "/srv/notes", "report", "# Report\n\nbody")
//	note, err := svc.GetNote(ctx, "/srv/notes", "report")
package notebox
