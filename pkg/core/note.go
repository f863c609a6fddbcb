package core

import "time"

// NoteInfo is the metadata of a stored note.
// Everything except ID is derived from the filesystem on every call.
type NoteInfo struct {
	ID         string    `json:"id" cbor:"id"`
	Path       string    `json:"path" cbor:"path"`
	Name       string    `json:"name" cbor:"name"`
	Size       int64     `json:"size" cbor:"size"`
	ModifiedAt time.Time `json:"modifiedAt" cbor:"modifiedAt"`
}

// Note is a single note with its full content.
// It is only produced by single-note reads; listings carry NoteInfo.
type Note struct {
	NoteInfo
	Content string `json:"content" cbor:"content"`
}
