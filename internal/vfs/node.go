package vfs

import (
	"time"

	"github.com/agentfs/agentfs/internal/store"
)

// NodeType distinguishes files from directories.
type NodeType string

const (
	TypeFile      NodeType = "file"
	TypeDirectory NodeType = "directory"
)

// FileInfo is the stat view of a node. Implicit directories synthesize one
// with the current time.
type FileInfo struct {
	Path      string    `json:"path"`
	Type      NodeType  `json:"type"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsDir reports whether the node is a directory.
func (fi *FileInfo) IsDir() bool {
	return fi.Type == TypeDirectory
}

// Document field names for the files collection.
const (
	fieldPath      = "path"
	fieldType      = "type"
	fieldContent   = "content"
	fieldCreatedAt = "created_at"
	fieldUpdatedAt = "updated_at"
)

// decodeInfo converts a files-collection document into a FileInfo.
func decodeInfo(doc store.Document) *FileInfo {
	info := &FileInfo{
		Path:      docString(doc, fieldPath),
		Type:      NodeType(docString(doc, fieldType)),
		CreatedAt: docTime(doc, fieldCreatedAt),
		UpdatedAt: docTime(doc, fieldUpdatedAt),
	}
	if info.Type == TypeFile {
		info.Size = int64(len(docString(doc, fieldContent)))
	}
	return info
}

func docString(doc store.Document, field string) string {
	s, _ := doc[field].(string)
	return s
}

// docTime reads an epoch-millisecond field, tolerating the numeric widening
// JSON codecs introduce.
func docTime(doc store.Document, field string) time.Time {
	switch v := doc[field].(type) {
	case int64:
		return time.UnixMilli(v)
	case float64:
		return time.UnixMilli(int64(v))
	default:
		return time.Time{}
	}
}
