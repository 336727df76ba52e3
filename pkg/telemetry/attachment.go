package telemetry

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// Attachment types understood by ingest
const (
	AttachmentTypeDefault       = "event.attachment"
	AttachmentTypeMinidump      = "event.minidump"
	AttachmentTypeViewHierarchy = "event.view_hierarchy"
)

// AttachmentContent opens the bytes of an attachment. Every call returns a new
// stream owned by the caller.
type AttachmentContent interface {
	Open() (io.ReadCloser, error)
}

// Attachment is a file sent alongside an event
type Attachment struct {
	Filename       string
	ContentType    string
	AttachmentType string
	Content        AttachmentContent
}

// NewFileAttachment attaches the file at path, named after its base name
func NewFileAttachment(path, contentType string) Attachment {
	return Attachment{
		Filename:    filepath.Base(path),
		ContentType: contentType,
		Content:     FileContent(path),
	}
}

// NewBytesAttachment attaches an in-memory buffer
func NewBytesAttachment(filename, contentType string, data []byte) Attachment {
	return Attachment{
		Filename:    filename,
		ContentType: contentType,
		Content:     BytesContent(data),
	}
}

// FileContent reads an attachment from disk
type FileContent string

func (p FileContent) Open() (io.ReadCloser, error) {
	return os.Open(string(p))
}

// BytesContent serves an attachment from memory
type BytesContent []byte

func (b BytesContent) Open() (io.ReadCloser, error) {
	return byteStream{bytes.NewReader(b)}, nil
}

// ReaderContent adapts a function to AttachmentContent
type ReaderContent func() (io.ReadCloser, error)

func (f ReaderContent) Open() (io.ReadCloser, error) {
	return f()
}

// byteStream keeps Len visible so the length can be probed without reading
type byteStream struct {
	*bytes.Reader
}

func (byteStream) Close() error { return nil }
