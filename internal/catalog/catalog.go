package catalog

import (
	"context"
	"io"
	"time"
)

// Kind distinguishes which tracks an encoding carries.
type Kind string

const (
	KindVideoOnly   Kind = "video-only"
	KindAudioOnly   Kind = "audio-only"
	KindProgressive Kind = "progressive"
)

// HasVideo reports whether the encoding carries an image track.
func (k Kind) HasVideo() bool {
	return k == KindVideoOnly || k == KindProgressive
}

// Metadata is the immutable resource snapshot fetched once per run.
type Metadata struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Author      string        `json:"author"`
	Duration    time.Duration `json:"-"`
	Thumbnail   string        `json:"thumbnail,omitempty"`
	Views       int64         `json:"views"`
	Description string        `json:"description,omitempty"`
}

// DurationSeconds reports the resource duration in whole seconds.
func (m Metadata) DurationSeconds() int64 {
	return int64(m.Duration / time.Second)
}

// Descriptor enumerates one encoding the catalog currently offers.
type Descriptor struct {
	ID            string
	Kind          Kind
	Label         string
	Height        int
	FPS           int
	Codec         string
	Container     string
	MimeType      string
	Bitrate       int
	ContentLength int64
	// Handle is owned by the catalog implementation that produced the
	// descriptor and is passed back to it on Fetch.
	Handle any
}

// Listing is what a catalog resolves an identifier into.
type Listing struct {
	Metadata    Metadata
	Descriptors []Descriptor
}

// Catalog resolves identifiers and streams the bytes of a descriptor.
type Catalog interface {
	Resolve(ctx context.Context, identifier string) (*Listing, error)
	Fetch(ctx context.Context, descriptor Descriptor, dst io.Writer) (int64, error)
}
