package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	yt "github.com/kkdai/youtube/v2"

	"fetchmedia/internal/catalog"
	"fetchmedia/internal/logging"
	"fetchmedia/internal/services"
)

// Client resolves YouTube identifiers into catalog listings.
type Client struct {
	yt     *yt.Client
	logger *slog.Logger
}

// New constructs a Client whose HTTP traffic follows the session strategy.
func New(session *Session, logger *slog.Logger) (*Client, error) {
	if session == nil {
		session = &Session{}
	}
	httpClient, err := session.HTTPClient()
	if err != nil {
		return nil, err
	}
	return &Client{
		yt:     &yt.Client{HTTPClient: httpClient},
		logger: logging.NewComponentLogger(logger, "catalog"),
	}, nil
}

type handle struct {
	video  *yt.Video
	format *yt.Format
}

// Resolve fetches metadata and every format YouTube offers for the identifier.
func (c *Client) Resolve(ctx context.Context, identifier string) (*catalog.Listing, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, services.Wrap(services.ErrInvalidRequest, "resolve", "validate identifier", "identifier is empty", nil)
	}
	video, err := c.yt.GetVideoContext(ctx, identifier)
	if err != nil {
		return nil, services.WrapContext(ctx, services.ErrExtraction, "resolve", "get video", describeVideoError(err), err)
	}

	listing := &catalog.Listing{
		Metadata: catalog.Metadata{
			ID:          video.ID,
			Title:       video.Title,
			Author:      video.Author,
			Duration:    video.Duration,
			Views:       int64(video.Views),
			Description: video.Description,
			Thumbnail:   bestThumbnail(video.Thumbnails),
		},
	}
	for i := range video.Formats {
		descriptor, ok := describeFormat(&video.Formats[i])
		if !ok {
			continue
		}
		descriptor.Handle = handle{video: video, format: &video.Formats[i]}
		listing.Descriptors = append(listing.Descriptors, descriptor)
	}
	logging.WithContext(ctx, c.logger).Debug("catalog resolved",
		logging.String("video_id", video.ID),
		logging.Int("format_count", len(video.Formats)),
		logging.Int("descriptor_count", len(listing.Descriptors)),
	)
	return listing, nil
}

// Fetch streams the descriptor bytes into dst. A 403 before any byte was
// written is retried once as a single unchunked request.
func (c *Client) Fetch(ctx context.Context, descriptor catalog.Descriptor, dst io.Writer) (int64, error) {
	h, ok := descriptor.Handle.(handle)
	if !ok || h.video == nil || h.format == nil {
		return 0, fmt.Errorf("descriptor %s was not produced by this catalog", descriptor.ID)
	}
	written, err := c.stream(ctx, h.video, h.format, dst)
	if err != nil && written == 0 && isUnexpectedStatus(err, http.StatusForbidden) {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "chunked stream rejected; retrying with single request", "stream_retry",
			logging.String("descriptor", descriptor.ID),
			logging.String(logging.FieldImpact, "download proceeds without range requests"),
		)
		single := *h.format
		single.ContentLength = 0
		return c.stream(ctx, h.video, &single, dst)
	}
	return written, err
}

func (c *Client) stream(ctx context.Context, video *yt.Video, format *yt.Format, dst io.Writer) (int64, error) {
	body, _, err := c.yt.GetStreamContext(ctx, video, format)
	if err != nil {
		return 0, fmt.Errorf("open stream: %w", err)
	}
	defer body.Close()
	written, err := io.Copy(dst, contextReader{ctx: ctx, r: body})
	if err != nil {
		return written, fmt.Errorf("copy stream: %w", err)
	}
	return written, nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}

func describeFormat(format *yt.Format) (catalog.Descriptor, bool) {
	mediaType, params, err := mime.ParseMediaType(format.MimeType)
	if err != nil {
		return catalog.Descriptor{}, false
	}
	major, subtype, _ := strings.Cut(mediaType, "/")
	hasVideo := format.Width > 0 || format.Height > 0 || major == "video"
	hasAudio := format.AudioChannels > 0 || major == "audio"

	descriptor := catalog.Descriptor{
		ID:            fmt.Sprintf("%d", format.ItagNo),
		Label:         format.QualityLabel,
		Height:        format.Height,
		FPS:           format.FPS,
		MimeType:      format.MimeType,
		Bitrate:       format.AverageBitrate,
		ContentLength: format.ContentLength,
		Container:     containerFor(major, subtype),
	}
	if descriptor.Bitrate == 0 {
		descriptor.Bitrate = format.Bitrate
	}
	if codecs := params["codecs"]; codecs != "" {
		first, _, _ := strings.Cut(codecs, ",")
		descriptor.Codec = strings.TrimSpace(first)
	}

	switch {
	case major == "video" && hasAudio:
		descriptor.Kind = catalog.KindProgressive
	case major == "video" && hasVideo:
		descriptor.Kind = catalog.KindVideoOnly
	case major == "audio":
		descriptor.Kind = catalog.KindAudioOnly
		descriptor.Label = ""
	default:
		return catalog.Descriptor{}, false
	}
	if descriptor.Kind.HasVideo() && descriptor.Label == "" && format.Height > 0 {
		descriptor.Label = fmt.Sprintf("%dp", format.Height)
	}
	return descriptor, true
}

func containerFor(major, subtype string) string {
	switch {
	case major == "audio" && subtype == "mp4":
		return "m4a"
	case subtype == "3gpp":
		return "3gp"
	case subtype == "":
		return "bin"
	default:
		return subtype
	}
}

func bestThumbnail(thumbnails yt.Thumbnails) string {
	var (
		best string
		area uint
	)
	for _, thumb := range thumbnails {
		if candidate := thumb.Width * thumb.Height; best == "" || candidate > area {
			best, area = thumb.URL, candidate
		}
	}
	return best
}

func describeVideoError(err error) string {
	switch {
	case errors.Is(err, yt.ErrLoginRequired):
		return "login required"
	case errors.Is(err, yt.ErrVideoPrivate):
		return "video is private"
	case errors.Is(err, yt.ErrNotPlayableInEmbed):
		return "video not playable in embed"
	case errors.Is(err, yt.ErrInvalidCharactersInVideoID), errors.Is(err, yt.ErrVideoIDMinLength):
		return "invalid video identifier"
	}
	var statusErr *yt.ErrPlayabiltyStatus
	if errors.As(err, &statusErr) {
		return "video unavailable"
	}
	return "metadata lookup failed"
}

func isUnexpectedStatus(err error, code int) bool {
	var statusErr yt.ErrUnexpectedStatusCode
	if errors.As(err, &statusErr) {
		return int(statusErr) == code
	}
	return false
}
