package images

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"catalog-service/internal/spreadsheet"
	"github.com/Tesseract-Nexus/go-shared/httpclient"
	"github.com/sirupsen/logrus"
)

// DefaultProbeTimeout bounds the HEAD request issued for remote images.
const DefaultProbeTimeout = 10 * time.Second

var ErrUnsupportedImageType = errors.New("unsupported image data type")

// Outcome is the terminal state of a single image resolution.
type Outcome int

const (
	// NoImage means the product is stored without a main image.
	NoImage Outcome = iota
	// Resolved means the reference was uploaded and URL holds the stored asset.
	Resolved
	// Unsupported means the cell type cannot carry an image reference.
	Unsupported
)

func (o Outcome) String() string {
	switch o {
	case NoImage:
		return "no_image"
	case Resolved:
		return "resolved"
	case Unsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Resolution is the result of resolving one image reference. URL is set only
// for Resolved; Cause explains NoImage (when a probe failed) and Unsupported.
type Resolution struct {
	Outcome Outcome
	URL     string
	Cause   error
}

// TransientImageFetchError reports a remote image that could not be
// confirmed: transport failure, timeout, non-2xx status or a non-image
// content type. It never aborts ingestion.
type TransientImageFetchError struct {
	URL         string
	StatusCode  int
	ContentType string
	Err         error
}

func (e *TransientImageFetchError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("image probe for %s failed: %v", e.URL, e.Err)
	case e.StatusCode < 200 || e.StatusCode > 299:
		return fmt.Sprintf("image probe for %s returned status %d", e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("image probe for %s returned non-image content type %q", e.URL, e.ContentType)
	}
}

func (e *TransientImageFetchError) Unwrap() error {
	return e.Err
}

// Observer is notified of every resolution outcome.
type Observer interface {
	ObserveImage(outcome Outcome)
}

// Resolver turns spreadsheet image references into stored-asset URLs.
type Resolver struct {
	store      BlobStore
	httpClient *http.Client
	timeout    time.Duration
	observer   Observer
	logger     *logrus.Entry
}

// ResolverConfig configures a Resolver
type ResolverConfig struct {
	Store        BlobStore
	HTTPClient   *http.Client  // defaults to the go-shared external profile
	ProbeTimeout time.Duration // defaults to DefaultProbeTimeout
	Observer     Observer      // optional
	Logger       *logrus.Entry
}

// NewResolver creates a new image resolver
func NewResolver(config ResolverConfig) *Resolver {
	base := config.HTTPClient
	if base == nil {
		base = httpclient.NewClientWithProfile(httpclient.ProfileExternal)
	}
	// Redirects are reported as-is so a moved image is treated as missing
	client := *base
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	timeout := config.ProbeTimeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Resolver{
		store:      config.Store,
		httpClient: &client,
		timeout:    timeout,
		observer:   config.Observer,
		logger:     logger.WithField("component", "image_resolver"),
	}
}

// Resolve classifies the reference and resolves it in one step. The error
// return is reserved for blob store failures; every other outcome is carried
// by the Resolution.
func (r *Resolver) Resolve(ctx context.Context, ref spreadsheet.Cell) (Resolution, error) {
	res, err := r.resolve(ctx, ref)
	if err == nil && r.observer != nil {
		r.observer.ObserveImage(res.Outcome)
	}
	return res, err
}

func (r *Resolver) resolve(ctx context.Context, ref spreadsheet.Cell) (Resolution, error) {
	if isEmptyReference(ref) {
		r.logger.Debug("Empty or NaN image data")
		return Resolution{Outcome: NoImage}, nil
	}

	if ref.Kind != spreadsheet.KindText {
		return Resolution{
			Outcome: Unsupported,
			Cause:   fmt.Errorf("%w: %s", ErrUnsupportedImageType, ref.Kind),
		}, nil
	}

	value := strings.TrimSpace(ref.Value)

	if strings.HasPrefix(value, "http") {
		if err := r.probe(ctx, value); err != nil {
			r.logger.WithError(err).WithField("url", value).Warn("Error processing image URL")
			return Resolution{Outcome: NoImage, Cause: err}, nil
		}
		url, err := r.store.Upload(ctx, value)
		if err != nil {
			return Resolution{}, fmt.Errorf("failed to upload image %s: %w", value, err)
		}
		r.logger.WithField("stored_url", url).Info("Uploaded image from URL")
		return Resolution{Outcome: Resolved, URL: url}, nil
	}

	url, err := r.store.Upload(ctx, value)
	if err != nil {
		return Resolution{}, fmt.Errorf("failed to upload image %s: %w", value, err)
	}
	r.logger.WithField("stored_url", url).Info("Uploaded image from local path")
	return Resolution{Outcome: Resolved, URL: url}, nil
}

// probe issues a bounded HEAD request and accepts only 2xx image responses.
func (r *Resolver) probe(ctx context.Context, url string) error {
	probeCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, url, nil)
	if err != nil {
		return &TransientImageFetchError{URL: url, Err: err}
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return &TransientImageFetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransientImageFetchError{URL: url, StatusCode: resp.StatusCode, ContentType: contentType}
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/") {
		return &TransientImageFetchError{URL: url, StatusCode: resp.StatusCode, ContentType: contentType}
	}
	return nil
}

// emptyMarkers are the textual missing-value markers spreadsheets export.
var emptyMarkers = map[string]struct{}{
	"nan":  {},
	"-nan": {},
	"na":   {},
	"n/a":  {},
	"#na":  {},
	"#n/a": {},
	"<na>": {},
	"null": {},
	"none": {},
}

func isEmptyReference(ref spreadsheet.Cell) bool {
	if ref.IsBlank() {
		return true
	}
	_, ok := emptyMarkers[strings.ToLower(strings.TrimSpace(ref.Value))]
	return ok
}
