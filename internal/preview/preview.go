// Package preview converts admitted images into displayable data URIs.
// Resolution is asynchronous and delivered back by item id, never by
// queue position.
package preview

import (
	"encoding/base64"
	"sync"

	"go.uber.org/zap"

	"github.com/example/ai-detect/internal/admission"
)

// DataURI encodes the item content as a base64 data URI suitable for
// direct display.
func DataURI(item admission.Item) string {
	mediaType := item.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(item.Data)
}

// Loader resolves previews in the background and hands them to a sink
// keyed by the owning entry's id.
type Loader struct {
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewLoader constructs a background preview loader.
func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{logger: logger.Named("preview")}
}

// Schedule encodes the item asynchronously and calls deliver with the
// pre-assigned id once the encoded form is ready. The caller must
// tolerate a window where the preview is still absent.
func (l *Loader) Schedule(id string, item admission.Item, deliver func(id, dataURI string)) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		uri := DataURI(item)
		deliver(id, uri)
		l.logger.Debug("preview resolved", zap.String("item_id", id), zap.Int("encoded_len", len(uri)))
	}()
}

// Wait blocks until every scheduled preview has been delivered.
func (l *Loader) Wait() {
	l.wg.Wait()
}
