// Package admission defines the admitted image item and the policy that
// gates files before they enter any analysis workflow.
package admission

import (
	"fmt"
	"strings"
)

// MaxUploadSize is the default admission ceiling: 10 MiB exactly.
const MaxUploadSize = 10 * 1024 * 1024

// Rejection reasons surfaced to the user.
const (
	ReasonNotImage = "not an image"
	ReasonTooLarge = "too large"
)

// Item is a user-supplied file admitted into a workflow. Immutable once
// admitted; ownership belongs to the flow that admitted it.
type Item struct {
	Name      string
	Data      []byte
	MediaType string
}

// Size returns the byte size of the item content.
func (i Item) Size() int64 {
	return int64(len(i.Data))
}

// ValidationError reports why a candidate file was refused admission.
// It never reaches the network and carries no side effects.
type ValidationError struct {
	FileName string
	Reason   string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.FileName == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.FileName, e.Reason)
}

// Policy holds the admission limits applied to candidate files.
type Policy struct {
	MaxSize int64
}

// DefaultPolicy returns the standard image admission policy.
func DefaultPolicy() Policy {
	return Policy{MaxSize: MaxUploadSize}
}

// Validate admits a candidate only if its declared media type indicates
// an image and its size does not exceed the policy ceiling.
func (p Policy) Validate(item Item) error {
	if !strings.HasPrefix(item.MediaType, "image/") {
		return &ValidationError{FileName: item.Name, Reason: ReasonNotImage}
	}
	max := p.MaxSize
	if max <= 0 {
		max = MaxUploadSize
	}
	if item.Size() > max {
		return &ValidationError{FileName: item.Name, Reason: ReasonTooLarge}
	}
	return nil
}

// FilterAll applies Validate independently to each candidate and returns
// the admitted subset in selection order along with the rejections.
func (p Policy) FilterAll(candidates []Item) ([]Item, []*ValidationError) {
	admitted := make([]Item, 0, len(candidates))
	var rejected []*ValidationError
	for _, c := range candidates {
		if err := p.Validate(c); err != nil {
			var verr *ValidationError
			if ve, ok := err.(*ValidationError); ok {
				verr = ve
			} else {
				verr = &ValidationError{FileName: c.Name, Reason: err.Error()}
			}
			rejected = append(rejected, verr)
			continue
		}
		admitted = append(admitted, c)
	}
	return admitted, rejected
}

// Aggregate builds the single failure reported when an entire selection
// was rejected. It returns nil when there is nothing to report.
func Aggregate(rejected []*ValidationError) error {
	if len(rejected) == 0 {
		return nil
	}
	parts := make([]string, 0, len(rejected))
	for _, r := range rejected {
		parts = append(parts, r.Error())
	}
	return fmt.Errorf("no files admitted: %s", strings.Join(parts, "; "))
}
