// Package detector submits clips to an external multimodal vision model and
// parses its response into detection.Result values.
package detector

import (
	"context"
	"time"

	"github.com/danztee/cctv-eventd/pkg/config"
	"github.com/danztee/cctv-eventd/pkg/detection"
)

// enqueueTimeout bounds how long Classify will wait to push one result onto
// the caller's detection queue before dropping it.
const enqueueTimeout = 1 * time.Second

// Adapter submits one clip + prompt to the external model and pushes zero
// or more parsed detections onto out. It holds no state between calls;
// modelIdentifier is supplied per call since it comes from the run's
// configuration, not the adapter's construction.
//
// Classify never blocks indefinitely on out: a full queue after
// enqueueTimeout causes that result to be dropped and logged. A transient
// adapter/network failure is returned as err; the caller still considers
// the clip consumed and does not retry.
type Adapter interface {
	Classify(ctx context.Context, clipPath, modelIdentifier string, events []config.EventDefinition, contextText string, out chan<- detection.Result) error
}
