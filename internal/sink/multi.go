package sink

import (
	"github.com/genricoloni/musicbar/internal/domain"
	"go.uber.org/multierr"
)

// Multi fans every publication out to all sinks. A failing sink does not
// stop the others; their errors are combined.
type Multi []domain.Sink

// PublishCover implements domain.Sink
func (m Multi) PublishCover(url string) error {
	var err error
	for _, s := range m {
		err = multierr.Append(err, s.PublishCover(url))
	}
	return err
}

// PublishAccent implements domain.Sink
func (m Multi) PublishAccent(c *domain.Color) error {
	var err error
	for _, s := range m {
		err = multierr.Append(err, s.PublishAccent(c))
	}
	return err
}
