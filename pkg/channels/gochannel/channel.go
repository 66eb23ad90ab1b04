// Package gochannel provides the in-process event transport used by single-binary deployments and tests.
package gochannel

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// DefaultBuffer is the number of contact events queued per subscriber before Publish blocks.
// It absorbs an ingest burst on the API while the embedded worker runs workflows.
const DefaultBuffer = 1000

type config struct {
	buffer int
}

// Option configures the in-process channel.
type Option func(*config)

// WithBuffer sets the per-subscriber queue size. Values below one are ignored.
func WithBuffer(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.buffer = size
		}
	}
}

// CreateChannel returns one GoChannel acting as both publisher and subscriber.
// Messages published while no worker is subscribed are dropped; the durable path is Kafka.
func CreateChannel(logger watermill.LoggerAdapter, opts ...Option) (*gochannel.GoChannel, *gochannel.GoChannel, error) {
	cfg := config{buffer: DefaultBuffer}
	for _, opt := range opts {
		opt(&cfg)
	}

	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: int64(cfg.buffer),
		},
		logger,
	)

	return pubSub, pubSub, nil
}
