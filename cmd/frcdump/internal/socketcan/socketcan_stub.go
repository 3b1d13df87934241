//go:build !linux

// Package socketcan captures live traffic from a Linux SocketCAN
// interface and presents it as the decoder's sub-event stream.
package socketcan

import (
	"context"
	"errors"

	"github.com/drsandytoes/saleae-frc-can/frccan"
)

var errUnsupported = errors.New("socketcan: live capture requires linux")

// Source is unavailable on this platform.
type Source struct{}

// Open always fails; SocketCAN only exists on linux.
func Open(iface string) (*Source, error) {
	return nil, errUnsupported
}

func (s *Source) Next(ctx context.Context) (frccan.Event, error) {
	return frccan.Event{}, errUnsupported
}

func (s *Source) Close() error {
	return nil
}
