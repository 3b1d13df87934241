//go:build linux

// Package socketcan captures live traffic from a Linux SocketCAN
// interface and presents it as the decoder's sub-event stream.
package socketcan

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/drsandytoes/saleae-frc-can/frccan"
)

// frameSize is the classical can_frame wire size.
const frameSize = 16

// canErrMask requests every error class from the raw socket
// (CAN_ERR_MASK in linux/can/error.h).
const canErrMask = 0x1FFFFFFF

// Source reads classical can_frame records from a raw AF_CAN socket. The
// kernel only hands over whole, acknowledged frames, so the sub-events are
// synthesized per frame like candump playback; error frames become Error
// events. Timestamps count seconds since the capture opened.
type Source struct {
	file  *os.File
	start time.Time
	queue []frccan.Event
	buf   [frameSize]byte
}

// Open binds a raw CAN socket to the named interface (e.g. "can0").
func Open(iface string) (*Source, error) {
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("socketcan: socket: %w", err)
	}

	// Ask the kernel to deliver error frames as well; they surface as
	// Error records downstream.
	if err := unix.SetsockoptInt(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_ERR_FILTER, canErrMask); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("socketcan: enable error frames: %w", err)
	}

	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("socketcan: interface %q: %w", iface, err)
	}

	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: ifi.Index}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("socketcan: bind %q: %w", iface, err)
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("socketcan: set nonblocking: %w", err)
	}

	return &Source{
		file:  os.NewFile(uintptr(fd), "socketcan:"+iface),
		start: time.Now(),
	}, nil
}

// Next returns the next sub-event, blocking until bus traffic arrives or
// ctx is cancelled.
func (s *Source) Next(ctx context.Context) (frccan.Event, error) {
	for len(s.queue) == 0 {
		if err := ctx.Err(); err != nil {
			return frccan.Event{}, err
		}

		// Short read deadline so cancellation is noticed promptly.
		_ = s.file.SetReadDeadline(time.Now().Add(time.Second))
		n, err := s.file.Read(s.buf[:])
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			return frccan.Event{}, fmt.Errorf("socketcan: read: %w", err)
		}
		if n < frameSize {
			return frccan.Event{}, fmt.Errorf("socketcan: short frame: %d bytes", n)
		}
		s.queue = s.expandFrame(s.buf[:frameSize])
	}

	ev := s.queue[0]
	s.queue = s.queue[1:]
	return ev, nil
}

func (s *Source) Close() error {
	return s.file.Close()
}

// expandFrame turns one can_frame into the sub-event sequence. Layout per
// linux/can.h: little-endian can_id with EFF/RTR/ERR flags, then the DLC,
// three padding bytes and up to eight data bytes.
func (s *Source) expandFrame(raw []byte) []frccan.Event {
	ts := time.Since(s.start).Seconds()

	id := binary.LittleEndian.Uint32(raw[0:4])
	if id&unix.CAN_ERR_FLAG != 0 {
		return []frccan.Event{{Kind: frccan.EventError, Start: ts, End: ts}}
	}

	extended := id&unix.CAN_EFF_FLAG != 0
	remote := id&unix.CAN_RTR_FLAG != 0
	if extended {
		id &= unix.CAN_EFF_MASK
	} else {
		id &= unix.CAN_SFF_MASK
	}

	dlc := int(raw[4])
	if dlc > 8 {
		dlc = 8
	}

	events := make([]frccan.Event, 0, dlc+3)
	events = append(events, frccan.Event{
		Kind:       frccan.EventIdentifier,
		Identifier: id,
		Extended:   extended,
		Remote:     remote,
		Start:      ts,
		End:        ts,
	})
	events = append(events, frccan.Event{
		Kind:          frccan.EventControl,
		ExpectedBytes: dlc,
		Start:         ts,
		End:           ts,
	})
	if !remote {
		for _, b := range raw[8 : 8+dlc] {
			events = append(events, frccan.Event{Kind: frccan.EventData, Byte: b, Start: ts, End: ts})
		}
	}
	events = append(events, frccan.Event{Kind: frccan.EventAck, Ack: true, Start: ts, End: ts})
	return events
}
