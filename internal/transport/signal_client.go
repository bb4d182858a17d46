package transport

import (
	"log/slog"
	"net"
	"time"

	"mirrorcast/internal/wire"
)

// signalClient is the single long-lived TCP connection to the rendezvous
// shared by every receiver on this peer. It decodes one Signal at a time
// from an accumulator buffer and fans each out via Transport.dispatch.
//
// Unlike the design it's grounded on, which dies silently if the
// connection drops, this client reconnects with capped exponential
// backoff; each fresh connection naturally replays the registry snapshot
// because the rendezvous always starts a new connection with one.
type signalClient struct {
	addr           string
	t              *Transport
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

func newSignalClient(addr string, t *Transport) *signalClient {
	return &signalClient{
		addr:           addr,
		t:              t,
		initialBackoff: 200 * time.Millisecond,
		maxBackoff:     10 * time.Second,
	}
}

func (c *signalClient) run() {
	backoff := c.initialBackoff
	for {
		connected, err := c.runOnce()
		if err != nil {
			slog.Warn("signal client connection ended", "addr", c.addr, "err", err)
		}
		if connected {
			backoff = c.initialBackoff // the connection was up; don't punish it for dying later
		}

		time.Sleep(backoff)
		backoff *= 2
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}
}

// runOnce dials, reports whether the dial itself succeeded (regardless of
// how the connection later ended), and runs the decode loop until error.
func (c *signalClient) runOnce() (connected bool, err error) {
	conn, err := net.Dial("tcp", c.addr)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	slog.Info("signal client connected", "addr", c.addr)

	var accum []byte
	buf := make([]byte, 4096)
	for {
		n, readErr := conn.Read(buf)
		if readErr != nil {
			return true, readErr
		}
		accum = append(accum, buf[:n]...)

		for {
			consumed, sig, ok := wire.DecodeSignal(accum)
			if consumed == 0 {
				break // incomplete frame; wait for more bytes
			}
			accum = accum[consumed:]
			if ok {
				c.t.dispatch(sig)
			}
			// A malformed-but-length-valid frame (ok=false, consumed>0) is
			// simply dropped; the loop continues past it.
		}
	}
}
