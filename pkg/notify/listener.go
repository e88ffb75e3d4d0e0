package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Listener multiplexes PostgreSQL LISTEN/NOTIFY across many per-user
// channels over a single dedicated connection, reconnecting with backoff
// if the connection drops. Subscribe/Unsubscribe are serialized through
// cmdCh so concurrent callers never race on the underlying pgx.Conn.
type Listener struct {
	pool *pgxpool.Pool

	mu          sync.Mutex
	subscribers map[string]map[chan Event]struct{} // channel name -> set of subscriber chans
	generation  map[string]int                     // bumped on each Unsubscribe to void stale relistens

	cmdCh chan func(ctx context.Context, conn *pgx.Conn)
	done  chan struct{}
}

// NewListener creates a Listener backed by a dedicated connection drawn
// from pool. The pool must not be the application's pooled query
// connections, since a LISTEN connection is held open indefinitely.
func NewListener(pool *pgxpool.Pool) *Listener {
	return &Listener{
		pool:        pool,
		subscribers: make(map[string]map[chan Event]struct{}),
		generation:  make(map[string]int),
		cmdCh:       make(chan func(ctx context.Context, conn *pgx.Conn), 16),
	}
}

// Start launches the reconnect-with-backoff receive loop, which runs
// until ctx is cancelled. Stop waits for it to exit.
func (l *Listener) Start(ctx context.Context) {
	l.done = make(chan struct{})
	go l.run(ctx)
}

// Stop waits for the receive loop to exit.
func (l *Listener) Stop() {
	if l.done != nil {
		<-l.done
	}
}

// Subscribe registers a channel to receive Events for recipientUserID.
// The returned func unsubscribes and must be called exactly once.
func (l *Listener) Subscribe(ctx context.Context, recipientUserID string) (<-chan Event, func(), error) {
	channel := channelForUser(recipientUserID)
	ch := make(chan Event, 8)

	l.mu.Lock()
	first := len(l.subscribers[channel]) == 0
	if l.subscribers[channel] == nil {
		l.subscribers[channel] = make(map[chan Event]struct{})
	}
	l.subscribers[channel][ch] = struct{}{}
	l.mu.Unlock()

	if first {
		l.enqueue(func(ctx context.Context, conn *pgx.Conn) {
			if _, err := conn.Exec(ctx, `LISTEN `+quoteIdent(channel)); err != nil {
				slog.Error("notify: LISTEN failed", "channel", channel, "error", err)
			}
		})
	}

	unsubscribe := func() {
		l.mu.Lock()
		delete(l.subscribers[channel], ch)
		empty := len(l.subscribers[channel]) == 0
		if empty {
			delete(l.subscribers, channel)
			l.generation[channel]++
		}
		l.mu.Unlock()
		close(ch)

		if empty {
			gen := l.generation[channel]
			l.enqueue(func(ctx context.Context, conn *pgx.Conn) {
				l.mu.Lock()
				stillEmpty := len(l.subscribers[channel]) == 0 && l.generation[channel] == gen
				l.mu.Unlock()
				if !stillEmpty {
					return // a new subscriber re-listened before this UNLISTEN ran
				}
				if _, err := conn.Exec(ctx, `UNLISTEN `+quoteIdent(channel)); err != nil {
					slog.Error("notify: UNLISTEN failed", "channel", channel, "error", err)
				}
			})
		}
	}

	return ch, unsubscribe, nil
}

func (l *Listener) enqueue(cmd func(ctx context.Context, conn *pgx.Conn)) {
	select {
	case l.cmdCh <- cmd:
	default:
		slog.Warn("notify: command queue full, dropping LISTEN/UNLISTEN request")
	}
}

func (l *Listener) run(ctx context.Context) {
	defer close(l.done)

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, err := l.pool.Acquire(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("notify: acquire listen connection failed", "error", err)
			time.Sleep(backoff)
			backoff = minDuration(backoff*2, maxBackoff)
			continue
		}
		backoff = time.Second

		l.relistenAll(ctx, conn.Conn())
		l.receiveLoop(ctx, conn.Conn())
		conn.Release()
	}
}

// relistenAll reissues LISTEN for every channel with active subscribers,
// needed after a reconnect since a fresh connection starts with none.
func (l *Listener) relistenAll(ctx context.Context, conn *pgx.Conn) {
	l.mu.Lock()
	channels := make([]string, 0, len(l.subscribers))
	for ch := range l.subscribers {
		channels = append(channels, ch)
	}
	l.mu.Unlock()

	for _, ch := range channels {
		if _, err := conn.Exec(ctx, `LISTEN `+quoteIdent(ch)); err != nil {
			slog.Error("notify: relisten failed", "channel", ch, "error", err)
		}
	}
}

func (l *Listener) receiveLoop(ctx context.Context, conn *pgx.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-l.cmdCh:
			cmd(ctx, conn)
			continue
		default:
		}

		waitCtx, cancel := context.WithTimeout(ctx, time.Second)
		notification, err := conn.WaitForNotification(waitCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if isTimeout(err) {
				continue
			}
			slog.Error("notify: connection lost, reconnecting", "error", err)
			return
		}

		var ev Event
		if err := json.Unmarshal([]byte(notification.Payload), &ev); err != nil {
			slog.Error("notify: malformed payload", "channel", notification.Channel, "error", err)
			continue
		}

		l.mu.Lock()
		subs := make([]chan Event, 0, len(l.subscribers[notification.Channel]))
		for ch := range l.subscribers[notification.Channel] {
			subs = append(subs, ch)
		}
		l.mu.Unlock()

		for _, ch := range subs {
			select {
			case ch <- ev:
			default:
				slog.Warn("notify: subscriber channel full, dropping event", "channel", notification.Channel)
			}
		}
	}
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	te, ok := err.(timeouter)
	return ok && te.Timeout()
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
