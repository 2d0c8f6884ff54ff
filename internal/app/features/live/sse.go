package live

import (
	"net/http"
	"time"

	"github.com/dalemusser/investwest/internal/app/system/livesync"
	"github.com/dalemusser/waffle/pantry/sse"
	"go.uber.org/zap"
)

// heartbeat keeps proxies from closing idle streams.
var heartbeat = 25 * time.Second

// stream seeds a bridge, attaches it to feed and writes every list snapshot
// as an SSE "snapshot" event until the client disconnects or the feed ends.
// view filters or reshapes a snapshot for the caller before it is sent.
func stream[T any](w http.ResponseWriter, r *http.Request, log *zap.Logger, name string,
	feed livesync.Feed[T], seed []T, opts livesync.Options[T], view func([]T) []T) {

	out, err := sse.NewStream(w, r)
	if err != nil {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	defer out.Close()
	if view == nil {
		view = func(items []T) []T { return items }
	}
	snapshot := func(items []T) []T {
		items = view(items)
		if items == nil {
			items = []T{}
		}
		return items
	}

	// Only the latest snapshot matters; a slow client skips intermediate ones.
	updates := make(chan []T, 1)
	opts.OnChange = func(items []T) {
		select {
		case <-updates:
		default:
		}
		updates <- items
	}
	opts.Log = log

	b := livesync.NewBridge(feed, opts)
	b.Seed(seed)
	if err := b.Start(r.Context()); err != nil {
		log.Warn("live stream not started", zap.String("stream", name), zap.Error(err))
		http.Error(w, "live updates unavailable", http.StatusServiceUnavailable)
		return
	}
	defer b.Stop()
	done := b.Done()
	if done == nil {
		// The feed ended before the first snapshot.
		return
	}

	if err := out.SendJSON("snapshot", snapshot(b.Snapshot())); err != nil {
		return
	}

	tick := time.NewTicker(heartbeat)
	defer tick.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-out.Done():
			return
		case <-done:
			log.Debug("live feed ended", zap.String("stream", name))
			return
		case items := <-updates:
			if err := out.SendJSON("snapshot", snapshot(items)); err != nil {
				return
			}
		case <-tick.C:
			if err := out.SendComment("ping"); err != nil {
				return
			}
		}
	}
}
