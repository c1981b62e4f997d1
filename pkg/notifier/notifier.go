// Package notifier formats feed items and delivers them to the channel.
package notifier

import (
	"context"
	"strings"

	"github.com/go-pkgz/lgr"
	"github.com/microcosm-cc/bluemonday"

	"github.com/feedgram/feedgram/pkg/dedup"
	"github.com/feedgram/feedgram/pkg/domain"
)

// telegram limits, in runes
const (
	captionLimit = 1024
	messageLimit = 4096
)

// Sender delivers formatted content to the channel
type Sender interface {
	SendMessage(channel, text string) error
	SendPhoto(channel, photoURL, caption string) error
}

// Notifier sends items to the channel and records them in the dedup store.
// Delivery is fire-and-forget: a failed send is logged and not retried.
type Notifier struct {
	sender   Sender
	store    dedup.Store
	channel  string
	sanitize *bluemonday.Policy
}

// New creates a notifier for the given channel
func New(sender Sender, store dedup.Store, channel string) *Notifier {
	return &Notifier{
		sender:   sender,
		store:    store,
		channel:  channel,
		sanitize: bluemonday.StrictPolicy(),
	}
}

// Deliver sends one item. The dedup store is re-checked first, so a
// double-queued item within the same cycle is sent at most once. The item
// is marked before the network call; a send failure leaves it marked and
// it won't be retried.
func (n *Notifier) Deliver(ctx context.Context, item domain.Item) {
	seen, err := n.store.Seen(ctx, item.GUID)
	if err != nil {
		lgr.Printf("[WARN] dedup check failed for %s: %v", item.GUID, err)
	}
	if seen {
		lgr.Printf("[DEBUG] already delivered: %s", item.Title)
		return
	}

	if err := n.store.Mark(ctx, item.GUID); err != nil {
		lgr.Printf("[WARN] failed to mark item %s: %v", item.GUID, err)
	}

	if item.HasImage() {
		err = n.sender.SendPhoto(n.channel, item.ImageURL, n.caption(item, captionLimit))
	} else {
		err = n.sender.SendMessage(n.channel, n.caption(item, messageLimit))
	}
	if err != nil {
		lgr.Printf("[WARN] failed to send %q: %v", item.Title, err)
		return
	}

	lgr.Printf("[INFO] delivered: %s", item.Title)
}

// caption builds "{title}\n\n{summary}" with feed HTML stripped from the
// summary and the whole thing cut to the platform limit.
func (n *Notifier) caption(item domain.Item, limit int) string {
	summary := strings.TrimSpace(n.sanitize.Sanitize(item.Summary))
	text := item.Title
	if summary != "" {
		text += "\n\n" + summary
	}
	return truncate(text, limit)
}

// truncate cuts s to at most limit runes
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
