package share

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/centerionware/smartbillsplitter-sub003/internal/cache"
	"github.com/centerionware/smartbillsplitter-sub003/internal/models"
	"github.com/centerionware/smartbillsplitter-sub003/internal/storage"
)

// Channels a share link can be delivered through.
const (
	ChannelSMS       = "sms"
	ChannelEmail     = "email"
	ChannelShare     = "share"
	ChannelClipboard = "clipboard"
)

// ErrCancelled marks a dispatch the user backed out of. It is not a
// failure: nothing is reported and nothing is recorded.
var ErrCancelled = errors.New("dispatch cancelled")

// linkTTL bounds how long a prepared link is reused before it is rebuilt.
const linkTTL = 30 * time.Minute

type linkKey struct {
	billID        string
	participantID string
}

// DispatchResult carries what a caller needs to deliver a link through the
// chosen channel.
type DispatchResult struct {
	// ShareURL is the canonical link for the bill.
	ShareURL string

	// DeepLink is the channel URI (sms:, mailto:) for channels that have
	// one; empty for share-sheet and clipboard dispatches.
	DeepLink string

	// Message is the prefilled text accompanying the link.
	Message string

	Channel string
}

// Dispatcher fans a bill's share link out to individual participants. Links
// are prepared per participant and cached for a while, so retrying a failed
// send is cheap and hands out the same URL. Every dispatch is recorded in
// the bill's share history for "already sent" feedback; history never gates
// re-sending.
type Dispatcher struct {
	syncer   *Syncer
	store    storage.Store
	notifier Notifier
	links    *cache.TTLCache[linkKey, string]
}

// NewDispatcher returns a dispatcher using the syncer for link generation.
// A nil notifier falls back to logging.
func NewDispatcher(syncer *Syncer, store storage.Store, notifier Notifier) *Dispatcher {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Dispatcher{
		syncer:   syncer,
		store:    store,
		notifier: notifier,
		links:    cache.New[linkKey, string](linkTTL),
	}
}

// Dispatch prepares the share link for one participant over one channel
// and records the attempt. A bill that is not yet live is published first,
// so dispatching from an unshared or expired bill just works.
func (d *Dispatcher) Dispatch(ctx context.Context, billID, participantID, channel string) (*DispatchResult, error) {
	bill, err := d.store.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	participant := bill.FindParticipant(participantID)
	if participant == nil {
		return nil, fmt.Errorf("bill %s has no participant %s", billID, participantID)
	}

	link, err := d.shareLink(ctx, bill, participantID)
	if err != nil {
		d.notifier.DispatchFailed(bill, participant, channel, err)
		return nil, err
	}

	result := &DispatchResult{
		ShareURL: link,
		Message:  fmt.Sprintf("Here is the bill %q: %s", bill.Description, link),
		Channel:  channel,
	}
	switch channel {
	case ChannelSMS:
		if participant.Phone == "" {
			err := fmt.Errorf("participant %s has no phone number", participant.Name)
			d.notifier.DispatchFailed(bill, participant, channel, err)
			return nil, err
		}
		result.DeepLink = fmt.Sprintf("sms:%s?body=%s", participant.Phone, url.QueryEscape(result.Message))
	case ChannelEmail:
		if participant.Email == "" {
			err := fmt.Errorf("participant %s has no email address", participant.Name)
			d.notifier.DispatchFailed(bill, participant, channel, err)
			return nil, err
		}
		result.DeepLink = fmt.Sprintf("mailto:%s?subject=%s&body=%s",
			participant.Email, url.QueryEscape("Bill: "+bill.Description), url.QueryEscape(result.Message))
	case ChannelShare, ChannelClipboard:
	default:
		return nil, fmt.Errorf("unknown share channel %q", channel)
	}

	// The publish path may have rewritten share state; reload before
	// recording history so those fields are not clobbered.
	bill, err = d.store.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if bill.ShareHistory == nil {
		bill.ShareHistory = make(models.ShareHistory)
	}
	bill.ShareHistory.Record(participantID, channel, time.Now().Unix())
	if err := d.store.UpdateBill(ctx, bill); err != nil {
		return nil, fmt.Errorf("failed to record share history: %w", err)
	}
	dispatchTotal.WithLabelValues(channel).Inc()
	return result, nil
}

// ReportFailure surfaces a channel failure that happened after dispatch
// preparation, such as the clipboard refusing the write. A user backing
// out (ErrCancelled) is not reported.
func (d *Dispatcher) ReportFailure(ctx context.Context, billID, participantID, channel string, cause error) {
	if cause == nil || errors.Is(cause, ErrCancelled) {
		return
	}
	bill, err := d.store.GetBill(ctx, billID)
	if err != nil {
		slog.Warn("Cannot attribute dispatch failure", "billId", billID, "error", err)
		return
	}
	participant := bill.FindParticipant(participantID)
	if participant == nil {
		return
	}
	d.notifier.DispatchFailed(bill, participant, channel, cause)
}

// Forget drops the cached links for a bill, forcing the next dispatch to
// rebuild them. Called when a bill stops being shared or its credentials
// change.
func (d *Dispatcher) Forget(billID string) {
	d.links.DeleteFunc(func(k linkKey) bool { return k.billID == billID })
}

// shareLink returns the participant's cached link or prepares a fresh one,
// publishing the bill when it is not live yet.
func (d *Dispatcher) shareLink(ctx context.Context, bill *models.Bill, participantID string) (string, error) {
	key := linkKey{billID: bill.ID, participantID: participantID}
	if link, ok := d.links.Get(key); ok {
		return link, nil
	}
	var link string
	var err error
	if bill.IsShared() && bill.ShareStatus == models.ShareLive {
		link, err = d.syncer.ShareURL(ctx, bill.ID)
	} else {
		link, err = d.syncer.ShareBill(ctx, bill.ID)
	}
	if err != nil {
		return "", err
	}
	d.links.Set(key, link)
	return link, nil
}
