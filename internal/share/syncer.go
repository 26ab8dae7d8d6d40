// Package share manages the lifecycle of shared bills: signing and
// encrypting bill snapshots, publishing them to the relay, keeping the
// published copy in step with local edits, and importing other people's
// shares from links. The relay only ever stores ciphertext; the session
// key travels in the share link's URL fragment.
package share

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/centerionware/smartbillsplitter-sub003/internal/crypto"
	"github.com/centerionware/smartbillsplitter-sub003/internal/models"
	"github.com/centerionware/smartbillsplitter-sub003/internal/storage"
)

// Syncer drives the share state machine for locally owned bills. A bill
// moves unshared → live on first publish, live → expired when the relay
// loses the session, live → error when a publish fails, and back to live
// through reactivation. The transient generating phase is announced via
// the notifier but never persisted.
//
// Local mutations never wait on the relay: callers commit their edit,
// enqueue the bill id on the UpdateQueue, and return. The queue worker
// calls SyncBill afterwards.
type Syncer struct {
	store    storage.Store
	client   *Client
	notifier Notifier
	baseURL  string

	queue *UpdateQueue

	mu      sync.Mutex
	signing *crypto.SigningKey
}

// NewSyncer returns a syncer publishing through client and building share
// links on shareBaseURL. A nil notifier falls back to logging.
func NewSyncer(store storage.Store, client *Client, notifier Notifier, shareBaseURL string) *Syncer {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Syncer{store: store, client: client, notifier: notifier, baseURL: shareBaseURL}
}

// AttachQueue lets the syncer re-queue bills it mutates as a side effect,
// such as eviction victims whose published snapshots should shrink too.
func (s *Syncer) AttachQueue(q *UpdateQueue) {
	s.queue = q
}

// ShareBill publishes the bill and returns its share URL. A bill shared
// for the first time gets a fresh session key and relay id; a bill that
// already carries share credentials is re-published under the same id so
// links already handed out keep working. This is also the explicit
// "Reshare" action for expired and errored bills.
func (s *Syncer) ShareBill(ctx context.Context, billID string) (string, error) {
	bill, err := s.store.GetBill(ctx, billID)
	if err != nil {
		return "", err
	}
	s.notifier.ShareGenerating(bill)
	if err := s.makeSpaceForImage(ctx, bill); err != nil {
		return "", err
	}

	started := time.Now()
	url, err := s.publish(ctx, bill)
	syncDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		syncTotal.WithLabelValues("failed").Inc()
		s.markError(ctx, bill, err)
		return "", err
	}
	syncTotal.WithLabelValues("published").Inc()
	return url, nil
}

// SyncBill pushes the bill's current content to the relay: probe the
// session, update it when it still exists, reactivate it under the same id
// when the relay lost it. Bills that are not shared, or were deleted since
// they were queued, are skipped without error.
func (s *Syncer) SyncBill(ctx context.Context, billID string) error {
	bill, err := s.store.GetBill(ctx, billID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !bill.IsShared() {
		return nil
	}
	s.notifier.ShareGenerating(bill)

	started := time.Now()
	err = s.pushUpdate(ctx, bill)
	syncDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		syncTotal.WithLabelValues("failed").Inc()
		s.markError(ctx, bill, err)
		return err
	}
	syncTotal.WithLabelValues("updated").Inc()
	return nil
}

// SyncBills pushes several bills sequentially, so relay load stays bounded
// and failures attribute to one bill. A failure on one does not block the
// rest; the first failure is returned.
func (s *Syncer) SyncBills(ctx context.Context, billIDs []string) error {
	var firstErr error
	for _, id := range billIDs {
		if err := s.SyncBill(ctx, id); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			slog.Error("Failed to sync shared bill", "billId", id, "error", err)
		}
	}
	return firstErr
}

// RefreshStatuses probes the relay for every shared bill and records which
// sessions lapsed. It only moves statuses: live bills whose session is
// gone become expired, expired bills whose session is back become live.
// Bills in the error state keep their retry affordance untouched, since a
// failed publish needs a re-push, not a probe.
func (s *Syncer) RefreshStatuses(ctx context.Context) error {
	bills, err := s.store.ListBills(ctx, storage.BillFilter{SharedOnly: true})
	if err != nil {
		return fmt.Errorf("failed to list shared bills: %w", err)
	}
	var firstErr error
	for i := range bills {
		bill := &bills[i]
		if bill.ShareStatus == models.ShareError {
			continue
		}
		exists, err := s.client.ShareExists(ctx, bill.ShareInfo.ShareID)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			slog.Warn("Share status probe failed", "billId", bill.ID, "error", err)
			continue
		}
		status := models.ShareLive
		reason := ""
		if !exists {
			status = models.ShareExpired
			reason = "the relay no longer has this share"
		}
		if bill.ShareStatus == status {
			continue
		}
		bill.ShareStatus = status
		if err := s.store.UpdateBill(ctx, bill); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.notifier.ShareStatusChanged(bill, status, reason)
	}
	return firstErr
}

// StopSharing detaches the bill from its relay session locally. The relay
// copy ages out on its own TTL; recipients keep whatever they already
// imported.
func (s *Syncer) StopSharing(ctx context.Context, billID string) error {
	bill, err := s.store.GetBill(ctx, billID)
	if err != nil {
		return err
	}
	if !bill.IsShared() && bill.ShareStatus == "" {
		return nil
	}
	bill.ShareInfo = nil
	bill.ShareStatus = ""
	bill.ShareHistory = nil
	if err := s.store.UpdateBill(ctx, bill); err != nil {
		return fmt.Errorf("failed to detach share: %w", err)
	}
	return nil
}

// ShareURL returns the share link for a bill that is already shared.
func (s *Syncer) ShareURL(ctx context.Context, billID string) (string, error) {
	bill, err := s.store.GetBill(ctx, billID)
	if err != nil {
		return "", err
	}
	if !bill.IsShared() {
		return "", fmt.Errorf("bill %s is not shared", billID)
	}
	return BuildShareURL(s.baseURL, bill.ShareInfo.ShareID, bill.ShareInfo.KeyB64), nil
}

func (s *Syncer) publish(ctx context.Context, bill *models.Bill) (string, error) {
	if !bill.IsShared() {
		return s.createShare(ctx, bill)
	}
	return s.republish(ctx, bill)
}

// createShare runs the first-time flow: fresh session key, POST to the
// relay, persist the credentials, go live.
func (s *Syncer) createShare(ctx context.Context, bill *models.Bill) (string, error) {
	key, err := crypto.NewSessionKey()
	if err != nil {
		return "", err
	}
	blob, err := s.encryptSnapshot(ctx, bill, key)
	if err != nil {
		return "", err
	}
	session, err := s.client.CreateShare(ctx, blob)
	if err != nil {
		return "", err
	}
	exported, err := key.ExportKey()
	if err != nil {
		return "", err
	}
	bill.ShareInfo = &models.ShareInfo{
		ShareID:     session.ShareID,
		UpdateToken: session.UpdateToken,
		KeyB64:      exported,
	}
	return s.goLive(ctx, bill)
}

// republish pushes the current content under the existing share id,
// reactivating the relay session if it lapsed. When the relay refuses the
// stored token the id cannot be recovered, so a brand new share is minted;
// the old link was already dead at that point.
func (s *Syncer) republish(ctx context.Context, bill *models.Bill) (string, error) {
	key, err := crypto.ImportKey(bill.ShareInfo.KeyB64)
	if err != nil {
		return "", err
	}
	blob, err := s.encryptSnapshot(ctx, bill, key)
	if err != nil {
		return "", err
	}
	session, err := s.client.ReactivateShare(ctx, bill.ShareInfo.ShareID, bill.ShareInfo.UpdateToken, blob)
	if errors.Is(err, ErrUnauthorized) {
		slog.Warn("Relay refused stored update token, minting a new share", "billId", bill.ID, "shareId", bill.ShareInfo.ShareID)
		bill.ShareInfo = nil
		return s.createShare(ctx, bill)
	}
	if err != nil {
		return "", err
	}
	bill.ShareInfo.UpdateToken = session.UpdateToken
	return s.goLive(ctx, bill)
}

// pushUpdate implements the content update path for a bill known to be
// shared.
func (s *Syncer) pushUpdate(ctx context.Context, bill *models.Bill) error {
	exists, err := s.client.ShareExists(ctx, bill.ShareInfo.ShareID)
	if err != nil {
		return err
	}
	if !exists {
		// The relay lost or expired the session. Reactivate under the
		// same id so links already sent keep working.
		_, err := s.republish(ctx, bill)
		return err
	}

	key, err := crypto.ImportKey(bill.ShareInfo.KeyB64)
	if err != nil {
		return err
	}
	blob, err := s.encryptSnapshot(ctx, bill, key)
	if err != nil {
		return err
	}
	session, err := s.client.UpdateShare(ctx, bill.ShareInfo.ShareID, bill.ShareInfo.UpdateToken, blob)
	if errors.Is(err, ErrShareNotFound) || errors.Is(err, ErrShareExpired) {
		// Lost between the probe and the update.
		_, rerr := s.republish(ctx, bill)
		return rerr
	}
	if err != nil {
		return err
	}
	bill.ShareInfo.UpdateToken = session.UpdateToken
	_, err = s.goLive(ctx, bill)
	return err
}

// goLive persists the bill's share credentials and live status and returns
// the share URL.
func (s *Syncer) goLive(ctx context.Context, bill *models.Bill) (string, error) {
	bill.ShareStatus = models.ShareLive
	if err := s.store.UpdateBill(ctx, bill); err != nil {
		return "", fmt.Errorf("failed to persist share state: %w", err)
	}
	s.notifier.ShareStatusChanged(bill, models.ShareLive, "")
	return BuildShareURL(s.baseURL, bill.ShareInfo.ShareID, bill.ShareInfo.KeyB64), nil
}

// markError records a failed publish so the UI can offer a retry. Crypto
// and relay failures land here alike; the reason carries the distinction.
func (s *Syncer) markError(ctx context.Context, bill *models.Bill, cause error) {
	bill.ShareStatus = models.ShareError
	if err := s.store.UpdateBill(ctx, bill); err != nil {
		slog.Error("Failed to persist share error state", "billId", bill.ID, "error", err)
	}
	s.notifier.ShareStatusChanged(bill, models.ShareError, cause.Error())
}

// encryptSnapshot produces the relay blob for the bill's current content
// using the given session key.
func (s *Syncer) encryptSnapshot(ctx context.Context, bill *models.Bill, key *crypto.SessionKey) (string, error) {
	signing, err := s.ensureSigningKey(ctx)
	if err != nil {
		return "", err
	}
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load settings: %w", err)
	}
	creator := settings.DisplayName()
	payload, err := BuildPayload(BuildSnapshot(bill, creator), creator, signing)
	if err != nil {
		return "", err
	}
	return EncryptPayload(payload, key)
}

// ensureSigningKey loads the installation's signing key, generating and
// persisting it on first use.
func (s *Syncer) ensureSigningKey(ctx context.Context) (*crypto.SigningKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signing != nil {
		return s.signing, nil
	}

	seed, err := s.store.LoadSigningKeySeed(ctx)
	switch {
	case err == nil:
		key, kerr := crypto.SigningKeyFromSeed(seed)
		if kerr != nil {
			return nil, fmt.Errorf("%w: %v", crypto.ErrNoSigningKey, kerr)
		}
		s.signing = key
	case errors.Is(err, storage.ErrNotFound):
		key, kerr := crypto.GenerateSigningKey()
		if kerr != nil {
			return nil, fmt.Errorf("%w: %v", crypto.ErrNoSigningKey, kerr)
		}
		if err := s.store.SaveSigningKeySeed(ctx, key.Seed()); err != nil {
			return nil, fmt.Errorf("failed to persist signing key: %w", err)
		}
		s.signing = key
	default:
		return nil, fmt.Errorf("%w: %v", crypto.ErrNoSigningKey, err)
	}
	return s.signing, nil
}
