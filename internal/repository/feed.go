package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"food-rescue-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// DonationChangesChannel is the NOTIFY channel the donations trigger publishes to.
const DonationChangesChannel = "donation_changes"

const (
	feedBufferSize     = 64
	feedInitialBackoff = 500 * time.Millisecond
	feedMaxBackoff     = 30 * time.Second
)

// donationReader loads the current row for a notified change.
type donationReader interface {
	GetByID(ctx context.Context, id string) (*models.Donation, error)
}

// DonationChange is the payload the donations trigger publishes.
type DonationChange struct {
	Op models.EventOp `json:"op"`
	ID string         `json:"id"`
}

// DonationFeed streams donation changes published by the database trigger.
type DonationFeed struct {
	db        *pgxpool.Pool
	donations donationReader
}

// NewDonationFeed creates a new donation change feed. Inserted and updated
// rows are read back through donations.
func NewDonationFeed(db *pgxpool.Pool, donations donationReader) *DonationFeed {
	return &DonationFeed{db: db, donations: donations}
}

// Subscribe starts listening for donation changes. The returned channel is
// closed when ctx is cancelled. After a lost connection the feed reconnects
// and emits a resync event, since notifications sent in between are gone.
func (f *DonationFeed) Subscribe(ctx context.Context) (<-chan models.DonationEvent, error) {
	conn, err := f.db.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection for feed: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+DonationChangesChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen on %s: %w", DonationChangesChannel, err)
	}

	events := make(chan models.DonationEvent, feedBufferSize)
	go func() {
		defer close(events)
		backoff := feedInitialBackoff
		for {
			err := f.listen(ctx, conn, events)
			conn.Release()
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Dur("retry_in", backoff).Msg("Donation feed connection lost")

			for {
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff):
				}
				backoff = min(backoff*2, feedMaxBackoff)

				conn, err = f.db.Acquire(ctx)
				if err != nil {
					log.Warn().Err(err).Msg("Failed to reacquire feed connection")
					continue
				}
				if _, err = conn.Exec(ctx, "LISTEN "+DonationChangesChannel); err != nil {
					conn.Release()
					log.Warn().Err(err).Msg("Failed to resume listening for donation changes")
					continue
				}
				break
			}

			backoff = feedInitialBackoff
			log.Info().Msg("Donation feed reconnected")
			select {
			case events <- models.DonationEvent{Op: models.EventResync}:
			case <-ctx.Done():
				conn.Release()
				return
			}
		}
	}()

	return events, nil
}

func (f *DonationFeed) listen(ctx context.Context, conn *pgxpool.Conn, events chan<- models.DonationEvent) error {
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		change, err := DecodeDonationChange([]byte(n.Payload))
		if err != nil {
			log.Error().Err(err).Str("channel", n.Channel).Msg("Dropping malformed donation notification")
			continue
		}
		event, ok, err := f.resolve(ctx, change)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		select {
		case events <- event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// resolve turns a change into an event carrying the current row. A row
// deleted before it could be read is skipped; its DELETE follows.
func (f *DonationFeed) resolve(ctx context.Context, change DonationChange) (models.DonationEvent, bool, error) {
	if change.Op == models.EventDelete {
		return models.DonationEvent{Op: change.Op, Old: &models.Donation{ID: change.ID}}, true, nil
	}

	d, err := f.donations.GetByID(ctx, change.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Debug().Str("donation_id", change.ID).Msg("Donation gone before change was read")
			return models.DonationEvent{}, false, nil
		}
		return models.DonationEvent{}, false, fmt.Errorf("failed to read changed donation: %w", err)
	}
	return models.DonationEvent{Op: change.Op, Record: d}, true, nil
}

// DecodeDonationChange parses a notification payload produced by the
// donations trigger.
func DecodeDonationChange(payload []byte) (DonationChange, error) {
	var change DonationChange
	if err := json.Unmarshal(payload, &change); err != nil {
		return DonationChange{}, fmt.Errorf("failed to decode donation change: %w", err)
	}

	switch change.Op {
	case models.EventInsert, models.EventUpdate, models.EventDelete:
	default:
		return DonationChange{}, fmt.Errorf("unknown donation change op %q", change.Op)
	}
	if change.ID == "" {
		return DonationChange{}, fmt.Errorf("%s change without id", change.Op)
	}
	return change, nil
}
