package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"food-rescue-backend/internal/metrics"
	"food-rescue-backend/internal/models"
	"food-rescue-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// donationStore is the subset of repository.DonationRepository the manager requires.
type donationStore interface {
	List(ctx context.Context) ([]*models.Donation, error)
	GetByID(ctx context.Context, id string) (*models.Donation, error)
	Create(ctx context.Context, d *models.Donation) (*models.Donation, error)
	UpdateStatus(ctx context.Context, id string, patch models.StatusPatch) (*models.Donation, error)
}

// changeFeed delivers donation changes from storage.
type changeFeed interface {
	Subscribe(ctx context.Context) (<-chan models.DonationEvent, error)
}

// statusNotifier is told about confirmed status changes.
type statusNotifier interface {
	DonationStatusChanged(d *models.Donation)
}

// Listener receives every change applied to the live donation list. For
// updates Old holds the record as it was before the change.
type Listener func(event models.DonationEvent)

// DonationManager keeps the live donation list and performs donation
// mutations. All list mutations happen on a single goroutine started by Start.
type DonationManager struct {
	store    donationStore
	feed     changeFeed
	notifier statusNotifier
	metrics  *metrics.Metrics

	mu        sync.RWMutex
	donations []*models.Donation
	running   bool

	listenersMu  sync.Mutex
	listeners    map[int]Listener
	nextListener int

	confirmed chan models.DonationEvent
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewDonationManager creates a new donation manager. notifier may be nil.
func NewDonationManager(store donationStore, feed changeFeed, notifier statusNotifier, m *metrics.Metrics) *DonationManager {
	return &DonationManager{
		store:     store,
		feed:      feed,
		notifier:  notifier,
		metrics:   m,
		listeners: make(map[int]Listener),
		confirmed: make(chan models.DonationEvent, 16),
	}
}

// Start loads the donation list and begins consuming the change feed.
func (m *DonationManager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	events, err := m.feed.Subscribe(runCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to donation changes: %w", err)
	}

	list, err := m.store.List(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to load donations: %w", err)
	}

	m.mu.Lock()
	m.donations = list
	m.running = true
	m.cancel = cancel
	m.done = make(chan struct{})
	m.mu.Unlock()

	go m.run(runCtx, events)

	log.Info().Int("count", len(list)).Msg("Donation manager started")
	return nil
}

// Stop releases the change feed subscription and waits for the writer to exit.
func (m *DonationManager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	cancel()
	<-done
	log.Info().Msg("Donation manager stopped")
}

// Subscribe registers a listener for list changes. The returned function
// removes it. Listeners run on the writer goroutine and must not block.
func (m *DonationManager) Subscribe(fn Listener) (unsubscribe func()) {
	m.listenersMu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	m.listenersMu.Unlock()

	return func() {
		m.listenersMu.Lock()
		delete(m.listeners, id)
		m.listenersMu.Unlock()
	}
}

// List returns a copy of the live donation list, newest first.
func (m *DonationManager) List() []*models.Donation {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Donation, len(m.donations))
	for i, d := range m.donations {
		out[i] = d.Clone()
	}
	return out
}

// Visible returns the donations the viewer is allowed to see.
func (m *DonationManager) Visible(viewer models.Viewer) []*models.Donation {
	return FilterVisible(m.List(), viewer)
}

// Get returns the live copy of a donation.
func (m *DonationManager) Get(id string) (*models.Donation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if i := indexOf(m.donations, id); i >= 0 {
		return m.donations[i].Clone(), true
	}
	return nil, false
}

// Create posts a new donation on behalf of a donor. The stored record
// reaches the live list once storage confirms the insert.
func (m *DonationManager) Create(ctx context.Context, actor models.Viewer, input models.DonationInput) (*models.Donation, error) {
	if !m.isRunning() {
		return nil, ErrManagerNotStarted
	}
	if actor.Role != models.RoleDonor {
		return nil, ErrRoleNotAllowed
	}
	if err := ValidateStruct(input); err != nil {
		return nil, err
	}
	if !models.IsFoodType(input.FoodType) {
		return nil, invalidField("food_type", "must be one of "+strings.Join(models.FoodTypes, ", "))
	}

	d := &models.Donation{
		Title:           strings.TrimSpace(input.Title),
		Description:     strings.TrimSpace(input.Description),
		FoodType:        input.FoodType,
		FoodQuantity:    max(input.FoodQuantity, 1),
		FoodWeight:      strings.TrimSpace(input.FoodWeight),
		ExpirationDate:  input.ExpirationDate,
		PickupDateTime:  input.PickupDateTime,
		DonorID:         actor.ID,
		DonorName:       actor.Name,
		Status:          models.StatusPending,
		LocationLat:     models.DefaultLocationLat,
		LocationLng:     models.DefaultLocationLng,
		LocationAddress: strings.TrimSpace(input.LocationAddress),
	}
	if input.LocationLat != nil && input.LocationLng != nil {
		d.LocationLat = *input.LocationLat
		d.LocationLng = *input.LocationLng
	}

	created, err := m.store.Create(ctx, d)
	if err != nil {
		log.Error().Err(err).Str("user_id", actor.ID).Msg("Error creating donation")
		return nil, err
	}

	m.metrics.DonationCreated()
	log.Info().Str("donation_id", created.ID).Str("user_id", actor.ID).Msg("Donation created")
	m.confirm(models.DonationEvent{Op: models.EventInsert, Record: created.Clone()})
	return created, nil
}

// UpdateStatus applies a partial status or assignment update. It returns nil
// without an error when storage reports that no row was updated.
func (m *DonationManager) UpdateStatus(ctx context.Context, id string, patch models.StatusPatch) (*models.Donation, error) {
	if !m.isRunning() {
		return nil, ErrManagerNotStarted
	}
	if err := checkPatch(patch); err != nil {
		return nil, err
	}

	updated, err := m.store.UpdateStatus(ctx, id, patch)
	target := "none"
	if patch.Status != nil {
		target = patch.Status.String()
	}
	if err != nil {
		m.metrics.StatusTransition(target, "error")
		log.Error().Err(err).Str("donation_id", id).Str("status", target).Msg("Error updating donation")
		return nil, err
	}
	if updated == nil {
		m.metrics.StatusTransition(target, "no_row")
		log.Warn().Str("donation_id", id).Str("status", target).Msg("Donation update matched no row")
		return nil, nil
	}

	m.metrics.StatusTransition(target, "ok")
	m.confirm(models.DonationEvent{Op: models.EventUpdate, Record: updated.Clone()})
	return updated, nil
}

// Accept assigns a pending donation to the acting volunteer.
func (m *DonationManager) Accept(ctx context.Context, actor models.Viewer, id string) (*models.Donation, error) {
	if actor.Role != models.RoleVolunteer {
		return nil, ErrRoleNotAllowed
	}
	current, err := m.current(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != models.StatusPending {
		return nil, ErrNotAvailable
	}

	return m.transition(ctx, id, models.StatusPatch{
		Status:        models.StatusPtr(models.StatusAccepted),
		VolunteerID:   models.StringPtr(actor.ID),
		VolunteerName: models.StringPtr(actor.Name),
		ExpectStatus:  models.StatusPtr(models.StatusPending),
	}, ErrNotAvailable)
}

// StartPickup moves an accepted donation to in-progress.
func (m *DonationManager) StartPickup(ctx context.Context, actor models.Viewer, id string) (*models.Donation, error) {
	return m.advanceAssigned(ctx, actor, id, models.StatusInProgress)
}

// MarkDelivered moves an accepted or in-progress donation to delivered.
func (m *DonationManager) MarkDelivered(ctx context.Context, actor models.Viewer, id string) (*models.Donation, error) {
	return m.advanceAssigned(ctx, actor, id, models.StatusDelivered)
}

// ConfirmReceipt lets a recipient confirm a delivered donation.
func (m *DonationManager) ConfirmReceipt(ctx context.Context, actor models.Viewer, id string) (*models.Donation, error) {
	if actor.Role != models.RoleRecipient {
		return nil, ErrRoleNotAllowed
	}
	current, err := m.current(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(current.Status, models.StatusCompleted) {
		return nil, ErrIllegalTransition
	}

	return m.transition(ctx, id, models.StatusPatch{
		Status:        models.StatusPtr(models.StatusCompleted),
		RecipientID:   models.StringPtr(actor.ID),
		RecipientName: models.StringPtr(actor.Name),
		ExpectStatus:  models.StatusPtr(current.Status),
	}, ErrIllegalTransition)
}

func (m *DonationManager) advanceAssigned(ctx context.Context, actor models.Viewer, id string, to models.Status) (*models.Donation, error) {
	if actor.Role != models.RoleVolunteer {
		return nil, ErrRoleNotAllowed
	}
	current, err := m.current(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.AssignedTo(actor.ID) {
		return nil, ErrNotAssignedVolunteer
	}
	if !models.CanTransition(current.Status, to) {
		return nil, ErrIllegalTransition
	}

	return m.transition(ctx, id, models.StatusPatch{
		Status:       models.StatusPtr(to),
		ExpectStatus: models.StatusPtr(current.Status),
	}, ErrIllegalTransition)
}

// transition applies patch and maps a no-row result to noRow.
func (m *DonationManager) transition(ctx context.Context, id string, patch models.StatusPatch, noRow error) (*models.Donation, error) {
	updated, err := m.UpdateStatus(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, noRow
	}
	if m.notifier != nil {
		m.notifier.DonationStatusChanged(updated.Clone())
	}
	return updated, nil
}

// current returns the live record, falling back to storage for records the
// feed has not delivered yet.
func (m *DonationManager) current(ctx context.Context, id string) (*models.Donation, error) {
	if d, ok := m.Get(id); ok {
		return d, nil
	}
	d, err := m.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDonationNotFound
		}
		return nil, err
	}
	return d, nil
}

func checkPatch(patch models.StatusPatch) error {
	if patch.Status == nil {
		if patch.VolunteerID == nil && patch.VolunteerName == nil && patch.RecipientID == nil && patch.RecipientName == nil {
			return fmt.Errorf("%w: empty patch", ErrInvalidPatch)
		}
		return nil
	}
	switch *patch.Status {
	case models.StatusPending:
		return fmt.Errorf("%w: status cannot return to pending", ErrInvalidPatch)
	case models.StatusAccepted:
		if patch.VolunteerID == nil || patch.VolunteerName == nil || *patch.VolunteerID == "" {
			return fmt.Errorf("%w: accepting requires volunteer id and name", ErrInvalidPatch)
		}
	case models.StatusInProgress, models.StatusDelivered, models.StatusCompleted:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidPatch, *patch.Status)
	}
	return nil
}

func (m *DonationManager) isRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// confirm hands a storage-confirmed change to the writer goroutine.
func (m *DonationManager) confirm(event models.DonationEvent) {
	m.mu.RLock()
	running, done := m.running, m.done
	m.mu.RUnlock()
	if !running {
		return
	}
	select {
	case m.confirmed <- event:
	case <-done:
	}
}

func (m *DonationManager) run(ctx context.Context, events <-chan models.DonationEvent) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-m.confirmed:
			m.apply(ctx, event, false)
		case event, ok := <-events:
			if !ok {
				return
			}
			m.metrics.FeedEvent(string(event.Op))
			m.apply(ctx, event, true)
		}
	}
}

// apply merges a change into the live list. Feed changes arrive in commit
// order and always win; a confirmed change only lands if the feed has not
// already delivered something newer for the row.
func (m *DonationManager) apply(ctx context.Context, event models.DonationEvent, fromFeed bool) {
	var (
		out     models.DonationEvent
		changed bool
	)
	switch event.Op {
	case models.EventInsert:
		out, changed = m.applyInsert(event)
	case models.EventUpdate:
		out, changed = m.applyUpdate(event, fromFeed)
	case models.EventDelete:
		out, changed = m.applyDelete(event)
	case models.EventResync:
		out, changed = m.resync(ctx)
	default:
		log.Warn().Str("op", string(event.Op)).Msg("Ignoring unknown donation event")
	}
	if changed {
		m.notify(out)
	}
}

func (m *DonationManager) applyInsert(event models.DonationEvent) (models.DonationEvent, bool) {
	if event.Record == nil {
		return event, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if indexOf(m.donations, event.Record.ID) >= 0 {
		return event, false
	}
	m.donations = append([]*models.Donation{event.Record.Clone()}, m.donations...)
	return models.DonationEvent{Op: models.EventInsert, Record: event.Record.Clone()}, true
}

func (m *DonationManager) applyUpdate(event models.DonationEvent, fromFeed bool) (models.DonationEvent, bool) {
	if event.Record == nil {
		return event, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	i := indexOf(m.donations, event.Record.ID)
	if i < 0 {
		return event, false
	}
	prev := m.donations[i]
	if prev.Equal(event.Record) {
		return event, false
	}
	if !fromFeed && event.Record.UpdatedAt.Before(prev.UpdatedAt) {
		return event, false
	}
	m.donations[i] = event.Record.Clone()
	return models.DonationEvent{Op: models.EventUpdate, Record: event.Record.Clone(), Old: prev.Clone()}, true
}

func (m *DonationManager) applyDelete(event models.DonationEvent) (models.DonationEvent, bool) {
	id := event.ID()
	m.mu.Lock()
	defer m.mu.Unlock()

	i := indexOf(m.donations, id)
	if i < 0 {
		return event, false
	}
	prev := m.donations[i]
	m.donations = append(m.donations[:i:i], m.donations[i+1:]...)
	return models.DonationEvent{Op: models.EventDelete, Old: prev.Clone()}, true
}

func (m *DonationManager) resync(ctx context.Context) (models.DonationEvent, bool) {
	list, err := m.store.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to reload donations after feed reconnect")
		return models.DonationEvent{}, false
	}
	m.mu.Lock()
	m.donations = list
	m.mu.Unlock()
	log.Info().Int("count", len(list)).Msg("Donation list reloaded")
	return models.DonationEvent{Op: models.EventResync}, true
}

func (m *DonationManager) notify(event models.DonationEvent) {
	m.listenersMu.Lock()
	listeners := make([]Listener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(event)
	}
}

func indexOf(list []*models.Donation, id string) int {
	for i, d := range list {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// VisibleTo reports whether the viewer's role filter admits the donation.
//
//	donor:     own donations
//	volunteer: pending donations and own assignments
//	recipient: everything past pending
//	other:     everything
func VisibleTo(viewer models.Viewer, d *models.Donation) bool {
	if d == nil {
		return false
	}
	switch viewer.Role {
	case models.RoleDonor:
		return d.DonorID == viewer.ID
	case models.RoleVolunteer:
		return d.Status == models.StatusPending || d.AssignedTo(viewer.ID)
	case models.RoleRecipient:
		switch d.Status {
		case models.StatusAccepted, models.StatusInProgress, models.StatusDelivered, models.StatusCompleted:
			return true
		case models.StatusPending:
			return false
		default:
			return false
		}
	default:
		return true
	}
}

// FilterVisible returns the donations the viewer's role filter admits,
// preserving order.
func FilterVisible(list []*models.Donation, viewer models.Viewer) []*models.Donation {
	out := make([]*models.Donation, 0, len(list))
	for _, d := range list {
		if VisibleTo(viewer, d) {
			out = append(out, d)
		}
	}
	return out
}
