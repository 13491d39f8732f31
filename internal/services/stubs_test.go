package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"food-rescue-backend/internal/models"
	"food-rescue-backend/internal/repository"
)

// stubProfileStore is an in-memory profileStore.
type stubProfileStore struct {
	mu        sync.Mutex
	rows      map[string]*models.UserProfile
	getErr    error
	createErr error
	updateErr error

	getCalls    int
	createCalls int
}

func newStubProfileStore() *stubProfileStore {
	return &stubProfileStore{rows: make(map[string]*models.UserProfile)}
}

func (s *stubProfileStore) GetByID(_ context.Context, id string) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.getErr != nil {
		return nil, s.getErr
	}
	p, ok := s.rows[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
	}
	c := *p
	return &c, nil
}

func (s *stubProfileStore) Create(_ context.Context, user *models.UserProfile) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.createErr != nil {
		return nil, s.createErr
	}
	if _, exists := s.rows[user.ID]; exists {
		return nil, fmt.Errorf("user %s: %w", user.ID, repository.ErrDuplicate)
	}
	c := *user
	c.DisplayName = ""
	s.rows[user.ID] = &c
	out := c
	return &out, nil
}

func (s *stubProfileStore) Update(_ context.Context, id string, upd models.ProfileUpdate, at time.Time) (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	p, ok := s.rows[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, repository.ErrNotFound)
	}
	if upd.FullName != nil {
		p.FullName = *upd.FullName
	}
	if upd.Role != nil {
		p.Role = *upd.Role
	}
	if upd.PhoneNumber != nil {
		p.PhoneNumber = upd.PhoneNumber
	}
	if upd.Address != nil {
		p.Address = upd.Address
	}
	if upd.AvatarURL != nil {
		p.AvatarURL = upd.AvatarURL
	}
	if upd.PushToken != nil {
		p.PushToken = upd.PushToken
	}
	p.UpdatedAt = at
	c := *p
	return &c, nil
}

func (s *stubProfileStore) put(p *models.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *p
	s.rows[p.ID] = &c
}

func (s *stubProfileStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// stubDonationStore is an in-memory donationStore that applies status
// patches the way the donations table does.
type stubDonationStore struct {
	mu        sync.Mutex
	rows      map[string]*models.Donation
	order     []string
	nextID    int
	listErr   error
	createErr error
	updateErr error

	created     []*models.Donation
	updateCalls int
	listCalls   int

	// clock stamps updated_at the way the database does.
	clock func() time.Time
}

func newStubDonationStore(seed ...*models.Donation) *stubDonationStore {
	s := &stubDonationStore{rows: make(map[string]*models.Donation), clock: time.Now}
	for _, d := range seed {
		s.rows[d.ID] = d.Clone()
		s.order = append(s.order, d.ID)
	}
	return s
}

func (s *stubDonationStore) List(_ context.Context) ([]*models.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]*models.Donation, 0, len(s.order))
	for _, id := range s.order {
		if d, ok := s.rows[id]; ok {
			out = append(out, d.Clone())
		}
	}
	return out, nil
}

func (s *stubDonationStore) GetByID(_ context.Context, id string) (*models.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.rows[id]
	if !ok {
		return nil, fmt.Errorf("donation %s: %w", id, repository.ErrNotFound)
	}
	return d.Clone(), nil
}

func (s *stubDonationStore) Create(_ context.Context, d *models.Donation) (*models.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, d.Clone())
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.nextID++
	c := d.Clone()
	c.ID = fmt.Sprintf("new-%d", s.nextID)
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	s.rows[c.ID] = c
	s.order = append([]string{c.ID}, s.order...)
	return c.Clone(), nil
}

func (s *stubDonationStore) UpdateStatus(_ context.Context, id string, patch models.StatusPatch) (*models.Donation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCalls++
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	d, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	if patch.ExpectStatus != nil && d.Status != *patch.ExpectStatus {
		return nil, nil
	}
	if patch.Status != nil {
		d.Status = *patch.Status
	}
	if d.VolunteerID == nil && patch.VolunteerID != nil {
		d.VolunteerID = models.StringPtr(*patch.VolunteerID)
	}
	if d.VolunteerName == nil && patch.VolunteerName != nil {
		d.VolunteerName = models.StringPtr(*patch.VolunteerName)
	}
	if d.RecipientID == nil && patch.RecipientID != nil {
		d.RecipientID = models.StringPtr(*patch.RecipientID)
	}
	if d.RecipientName == nil && patch.RecipientName != nil {
		d.RecipientName = models.StringPtr(*patch.RecipientName)
	}
	d.UpdatedAt = s.clock().UTC()
	return d.Clone(), nil
}

func (s *stubDonationStore) row(id string) *models.Donation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[id].Clone()
}

func (s *stubDonationStore) updates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateCalls
}

// stubFeed hands out a channel the test pushes events into.
type stubFeed struct {
	events chan models.DonationEvent
	err    error
}

func newStubFeed() *stubFeed {
	return &stubFeed{events: make(chan models.DonationEvent, 16)}
}

func (f *stubFeed) Subscribe(_ context.Context) (<-chan models.DonationEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

// stubNotifier records notified donations.
type stubNotifier struct {
	mu       sync.Mutex
	notified []*models.Donation
}

func (n *stubNotifier) DonationStatusChanged(d *models.Donation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notified = append(n.notified, d)
}

func (n *stubNotifier) statuses() []models.Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.Status, 0, len(n.notified))
	for _, d := range n.notified {
		out = append(out, d.Status)
	}
	return out
}

// stubAccountStore is an in-memory accountStore.
type stubAccountStore struct {
	mu     sync.Mutex
	rows   map[string]*repository.AuthAccount
	nextID int
}

func newStubAccountStore() *stubAccountStore {
	return &stubAccountStore{rows: make(map[string]*repository.AuthAccount)}
}

func (s *stubAccountStore) Create(_ context.Context, acc *repository.AuthAccount) (*repository.AuthAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.rows {
		if strings.EqualFold(existing.Email, acc.Email) {
			return nil, fmt.Errorf("account %s: %w", acc.Email, repository.ErrDuplicate)
		}
	}
	s.nextID++
	c := *acc
	c.ID = fmt.Sprintf("acc-%d", s.nextID)
	s.rows[c.ID] = &c
	out := c
	return &out, nil
}

func (s *stubAccountStore) GetByEmail(_ context.Context, email string) (*repository.AuthAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.rows {
		if strings.EqualFold(acc.Email, email) {
			c := *acc
			return &c, nil
		}
	}
	return nil, fmt.Errorf("account %s: %w", email, repository.ErrNotFound)
}

func (s *stubAccountStore) GetByID(_ context.Context, id string) (*repository.AuthAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.rows[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, repository.ErrNotFound)
	}
	c := *acc
	return &c, nil
}

func (s *stubAccountStore) Confirm(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.rows[id]
	if !ok {
		return fmt.Errorf("account %s: %w", id, repository.ErrNotFound)
	}
	if acc.ConfirmedAt == nil {
		acc.ConfirmedAt = &at
	}
	return nil
}

// memoryKV implements RateLimitStore and SessionStore without expiry.
type memoryKV struct {
	mu       sync.Mutex
	counters map[string]int64
	values   map[string]any
}

func newMemoryKV() *memoryKV {
	return &memoryKV{counters: make(map[string]int64), values: make(map[string]any)}
}

func (m *memoryKV) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key]++
	return m.counters[key], nil
}

func (m *memoryKV) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memoryKV) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values[key]
	return ok, nil
}

func (m *memoryKV) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}
