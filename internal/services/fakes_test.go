package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/crowdbounty/backend/internal/apperr"
	"github.com/crowdbounty/backend/internal/events"
	"github.com/crowdbounty/backend/internal/linkpreview"
	"github.com/crowdbounty/backend/internal/models"
	"github.com/crowdbounty/backend/internal/repositories"
	"github.com/google/uuid"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memStore backs both bounty and participation fakes so Record can update
// the bounty counter atomically, like the SQL transaction does.
type memStore struct {
	mu             sync.Mutex
	bounties       map[uuid.UUID]*models.Bounty
	participations map[uuid.UUID]*models.BountyParticipation
	seq            int

	createCalls  int
	updateCalls  int
	recordCalls  int
	existsCalls  int
	bountyIDsErr error
}

func newMemStore() *memStore {
	return &memStore{
		bounties:       make(map[uuid.UUID]*models.Bounty),
		participations: make(map[uuid.UUID]*models.BountyParticipation),
	}
}

func (m *memStore) tick() time.Time {
	m.seq++
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(m.seq) * time.Second)
}

func (m *memStore) bounty(id uuid.UUID) models.Bounty {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.bounties[id]
}

func (m *memStore) participationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.participations)
}

type fakeBounties struct{ *memStore }

func (f fakeBounties) Create(_ context.Context, b *models.Bounty) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	b.ID = uuid.New()
	b.CreatedAt = f.tick()
	b.UpdatedAt = b.CreatedAt
	c := *b
	f.bounties[b.ID] = &c
	return nil
}

func (f fakeBounties) GetByID(_ context.Context, id uuid.UUID) (*models.Bounty, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bounties[id]
	if !ok {
		return nil, apperr.NotFound("bounty not found")
	}
	c := *b
	return &c, nil
}

func (f fakeBounties) List(_ context.Context, filter repositories.BountyFilter) ([]models.Bounty, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Bounty
	for _, b := range f.bounties {
		if filter.Status != nil && b.Status != *filter.Status {
			continue
		}
		if filter.CreatorAddress != nil && b.CreatorAddress != *filter.CreatorAddress {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f fakeBounties) UpdateStatus(_ context.Context, id uuid.UUID, from, to string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	b, ok := f.bounties[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	return true, nil
}

func (f fakeBounties) CompleteExpired(_ context.Context, now time.Time) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uuid.UUID
	for id, b := range f.bounties {
		if b.Status == models.BountyStatusActive && b.ActivityEnd != nil && !b.ActivityEnd.After(now) {
			b.Status = models.BountyStatusCompleted
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type fakeParticipations struct{ *memStore }

func (f fakeParticipations) Exists(_ context.Context, bountyID uuid.UUID, creator string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.existsCalls++
	for _, p := range f.participations {
		if p.BountyID == bountyID && p.CreatorAddress == creator {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeParticipations) Record(_ context.Context, p *models.BountyParticipation, enforceCap bool) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recordCalls++

	b, ok := f.bounties[p.BountyID]
	if !ok {
		return 0, apperr.NotFound("bounty not found")
	}
	if b.Status != models.BountyStatusActive {
		return 0, apperr.Ineligible("bounty is not active")
	}
	if enforceCap && b.CurrentRecipients >= b.MaxRecipients {
		return 0, apperr.Ineligible("bounty is full")
	}
	for _, existing := range f.participations {
		if existing.BountyID == p.BountyID && existing.CreatorAddress == p.CreatorAddress {
			return 0, apperr.Duplicate("already participated in this bounty")
		}
	}

	b.CurrentRecipients++
	p.ID = uuid.New()
	p.CreatedAt = f.tick()
	c := *p
	f.participations[p.ID] = &c
	return b.CurrentRecipients, nil
}

func (f fakeParticipations) GetByID(_ context.Context, id uuid.UUID) (*models.BountyParticipation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.participations[id]
	if !ok {
		return nil, apperr.NotFound("participation not found")
	}
	c := *p
	return &c, nil
}

func (f fakeParticipations) ListByBounty(_ context.Context, bountyID uuid.UUID) ([]models.BountyParticipation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.BountyParticipation
	for _, p := range f.participations {
		if p.BountyID == bountyID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f fakeParticipations) BountyIDsByParticipant(_ context.Context, creator string) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bountyIDsErr != nil {
		return nil, f.bountyIDsErr
	}
	var ids []uuid.UUID
	for _, p := range f.participations {
		if p.CreatorAddress == creator {
			ids = append(ids, p.BountyID)
		}
	}
	return ids, nil
}

func (f fakeParticipations) UpdateStatus(_ context.Context, id uuid.UUID, from, to, reviewer string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.participations[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	p.ReviewedBy = &reviewer
	p.ReviewedAt = &at
	return true, nil
}

type fakeImages struct {
	mu        sync.Mutex
	images    map[string]*models.CampaignImage
	failures  map[string]error
	findCalls int
}

func newFakeImages() *fakeImages {
	return &fakeImages{images: make(map[string]*models.CampaignImage), failures: make(map[string]error)}
}

func (f *fakeImages) FindByCampaign(_ context.Context, campaign string) (*models.CampaignImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	if err, ok := f.failures[campaign]; ok {
		return nil, err
	}
	img, ok := f.images[campaign]
	if !ok {
		return nil, apperr.NotFound("campaign image not found")
	}
	c := *img
	return &c, nil
}

func (f *fakeImages) Upsert(_ context.Context, c *models.CampaignImage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.images[c.CampaignAddress]
	if !ok {
		c.ID = uuid.New()
		cp := *c
		f.images[c.CampaignAddress] = &cp
		return nil
	}
	existing.CreatorAddress = c.CreatorAddress
	if c.FileKey != nil {
		existing.FileKey = c.FileKey
	}
	if c.ImageURL != nil {
		existing.ImageURL = c.ImageURL
	}
	*c = *existing
	return nil
}

func (f *fakeImages) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findCalls
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (f *fakeAudit) Log(_ context.Context, entry models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAudit) GetByEntity(_ context.Context, entityType string, entityID uuid.UUID, _ int) ([]models.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AuditLog
	for _, e := range f.entries {
		if e.EntityType == entityType && e.EntityID != nil && *e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeAudit) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *fakePublisher) Publish(_ context.Context, _ string, e events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type fakePreviewer struct {
	got map[string]string
}

func (f *fakePreviewer) FetchAll(_ context.Context, links map[string]string) []linkpreview.Preview {
	f.got = links
	out := make([]linkpreview.Preview, 0, len(links))
	for platform, url := range links {
		out = append(out, linkpreview.Preview{Platform: platform, URL: url, Title: "preview"})
	}
	return out
}
