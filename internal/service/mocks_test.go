package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	appErrors "github.com/inboxpilot/warmup-backend/internal/errors"
	"github.com/inboxpilot/warmup-backend/internal/model"
	"github.com/inboxpilot/warmup-backend/internal/provider"
)

// In-memory mock repositories shared by the service tests.

type mockCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[int]*model.Campaign
	claims    map[string]bool
	nextID    int
}

func newMockCampaignRepo(campaigns ...*model.Campaign) *mockCampaignRepo {
	repo := &mockCampaignRepo{
		campaigns: map[int]*model.Campaign{},
		claims:    map[string]bool{},
	}
	for _, c := range campaigns {
		repo.campaigns[c.ID] = c
		if c.ID > repo.nextID {
			repo.nextID = c.ID
		}
	}
	return repo
}

func (m *mockCampaignRepo) Create(c *model.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c.ID = m.nextID
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	m.campaigns[c.ID] = c
	return nil
}

func (m *mockCampaignRepo) GetByID(id int) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	copied := *c
	return &copied, nil
}

func (m *mockCampaignRepo) ListCampaigns(offset, limit int, status string) ([]*model.Campaign, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := []*model.Campaign{}
	for _, c := range m.campaigns {
		if status == "" || c.Status == status {
			all = append(all, c)
		}
	}
	return all, len(all), nil
}

func (m *mockCampaignRepo) UpdateStatus(campaignID int, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.campaigns[campaignID]; ok {
		c.Status = status
	}
	return nil
}

func (m *mockCampaignRepo) ListDueActive(dayEvery time.Duration) ([]*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	due := []*model.Campaign{}
	for _, c := range m.campaigns {
		if c.Status == model.CampaignActive {
			copied := *c
			due = append(due, &copied)
		}
	}
	return due, nil
}

func (m *mockCampaignRepo) TryClaimDay(campaignID, day int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fmt.Sprintf("%d:%d", campaignID, day)
	if m.claims[key] {
		return false, nil
	}
	m.claims[key] = true
	return true, nil
}

func (m *mockCampaignRepo) AdvanceDay(campaignID, day int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.campaigns[campaignID]; ok {
		now := time.Now()
		c.CurrentDay = day
		c.LastProcessedAt = &now
	}
	return nil
}

func (m *mockCampaignRepo) ResetProgress(campaignID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.campaigns[campaignID]; ok {
		c.Status = model.CampaignActive
		c.CurrentDay = 0
		c.LastProcessedAt = nil
	}
	return nil
}

type mockEmailRepo struct {
	mu         sync.Mutex
	emails     map[int]*model.Email
	nextID     int
	failCreate bool
}

func newMockEmailRepo() *mockEmailRepo {
	return &mockEmailRepo{emails: map[int]*model.Email{}}
}

func (m *mockEmailRepo) CreateBatch(emails []*model.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate {
		return fmt.Errorf("insert failed")
	}
	for _, e := range emails {
		m.nextID++
		e.ID = m.nextID
		e.CreatedAt = time.Now()
		if e.Status == "" {
			e.Status = model.EmailPending
		}
		copied := *e
		m.emails[e.ID] = &copied
	}
	return nil
}

func (m *mockEmailRepo) GetByID(id int) (*model.Email, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.emails[id]
	if !ok {
		return nil, nil
	}
	copied := *e
	return &copied, nil
}

func (m *mockEmailRepo) ListPendingByCampaign(campaignID int) ([]*model.Email, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pending := []*model.Email{}
	for _, e := range m.emails {
		if e.CampaignID == campaignID && e.Status == model.EmailPending {
			copied := *e
			pending = append(pending, &copied)
		}
	}
	return pending, nil
}

func (m *mockEmailRepo) MarkSent(id int) (bool, error) {
	return m.transition(id, model.EmailSent, model.EmailPending)
}

func (m *mockEmailRepo) MarkDelivered(id int) (bool, error) {
	return m.transition(id, model.EmailDelivered, model.EmailSent)
}

func (m *mockEmailRepo) MarkFailed(id int, reason string) (bool, error) {
	moved, err := m.transition(id, model.EmailFailed, model.EmailPending, model.EmailSent)
	if moved {
		m.mu.Lock()
		m.emails[id].LastError = reason
		m.mu.Unlock()
	}
	return moved, err
}

func (m *mockEmailRepo) transition(id int, to string, from ...string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.emails[id]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if e.Status == f {
			e.Status = to
			now := time.Now()
			if to == model.EmailSent {
				e.SentAt = &now
			}
			if to == model.EmailDelivered {
				e.DeliveredAt = &now
			}
			return true, nil
		}
	}
	return false, nil
}

func (m *mockEmailRepo) setCreatedAt(id int, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.emails[id]; ok {
		e.CreatedAt = at
	}
}

func (m *mockEmailRepo) status(id int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.emails[id]; ok {
		return e.Status
	}
	return ""
}

func (m *mockEmailRepo) countForCampaign(campaignID int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.emails {
		if e.CampaignID == campaignID {
			n++
		}
	}
	return n
}

func (m *mockEmailRepo) CountByStatus(campaignID int) (*model.EmailCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := &model.EmailCounts{}
	for _, e := range m.emails {
		if e.CampaignID != campaignID {
			continue
		}
		switch e.Status {
		case model.EmailPending:
			counts.Pending++
		case model.EmailSent:
			counts.Sent++
		case model.EmailDelivered:
			counts.Delivered++
		case model.EmailFailed:
			counts.Failed++
		}
		counts.Total++
	}
	return counts, nil
}

func (m *mockEmailRepo) DailyStats(campaignID int) ([]model.DailyStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byDay := map[int]*model.DailyStat{}
	days := []int{}
	for _, e := range m.emails {
		if e.CampaignID != campaignID {
			continue
		}
		stat, ok := byDay[e.Day]
		if !ok {
			stat = &model.DailyStat{Day: e.Day, Date: e.CreatedAt.Truncate(24 * time.Hour)}
			byDay[e.Day] = stat
			days = append(days, e.Day)
		}
		switch e.Status {
		case model.EmailSent, model.EmailDelivered, model.EmailFailed:
			stat.Sent++
		}
		if e.Status == model.EmailDelivered {
			stat.Delivered++
		}
		if e.Status == model.EmailFailed {
			stat.Failed++
		}
	}
	sort.Ints(days)
	stats := []model.DailyStat{}
	for _, day := range days {
		stats = append(stats, *byDay[day])
	}
	return stats, nil
}

type mockAccountRepo struct {
	mu          sync.Mutex
	account     *model.EmailAccount
	tokenWrites []provider.TokenPair
}

func (m *mockAccountRepo) GetByID(id int) (*model.EmailAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.account == nil || m.account.ID != id {
		return nil, nil
	}
	copied := *m.account
	return &copied, nil
}

func (m *mockAccountRepo) UpdateTokens(id int, accessToken, refreshToken string, expiresIn int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenWrites = append(m.tokenWrites, provider.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	})
	if m.account != nil && m.account.ID == id {
		m.account.AccessToken = accessToken
		m.account.RefreshToken = refreshToken
	}
	return nil
}

// fakeProvider replays a script of send outcomes and counts refreshes.
type fakeProvider struct {
	mu           sync.Mutex
	sendErrs     []error
	sendTokens   []string
	refreshErr   error
	refreshCalls int
	refreshSeq   int
}

func (p *fakeProvider) SendEmail(ctx context.Context, token, from, to, subject, body string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sendTokens = append(p.sendTokens, token)
	if len(p.sendErrs) == 0 {
		return nil
	}
	err := p.sendErrs[0]
	p.sendErrs = p.sendErrs[1:]
	return err
}

func (p *fakeProvider) ValidateToken(ctx context.Context, token string) (bool, error) {
	return true, nil
}

func (p *fakeProvider) RefreshToken(ctx context.Context, refreshToken string) (*provider.TokenPair, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshCalls++
	if p.refreshErr != nil {
		return nil, p.refreshErr
	}
	p.refreshSeq++
	return &provider.TokenPair{
		AccessToken:  fmt.Sprintf("fresh-access-%d", p.refreshSeq),
		RefreshToken: fmt.Sprintf("fresh-refresh-%d", p.refreshSeq),
		ExpiresIn:    3600,
	}, nil
}

type recordingSink struct {
	mu  sync.Mutex
	ids []int
}

func (s *recordingSink) Enqueue(emailID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, emailID)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}
