package businessflow_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jobradar/adpilot/models"
	"github.com/jobradar/adpilot/platform"
)

// fakeCampaignRepo is an in-memory CampaignRepository. Reads hand out
// copies so a flow mutating a row without calling Update is caught.
type fakeCampaignRepo struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]models.Campaign

	saveErr   error
	updateErr error
	byIDErr   error
}

func newFakeCampaignRepo() *fakeCampaignRepo {
	return &fakeCampaignRepo{nextID: 1, rows: make(map[uint]models.Campaign)}
}

func (r *fakeCampaignRepo) put(c models.Campaign) models.Campaign {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == 0 {
		c.ID = r.nextID
		r.nextID++
	}
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	r.rows[c.ID] = c
	return c
}

func (r *fakeCampaignRepo) get(id uint) models.Campaign {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id]
}

func (r *fakeCampaignRepo) ByID(ctx context.Context, id uint) (*models.Campaign, error) {
	if r.byIDErr != nil {
		return nil, r.byIDErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *fakeCampaignRepo) ByUUID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.rows {
		if c.UUID == id {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeCampaignRepo) ByFilter(ctx context.Context, filter models.CampaignFilter, orderBy string, limit, offset int) ([]*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Campaign
	for id := uint(1); id < r.nextID; id++ {
		c, ok := r.rows[id]
		if !ok || !matchesCampaignFilter(c, filter) {
			continue
		}
		out = append(out, &c)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeCampaignRepo) Save(ctx context.Context, campaign *models.Campaign) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	*campaign = r.put(*campaign)
	return nil
}

func (r *fakeCampaignRepo) Update(ctx context.Context, campaign *models.Campaign) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.put(*campaign)
	return nil
}

func (r *fakeCampaignRepo) Count(ctx context.Context, filter models.CampaignFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.rows {
		if matchesCampaignFilter(c, filter) {
			n++
		}
	}
	return n, nil
}

func matchesCampaignFilter(c models.Campaign, filter models.CampaignFilter) bool {
	if filter.AccountID != nil && c.AccountID != *filter.AccountID {
		return false
	}
	if filter.Status != nil && c.Status != *filter.Status {
		return false
	}
	return true
}

// fakeAccountRepo is an in-memory AdAccountRepository
type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]models.AdAccount
}

func newFakeAccountRepo(accounts ...models.AdAccount) *fakeAccountRepo {
	r := &fakeAccountRepo{accounts: make(map[string]models.AdAccount)}
	for _, a := range accounts {
		r.accounts[a.ExternalID] = a
	}
	return r
}

func (r *fakeAccountRepo) ByExternalID(ctx context.Context, externalID string) (*models.AdAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[externalID]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *fakeAccountRepo) ListActive(ctx context.Context) ([]*models.AdAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AdAccount
	for _, a := range r.accounts {
		if a.IsActive {
			a := a
			out = append(out, &a)
		}
	}
	return out, nil
}

func (r *fakeAccountRepo) Save(ctx context.Context, account *models.AdAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[account.ExternalID] = *account
	return nil
}

func (r *fakeAccountRepo) Update(ctx context.Context, account *models.AdAccount) error {
	return r.Save(ctx, account)
}

// fakeCandidateRepo is an in-memory CandidateRepository
type fakeCandidateRepo struct {
	rows      []*models.Candidate
	filterErr error
}

func (r *fakeCandidateRepo) ByFilter(ctx context.Context, filter models.CandidateFilter, orderBy string, limit, offset int) ([]*models.Candidate, error) {
	if r.filterErr != nil {
		return nil, r.filterErr
	}
	return r.rows, nil
}

func (r *fakeCandidateRepo) Save(ctx context.Context, candidate *models.Candidate) error {
	return nil
}

// fakeMirrorStore backs the three mirror repo fakes with an id -> status map
type fakeMirrorStore struct {
	mu     sync.Mutex
	status map[string]string

	upsertErr error
	listErr   error
}

func newFakeMirrorStore(ids ...string) *fakeMirrorStore {
	s := &fakeMirrorStore{status: make(map[string]string)}
	for _, id := range ids {
		s.status[id] = models.RemoteStatusActive
	}
	return s
}

func (s *fakeMirrorStore) upsert(id string) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.status[id]; !ok {
		s.status[id] = models.RemoteStatusActive
	}
	return nil
}

func (s *fakeMirrorStore) listIDs() ([]string, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id := range s.status {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *fakeMirrorStore) markDeleted(ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if st, ok := s.status[id]; ok && st != models.RemoteStatusDeleted {
			s.status[id] = models.RemoteStatusDeleted
			n++
		}
	}
	return n, nil
}

func (s *fakeMirrorStore) statusOf(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status[id]
}

type fakeCampaignMirrorRepo struct{ *fakeMirrorStore }

func (r fakeCampaignMirrorRepo) ByExternalID(ctx context.Context, externalID string) (*models.AdCampaignMirror, error) {
	return nil, nil
}

func (r fakeCampaignMirrorRepo) ListIDsByAccount(ctx context.Context, accountID string) ([]string, error) {
	return r.listIDs()
}

func (r fakeCampaignMirrorRepo) Upsert(ctx context.Context, row *models.AdCampaignMirror) error {
	return r.upsert(row.ExternalID)
}

func (r fakeCampaignMirrorRepo) MarkDeleted(ctx context.Context, accountID string, externalIDs []string) (int64, error) {
	return r.markDeleted(externalIDs)
}

type fakeAdSetMirrorRepo struct{ *fakeMirrorStore }

func (r fakeAdSetMirrorRepo) ByExternalID(ctx context.Context, externalID string) (*models.AdSetMirror, error) {
	return nil, nil
}

func (r fakeAdSetMirrorRepo) ListIDsByAccount(ctx context.Context, accountID string) ([]string, error) {
	return r.listIDs()
}

func (r fakeAdSetMirrorRepo) Upsert(ctx context.Context, row *models.AdSetMirror) error {
	return r.upsert(row.ExternalID)
}

func (r fakeAdSetMirrorRepo) MarkDeleted(ctx context.Context, accountID string, externalIDs []string) (int64, error) {
	return r.markDeleted(externalIDs)
}

type fakeAdMirrorRepo struct{ *fakeMirrorStore }

func (r fakeAdMirrorRepo) ByExternalID(ctx context.Context, externalID string) (*models.AdMirror, error) {
	return nil, nil
}

func (r fakeAdMirrorRepo) ListIDsByAccount(ctx context.Context, accountID string) ([]string, error) {
	return r.listIDs()
}

func (r fakeAdMirrorRepo) Upsert(ctx context.Context, row *models.AdMirror) error {
	return r.upsert(row.ExternalID)
}

func (r fakeAdMirrorRepo) MarkDeleted(ctx context.Context, accountID string, externalIDs []string) (int64, error) {
	return r.markDeleted(externalIDs)
}

// fakeInsightRepo is an in-memory InsightRepository keyed the same way as
// the real upsert
type fakeInsightRepo struct {
	mu        sync.Mutex
	rows      map[string]models.Insight
	upsertErr error
}

func newFakeInsightRepo() *fakeInsightRepo {
	return &fakeInsightRepo{rows: make(map[string]models.Insight)}
}

func insightKey(objectID string, level models.ObjectLevel, date time.Time) string {
	return fmt.Sprintf("%s|%s|%s", objectID, level, date.Format("2006-01-02"))
}

func (r *fakeInsightRepo) ByKey(ctx context.Context, objectID string, level models.ObjectLevel, dateStart time.Time) (*models.Insight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[insightKey(objectID, level, dateStart)]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (r *fakeInsightRepo) ByFilter(ctx context.Context, filter models.InsightFilter, orderBy string, limit, offset int) ([]*models.Insight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []models.Insight
	for _, row := range r.rows {
		if filter.AccountID != nil && row.AccountID != *filter.AccountID {
			continue
		}
		if filter.Level != nil && row.Level != *filter.Level {
			continue
		}
		if filter.ObjectID != nil && row.ObjectID != *filter.ObjectID {
			continue
		}
		if filter.DateFrom != nil && row.DateStart.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && row.DateStart.After(*filter.DateTo) {
			continue
		}
		matched = append(matched, row)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].ObjectID != matched[j].ObjectID {
			return matched[i].ObjectID < matched[j].ObjectID
		}
		return matched[i].DateStart.Before(matched[j].DateStart)
	})
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]*models.Insight, 0, len(matched))
	for i := range matched {
		out = append(out, &matched[i])
	}
	return out, nil
}

func (r *fakeInsightRepo) Upsert(ctx context.Context, row *models.Insight) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[insightKey(row.ObjectID, row.Level, row.DateStart)] = *row
	return nil
}

func (r *fakeInsightRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// fakeAdapter implements platform.Adapter with overridable behavior per
// call. Unset create functions return an id derived from the call name;
// unset list functions return empty pages.
type fakeAdapter struct {
	mu    sync.Mutex
	calls map[string]int

	createCampaignFn func(req platform.CreateCampaignRequest) (string, error)
	createAdSetFn    func(req platform.CreateAdSetRequest) (string, error)
	createCreativeFn func(req platform.CreateCreativeRequest) (string, error)
	createAdFn       func(req platform.CreateAdRequest) (string, error)
	createAudienceFn func(req platform.CreateCustomAudienceRequest) (string, error)
	uploadImageFn    func(req platform.UploadImageRequest) (string, error)

	listCampaignsFn func(accountID, cursor string) ([]platform.RemoteCampaign, string, error)
	listAdSetsFn    func(campaignID, cursor string) ([]platform.RemoteAdSet, string, error)
	listAdsFn       func(adSetID, cursor string) ([]platform.RemoteAd, string, error)
	getInsightsFn   func(req platform.InsightsRequest) ([]platform.RawInsightRow, string, error)

	lastAdSetReq    platform.CreateAdSetRequest
	lastCreativeReq platform.CreateCreativeRequest
	lastAudienceReq platform.CreateCustomAudienceRequest
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{calls: make(map[string]int)}
}

func (a *fakeAdapter) record(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls[name]++
}

func (a *fakeAdapter) callCount(name string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[name]
}

func (a *fakeAdapter) CreateCampaign(ctx context.Context, req platform.CreateCampaignRequest) (string, error) {
	a.record("CreateCampaign")
	if a.createCampaignFn != nil {
		return a.createCampaignFn(req)
	}
	return "ext-campaign-1", nil
}

func (a *fakeAdapter) CreateAdSet(ctx context.Context, req platform.CreateAdSetRequest) (string, error) {
	a.record("CreateAdSet")
	a.mu.Lock()
	a.lastAdSetReq = req
	a.mu.Unlock()
	if a.createAdSetFn != nil {
		return a.createAdSetFn(req)
	}
	return "ext-adset-1", nil
}

func (a *fakeAdapter) CreateCreative(ctx context.Context, req platform.CreateCreativeRequest) (string, error) {
	a.record("CreateCreative")
	a.mu.Lock()
	a.lastCreativeReq = req
	a.mu.Unlock()
	if a.createCreativeFn != nil {
		return a.createCreativeFn(req)
	}
	return "ext-creative-1", nil
}

func (a *fakeAdapter) CreateAd(ctx context.Context, req platform.CreateAdRequest) (string, error) {
	a.record("CreateAd")
	if a.createAdFn != nil {
		return a.createAdFn(req)
	}
	return "ext-ad-1", nil
}

func (a *fakeAdapter) CreateCustomAudience(ctx context.Context, req platform.CreateCustomAudienceRequest) (string, error) {
	a.record("CreateCustomAudience")
	a.mu.Lock()
	a.lastAudienceReq = req
	a.mu.Unlock()
	if a.createAudienceFn != nil {
		return a.createAudienceFn(req)
	}
	return "ext-audience-1", nil
}

func (a *fakeAdapter) UploadImage(ctx context.Context, req platform.UploadImageRequest) (string, error) {
	a.record("UploadImage")
	if a.uploadImageFn != nil {
		return a.uploadImageFn(req)
	}
	return "imagehash-1", nil
}

func (a *fakeAdapter) ListCampaigns(ctx context.Context, accountID, cursor string) ([]platform.RemoteCampaign, string, error) {
	a.record("ListCampaigns")
	if a.listCampaignsFn != nil {
		return a.listCampaignsFn(accountID, cursor)
	}
	return nil, "", nil
}

func (a *fakeAdapter) ListAdSets(ctx context.Context, campaignID, cursor string) ([]platform.RemoteAdSet, string, error) {
	a.record("ListAdSets")
	if a.listAdSetsFn != nil {
		return a.listAdSetsFn(campaignID, cursor)
	}
	return nil, "", nil
}

func (a *fakeAdapter) ListAds(ctx context.Context, adSetID, cursor string) ([]platform.RemoteAd, string, error) {
	a.record("ListAds")
	if a.listAdsFn != nil {
		return a.listAdsFn(adSetID, cursor)
	}
	return nil, "", nil
}

func (a *fakeAdapter) GetInsights(ctx context.Context, req platform.InsightsRequest) ([]platform.RawInsightRow, string, error) {
	a.record("GetInsights")
	if a.getInsightsFn != nil {
		return a.getInsightsFn(req)
	}
	return nil, "", nil
}

// fixedResolver is an AudienceResolver returning a canned identifier list
type fixedResolver struct {
	identifiers []string
}

func (r fixedResolver) Resolve(ctx context.Context, segmentIDs []int64) []string {
	return r.identifiers
}
