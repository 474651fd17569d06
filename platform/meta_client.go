package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the connection settings for one Meta ad account integration
type Config struct {
	BaseURL     string
	APIVersion  string
	AccessToken string
	Timeout     time.Duration
	PageSize    int
}

// MetaClient implements Adapter against the Meta marketing API
type MetaClient struct {
	cfg    Config
	client *http.Client
}

// NewMetaClient creates a Meta adapter from config
func NewMetaClient(cfg Config) *MetaClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://graph.facebook.com"
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "v21.0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	return &MetaClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (c *MetaClient) endpoint(parts ...string) string {
	return c.cfg.BaseURL + "/" + c.cfg.APIVersion + "/" + strings.Join(parts, "/")
}

// metaErrorEnvelope is the platform's error response body
type metaErrorEnvelope struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
	} `json:"error"`
}

// listEnvelope is the platform's paginated list response body
type listEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Paging struct {
		Cursors struct {
			After string `json:"after"`
		} `json:"cursors"`
		Next string `json:"next"`
	} `json:"paging"`
}

func (c *MetaClient) decodeError(op string, statusCode int, body []byte) error {
	var env metaErrorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		return &Error{
			Op:         op,
			StatusCode: statusCode,
			Code:       env.Error.Code,
			Subcode:    env.Error.ErrorSubcode,
			Message:    env.Error.Message,
		}
	}
	return &Error{Op: op, StatusCode: statusCode, Message: strings.TrimSpace(string(body))}
}

// postForm submits a form-encoded create call and decodes the response into out
func (c *MetaClient) postForm(ctx context.Context, op, endpoint string, form url.Values, out any) error {
	form.Set("access_token", c.cfg.AccessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.decodeError(op, resp.StatusCode, body)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%s: failed to decode response: %w", op, err)
		}
	}
	return nil
}

// getList fetches one page of a list endpoint and returns the raw data
// array plus the cursor for the next page ("" when done)
func (c *MetaClient) getList(ctx context.Context, op, endpoint string, query url.Values) (json.RawMessage, string, error) {
	query.Set("access_token", c.cfg.AccessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", c.decodeError(op, resp.StatusCode, body)
	}
	var env listEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, "", fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	// The platform keeps returning an 'after' cursor on the final page;
	// only a present 'next' link means there is more to fetch.
	cursor := ""
	if env.Paging.Next != "" {
		cursor = env.Paging.Cursors.After
	}
	return env.Data, cursor, nil
}

type idResponse struct {
	ID string `json:"id"`
}

// CreateCampaign creates the top-level remote campaign object
func (c *MetaClient) CreateCampaign(ctx context.Context, req CreateCampaignRequest) (string, error) {
	form := url.Values{}
	form.Set("name", req.Name)
	form.Set("objective", req.Objective)
	form.Set("status", req.Status)
	categories := req.Categories
	if categories == nil {
		categories = []string{}
	}
	b, _ := json.Marshal(categories)
	form.Set("special_ad_categories", string(b))

	var out idResponse
	if err := c.postForm(ctx, "create campaign", c.endpoint("act_"+req.AccountID, "campaigns"), form, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// CreateAdSet creates an ad set carrying budget and targeting
func (c *MetaClient) CreateAdSet(ctx context.Context, req CreateAdSetRequest) (string, error) {
	targeting := map[string]any{}
	if len(req.Targeting.Countries) > 0 {
		targeting["geo_locations"] = map[string]any{"countries": req.Targeting.Countries}
	}
	if req.Targeting.AgeMin != nil {
		targeting["age_min"] = *req.Targeting.AgeMin
	}
	if req.Targeting.AgeMax != nil {
		targeting["age_max"] = *req.Targeting.AgeMax
	}
	if req.Targeting.CustomAudienceID != nil {
		targeting["custom_audiences"] = []map[string]string{{"id": *req.Targeting.CustomAudienceID}}
	}
	tb, _ := json.Marshal(targeting)

	form := url.Values{}
	form.Set("name", req.Name)
	form.Set("campaign_id", req.CampaignID)
	form.Set("daily_budget", strconv.FormatUint(req.DailyBudgetCents, 10))
	form.Set("targeting", string(tb))
	form.Set("status", req.Status)
	form.Set("billing_event", "IMPRESSIONS")

	var out idResponse
	if err := c.postForm(ctx, "create ad set", c.endpoint("act_"+req.AccountID, "adsets"), form, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// CreateCreative creates a creative object bound to a page
func (c *MetaClient) CreateCreative(ctx context.Context, req CreateCreativeRequest) (string, error) {
	linkData := map[string]any{
		"message":     req.PrimaryText,
		"link":        req.LandingURL,
		"name":        req.Headline,
		"description": req.Description,
	}
	if req.ImageHash != nil && *req.ImageHash != "" {
		linkData["image_hash"] = *req.ImageHash
	}
	storySpec := map[string]any{
		"page_id":   req.PageID,
		"link_data": linkData,
	}
	sb, _ := json.Marshal(storySpec)

	form := url.Values{}
	form.Set("name", req.Name)
	form.Set("object_story_spec", string(sb))

	var out idResponse
	if err := c.postForm(ctx, "create creative", c.endpoint("act_"+req.AccountID, "adcreatives"), form, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// CreateAd creates the ad object referencing a creative
func (c *MetaClient) CreateAd(ctx context.Context, req CreateAdRequest) (string, error) {
	creative, _ := json.Marshal(map[string]string{"creative_id": req.CreativeID})

	form := url.Values{}
	form.Set("name", req.Name)
	form.Set("adset_id", req.AdSetID)
	form.Set("creative", string(creative))
	form.Set("status", req.Status)

	var out idResponse
	if err := c.postForm(ctx, "create ad", c.endpoint("act_"+req.AccountID, "ads"), form, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// CreateCustomAudience creates a custom audience and seeds it with identifiers
func (c *MetaClient) CreateCustomAudience(ctx context.Context, req CreateCustomAudienceRequest) (string, error) {
	data := make([][]string, 0, len(req.Identifiers))
	for _, id := range req.Identifiers {
		data = append(data, []string{id})
	}
	payload, _ := json.Marshal(map[string]any{
		"schema": []string{string(req.IDType)},
		"data":   data,
	})

	form := url.Values{}
	form.Set("name", req.Name)
	form.Set("subtype", "CUSTOM")
	form.Set("customer_file_source", "USER_PROVIDED_ONLY")
	form.Set("payload", string(payload))

	var out idResponse
	if err := c.postForm(ctx, "create custom audience", c.endpoint("act_"+req.AccountID, "customaudiences"), form, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// UploadImage uploads a local image file and returns its hash
func (c *MetaClient) UploadImage(ctx context.Context, req UploadImageRequest) (string, error) {
	f, err := os.Open(req.LocalPath)
	if err != nil {
		return "", fmt.Errorf("failed to open image %s: %w", req.LocalPath, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("filename", filepath.Base(req.LocalPath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("failed to read image %s: %w", req.LocalPath, err)
	}
	if err := w.WriteField("access_token", c.cfg.AccessToken); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("act_"+req.AccountID, "adimages"), &buf)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", c.decodeError("upload image", resp.StatusCode, body)
	}

	var out struct {
		Images map[string]struct {
			Hash string `json:"hash"`
		} `json:"images"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("upload image: failed to decode response: %w", err)
	}
	for _, img := range out.Images {
		if img.Hash != "" {
			return img.Hash, nil
		}
	}
	return "", &Error{Op: "upload image", StatusCode: resp.StatusCode, Message: "no image hash in response"}
}

// remoteObjectTime handles the platform's non-RFC3339 timestamp format
type remoteObjectTime struct {
	time.Time
}

func (t *remoteObjectTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05-0700", time.RFC3339} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("cannot parse time %q", s)
}

func (t *remoteObjectTime) ptr() *time.Time {
	if t == nil || t.Time.IsZero() {
		return nil
	}
	tt := t.Time.UTC()
	return &tt
}

// ListCampaigns returns one page of campaigns under an account
func (c *MetaClient) ListCampaigns(ctx context.Context, accountID, cursor string) ([]RemoteCampaign, string, error) {
	query := url.Values{}
	query.Set("fields", "id,name,status,effective_status,objective,start_time,stop_time")
	query.Set("limit", strconv.Itoa(c.cfg.PageSize))
	if cursor != "" {
		query.Set("after", cursor)
	}
	data, next, err := c.getList(ctx, "list campaigns", c.endpoint("act_"+accountID, "campaigns"), query)
	if err != nil {
		return nil, "", err
	}

	var raw []struct {
		ID              string            `json:"id"`
		Name            string            `json:"name"`
		Status          string            `json:"status"`
		EffectiveStatus string            `json:"effective_status"`
		Objective       string            `json:"objective"`
		StartTime       *remoteObjectTime `json:"start_time"`
		StopTime        *remoteObjectTime `json:"stop_time"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, "", fmt.Errorf("list campaigns: failed to decode data: %w", err)
	}
	items := make([]RemoteCampaign, 0, len(raw))
	for _, r := range raw {
		items = append(items, RemoteCampaign{
			ID:              r.ID,
			Name:            r.Name,
			Status:          r.Status,
			EffectiveStatus: r.EffectiveStatus,
			Objective:       r.Objective,
			StartTime:       r.StartTime.ptr(),
			StopTime:        r.StopTime.ptr(),
		})
	}
	return items, next, nil
}

// ListAdSets returns one page of ad sets under a campaign
func (c *MetaClient) ListAdSets(ctx context.Context, campaignID, cursor string) ([]RemoteAdSet, string, error) {
	query := url.Values{}
	query.Set("fields", "id,campaign_id,name,status,effective_status,daily_budget,start_time,end_time")
	query.Set("limit", strconv.Itoa(c.cfg.PageSize))
	if cursor != "" {
		query.Set("after", cursor)
	}
	data, next, err := c.getList(ctx, "list ad sets", c.endpoint(campaignID, "adsets"), query)
	if err != nil {
		return nil, "", err
	}

	var raw []struct {
		ID              string            `json:"id"`
		CampaignID      string            `json:"campaign_id"`
		Name            string            `json:"name"`
		Status          string            `json:"status"`
		EffectiveStatus string            `json:"effective_status"`
		DailyBudget     string            `json:"daily_budget"`
		StartTime       *remoteObjectTime `json:"start_time"`
		EndTime         *remoteObjectTime `json:"end_time"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, "", fmt.Errorf("list ad sets: failed to decode data: %w", err)
	}
	items := make([]RemoteAdSet, 0, len(raw))
	for _, r := range raw {
		items = append(items, RemoteAdSet{
			ID:              r.ID,
			CampaignID:      r.CampaignID,
			Name:            r.Name,
			Status:          r.Status,
			EffectiveStatus: r.EffectiveStatus,
			DailyBudget:     r.DailyBudget,
			StartTime:       r.StartTime.ptr(),
			EndTime:         r.EndTime.ptr(),
		})
	}
	return items, next, nil
}

// ListAds returns one page of ads under an ad set
func (c *MetaClient) ListAds(ctx context.Context, adSetID, cursor string) ([]RemoteAd, string, error) {
	query := url.Values{}
	query.Set("fields", "id,adset_id,name,status,effective_status,creative{id}")
	query.Set("limit", strconv.Itoa(c.cfg.PageSize))
	if cursor != "" {
		query.Set("after", cursor)
	}
	data, next, err := c.getList(ctx, "list ads", c.endpoint(adSetID, "ads"), query)
	if err != nil {
		return nil, "", err
	}

	var raw []struct {
		ID              string `json:"id"`
		AdSetID         string `json:"adset_id"`
		Name            string `json:"name"`
		Status          string `json:"status"`
		EffectiveStatus string `json:"effective_status"`
		Creative        struct {
			ID string `json:"id"`
		} `json:"creative"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, "", fmt.Errorf("list ads: failed to decode data: %w", err)
	}
	items := make([]RemoteAd, 0, len(raw))
	for _, r := range raw {
		items = append(items, RemoteAd{
			ID:              r.ID,
			AdSetID:         r.AdSetID,
			Name:            r.Name,
			Status:          r.Status,
			EffectiveStatus: r.EffectiveStatus,
			CreativeID:      r.Creative.ID,
		})
	}
	return items, next, nil
}

// GetInsights returns one page of daily insight rows for one object
func (c *MetaClient) GetInsights(ctx context.Context, req InsightsRequest) ([]RawInsightRow, string, error) {
	timeRange, _ := json.Marshal(map[string]string{
		"since": req.Window.Since.Format("2006-01-02"),
		"until": req.Window.Until.Format("2006-01-02"),
	})

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = c.cfg.PageSize
	}

	query := url.Values{}
	query.Set("fields", "date_start,date_stop,impressions,clicks,spend,cpc,ctr,actions,action_values")
	query.Set("level", req.Level)
	query.Set("time_range", string(timeRange))
	query.Set("time_increment", "1")
	query.Set("limit", strconv.Itoa(pageSize))
	if req.Cursor != "" {
		query.Set("after", req.Cursor)
	}

	data, next, err := c.getList(ctx, "get insights", c.endpoint(req.ObjectID, "insights"), query)
	if err != nil {
		return nil, "", err
	}

	var rows []RawInsightRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, "", fmt.Errorf("get insights: failed to decode data: %w", err)
	}
	return rows, next, nil
}
