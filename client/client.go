// Package client is the Go SDK for the admin portal API. One generic Manager
// drives any portal resource (schools, users, categories, brands, products):
// the per-resource differences are confined to a ResourceConfig.
package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/akili/shulenet/core"
)

// MsgTryAgain is shown for transport failures; the server message is shown
// verbatim for application failures. Both travel through the same alert path.
const MsgTryAgain = "something went wrong, please try again"

var (
	ErrRequestInFlight   = errors.New("a request is already in flight")
	ErrNoPendingDelete   = errors.New("no delete pending confirmation")
	ErrActionUnavailable = errors.New("action unavailable for this resource")
)

type (
	// ResourceConfig names one portal resource and its endpoints. Name is the
	// singular wire name the action vocabulary is built from: "school" yields
	// add_school, update_school, delete_school, get_school_details.
	ResourceConfig struct {
		Name       string
		Label      string
		ListPath   string
		ActionPath string

		// ParentParam is the query parameter carrying ListParams.ParentID on the
		// list view ("school_id" for users, "category_id" for brands, "brand_id"
		// for products). Empty for top-level resources.
		ParentParam string

		// Statuses reports whether the resource carries the approval/suspension
		// lifecycle (schools and users do, catalog resources do not).
		Statuses bool
	}

	// Item is one row of a list view as the server rendered it.
	Item map[string]interface{}

	// Result is the uniform action envelope.
	Result struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data,omitempty"`
	}

	listEnvelope struct {
		Success bool      `json:"success"`
		Message string    `json:"message,omitempty"`
		Data    []Item    `json:"data"`
		Meta    core.Page `json:"meta"`
	}

	// Manager drives one resource: it caches the last loaded page, tracks the
	// bound row of the edit form, stages delete confirmations, and funnels
	// every failure through a single alert callback.
	Manager struct {
		cfg     ResourceConfig
		baseURL string
		token   string
		http    *http.Client
		alertFn func(string)

		mu            sync.Mutex
		inFlight      bool
		items         []Item
		meta          core.Page
		params        core.ListParams
		boundID       int
		pendingDelete int
	}
)

func NewManager(baseURL, token string, cfg ResourceConfig, httpClient *http.Client, alertFn func(string)) *Manager {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if alertFn == nil {
		alertFn = func(string) {}
	}
	return &Manager{
		cfg:     cfg,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
		alertFn: alertFn,
	}
}

// Items returns the cached rows of the last successful Load.
func (m *Manager) Items() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]Item, len(m.items))
	copy(items, m.items)
	return items
}

func (m *Manager) Meta() core.Page {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meta
}

// Bind marks an existing row as the edit target; the next SubmitForm becomes
// an update_ action. ClearBinding reverts to add_ mode.
func (m *Manager) Bind(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boundID = id
}

func (m *Manager) ClearBinding() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boundID = 0
}

func (m *Manager) BoundID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.boundID
}

// Load fetches one page of the list view and replaces the cache.
func (m *Manager) Load(ctx context.Context, params core.ListParams) error {
	m.mu.Lock()
	m.params = params
	m.mu.Unlock()
	return m.reload(ctx)
}

func (m *Manager) reload(ctx context.Context) error {
	m.mu.Lock()
	params := m.params
	m.mu.Unlock()

	q := make(url.Values)
	if params.Status != "" {
		q.Set("filter", params.Status)
	}
	if params.Search != "" {
		q.Set("search", params.Search)
	}
	if params.Role != "" {
		q.Set("role", params.Role)
	}
	if m.cfg.ParentParam != "" && params.ParentID > 0 {
		q.Set(m.cfg.ParentParam, strconv.Itoa(params.ParentID))
	}
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+m.cfg.ListPath+"?"+q.Encode(), nil)
	if err != nil {
		return errors.Wrap(err, "building list request")
	}
	req.Header.Set("Authorization", "Bearer "+m.token)

	res, err := m.http.Do(req)
	if err != nil {
		m.alertFn(MsgTryAgain)
		return errors.Wrap(err, "loading "+m.cfg.Name+" list")
	}
	defer func() { _ = res.Body.Close() }()

	var envelope listEnvelope
	if err = json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		m.alertFn(MsgTryAgain)
		return errors.Wrap(err, "decoding "+m.cfg.Name+" list")
	}
	if !envelope.Success {
		m.alertFn(envelope.Message)
		return errors.New(envelope.Message)
	}

	m.mu.Lock()
	m.items = envelope.Data
	m.meta = envelope.Meta
	m.mu.Unlock()
	return nil
}

// SubmitForm sends the edit form. A bound row makes it an update_ action,
// otherwise an add_ action. On an application failure the binding survives so
// the caller's form state is not dropped; on success it is cleared and the
// list reloaded.
func (m *Manager) SubmitForm(ctx context.Context, fields url.Values) (Result, error) {
	m.mu.Lock()
	boundID := m.boundID
	m.mu.Unlock()

	action := "add_" + m.cfg.Name
	if boundID > 0 {
		action = "update_" + m.cfg.Name
		fields.Set("id", strconv.Itoa(boundID))
	}

	res, err := m.postAction(ctx, action, fields)
	if err != nil {
		return Result{}, err
	}
	if !res.Success {
		return res, nil
	}

	m.ClearBinding()
	_ = m.reload(ctx)
	return res, nil
}

// RequestDelete stages a delete; nothing is sent until ConfirmDelete.
func (m *Manager) RequestDelete(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingDelete = id
}

func (m *Manager) CancelDelete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingDelete = 0
}

// ConfirmDelete sends the staged delete. On success the row is dropped from
// the cache without a reload.
func (m *Manager) ConfirmDelete(ctx context.Context) (Result, error) {
	m.mu.Lock()
	id := m.pendingDelete
	m.mu.Unlock()
	if id == 0 {
		return Result{}, ErrNoPendingDelete
	}

	fields := make(url.Values)
	fields.Set("id", strconv.Itoa(id))
	res, err := m.postAction(ctx, "delete_"+m.cfg.Name, fields)
	if err != nil {
		return Result{}, err
	}

	m.mu.Lock()
	m.pendingDelete = 0
	m.mu.Unlock()
	if res.Success {
		m.removeCached(id)
	}
	return res, nil
}

// Approve, Reject, Suspend and Activate drive the lifecycle of schools and
// users. Reject drops the row from the cache; the others reload the list so
// the new status shows.

func (m *Manager) Approve(ctx context.Context, id int) (Result, error) {
	return m.statusAction(ctx, "approve_"+m.cfg.Name, id, false)
}

func (m *Manager) Reject(ctx context.Context, id int) (Result, error) {
	return m.statusAction(ctx, "reject_"+m.cfg.Name, id, true)
}

func (m *Manager) Suspend(ctx context.Context, id int) (Result, error) {
	return m.statusAction(ctx, "suspend_"+m.cfg.Name, id, false)
}

func (m *Manager) Activate(ctx context.Context, id int) (Result, error) {
	return m.statusAction(ctx, "activate_"+m.cfg.Name, id, false)
}

func (m *Manager) statusAction(ctx context.Context, action string, id int, removeOnSuccess bool) (Result, error) {
	if !m.cfg.Statuses {
		return Result{}, ErrActionUnavailable
	}

	fields := make(url.Values)
	fields.Set("id", strconv.Itoa(id))
	res, err := m.postAction(ctx, action, fields)
	if err != nil {
		return Result{}, err
	}
	if res.Success {
		if removeOnSuccess {
			m.removeCached(id)
		} else {
			_ = m.reload(ctx)
		}
	}
	return res, nil
}

// Details fetches the detail payload of one row.
func (m *Manager) Details(ctx context.Context, id int, out interface{}) error {
	fields := make(url.Values)
	fields.Set("id", strconv.Itoa(id))
	res, err := m.postAction(ctx, "get_"+m.cfg.Name+"_details", fields)
	if err != nil {
		return err
	}
	if !res.Success {
		return errors.New(res.Message)
	}
	if out == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal(res.Data, out), "decoding "+m.cfg.Name+" details")
}

// postAction sends one action request. Only one may be in flight at a time;
// a second submit is refused before anything reaches the wire.
func (m *Manager) postAction(ctx context.Context, action string, fields url.Values) (Result, error) {
	m.mu.Lock()
	if m.inFlight {
		m.mu.Unlock()
		return Result{}, ErrRequestInFlight
	}
	m.inFlight = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.inFlight = false
		m.mu.Unlock()
	}()

	fields.Set("action", action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+m.cfg.ActionPath, strings.NewReader(fields.Encode()))
	if err != nil {
		return Result{}, errors.Wrap(err, "building action request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+m.token)

	res, err := m.http.Do(req)
	if err != nil {
		m.alertFn(MsgTryAgain)
		return Result{}, errors.Wrap(err, "sending "+action)
	}
	defer func() { _ = res.Body.Close() }()

	var result Result
	if err = json.NewDecoder(res.Body).Decode(&result); err != nil {
		m.alertFn(MsgTryAgain)
		return Result{}, errors.Wrap(err, "decoding "+action+" response")
	}
	if !result.Success {
		m.alertFn(result.Message)
	}
	return result, nil
}

func (m *Manager) removeCached(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.items[:0]
	for _, item := range m.items {
		if itemID(item) != id {
			kept = append(kept, item)
		}
	}
	m.items = kept
}

func itemID(item Item) int {
	if raw, ok := item["id"]; ok {
		if f, ok := raw.(float64); ok { // JSON numbers decode as float64
			return int(f)
		}
	}
	return 0
}
