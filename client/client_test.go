package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/akili/shulenet/core"
)

var schoolCfg = ResourceConfig{
	Name:       "school",
	Label:      "Schools",
	ListPath:   "/v1/admin/schools",
	ActionPath: "/v1/admin/schools/actions",
	Statuses:   true,
}

var brandCfg = ResourceConfig{
	Name:        "brand",
	Label:       "Brands",
	ListPath:    "/v1/admin/brands",
	ActionPath:  "/v1/admin/brands/actions",
	ParentParam: "category_id",
}

// portalStub fakes the two endpoints a Manager talks to. Action behavior is
// driven by the onAction callback; the list always serves the current items.
type portalStub struct {
	t         *testing.T
	cfg       ResourceConfig
	items     []Item
	listCalls int
	listQuery url.Values
	actions   []url.Values
	onAction  func(form url.Values) Result
}

func (s *portalStub) server() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.ListPath, func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
			s.t.Errorf("unexpected Authorization header %q", auth)
		}
		s.listCalls++
		s.listQuery = r.URL.Query()
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    s.items,
			"meta":    core.Page{Total: len(s.items), NumPages: 1, Number: 1, Size: 20},
		})
	})
	mux.HandleFunc(s.cfg.ActionPath, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			s.t.Errorf("parsing action form: %v", err)
		}
		s.actions = append(s.actions, r.PostForm)
		res := Result{Success: true, Message: "ok"}
		if s.onAction != nil {
			res = s.onAction(r.PostForm)
		}
		_ = json.NewEncoder(w).Encode(res)
	})
	return httptest.NewServer(mux)
}

func (s *portalStub) lastAction() url.Values {
	if len(s.actions) == 0 {
		return url.Values{}
	}
	return s.actions[len(s.actions)-1]
}

func newStub(t *testing.T, cfg ResourceConfig, items ...Item) *portalStub {
	return &portalStub{t: t, cfg: cfg, items: items}
}

func Test_Manager_Load(t *testing.T) {
	stub := newStub(t, schoolCfg,
		Item{"id": float64(1), "name": "Mlimani Academy"},
		Item{"id": float64(2), "name": "Tumaini High"},
	)
	srv := stub.server()
	defer srv.Close()

	m := NewManager(srv.URL, "test-token", schoolCfg, srv.Client(), nil)
	err := m.Load(context.Background(), core.ListParams{Status: "pending", Search: "mli", Page: 2})
	assert.NoError(t, err)

	assert.Len(t, m.Items(), 2)
	assert.Equal(t, "Mlimani Academy", m.Items()[0]["name"])
	assert.Equal(t, 2, m.Meta().Total)

	// filter/search/page travel as query params
	assert.Equal(t, "pending", stub.listQuery.Get("filter"))
	assert.Equal(t, "mli", stub.listQuery.Get("search"))
	assert.Equal(t, "2", stub.listQuery.Get("page"))
}

func Test_Manager_Load_parentFilter(t *testing.T) {
	stub := newStub(t, brandCfg, Item{"id": float64(1), "name": "Arusha Books"})
	srv := stub.server()
	defer srv.Close()

	m := NewManager(srv.URL, "test-token", brandCfg, srv.Client(), nil)
	assert.NoError(t, m.Load(context.Background(), core.ListParams{ParentID: 3}))
	assert.Equal(t, "3", stub.listQuery.Get("category_id"))

	// resources without a parent param never leak the filter
	schoolStub := newStub(t, schoolCfg)
	schoolSrv := schoolStub.server()
	defer schoolSrv.Close()

	m = NewManager(schoolSrv.URL, "test-token", schoolCfg, schoolSrv.Client(), nil)
	assert.NoError(t, m.Load(context.Background(), core.ListParams{ParentID: 3}))
	_, present := schoolStub.listQuery["school_id"]
	assert.False(t, present)
}

func Test_Manager_SubmitForm_addVsUpdate(t *testing.T) {
	stub := newStub(t, schoolCfg)
	srv := stub.server()
	defer srv.Close()

	m := NewManager(srv.URL, "test-token", schoolCfg, srv.Client(), nil)

	// no binding: add_
	res, err := m.SubmitForm(context.Background(), url.Values{"name": {"Mlimani Academy"}})
	assert.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "add_school", stub.lastAction().Get("action"))
	assert.Empty(t, stub.lastAction().Get("id"))
	assert.Equal(t, 1, stub.listCalls) // success reloads the list

	// bound row: update_ with the bound id
	m.Bind(7)
	_, err = m.SubmitForm(context.Background(), url.Values{"name": {"Mlimani Academy"}})
	assert.NoError(t, err)
	assert.Equal(t, "update_school", stub.lastAction().Get("action"))
	assert.Equal(t, "7", stub.lastAction().Get("id"))
	assert.Equal(t, 0, m.BoundID()) // success clears the binding
}

func Test_Manager_SubmitForm_failureKeepsBinding(t *testing.T) {
	stub := newStub(t, schoolCfg)
	stub.onAction = func(url.Values) Result {
		return Result{Success: false, Message: "a school with this name or contact email already exists"}
	}
	srv := stub.server()
	defer srv.Close()

	var alerts []string
	m := NewManager(srv.URL, "test-token", schoolCfg, srv.Client(), func(msg string) { alerts = append(alerts, msg) })
	m.Bind(7)

	res, err := m.SubmitForm(context.Background(), url.Values{"name": {"Mlimani Academy"}})
	assert.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 7, m.BoundID()) // the caller's form state is not dropped
	assert.Equal(t, 0, stub.listCalls)
	// the server message is shown verbatim
	assert.Equal(t, []string{"a school with this name or contact email already exists"}, alerts)
}

func Test_Manager_deleteIsTwoStep(t *testing.T) {
	stub := newStub(t, schoolCfg,
		Item{"id": float64(1), "name": "Mlimani Academy"},
		Item{"id": float64(2), "name": "Tumaini High"},
	)
	srv := stub.server()
	defer srv.Close()

	m := NewManager(srv.URL, "test-token", schoolCfg, srv.Client(), nil)
	assert.NoError(t, m.Load(context.Background(), core.ListParams{}))

	// nothing staged
	_, err := m.ConfirmDelete(context.Background())
	assert.Equal(t, ErrNoPendingDelete, err)

	// staging sends nothing
	m.RequestDelete(1)
	assert.Empty(t, stub.actions)

	// cancel forgets the staging
	m.CancelDelete()
	_, err = m.ConfirmDelete(context.Background())
	assert.Equal(t, ErrNoPendingDelete, err)

	// confirm sends the delete and drops the row optimistically, no reload
	m.RequestDelete(1)
	listCallsBefore := stub.listCalls
	res, err := m.ConfirmDelete(context.Background())
	assert.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "delete_school", stub.lastAction().Get("action"))
	assert.Equal(t, "1", stub.lastAction().Get("id"))
	assert.Equal(t, listCallsBefore, stub.listCalls)
	assert.Len(t, m.Items(), 1)
	assert.Equal(t, "Tumaini High", m.Items()[0]["name"])
}

func Test_Manager_statusActions(t *testing.T) {
	stub := newStub(t, schoolCfg,
		Item{"id": float64(1), "name": "Mlimani Academy"},
		Item{"id": float64(2), "name": "Tumaini High"},
	)
	srv := stub.server()
	defer srv.Close()

	m := NewManager(srv.URL, "test-token", schoolCfg, srv.Client(), nil)
	assert.NoError(t, m.Load(context.Background(), core.ListParams{}))
	listCallsBefore := stub.listCalls

	// approve reloads so the new status shows
	res, err := m.Approve(context.Background(), 1)
	assert.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "approve_school", stub.lastAction().Get("action"))
	assert.Equal(t, listCallsBefore+1, stub.listCalls)

	// reject drops the row without a reload
	listCallsBefore = stub.listCalls
	res, err = m.Reject(context.Background(), 1)
	assert.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, listCallsBefore, stub.listCalls)
	assert.Len(t, m.Items(), 1)
}

func Test_Manager_statusActionsUnavailableForCatalog(t *testing.T) {
	m := NewManager("http://localhost", "test-token", brandCfg, nil, nil)

	_, err := m.Approve(context.Background(), 1)
	assert.Equal(t, ErrActionUnavailable, err)
	_, err = m.Suspend(context.Background(), 1)
	assert.Equal(t, ErrActionUnavailable, err)
}

func Test_Manager_transportFailureAlertsGenerically(t *testing.T) {
	stub := newStub(t, schoolCfg)
	srv := stub.server()
	srv.Close() // connection refused from here on

	var alerts []string
	m := NewManager(srv.URL, "test-token", schoolCfg, nil, func(msg string) { alerts = append(alerts, msg) })

	_, err := m.SubmitForm(context.Background(), url.Values{"name": {"Mlimani Academy"}})
	assert.Error(t, err)
	assert.Equal(t, []string{MsgTryAgain}, alerts)
}

func Test_Manager_Details(t *testing.T) {
	stub := newStub(t, schoolCfg)
	stub.onAction = func(form url.Values) Result {
		assert.Equal(t, "get_school_details", form.Get("action"))
		data, _ := json.Marshal(map[string]interface{}{"id": 1, "name": "Mlimani Academy", "user_count": 12})
		return Result{Success: true, Data: data}
	}
	srv := stub.server()
	defer srv.Close()

	m := NewManager(srv.URL, "test-token", schoolCfg, srv.Client(), nil)

	var details struct {
		ID        int    `json:"id"`
		Name      string `json:"name"`
		UserCount int    `json:"user_count"`
	}
	assert.NoError(t, m.Details(context.Background(), 1, &details))
	assert.Equal(t, "Mlimani Academy", details.Name)
	assert.Equal(t, 12, details.UserCount)
	assert.Equal(t, "1", stub.lastAction().Get("id"))
}

func Test_Manager_Details_failure(t *testing.T) {
	stub := newStub(t, schoolCfg)
	stub.onAction = func(url.Values) Result {
		return Result{Success: false, Message: "school not found"}
	}
	srv := stub.server()
	defer srv.Close()

	var alerts []string
	m := NewManager(srv.URL, "test-token", schoolCfg, srv.Client(), func(msg string) { alerts = append(alerts, msg) })

	err := m.Details(context.Background(), 404, nil)
	assert.EqualError(t, err, "school not found")
	assert.Equal(t, []string{"school not found"}, alerts)
}

func Test_Manager_singleRequestInFlight(t *testing.T) {
	m := NewManager("http://localhost", "test-token", schoolCfg, nil, nil)
	m.inFlight = true

	_, err := m.SubmitForm(context.Background(), url.Values{})
	assert.Equal(t, ErrRequestInFlight, err)
	_, err = m.postAction(context.Background(), "approve_school", url.Values{})
	assert.Equal(t, ErrRequestInFlight, err)
}
