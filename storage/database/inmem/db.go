package inmemdb

import (
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/akili/shulenet/core"
	"github.com/akili/shulenet/core/catalog"
	"github.com/akili/shulenet/core/school"
	"github.com/akili/shulenet/core/user"
)

// Dependent rows. Only the columns the cascades and counters care about.
type (
	Post struct {
		ID     int
		UserID int
	}
	PostLike struct {
		ID     int
		PostID int
		UserID int
	}
	PostComment struct {
		ID     int
		PostID int
		UserID int
	}
	Event struct {
		ID       int
		SchoolID int
	}
	EventRSVP struct {
		ID      int
		EventID int
		UserID  int
	}
	Opportunity struct {
		ID       int
		SchoolID int
	}
	OpportunityInterest struct {
		ID            int
		OpportunityID int
		UserID        int
	}
	Connection struct {
		ID     int
		UserID int
		PeerID int
	}
)

// DB is an in-memory stand-in for the SQL storage, used in tests and local
// development without Postgres.
type DB struct {
	sync.RWMutex
	pkCount int

	schools    map[int]*school.School
	users      map[int]*user.User
	categories map[int]*catalog.Category
	brands     map[int]*catalog.Brand
	products   map[int]*catalog.Product

	posts                map[int]*Post
	postLikes            map[int]*PostLike
	postComments         map[int]*PostComment
	events               map[int]*Event
	eventRSVPs           map[int]*EventRSVP
	opportunities        map[int]*Opportunity
	opportunityInterests map[int]*OpportunityInterest
	connections          map[int]*Connection

	failStep string
}

func Open() *DB {
	return &DB{
		schools:              make(map[int]*school.School),
		users:                make(map[int]*user.User),
		categories:           make(map[int]*catalog.Category),
		brands:               make(map[int]*catalog.Brand),
		products:             make(map[int]*catalog.Product),
		posts:                make(map[int]*Post),
		postLikes:            make(map[int]*PostLike),
		postComments:         make(map[int]*PostComment),
		events:               make(map[int]*Event),
		eventRSVPs:           make(map[int]*EventRSVP),
		opportunities:        make(map[int]*Opportunity),
		opportunityInterests: make(map[int]*OpportunityInterest),
		connections:          make(map[int]*Connection),
	}
}

// caller must hold the write lock
func (db *DB) nextPK() int {
	db.pkCount++
	return db.pkCount
}

// FailOnStep makes the next cascading mutation abort at the named step without
// applying anything, mimicking a mid-transaction failure.
func (db *DB) FailOnStep(name string) {
	db.Lock()
	defer db.Unlock()
	db.failStep = name
}

// step is one stage of a cascading mutation. Mutations are applied only after
// every step clears the failure check, so an injected failure leaves the store
// untouched.
type step struct {
	name  string
	apply func()
}

// caller must hold the write lock
func (db *DB) runSteps(steps []step) error {
	for _, s := range steps {
		if db.failStep == s.name {
			db.failStep = ""
			return errors.Errorf("%s: injected failure", s.name)
		}
	}
	for _, s := range steps {
		s.apply()
	}
	return nil
}

// Seed helpers for tests.

func (db *DB) AddPost(userID int) int {
	db.Lock()
	defer db.Unlock()
	id := db.nextPK()
	db.posts[id] = &Post{ID: id, UserID: userID}
	return id
}

func (db *DB) AddPostLike(postID, userID int) int {
	db.Lock()
	defer db.Unlock()
	id := db.nextPK()
	db.postLikes[id] = &PostLike{ID: id, PostID: postID, UserID: userID}
	return id
}

func (db *DB) AddPostComment(postID, userID int) int {
	db.Lock()
	defer db.Unlock()
	id := db.nextPK()
	db.postComments[id] = &PostComment{ID: id, PostID: postID, UserID: userID}
	return id
}

func (db *DB) AddEvent(schoolID int) int {
	db.Lock()
	defer db.Unlock()
	id := db.nextPK()
	db.events[id] = &Event{ID: id, SchoolID: schoolID}
	return id
}

func (db *DB) AddEventRSVP(eventID, userID int) int {
	db.Lock()
	defer db.Unlock()
	id := db.nextPK()
	db.eventRSVPs[id] = &EventRSVP{ID: id, EventID: eventID, UserID: userID}
	return id
}

func (db *DB) AddOpportunity(schoolID int) int {
	db.Lock()
	defer db.Unlock()
	id := db.nextPK()
	db.opportunities[id] = &Opportunity{ID: id, SchoolID: schoolID}
	return id
}

func (db *DB) AddOpportunityInterest(opportunityID, userID int) int {
	db.Lock()
	defer db.Unlock()
	id := db.nextPK()
	db.opportunityInterests[id] = &OpportunityInterest{ID: id, OpportunityID: opportunityID, UserID: userID}
	return id
}

func (db *DB) AddConnection(userID, peerID int) int {
	db.Lock()
	defer db.Unlock()
	id := db.nextPK()
	db.connections[id] = &Connection{ID: id, UserID: userID, PeerID: peerID}
	return id
}

// Counts for test assertions.

func (db *DB) CountPosts() int {
	db.RLock()
	defer db.RUnlock()
	return len(db.posts)
}

func (db *DB) CountConnections() int {
	db.RLock()
	defer db.RUnlock()
	return len(db.connections)
}

func (db *DB) CountUsers() int {
	db.RLock()
	defer db.RUnlock()
	return len(db.users)
}

func (db *DB) CountSchools() int {
	db.RLock()
	defer db.RUnlock()
	return len(db.schools)
}

// matchStatus mirrors the status filter predicates of the SQL storage.
func matchStatus(filter string, approved bool, status string) bool {
	switch filter {
	case core.StatusFilterPending:
		return !approved
	case core.StatusFilterApproved:
		return approved
	case core.StatusFilterSuspended:
		return status == "suspended"
	}
	return true
}

func matchSearch(term string, fields ...string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// paginate clamps the page and returns the slice bounds for it.
func paginate(total, number, size int) (core.Page, int, int) {
	page := core.NewPage(total, number, size)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.Size
	if end > total {
		end = total
	}
	return page, start, end
}
