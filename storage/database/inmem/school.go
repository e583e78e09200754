package inmemdb

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/akili/shulenet/core"
	"github.com/akili/shulenet/core/school"
	"github.com/akili/shulenet/core/user"
)

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db}
}

// caller must hold a lock
func (repo *schoolRepository) query() []school.School {
	schools := make([]school.School, 0, len(repo.db.schools))
	for _, sch := range repo.db.schools {
		schools = append(schools, *sch)
	}
	return schools
}

func (repo *schoolRepository) CheckSchoolUniqueness(ctx context.Context, name, contactEmail string, excludedSchools ...school.School) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[int]bool, len(excludedSchools))
	for _, sch := range excludedSchools {
		excluded[sch.ID] = true
	}
	for _, sch := range repo.query() {
		if excluded[sch.ID] {
			continue
		}
		if sch.Name == name || sch.ContactEmail == contactEmail {
			return school.ErrSchoolExists
		}
	}
	return nil
}

func (repo *schoolRepository) CreateSchool(ctx context.Context, sch school.School) (school.School, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	sch.ID = repo.db.nextPK()
	repo.db.schools[sch.ID] = &sch
	return sch, nil
}

func (repo *schoolRepository) GetSchoolByID(ctx context.Context, id int) (school.School, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sch, ok := repo.db.schools[id]; ok {
		return *sch, nil
	}
	return school.School{}, school.ErrNotFound
}

func (repo *schoolRepository) GetSchoolDetails(ctx context.Context, id int) (school.Details, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sch, ok := repo.db.schools[id]
	if !ok {
		return school.Details{}, school.ErrNotFound
	}

	var userCount, adminCount int
	for _, usr := range repo.db.users {
		if usr.SchoolID != id {
			continue
		}
		userCount++
		if usr.Role == user.RoleSchoolAdmin {
			adminCount++
		}
	}
	return school.Details{School: *sch, UserCount: userCount, AdminCount: adminCount}, nil
}

func (repo *schoolRepository) FilterSchools(ctx context.Context, params core.ListParams, pageSize int) ([]school.School, core.Page, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var matched []school.School
	for _, sch := range repo.query() {
		if !matchStatus(params.Status, sch.Approved, sch.Status) {
			continue
		}
		if !matchSearch(params.Search, sch.Name, sch.Location, sch.ContactEmail, sch.Phone) {
			continue
		}
		matched = append(matched, sch)
	}

	// newest first, ID breaks ties
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	page, start, end := paginate(len(matched), params.Page, pageSize)
	return matched[start:end], page, nil
}

func (repo *schoolRepository) ApproveSchool(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	sch, ok := repo.db.schools[id]
	if !ok {
		return school.ErrNotFound
	}

	return repo.db.runSteps([]step{
		{"approving school", func() { sch.Approved = true }},
		{"approving school admins", func() {
			for _, usr := range repo.db.users {
				if usr.SchoolID == id && usr.Role == user.RoleSchoolAdmin && !usr.Approved {
					usr.Approved = true
				}
			}
		}},
	})
}

func (repo *schoolRepository) SetSchoolStatus(ctx context.Context, id int, status string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	sch, ok := repo.db.schools[id]
	if !ok {
		return school.ErrNotFound
	}
	sch.Status = status
	return nil
}

func (repo *schoolRepository) UpdateSchool(ctx context.Context, sch school.School) (school.School, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.schools[sch.ID]
	if !ok {
		return school.School{}, school.ErrNotFound
	}
	orig.Name = sch.Name
	orig.Location = sch.Location
	orig.ContactEmail = sch.ContactEmail
	orig.Phone = sch.Phone
	orig.Logo = sch.Logo
	return *orig, nil
}

func (repo *schoolRepository) RejectSchool(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	sch, ok := repo.db.schools[id]
	if !ok {
		return school.ErrNotFound
	}
	if sch.Approved {
		return core.NewValidationError(errors.New("only a pending school can be rejected"))
	}

	return repo.db.runSteps([]step{
		{"deleting pending school admins", func() {
			for uid, usr := range repo.db.users {
				if usr.SchoolID == id && usr.Role == user.RoleSchoolAdmin && !usr.Approved {
					delete(repo.db.users, uid)
				}
			}
		}},
		{"deleting school", func() { delete(repo.db.schools, id) }},
	})
}

func (repo *schoolRepository) DeleteSchool(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.schools[id]; !ok {
		return school.ErrNotFound
	}

	schoolUsers := make(map[int]bool)
	for uid, usr := range repo.db.users {
		if usr.SchoolID == id {
			schoolUsers[uid] = true
		}
	}
	schoolPosts := make(map[int]bool)
	for pid, p := range repo.db.posts {
		if schoolUsers[p.UserID] {
			schoolPosts[pid] = true
		}
	}
	schoolEvents := make(map[int]bool)
	for eid, ev := range repo.db.events {
		if ev.SchoolID == id {
			schoolEvents[eid] = true
		}
	}
	schoolOpportunities := make(map[int]bool)
	for oid, op := range repo.db.opportunities {
		if op.SchoolID == id {
			schoolOpportunities[oid] = true
		}
	}

	return repo.db.runSteps([]step{
		{"deleting post likes", func() {
			for lid, l := range repo.db.postLikes {
				if schoolPosts[l.PostID] || schoolUsers[l.UserID] {
					delete(repo.db.postLikes, lid)
				}
			}
		}},
		{"deleting post comments", func() {
			for cid, c := range repo.db.postComments {
				if schoolPosts[c.PostID] || schoolUsers[c.UserID] {
					delete(repo.db.postComments, cid)
				}
			}
		}},
		{"deleting posts", func() {
			for pid := range schoolPosts {
				delete(repo.db.posts, pid)
			}
		}},
		{"deleting event RSVPs", func() {
			for rid, r := range repo.db.eventRSVPs {
				if schoolEvents[r.EventID] || schoolUsers[r.UserID] {
					delete(repo.db.eventRSVPs, rid)
				}
			}
		}},
		{"deleting events", func() {
			for eid := range schoolEvents {
				delete(repo.db.events, eid)
			}
		}},
		{"deleting opportunity interests", func() {
			for iid, in := range repo.db.opportunityInterests {
				if schoolOpportunities[in.OpportunityID] || schoolUsers[in.UserID] {
					delete(repo.db.opportunityInterests, iid)
				}
			}
		}},
		{"deleting opportunities", func() {
			for oid := range schoolOpportunities {
				delete(repo.db.opportunities, oid)
			}
		}},
		{"deleting connections", func() {
			for cid, c := range repo.db.connections {
				if schoolUsers[c.UserID] || schoolUsers[c.PeerID] {
					delete(repo.db.connections, cid)
				}
			}
		}},
		{"deleting users", func() {
			for uid := range schoolUsers {
				delete(repo.db.users, uid)
			}
		}},
		{"deleting school", func() { delete(repo.db.schools, id) }},
	})
}
