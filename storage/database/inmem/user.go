package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/akili/shulenet/core"
	"github.com/akili/shulenet/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

// caller must hold a lock
func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		users = append(users, *usr)
	}
	return users
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[int]bool, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = true
	}
	for _, usr := range repo.query() {
		if usr.Email == email && !excluded[usr.ID] {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr.ID = repo.db.nextPK()
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.query() {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserDetails(ctx context.Context, id int) (user.Details, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	usr, ok := repo.db.users[id]
	if !ok {
		return user.Details{}, user.ErrNotFound
	}

	var schoolName string
	if sch, ok := repo.db.schools[usr.SchoolID]; ok {
		schoolName = sch.Name
	}
	var postsCount, connectionsCount int
	for _, p := range repo.db.posts {
		if p.UserID == id {
			postsCount++
		}
	}
	for _, c := range repo.db.connections {
		if c.UserID == id || c.PeerID == id {
			connectionsCount++
		}
	}
	return user.Details{
		User:             *usr,
		SchoolName:       schoolName,
		PostsCount:       postsCount,
		ConnectionsCount: connectionsCount,
	}, nil
}

func (repo *userRepository) FilterUsers(ctx context.Context, params core.ListParams, pageSize int) ([]user.User, core.Page, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var matched []user.User
	for _, usr := range repo.query() {
		if !matchStatus(params.Status, usr.Approved, usr.Status) {
			continue
		}
		if params.Role != "" && params.Role != "all" && usr.Role != params.Role {
			continue
		}
		if params.ParentID > 0 && usr.SchoolID != params.ParentID {
			continue
		}
		if !matchSearch(params.Search, usr.Name, usr.Email, usr.Phone) {
			continue
		}
		matched = append(matched, usr)
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

func (repo *userRepository) ApproveUser(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr, ok := repo.db.users[id]
	if !ok {
		return user.ErrNotFound
	}
	usr.Approved = true
	return nil
}

func (repo *userRepository) SetUserStatus(ctx context.Context, id int, status string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr, ok := repo.db.users[id]
	if !ok {
		return user.ErrNotFound
	}
	usr.Status = status
	return nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	orig.Name = usr.Name
	orig.Email = usr.Email
	orig.Phone = usr.Phone
	orig.Role = usr.Role
	orig.Photo = usr.Photo
	return *orig, nil
}

func (repo *userRepository) SetLastLogin(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr, ok := repo.db.users[id]
	if !ok {
		return user.ErrNotFound
	}
	usr.LastLogin = time.Now().UTC()
	return nil
}

func (repo *userRepository) RejectUser(ctx context.Context, id int) error {
	repo.db.RLock()
	usr, ok := repo.db.users[id]
	if ok && usr.Approved {
		repo.db.RUnlock()
		return core.NewValidationError(errors.New("only a pending user can be rejected"))
	}
	repo.db.RUnlock()
	if !ok {
		return user.ErrNotFound
	}
	return repo.DeleteUser(ctx, id)
}

func (repo *userRepository) DeleteUser(ctx context.Context, id int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.users[id]; !ok {
		return user.ErrNotFound
	}

	userPosts := make(map[int]bool)
	for pid, p := range repo.db.posts {
		if p.UserID == id {
			userPosts[pid] = true
		}
	}

	return repo.db.runSteps([]step{
		{"deleting post likes", func() {
			for lid, l := range repo.db.postLikes {
				if userPosts[l.PostID] || l.UserID == id {
					delete(repo.db.postLikes, lid)
				}
			}
		}},
		{"deleting post comments", func() {
			for cid, c := range repo.db.postComments {
				if userPosts[c.PostID] || c.UserID == id {
					delete(repo.db.postComments, cid)
				}
			}
		}},
		{"deleting posts", func() {
			for pid := range userPosts {
				delete(repo.db.posts, pid)
			}
		}},
		{"deleting event RSVPs", func() {
			for rid, r := range repo.db.eventRSVPs {
				if r.UserID == id {
					delete(repo.db.eventRSVPs, rid)
				}
			}
		}},
		{"deleting opportunity interests", func() {
			for iid, in := range repo.db.opportunityInterests {
				if in.UserID == id {
					delete(repo.db.opportunityInterests, iid)
				}
			}
		}},
		{"deleting connections", func() {
			for cid, c := range repo.db.connections {
				if c.UserID == id || c.PeerID == id {
					delete(repo.db.connections, cid)
				}
			}
		}},
		{"deleting user", func() { delete(repo.db.users, id) }},
	})
}
