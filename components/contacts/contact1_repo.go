package contacts

import (
	"context"
	"sort"
	"strings"

	"chatey/components/user"
	"chatey/utils"
)

// ContactLookup finds identities by scanning every user document. There is
// no index on email or name.
type ContactLookup struct {
	users user.I_UserRepo
}

func NewContactLookup(users user.I_UserRepo) ContactLookup {
	return ContactLookup{users}
}

func (me ContactLookup) FindByEmail(ctx context.Context, email string) (*user.DBUser, error) {
	email = utils.NormalizeEmail(email)

	all, err := me.users.FindUsers(ctx)
	if err != nil {
		return nil, err
	}

	for _, u := range all {
		if utils.NormalizeEmail(u.Email) == email {
			return u, nil
		}
	}

	return nil, user.ErrUserNotFound
}

// Search matches keyword against name and email, skipping me, and pages the
// result by name.
func (me ContactLookup) Search(ctx context.Context, self *user.DBUser, keyword string, page, limit int) ([]*UserContact, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	keyword = strings.ToLower(strings.TrimSpace(keyword))

	all, err := me.users.FindUsers(ctx)
	if err != nil {
		return nil, err
	}

	matches := make([]*UserContact, 0)
	for _, u := range all {
		if u.UID == self.UID {
			continue
		}
		if keyword != "" &&
			!strings.Contains(strings.ToLower(u.Name), keyword) &&
			!strings.Contains(strings.ToLower(u.Email), keyword) {
			continue
		}
		matches = append(matches, &UserContact{
			ID:         u.UID,
			Name:       u.Name,
			Email:      u.Email,
			ProfileImg: u.ProfileImg,
			Status:     StatusBetween(self, u),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Name != matches[j].Name {
			return matches[i].Name < matches[j].Name
		}
		return matches[i].ID < matches[j].ID
	})

	skip := (page - 1) * limit
	if skip >= len(matches) {
		return []*UserContact{}, nil
	}
	end := skip + limit
	if end > len(matches) {
		end = len(matches)
	}
	return matches[skip:end], nil
}
