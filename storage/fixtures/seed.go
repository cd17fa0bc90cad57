package fixtures

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/budget"
	"github.com/nexussync/clubs/core/club"
	"github.com/nexussync/clubs/core/event"
	"github.com/nexussync/clubs/core/post"
	"github.com/nexussync/clubs/core/status"
	"github.com/nexussync/clubs/core/tags"
	"github.com/nexussync/clubs/core/user"
	"github.com/nexussync/clubs/core/venue"
)

type Repos struct {
	Users   user.Repository
	Venues  venue.Repository
	Clubs   club.Repository
	Events  event.Repository
	Posts   post.Repository
	Budgets budget.Repository
}

// Report counts the records created by a seeding; the others already existed.
type Report struct {
	Users, Venues, Clubs, Members, Events, Posts int
}

type Seeder struct {
	repos Repos
	now   func() time.Time

	users  map[string]string // username -> id
	venues map[string]string // lowercased name -> id
	clubs  map[string]string
}

func NewSeeder(repos Repos) *Seeder {
	return &Seeder{repos: repos, now: func() time.Time { return time.Now().UTC() }}
}

// Seed creates what f describes and is missing from the database.
func (s *Seeder) Seed(ctx context.Context, f File) (Report, error) {
	s.users = make(map[string]string)
	s.venues = make(map[string]string)
	s.clubs = make(map[string]string)

	var rep Report
	steps := []struct {
		name string
		fn   func(context.Context, File, *Report) error
	}{
		{"users", s.seedUsers},
		{"venues", s.seedVenues},
		{"clubs", s.seedClubs},
		{"events", s.seedEvents},
		{"posts", s.seedPosts},
	}
	for _, step := range steps {
		if err := step.fn(ctx, f, &rep); err != nil {
			return rep, errors.Wrapf(err, "seeding %s", step.name)
		}
	}
	return rep, nil
}

func (s *Seeder) seedUsers(ctx context.Context, f File, rep *Report) error {
	for _, fu := range f.Users {
		uname := core.CleanString(fu.Username, true /* lower */)
		email := core.CleanString(fu.Email, true /* lower */)
		usr, err := s.repos.Users.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname, email}})
		if err == nil {
			s.users[uname] = usr.ID
			continue
		}
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}

		now := s.now()
		usr = user.User{
			ID:         core.NewID(),
			Name:       fu.Name,
			Username:   uname,
			Email:      email,
			IsActive:   !fu.Inactive,
			Roles:      fu.Roles,
			Interests:  tags.Normalize(fu.Interests),
			Department: fu.Department,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if len(usr.Roles) == 0 {
			usr.Roles = []string{user.RoleStudent}
		}
		if fu.Password != "" {
			if err := usr.SetPassword(fu.Password); err != nil {
				return err
			}
		}
		if usr, err = s.repos.Users.CreateUser(ctx, usr); err != nil {
			return errors.Wrap(err, uname)
		}
		s.users[uname] = usr.ID
		rep.Users++
	}
	return nil
}

func (s *Seeder) userID(uname string) (string, error) {
	uname = core.CleanString(uname, true /* lower */)
	if id, ok := s.users[uname]; ok {
		return id, nil
	}
	return "", errors.Errorf("unknown user %q", uname)
}

func (s *Seeder) seedVenues(ctx context.Context, f File, rep *Report) error {
	existing, err := s.repos.Venues.QueryVenues(ctx)
	if err != nil {
		return err
	}
	for _, v := range existing {
		s.venues[strings.ToLower(v.Name)] = v.ID
	}

	for _, fv := range f.Venues {
		key := strings.ToLower(strings.TrimSpace(fv.Name))
		if _, ok := s.venues[key]; ok {
			continue
		}
		now := s.now()
		v, err := s.repos.Venues.CreateVenue(ctx, venue.Venue{
			ID:         core.NewID(),
			Name:       strings.TrimSpace(fv.Name),
			Building:   fv.Building,
			Latitude:   fv.Latitude,
			Longitude:  fv.Longitude,
			Capacity:   fv.Capacity,
			Facilities: tags.Normalize(fv.Facilities),
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if err != nil {
			return errors.Wrap(err, fv.Name)
		}
		s.venues[key] = v.ID
		rep.Venues++
	}
	return nil
}

func (s *Seeder) seedClubs(ctx context.Context, f File, rep *Report) error {
	existing, err := s.repos.Clubs.QueryClubs(ctx, club.QueryFilter{}, nil, "")
	if err != nil {
		return err
	}
	for _, c := range existing {
		s.clubs[strings.ToLower(c.Name)] = c.ID
	}

	for _, fc := range f.Clubs {
		key := strings.ToLower(strings.TrimSpace(fc.Name))
		id, ok := s.clubs[key]
		if !ok {
			st, _ := parseStatus(fc.Status, status.Active)
			c := club.Club{
				ID:          core.NewID(),
				Name:        strings.TrimSpace(fc.Name),
				Category:    fc.Category,
				Description: fc.Description,
				Tags:        tags.Normalize(fc.Tags),
				Status:      st,
				CreatedAt:   s.now(),
				UpdatedAt:   s.now(),
			}
			if canonical := club.CanonicalCategory(fc.Category); canonical != "" {
				c.Category = canonical
			}
			if fc.Lead != "" {
				if c.LeadID, err = s.userID(fc.Lead); err != nil {
					return errors.Wrap(err, fc.Name)
				}
			}
			if c, err = s.repos.Clubs.CreateClub(ctx, c); err != nil {
				return errors.Wrap(err, fc.Name)
			}
			id = c.ID
			s.clubs[key] = id
			rep.Clubs++
		}

		for _, uname := range fc.Members {
			uid, err := s.userID(uname)
			if err != nil {
				return errors.Wrap(err, fc.Name)
			}
			err = s.repos.Clubs.AddMember(ctx, id, uid, s.now())
			switch errors.Cause(err) {
			case nil:
				rep.Members++
			case club.ErrAlreadyMember:
			default:
				return errors.Wrap(err, fc.Name)
			}
		}
		if fc.Allocated > 0 {
			a := budget.Allocation{ClubID: id, Allocated: fc.Allocated, UpdatedAt: s.now()}
			if _, err := s.repos.Budgets.SetAllocation(ctx, a); err != nil {
				return errors.Wrap(err, fc.Name)
			}
		}
	}
	return nil
}

func (s *Seeder) clubID(name string) (string, error) {
	if id, ok := s.clubs[strings.ToLower(strings.TrimSpace(name))]; ok {
		return id, nil
	}
	return "", errors.Errorf("unknown club %q", name)
}

func (s *Seeder) seedEvents(ctx context.Context, f File, rep *Report) error {
	for _, fe := range f.Events {
		clubID, err := s.clubID(fe.Club)
		if err != nil {
			return errors.Wrap(err, fe.Title)
		}
		found, err := s.repos.Events.QueryEvents(ctx, event.QueryFilter{ClubID: clubID, Search: fe.Title}, nil, "")
		if err != nil {
			return err
		}
		if containsFunc(found, func(e event.Event) bool { return strings.EqualFold(e.Title, fe.Title) }) {
			continue
		}

		st, _ := parseStatus(fe.Status, status.Approved)
		now := s.now()
		start := now.Add(fe.StartsIn).Truncate(time.Minute)
		e := event.Event{
			ID:          core.NewID(),
			ClubID:      clubID,
			Title:       fe.Title,
			Description: fe.Description,
			StartsAt:    start,
			EndsAt:      start.Add(fe.Duration),
			Capacity:    fe.Capacity,
			Resources:   tags.Normalize(fe.Resources),
			Tags:        tags.Normalize(fe.Tags),
			Status:      st,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if fe.Venue != "" {
			id, ok := s.venues[strings.ToLower(strings.TrimSpace(fe.Venue))]
			if !ok {
				return errors.Errorf("%s: unknown venue %q", fe.Title, fe.Venue)
			}
			e.VenueID = id
		}
		if fe.CreatedBy != "" {
			if e.CreatedBy, err = s.userID(fe.CreatedBy); err != nil {
				return errors.Wrap(err, fe.Title)
			}
		}
		if _, err := s.repos.Events.CreateEvent(ctx, e); err != nil {
			return errors.Wrap(err, fe.Title)
		}
		rep.Events++
	}
	return nil
}

func (s *Seeder) seedPosts(ctx context.Context, f File, rep *Report) error {
	for i, fp := range f.Posts {
		clubID, err := s.clubID(fp.Club)
		if err != nil {
			return errors.Wrapf(err, "posts[%d]", i)
		}
		authorID, err := s.userID(fp.Author)
		if err != nil {
			return errors.Wrapf(err, "posts[%d]", i)
		}
		content := strings.TrimSpace(fp.Content)
		found, err := s.repos.Posts.QueryPosts(ctx, post.QueryFilter{ClubID: clubID, AuthorID: authorID}, nil, "")
		if err != nil {
			return err
		}
		if containsFunc(found, func(p post.Post) bool { return p.Content == content }) {
			continue
		}

		html, err := post.RenderMarkdown(content)
		if err != nil {
			return errors.Wrapf(err, "posts[%d]", i)
		}
		now := s.now()
		_, err = s.repos.Posts.CreatePost(ctx, post.Post{
			ID:          core.NewID(),
			ClubID:      clubID,
			AuthorID:    authorID,
			Content:     content,
			ContentHTML: html,
			Tags:        tags.Normalize(fp.Tags),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return errors.Wrapf(err, "posts[%d]", i)
		}
		rep.Posts++
	}
	return nil
}

func containsFunc[T any](items []T, match func(T) bool) bool {
	for _, it := range items {
		if match(it) {
			return true
		}
	}
	return false
}
