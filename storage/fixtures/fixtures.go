// Package fixtures seeds a database from a yaml description of users, venues, clubs,
// events and posts. Seeding is idempotent: records found by their natural key (username,
// venue or club name, event title, post content) are kept as they are.
package fixtures

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nexussync/clubs/core/status"
)

type (
	File struct {
		Users  []User  `yaml:"users"`
		Venues []Venue `yaml:"venues"`
		Clubs  []Club  `yaml:"clubs"`
		Events []Event `yaml:"events"`
		Posts  []Post  `yaml:"posts"`
	}

	User struct {
		Username   string   `yaml:"username"`
		Name       string   `yaml:"name"`
		Email      string   `yaml:"email"`
		Password   string   `yaml:"password"`
		Roles      []string `yaml:"roles"`
		Department string   `yaml:"department"`
		Interests  []string `yaml:"interests"`
		Inactive   bool     `yaml:"inactive"`
	}

	Venue struct {
		Name       string   `yaml:"name"`
		Building   string   `yaml:"building"`
		Latitude   float64  `yaml:"latitude"`
		Longitude  float64  `yaml:"longitude"`
		Capacity   int      `yaml:"capacity"`
		Facilities []string `yaml:"facilities"`
	}

	Club struct {
		Name        string   `yaml:"name"`
		Category    string   `yaml:"category"`
		Description string   `yaml:"description"`
		Tags        []string `yaml:"tags"`
		Status      string   `yaml:"status"` // active by default
		Lead        string   `yaml:"lead"`    // username
		Members     []string `yaml:"members"` // usernames
		Allocated   int64    `yaml:"allocated"`
	}

	Event struct {
		Title       string `yaml:"title"`
		Club        string `yaml:"club"`
		Venue       string `yaml:"venue"`
		Description string `yaml:"description"`
		// StartsIn is relative to the seeding time, so fixtures never go stale.
		StartsIn  time.Duration `yaml:"starts_in"`
		Duration  time.Duration `yaml:"duration"`
		Capacity  int           `yaml:"capacity"`
		Resources []string      `yaml:"resources"`
		Tags      []string      `yaml:"tags"`
		Status    string        `yaml:"status"` // approved by default
		CreatedBy string        `yaml:"created_by"`
	}

	Post struct {
		Club    string   `yaml:"club"`
		Author  string   `yaml:"author"`
		Content string   `yaml:"content"`
		Tags    []string `yaml:"tags"`
	}
)

// Load reads and decodes the fixtures file at path.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, errors.Wrap(err, "reading fixtures")
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes fixtures, refusing unknown fields so typos do not go unnoticed.
func Parse(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return File{}, errors.Wrap(err, "decoding fixtures")
	}
	return f, f.validate()
}

func (f File) validate() error {
	for i, u := range f.Users {
		if u.Username == "" || u.Email == "" {
			return errors.Errorf("users[%d]: username and email are required", i)
		}
	}
	for i, v := range f.Venues {
		if v.Name == "" {
			return errors.Errorf("venues[%d]: name is required", i)
		}
	}
	for i, c := range f.Clubs {
		if c.Name == "" {
			return errors.Errorf("clubs[%d]: name is required", i)
		}
		if _, err := parseStatus(c.Status, status.Active); err != nil {
			return errors.Wrapf(err, "clubs[%d]", i)
		}
	}
	for i, e := range f.Events {
		if e.Title == "" || e.Club == "" {
			return errors.Errorf("events[%d]: title and club are required", i)
		}
		if e.Duration <= 0 {
			return errors.Errorf("events[%d]: duration must be positive", i)
		}
		if _, err := parseStatus(e.Status, status.Approved); err != nil {
			return errors.Wrapf(err, "events[%d]", i)
		}
	}
	for i, p := range f.Posts {
		if p.Club == "" || p.Author == "" || p.Content == "" {
			return errors.Errorf("posts[%d]: club, author and content are required", i)
		}
	}
	return nil
}

func parseStatus(name string, def status.Status) (status.Status, error) {
	if name == "" {
		return def, nil
	}
	return status.Parse(name)
}
