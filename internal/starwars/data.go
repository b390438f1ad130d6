// Package starwars is a sample model used by the CLI and end-to-end tests.
package starwars

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hanpama/gqlengine/internal/model"
)

// Episode is a film of the original trilogy.
type Episode int

const (
	NewHope Episode = 4
	Empire  Episode = 5
	Jedi    Episode = 6
)

// Character is a Human or a Droid.
type Character interface {
	model.Entity
	CharacterID() string
	CharacterName() string
	FriendIDs() []string
	Episodes() []Episode
}

type Human struct {
	ID          string
	Name        string
	Friends     []string
	AppearsIn   []Episode
	HomePlanet  string
	Height      float64 // meters
	Mass        float64
	StarshipIDs []string
}

func (h *Human) EntityKind() string    { return "Human" }
func (h *Human) CharacterID() string   { return h.ID }
func (h *Human) CharacterName() string { return h.Name }
func (h *Human) FriendIDs() []string   { return h.Friends }
func (h *Human) Episodes() []Episode   { return h.AppearsIn }

type Droid struct {
	ID              string
	Name            string
	Friends         []string
	AppearsIn       []Episode
	PrimaryFunction string
}

func (d *Droid) EntityKind() string    { return "Droid" }
func (d *Droid) CharacterID() string   { return d.ID }
func (d *Droid) CharacterName() string { return d.Name }
func (d *Droid) FriendIDs() []string   { return d.Friends }
func (d *Droid) Episodes() []Episode   { return d.AppearsIn }

// Starship does not implement model.Entity; it is dispatched through the
// ResolveType func of SearchResult.
type Starship struct {
	ID     string
	Name   string
	Length float64 // meters
}

type Review struct {
	Episode    Episode
	Stars      int
	Commentary string
	CreatedAt  time.Time
}

// Store holds the sample data. Reviews are the only mutable part.
type Store struct {
	humans    map[string]*Human
	droids    map[string]*Droid
	starships map[string]*Starship
	shipOrder []string

	mu      sync.Mutex
	reviews map[Episode][]*Review
	now     func() time.Time
}

// NewStore returns a store with the sample characters and starships.
func NewStore() *Store {
	s := &Store{
		humans:    map[string]*Human{},
		droids:    map[string]*Droid{},
		starships: map[string]*Starship{},
		reviews:   map[Episode][]*Review{},
		now:       time.Now,
	}
	for _, h := range []*Human{
		{ID: "1000", Name: "Luke Skywalker", Friends: []string{"1002", "1003", "2000", "2001"}, AppearsIn: []Episode{NewHope, Empire, Jedi}, HomePlanet: "Tatooine", Height: 1.72, Mass: 77, StarshipIDs: []string{"3002"}},
		{ID: "1001", Name: "Darth Vader", Friends: []string{"1004"}, AppearsIn: []Episode{NewHope, Empire, Jedi}, HomePlanet: "Tatooine", Height: 2.02, Mass: 136, StarshipIDs: []string{"3002"}},
		{ID: "1002", Name: "Han Solo", Friends: []string{"1000", "1003", "2001"}, AppearsIn: []Episode{NewHope, Empire, Jedi}, Height: 1.8, Mass: 80, StarshipIDs: []string{"3000", "3003"}},
		{ID: "1003", Name: "Leia Organa", Friends: []string{"1000", "1002", "2000", "2001"}, AppearsIn: []Episode{NewHope, Empire, Jedi}, HomePlanet: "Alderaan", Height: 1.5, Mass: 49},
		{ID: "1004", Name: "Wilhuff Tarkin", Friends: []string{"1001"}, AppearsIn: []Episode{NewHope}, Height: 1.8},
	} {
		s.humans[h.ID] = h
	}
	for _, d := range []*Droid{
		{ID: "2000", Name: "C-3PO", Friends: []string{"1000", "1002", "1003", "2001"}, AppearsIn: []Episode{NewHope, Empire, Jedi}, PrimaryFunction: "Protocol"},
		{ID: "2001", Name: "R2-D2", Friends: []string{"1000", "1002", "1003"}, AppearsIn: []Episode{NewHope, Empire, Jedi}, PrimaryFunction: "Astromech"},
	} {
		s.droids[d.ID] = d
	}
	for _, sh := range []*Starship{
		{ID: "3000", Name: "Millennium Falcon", Length: 34.37},
		{ID: "3002", Name: "TIE Advanced x1", Length: 9.2},
		{ID: "3003", Name: "Imperial shuttle", Length: 20},
		{ID: "3004", Name: "Slave 1", Length: 21.5},
	} {
		s.starships[sh.ID] = sh
		s.shipOrder = append(s.shipOrder, sh.ID)
	}
	return s
}

// Hero returns the hero of an episode; R2-D2 when no episode is given.
func (s *Store) Hero(ep *Episode) Character {
	if ep != nil && *ep == Empire {
		return s.humans["1000"]
	}
	return s.droids["2001"]
}

// Character returns the human or droid with the id, or nil.
func (s *Store) Character(id string) Character {
	if h, ok := s.humans[id]; ok {
		return h
	}
	if d, ok := s.droids[id]; ok {
		return d
	}
	return nil
}

func (s *Store) Human(id string) *Human       { return s.humans[id] }
func (s *Store) Droid(id string) *Droid       { return s.droids[id] }
func (s *Store) Starship(id string) *Starship { return s.starships[id] }

// Starships returns all starships in id order.
func (s *Store) Starships() []*Starship {
	out := make([]*Starship, len(s.shipOrder))
	for i, id := range s.shipOrder {
		out[i] = s.starships[id]
	}
	return out
}

// AddReview records a review for an episode.
func (s *Store) AddReview(ep Episode, stars int, commentary string) *Review {
	r := &Review{Episode: ep, Stars: stars, Commentary: commentary, CreatedAt: s.now()}
	s.mu.Lock()
	s.reviews[ep] = append(s.reviews[ep], r)
	s.mu.Unlock()
	return r
}

// Reviews returns the reviews of an episode in creation order.
func (s *Store) Reviews(ep Episode) []*Review {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Review(nil), s.reviews[ep]...)
}

// Search returns the characters and starships whose name contains text,
// ignoring case: humans first, then droids, then starships, each by id.
func (s *Store) Search(text string) []any {
	text = strings.ToLower(text)
	match := func(name string) bool { return strings.Contains(strings.ToLower(name), text) }
	var out []any
	for _, id := range sortedKeys(s.humans) {
		if h := s.humans[id]; match(h.Name) {
			out = append(out, h)
		}
	}
	for _, id := range sortedKeys(s.droids) {
		if d := s.droids[id]; match(d.Name) {
			out = append(out, d)
		}
	}
	for _, id := range s.shipOrder {
		if sh := s.starships[id]; match(sh.Name) {
			out = append(out, sh)
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
