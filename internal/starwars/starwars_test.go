package starwars

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Lookups(t *testing.T) {
	s := NewStore()

	empire := Empire
	assert.Equal(t, "Luke Skywalker", s.Hero(&empire).CharacterName())
	assert.Equal(t, "R2-D2", s.Hero(nil).CharacterName())

	assert.Equal(t, "Droid", s.Character("2000").EntityKind())
	assert.Nil(t, s.Character("9999"))
	assert.Nil(t, s.Starship("3001"))

	var ships []string
	for _, sh := range s.Starships() {
		ships = append(ships, sh.ID)
	}
	if diff := cmp.Diff([]string{"3000", "3002", "3003", "3004"}, ships); diff != "" {
		t.Fatalf("starships mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_Search(t *testing.T) {
	s := NewStore()

	var got []string
	for _, v := range s.Search("O") {
		switch v := v.(type) {
		case Character:
			got = append(got, v.CharacterName())
		case *Starship:
			got = append(got, v.Name)
		}
	}

	want := []string{"Han Solo", "Leia Organa", "C-3PO", "Millennium Falcon"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("search mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, s.Search("yoda"))
}

func TestStore_Reviews(t *testing.T) {
	s := NewStore()
	at := time.Date(1983, 5, 25, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return at }

	s.AddReview(Jedi, 4, "ewoks")
	s.AddReview(Jedi, 5, "")
	s.AddReview(NewHope, 3, "classic")

	got := s.Reviews(Jedi)
	want := []*Review{
		{Episode: Jedi, Stars: 4, Commentary: "ewoks", CreatedAt: at},
		{Episode: Jedi, Stars: 5, CreatedAt: at},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("reviews mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, s.Reviews(Empire))

	got[0] = nil
	assert.NotNil(t, s.Reviews(Jedi)[0])
}

func TestNewModel(t *testing.T) {
	m, err := NewModel(NewStore())
	require.NoError(t, err)

	assert.Equal(t, "Mutation", m.MutationType.Name)
	assert.Nil(t, m.SubscriptionType)
	assert.Same(t, m.Type("Human"), m.TypeForEntityKind("Human"))
	assert.NotNil(t, m.Directive("upper"))

	ship, err := m.ConcreteType(m.Type("SearchResult"), &Starship{})
	require.NoError(t, err)
	assert.Equal(t, "Starship", ship.Name)

	droid, err := m.ConcreteType(m.Type("Character"), &Droid{})
	require.NoError(t, err)
	assert.Equal(t, "Droid", droid.Name)
}

func TestLength(t *testing.T) {
	assert.Equal(t, 2.0, length(2, "METER"))
	assert.InDelta(t, 6.56168, length(2, "FOOT"), 1e-9)
}
