package starwars

import (
	"errors"
	"strings"

	"github.com/hanpama/gqlengine/internal/directives"
	"github.com/hanpama/gqlengine/internal/introspection"
	"github.com/hanpama/gqlengine/internal/model"
)

const feetPerMeter = 3.28084

// upper declares @upper, upper-casing string results.
func upper() *model.DirectiveDef {
	return directives.Transform("upper", "Upper-cases string results.",
		func(v any, _ map[string]any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, errors.New("expected a string value")
			}
			return strings.ToUpper(s), nil
		})
}

// NewModel builds the sample model resolving against s.
func NewModel(s *Store) (*model.Model, error) {
	b := model.NewBuilder("The Star Wars sample API.")
	directives.Register(b)
	introspection.Register(b)
	b.AddDirective(upper())
	b.AddScalar(model.DateTimeScalar)
	b.SetMutationType("Mutation")

	b.Enum("Episode", "The episodes in the Star Wars trilogy.").
		Value("NEWHOPE", NewHope, "Star Wars Episode IV: A New Hope, released in 1977.").
		Value("EMPIRE", Empire, "Star Wars Episode V: The Empire Strikes Back, released in 1980.").
		Value("JEDI", Jedi, "Star Wars Episode VI: Return of the Jedi, released in 1983.")
	b.Enum("LengthUnit", "Units of height.").
		Value("METER", "METER", "The standard unit around the world.").
		Value("FOOT", "FOOT", "Primarily used in the United States.")

	characterFields(b.Interface("Character", "A character from the Star Wars universe."), s, false)

	human := b.Object("Human", "A humanoid creature from the Star Wars universe.", "Character")
	characterFields(human, s, true).
		Field("homePlanet", "String").Describe("The home planet of the human, or null if unknown.").
		Read(model.Prop(func(h *Human) any { return optionalString(h.HomePlanet) })).
		Field("height", "Float").Describe("Height in the preferred unit, default is meters.").
		AddArg(model.NewArg("unit", "LengthUnit").WithDefault("METER")).
		Resolve(func(_ model.FieldContext, parent any, args model.Args) (any, error) {
			return length(parent.(*Human).Height, args.String("unit")), nil
		}).
		Field("mass", "Float").Describe("Mass in kilograms, or null if unknown.").
		Read(model.Prop(func(h *Human) any {
			if h.Mass == 0 {
				return nil
			}
			return h.Mass
		})).
		Field("starships", "[Starship]").Describe("A list of starships this person has piloted.").
		Resolve(func(_ model.FieldContext, parent any, _ model.Args) (any, error) {
			ids := parent.(*Human).StarshipIDs
			out := make([]*Starship, len(ids))
			for i, id := range ids {
				out[i] = s.Starship(id)
			}
			return out, nil
		})

	droid := b.Object("Droid", "An autonomous mechanical character in the Star Wars universe.", "Character")
	characterFields(droid, s, true).
		Field("primaryFunction", "String").Describe("This droid's primary function.").
		Read(model.Prop(func(d *Droid) any { return optionalString(d.PrimaryFunction) }))

	b.Object("Starship", "").
		Field("id", "ID!").Describe("The ID of the starship.").
		Read(model.Prop(func(sh *Starship) any { return sh.ID })).
		Field("name", "String!").Describe("The name of the starship.").
		Read(model.Prop(func(sh *Starship) any { return sh.Name })).
		Field("length", "Float").Describe("Length of the starship, along the longest axis.").
		AddArg(model.NewArg("unit", "LengthUnit").WithDefault("METER")).
		Resolve(func(_ model.FieldContext, parent any, args model.Args) (any, error) {
			return length(parent.(*Starship).Length, args.String("unit")), nil
		})

	b.Union("SearchResult", "", "Human", "Droid", "Starship").
		ResolveType(func(v any) string {
			if _, ok := v.(*Starship); ok {
				return "Starship"
			}
			return ""
		})

	b.Object("Review", "Represents a review for a movie.").
		Field("episode", "Episode").Describe("The movie.").
		Read(model.Prop(func(r *Review) any { return r.Episode })).
		Field("stars", "Int!").Describe("The number of stars this review gave, 1-5.").
		Read(model.Prop(func(r *Review) any { return r.Stars })).
		Field("commentary", "String").Describe("Comment about the movie.").
		Read(model.Prop(func(r *Review) any { return optionalString(r.Commentary) })).
		Field("createdAt", "DateTime").
		Read(model.Prop(func(r *Review) any { return r.CreatedAt }))

	b.Input("ReviewInput", "The input object sent when someone is creating a new review.").
		Field("stars", "Int!").
		Field("commentary", "String")

	reviews := func(_ model.FieldContext, _ any, args model.Args) (any, error) {
		return s.Reviews(args.Get("episode").(Episode)), nil
	}
	b.Object("Query", "The query type, represents all of the entry points into our object graph.").
		Field("hero", "Character").
		AddArg(model.NewArg("episode", "Episode").WithDescription("Return the hero by episode.")).
		Resolve(func(_ model.FieldContext, _ any, args model.Args) (any, error) {
			var ep *Episode
			if v, ok := args.Get("episode").(Episode); ok {
				ep = &v
			}
			return s.Hero(ep), nil
		}).
		Field("character", "Character").Arg("id", "ID!").
		Resolve(func(_ model.FieldContext, _ any, args model.Args) (any, error) {
			return s.Character(args.String("id")), nil
		}).
		Field("human", "Human").Arg("id", "ID!").
		Resolve(func(_ model.FieldContext, _ any, args model.Args) (any, error) {
			return s.Human(args.String("id")), nil
		}).
		Field("droid", "Droid").Arg("id", "ID!").
		ResolveAsync(func(_ model.FieldContext, _ any, args model.Args) (any, error) {
			id := args.String("id")
			return model.Async(func() (any, error) { return s.Droid(id), nil }), nil
		}).
		Field("starship", "Starship").Arg("id", "ID!").
		Resolve(func(_ model.FieldContext, _ any, args model.Args) (any, error) {
			return s.Starship(args.String("id")), nil
		}).
		Field("starships", "[Starship!]!").
		Resolve(func(model.FieldContext, any, model.Args) (any, error) {
			return s.Starships(), nil
		}).
		Field("search", "[SearchResult!]!").Arg("text", "String!").
		Resolve(func(_ model.FieldContext, _ any, args model.Args) (any, error) {
			return s.Search(args.String("text")), nil
		}).
		Field("reviews", "[Review!]!").Arg("episode", "Episode!").
		Resolve(reviews)

	b.Object("Mutation", "The mutation type, represents all updates we can make to our data.").
		Field("createReview", "Review").
		Arg("episode", "Episode!").
		Arg("review", "ReviewInput!").
		Resolve(func(_ model.FieldContext, _ any, args model.Args) (any, error) {
			in := args.Get("review").(map[string]any)
			commentary, _ := in["commentary"].(string)
			return s.AddReview(args.Get("episode").(Episode), in["stars"].(int), commentary), nil
		}).
		Field("reviews", "[Review!]!").Describe("The reviews of an episode, read back after earlier mutations.").
		Arg("episode", "Episode!").
		Resolve(reviews)

	return b.Build()
}

// characterFields declares the fields shared by Character and its
// implementations. Only implementations carry resolvers.
func characterFields(tb *model.TypeBuilder, s *Store, resolve bool) *model.TypeBuilder {
	id := tb.Field("id", "ID!").Describe("The ID of the character.")
	name := tb.Field("name", "String!").Describe("The name of the character.")
	friends := tb.Field("friends", "[Character]").Describe("The friends of the character, or an empty list if they have none.")
	appearsIn := tb.Field("appearsIn", "[Episode]!").Describe("Which movies they appear in.")
	if !resolve {
		return tb
	}
	id.Read(model.Prop(func(c Character) any { return c.CharacterID() }))
	name.Read(model.Prop(func(c Character) any { return c.CharacterName() }))
	appearsIn.Read(model.Prop(func(c Character) any { return c.Episodes() }))
	friends.ResolveBatched(func(fc model.FieldContext, _ any, _ model.Args) (any, error) {
		results := map[any]any{}
		for _, p := range fc.GetAllParentEntities() {
			c := p.(Character)
			var out []Character
			for _, fid := range c.FriendIDs() {
				if f := s.Character(fid); f != nil {
					out = append(out, f)
				}
			}
			if len(out) > 0 {
				results[p] = out
			}
		}
		fc.SetBatchedResults(results, nil)
		return nil, nil
	}, []Character{})
	return tb
}

func length(meters float64, unit string) float64 {
	if unit == "FOOT" {
		return meters * feetPerMeter
	}
	return meters
}

func optionalString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
