package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/halfway/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services. Object
// fields resolve through the json tags of the domain types.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	coordinateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Coordinate",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"min_lat": &graphql.Field{Type: graphql.Float},
			"min_lng": &graphql.Field{Type: graphql.Float},
			"max_lat": &graphql.Field{Type: graphql.Float},
			"max_lng": &graphql.Field{Type: graphql.Float},
		},
	})

	midpointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Midpoint",
		Fields: graphql.Fields{
			"a":        &graphql.Field{Type: coordinateType},
			"b":        &graphql.Field{Type: coordinateType},
			"midpoint": &graphql.Field{Type: coordinateType},
			"bounds":   &graphql.Field{Type: boundsType},
		},
	})

	venueType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Venue",
		Fields: graphql.Fields{
			"name":            &graphql.Field{Type: graphql.String},
			"address":         &graphql.Field{Type: graphql.String},
			"rating":          &graphql.Field{Type: graphql.Float},
			"place_id":        &graphql.Field{Type: graphql.String},
			"location":        &graphql.Field{Type: coordinateType},
			"distance_meters": &graphql.Field{Type: graphql.Float},
		},
	})

	weatherType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Weather",
		Fields: graphql.Fields{
			"state":        &graphql.Field{Type: graphql.String},
			"temp_f":       &graphql.Field{Type: graphql.Int},
			"condition":    &graphql.Field{Type: graphql.String},
			"humidity":     &graphql.Field{Type: graphql.Int},
			"feels_like_f": &graphql.Field{Type: graphql.Int},
			"fetched_at":   &graphql.Field{Type: graphql.DateTime},
		},
	})

	searchType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SearchRecord",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"session_id":   &graphql.Field{Type: graphql.String},
			"a":            &graphql.Field{Type: coordinateType},
			"b":            &graphql.Field{Type: coordinateType},
			"midpoint":     &graphql.Field{Type: coordinateType},
			"category":     &graphql.Field{Type: graphql.String},
			"radius_miles": &graphql.Field{Type: graphql.Float},
			"venue_count":  &graphql.Field{Type: graphql.Int},
			"created_at":   &graphql.Field{Type: graphql.DateTime},
		},
	})

	placeInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "PlaceInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"place_id": &graphql.InputObjectFieldConfig{Type: graphql.String},
			"lat":      &graphql.InputObjectFieldConfig{Type: graphql.Float},
			"lng":      &graphql.InputObjectFieldConfig{Type: graphql.Float},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"midpoint": &graphql.Field{
				Type:        midpointType,
				Description: "Resolve two places and return their midpoint",
				Args: graphql.FieldConfigArgument{
					"a": &graphql.ArgumentConfig{Type: graphql.NewNonNull(placeInput)},
					"b": &graphql.ArgumentConfig{Type: graphql.NewNonNull(placeInput)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					a, err := placeFromArg(p.Args["a"])
					if err != nil {
						return nil, err
					}
					b, err := placeFromArg(p.Args["b"])
					if err != nil {
						return nil, err
					}
					return deps.Search.Midpoint(p.Context, a, b)
				},
			},
			"venues": &graphql.Field{
				Type:        graphql.NewList(venueType),
				Description: "Venues of a category around a point; radius is in miles",
				Args: graphql.FieldConfigArgument{
					"lat":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lng":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"category": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"radius":   &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 0.0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					center := domain.Coordinate{Lat: p.Args["lat"].(float64), Lng: p.Args["lng"].(float64)}
					var category domain.VenueCategory
					if raw := p.Args["category"].(string); raw != "" {
						c, err := domain.ValidateCategory(raw)
						if err != nil {
							return nil, err
						}
						category = c
					}
					category, radius := deps.Search.Settings(category, p.Args["radius"].(float64))
					venues, err := deps.Search.Venues(p.Context, center, category, radius)
					if errors.Is(err, domain.ErrNoResults) {
						return []domain.VenueResult{}, nil
					}
					return venues, err
				},
			},
			"weather": &graphql.Field{
				Type:        weatherType,
				Description: "Current conditions at a point",
				Args: graphql.FieldConfigArgument{
					"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lng": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					at := domain.Coordinate{Lat: p.Args["lat"].(float64), Lng: p.Args["lng"].(float64)}
					return deps.Search.Weather(p.Context, at), nil
				},
			},
			"recentSearches": &graphql.Field{
				Type:        graphql.NewList(searchType),
				Description: "Latest recorded searches",
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: defaultPageLimit},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					records, _, err := deps.History.Recent(p.Context, p.Args["offset"].(int), p.Args["limit"].(int))
					return records, err
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// placeFromArg converts a PlaceInput argument into a selection. lat and lng
// must be given together.
func placeFromArg(arg interface{}) (domain.PlaceSelection, error) {
	m, _ := arg.(map[string]interface{})
	var sel domain.PlaceSelection
	if id, ok := m["place_id"].(string); ok {
		sel.PlaceID = id
	}
	lat, hasLat := m["lat"].(float64)
	lng, hasLng := m["lng"].(float64)
	switch {
	case hasLat && hasLng:
		sel.Location = &domain.Coordinate{Lat: lat, Lng: lng}
	case hasLat || hasLng:
		return sel, errors.New("lat and lng must be given together")
	}
	return sel, nil
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
