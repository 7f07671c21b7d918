package demo

import (
	"github.com/graphql-go/graphql"
	"github.com/platinummonkey/plughost/pkg/dataset"
)

var lightEnum = graphql.NewEnum(graphql.EnumConfig{
	Name: "Light",
	Values: graphql.EnumValueConfigMap{
		"BRIGHT": &graphql.EnumValueConfig{Value: dataset.LightBright},
		"DARK":   &graphql.EnumValueConfig{Value: dataset.LightDark},
	},
})

var barType = graphql.NewObject(graphql.ObjectConfig{
	Name:        "Bar",
	Description: "A Bar model",
	Fields: graphql.Fields{
		"id": &graphql.Field{
			Type: graphql.NewNonNull(graphql.Int),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(dataset.Bar).ID, nil
			},
		},
		"light": &graphql.Field{
			Type: graphql.NewNonNull(lightEnum),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(dataset.Bar).Light, nil
			},
		},
	},
})

var fooType = graphql.NewObject(graphql.ObjectConfig{
	Name:        "Foo",
	Description: "A Foo model",
	Fields: graphql.Fields{
		"id": &graphql.Field{
			Type: graphql.NewNonNull(graphql.Int),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(dataset.Foo).ID, nil
			},
		},
		"name": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(dataset.Foo).Name, nil
			},
		},
		"bars": &graphql.Field{
			Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(barType))),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				foo := p.Source.(dataset.Foo)
				return dataset.FromContext(p.Context).BarsByIDs(foo.BarIDs), nil
			},
		},
	},
})
