// Package demo provides in-process builds of the known plugin kinds. The
// static loader serves these when the host cannot open native plugins.
package demo

import (
	"fmt"

	"github.com/graphql-go/graphql"
	"github.com/platinummonkey/plughost/pkg/dataset"
	"github.com/platinummonkey/plughost/pkg/gql"
	"github.com/platinummonkey/plughost/pkg/plugins"
)

// FooSchema builds the schema served by the foo plugin
func FooSchema() (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "FooQuery",
		Fields: graphql.Fields{
			"foos": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(fooType))),
				Description: "get all foos",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return dataset.FromContext(p.Context).Foos(), nil
				},
			},
			"foo": &graphql.Field{
				Type:        fooType,
				Description: "get a foo",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(int)
					if foo, ok := dataset.FromContext(p.Context).Foo(id); ok {
						return foo, nil
					}
					return nil, nil
				},
			},
		},
	})
	return graphql.NewSchema(graphql.SchemaConfig{Query: query})
}

// BarSchema builds the schema served by the bar plugin
func BarSchema() (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "BarQuery",
		Fields: graphql.Fields{
			"bars": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(barType))),
				Description: "get all bars",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return dataset.FromContext(p.Context).Bars(), nil
				},
			},
			"bar": &graphql.Field{
				Type:        barType,
				Description: "get a bar",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(int)
					if bar, ok := dataset.FromContext(p.Context).Bar(id); ok {
						return bar, nil
					}
					return nil, nil
				},
			},
		},
	})
	return graphql.NewSchema(graphql.SchemaConfig{Query: query})
}

// NewFoo returns the foo capability
func NewFoo() plugins.Capability {
	return gql.NewHandler("foo", mustSchema(FooSchema()))
}

// NewBar returns the bar capability
func NewBar() plugins.Capability {
	return gql.NewHandler("bar", mustSchema(BarSchema()))
}

// Factories returns the entry points for every in-process kind, keyed by identifier
func Factories() map[string]plugins.Factory {
	return map[string]plugins.Factory{
		"foo": NewFoo,
		"bar": NewBar,
	}
}

func mustSchema(schema graphql.Schema, err error) graphql.Schema {
	if err != nil {
		panic(fmt.Sprintf("demo: invalid schema: %v", err))
	}
	return schema
}
