package graphql

import (
	"github.com/graphql-go/graphql"

	"github.com/mnohosten/laura-db/pkg/storage"
)

// bufferPoolStatsType describes the snapshot returned by
// BufferPoolManager.Stats().
var bufferPoolStatsType = graphql.NewObject(graphql.ObjectConfig{
	Name: "BufferPoolStats",
	Fields: graphql.Fields{
		"poolSize": &graphql.Field{
			Type: graphql.Int,
		},
		"size": &graphql.Field{
			Type: graphql.Int,
		},
		"freeFrames": &graphql.Field{
			Type: graphql.Int,
		},
		"hits": &graphql.Field{
			Type: graphql.Int,
		},
		"misses": &graphql.Field{
			Type: graphql.Int,
		},
		"evictions": &graphql.Field{
			Type: graphql.Int,
		},
		"hitRate": &graphql.Field{
			Type: graphql.Float,
		},
	},
})

var pageInfoType = graphql.NewObject(graphql.ObjectConfig{
	Name: "PageInfo",
	Fields: graphql.Fields{
		"pageId": &graphql.Field{
			Type: graphql.Int,
		},
		"pinCount": &graphql.Field{
			Type: graphql.Int,
		},
		"isDirty": &graphql.Field{
			Type: graphql.Boolean,
		},
		"resident": &graphql.Field{
			Type: graphql.Boolean,
		},
	},
})

// Schema builds the introspection schema over a buffer pool manager. It
// exposes read-only queries; there are no mutations, since the GraphQL
// surface is for observing pool state, not driving it.
func Schema(bpm *storage.BufferPoolManager) (graphql.Schema, error) {
	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"bufferPoolStats": &graphql.Field{
				Type: bufferPoolStatsType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return resolveBufferPoolStats(bpm), nil
				},
			},
			"page": &graphql.Field{
				Type: pageInfoType,
				Args: graphql.FieldConfigArgument{
					"pageId": &graphql.ArgumentConfig{
						Type: graphql.NewNonNull(graphql.Int),
					},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					pageID := p.Args["pageId"].(int)
					return resolvePageInfo(bpm, storage.PageID(pageID)), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}
