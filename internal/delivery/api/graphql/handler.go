// Package graphql exposes the session lifecycle over a GraphQL endpoint.
package graphql

import (
	_ "embed"
	"log/slog"
	"net/http"

	"lavra/internal/delivery/api/validator"
	"lavra/internal/errors"
	"lavra/internal/usecase"

	graphqlgo "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
	"go.uber.org/fx"
)

//go:embed schema.graphql
var schemaSDL string

const maxQueryDepth = 8

// HandlerParams holds dependencies for the GraphQL handler, injected by Fx.
type HandlerParams struct {
	fx.In

	AuthUsecase    usecase.AuthUsecase
	ProfileUsecase usecase.ProfileUsecase
	SessionUsecase usecase.SessionUsecase
	Validator      *validator.Validator
	Logger         *slog.Logger
}

// NewHandler parses the schema and returns the POST /graphql handler.
func NewHandler(params HandlerParams) (http.Handler, error) {
	resolver := &Resolver{
		auth:      params.AuthUsecase,
		profile:   params.ProfileUsecase,
		sessions:  params.SessionUsecase,
		validator: params.Validator,
		logger:    params.Logger,
	}

	schema, err := graphqlgo.ParseSchema(schemaSDL, resolver, graphqlgo.MaxDepth(maxQueryDepth))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse graphql schema")
	}

	return &relay.Handler{Schema: schema}, nil
}
