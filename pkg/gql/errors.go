package gql

import "errors"

var (
	// ErrMissingQuery is returned when a query-parameter request carries no query
	ErrMissingQuery = errors.New("missing GraphQL query string in query parameters")

	// ErrInvalidVariables is returned when the variables parameter is not a JSON object
	ErrInvalidVariables = errors.New("variables must be a JSON object")

	// ErrInvalidBody is returned when a request body cannot be interpreted
	ErrInvalidBody = errors.New("invalid request body")
)
