// Package request provides to define immutable HTTP requests, see NewHTTPRequest function.
//
// Requests are sent using the Sender interface.
// The client.Client is a default implementation of the request.Sender
// interface based on the standard net/http package.
//
// Typed sending with the outcome wrapped to a result.Result is provided by the resulthttp package.
package request
