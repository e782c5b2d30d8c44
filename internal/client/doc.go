// Package client is the Go client of the races HTTP API.
//
//	c := client.New("http://localhost:8000", client.WithToken(token))
//	races, err := c.List(ctx, false)
//
// Non-2xx responses come back as *APIError carrying the status code and the server's
// {"error": ...} message.
package client
