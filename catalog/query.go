// Package catalog queries the remote volumes endpoint.
package catalog

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// BuildQuery returns the query parameters for a subject constrained search.
func BuildQuery(genre, query string, maxResults int) url.Values {
	q := "subject:" + strings.TrimSpace(genre)
	if query = strings.TrimSpace(query); query != "" {
		q += " " + query
	}

	values := url.Values{}
	values.Set("q", q)
	values.Set("maxResults", strconv.Itoa(maxResults))
	return values
}

// SearchURL joins the endpoint with the encoded search parameters.
func SearchURL(endpoint, genre, query string, maxResults int) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("endpoint must include a host")
	}

	values := u.Query()
	for key, vals := range BuildQuery(genre, query, maxResults) {
		values[key] = vals
	}
	u.RawQuery = values.Encode()
	return u.String(), nil
}
