package form

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/vitalvas/sph/sphsig"
)

// Container holds the signed parameters of one hosted form, ready to be
// rendered as an HTML form or submitted directly.
type Container struct {
	Method    string
	BaseURL   string
	Action    string
	Fields    *sphsig.ParameterSet
	RequestID string
}

// ActionURL returns the absolute form action URL.
func (c *Container) ActionURL() string {
	return strings.TrimRight(c.BaseURL, "/") + c.Action
}

// Values returns the form fields, signature included.
func (c *Container) Values() url.Values {
	return c.Fields.Values()
}

// NewRequest builds the form submission. POST forms carry the fields as a
// form-encoded body; other methods carry them in the query string.
func (c *Container) NewRequest(ctx context.Context) (*http.Request, error) {
	encoded := c.Values().Encode()

	if strings.EqualFold(c.Method, http.MethodPost) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ActionURL(), strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}

		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		return req, nil
	}

	return http.NewRequestWithContext(ctx, strings.ToUpper(c.Method), c.ActionURL()+"?"+encoded, nil)
}
