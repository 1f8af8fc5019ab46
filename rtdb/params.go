package rtdb

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// Query parameter names understood by the server.
const (
	ParamOrderBy      = "orderBy"
	ParamLimitToFirst = "limitToFirst"
	ParamLimitToLast  = "limitToLast"
	ParamStartAt      = "startAt"
	ParamEndAt        = "endAt"
	ParamEqualTo      = "equalTo"
	ParamShallow      = "shallow"
	ParamFormat       = "format"

	// FormatExport asks the server to include priority metadata.
	FormatExport = "export"
)

// Params builds the query of a Client. Values are JSON-encoded, so
// strings arrive quoted and numbers bare. The first encoding failure is
// reported by Finish.
type Params struct {
	client *Client
	query  url.Values
	err    error
}

// WithParams starts a query on a copy of the client's current query.
func (c *Client) WithParams() *Params {
	return &Params{client: c, query: cloneValues(c.query)}
}

// AddParam appends key with the JSON encoding of value.
func (p *Params) AddParam(key string, value any) *Params {
	data, err := json.Marshal(value)
	if err != nil {
		if p.err == nil {
			p.err = fmt.Errorf("rtdb: encode %s: %w", key, err)
		}
		return p
	}
	p.query.Add(key, string(data))
	return p
}

// OrderBy orders results by a child key, or by "$key", "$value", "$priority".
func (p *Params) OrderBy(key string) *Params {
	p.query.Add(ParamOrderBy, `"`+key+`"`)
	return p
}

// LimitToFirst keeps the first n results.
func (p *Params) LimitToFirst(n int) *Params {
	return p.AddParam(ParamLimitToFirst, n)
}

// LimitToLast keeps the last n results.
func (p *Params) LimitToLast(n int) *Params {
	return p.AddParam(ParamLimitToLast, n)
}

// StartAt sets the inclusive lower bound of the ordered range.
func (p *Params) StartAt(value any) *Params {
	return p.AddParam(ParamStartAt, value)
}

// EndAt sets the inclusive upper bound of the ordered range.
func (p *Params) EndAt(value any) *Params {
	return p.AddParam(ParamEndAt, value)
}

// EqualTo keeps results whose ordered value equals value.
func (p *Params) EqualTo(value any) *Params {
	return p.AddParam(ParamEqualTo, value)
}

// Shallow limits the response to the keys of the location.
func (p *Params) Shallow(flag bool) *Params {
	return p.AddParam(ParamShallow, flag)
}

// Format requests the export format.
func (p *Params) Format() *Params {
	p.query.Set(ParamFormat, FormatExport)
	return p
}

// Finish returns a client for the same location carrying the query.
func (p *Params) Finish() (*Client, error) {
	if p.err != nil {
		return nil, p.err
	}
	child := p.client.clone()
	child.query = p.query
	return child, nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
