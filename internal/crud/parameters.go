package crud

import (
	"net/url"
	"strings"
)

// DefaultDataSource is the only data source every type has.
const DefaultDataSource = "Default"

// Parameters are the data source parameters a request applies to every item.
type Parameters struct {
	// Includes names a response shape; records are flat, so it is carried through unchanged.
	Includes   string
	DataSource string
}

func ParametersFromQuery(q url.Values) Parameters {
	return Parameters{
		Includes:   strings.TrimSpace(q.Get("includes")),
		DataSource: strings.TrimSpace(q.Get("dataSource")),
	}
}

func (p Parameters) dataSourceName() string {
	if p.DataSource == "" {
		return DefaultDataSource
	}
	return p.DataSource
}
