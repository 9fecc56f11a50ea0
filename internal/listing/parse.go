// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package listing

import (
	"net/url"
	"strconv"
	"strings"
)

// ParseQuery reads listing params from a request query string. Empty values
// count as not supplied. "limit" and "page_size" are both accepted for the
// page size. Values that cannot be parsed fail with ErrInvalidParameter;
// range and membership checks are left to Compose.
func ParseQuery(v url.Values) (Params, error) {
	var p Params
	var err error

	if p.Page, err = intParam(v, "page"); err != nil {
		return Params{}, err
	}
	if p.PageSize, err = intParam(v, "page_size", "limit"); err != nil {
		return Params{}, err
	}
	if p.Featured, err = boolParam(v, "featured"); err != nil {
		return Params{}, err
	}
	if p.Active, err = boolParam(v, "active"); err != nil {
		return Params{}, err
	}

	p.Search = stringParam(v, "search")
	p.Status = stringParam(v, "status")
	p.Category = stringParam(v, "category")
	p.Author = stringParam(v, "author")
	p.Parent = stringParam(v, "parent")
	p.Role = stringParam(v, "role")
	if s := stringParam(v, "sort"); s != nil {
		key := SortKey(*s)
		p.Sort = &key
	}

	return p, nil
}

func stringParam(v url.Values, keys ...string) *string {
	for _, k := range keys {
		if s := strings.TrimSpace(v.Get(k)); s != "" {
			return &s
		}
	}
	return nil
}

func intParam(v url.Values, keys ...string) (*int, error) {
	s := stringParam(v, keys...)
	if s == nil {
		return nil, nil
	}
	n, err := strconv.Atoi(*s)
	if err != nil {
		return nil, invalid("%s must be an integer", keys[0])
	}
	return &n, nil
}

func boolParam(v url.Values, key string) (*bool, error) {
	s := stringParam(v, key)
	if s == nil {
		return nil, nil
	}
	b, err := strconv.ParseBool(*s)
	if err != nil {
		return nil, invalid("%s must be true or false", key)
	}
	return &b, nil
}
