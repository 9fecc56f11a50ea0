// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package listing

import (
	"errors"
	"math"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"

	"cmsmini/internal/access"
	"cmsmini/internal/apperr"
	"cmsmini/internal/models"
)

func ptr[T any](v T) *T { return &v }

func principal(role models.Role) *access.Principal {
	p := access.NewPrincipal(uuid.New(), role, true)
	return &p
}

func statusFilter(q QuerySpec) (string, bool) {
	for _, f := range q.Filters {
		if f.Field == FilterStatus {
			s, _ := f.Value.(string)
			return s, true
		}
	}
	return "", false
}

func TestComposeDefaults(t *testing.T) {
	q, err := Compose(Users, Params{}, principal(models.RoleAdmin))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if q.Page != 1 || q.PageSize != 10 || q.Skip != 0 {
		t.Errorf("page=%d size=%d skip=%d, want 1/10/0", q.Page, q.PageSize, q.Skip)
	}
	if q.Search != nil {
		t.Errorf("Search = %+v, want nil", q.Search)
	}
	if len(q.Filters) != 0 {
		t.Errorf("Filters = %+v, want none", q.Filters)
	}
}

func TestComposePagination(t *testing.T) {
	tests := []struct {
		name     string
		params   Params
		wantErr  bool
		wantSkip int
	}{
		{name: "page zero", params: Params{Page: ptr(0)}, wantErr: true},
		{name: "negative page", params: Params{Page: ptr(-3)}, wantErr: true},
		{name: "size zero", params: Params{PageSize: ptr(0)}, wantErr: true},
		{name: "size over max", params: Params{PageSize: ptr(101)}, wantErr: true},
		{name: "size at max", params: Params{PageSize: ptr(100)}},
		{name: "third page", params: Params{Page: ptr(3), PageSize: ptr(20)}, wantSkip: 40},
		{name: "offset overflow", params: Params{Page: ptr(math.MaxInt/10 + 1), PageSize: ptr(100)}, wantErr: true},
		{name: "huge page default size", params: Params{Page: ptr(math.MaxInt)}, wantErr: true},
		{name: "last representable page", params: Params{Page: ptr(math.MaxInt/100 + 1), PageSize: ptr(100)}, wantSkip: math.MaxInt / 100 * 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Compose(Categories, tt.params, nil)
			if tt.wantErr {
				if !errors.Is(err, apperr.ErrInvalidParameter) {
					t.Fatalf("err = %v, want invalid parameter", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Compose: %v", err)
			}
			if q.Skip != tt.wantSkip {
				t.Errorf("Skip = %d, want %d", q.Skip, tt.wantSkip)
			}
			if q.Limit() != q.PageSize {
				t.Errorf("Limit = %d, want %d", q.Limit(), q.PageSize)
			}
		})
	}
}

func TestComposePublishedPolicy(t *testing.T) {
	tests := []struct {
		name       string
		viewer     *access.Principal
		status     *string
		wantErr    bool
		wantStatus string // empty means no status filter
	}{
		{name: "anonymous without status", viewer: nil, wantStatus: "published"},
		{name: "user without status", viewer: principal(models.RoleUser), wantStatus: "published"},
		{name: "anonymous asks published", viewer: nil, status: ptr("published"), wantStatus: "published"},
		{name: "anonymous asks draft", viewer: nil, status: ptr("draft"), wantErr: true},
		{name: "user asks archived", viewer: principal(models.RoleUser), status: ptr("archived"), wantErr: true},
		{name: "author without status", viewer: principal(models.RoleAuthor)},
		{name: "author asks draft", viewer: principal(models.RoleAuthor), status: ptr("draft"), wantStatus: "draft"},
		{name: "admin asks archived", viewer: principal(models.RoleAdmin), status: ptr("archived"), wantStatus: "archived"},
		{name: "unknown status", viewer: principal(models.RoleAdmin), status: ptr("pending"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Compose(Posts, Params{Status: tt.status}, tt.viewer)
			if tt.wantErr {
				if !errors.Is(err, apperr.ErrInvalidParameter) {
					t.Fatalf("err = %v, want invalid parameter", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Compose: %v", err)
			}
			got, ok := statusFilter(q)
			if tt.wantStatus == "" {
				if ok {
					t.Errorf("unexpected status filter %q", got)
				}
				return
			}
			if got != tt.wantStatus {
				t.Errorf("status filter = %q, want %q", got, tt.wantStatus)
			}
		})
	}
}

func TestComposeDisabledViewerRestricted(t *testing.T) {
	p := access.NewPrincipal(uuid.New(), models.RoleAdmin, false)
	q, err := Compose(Posts, Params{}, &p)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if got, _ := statusFilter(q); got != "published" {
		t.Errorf("status filter = %q, want published", got)
	}
}

func TestComposeUndeclaredFilter(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		params  Params
	}{
		{"role on posts", Posts, Params{Role: ptr("admin")}},
		{"status on users", Users, Params{Status: ptr("draft")}},
		{"featured on categories", Categories, Params{Featured: ptr(true)}},
		{"parent on users", Users, Params{Parent: ptr("null")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compose(tt.profile, tt.params, principal(models.RoleAdmin))
			if !errors.Is(err, apperr.ErrInvalidParameter) {
				t.Fatalf("err = %v, want invalid parameter", err)
			}
		})
	}
}

func TestComposeSort(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		key     *SortKey
		want    []SortField
		wantErr bool
	}{
		{name: "posts default newest", profile: Posts, want: []SortField{{"published_at", true}, {"created_at", true}}},
		{name: "posts oldest", profile: Posts, key: ptr(SortOldest), want: []SortField{{"published_at", false}, {"created_at", false}}},
		{name: "posts popular", profile: Posts, key: ptr(SortPopular), want: []SortField{{"views", true}, {"likes", true}}},
		{name: "posts title", profile: Posts, key: ptr(SortTitle), want: []SortField{{"title", false}}},
		{name: "posts none", profile: Posts, key: ptr(SortNone), want: []SortField{{"created_at", false}}},
		{name: "categories default is insertion order", profile: Categories, want: []SortField{{"created_at", false}}},
		{name: "categories popular", profile: Categories, key: ptr(SortPopular), wantErr: true},
		{name: "users title", profile: Users, key: ptr(SortTitle), want: []SortField{{"username", false}}},
		{name: "unknown key", profile: Users, key: ptr(SortKey("random")), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Compose(tt.profile, Params{Sort: tt.key}, principal(models.RoleAdmin))
			if tt.wantErr {
				if !errors.Is(err, apperr.ErrInvalidParameter) {
					t.Fatalf("err = %v, want invalid parameter", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Compose: %v", err)
			}
			if len(q.Sort) != len(tt.want) {
				t.Fatalf("Sort = %+v, want %+v", q.Sort, tt.want)
			}
			for i := range tt.want {
				if q.Sort[i] != tt.want[i] {
					t.Errorf("Sort[%d] = %+v, want %+v", i, q.Sort[i], tt.want[i])
				}
			}
		})
	}
}

func TestComposeSearch(t *testing.T) {
	q, err := Compose(Posts, Params{Search: ptr("  hello  ")}, nil)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if q.Search == nil || q.Search.Term != "hello" {
		t.Fatalf("Search = %+v, want term hello", q.Search)
	}
	if len(q.Search.Fields) != 3 {
		t.Errorf("Search fields = %v", q.Search.Fields)
	}

	q, err = Compose(Posts, Params{Search: ptr("   ")}, nil)
	if err != nil {
		t.Fatalf("Compose blank: %v", err)
	}
	if q.Search != nil {
		t.Errorf("blank search produced %+v", q.Search)
	}

	_, err = Compose(Posts, Params{Search: ptr(strings.Repeat("a", 101))}, nil)
	if !errors.Is(err, apperr.ErrInvalidParameter) {
		t.Errorf("long search err = %v, want invalid parameter", err)
	}
}

func TestComposeFilters(t *testing.T) {
	author := uuid.New()
	category := uuid.New()

	q, err := Compose(Posts, Params{
		Author:   ptr(author.String()),
		Category: ptr(category.String()),
		Featured: ptr(true),
	}, principal(models.RoleEditor))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(q.Filters) != 3 {
		t.Fatalf("Filters = %+v", q.Filters)
	}
	for _, f := range q.Filters {
		switch f.Field {
		case FilterAuthor:
			if f.Op != OpEq || f.Value != author {
				t.Errorf("author filter = %+v", f)
			}
		case FilterCategory:
			if f.Op != OpContains || f.Value != category {
				t.Errorf("category filter = %+v", f)
			}
		case FilterFeatured:
			if f.Value != true {
				t.Errorf("featured filter = %+v", f)
			}
		}
	}

	if _, err := Compose(Posts, Params{Author: ptr("nope")}, nil); !errors.Is(err, apperr.ErrInvalidParameter) {
		t.Errorf("bad author err = %v", err)
	}

	q, err = Compose(Categories, Params{Parent: ptr("null")}, nil)
	if err != nil {
		t.Fatalf("Compose parent: %v", err)
	}
	if len(q.Filters) != 1 || q.Filters[0].Op != OpIsNull {
		t.Errorf("parent filter = %+v, want IS NULL", q.Filters)
	}

	if _, err := Compose(Users, Params{Role: ptr("root")}, nil); !errors.Is(err, apperr.ErrInvalidParameter) {
		t.Errorf("bad role err = %v", err)
	}
}

func TestNewEnvelope(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{23, 10, 3},
		{20, 10, 2},
		{0, 10, 0},
		{1, 100, 1},
	}
	for _, tt := range tests {
		env := NewEnvelope(QuerySpec{Page: 1, PageSize: tt.size}, tt.total)
		if env.TotalPages != tt.want {
			t.Errorf("total=%d size=%d: pages = %d, want %d", tt.total, tt.size, env.TotalPages, tt.want)
		}
		if env.Total != tt.total || env.PageSize != tt.size || env.Page != 1 {
			t.Errorf("envelope echo = %+v", env)
		}
	}
}

func TestParseQuery(t *testing.T) {
	v := url.Values{
		"page":     {"2"},
		"limit":    {"25"},
		"search":   {"go"},
		"sort":     {"popular"},
		"featured": {"true"},
		"status":   {""},
	}
	p, err := ParseQuery(v)
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	if p.Page == nil || *p.Page != 2 {
		t.Errorf("Page = %v", p.Page)
	}
	if p.PageSize == nil || *p.PageSize != 25 {
		t.Errorf("PageSize = %v", p.PageSize)
	}
	if p.Sort == nil || *p.Sort != SortPopular {
		t.Errorf("Sort = %v", p.Sort)
	}
	if p.Featured == nil || !*p.Featured {
		t.Errorf("Featured = %v", p.Featured)
	}
	if p.Status != nil {
		t.Errorf("empty status parsed as %q", *p.Status)
	}

	for _, bad := range []url.Values{
		{"page": {"two"}},
		{"page_size": {"1.5"}},
		{"active": {"maybe"}},
	} {
		if _, err := ParseQuery(bad); !errors.Is(err, apperr.ErrInvalidParameter) {
			t.Errorf("ParseQuery(%v) err = %v, want invalid parameter", bad, err)
		}
	}
}
