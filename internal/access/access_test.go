// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package access

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"cmsmini/internal/apperr"
	"cmsmini/internal/models"
)

func principal(role models.Role, active bool) *Principal {
	p := NewPrincipal(uuid.New(), role, active)
	return &p
}

func TestMeetsMinimum(t *testing.T) {
	tests := []struct {
		role, threshold models.Role
		want            bool
	}{
		{models.RoleUser, models.RoleUser, true},
		{models.RoleUser, models.RoleAuthor, false},
		{models.RoleAuthor, models.RoleAuthor, true},
		{models.RoleAuthor, models.RoleEditor, false},
		{models.RoleEditor, models.RoleAuthor, true},
		{models.RoleEditor, models.RoleAdmin, false},
		{models.RoleAdmin, models.RoleUser, true},
		{models.RoleAdmin, models.RoleAdmin, true},
		{models.Role("root"), models.RoleUser, false},
		{models.RoleAdmin, models.Role("root"), false},
	}

	for _, tt := range tests {
		if got := MeetsMinimum(tt.role, tt.threshold); got != tt.want {
			t.Errorf("MeetsMinimum(%q, %q) = %v, want %v", tt.role, tt.threshold, got, tt.want)
		}
	}
}

func TestLevelOrder(t *testing.T) {
	prev := -1
	for _, r := range models.Roles {
		lvl, ok := Level(r)
		if !ok {
			t.Fatalf("Level(%q) unknown", r)
		}
		if lvl <= prev {
			t.Errorf("Level(%q) = %d, want > %d", r, lvl, prev)
		}
		prev = lvl
	}
}

func TestDecideAbsentPrincipal(t *testing.T) {
	for _, a := range Actions() {
		d := Decide(nil, a, nil)
		if d.Allowed || !errors.Is(d.Reason, apperr.ErrUnauthenticated) {
			t.Errorf("Decide(nil, %s) = %+v, want deny unauthenticated", a, d)
		}
	}
}

// TestDecideDisabledAccount verifies a disabled admin is denied even though
// its role alone would satisfy every threshold.
func TestDecideDisabledAccount(t *testing.T) {
	p := principal(models.RoleAdmin, false)
	owner := p.ID()
	for _, a := range Actions() {
		d := Decide(p, a, &owner)
		if d.Allowed || !errors.Is(d.Reason, apperr.ErrAccountDisabled) {
			t.Errorf("Decide(disabled admin, %s) = %+v, want deny account disabled", a, d)
		}
	}
}

func TestDecideAdminAlwaysAllowed(t *testing.T) {
	p := principal(models.RoleAdmin, true)
	other := uuid.New()
	for _, a := range Actions() {
		for _, owner := range []*uuid.UUID{nil, &other} {
			if d := Decide(p, a, owner); !d.Allowed {
				t.Errorf("Decide(admin, %s, %v) denied: %v", a, owner, d.Reason)
			}
		}
	}
}

func TestDecideCatalog(t *testing.T) {
	tests := []struct {
		action Action
		role   models.Role
		want   bool
	}{
		{ContentCreate, models.RoleUser, false},
		{ContentCreate, models.RoleAuthor, true},
		{ContentUpdate, models.RoleAuthor, false},
		{ContentUpdate, models.RoleEditor, true},
		{ContentDelete, models.RoleAuthor, false},
		{ContentDelete, models.RoleEditor, true},
		{ContentViewUnpublished, models.RoleUser, false},
		{ContentViewUnpublished, models.RoleAuthor, true},
		{ContentLike, models.RoleUser, true},
		{AccountView, models.RoleUser, true},
		{AccountUpdate, models.RoleEditor, false},
		{AccountAdminister, models.RoleEditor, false},
		{AccountDelete, models.RoleEditor, false},
		{AccountList, models.RoleEditor, false},
		{StatsView, models.RoleEditor, false},
		{CategoryCreate, models.RoleAuthor, false},
		{CategoryCreate, models.RoleEditor, true},
		{CategoryUpdate, models.RoleEditor, true},
		{CategoryDelete, models.RoleEditor, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.action)+"/"+string(tt.role), func(t *testing.T) {
			d := Decide(principal(tt.role, true), tt.action, nil)
			if d.Allowed != tt.want {
				t.Errorf("Allowed = %v, want %v (reason %v)", d.Allowed, tt.want, d.Reason)
			}
			if !tt.want && !errors.Is(d.Reason, apperr.ErrInsufficientPermission) {
				t.Errorf("Reason = %v, want insufficient permission", d.Reason)
			}
		})
	}
}

func TestDecideOwnershipFallback(t *testing.T) {
	author := principal(models.RoleAuthor, true)
	own := author.ID()
	other := uuid.New()

	t.Run("owner may update own post", func(t *testing.T) {
		if d := Decide(author, ContentUpdate, &own); !d.Allowed {
			t.Errorf("denied: %v", d.Reason)
		}
	})

	t.Run("owner may delete own post", func(t *testing.T) {
		if d := Decide(author, ContentDelete, &own); !d.Allowed {
			t.Errorf("denied: %v", d.Reason)
		}
	})

	t.Run("different owner is denied", func(t *testing.T) {
		d := Decide(author, ContentDelete, &other)
		if d.Allowed || !errors.Is(d.Reason, apperr.ErrInsufficientPermission) {
			t.Errorf("got %+v, want deny insufficient permission", d)
		}
	})

	t.Run("missing owner is denied", func(t *testing.T) {
		if d := Decide(author, ContentUpdate, nil); d.Allowed {
			t.Error("allowed without owner")
		}
	})

	t.Run("nil owner id never matches", func(t *testing.T) {
		zero := NewPrincipal(uuid.Nil, models.RoleUser, true)
		nilOwner := uuid.Nil
		if d := Decide(&zero, AccountUpdate, &nilOwner); d.Allowed {
			t.Error("allowed for uuid.Nil owner")
		}
	})

	t.Run("no fallback on admin-only actions", func(t *testing.T) {
		user := principal(models.RoleUser, true)
		self := user.ID()
		if d := Decide(user, AccountDelete, &self); d.Allowed {
			t.Error("account.delete allowed via ownership")
		}
	})

	t.Run("self-service account update", func(t *testing.T) {
		user := principal(models.RoleUser, true)
		self := user.ID()
		if d := Decide(user, AccountUpdate, &self); !d.Allowed {
			t.Errorf("denied: %v", d.Reason)
		}
	})

	t.Run("editor bypasses ownership", func(t *testing.T) {
		editor := principal(models.RoleEditor, true)
		if d := Decide(editor, ContentDelete, &other); !d.Allowed {
			t.Errorf("denied: %v", d.Reason)
		}
	})
}

func TestDecideUnknownAction(t *testing.T) {
	d := Decide(principal(models.RoleAdmin, true), Action("content.publish_everywhere"), nil)
	if d.Allowed || !errors.Is(d.Reason, apperr.ErrInsufficientPermission) {
		t.Errorf("got %+v, want deny insufficient permission", d)
	}
}

func TestDecideUnknownRole(t *testing.T) {
	p := NewPrincipal(uuid.New(), models.Role("superuser"), true)
	if d := Decide(&p, ContentLike, nil); d.Allowed {
		t.Error("unknown role allowed")
	}
}

// TestDecidePure verifies repeated calls with identical inputs agree.
func TestDecidePure(t *testing.T) {
	p := principal(models.RoleAuthor, true)
	owner := uuid.New()
	for _, a := range Actions() {
		first := Decide(p, a, &owner)
		for i := 0; i < 3; i++ {
			if again := Decide(p, a, &owner); again != first {
				t.Errorf("Decide(%s) changed between calls: %+v vs %+v", a, first, again)
			}
		}
	}
}

func TestCheck(t *testing.T) {
	if err := Check(principal(models.RoleEditor, true), CategoryCreate, nil); err != nil {
		t.Errorf("Check editor category.create: %v", err)
	}
	err := Check(principal(models.RoleAuthor, true), CategoryCreate, nil)
	if !errors.Is(err, apperr.ErrInsufficientPermission) {
		t.Errorf("Check author category.create = %v, want insufficient permission", err)
	}
}
