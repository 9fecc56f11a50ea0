// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"cmsmini/internal/apperr"
	"cmsmini/internal/models"
)

// Validation limits for account, post and category fields.
const (
	minUsernameLen   = 3
	maxUsernameLen   = 30
	minPasswordLen   = 6
	maxPasswordBytes = 72 // bcrypt ignores anything longer
	minFullNameLen   = 2
	maxFullNameLen   = 100
	maxBioLen        = 500
	maxTitleLen      = 200
	maxExcerptLen    = 300
	maxTagLen        = 50
	maxSEOTitleLen   = 60
	maxSEODescLen    = 160
	maxCategoryName  = 50
	maxCategoryDesc  = 200
	maxCategoryIcon  = 50
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	colorPattern    = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperr.ErrInvalidParameter, fmt.Sprintf(format, args...))
}

// runeLen counts characters, not bytes.
func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func validateUsername(s string) error {
	if n := runeLen(s); n < minUsernameLen || n > maxUsernameLen {
		return invalid("username must be 3-30 characters")
	}
	if !usernamePattern.MatchString(s) {
		return invalid("username may only contain letters, digits and underscores")
	}
	return nil
}

func validateEmail(s string) error {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return invalid("email is not a valid address")
	}
	return nil
}

func validatePassword(field, s string) error {
	if runeLen(s) < minPasswordLen {
		return invalid("%s must be at least 6 characters", field)
	}
	if len(s) > maxPasswordBytes {
		return invalid("%s must be at most 72 bytes", field)
	}
	return nil
}

func validateFullName(s string) error {
	if n := runeLen(strings.TrimSpace(s)); n < minFullNameLen || n > maxFullNameLen {
		return invalid("full_name must be 2-100 characters")
	}
	return nil
}

func validateBio(s string) error {
	if runeLen(s) > maxBioLen {
		return invalid("bio must be at most 500 characters")
	}
	return nil
}

// validateSocialLinks requires every non-empty link to be an absolute
// http(s) URL.
func validateSocialLinks(l models.SocialLinks) error {
	links := []struct{ name, value string }{
		{"website", l.Website},
		{"twitter", l.Twitter},
		{"facebook", l.Facebook},
		{"instagram", l.Instagram},
		{"linkedin", l.LinkedIn},
	}
	for _, link := range links {
		if link.value == "" {
			continue
		}
		u, err := url.Parse(link.value)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return invalid("social_links.%s is not a valid URL", link.name)
		}
	}
	return nil
}

// validatePost checks the post fields present in in. On create, title and
// content are required.
func validatePost(in *postInput, create bool) error {
	if create && (in.Title == nil || in.Content == nil) {
		return invalid("title and content are required")
	}
	if in.Title != nil {
		if n := runeLen(strings.TrimSpace(*in.Title)); n < 1 || n > maxTitleLen {
			return invalid("title must be 1-200 characters")
		}
	}
	if in.Content != nil && strings.TrimSpace(*in.Content) == "" {
		return invalid("content must not be empty")
	}
	if in.Excerpt != nil && runeLen(*in.Excerpt) > maxExcerptLen {
		return invalid("excerpt must be at most 300 characters")
	}
	if in.Status != nil && !in.Status.Valid() {
		return invalid("unknown status %q", *in.Status)
	}
	if in.Tags != nil {
		for _, tag := range *in.Tags {
			if runeLen(tag) > maxTagLen {
				return invalid("tags must be at most 50 characters each")
			}
		}
	}
	if in.SEOTitle != nil && runeLen(*in.SEOTitle) > maxSEOTitleLen {
		return invalid("seo_title must be at most 60 characters")
	}
	if in.SEODescription != nil && runeLen(*in.SEODescription) > maxSEODescLen {
		return invalid("seo_description must be at most 160 characters")
	}
	return nil
}

// validateCategory checks the category fields present in in. On create,
// name is required.
func validateCategory(in *categoryInput, create bool) error {
	if create && in.Name == nil {
		return invalid("name is required")
	}
	if in.Name != nil {
		if n := runeLen(strings.TrimSpace(*in.Name)); n < 1 || n > maxCategoryName {
			return invalid("name must be 1-50 characters")
		}
	}
	if in.Description != nil && runeLen(*in.Description) > maxCategoryDesc {
		return invalid("description must be at most 200 characters")
	}
	if in.Color != nil && !colorPattern.MatchString(*in.Color) {
		return invalid("color must be a hex value like #3B82F6")
	}
	if in.Icon != nil && runeLen(*in.Icon) > maxCategoryIcon {
		return invalid("icon must be at most 50 characters")
	}
	if in.SortOrder != nil && *in.SortOrder < 0 {
		return invalid("sort_order must not be negative")
	}
	return nil
}
