// Package authz decides whether a subject may perform an action. It never
// touches the store and never returns errors from Can; callers that need an
// error use Require.
package authz

import (
	"github.com/bioespinhanews/apiserver/internal/apperr"
	"github.com/bioespinhanews/apiserver/types"
)

// Subject is the caller of an operation: either anonymous or an
// authenticated user. The zero value is anonymous.
type Subject struct {
	user *types.User
}

// Anonymous returns the subject for callers without a session.
func Anonymous() Subject {
	return Subject{}
}

// Authenticated returns the subject for a resolved user.
func Authenticated(user types.User) Subject {
	return Subject{user: &user}
}

// IsAnonymous reports whether the subject has no user.
func (s Subject) IsAnonymous() bool {
	return s.user == nil
}

// User returns the authenticated user. ok is false for anonymous subjects.
func (s Subject) User() (user types.User, ok bool) {
	if s.user == nil {
		return types.User{}, false
	}
	return *s.user, true
}

// Features returns the capability set of the subject.
func (s Subject) Features() []string {
	if s.user == nil {
		return types.AnonymousFeatures()
	}
	return s.user.Features
}

func (s Subject) has(feature string) bool {
	for _, f := range s.Features() {
		if f == feature {
			return true
		}
	}
	return false
}

// selfScoped maps features restricted to the subject's own records to the
// elevated feature that lifts the restriction.
var selfScoped = map[string]string{
	types.FeatureEditUser: types.FeatureEditOtherUsers,
}

// Can reports whether subject may exercise feature, optionally against target.
func Can(subject Subject, feature string, target *types.User) bool {
	if !subject.has(feature) {
		return false
	}
	elevated, scoped := selfScoped[feature]
	if !scoped || target == nil {
		return true
	}
	if subject.has(elevated) {
		return true
	}
	user, ok := subject.User()
	return ok && user.ID == target.ID
}

// Require is Can for callers that need a ForbiddenError naming the feature.
func Require(subject Subject, feature string, target *types.User) error {
	if Can(subject, feature, target) {
		return nil
	}
	return apperr.Forbidden(feature)
}
