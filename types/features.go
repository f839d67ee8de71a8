package types

// Capability strings held in User.Features.
const (
	FeatureReadActivationToken = "read:activation_token"
	FeatureCreateSession       = "create:session"
	FeatureReadSession         = "read:session"
	FeatureCreateUser          = "create:user"
	FeatureReadUser            = "read:user"
	FeatureEditUser            = "edit:user"

	// FeatureEditOtherUsers lifts the self-only restriction of FeatureEditUser.
	FeatureEditOtherUsers = "edit:user:others"
)

// AnonymousFeatures returns the capabilities of a caller without a session.
func AnonymousFeatures() []string {
	return []string{FeatureReadActivationToken, FeatureCreateSession, FeatureCreateUser}
}

// PendingActivationFeatures returns the capabilities of a freshly registered user.
func PendingActivationFeatures() []string {
	return []string{FeatureReadActivationToken}
}

// ActivatedFeatures returns the capabilities granted once an account is activated.
func ActivatedFeatures() []string {
	return []string{FeatureCreateSession, FeatureReadSession, FeatureReadUser, FeatureEditUser}
}
