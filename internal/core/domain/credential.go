package domain

// Tier is the retention duration of the stored credential, selected at
// login time via "remember me".
type Tier string

const (
	// TierPersistent survives process restarts.
	TierPersistent Tier = "persistent"
	// TierEphemeral lives only as long as the current process.
	TierEphemeral Tier = "ephemeral"
)

// TierFor maps the "remember me" choice to a retention tier.
func TierFor(remember bool) Tier {
	if remember {
		return TierPersistent
	}
	return TierEphemeral
}

// Credential is the opaque bearer token together with its retention tier.
// At most one credential is active at a time; writing a credential under
// one tier removes any copy held under the other.
type Credential struct {
	Token string
	Tier  Tier
}
