package activity

/*
Identity is the authenticated principal a turn runs as. The auth middleware
produces it from the bearer token; unauthenticated hosts run turns as
Anonymous.
*/
type Identity struct {
	Name   string
	Claims map[string]any
	Token  string
}

func Anonymous() Identity {
	return Identity{Name: "anonymous"}
}

// Authenticated reports whether the identity came from a validated token.
func (id Identity) Authenticated() bool {
	return id.Token != ""
}
