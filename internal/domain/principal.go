package domain

// Principal is the already-authenticated caller: identity, group
// memberships and the admin override. The service never authenticates;
// the edge resolves identity and forwards it.
type Principal struct {
	ID     string
	Groups []string
	Admin  bool
}

func (p Principal) InGroup(groupID string) bool {
	for _, g := range p.Groups {
		if g == groupID {
			return true
		}
	}
	return false
}
