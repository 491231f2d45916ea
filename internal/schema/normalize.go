package schema

import "strings"

// Member roles. Exactly two exist: every imported position string maps to
// one of them, RoleMember being the lesser-privileged default.
const (
	RoleLeader = "leader"
	RoleMember = "member"
)

// roleRule maps a keyword set to the role it implies. Rules are evaluated
// top to bottom and the first keyword hit wins, so overlapping keyword sets
// resolve by rule order, not by longest match.
type roleRule struct {
	keywords []string
	role     string
}

// roleRules is the ordered inference table for free-text position strings.
// Ministry positions come first so a string like "담임목사 장로회 대표"
// resolves to the leader role even though it also contains an eldership
// keyword.
var roleRules = []roleRule{
	{keywords: []string{"목사", "전도사", "교역자", "강도사"}, role: RoleLeader},
	{keywords: []string{"장로", "시찰장", "노회장", "총무", "서기", "회계"}, role: RoleLeader},
	{keywords: []string{"권사", "집사", "성도"}, role: RoleMember},
}

// InferRole maps a free-text position to exactly one of the two roles.
// Total by construction: no keyword hit falls back to RoleMember.
func InferRole(position string) string {
	position = strings.TrimSpace(position)
	for _, rule := range roleRules {
		for _, kw := range rule.keywords {
			if strings.Contains(position, kw) {
				return rule.role
			}
		}
	}
	return RoleMember
}

// districtSuffix is the organizational suffix (시찰, "inspection district")
// that sheet authors habitually append to district names.
const districtSuffix = "시찰"

// NormalizeDistrict strips the 시찰 suffix from a district name so "남부시찰"
// and "남부" store identically. The suffix may be stacked ("동부시찰시찰"),
// so stripping repeats until none remains; one pass is the fixed point and
// a normalized value passes through unchanged.
func NormalizeDistrict(name string) string {
	name = strings.TrimSpace(name)
	for strings.HasSuffix(name, districtSuffix) {
		trimmed := strings.TrimSpace(strings.TrimSuffix(name, districtSuffix))
		// "시찰" alone is a degenerate name, not a suffix to strip.
		if trimmed == "" {
			return name
		}
		name = trimmed
	}
	return name
}

// DefaultPassword is the initial password assigned to bulk-imported members
// whose sheet carries no credentials. The host application forces a change
// on first login.
const DefaultPassword = "0000"

// DefaultUsername derives a deterministic username for a member without
// one: the name with inner whitespace removed. Korean names rarely collide
// within one presbytery; the directory UI resolves the remainder manually.
func DefaultUsername(name string) string {
	return strings.Join(strings.Fields(name), "")
}
