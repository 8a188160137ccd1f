package classifier

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/naka-gawa/github-insights/internal/domain"
)

// Role is the part an account plays in a repository.
type Role string

const (
	RoleBot         Role = "bot"
	RoleOwner       Role = "owner"
	RoleMaintainer  Role = "maintainer"
	RoleContributor Role = "contributor"
)

// Roster lists accounts whose role cannot be inferred from GitHub data alone.
type Roster struct {
	Bots        []string `yaml:"bots"`
	Maintainers []string `yaml:"maintainers"`
	Owners      []string `yaml:"owners"`
}

// LoadRoster reads a YAML roster file.
func LoadRoster(path string) (Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, fmt.Errorf("failed to read roster file: %w", err)
	}
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Roster{}, fmt.Errorf("failed to parse roster file: %w", err)
	}
	return r, nil
}

// Classifier is IsBot extended with a roster. The zero value behaves like IsBot.
type Classifier struct {
	bots        map[string]struct{}
	maintainers map[string]struct{}
	owners      map[string]struct{}
}

// New builds a Classifier from a roster. Logins are matched case-insensitively.
func New(r Roster) *Classifier {
	return &Classifier{
		bots:        toSet(r.Bots),
		maintainers: toSet(r.Maintainers),
		owners:      toSet(r.Owners),
	}
}

func toSet(logins []string) map[string]struct{} {
	set := make(map[string]struct{}, len(logins))
	for _, l := range logins {
		set[strings.ToLower(strings.TrimSpace(l))] = struct{}{}
	}
	return set
}

func contains(set map[string]struct{}, login string) bool {
	_, ok := set[strings.ToLower(login)]
	return ok
}

// IsBot reports whether actor is a bot, either by convention or by roster.
func (c *Classifier) IsBot(actor domain.Actor) bool {
	if IsBot(actor) {
		return true
	}
	return c != nil && contains(c.bots, actor.Login)
}

// Role resolves the role of login. association is GitHub's author_association
// value (OWNER, MEMBER, COLLABORATOR, CONTRIBUTOR, NONE) and may be empty.
func (c *Classifier) Role(actor domain.Actor, association string) Role {
	if c.IsBot(actor) {
		return RoleBot
	}
	if c != nil {
		if contains(c.owners, actor.Login) {
			return RoleOwner
		}
		if contains(c.maintainers, actor.Login) {
			return RoleMaintainer
		}
	}
	switch strings.ToUpper(association) {
	case "OWNER":
		return RoleOwner
	case "MEMBER", "COLLABORATOR":
		return RoleMaintainer
	}
	return RoleContributor
}

// FilterContributors drops bots unless includeBots is set and, when role is
// not empty, every contributor whose role differs. Roles are resolved from the
// roster first and from the contributor's author association otherwise.
func (c *Classifier) FilterContributors(stats []*domain.ContributorStats, includeBots bool, role string) []*domain.ContributorStats {
	kept := make([]*domain.ContributorStats, 0, len(stats))
	for _, s := range stats {
		r := c.Role(domain.Actor{Login: s.Login}, s.Association)
		if r == RoleBot && !includeBots {
			continue
		}
		if role != "" && !strings.EqualFold(string(r), role) {
			continue
		}
		kept = append(kept, s)
	}
	return kept
}
