// Package classifier tells bots from humans and maps accounts to contributor roles.
package classifier

import (
	"strings"

	"github.com/naka-gawa/github-insights/internal/domain"
)

// knownBots are automation accounts that do not always carry the [bot] suffix.
var knownBots = []string{
	"dependabot", "renovate", "greenkeeper",
	"github-actions", "codecov", "coveralls",
	"mergify", "snyk-bot", "imgbot",
	"allcontributors", "stale", "pre-commit-ci",
	"netlify", "vercel", "coderabbitai",
}

// IsBot reports whether actor is an automated account.
// GitHub's account type wins; the login naming conventions are the fallback.
func IsBot(actor domain.Actor) bool {
	if strings.EqualFold(actor.Type, "Bot") {
		return true
	}
	return isBotLogin(actor.Login)
}

func isBotLogin(login string) bool {
	login = strings.ToLower(strings.TrimSpace(login))
	if login == "" {
		return false
	}
	if strings.HasSuffix(login, "[bot]") {
		return true
	}
	// Word-boundary patterns only, "robot" and "abbott" are people.
	if strings.HasPrefix(login, "bot-") || strings.HasSuffix(login, "-bot") || strings.HasSuffix(login, "_bot") {
		return true
	}
	for _, name := range knownBots {
		if login == name {
			return true
		}
	}
	return false
}

// HasBotAuthors reports whether any pull request in prs was opened by a bot.
func HasBotAuthors(prs []domain.PullRequest) bool {
	for _, pr := range prs {
		if IsBot(pr.Author) {
			return true
		}
	}
	return false
}
