package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks that the fields required for the given mode are set.
// Mode "run" covers one-shot pipeline execution; "serve" additionally
// requires a usable server port.
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	switch mode {
	case "run", "serve":
		check(c.YouTube.Key != "", "youtube.key is required")
		check(c.Anthropic.Key != "", "anthropic.key is required")
		switch c.Store.Driver {
		case "sqlite":
			check(c.Store.Path != "", "store.path is required for the sqlite driver")
		case "postgres":
			check(c.Store.DatabaseURL != "", "store.database_url is required for the postgres driver")
		default:
			check(false, fmt.Sprintf("store.driver %q is not supported (sqlite, postgres)", c.Store.Driver))
		}
		check(c.Discovery.MaxSearchResults >= 1 && c.Discovery.MaxSearchResults <= 50,
			"discovery.max_search_results must be between 1 and 50")
		check(c.Discovery.MaxCommentsPerVideo >= 0 && c.Discovery.MaxCommentsPerVideo <= 100,
			"discovery.max_comments_per_video must be between 0 and 100")
		check(c.Transcript.MaxRetries >= 0, "transcript.max_retries must be >= 0")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if mode == "serve" {
		check(c.Server.Port > 0, "server.port must be > 0")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}
