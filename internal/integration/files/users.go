package files

import (
	"os"
	"slices"

	"github.com/colonyops/yearn/internal/core/config"
)

// Users resolves the user namespaces a pass iterates. Listed mode returns
// users.names as configured. All mode adds every directory under the users
// dir. Names that are unsafe as namespaces are dropped.
func Users(cfg *config.Config) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if seen[name] || config.ValidateUserName(name) != nil {
			return
		}
		seen[name] = true
		out = append(out, name)
	}

	for _, n := range cfg.Users.Names {
		add(n)
	}

	if cfg.Users.Mode != config.UsersAll {
		return out, nil
	}

	entries, err := os.ReadDir(cfg.UsersDir())
	switch {
	case os.IsNotExist(err):
		return out, nil
	case err != nil:
		return nil, err
	}

	var found []string
	for _, e := range entries {
		if e.IsDir() {
			found = append(found, e.Name())
		}
	}
	slices.Sort(found)
	for _, n := range found {
		add(n)
	}

	return out, nil
}
