package runner

import (
	"fmt"
	"maps"
	"os"
	"sort"
	"strings"
)

// Command describes one external command. Either Shell is set (run through the platform
// shell) or Name/Args are executed directly.
type Command struct {
	Name  string
	Args  []string
	Shell string
	Dir   string
	Env   map[string]string // overrides on top of the base environment
}

// Exec returns a command that runs name with args directly.
func Exec(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// Shell returns a command that runs script through the platform shell.
func Shell(script string) Command {
	return Command{Shell: script}
}

// In returns a copy of c that runs in dir.
func (c Command) In(dir string) Command {
	c.Dir = dir
	return c
}

// WithEnv returns a copy of c with env merged into its overrides.
func (c Command) WithEnv(env map[string]string) Command {
	merged := make(map[string]string, len(c.Env)+len(env))
	maps.Copy(merged, c.Env)
	maps.Copy(merged, env)
	c.Env = merged
	return c
}

// String renders the command for logs.
func (c Command) String() string {
	if c.Shell != "" {
		return c.Shell
	}
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

func (c Command) argv() ([]string, error) {
	if c.Shell != "" {
		return shellArgv(c.Shell), nil
	}
	if c.Name == "" {
		return nil, fmt.Errorf("empty command")
	}
	return append([]string{c.Name}, c.Args...), nil
}

// mergeEnv overlays overrides onto base; overrides win on key collision.
func mergeEnv(base []string, overrides ...map[string]string) []string {
	envMap := make(map[string]string, len(base))
	for _, kv := range base {
		if idx := strings.Index(kv, "="); idx > 0 {
			envMap[kv[:idx]] = kv[idx+1:]
		}
	}
	for _, overlay := range overrides {
		maps.Copy(envMap, overlay)
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}

func baseEnviron() []string { return os.Environ() }
