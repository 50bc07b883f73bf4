// Package viper fills unset command-line flags from environment variables
// and an optional configuration file.
package viper

import (
	"sort"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/calregs"
	"github.com/spf13/viper"
)

// DefaultEnvPrefix prefixes every environment variable read by a Resolver,
// e.g. CALREGS_MAX_ATTEMPTS for --max-attempts.
const DefaultEnvPrefix = "CALREGS"

var _ kong.Resolver = (*Resolver)(nil)

// Resolver is a kong.Resolver backed by viper. Flags given on the command
// line win over environment variables, which win over the config file.
//
// Config keys are flag names with dashes as underscores. A key nested under
// a command name applies to that command only:
//
//	delay: 2s
//	extract:
//	  concurrency: 5
type Resolver struct {
	v *viper.Viper
}

// NewResolver creates a Resolver reading prefixed environment variables and,
// when configFile is not empty, the YAML, TOML or JSON file at that path.
func NewResolver(envPrefix, configFile string) (*Resolver, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, calregs.Errorf(calregs.EINVALID, "failed to read config %s: %v", configFile, err)
		}
	}

	return &Resolver{v: v}, nil
}

// Validate rejects config keys that match no flag.
func (r *Resolver) Validate(app *kong.Application) error {
	known := make(map[string]struct{})
	var visit func(node *kong.Node, prefix string)
	visit = func(node *kong.Node, prefix string) {
		for _, flag := range node.Flags {
			known[prefix+configKey(flag.Name)] = struct{}{}
		}
		for _, child := range node.Children {
			visit(child, prefix+child.Name+".")
		}
	}
	visit(app.Node, "")

	var unknown []string
	for _, key := range r.v.AllKeys() {
		if _, ok := known[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return calregs.Errorf(calregs.EINVALID, "unknown config keys: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// Resolve returns the configured value of flag, or nil when none is set.
func (r *Resolver) Resolve(kctx *kong.Context, parent *kong.Path, flag *kong.Flag) (any, error) {
	key := configKey(flag.Name)

	var keys []string
	if parent != nil && parent.Command != nil {
		keys = append(keys, parent.Command.Name+"."+key)
	}
	keys = append(keys, key)

	for _, k := range keys {
		if r.v.IsSet(k) {
			return r.v.GetString(k), nil
		}
	}
	return nil, nil
}

// ConfigFile returns the value of a --config flag in args, or "" if absent.
// It is read before parsing so the resolver can load the file.
func ConfigFile(args []string) string {
	for i, arg := range args {
		if arg == "--" {
			break
		}
		if v, ok := strings.CutPrefix(arg, "--config="); ok {
			return v
		}
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func configKey(flagName string) string {
	return strings.ReplaceAll(flagName, "-", "_")
}
