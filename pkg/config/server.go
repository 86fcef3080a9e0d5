package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
)

var validate = validator.New()

// DefaultServerConfig returns the default server configuration.
// These are sensible defaults for local development and can be overridden
// via flags, environment variables, or config files.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         "127.0.0.1",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Auth: AuthConfig{
			Mode: "none",
		},
		WS: WSConfig{
			SendQueue: 64,
		},
	}
}

// BindServerFlags binds server-specific flags to the provided FlagSet.
//
// Flags are namespaced under 'server.' so the posflag provider maps them
// straight onto koanf keys. Example: --server.addr, --server.port
func BindServerFlags(flags *pflag.FlagSet) {
	defaults := DefaultServerConfig()

	flags.String("server.addr", defaults.Addr, "Server listen address (use 0.0.0.0 for all interfaces)")
	flags.Int("server.port", defaults.Port, "Server listen port")
	flags.Duration("server.read_timeout", defaults.ReadTimeout, "HTTP read timeout")
	flags.Duration("server.write_timeout", defaults.WriteTimeout, "HTTP write timeout")
	flags.String("server.auth.mode", defaults.Auth.Mode, "Authentication mode: none|token")
	flags.Int("server.ws.send_queue", defaults.WS.SendQueue, "Per-session outbound WebSocket queue length")
}

// Validate checks the server configuration.
func (c ServerConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return describeValidation(err)
	}

	if c.Auth.Mode == "token" {
		if len(c.Auth.Users) == 0 {
			return errors.New("auth.users: at least one user is required in token mode")
		}
		seen := make(map[string]string, len(c.Auth.Users))
		for _, u := range c.Auth.Users {
			if other, ok := seen[u.Token]; ok {
				return fmt.Errorf("auth.users: %s and %s share a token", other, u.Name)
			}
			seen[u.Token] = u.Name
		}
	}

	return nil
}

// Validate checks the whole configuration tree.
func (c Config) Validate() error {
	if err := validate.Struct(c.Log); err != nil {
		return describeValidation(err)
	}
	if err := validate.Struct(c.Jobs); err != nil {
		return describeValidation(err)
	}
	return c.Server.Validate()
}

// describeValidation flattens validator errors into a single readable error.
func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	first := verrs[0]
	msg := fmt.Sprintf("%s: failed %q", first.Namespace(), first.Tag())
	if first.Param() != "" {
		msg += fmt.Sprintf(" (%s)", first.Param())
	}
	if len(verrs) > 1 {
		msg += fmt.Sprintf(" and %d more", len(verrs)-1)
	}
	return errors.New(msg)
}
