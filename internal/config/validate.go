package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535"))
	}
	if cfg.Server.PublicURL != "" {
		if _, err := url.Parse(cfg.Server.PublicURL); err != nil {
			errs = append(errs, fmt.Errorf("server.public_url is not a valid URL: %w", err))
		}
	}

	for i, origin := range cfg.Server.AllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("server.allowed_origins[%d] %q is not a valid URL with scheme", i, origin))
		}
	}

	switch cfg.Server.TLS.Mode {
	case "", "off":
		// no additional validation needed
	case "auto":
		if cfg.Server.TLS.Auto.Domain == "" {
			errs = append(errs, fmt.Errorf("server.tls.auto.domain is required when tls mode is auto"))
		}
		if cfg.Server.TLS.Auto.CacheDir == "" {
			errs = append(errs, fmt.Errorf("server.tls.auto.cache_dir is required when tls mode is auto"))
		}
	case "manual":
		if cfg.Server.TLS.CertFile == "" {
			errs = append(errs, fmt.Errorf("server.tls.cert_file is required when tls mode is manual"))
		}
		if cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, fmt.Errorf("server.tls.key_file is required when tls mode is manual"))
		}
	default:
		errs = append(errs, fmt.Errorf("server.tls.mode must be off, auto, or manual"))
	}

	switch cfg.Database.Driver {
	case "sqlite":
		if cfg.Database.Path == "" {
			errs = append(errs, fmt.Errorf("database.path is required for the sqlite driver"))
		}
	case "memory":
		// path unused
	default:
		errs = append(errs, fmt.Errorf("database.driver must be sqlite or memory"))
	}

	if cfg.Storage.GCInterval < time.Second {
		errs = append(errs, fmt.Errorf("storage.gc_interval must be at least 1s"))
	}

	if cfg.Idempotency.TTL < time.Second {
		errs = append(errs, fmt.Errorf("idempotency.ttl must be at least 1s"))
	}
	if cfg.Idempotency.CleanupInterval < time.Minute {
		errs = append(errs, fmt.Errorf("idempotency.cleanup_interval must be at least 1m"))
	}

	if cfg.Notifications.QueueCapacity < 1 {
		errs = append(errs, fmt.Errorf("notifications.queue_capacity must be at least 1"))
	}
	if cfg.Notifications.FlushInterval < time.Second {
		errs = append(errs, fmt.Errorf("notifications.flush_interval must be at least 1s"))
	}

	if cfg.Channels.BcryptCost < 4 || cfg.Channels.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("channels.bcrypt_cost must be between 4 and 31"))
	}

	if cfg.Email.Enabled {
		if cfg.Email.Host == "" {
			errs = append(errs, fmt.Errorf("email.host is required when email is enabled"))
		}
		if cfg.Email.From == "" {
			errs = append(errs, fmt.Errorf("email.from is required when email is enabled"))
		}
		if cfg.Email.Port < 1 || cfg.Email.Port > 65535 {
			errs = append(errs, fmt.Errorf("email.port must be between 1 and 65535"))
		}
	}

	if cfg.RateLimit.Enabled {
		for _, ep := range []struct {
			name string
			cfg  RateLimitEndpoint
		}{
			{"rate_limit.send_message", cfg.RateLimit.SendMessage},
			{"rate_limit.edit_channel", cfg.RateLimit.EditChannel},
		} {
			if ep.cfg.Limit < 1 {
				errs = append(errs, fmt.Errorf("%s.limit must be at least 1", ep.name))
			}
			if ep.cfg.Window < time.Second {
				errs = append(errs, fmt.Errorf("%s.window must be at least 1s", ep.name))
			}
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
