// Package config loads, validates and edits the prefixload YAML configuration.
//
// The file lives at $XDG_CONFIG_HOME/prefixload/config.yml unless another path
// is given. A missing file is created from an embedded template. Values can be
// overridden with PREFIXLOAD_* environment variables, e.g. PREFIXLOAD_BUCKET.
// Every write keeps the previous file as config.yml.bak.
//
// # Basic Usage
//
//	path, err := config.DefaultPath()
//	if err != nil {
//	    return err
//	}
//	cfg, err := config.Load(path)
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//	report, err := client.Sync(ctx, cfg.ToSyncConfig())
package config
