// Package config handles loading and validating music gateway configuration.
//
// Values start from built-in defaults, are overlaid by the YAML file and
// then by MUSICGATEWAY_* environment variables, and are validated last.
//
// All adapter state is rebuilt from the backend on startup; nothing in the
// configuration is written back at runtime.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Gateway.URL)
package config
