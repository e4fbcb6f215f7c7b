// Package config loads and validates wakelight configuration.
//
// This package manages:
//   - Loading configuration from a YAML file (optional)
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Two families of environment variables are honoured. WAKELIGHT_SECTION_KEY
// mirrors the YAML layout; the short names WS_ADDRESS, WS_TOKEN_ADDRESS,
// WS_APIKEY, WS_PASSWORD, LOCATION_SQLITE, LOCATION_IP_ADDRESS, TZ, RAINBOW,
// LOG_DEBUG and LOG_TRACE are read afterwards and take precedence.
//
// Security Considerations:
//   - Credentials (WS_PASSWORD, MQTT password, InfluxDB token) belong in the
//     environment, not the file
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Connection.Address)
package config
