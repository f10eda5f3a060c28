package config

import "github.com/spf13/viper"

// setDefaults mirrors the teacher's defaults.go: every knob gets a
// sensible out-of-the-box value before the config file and environment
// are layered on top, so a bare `ledgerd serve` with no config file at
// all still starts something reasonable (an in-process memory backend,
// localhost addresses).
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_addr", "127.0.0.1:8080")
	v.SetDefault("server.grpc_addr", "127.0.0.1:8081")
	v.SetDefault("server.ws_addr", "127.0.0.1:8082")

	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.addr", "")
	v.SetDefault("storage.snapshot_path", "./ledgerd-snapshot.cbor")
	v.SetDefault("storage.compression_threshold_bytes", 4096)

	v.SetDefault("mirror.enabled", false)
	v.SetDefault("mirror.backend", "sqlite")
	v.SetDefault("mirror.dsn", "./ledgerd-mirror.db")

	v.SetDefault("genesis_file", "")
	v.SetDefault("minters", []string{})
	v.SetDefault("replay_only", false)
	v.SetDefault("operator_keys", []map[string]string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}
