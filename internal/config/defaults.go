package config

const (
	defaultConfigPath           = "~/.config/petsync/config.toml"
	defaultDataDir              = "~/.local/share/petsync"
	defaultLogDir               = "~/.local/share/petsync/logs"
	defaultAPIBind              = "127.0.0.1:7488"
	defaultAPIRequestTimeout    = 15
	defaultAPIUserAgent         = "PetSync/0.1.0"
	defaultQueueCapacity        = 500
	defaultQueueMaxRetries      = 5
	defaultAutoSyncOnReconnect  = true
	defaultSyncIntervalSeconds  = 300
	defaultProbeIntervalSeconds = 30
	defaultProbeTimeoutSeconds  = 5
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
	defaultLogMaxSizeMB         = 20
	defaultLogMaxBackups        = 5
	defaultHealthPath           = "/health"
	envAPIToken                 = "PETSYNC_API_TOKEN"
	envAPIBaseURL               = "PETSYNC_API_BASE_URL"
	envNtfyTopic                = "PETSYNC_NTFY_TOPIC"
	envStatusAPIToken           = "PETSYNC_STATUS_TOKEN"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		API: API{
			RequestTimeout: defaultAPIRequestTimeout,
			UserAgent:      defaultAPIUserAgent,
		},
		Queue: Queue{
			Capacity:   defaultQueueCapacity,
			MaxRetries: defaultQueueMaxRetries,
		},
		Sync: Sync{
			AutoSyncOnReconnect: defaultAutoSyncOnReconnect,
			IntervalSeconds:     defaultSyncIntervalSeconds,
		},
		Connectivity: Connectivity{
			ProbeIntervalSeconds: defaultProbeIntervalSeconds,
			ProbeTimeoutSeconds:  defaultProbeTimeoutSeconds,
			Netlink:              true,
		},
		Notifications: Notifications{
			RequestTimeout:       defaultNotifyRequestTimeout,
			SyncCompleted:        false,
			SyncFailures:         true,
			ActionRejected:       true,
			ConnectivityRestored: false,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
			MaxSizeMB:     defaultLogMaxSizeMB,
			MaxBackups:    defaultLogMaxBackups,
		},
	}
}
