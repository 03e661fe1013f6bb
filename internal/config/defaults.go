package config

const (
	defaultDataDir = "~/.local/share/recall"
	defaultLogDir  = "~/.local/share/recall/logs"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	// A lone observation must never become an auto-fill rule, so every role
	// requires at least two sightings. Recipients carry higher downstream
	// risk and need a larger vote share.
	defaultConflictMargin       = 2
	defaultMinOccurrences       = 2
	defaultMinLeaderShare       = 0.65
	defaultRecipientLeaderShare = 0.70

	defaultMaxDetailLines = 40
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Learning: Learning{
			ConflictMargin: defaultConflictMargin,
			MaxDetailLines: defaultMaxDetailLines,
			Issuer: RoleThresholds{
				MinOccurrences: defaultMinOccurrences,
				MinLeaderShare: defaultMinLeaderShare,
			},
			ContractingParty: RoleThresholds{
				MinOccurrences: defaultMinOccurrences,
				MinLeaderShare: defaultMinLeaderShare,
			},
			Recipient: RoleThresholds{
				MinOccurrences: defaultMinOccurrences,
				MinLeaderShare: defaultRecipientLeaderShare,
			},
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
