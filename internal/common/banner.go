package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and the effective settings
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.Print("Engel", GetVersion())

	logger.Info().
		Str("version", GetFullVersion()).
		Str("site", config.Site.BaseURL).
		Bool("session_cookie", config.Site.Cookie != "").
		Bool("enable_mute", config.Relation.EnableMute).
		Bool("enable_title_ban", config.Relation.EnableTitleBan).
		Bool("analysis", config.Analysis.Enabled).
		Msg("Configuration loaded")
}
