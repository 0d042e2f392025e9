// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "fretwatch")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "fretwatch.log")
	viper.SetDefault("main.log.maxsize", 100)
	viper.SetDefault("main.log.maxbackups", 3)
	viper.SetDefault("main.log.maxage", 28)

	viper.SetDefault("audio.source", "")
	viper.SetDefault("audio.preferredrates", []int{44100, 48000, 96000, 24000})
	viper.SetDefault("audio.ringduration", 30)
	viper.SetDefault("audio.pollinterval", 20)
	viper.SetDefault("audio.levelreporting", true)

	viper.SetDefault("detection.lowestnote", "E1")
	viper.SetDefault("detection.highestnote", "E7")
	viper.SetDefault("detection.qualitythreshold", 0.85)
	viper.SetDefault("detection.minamplitude", 0.1)
	viper.SetDefault("detection.attackdelta", 0.12)
	viper.SetDefault("detection.processingtime", false)

	viper.SetDefault("guitar.tuning", []string{"E4", "B3", "G3", "D3", "A2", "E2"})
	viper.SetDefault("guitar.frets", 22)

	viper.SetDefault("realtime.interval", 15)

	viper.SetDefault("realtime.api.enabled", true)
	viper.SetDefault("realtime.api.listen", "localhost:8080")

	viper.SetDefault("realtime.telemetry.enabled", false)
	viper.SetDefault("realtime.telemetry.listen", "localhost:8090")

	viper.SetDefault("realtime.mqtt.enabled", false)
	viper.SetDefault("realtime.mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("realtime.mqtt.topic", "fretwatch/notes")
	viper.SetDefault("realtime.mqtt.username", "")
	viper.SetDefault("realtime.mqtt.password", "")
	viper.SetDefault("realtime.mqtt.retain", false)

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "fretwatch.db")

	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "fretwatch")
	viper.SetDefault("output.mysql.password", "secret")
	viper.SetDefault("output.mysql.database", "fretwatch")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", 3306)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.debug", false)
}
