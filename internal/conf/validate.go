package conf

import (
	"github.com/jtoivola/fretwatch-go/internal/errors"
)

// ValidateSettings checks the loaded configuration for values that would make
// a session unstartable. Note-name parsing is left to the guitar package at
// session construction.
func ValidateSettings(settings *Settings) error {
	validators := []func(*Settings) error{
		validateAudioSettings,
		validateDetectionSettings,
		validateGuitarSettings,
		validateRealtimeSettings,
		validateOutputSettings,
	}

	for _, validate := range validators {
		if err := validate(settings); err != nil {
			return err
		}
	}
	return nil
}

func validateAudioSettings(settings *Settings) error {
	if len(settings.Audio.PreferredRates) == 0 {
		return errors.Newf("audio.preferredrates must list at least one sample rate").
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	for _, rate := range settings.Audio.PreferredRates {
		if rate <= 0 {
			return errors.Newf("audio.preferredrates contains invalid rate %d", rate).
				Component("conf").
				Category(errors.CategoryValidation).
				Context("rate", rate).
				Build()
		}
	}
	if settings.Audio.RingDuration <= 0 {
		return errors.Newf("audio.ringduration must be positive, got %d", settings.Audio.RingDuration).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if settings.Audio.PollInterval <= 0 {
		return errors.Newf("audio.pollinterval must be positive, got %d", settings.Audio.PollInterval).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

func validateDetectionSettings(settings *Settings) error {
	d := &settings.Detection
	if d.LowestNote == "" || d.HighestNote == "" {
		return errors.Newf("detection.lowestnote and detection.highestnote must be set").
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if d.QualityThreshold <= 0 || d.QualityThreshold > 1 {
		return errors.Newf("detection.qualitythreshold must be in (0,1], got %g", d.QualityThreshold).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if d.MinAmplitude < 0 {
		return errors.Newf("detection.minamplitude must not be negative, got %g", d.MinAmplitude).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if d.AttackDelta <= 0 {
		return errors.Newf("detection.attackdelta must be positive, got %g", d.AttackDelta).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

func validateGuitarSettings(settings *Settings) error {
	if len(settings.Guitar.Tuning) == 0 {
		return errors.Newf("guitar.tuning must list at least one string").
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if settings.Guitar.Frets <= 0 {
		return errors.Newf("guitar.frets must be positive, got %d", settings.Guitar.Frets).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

func validateRealtimeSettings(settings *Settings) error {
	rt := &settings.Realtime
	if rt.Interval < 0 {
		return errors.Newf("realtime.interval must not be negative, got %d", rt.Interval).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if rt.API.Enabled && rt.API.Listen == "" {
		return errors.Newf("realtime.api.listen must be set when the API is enabled").
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if rt.Telemetry.Enabled && rt.Telemetry.Listen == "" {
		return errors.Newf("realtime.telemetry.listen must be set when telemetry is enabled").
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if rt.MQTT.Enabled {
		if rt.MQTT.Broker == "" {
			return errors.Newf("realtime.mqtt.broker must be set when MQTT is enabled").
				Component("conf").
				Category(errors.CategoryValidation).
				Build()
		}
		if rt.MQTT.Topic == "" {
			return errors.Newf("realtime.mqtt.topic must be set when MQTT is enabled").
				Component("conf").
				Category(errors.CategoryValidation).
				Build()
		}
	}
	return nil
}

func validateOutputSettings(settings *Settings) error {
	out := &settings.Output
	if out.SQLite.Enabled && out.SQLite.Path == "" {
		return errors.Newf("output.sqlite.path must be set when SQLite is enabled").
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	if out.MySQL.Enabled {
		if out.MySQL.Host == "" || out.MySQL.Database == "" {
			return errors.Newf("output.mysql.host and output.mysql.database must be set when MySQL is enabled").
				Component("conf").
				Category(errors.CategoryValidation).
				Build()
		}
		if out.MySQL.Port <= 0 || out.MySQL.Port > 65535 {
			return errors.Newf("output.mysql.port %d is out of range", out.MySQL.Port).
				Component("conf").
				Category(errors.CategoryValidation).
				Context("port", out.MySQL.Port).
				Build()
		}
	}
	return nil
}
