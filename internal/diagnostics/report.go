// Package diagnostics collects a support report describing the host, the
// audio hardware and the active configuration.
package diagnostics

import (
	"runtime"
	"time"

	"github.com/klauspost/cpuid/v2"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"gopkg.in/yaml.v3"

	"github.com/jtoivola/fretwatch-go/internal/conf"
	"github.com/jtoivola/fretwatch-go/internal/errors"
	"github.com/jtoivola/fretwatch-go/internal/myaudio"
)

// HostInfo describes the operating system. The hostname is deliberately
// omitted.
type HostInfo struct {
	OS              string `yaml:"os"`
	Platform        string `yaml:"platform"`
	PlatformVersion string `yaml:"platform_version"`
	KernelArch      string `yaml:"kernel_arch"`
	UptimeHours     uint64 `yaml:"uptime_hours"`
}

// CPUInfo describes the processor.
type CPUInfo struct {
	Brand         string   `yaml:"brand"`
	PhysicalCores int      `yaml:"physical_cores"`
	LogicalCores  int      `yaml:"logical_cores"`
	VectorSupport []string `yaml:"vector_support,omitempty"`
}

// MemoryInfo describes physical memory usage.
type MemoryInfo struct {
	TotalMB     uint64  `yaml:"total_mb"`
	UsedMB      uint64  `yaml:"used_mb"`
	UsedPercent float64 `yaml:"used_percent"`
}

// RuntimeInfo describes the Go runtime of the running process.
type RuntimeInfo struct {
	GoVersion  string `yaml:"go_version"`
	GOOS       string `yaml:"goos"`
	GOARCH     string `yaml:"goarch"`
	Goroutines int    `yaml:"goroutines"`
}

// SystemReport is the full support report.
type SystemReport struct {
	CollectedAt  time.Time                 `yaml:"collected_at"`
	Host         HostInfo                  `yaml:"host"`
	CPU          CPUInfo                   `yaml:"cpu"`
	Memory       MemoryInfo                `yaml:"memory"`
	Runtime      RuntimeInfo               `yaml:"runtime"`
	AudioDevices []myaudio.AudioDeviceInfo `yaml:"audio_devices"`
	Config       *conf.Settings            `yaml:"config"`
}

// vectorFeatures is the subset of CPU features relevant to the sample math.
var vectorFeatures = []cpuid.FeatureID{
	cpuid.SSE2, cpuid.SSE4, cpuid.AVX, cpuid.AVX2, cpuid.AVX512F, cpuid.FMA3,
}

// Collect gathers the report. Failures on individual probes leave the
// affected section zero valued rather than failing the whole report.
func Collect(settings *conf.Settings) *SystemReport {
	report := &SystemReport{
		CollectedAt: time.Now().UTC(),
		Runtime: RuntimeInfo{
			GoVersion:  runtime.Version(),
			GOOS:       runtime.GOOS,
			GOARCH:     runtime.GOARCH,
			Goroutines: runtime.NumGoroutine(),
		},
		Config: redactSettings(settings),
	}

	if info, err := host.Info(); err == nil {
		report.Host = HostInfo{
			OS:              info.OS,
			Platform:        info.Platform,
			PlatformVersion: info.PlatformVersion,
			KernelArch:      info.KernelArch,
			UptimeHours:     info.Uptime / 3600,
		}
	}

	report.CPU = CPUInfo{
		Brand:        cpuid.CPU.BrandName,
		LogicalCores: cpuid.CPU.LogicalCores,
	}
	for _, feature := range vectorFeatures {
		if cpuid.CPU.Has(feature) {
			report.CPU.VectorSupport = append(report.CPU.VectorSupport, feature.String())
		}
	}
	if physical, err := cpu.Counts(false); err == nil {
		report.CPU.PhysicalCores = physical
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		report.Memory = MemoryInfo{
			TotalMB:     vm.Total / 1024 / 1024,
			UsedMB:      vm.Used / 1024 / 1024,
			UsedPercent: vm.UsedPercent,
		}
	}

	if devices, err := myaudio.ListAudioSources(); err == nil {
		report.AudioDevices = devices
	}

	return report
}

// YAML renders the report for the support command.
func (r *SystemReport) YAML() ([]byte, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return nil, errors.New(err).
			Component("diagnostics").
			Category(errors.CategorySystem).
			Context("operation", "marshal_report").
			Build()
	}
	return data, nil
}

const redactedPlaceholder = "[redacted]"

// redactSettings copies the settings with credentials blanked so the report
// is safe to share.
func redactSettings(settings *conf.Settings) *conf.Settings {
	if settings == nil {
		return nil
	}
	clone := *settings
	if clone.Realtime.MQTT.Password != "" {
		clone.Realtime.MQTT.Password = redactedPlaceholder
	}
	if clone.Realtime.MQTT.Username != "" {
		clone.Realtime.MQTT.Username = redactedPlaceholder
	}
	if clone.Output.MySQL.Password != "" {
		clone.Output.MySQL.Password = redactedPlaceholder
	}
	if clone.Sentry.DSN != "" {
		clone.Sentry.DSN = redactedPlaceholder
	}
	return &clone
}
