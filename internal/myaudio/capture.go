package myaudio

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/jtoivola/fretwatch-go/internal/conf"
	"github.com/jtoivola/fretwatch-go/internal/errors"
	"github.com/jtoivola/fretwatch-go/internal/logging"
)

// captureSource holds information about an audio capture source.
type captureSource struct {
	Name string
	ID   string
	info malgo.DeviceInfo
}

// AudioLevelData is a single audio level reading published to UI surfaces.
type AudioLevelData struct {
	Level    int  // 0 to 100
	Clipping bool
}

// CaptureSession owns a malgo capture device writing mono float32 samples
// into a SampleRing. The data callback is the ring's single producer; the
// analysis loop is the single consumer.
type CaptureSession struct {
	settings *conf.Settings
	ring     *SampleRing
	logger   *slog.Logger

	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	source   captureSource
	rate     int

	levelChan chan AudioLevelData
	fatalChan chan error

	quitChan    chan struct{}
	restartChan chan struct{}
}

// OpenCapture initializes the audio backend, selects a capture device per
// settings.Audio.Source and negotiates a sample rate from the preferred rate
// list. The device is initialized but not started; call Run to start it.
// levelChan may be nil when level reporting is disabled.
func OpenCapture(settings *conf.Settings, ring *SampleRing, levelChan chan AudioLevelData) (*CaptureSession, error) {
	s := &CaptureSession{
		settings:  settings,
		ring:      ring,
		logger:    logging.ForService("myaudio"),
		levelChan: levelChan,
		fatalChan: make(chan error, 1),
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	// if Linux set malgo.BackendAlsa, else set nil for auto select
	var backend malgo.Backend
	switch runtime.GOOS {
	case "linux":
		backend = malgo.BackendAlsa
	case "windows":
		backend = malgo.BackendWasapi
	case "darwin":
		backend = malgo.BackendCoreaudio
	}

	malgoCtx, err := malgo.InitContext([]malgo.Backend{backend}, malgo.ContextConfig{}, func(message string) {
		if settings.Debug {
			fmt.Print(message)
		}
	})
	if err != nil {
		return nil, errors.New(err).
			Component("myaudio").
			Category(errors.CategoryAudioDevice).
			Context("operation", "init_context").
			Context("backend", runtime.GOOS).
			Build()
	}
	s.malgoCtx = malgoCtx

	infos, err := malgoCtx.Devices(malgo.Capture)
	if err != nil {
		_ = malgoCtx.Uninit()
		return nil, errors.New(err).
			Component("myaudio").
			Category(errors.CategoryAudioDevice).
			Context("operation", "enumerate_devices").
			Build()
	}

	source, err := selectCaptureSource(settings, infos)
	if err != nil {
		_ = malgoCtx.Uninit()
		return nil, err
	}
	s.source = source

	if err := s.initDevice(); err != nil {
		_ = malgoCtx.Uninit()
		return nil, err
	}

	return s, nil
}

// initDevice tries the preferred sample rates in order until the device
// accepts one. The backend may still resample internally; the rate reported
// by the started device is authoritative and stored for the analysis side.
func (s *CaptureSession) initDevice() error {
	rates := s.settings.Audio.PreferredRates
	if len(rates) == 0 {
		rates = []int{44100}
	}

	callbacks := malgo.DeviceCallbacks{
		Data: s.onReceiveFrames,
		Stop: s.onStopDevice,
	}

	var lastErr error
	for _, rate := range rates {
		deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
		deviceConfig.Capture.Format = malgo.FormatF32
		deviceConfig.Capture.Channels = 1
		deviceConfig.Capture.DeviceID = s.source.info.ID.Pointer()
		deviceConfig.SampleRate = uint32(rate)
		deviceConfig.Alsa.NoMMap = 1

		device, err := malgo.InitDevice(s.malgoCtx.Context, deviceConfig, callbacks)
		if err != nil {
			lastErr = err
			s.logger.Debug("sample rate rejected by device",
				"rate", rate,
				"device", s.source.Name,
				"error", err)
			continue
		}

		s.device = device
		s.rate = int(device.SampleRate())
		return nil
	}

	return errors.New(lastErr).
		Component("myaudio").
		Category(errors.CategoryAudioDevice).
		Context("operation", "init_device").
		Context("device", s.source.Name).
		Context("tried_rates", fmt.Sprintf("%v", rates)).
		Build()
}

// SampleRate returns the negotiated capture sample rate in Hz.
func (s *CaptureSession) SampleRate() int {
	return s.rate
}

// DeviceName returns the name of the selected capture device.
func (s *CaptureSession) DeviceName() string {
	return s.source.Name
}

// Errors returns the channel carrying fatal session errors, currently only
// ring overflow. A receive means the session is no longer producing audio.
func (s *CaptureSession) Errors() <-chan error {
	return s.fatalChan
}

// onReceiveFrames is the malgo data callback. It converts the little-endian
// float32 payload straight into a reserved ring region without allocating.
// An overflow is reported once through fatalChan and further data dropped.
func (s *CaptureSession) onReceiveFrames(_, pSamples []byte, frameCount uint32) {
	n := int(frameCount)
	if n == 0 || len(pSamples) < n*4 {
		return
	}

	reg, err := s.ring.WriterReserve(n, n)
	if err != nil {
		select {
		case s.fatalChan <- errors.New(err).
			Component("myaudio").
			Category(errors.CategoryBuffer).
			Context("operation", "capture_write").
			Context("frames", n).
			Build():
		default:
		}
		return
	}

	var sumSq float64
	clipping := false
	for i := 0; i < n; i++ {
		v := math.Float32frombits(binary.LittleEndian.Uint32(pSamples[i*4 : i*4+4]))
		reg.Set(i, v)

		f := float64(v)
		sumSq += f * f
		if f >= 0.999 || f <= -0.999 {
			clipping = true
		}
	}

	if err := s.ring.WriterCommit(n); err != nil {
		select {
		case s.fatalChan <- err:
		default:
		}
		return
	}

	if s.levelChan != nil && s.settings.Audio.LevelReporting {
		s.publishLevel(scaleAudioLevel(sumSq, n, clipping))
	}
}

// publishLevel sends a level update without ever blocking the data callback.
// A full channel means the consumer is behind, so the stale reading is
// replaced with the fresh one.
func (s *CaptureSession) publishLevel(level AudioLevelData) {
	select {
	case s.levelChan <- level:
	default:
		select {
		case <-s.levelChan:
		default:
		}
		select {
		case s.levelChan <- level:
		default:
		}
	}
}

// onStopDevice is called when the device stops, either normally or
// unexpectedly, e.g. a USB interface being unplugged.
func (s *CaptureSession) onStopDevice() {
	go func() {
		select {
		case <-s.quitChan:
			// Quit signal has been received, do not attempt to restart
			return
		case <-time.After(100 * time.Millisecond):
			// Wait a bit before restarting to avoid rapid restart loops
			if err := s.device.Start(); err != nil {
				s.logger.Error("failed to restart audio device, requesting full restart",
					"device", s.source.Name,
					"error", err)
				time.Sleep(1 * time.Second)
				select {
				case s.restartChan <- struct{}{}:
				default:
				}
			} else {
				s.logger.Info("audio device restarted", "device", s.source.Name)
			}
		}
	}()
}

// Run starts the device and blocks until quitChan is closed or a restart is
// requested, then releases the device and context. Call from a goroutine.
func (s *CaptureSession) Run(wg *sync.WaitGroup, quitChan, restartChan chan struct{}) {
	defer wg.Done()

	s.quitChan = quitChan
	s.restartChan = restartChan

	defer func() {
		_ = s.device.Stop()
		s.device.Uninit()
		_ = s.malgoCtx.Uninit()
	}()

	if err := s.device.Start(); err != nil {
		s.logger.Error("device start failed", "device", s.source.Name, "error", err)
		select {
		case s.fatalChan <- errors.New(err).
			Component("myaudio").
			Category(errors.CategoryAudioDevice).
			Context("operation", "start_device").
			Build():
		default:
		}
		return
	}

	s.logger.Info("listening on audio source",
		"device", s.source.Name,
		"id", s.source.ID,
		"rate", s.rate)

	for {
		select {
		case <-quitChan:
			s.logger.Debug("stopping capture due to quit signal")
			return
		case <-restartChan:
			s.logger.Debug("restarting capture")
			return
		default:
			time.Sleep(100 * time.Millisecond)
		}
	}
}

// selectCaptureSource picks a capture device matching the configured source
// name or ID. An empty source setting selects the backend default device.
func selectCaptureSource(settings *conf.Settings, infos []malgo.DeviceInfo) (captureSource, error) {
	var selected captureSource
	var deviceFound bool

	for i := range infos {
		decodedID, err := hexToASCII(infos[i].ID.String())
		if err != nil {
			logging.Warn("error decoding device ID", "device_index", i, "error", err)
			continue
		}

		if matchesDeviceSettings(decodedID, &infos[i], settings.Audio.Source) {
			selected = captureSource{
				Name: infos[i].Name(),
				ID:   decodedID,
				info: infos[i],
			}
			deviceFound = true
			break
		}
	}

	if !deviceFound {
		return captureSource{}, errors.Newf("no capture source matches %q", settings.Audio.Source).
			Component("myaudio").
			Category(errors.CategoryAudioDevice).
			Context("operation", "select_device").
			Build()
	}

	return selected, nil
}

// matchesDeviceSettings checks if the device matches the configured source.
func matchesDeviceSettings(decodedID string, info *malgo.DeviceInfo, audioSource string) bool {
	if audioSource == "" {
		return info.IsDefault == 1
	}
	if runtime.GOOS == "windows" && audioSource == "sysdefault" {
		// On Windows there is no "sysdefault" device, use the backend default.
		return info.IsDefault == 1
	}
	return decodedID == audioSource || strings.Contains(info.Name(), audioSource)
}

// hexToASCII converts a hexadecimal string to an ASCII string.
func hexToASCII(hexStr string) (string, error) {
	bytes, err := hex.DecodeString(hexStr)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
