package publish

import (
	"fmt"
	"runtime"
	"strconv"

	"webcast/internal/config"
)

// captureOS selects the capture input family; a variable so tests can
// exercise the darwin path from any host.
var captureOS = runtime.GOOS

// tierParams bundles the encoder trade-offs for one quality tier.
type tierParams struct {
	preset       string
	crf          int
	videoBitrate string
	maxRate      string
	bufSize      string
	audioBitrate string
	audioRate    int
	threads      int
}

func paramsFor(tier config.Quality) tierParams {
	if tier == config.QualityLightweight {
		return tierParams{
			preset:       "ultrafast",
			crf:          30,
			videoBitrate: "1000k",
			maxRate:      "1000k",
			bufSize:      "2000k",
			audioBitrate: "96k",
			audioRate:    44100,
			threads:      2,
		}
	}
	return tierParams{
		preset:       "veryfast",
		crf:          23,
		videoBitrate: "4500k",
		maxRate:      "4500k",
		bufSize:      "9000k",
		audioBitrate: "128k",
		audioRate:    44100,
	}
}

// keyframeInterval returns the GOP length for two seconds of output. At or
// below 1 fps every frame is a keyframe, so a viewer joining a slideshow
// stream decodes immediately instead of waiting out a two-second group.
func keyframeInterval(fps int) int {
	if fps <= 1 {
		return 1
	}
	return fps * 2
}

// BuildArgs assembles the full transcoder argument list. display is the X
// display to grab (":99" form), monitor the pulse source carrying session
// audio. silent swaps the audio input for a generated null source, used on
// the single retry after a transcoder failure.
func BuildArgs(cfg *config.Config, display, monitor string, silent bool) []string {
	params := paramsFor(cfg.QualityTier())
	fps := cfg.EffectiveFrameRate()

	args := []string{"-hide_banner", "-loglevel", "warning", "-nostdin"}
	args = append(args, videoInputArgs(cfg, display, fps)...)
	args = append(args, audioInputArgs(cfg, monitor, silent, params.audioRate)...)

	args = append(args,
		"-c:v", "libx264",
		"-preset", params.preset,
		"-crf", strconv.Itoa(params.crf),
		"-b:v", params.videoBitrate,
		"-maxrate", params.maxRate,
		"-bufsize", params.bufSize,
		"-pix_fmt", "yuv420p",
		"-g", strconv.Itoa(keyframeInterval(fps)),
	)
	if params.threads > 0 {
		args = append(args, "-threads", strconv.Itoa(params.threads))
	}
	if cfg.Capture.OutputWidth != cfg.Capture.RenderWidth || cfg.Capture.OutputHeight != cfg.Capture.RenderHeight {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:%d", cfg.Capture.OutputWidth, cfg.Capture.OutputHeight))
	}

	args = append(args,
		"-c:a", "aac",
		"-b:a", params.audioBitrate,
		"-ar", strconv.Itoa(params.audioRate),
		"-ac", "2",
	)

	args = append(args, "-f", "flv", cfg.Stream.PublishURL)
	return args
}

// videoInputArgs grabs at render geometry. Scaling, if any, happens at
// encode time so the browser always draws full size. Explicit device
// overrides beat the session-provided display.
func videoInputArgs(cfg *config.Config, display string, fps int) []string {
	size := fmt.Sprintf("%dx%d", cfg.Capture.RenderWidth, cfg.Capture.RenderHeight)

	if captureOS == "darwin" {
		// avfoundation addresses devices by index; video-only here, the
		// audio device travels in its own input.
		device := cfg.Capture.VideoDevice
		if device == "" {
			device = "1"
		}
		return []string{
			"-f", "avfoundation",
			"-framerate", strconv.Itoa(fps),
			"-video_size", size,
			"-capture_cursor", "0",
			"-i", device + ":none",
		}
	}

	input := display + ".0"
	if cfg.Capture.VideoDevice != "" {
		input = cfg.Capture.VideoDevice
	}
	return []string{
		"-f", "x11grab",
		"-framerate", strconv.Itoa(fps),
		"-video_size", size,
		"-draw_mouse", "0",
		"-i", input,
	}
}

// audioInputArgs reads the session sink's monitor, an explicit device
// override, or the generated silent source used on the retry attempt.
func audioInputArgs(cfg *config.Config, monitor string, silent bool, rate int) []string {
	if silent {
		return []string{
			"-f", "lavfi",
			"-i", fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=%d", rate),
		}
	}

	if captureOS == "darwin" {
		device := cfg.Capture.AudioDevice
		if device == "" {
			device = "0"
		}
		return []string{"-f", "avfoundation", "-i", "none:" + device}
	}

	input := monitor
	if cfg.Capture.AudioDevice != "" {
		input = cfg.Capture.AudioDevice
	}
	return []string{"-f", "pulse", "-i", input}
}
