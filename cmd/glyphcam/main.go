// Glyphcam renders a live camera feed as text glyphs in the terminal.
//
// Keys: space toggles the camera, c toggles color, ]/[ cycle character
// sets, +/- adjust scale, ./ , cycle cameras, x force-stops a wedged
// camera, r resets a failed camera, q quits.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/glyphcam/glyphcam/internal/config"
	"github.com/glyphcam/glyphcam/internal/log"
	"github.com/glyphcam/glyphcam/pkg/app"
	"github.com/glyphcam/glyphcam/pkg/capture"
	"github.com/glyphcam/glyphcam/pkg/glyph"
	"github.com/glyphcam/glyphcam/pkg/termui"
	"github.com/glyphcam/glyphcam/pkg/web"
)

func main() {
	os.Exit(run())
}

func run() int {
	backend := flag.String("backend", config.Env("GLYPHCAM_BACKEND", string(capture.BackendAuto)), "Capture backend: auto, gocv, v4l2, mock")
	device := flag.String("device", config.Env("GLYPHCAM_DEVICE", "/dev/video0"), "V4L2 device path")
	camera := flag.Int("camera", config.EnvInt("GLYPHCAM_CAMERA", 0), "Initial camera index")
	cameras := flag.Int("cameras", config.EnvInt("GLYPHCAM_CAMERAS", 1), "Number of cameras available for cycling")
	width := flag.Int("width", config.EnvInt("GLYPHCAM_WIDTH", 640), "Capture width")
	height := flag.Int("height", config.EnvInt("GLYPHCAM_HEIGHT", 480), "Capture height")
	fps := flag.Int("fps", config.EnvInt("GLYPHCAM_FPS", 30), "Target capture rate")
	skip := flag.Duration("skip", config.EnvDuration("GLYPHCAM_FRAME_SKIP", 33*time.Millisecond), "Minimum interval between accepted frames")
	tick := flag.Duration("tick", config.EnvDuration("GLYPHCAM_TICK", 50*time.Millisecond), "Control loop tick interval")
	render := flag.Duration("render", config.EnvDuration("GLYPHCAM_RENDER", 100*time.Millisecond), "Minimum interval between renders")
	charset := flag.String("charset", config.Env("GLYPHCAM_CHARSET", glyph.Dense.Name), "Initial character set")
	scale := flag.Float64("scale", config.EnvFloat("GLYPHCAM_SCALE", 1.0), "Initial render scale")
	color := flag.Bool("color", false, "Start with per-glyph color enabled")
	tint := flag.String("tint", config.Env("GLYPHCAM_TINT", ""), "Monochrome tint as a hex color, e.g. #33ff66")
	monitor := flag.String("monitor", config.Env("GLYPHCAM_MONITOR", ""), "HTTP monitor listen address, e.g. :8089 (disabled when empty)")
	autostart := flag.Bool("start", true, "Start the camera at launch")
	flag.Parse()

	log.Init(config.LogLevel())
	logger := log.L()

	settings := app.DefaultSettings()
	settings.Scale = *scale
	settings.Color = *color
	settings.CameraIndex = *camera
	idx, err := charsetIndex(*charset)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	settings.CharsetIndex = idx

	// The factory reads the camera index on every (re)build, so a
	// cycle command only needs to store the new index and Reset.
	var cameraIndex atomic.Int64
	cameraIndex.Store(int64(*camera))

	baseCfg := capture.Config{
		Backend:     capture.Backend(*backend),
		Device:      *device,
		DeviceIndex: *camera,
		Width:       *width,
		Height:      *height,
		FPS:         *fps,
		FrameSkip:   *skip,
	}
	if err := baseCfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid capture config:", err)
		return 1
	}

	factory := func() (capture.Source, error) {
		cfg := baseCfg
		cfg.DeviceIndex = int(cameraIndex.Load())
		cfg.Device = devicePath(baseCfg.Device, cfg.DeviceIndex)
		return capture.NewSource(cfg, logger)
	}

	ctrl, err := capture.NewController(factory, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "opening capture source:", err)
		return 1
	}

	var termOpts []termui.Option
	if *tint != "" {
		c, err := colorful.Hex(*tint)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid tint %q: %v\n", *tint, err)
			return 1
		}
		termOpts = append(termOpts, termui.WithTint(c))
	}

	renderer, err := termui.New(termOpts...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "initializing terminal:", err)
		return 1
	}
	defer renderer.Close()

	opts := []app.Option{
		app.WithTickInterval(*tick),
		app.WithRenderInterval(*render),
	}
	if *cameras > 1 {
		opts = append(opts, app.WithCameraSwitcher(*cameras, func(index int) error {
			cameraIndex.Store(int64(index))
			return retargetCamera(ctrl)
		}))
	}

	var srv *web.Server
	if *monitor != "" {
		srv = web.NewServer(*monitor, logger)
		srv.StartAsync()
		opts = append(opts, app.WithPublisher(srv.Publisher()))
	}

	router := app.NewRouter(ctrl, renderer, settings, logger, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	go renderer.Listen(router.Post)

	if *autostart {
		// Routed as a command so a camera that fails to open at
		// launch lands on the status line instead of killing the app.
		router.Post(app.Event{Kind: app.EventCommand, Cmd: app.CommandToggleCamera})
	}

	err = router.Run(ctx)

	ctrl.Shutdown(3 * time.Second)
	if srv != nil {
		if err := srv.Shutdown(); err != nil {
			logger.Error("monitor shutdown", "error", err)
		}
	}
	renderer.Interrupt()

	if err != nil && err != context.Canceled {
		logger.Error("viewer loop failed", "error", err)
		return 1
	}
	return 0
}

// retargetCamera rebuilds the capture source against the index stored
// for the factory, restarting only if the camera was running.
func retargetCamera(ctrl *capture.Controller) error {
	wasActive := ctrl.IsActive()
	if wasActive {
		if err := ctrl.Stop(); err != nil {
			return err
		}
	}
	if err := ctrl.Reset(); err != nil {
		return err
	}
	if !wasActive {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return ctrl.Start(ctx)
}

func charsetIndex(name string) (int, error) {
	for i, set := range glyph.Sets {
		if strings.EqualFold(set.Name, name) {
			return i, nil
		}
	}
	names := make([]string, len(glyph.Sets))
	for i, set := range glyph.Sets {
		names[i] = set.Name
	}
	return 0, fmt.Errorf("unknown charset %q (available: %s)", name, strings.Join(names, ", "))
}

// devicePath rewrites the trailing index of a /dev/videoN style path.
func devicePath(base string, index int) string {
	i := len(base)
	for i > 0 && base[i-1] >= '0' && base[i-1] <= '9' {
		i--
	}
	if i == len(base) {
		return base
	}
	return fmt.Sprintf("%s%d", base[:i], index)
}
