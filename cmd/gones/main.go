// Package main implements the gones NES emulator executable.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"gones/internal/cartridge"
	"gones/internal/config"
	"gones/internal/input"
	"gones/internal/ppu"
	"gones/internal/system"
	"gones/internal/version"
)

const (
	nesWidth  = 256
	nesHeight = 240
)

func main() {
	var (
		romFile    = flag.String("rom", "", "Path to NES ROM file")
		configFile = flag.String("config", "", "Path to configuration file")
		debug      = flag.Bool("debug", false, "Enable CPU trace logging")
		nogui      = flag.Bool("nogui", false, "Run without GUI (headless mode)")
		noaudio    = flag.Bool("noaudio", false, "Disable audio output")
		help       = flag.Bool("help", false, "Show help message")
		showVer    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *help {
		printUsage()
		os.Exit(0)
	}
	if *showVer {
		version.PrintBuildInfo()
		os.Exit(0)
	}

	setupGracefulShutdown()

	if *romFile == "" {
		log.Fatal("a ROM file is required: gones -rom <file>")
	}

	configPath := *configFile
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *noaudio {
		cfg.Audio.Enabled = false
	}

	cart, err := cartridge.LoadFromFile(*romFile)
	if err != nil {
		log.Fatalf("failed to load ROM: %v", err)
	}

	sys := system.New()
	sys.LoadCartridge(cart)
	if *debug {
		sys.SetTraceLogger(log.New(os.Stderr, "", log.LstdFlags))
	}

	var audio *audioEngine
	if cfg.Audio.Enabled {
		audio, err = newAudioEngine(cfg.Audio.SampleRate)
		if err != nil {
			log.Printf("audio disabled: %v", err)
			audio = nil
		} else {
			sys.SetAudioSampleRate(int(audio.sampleRate()))
			defer audio.quit()
			if err := audio.play(); err != nil {
				log.Printf("audio start failed: %v", err)
			}
		}
	}

	if *nogui {
		runHeadless(sys)
		return
	}

	width, height := cfg.WindowResolution()
	ebiten.SetWindowTitle(fmt.Sprintf("gones - %s", *romFile))
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetVsyncEnabled(cfg.Video.VSync)

	g := &game{
		sys:         sys,
		cfg:         cfg,
		audio:       audio,
		frameImage:  ebiten.NewImage(nesWidth, nesHeight),
		imageBuffer: image.NewRGBA(image.Rect(0, 0, nesWidth, nesHeight)),
		keyMap:      buildKeyMap(cfg),
	}

	if err := ebiten.RunGame(g); err != nil {
		log.Fatalf("emulator exited: %v", err)
	}
}

// runHeadless advances the emulator for a fixed number of frames without a
// window, for scripted ROM verification.
func runHeadless(sys *system.System) {
	const targetFrames = 120
	for i := 0; i < targetFrames; i++ {
		sys.Frame()
	}
	fmt.Printf("ran %d frames (%d cycles)\n", targetFrames, sys.GetCycleCount())
}

// game adapts system.System to the ebiten.Game interface.
type game struct {
	sys   *system.System
	cfg   *config.Config
	audio *audioEngine

	frameImage  *ebiten.Image
	imageBuffer *image.RGBA
	keyMap      map[ebiten.Key]boundButton

	windowWidth  int
	windowHeight int
}

// boundButton names which controller and NES button a host key drives.
type boundButton struct {
	controller int
	button     input.Button
}

func buildKeyMap(cfg *config.Config) map[ebiten.Key]boundButton {
	m := make(map[ebiten.Key]boundButton)
	bind := func(mapping config.KeyMapping, controller int) {
		pairs := []struct {
			name string
			b    input.Button
		}{
			{mapping.Up, input.ButtonUp},
			{mapping.Down, input.ButtonDown},
			{mapping.Left, input.ButtonLeft},
			{mapping.Right, input.ButtonRight},
			{mapping.A, input.ButtonA},
			{mapping.B, input.ButtonB},
			{mapping.Start, input.ButtonStart},
			{mapping.Select, input.ButtonSelect},
		}
		for _, p := range pairs {
			if key, ok := ebitenKeyByName[p.name]; ok {
				m[key] = boundButton{controller: controller, button: p.b}
			}
		}
	}
	bind(cfg.Input.Player1Keys, 1)
	bind(cfg.Input.Player2Keys, 2)
	return m
}

// ebitenKeyByName resolves the key names used by config.KeyMapping to
// ebiten's code-based key constants.
var ebitenKeyByName = map[string]ebiten.Key{
	"W": ebiten.KeyW, "A": ebiten.KeyA, "S": ebiten.KeyS, "D": ebiten.KeyD,
	"K": ebiten.KeyK, "J": ebiten.KeyJ,
	"Enter":        ebiten.KeyEnter,
	"ShiftLeft":    ebiten.KeyShiftLeft,
	"ArrowUp":      ebiten.KeyArrowUp,
	"ArrowDown":    ebiten.KeyArrowDown,
	"ArrowLeft":    ebiten.KeyArrowLeft,
	"ArrowRight":   ebiten.KeyArrowRight,
	"Slash":        ebiten.KeySlash,
	"Period":       ebiten.KeyPeriod,
	"ShiftRight":   ebiten.KeyShiftRight,
	"ControlRight": ebiten.KeyControlRight,
}

func (g *game) Update() error {
	for key, bound := range g.keyMap {
		if inpututil.IsKeyJustPressed(key) {
			g.sys.SetControllerButton(bound.controller, bound.button, true)
		} else if inpututil.IsKeyJustReleased(key) {
			g.sys.SetControllerButton(bound.controller, bound.button, false)
		}
	}

	g.sys.Frame()

	if g.audio != nil {
		for _, sample := range g.sys.GetAudioSamples() {
			g.audio.push(sample)
		}
	}

	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	buf := g.sys.GetFrameBuffer()
	img := g.imageBuffer
	for y := 0; y < nesHeight; y++ {
		for x := 0; x < nesWidth; x++ {
			rgb := ppu.Palette(buf[y*nesWidth+x])
			r := uint8((rgb >> 16) & 0xFF)
			gr := uint8((rgb >> 8) & 0xFF)
			b := uint8(rgb & 0xFF)
			img.SetRGBA(x, y, color.RGBA{R: r, G: gr, B: b, A: 255})
		}
	}
	g.frameImage.ReplacePixels(img.Pix)

	op := &ebiten.DrawImageOptions{}
	scaleX := float64(g.windowWidth) / float64(nesWidth)
	scaleY := float64(g.windowHeight) / float64(nesHeight)
	scale := scaleX
	if scaleY < scale {
		scale = scaleY
	}
	offsetX := (float64(g.windowWidth) - float64(nesWidth)*scale) / 2
	offsetY := (float64(g.windowHeight) - float64(nesHeight)*scale) / 2
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(offsetX, offsetY)
	screen.DrawImage(g.frameImage, op)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.windowWidth, g.windowHeight = outsideWidth, outsideHeight
	return outsideWidth, outsideHeight
}

func setupGracefulShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println("interrupt received, shutting down")
		os.Exit(0)
	}()
}

func printUsage() {
	fmt.Println("gones - Go NES Emulator")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  gones -rom <file> [options]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("CONTROLS (default Player 1):")
	fmt.Println("  WASD      - D-Pad")
	fmt.Println("  K / J     - A / B")
	fmt.Println("  Enter     - Start")
	fmt.Println("  ShiftLeft - Select")
}
