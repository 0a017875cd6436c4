package main

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// audioEngine streams APU samples to the host audio device. Samples are
// pushed from the emulation loop into a ring buffer that the portaudio
// callback drains; a callback tick with nothing queued emits silence
// rather than blocking.
type audioEngine struct {
	mu     sync.Mutex
	ring   []float32
	stream *portaudio.Stream
	params portaudio.StreamParameters
}

func newAudioEngine(preferredRate int) (*audioEngine, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	host, err := portaudio.DefaultHostApi()
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("default host api: %w", err)
	}

	a := &audioEngine{
		params: portaudio.LowLatencyParameters(nil, host.DefaultOutputDevice),
	}
	if preferredRate > 0 {
		a.params.SampleRate = float64(preferredRate)
	}
	a.params.FramesPerBuffer = 512

	stream, err := portaudio.OpenStream(a.params, a.callback)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("open stream: %w", err)
	}
	a.stream = stream

	return a, nil
}

func (a *audioEngine) sampleRate() float64 {
	return a.params.SampleRate
}

func (a *audioEngine) play() error {
	return a.stream.Start()
}

func (a *audioEngine) quit() error {
	if a.stream == nil {
		return nil
	}
	stopErr := a.stream.Stop()
	closeErr := a.stream.Close()
	termErr := portaudio.Terminate()
	if stopErr != nil {
		return stopErr
	}
	if closeErr != nil {
		return closeErr
	}
	return termErr
}

// maxQueued bounds the ring buffer so a slow audio device can't let queued
// samples grow into unbounded playback latency; the oldest samples are
// dropped instead.
const maxQueued = 1 << 15

// push enqueues one APU sample for playback.
func (a *audioEngine) push(sample float32) {
	a.mu.Lock()
	a.ring = append(a.ring, sample)
	if len(a.ring) > maxQueued {
		a.ring = a.ring[len(a.ring)-maxQueued:]
	}
	a.mu.Unlock()
}

func (a *audioEngine) callback(out []float32) {
	channels := a.params.Output.Channels
	if channels == 0 {
		channels = 1
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for i := 0; i < len(out); i += channels {
		var f float32
		if len(a.ring) > 0 {
			f = a.ring[0]
			a.ring = a.ring[1:]
		}
		for c := 0; c < channels; c++ {
			out[i+c] = f
		}
	}
}
