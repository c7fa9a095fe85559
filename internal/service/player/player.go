package player

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

var ErrUnsupportedFormat = errors.New("unsupported format for playback; use mp3 or wav")

// Player воспроизводит короткий звук в зависимости от формата.
type Player interface {
	Play(format string, r io.ReadCloser) error
}

// Speaker реализует Player поверх beep/speaker (mp3 и wav).
type Speaker struct{ volumeDB float64 }

// New создаёт плеер без изменения громкости (0 dB).
func New() *Speaker { return &Speaker{} }

// NewWithVolume создаёт плеер с громкостью в dB (отрицательные — тише).
func NewWithVolume(db float64) *Speaker { return &Speaker{volumeDB: db} }

func (s *Speaker) Play(format string, r io.ReadCloser) error {
	streamer, fmtInfo, err := decode(format, r)
	if err != nil {
		return err
	}
	defer streamer.Close()

	if err := speaker.Init(fmtInfo.SampleRate, fmtInfo.SampleRate.N(time.Second/10)); err != nil {
		return err
	}
	vol := &effects.Volume{Streamer: streamer, Base: 2, Volume: s.volumeDB}
	done := make(chan struct{})
	speaker.Play(beep.Seq(vol, beep.Callback(func() { close(done) })))
	<-done
	return nil
}

func decode(format string, r io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(format) {
	case "wav":
		return wav.Decode(r)
	case "mp3":
		return mp3.Decode(r)
	default:
		return nil, beep.Format{}, ErrUnsupportedFormat
	}
}
