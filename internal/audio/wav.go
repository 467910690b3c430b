package audio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	ErrNotWAV           = errors.New("not a RIFF/WAVE file")
	ErrFormatMismatch   = errors.New("wav format mismatch")
	ErrNoDataChunk      = errors.New("wav file has no data chunk")
	ErrUnsupportedCodec = errors.New("unsupported wav codec")
)

// Info describes a WAV file's PCM format and the location of its sample data.
type Info struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	DataOffset    int64
	DataSize      uint32
}

func (i Info) sameFormat(other Info) bool {
	return i.SampleRate == other.SampleRate &&
		i.Channels == other.Channels &&
		i.BitsPerSample == other.BitsPerSample
}

// EncodeWAVPCM16LE wraps raw PCM16LE mono audio bytes in a WAV container.
func EncodeWAVPCM16LE(pcm []byte, sampleRate int) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteWAVPCM16LETo(&buf, pcm, sampleRate); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteWAVPCM16LEFile writes raw PCM16LE mono audio bytes as a WAV file.
func WriteWAVPCM16LEFile(path string, pcm []byte, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteWAVPCM16LETo(f, pcm, sampleRate)
}

// WriteWAVPCM16LETo writes raw PCM16LE mono audio bytes to out as a WAV stream.
func WriteWAVPCM16LETo(out io.Writer, pcm []byte, sampleRate int) error {
	if sampleRate <= 0 {
		sampleRate = 24000
	}
	w := bufio.NewWriter(out)
	if err := writeHeader(w, Info{SampleRate: sampleRate, Channels: 1, BitsPerSample: 16}, uint32(len(pcm))); err != nil {
		return err
	}
	if _, err := w.Write(pcm); err != nil {
		return err
	}
	return w.Flush()
}

func writeHeader(w io.Writer, info Info, dataSize uint32) error {
	byteRate := uint32(info.SampleRate * info.Channels * info.BitsPerSample / 8)
	blockAlign := uint16(info.Channels * info.BitsPerSample / 8)

	// RIFF header.
	if _, err := io.WriteString(w, "RIFF"); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(36)+dataSize); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "WAVE"); err != nil {
		return err
	}

	// fmt chunk.
	if _, err := io.WriteString(w, "fmt "); err != nil {
		return err
	}
	for _, v := range []any{
		uint32(16),
		uint16(1), // PCM
		uint16(info.Channels),
		uint32(info.SampleRate),
		byteRate,
		blockAlign,
		uint16(info.BitsPerSample),
	} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}

	// data chunk.
	if _, err := io.WriteString(w, "data"); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, dataSize)
}

// ReadInfo parses a WAV header, walking the chunk list until it finds both
// the fmt and data chunks.
func ReadInfo(r io.ReadSeeker) (Info, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return Info{}, fmt.Errorf("read riff header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return Info{}, ErrNotWAV
	}

	var (
		info   Info
		gotFmt bool
		offset int64 = 12
	)
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if gotFmt {
				return Info{}, ErrNoDataChunk
			}
			return Info{}, fmt.Errorf("read chunk header: %w", err)
		}
		id := string(hdr[0:4])
		size := binary.LittleEndian.Uint32(hdr[4:8])
		offset += 8

		switch id {
		case "fmt ":
			var fmtData [16]byte
			if _, err := io.ReadFull(r, fmtData[:]); err != nil {
				return Info{}, fmt.Errorf("read fmt chunk: %w", err)
			}
			if codec := binary.LittleEndian.Uint16(fmtData[0:2]); codec != 1 {
				return Info{}, fmt.Errorf("%w: codec %d", ErrUnsupportedCodec, codec)
			}
			info.Channels = int(binary.LittleEndian.Uint16(fmtData[2:4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(fmtData[4:8]))
			info.BitsPerSample = int(binary.LittleEndian.Uint16(fmtData[14:16]))
			gotFmt = true
			if size > 16 {
				if _, err := r.Seek(int64(size-16), io.SeekCurrent); err != nil {
					return Info{}, err
				}
			}
			offset += int64(size)
		case "data":
			if !gotFmt {
				return Info{}, fmt.Errorf("%w: data before fmt", ErrNotWAV)
			}
			info.DataOffset = offset
			info.DataSize = size
			return info, nil
		default:
			if _, err := r.Seek(int64(size), io.SeekCurrent); err != nil {
				return Info{}, err
			}
			offset += int64(size)
		}
	}
}

// ReadInfoFile is ReadInfo against a file on disk.
func ReadInfoFile(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()
	return ReadInfo(f)
}

// ConcatWriter assembles many WAV files into one by streaming their data
// chunks in append order, so assembly memory stays flat no matter how large
// the project is. The output format is adopted from the first appended file;
// later files must match it. Header sizes are patched on Close, so the output
// is not a valid WAV until Close returns nil.
type ConcatWriter struct {
	f         *os.File
	info      Info
	dataBytes uint32
	started   bool
}

func NewConcatWriter(path string) (*ConcatWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &ConcatWriter{f: f}, nil
}

// AppendFile streams the data chunk of the WAV at path into the output.
func (c *ConcatWriter) AppendFile(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := ReadInfo(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if !c.started {
		if err := writeHeader(c.f, info, 0); err != nil {
			return err
		}
		c.info = info
		c.started = true
	} else if !c.info.sameFormat(info) {
		return fmt.Errorf("%w: %s is %dHz/%dch/%dbit, output is %dHz/%dch/%dbit",
			ErrFormatMismatch, path,
			info.SampleRate, info.Channels, info.BitsPerSample,
			c.info.SampleRate, c.info.Channels, c.info.BitsPerSample)
	}

	n, err := io.Copy(c.f, io.NewSectionReader(src, info.DataOffset, int64(info.DataSize)))
	if err != nil {
		return fmt.Errorf("copy %s: %w", path, err)
	}
	c.dataBytes += uint32(n)
	return nil
}

// Info returns the adopted output format; zero until the first append.
func (c *ConcatWriter) Info() Info { return c.info }

// Close patches the RIFF and data sizes and closes the file.
func (c *ConcatWriter) Close() error {
	if !c.started {
		c.f.Close()
		return ErrNoDataChunk
	}
	var sz [4]byte
	binary.LittleEndian.PutUint32(sz[:], uint32(36)+c.dataBytes)
	if _, err := c.f.WriteAt(sz[:], 4); err != nil {
		c.f.Close()
		return err
	}
	binary.LittleEndian.PutUint32(sz[:], c.dataBytes)
	if _, err := c.f.WriteAt(sz[:], 40); err != nil {
		c.f.Close()
		return err
	}
	return c.f.Close()
}

// Abort closes and removes a partially written output.
func (c *ConcatWriter) Abort() {
	name := c.f.Name()
	_ = c.f.Close()
	_ = os.Remove(name)
}
