package sensor

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"go.bug.st/serial"
)

// SerialConfig configures a line-oriented serial sensor.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// PortOpener opens a serial port. Tests replace it with an in-memory pipe.
type PortOpener func(path string, mode *serial.Mode) (io.ReadCloser, error)

func openSerialPort(path string, mode *serial.Mode) (io.ReadCloser, error) {
	return serial.Open(path, mode)
}

// SerialSource reads "x,y,z" lines from a serial device, one sample per line.
type SerialSource struct {
	cfg  SerialConfig
	open PortOpener

	mu   sync.Mutex
	port io.ReadCloser
	done chan struct{}
}

// NewSerialSource creates a SerialSource. open may be nil.
func NewSerialSource(cfg SerialConfig, open PortOpener) *SerialSource {
	if open == nil {
		open = openSerialPort
	}
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = 115200
	}
	return &SerialSource{cfg: cfg, open: open}
}

// Name implements Source.
func (s *SerialSource) Name() string { return "serial:" + s.cfg.Port }

// Subscribe implements Source.
func (s *SerialSource) Subscribe(h Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port != nil {
		return nil
	}

	mode := &serial.Mode{
		BaudRate: s.cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := s.open(s.cfg.Port, mode)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrUnavailable, s.cfg.Port, err)
	}

	s.port = port
	s.done = make(chan struct{})
	go s.readLoop(port, h, s.done)

	slog.Info("serial sensor opened", "port", s.cfg.Port, "baud", s.cfg.BaudRate)
	return nil
}

// Unsubscribe implements Source. It closes the port and waits for the reader to exit.
func (s *SerialSource) Unsubscribe() {
	s.mu.Lock()
	port, done := s.port, s.done
	s.port, s.done = nil, nil
	s.mu.Unlock()

	if port == nil {
		return
	}
	if err := port.Close(); err != nil {
		slog.Warn("closing serial port", "port", s.cfg.Port, "err", err)
	}
	<-done
}

func (s *SerialSource) readLoop(r io.Reader, h Handler, done chan struct{}) {
	defer close(done)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		v, err := ParseVector(line)
		if err != nil {
			slog.Debug("dropping malformed serial line", "port", s.cfg.Port, "err", err)
			continue
		}
		h(v)
	}
	if err := scanner.Err(); err != nil {
		slog.Debug("serial reader stopped", "port", s.cfg.Port, "err", err)
	}
}
