package daemon

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

const (
	socketProbeTimeout = 2 * time.Second
	requestReadLimit   = 1 << 20 // 1 MiB per request line
)

// Serve binds the project socket, writes the PID file, runs the
// scheduler and the accept loop, and blocks until ctx is cancelled.
// Socket and PID files are removed on the way out regardless of how
// shutdown went.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := d.listen(); err != nil {
		return err
	}
	pidPath := d.cfg.PIDPath()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		d.listener.Close()
		os.Remove(d.cfg.SocketPath())
		return fmt.Errorf("write pid file: %w", err)
	}
	d.logger.Info().
		Str("socket", d.cfg.SocketPath()).
		Int("agents", len(d.engines)).
		Msg("daemon listening")

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.scheduler.Run(ctx)
	}()

	// Unblock Accept when the context ends.
	go func() {
		<-ctx.Done()
		d.listener.Close()
	}()

	d.acceptLoop(ctx)
	cancel()
	// In-flight handlers see the cancelled context and finish quickly;
	// engines stay up until they have drained.
	d.wg.Wait()
	d.shutdown()
	return nil
}

// listen claims the project socket. A live socket means another
// daemon owns the project; a dead one is left over from an unclean
// exit and is removed.
func (d *Daemon) listen() error {
	sockPath := d.cfg.SocketPath()
	if _, err := os.Stat(sockPath); err == nil {
		conn, err := net.DialTimeout("unix", sockPath, socketProbeTimeout)
		if err == nil {
			conn.Close()
			return fmt.Errorf("daemon already running on %s", sockPath)
		}
		d.logger.Warn().Str("socket", sockPath).Msg("removing stale socket")
		if err := os.Remove(sockPath); err != nil {
			return fmt.Errorf("remove stale socket: %w", err)
		}
	}
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", sockPath, err)
	}
	d.listener = ln
	return nil
}

func (d *Daemon) acceptLoop(ctx context.Context) {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return
			}
			d.logger.Error().Err(err).Msg("accept failed")
			continue
		}
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.handleConn(ctx, conn)
		}()
	}
}

// handleConn serves exactly one request and closes the connection.
func (d *Daemon) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	requestID, err := gonanoid.New()
	if err != nil {
		requestID = "unknown"
	}
	logger := d.logger.With().Str("request_id", requestID).Logger()

	var req Request
	reader := bufio.NewReaderSize(conn, 64*1024)
	line, err := readRequestLine(reader)
	if err != nil {
		logger.Error().Err(err).Msg("read request failed")
		writeLine(conn, ResponseLine{Type: LineError, Text: "invalid request: " + err.Error()})
		return
	}
	if err := json.Unmarshal(line, &req); err != nil {
		logger.Error().Err(err).Msg("malformed request")
		writeLine(conn, ResponseLine{Type: LineError, Text: "invalid request: " + err.Error()})
		return
	}

	switch req.Type {
	case LineStatus:
		writeLine(conn, ResponseLine{Type: LineStatus, Agents: d.status()})
	case "", "run":
		d.handleRun(ctx, conn, req, logger)
	default:
		writeLine(conn, ResponseLine{Type: LineError, Text: fmt.Sprintf("unknown request type %q", req.Type)})
	}
}

func (d *Daemon) handleRun(ctx context.Context, conn net.Conn, req Request, logger zerolog.Logger) {
	if req.Agent == "" {
		writeLine(conn, ResponseLine{Type: LineError, Text: "missing agent name"})
		return
	}
	engine, ok := d.engines[req.Agent]
	if !ok {
		writeLine(conn, ResponseLine{Type: LineError, Text: fmt.Sprintf("unknown agent %q", req.Agent)})
		return
	}

	logger.Info().Str("agent", req.Agent).Bool("debug", req.Debug).Msg("run request")
	result, err := engine.Run(ctx, req.Message, 0, req.Debug)
	for _, event := range result.DebugEvents {
		writeLine(conn, ResponseLine{Type: LineDebug, Text: event})
	}
	if err != nil {
		logger.Error().Err(err).Str("agent", req.Agent).Msg("run failed")
		writeLine(conn, ResponseLine{Type: LineError, Text: err.Error()})
		return
	}
	writeLine(conn, ResponseLine{Type: LineText, Text: result.Text})
}

// shutdown tears the daemon down in order: listener first so no new
// work arrives, then engines, then the filesystem artifacts. Safe to
// call more than once.
func (d *Daemon) shutdown() {
	d.stopOnce.Do(func() {
		if d.listener != nil {
			d.listener.Close()
		}
		d.shutdownEngines()
		os.Remove(d.cfg.SocketPath())
		os.Remove(d.cfg.PIDPath())
		d.logger.Info().Msg("daemon stopped")
	})
}

// readRequestLine reads one request, accepting either a single JSON
// line or a bare JSON object followed by EOF.
func readRequestLine(reader *bufio.Reader) ([]byte, error) {
	var buf []byte
	for len(buf) < requestReadLimit {
		chunk := make([]byte, 4096)
		n, err := reader.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if n > 0 {
			if idx := bytes.IndexByte(buf, '\n'); idx >= 0 {
				return buf[:idx], nil
			}
		}
		if err != nil {
			if len(buf) > 0 {
				return buf, nil
			}
			return nil, err
		}
	}
	return nil, errors.New("request too large")
}

func writeLine(conn net.Conn, line ResponseLine) {
	data, err := json.Marshal(line)
	if err != nil {
		return
	}
	conn.Write(append(data, '\n'))
}
