package daemon

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"
)

const clientDialTimeout = 2 * time.Second

// ErrNotRunning reports that no daemon is listening on the project
// socket.
var ErrNotRunning = errors.New("daemon is not running")

// RunHandler receives response lines as they arrive: debug lines
// first, then the terminal text.
type RunHandler func(lineType, text string)

// SendRun sends one run request over the project socket and streams
// response lines to handle. A terminal error line is returned as an
// error after all debug lines have been delivered.
func SendRun(socketPath, agentName, message string, debug bool, handle RunHandler) error {
	conn, err := dial(socketPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	req := Request{Agent: agentName, Message: message, Debug: debug}
	if err := sendRequest(conn, req); err != nil {
		return err
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	sawTerminal := false
	for scanner.Scan() {
		var line ResponseLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			return fmt.Errorf("malformed response: %w", err)
		}
		switch line.Type {
		case LineDebug:
			handle(LineDebug, line.Text)
		case LineText:
			handle(LineText, line.Text)
			sawTerminal = true
		case LineError:
			return errors.New(line.Text)
		default:
			return fmt.Errorf("unexpected response type %q", line.Type)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if !sawTerminal {
		return errors.New("connection closed before response completed")
	}
	return nil
}

// FetchStatus retrieves the daemon's agent status snapshot.
func FetchStatus(socketPath string) (map[string]AgentStatus, error) {
	conn, err := dial(socketPath)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := sendRequest(conn, Request{Type: LineStatus}); err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		return nil, errors.New("connection closed before response completed")
	}
	var line ResponseLine
	if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	switch line.Type {
	case LineStatus:
		return line.Agents, nil
	case LineError:
		return nil, errors.New(line.Text)
	default:
		return nil, fmt.Errorf("unexpected response type %q", line.Type)
	}
}

func dial(socketPath string) (net.Conn, error) {
	conn, err := net.DialTimeout("unix", socketPath, clientDialTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w (socket %s)", ErrNotRunning, socketPath)
	}
	return conn, nil
}

func sendRequest(conn net.Conn, req Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	return nil
}
